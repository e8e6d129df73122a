package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pepperpepperpepper/pipegraph/internal/servicectl"
)

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Control the audio server's systemd user units",
}

var serviceStatusCmd = &cobra.Command{
	Use:   "status [unit...]",
	Short: "Show unit status (defaults to the configured units)",
	RunE: func(cmd *cobra.Command, args []string) error {
		units := args
		if len(units) == 0 {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			units = cfg.Service.Units
		}

		client := servicectl.New()
		for _, unit := range units {
			status, err := client.Status(cmd.Context(), unit)
			if err != nil {
				fmt.Printf("%-28s error: %v\n", unit, err)
				continue
			}
			enabled := status.UnitFileState
			if enabled == "" {
				enabled = "unknown"
			}
			fmt.Printf("%-28s %s (%s), %s, pid %d\n",
				status.Name, status.ActiveState, status.SubState, enabled, status.MainPID)
		}
		return nil
	},
}

func serviceVerbCmd(use, short string, verb func(*servicectl.Client, context.Context, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <unit>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := servicectl.New()
			if err := verb(client, cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("%s: %s\n", args[0], use)
			return nil
		},
	}
}

func init() {
	serviceCmd.AddCommand(serviceStatusCmd)
	serviceCmd.AddCommand(serviceVerbCmd("start", "Start a unit", (*servicectl.Client).Start))
	serviceCmd.AddCommand(serviceVerbCmd("stop", "Stop a unit", (*servicectl.Client).Stop))
	serviceCmd.AddCommand(serviceVerbCmd("restart", "Restart a unit", (*servicectl.Client).Restart))
	rootCmd.AddCommand(serviceCmd)
}
