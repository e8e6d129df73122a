package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pepperpepperpepper/pipegraph/internal/bridge"
	"github.com/pepperpepperpepper/pipegraph/internal/control"
)

var clockCmd = &cobra.Command{
	Use:   "clock",
	Short: "Inspect and apply clock presets",
}

var clockListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the available clock presets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, p := range control.Presets() {
			fmt.Printf("%-18s %-16s %s\n", p.ID, p.Label, p.Description)
		}
		return nil
	},
}

var clockApplyCmd = &cobra.Command{
	Use:   "apply <preset-id>",
	Short: "Apply a clock preset on the running daemon",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ack, err := sendCommand(cmd.Context(), cfg, bridge.ActionApplyPreset,
			bridge.CommandMessage{PresetID: args[0]})
		if err != nil {
			return err
		}
		return reportAck(ack)
	},
}

func init() {
	clockCmd.AddCommand(clockListCmd)
	clockCmd.AddCommand(clockApplyCmd)
	rootCmd.AddCommand(clockCmd)
}
