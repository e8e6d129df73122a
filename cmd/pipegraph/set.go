package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pepperpepperpepper/pipegraph/internal/bridge"
)

var setVolumeCmd = &cobra.Command{
	Use:   "set-volume <node-id> <volume>",
	Short: "Set a node's volume (0.0 to 2.0)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		nodeID, err := parseNodeID(args[0])
		if err != nil {
			return err
		}
		volume, err := strconv.ParseFloat(args[1], 32)
		if err != nil {
			return fmt.Errorf("invalid volume %q: %w", args[1], err)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		v := float32(volume)
		ack, err := sendCommand(cmd.Context(), cfg, bridge.ActionSetVolume,
			bridge.CommandMessage{NodeID: nodeID, Volume: &v})
		if err != nil {
			return err
		}
		return reportAck(ack)
	},
}

var setMuteCmd = &cobra.Command{
	Use:   "set-mute <node-id> <on|off>",
	Short: "Mute or unmute a node",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		nodeID, err := parseNodeID(args[0])
		if err != nil {
			return err
		}
		var mute bool
		switch args[1] {
		case "on":
			mute = true
		case "off":
			mute = false
		default:
			return fmt.Errorf("mute state must be on or off, got %q", args[1])
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ack, err := sendCommand(cmd.Context(), cfg, bridge.ActionSetMute,
			bridge.CommandMessage{NodeID: nodeID, Mute: &mute})
		if err != nil {
			return err
		}
		return reportAck(ack)
	},
}

var setDefaultCmd = &cobra.Command{
	Use:   "set-default <sink|source> <node-id>",
	Short: "Select the default audio sink or source",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := args[0]
		if target != "sink" && target != "source" {
			return fmt.Errorf("target must be sink or source, got %q", target)
		}
		nodeID, err := parseNodeID(args[1])
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ack, err := sendCommand(cmd.Context(), cfg, bridge.ActionSetDefault,
			bridge.CommandMessage{NodeID: nodeID, Target: target})
		if err != nil {
			return err
		}
		return reportAck(ack)
	},
}

func parseNodeID(arg string) (uint32, error) {
	id, err := strconv.ParseUint(arg, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid node id %q: %w", arg, err)
	}
	return uint32(id), nil
}

func init() {
	rootCmd.AddCommand(setVolumeCmd)
	rootCmd.AddCommand(setMuteCmd)
	rootCmd.AddCommand(setDefaultCmd)
}
