package main

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/pepperpepperpepper/pipegraph/internal/infrastructure/mqtt"
)

// retainedSettleTime is how long status waits for the broker to replay
// retained state documents.
const retainedSettleTime = 2 * time.Second

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the daemon's published graph state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if !cfg.MQTT.Enabled {
			return fmt.Errorf("MQTT is disabled in configuration; status reads the daemon's retained state")
		}

		client, err := mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer client.Close() //nolint:errcheck // one-shot teardown

		var mu sync.Mutex
		state := make(map[string]string)
		err = client.Subscribe(mqtt.Topics{}.AllStates(), 1, func(topic string, payload []byte) error {
			mu.Lock()
			if len(payload) > 0 {
				state[topic] = string(payload)
			}
			mu.Unlock()
			return nil
		})
		if err != nil {
			return fmt.Errorf("subscribing to state: %w", err)
		}

		select {
		case <-time.After(retainedSettleTime):
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		}

		mu.Lock()
		defer mu.Unlock()
		if len(state) == 0 {
			return fmt.Errorf("no retained state on the broker; is the daemon running?")
		}

		topics := make([]string, 0, len(state))
		for topic := range state {
			topics = append(topics, topic)
		}
		sort.Strings(topics)
		for _, topic := range topics {
			fmt.Printf("%s\n  %s\n", topic, state[topic])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
