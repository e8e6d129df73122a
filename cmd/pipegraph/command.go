package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pepperpepperpepper/pipegraph/internal/bridge"
	"github.com/pepperpepperpepper/pipegraph/internal/infrastructure/config"
	"github.com/pepperpepperpepper/pipegraph/internal/infrastructure/mqtt"
)

// ackTimeout bounds how long a one-shot command waits for the daemon.
const ackTimeout = 5 * time.Second

// sendCommand publishes one control command to a running daemon over
// MQTT and waits for its ack.
func sendCommand(ctx context.Context, cfg *config.Config, action string, cmd bridge.CommandMessage) (bridge.AckMessage, error) {
	var ack bridge.AckMessage

	if !cfg.MQTT.Enabled {
		return ack, fmt.Errorf("MQTT is disabled in configuration; one-shot commands need a broker")
	}

	client, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return ack, fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer client.Close() //nolint:errcheck // one-shot teardown

	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}

	topics := mqtt.Topics{}
	acks := make(chan bridge.AckMessage, 1)
	err = client.Subscribe(topics.CommandAck(cmd.ID), 1, func(_ string, payload []byte) error {
		var a bridge.AckMessage
		if err := json.Unmarshal(payload, &a); err != nil {
			return err
		}
		select {
		case acks <- a:
		default:
		}
		return nil
	})
	if err != nil {
		return ack, fmt.Errorf("subscribing to ack: %w", err)
	}

	payload, err := json.Marshal(cmd)
	if err != nil {
		return ack, fmt.Errorf("encoding command: %w", err)
	}
	if err := client.Publish(topics.Command(action), payload, 1, false); err != nil {
		return ack, fmt.Errorf("publishing command: %w", err)
	}

	select {
	case ack = <-acks:
		return ack, nil
	case <-time.After(ackTimeout):
		return ack, fmt.Errorf("no ack within %v; is the daemon running?", ackTimeout)
	case <-ctx.Done():
		return ack, ctx.Err()
	}
}

// reportAck prints an ack and returns an error on failure so the
// process exits non-zero.
func reportAck(ack bridge.AckMessage) error {
	if ack.Status == bridge.AckAccepted {
		fmt.Printf("%s: accepted\n", ack.Action)
		return nil
	}
	if ack.Error != nil {
		return fmt.Errorf("%s: %s (%s)", ack.Action, ack.Error.Message, ack.Error.Code)
	}
	return fmt.Errorf("%s: failed", ack.Action)
}
