// Package mqtt wraps the paho client for the pipegraph broker surface.
//
// The engine mirrors the audio graph onto retained state topics and
// accepts control commands on command topics, so dashboards and
// automations never talk to the audio server connection directly:
//
//	audio server <-> pipegraph engine <-> MQTT broker <-> consumers
//
// The wrapper adds what the bridge needs on top of raw paho:
//
//   - subscription replay after a reconnect
//   - a retained status topic plus an LWT, so consumers can tell a
//     crashed engine from a gracefully stopped one
//   - panic recovery around message handlers
//   - topic builders (Topics) shared by the daemon and the CLI
//
// TLS and broker credentials come from config.MQTTConfig; anonymous
// plaintext connections are for local development only.
//
// Typical use:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllCommands(), 1, handleCommand)
package mqtt
