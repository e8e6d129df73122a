package mqtt

import "fmt"

// Topic prefixes for the pipegraph MQTT surface.
//
// State topics are retained so new subscribers immediately see the current
// graph; command and ack topics are transient.
const (
	// TopicPrefix is the base for all pipegraph topics.
	TopicPrefix = "pipegraph"

	// TopicPrefixState is the base for retained state topics.
	TopicPrefixState = "pipegraph/state"

	// TopicPrefixCommand is the base for inbound command topics.
	TopicPrefixCommand = "pipegraph/command"

	// TopicPrefixAck is the base for command acknowledgement topics.
	TopicPrefixAck = "pipegraph/ack"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "pipegraph/system"
)

// Topics provides builders for pipegraph MQTT topics. Using these helpers
// keeps topic naming consistent across the codebase.
//
//	topics := mqtt.Topics{}
//	topics.StateNodeControls(51) // "pipegraph/state/node/51/controls"
type Topics struct{}

// StateSummary returns the topic for the coalesced graph summary.
//
// Example: pipegraph/state/summary
func (Topics) StateSummary() string {
	return fmt.Sprintf("%s/summary", TopicPrefixState)
}

// StateNodeControls returns the topic for one node's volume/mute state.
//
// Example: pipegraph/state/node/51/controls
func (Topics) StateNodeControls(nodeID uint32) string {
	return fmt.Sprintf("%s/node/%d/controls", TopicPrefixState, nodeID)
}

// StateDefaults returns the topic for the default-device selection.
//
// Example: pipegraph/state/defaults
func (Topics) StateDefaults() string {
	return fmt.Sprintf("%s/defaults", TopicPrefixState)
}

// StateClock returns the topic for the mirrored clock settings.
//
// Example: pipegraph/state/clock
func (Topics) StateClock() string {
	return fmt.Sprintf("%s/clock", TopicPrefixState)
}

// StateProfiler returns the topic for profiler load summaries.
//
// Example: pipegraph/state/profiler
func (Topics) StateProfiler() string {
	return fmt.Sprintf("%s/profiler", TopicPrefixState)
}

// Command returns the topic for one command action.
//
// Example: pipegraph/command/set-volume
func (Topics) Command(action string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixCommand, action)
}

// CommandAck returns the topic a command reply is published on.
//
// Example: pipegraph/ack/req-abc123
func (Topics) CommandAck(correlationID string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixAck, correlationID)
}

// SystemStatus returns the engine status topic.
//
// Example: pipegraph/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllCommands returns a pattern matching every command topic.
//
// Pattern: pipegraph/command/+
func (Topics) AllCommands() string {
	return fmt.Sprintf("%s/+", TopicPrefixCommand)
}

// AllStates returns a pattern matching every state topic.
//
// Pattern: pipegraph/state/#
func (Topics) AllStates() string {
	return fmt.Sprintf("%s/#", TopicPrefixState)
}

// AllTopics returns a pattern matching all pipegraph topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: pipegraph/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
