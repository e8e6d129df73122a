// Package bridge connects the graph mirror to MQTT.
//
// Outbound, it publishes retained state documents whenever a coalesced
// change notification fires: a graph summary, per-node controls, the
// default-device selection, clock settings and the profiler load.
// Inbound, it consumes control commands on pipegraph/command/+ and
// answers each one on a correlation-id ack topic.
//
// The MQTT client is an interface so tests run against an in-memory
// fake; the production implementation is infrastructure/mqtt.Client.
package bridge
