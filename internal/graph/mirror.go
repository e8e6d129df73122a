package graph

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pepperpepperpepper/pipegraph/internal/conn"
	"github.com/pepperpepperpepper/pipegraph/internal/pod"
)

// Logger defines the logging interface used by the Mirror.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Metadata object names and keys the mirror consumes.
const (
	MetaNameSettings = "settings"
	MetaNameDefault  = "default"

	MetaKeyDefaultSink      = "default.audio.sink"
	MetaKeyConfiguredSink   = "default.configured.audio.sink"
	MetaKeyDefaultSource    = "default.audio.source"
	MetaKeyConfiguredSource = "default.configured.audio.source"

	MetaKeyClockRate         = "clock.rate"
	MetaKeyClockAllowedRates = "clock.allowed-rates"
	MetaKeyClockQuantum      = "clock.quantum"
	MetaKeyClockMinQuantum   = "clock.min-quantum"
	MetaKeyClockMaxQuantum   = "clock.max-quantum"
	MetaKeyClockForceRate    = "clock.force-rate"
	MetaKeyClockForceQuantum = "clock.force-quantum"
)

// midiBridgeModule marks MIDI bridge capability when present in the module
// list.
const midiBridgeModule = "midi-bridge"

// Mirror is the thread-safe mirror of the server's object graph. See the
// package documentation for the concurrency contract.
type Mirror struct {
	conn     conn.Conn
	logger   Logger
	notifier *Notifier

	mu       sync.RWMutex
	nodes    map[uint32]*NodeInfo
	ports    map[uint32]*PortInfo
	links    map[uint32]*LinkInfo
	modules  map[uint32]*ModuleInfo
	controls map[uint32]*NodeControls

	bindings  map[uint32]*binding
	metaNames map[uint32]string
	metaProps map[uint32]map[string]string

	// Role resolution over bound metadata objects; 0 means "no source".
	settingsMetaID uint32
	defaultMetaID  uint32

	clock      ClockSettings
	profilerID uint32
	profiler   ProfilerSnapshot
}

// New creates a mirror over the given connection. The debounce delay applies
// to change-notification coalescing. Call Start to begin mirroring.
func New(c conn.Conn, debounce time.Duration) *Mirror {
	return &Mirror{
		conn:      c,
		logger:    noopLogger{},
		notifier:  NewNotifier(debounce),
		nodes:     make(map[uint32]*NodeInfo),
		ports:     make(map[uint32]*PortInfo),
		links:     make(map[uint32]*LinkInfo),
		modules:   make(map[uint32]*ModuleInfo),
		controls:  make(map[uint32]*NodeControls),
		bindings:  make(map[uint32]*binding),
		metaNames: make(map[uint32]string),
		metaProps: make(map[uint32]map[string]string),
	}
}

// SetLogger sets the logger for the mirror.
func (m *Mirror) SetLogger(logger Logger) {
	m.logger = logger
}

// Notifier returns the mirror's change notifier for subscriptions.
func (m *Mirror) Notifier() *Notifier { return m.notifier }

// Start registers with the registry; existing objects are replayed as adds.
func (m *Mirror) Start() {
	m.conn.AddRegistryListener(m)
}

// Close tears down all bindings under the loop lock (nodes, then metadata,
// then the profiler), detaches from the registry and stops notification
// delivery.
func (m *Mirror) Close() {
	m.conn.Loop().RunLocked(m.teardownBindings)
	m.conn.RemoveRegistryListener(m)
	m.notifier.Close()
}

// ---------------------------------------------------------------------------
// Registry event routing (loop goroutine)

// GlobalAdded implements conn.RegistryListener.
func (m *Mirror) GlobalAdded(g conn.Global) {
	switch g.Kind {
	case conn.KindNode:
		m.mu.Lock()
		m.nodes[g.ID] = nodeFromGlobal(g)
		m.mu.Unlock()
		m.bindNode(g.ID)
		m.notifier.Notify(ChangeTopology)

	case conn.KindPort:
		m.mu.Lock()
		m.ports[g.ID] = portFromGlobal(g)
		m.mu.Unlock()
		m.notifier.Notify(ChangeTopology)

	case conn.KindLink:
		m.mu.Lock()
		m.links[g.ID] = linkFromGlobal(g)
		m.mu.Unlock()
		m.notifier.Notify(ChangeTopology)

	case conn.KindModule:
		m.mu.Lock()
		m.modules[g.ID] = moduleFromGlobal(g)
		m.mu.Unlock()
		m.notifier.Notify(ChangeTopology)

	case conn.KindMetadata:
		m.bindMetadata(g.ID, g.Props[conn.PropMetadataName])
		m.notifier.Notify(ChangeMetadata)

	case conn.KindProfiler:
		m.bindProfiler(g.ID)
		m.notifier.Notify(ChangeProfiler)

	default:
		m.logger.Debug("ignoring registry global", "id", g.ID, "kind", g.Kind.String())
	}
}

// GlobalRemoved implements conn.RegistryListener. A removal may clear
// several maps: a node removal also drops its controls entry.
func (m *Mirror) GlobalRemoved(id uint32) {
	var mask Change

	m.mu.Lock()
	if _, ok := m.nodes[id]; ok {
		delete(m.nodes, id)
		delete(m.controls, id)
		mask |= ChangeTopology
	}
	if _, ok := m.ports[id]; ok {
		delete(m.ports, id)
		mask |= ChangeTopology
	}
	if _, ok := m.links[id]; ok {
		delete(m.links, id)
		mask |= ChangeTopology
	}
	if _, ok := m.modules[id]; ok {
		delete(m.modules, id)
		mask |= ChangeTopology
	}
	if b, ok := m.bindings[id]; ok {
		m.releaseBindingLocked(id, b)
		switch b.kind {
		case conn.KindMetadata:
			mask |= ChangeMetadata
		case conn.KindProfiler:
			mask |= ChangeProfiler
		}
	}
	m.mu.Unlock()

	m.notifier.Notify(mask)
}

// ---------------------------------------------------------------------------
// Parameter, metadata and profiler events (loop goroutine)

func (m *Mirror) onNodeParam(id, paramID uint32, data []byte) {
	if paramID != pod.ParamProps {
		return
	}
	u, err := pod.DecodeProps(data)
	if err != nil {
		m.logger.Debug("undecodable props event", "node", id, "error", err)
		return
	}
	if !u.HasMute && !u.HasVolume && !u.HasChannelVolumes {
		return
	}

	m.mu.Lock()
	if _, ok := m.nodes[id]; !ok {
		// Event raced a removal; controls exist only for live nodes.
		m.mu.Unlock()
		return
	}
	c, ok := m.controls[id]
	if !ok {
		c = &NodeControls{}
		m.controls[id] = c
	}
	applyUpdate(c, u)
	m.mu.Unlock()

	m.notifier.Notify(ChangeNodeControls)
}

// applyUpdate merges a decoded parameter event into cached controls. Fields
// absent from the event keep their previous values; a scalar-only update
// rescales cached channel volumes instead of discarding them.
func applyUpdate(c *NodeControls, u pod.PropUpdate) {
	if u.HasMute {
		c.Mute = u.Mute
		c.HasMute = true
	}
	switch {
	case u.HasChannelVolumes:
		ch := make([]float32, len(u.ChannelVolumes))
		for i, v := range u.ChannelVolumes {
			ch[i] = pod.ClampVolume(v)
		}
		c.ChannelVolumes = ch
		c.Volume = pod.MeanVolume(ch)
		c.HasVolume = true
		if u.HasVolume {
			c.lastScalar = pod.ClampVolume(u.Volume)
			c.hasLastScalar = true
		}
	case u.HasVolume:
		scalar := pod.ClampVolume(u.Volume)
		if len(c.ChannelVolumes) > 0 {
			// The rescale base is the scalar the server last reported,
			// not the mean; with no reported scalar the first cached
			// channel stands in.
			base := c.lastScalar
			if !c.hasLastScalar {
				base = c.ChannelVolumes[0]
			}
			c.ChannelVolumes = pod.RescaleChannels(c.ChannelVolumes, base, scalar)
			c.Volume = pod.MeanVolume(c.ChannelVolumes)
		} else {
			c.Volume = scalar
		}
		c.lastScalar = scalar
		c.hasLastScalar = true
		c.HasVolume = true
	}
}

func (m *Mirror) onMetadataProperty(id, subject uint32, key, typ, value string) {
	_ = subject
	_ = typ

	m.mu.Lock()
	props, ok := m.metaProps[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	if value == "" {
		delete(props, key)
	} else {
		props[key] = value
	}
	if id == m.settingsMetaID && strings.HasPrefix(key, "clock.") {
		m.recomputeClockLocked()
	}
	m.mu.Unlock()

	m.notifier.Notify(ChangeMetadata)
}

func (m *Mirror) onProfile(data []byte) {
	p, err := pod.DecodeProfile(data)
	if err != nil {
		m.logger.Debug("undecodable profile event", "error", err)
		return
	}

	m.mu.Lock()
	m.profiler = snapshotFromProfile(p, m.profiler.Seq+1)
	m.mu.Unlock()

	m.notifier.Notify(ChangeProfiler)
}

func snapshotFromProfile(p pod.Profile, seq uint64) ProfilerSnapshot {
	s := ProfilerSnapshot{
		Seq:                 seq,
		HasInfo:             p.HasInfo,
		CPULoadFast:         p.CPULoadFast,
		CPULoadMedium:       p.CPULoadMedium,
		CPULoadSlow:         p.CPULoadSlow,
		XRunCount:           p.XRunCount,
		HasClock:            p.HasClock,
		ClockDurationMs:     p.ClockDurationMs,
		ClockDelayMs:        p.ClockDelayMs,
		ClockXRunDurationMs: p.ClockXRunDurationMs,
		ClockCycle:          p.ClockCycle,
	}
	for _, b := range p.Drivers {
		s.Drivers = append(s.Drivers, blockFromPod(b))
	}
	for _, b := range p.Followers {
		s.Followers = append(s.Followers, blockFromPod(b))
	}
	return s
}

func blockFromPod(b pod.Block) ProfilerBlock {
	return ProfilerBlock{
		ID:         b.ID,
		Name:       b.Name,
		Status:     b.Status,
		XRunCount:  b.XRunCount,
		HasLatency: b.HasLatency,
		LatencyMs:  b.LatencyMs,
		HasWait:    b.HasWait,
		WaitMs:     b.WaitMs,
		WaitRatio:  b.WaitRatio,
		HasBusy:    b.HasBusy,
		BusyMs:     b.BusyMs,
		BusyRatio:  b.BusyRatio,
	}
}

// ---------------------------------------------------------------------------
// Read API (any goroutine)

// Nodes returns a snapshot of all nodes ordered by id.
func (m *Mirror) Nodes() []NodeInfo {
	m.mu.RLock()
	out := make([]NodeInfo, 0, len(m.nodes))
	for _, n := range m.nodes {
		out = append(out, n.clone())
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Ports returns a snapshot of all ports ordered by id.
func (m *Mirror) Ports() []PortInfo {
	m.mu.RLock()
	out := make([]PortInfo, 0, len(m.ports))
	for _, p := range m.ports {
		out = append(out, *p)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Links returns a snapshot of all links ordered by id.
func (m *Mirror) Links() []LinkInfo {
	m.mu.RLock()
	out := make([]LinkInfo, 0, len(m.links))
	for _, l := range m.links {
		out = append(out, *l)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Modules returns a snapshot of all modules ordered by id.
func (m *Mirror) Modules() []ModuleInfo {
	m.mu.RLock()
	out := make([]ModuleInfo, 0, len(m.modules))
	for _, mod := range m.modules {
		out = append(out, *mod)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// NodeByID returns a copy of one node. Absence is a normal outcome.
func (m *Mirror) NodeByID(id uint32) (NodeInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[id]
	if !ok {
		return NodeInfo{}, false
	}
	return n.clone(), true
}

// ControlsByID returns a copy of one node's controls. Absence means no
// parameter event has been observed yet, not zero volume.
func (m *Mirror) ControlsByID(id uint32) (NodeControls, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.controls[id]
	if !ok {
		return NodeControls{}, false
	}
	return c.clone(), true
}

// byRole collects nodes with the given role ordered by description,
// case-sensitive ascending. Consumers rely on this ordering for stable list
// display.
func (m *Mirror) byRole(role NodeRole) []NodeInfo {
	m.mu.RLock()
	var out []NodeInfo
	for _, n := range m.nodes {
		if n.Role == role {
			out = append(out, n.clone())
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Description != out[j].Description {
			return out[i].Description < out[j].Description
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// AudioSinks returns all Audio/Sink devices.
func (m *Mirror) AudioSinks() []NodeInfo { return m.byRole(RoleSink) }

// AudioSources returns all Audio/Source devices.
func (m *Mirror) AudioSources() []NodeInfo { return m.byRole(RoleSource) }

// AudioPlaybackStreams returns all application playback streams.
func (m *Mirror) AudioPlaybackStreams() []NodeInfo { return m.byRole(RolePlaybackStream) }

// AudioCaptureStreams returns all application capture streams.
func (m *Mirror) AudioCaptureStreams() []NodeInfo { return m.byRole(RoleCaptureStream) }

// HasDefaultDeviceSupport reports whether a metadata object currently serves
// the default-device role. When false, default-device mutators fail closed.
func (m *Mirror) HasDefaultDeviceSupport() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultMetaID != 0
}

// HasClockSettingsSupport reports whether the "settings" metadata object is
// bound.
func (m *Mirror) HasClockSettingsSupport() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settingsMetaID != 0
}

// HasProfilerSupport reports whether the profiler object is bound.
func (m *Mirror) HasProfilerSupport() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.profilerID != 0
}

// HasMidiBridge reports whether the server loaded a MIDI bridge module.
func (m *Mirror) HasMidiBridge() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, mod := range m.modules {
		if strings.Contains(mod.Name, midiBridgeModule) {
			return true
		}
	}
	return false
}

// DefaultAudioSinkID resolves the default sink, observed key before
// configured fallback.
func (m *Mirror) DefaultAudioSinkID() (uint32, bool) {
	return m.resolveDefault(MetaKeyDefaultSink, MetaKeyConfiguredSink)
}

// DefaultAudioSourceID resolves the default source, observed key before
// configured fallback.
func (m *Mirror) DefaultAudioSourceID() (uint32, bool) {
	return m.resolveDefault(MetaKeyDefaultSource, MetaKeyConfiguredSource)
}

func (m *Mirror) resolveDefault(keys ...string) (uint32, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	props, ok := m.metaProps[m.defaultMetaID]
	if !ok {
		return 0, false
	}
	for _, key := range keys {
		if v, present := props[key]; present {
			if id, resolved := m.resolveNodeValueLocked(v); resolved {
				return id, true
			}
		}
	}
	return 0, false
}

// resolveNodeValueLocked turns a default-device metadata value into a node
// id. Values come in two observed forms: a JSON object naming the node, or
// a bare numeric id.
func (m *Mirror) resolveNodeValueLocked(value string) (uint32, bool) {
	var named struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal([]byte(value), &named); err == nil && named.Name != "" {
		for id, n := range m.nodes {
			if n.Name == named.Name {
				return id, true
			}
		}
		return 0, false
	}
	id, err := pod.ParseUint(value)
	if err != nil {
		return 0, false
	}
	return id, true
}

// ClockSettings returns a copy of the mirrored clock configuration.
func (m *Mirror) ClockSettings() ClockSettings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.clock.clone()
}

// ProfilerSnapshot returns the latest snapshot; ok is false until the first
// profiler event arrives.
func (m *Mirror) ProfilerSnapshot() (ProfilerSnapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.profiler.Seq == 0 {
		return ProfilerSnapshot{}, false
	}
	return m.profiler.clone(), true
}

// recomputeClockLocked rebuilds the clock settings from the settings-role
// metadata properties.
func (m *Mirror) recomputeClockLocked() {
	m.clock = ClockSettings{}
	props, ok := m.metaProps[m.settingsMetaID]
	if !ok {
		return
	}
	if v, err := pod.ParseUint(props[MetaKeyClockRate]); err == nil {
		m.clock.Rate = v
	}
	if rates, err := pod.ParseRateList(props[MetaKeyClockAllowedRates]); err == nil {
		m.clock.AllowedRates = rates
	}
	if v, err := pod.ParseUint(props[MetaKeyClockQuantum]); err == nil {
		m.clock.Quantum = v
	}
	if v, err := pod.ParseUint(props[MetaKeyClockMinQuantum]); err == nil {
		m.clock.MinQuantum = v
	}
	if v, err := pod.ParseUint(props[MetaKeyClockMaxQuantum]); err == nil {
		m.clock.MaxQuantum = v
	}
	if v, err := pod.ParseUint(props[MetaKeyClockForceRate]); err == nil {
		m.clock.ForceRate = v
	}
	if v, err := pod.ParseUint(props[MetaKeyClockForceQuantum]); err == nil {
		m.clock.ForceQuantum = v
	}
}
