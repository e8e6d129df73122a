package conn

import (
	"strconv"

	"github.com/pepperpepperpepper/pipegraph/internal/pod"
)

// Sim is an in-process simulated audio server implementing Conn.
//
// It keeps the same contract as a real transport: registry events fan out on
// the loop goroutine, parameter writes are echoed back as parameter events,
// metadata writes fan out to every bound listener, and object ids/serials
// are server-assigned. State is confined to the loop; the public driver
// methods (AddSinkNode, RemoveGlobal, EmitProfile, ...) may be called from
// any goroutine.
type Sim struct {
	loop *Loop

	// Everything below is touched only under the loop lock.
	nextID     uint32
	nextSerial uint64
	globals    map[uint32]*simGlobal
	listeners  []RegistryListener
	closed     bool
}

type simGlobal struct {
	global Global
	node   *simNode
	meta   *simMeta
	prof   *simProf
}

type simNode struct {
	channels       int
	scalarOnly     bool
	mute           bool
	hasMute        bool
	scalarVolume   float32
	hasVolume      bool
	channelVolumes []float32
	subs           map[*simNodeHandle]func(paramID uint32, data []byte)
}

type simMeta struct {
	name  string
	props map[string]metaValue
	subs  map[*simMetaHandle]func(subject uint32, key, typ, value string)
}

type metaValue struct {
	typ   string
	value string
}

type simProf struct {
	subs map[*simProfHandle]func(data []byte)
}

// NewSim creates an empty simulated server with its own running loop.
func NewSim() *Sim {
	return &Sim{
		loop:    NewLoop(),
		nextID:  1,
		globals: make(map[uint32]*simGlobal),
	}
}

// Loop implements Conn.
func (s *Sim) Loop() *Loop { return s.loop }

// Close tears down all globals and stops the loop.
func (s *Sim) Close() {
	s.loop.Invoke(func() {
		s.closed = true
		s.globals = make(map[uint32]*simGlobal)
		s.listeners = nil
	})
	s.loop.Close()
}

// ---------------------------------------------------------------------------
// Registry

// AddRegistryListener implements Conn. The listener receives the current
// registry contents before any new events.
func (s *Sim) AddRegistryListener(l RegistryListener) {
	s.loop.Invoke(func() {
		if s.closed {
			return
		}
		s.listeners = append(s.listeners, l)
		for _, g := range s.globals {
			l.GlobalAdded(g.global)
		}
	})
}

// RemoveRegistryListener implements Conn.
func (s *Sim) RemoveRegistryListener(l RegistryListener) {
	s.loop.Invoke(func() {
		for i, cur := range s.listeners {
			if cur == l {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	})
}

// newGlobal registers a new object without announcing it. Loop-confined.
// Callers attach any kind-state (node/meta/prof) and then announce; a
// listener may bind from inside GlobalAdded, so the object must be fully
// formed before the fan-out.
func (s *Sim) newGlobal(kind GlobalKind, props map[string]string) *simGlobal {
	id := s.nextID
	s.nextID++
	s.nextSerial++

	if props == nil {
		props = make(map[string]string)
	}
	if _, ok := props[PropObjectSerial]; !ok {
		props[PropObjectSerial] = strconv.FormatUint(s.nextSerial, 10)
	}

	g := &simGlobal{global: Global{ID: id, Kind: kind, Props: props}}
	s.globals[id] = g
	return g
}

// announce fans a registered object out to listeners. Loop-confined.
func (s *Sim) announce(g *simGlobal) {
	for _, l := range s.listeners {
		l.GlobalAdded(g.global)
	}
}

// removeGlobal drops an object and announces the removal. Loop-confined.
func (s *Sim) removeGlobal(id uint32) bool {
	g, ok := s.globals[id]
	if !ok {
		return false
	}
	delete(s.globals, id)
	if g.node != nil {
		g.node.subs = nil
	}
	if g.meta != nil {
		g.meta.subs = nil
	}
	if g.prof != nil {
		g.prof.subs = nil
	}
	for _, l := range s.listeners {
		l.GlobalRemoved(id)
	}
	return true
}

// ---------------------------------------------------------------------------
// Driver surface (the "server side"; callable from any goroutine)

// AddNode announces a node global. channels is the node's declared channel
// count (audio.channels).
func (s *Sim) AddNode(props map[string]string, channels int) uint32 {
	var id uint32
	s.loop.Invoke(func() {
		if props == nil {
			props = make(map[string]string)
		}
		if channels > 0 {
			props[PropAudioChannels] = strconv.Itoa(channels)
		}
		g := s.newGlobal(KindNode, props)
		g.node = &simNode{
			channels: channels,
			subs:     make(map[*simNodeHandle]func(uint32, []byte)),
		}
		s.announce(g)
		id = g.global.ID
	})
	return id
}

// AddSinkNode announces an Audio/Sink device node.
func (s *Sim) AddSinkNode(name, description string, channels int) uint32 {
	return s.AddNode(map[string]string{
		PropNodeName:        name,
		PropNodeDescription: description,
		PropMediaClass:      "Audio/Sink",
	}, channels)
}

// AddSourceNode announces an Audio/Source device node.
func (s *Sim) AddSourceNode(name, description string, channels int) uint32 {
	return s.AddNode(map[string]string{
		PropNodeName:        name,
		PropNodeDescription: description,
		PropMediaClass:      "Audio/Source",
	}, channels)
}

// AddPlaybackStream announces a Stream/Output/Audio application node.
func (s *Sim) AddPlaybackStream(appName, description string, channels int) uint32 {
	return s.AddNode(map[string]string{
		PropNodeName:        appName,
		PropNodeDescription: description,
		PropMediaClass:      "Stream/Output/Audio",
		PropAppName:         appName,
	}, channels)
}

// AddCaptureStream announces a Stream/Input/Audio application node.
func (s *Sim) AddCaptureStream(appName, description string, channels int) uint32 {
	return s.AddNode(map[string]string{
		PropNodeName:        appName,
		PropNodeDescription: description,
		PropMediaClass:      "Stream/Input/Audio",
		PropAppName:         appName,
	}, channels)
}

// AddPort announces a port belonging to a node. direction is "in" or "out".
func (s *Sim) AddPort(nodeID uint32, name, direction, channel string) uint32 {
	var id uint32
	s.loop.Invoke(func() {
		g := s.newGlobal(KindPort, map[string]string{
			PropPortName:         name,
			PropPortDirection:    direction,
			PropPortAudioChannel: channel,
			PropPortMediaType:    "audio",
			PropPortFormatDSP:    "32 bit float mono audio",
			PropPortNodeID:       strconv.FormatUint(uint64(nodeID), 10),
		})
		s.announce(g)
		id = g.global.ID
	})
	return id
}

// AddModule announces a module global.
func (s *Sim) AddModule(name, description string) uint32 {
	var id uint32
	s.loop.Invoke(func() {
		g := s.newGlobal(KindModule, map[string]string{
			PropModuleName:        name,
			PropModuleDescription: description,
		})
		s.announce(g)
		id = g.global.ID
	})
	return id
}

// AddMetadata announces a metadata object with the given name.
func (s *Sim) AddMetadata(name string) uint32 {
	var id uint32
	s.loop.Invoke(func() {
		g := s.newGlobal(KindMetadata, map[string]string{PropMetadataName: name})
		g.meta = &simMeta{
			name:  name,
			props: make(map[string]metaValue),
			subs:  make(map[*simMetaHandle]func(uint32, string, string, string)),
		}
		s.announce(g)
		id = g.global.ID
	})
	return id
}

// AddProfiler announces the profiler object.
func (s *Sim) AddProfiler() uint32 {
	var id uint32
	s.loop.Invoke(func() {
		g := s.newGlobal(KindProfiler, nil)
		g.prof = &simProf{subs: make(map[*simProfHandle]func([]byte))}
		s.announce(g)
		id = g.global.ID
	})
	return id
}

// RemoveGlobal removes any object by id, as if the server dropped it.
func (s *Sim) RemoveGlobal(id uint32) bool {
	var ok bool
	s.loop.Invoke(func() { ok = s.removeGlobal(id) })
	return ok
}

// SetNodeScalarOnly marks a node as rejecting channel-volume writes, the
// way some server nodes only accept a scalar volume.
func (s *Sim) SetNodeScalarOnly(id uint32, scalarOnly bool) {
	s.loop.Invoke(func() {
		if g, ok := s.globals[id]; ok && g.node != nil {
			g.node.scalarOnly = scalarOnly
		}
	})
}

// PushNodeControls applies a server-side controls change and emits the
// resulting parameter event.
func (s *Sim) PushNodeControls(id uint32, u pod.PropUpdate) {
	s.loop.Invoke(func() {
		g, ok := s.globals[id]
		if !ok || g.node == nil {
			return
		}
		g.node.apply(u)
		s.emitNodeParam(g)
	})
}

// PushNodeScalarVolume applies a server-side scalar volume change and emits
// a parameter event carrying only the scalar field, the way some servers
// report single-value updates without the channel array.
func (s *Sim) PushNodeScalarVolume(id uint32, volume float32) {
	s.loop.Invoke(func() {
		g, ok := s.globals[id]
		if !ok || g.node == nil {
			return
		}
		g.node.apply(pod.PropUpdate{HasVolume: true, Volume: volume})
		u := pod.PropUpdate{HasVolume: true, Volume: g.node.scalarVolume}
		if g.node.hasMute {
			u.HasMute = true
			u.Mute = g.node.mute
		}
		data := pod.EncodeProps(u)
		for _, fn := range g.node.subs {
			fn(pod.ParamProps, data)
		}
	})
}

// SetMetadataProperty performs a server-side metadata write, fanning the
// change out to every bound listener. An empty value clears the key.
func (s *Sim) SetMetadataProperty(id, subject uint32, key, typ, value string) {
	s.loop.Invoke(func() {
		g, ok := s.globals[id]
		if !ok || g.meta == nil {
			return
		}
		g.meta.set(subject, key, typ, value)
	})
}

// EmitProfile encodes and delivers one profile event to profiler listeners.
func (s *Sim) EmitProfile(src pod.ProfileSource) {
	data := pod.EncodeProfile(src)
	s.loop.Invoke(func() {
		for _, g := range s.globals {
			if g.prof == nil {
				continue
			}
			for _, fn := range g.prof.subs {
				fn(data)
			}
		}
	})
}

// ---------------------------------------------------------------------------
// Node state

func (n *simNode) apply(u pod.PropUpdate) {
	if u.HasMute {
		n.mute = u.Mute
		n.hasMute = true
	}
	if u.HasChannelVolumes {
		n.channelVolumes = append([]float32(nil), u.ChannelVolumes...)
		n.scalarVolume = pod.MeanVolume(n.channelVolumes)
		n.hasVolume = true
	} else if u.HasVolume {
		// A scalar write keeps the channel balance, scaling each channel
		// by the ratio to the previous scalar.
		if len(n.channelVolumes) > 0 {
			n.channelVolumes = pod.RescaleChannels(n.channelVolumes, n.scalarVolume, u.Volume)
		}
		n.scalarVolume = u.Volume
		n.hasVolume = true
	}
}

// currentProps encodes the node's full controls state.
func (n *simNode) currentProps() []byte {
	u := pod.PropUpdate{
		HasMute: n.hasMute,
		Mute:    n.mute,
	}
	if n.hasVolume {
		u.HasVolume = true
		u.Volume = n.scalarVolume
		if len(n.channelVolumes) > 0 {
			u.HasChannelVolumes = true
			u.ChannelVolumes = append([]float32(nil), n.channelVolumes...)
		}
	}
	return pod.EncodeProps(u)
}

func (s *Sim) emitNodeParam(g *simGlobal) {
	data := g.node.currentProps()
	for _, fn := range g.node.subs {
		fn(pod.ParamProps, data)
	}
}

// ---------------------------------------------------------------------------
// Metadata state

func (m *simMeta) set(subject uint32, key, typ, value string) {
	if value == "" {
		delete(m.props, key)
	} else {
		m.props[key] = metaValue{typ: typ, value: value}
	}
	for _, fn := range m.subs {
		fn(subject, key, typ, value)
	}
}

// ---------------------------------------------------------------------------
// Bindings (loop-confined, per the Conn contract)

type simNodeHandle struct {
	s         *Sim
	id        uint32
	destroyed bool
}

type simMetaHandle struct {
	s         *Sim
	id        uint32
	destroyed bool
}

type simProfHandle struct {
	s         *Sim
	id        uint32
	destroyed bool
}

// BindNode implements Conn.
func (s *Sim) BindNode(id uint32, onParam func(paramID uint32, data []byte)) NodeHandle {
	g, ok := s.globals[id]
	if !ok || g.node == nil {
		return nil
	}
	h := &simNodeHandle{s: s, id: id}
	g.node.subs[h] = onParam
	return h
}

// BindMetadata implements Conn. Existing properties are replayed to the new
// listener immediately.
func (s *Sim) BindMetadata(id uint32, onProperty func(subject uint32, key, typ, value string)) MetadataHandle {
	g, ok := s.globals[id]
	if !ok || g.meta == nil {
		return nil
	}
	h := &simMetaHandle{s: s, id: id}
	g.meta.subs[h] = onProperty
	for key, mv := range g.meta.props {
		onProperty(0, key, mv.typ, mv.value)
	}
	return h
}

// BindProfiler implements Conn.
func (s *Sim) BindProfiler(id uint32, onProfile func(data []byte)) ProfilerHandle {
	g, ok := s.globals[id]
	if !ok || g.prof == nil {
		return nil
	}
	h := &simProfHandle{s: s, id: id}
	g.prof.subs[h] = onProfile
	return h
}

func (h *simNodeHandle) SetParam(paramID uint32, data []byte) error {
	if h.destroyed {
		return ErrGone
	}
	g, ok := h.s.globals[h.id]
	if !ok || g.node == nil {
		return ErrGone
	}
	if paramID != pod.ParamProps {
		return ErrRejected
	}
	u, err := pod.DecodeProps(data)
	if err != nil {
		return err
	}
	if u.HasChannelVolumes && g.node.scalarOnly {
		return ErrRejected
	}
	g.node.apply(u)
	h.s.emitNodeParam(g)
	return nil
}

func (h *simNodeHandle) EnumParams(paramID uint32) {
	if h.destroyed || paramID != pod.ParamProps {
		return
	}
	g, ok := h.s.globals[h.id]
	if !ok || g.node == nil {
		return
	}
	// Reply only to the requesting binding, like a param enum would.
	if fn, ok := g.node.subs[h]; ok {
		fn(pod.ParamProps, g.node.currentProps())
	}
}

func (h *simNodeHandle) Destroy() {
	if h.destroyed {
		return
	}
	h.destroyed = true
	if g, ok := h.s.globals[h.id]; ok && g.node != nil {
		delete(g.node.subs, h)
	}
}

func (h *simMetaHandle) SetProperty(subject uint32, key, typ, value string) error {
	if h.destroyed {
		return ErrGone
	}
	g, ok := h.s.globals[h.id]
	if !ok || g.meta == nil {
		return ErrGone
	}
	g.meta.set(subject, key, typ, value)
	return nil
}

func (h *simMetaHandle) Destroy() {
	if h.destroyed {
		return
	}
	h.destroyed = true
	if g, ok := h.s.globals[h.id]; ok && g.meta != nil {
		delete(g.meta.subs, h)
	}
}

func (h *simProfHandle) Destroy() {
	if h.destroyed {
		return
	}
	h.destroyed = true
	if g, ok := h.s.globals[h.id]; ok && g.prof != nil {
		delete(g.prof.subs, h)
	}
}

// ---------------------------------------------------------------------------
// Links

// CreateLink implements Conn. The simulated server accepts any link between
// existing objects and announces the new global.
func (s *Sim) CreateLink(outputNode, outputPort, inputNode, inputPort uint32) bool {
	var ok bool
	s.loop.Invoke(func() {
		if s.closed {
			return
		}
		if _, exists := s.globals[outputNode]; !exists {
			return
		}
		if _, exists := s.globals[inputNode]; !exists {
			return
		}
		s.announce(s.newGlobal(KindLink, map[string]string{
			PropLinkOutputNode: strconv.FormatUint(uint64(outputNode), 10),
			PropLinkOutputPort: strconv.FormatUint(uint64(outputPort), 10),
			PropLinkInputNode:  strconv.FormatUint(uint64(inputNode), 10),
			PropLinkInputPort:  strconv.FormatUint(uint64(inputPort), 10),
			PropObjectLinger:   "true",
		}))
		ok = true
	})
	return ok
}

// DestroyGlobal implements Conn.
func (s *Sim) DestroyGlobal(id uint32) bool {
	return s.RemoveGlobal(id)
}
