package control

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/pepperpepperpepper/pipegraph/internal/conn"
	"github.com/pepperpepperpepper/pipegraph/internal/graph"
	"github.com/pepperpepperpepper/pipegraph/internal/pod"
)

// Logger is the minimal logging interface the package depends on.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

const (
	// Default-device writes settle asynchronously; the server may move the
	// observed key several events after the configured write lands.
	defaultRetryBudget   = 2 * time.Second
	defaultRetryInterval = 100 * time.Millisecond

	fallbackChannels = 2

	metaTypeJSON = "Spa:String:JSON"
)

// Ops applies control changes through the mirror's live bindings.
type Ops struct {
	conn   conn.Conn
	mirror *graph.Mirror
	logger Logger

	retryBudget   time.Duration
	retryInterval time.Duration
}

// New wires a control surface over an established mirror.
func New(c conn.Conn, m *graph.Mirror) *Ops {
	return &Ops{
		conn:          c,
		mirror:        m,
		logger:        noopLogger{},
		retryBudget:   defaultRetryBudget,
		retryInterval: defaultRetryInterval,
	}
}

// SetLogger replaces the package logger. Not safe to call concurrently
// with operations in flight.
func (o *Ops) SetLogger(logger Logger) {
	if logger != nil {
		o.logger = logger
	}
}

// SetRetryBounds overrides the default-device retry window, mainly so
// tests do not wait out the full budget.
func (o *Ops) SetRetryBounds(budget, interval time.Duration) {
	if budget > 0 {
		o.retryBudget = budget
	}
	if interval > 0 {
		o.retryInterval = interval
	}
}

// SetNodeVolume writes a clamped volume to a node. The write carries the
// full channel array when a channel count is known; nodes that only accept
// a scalar reject the array and get the scalar form instead. The known mute
// flag rides along so the server does not reinterpret the write as an
// unmute.
func (o *Ops) SetNodeVolume(id uint32, volume float32) bool {
	volume = pod.ClampVolume(volume)
	multi, scalar := o.volumeWrites(id, volume)

	ok := o.mirror.UseNodeBinding(id, func(h conn.NodeHandle) error {
		err := h.SetParam(pod.ParamProps, pod.EncodeProps(multi))
		if errors.Is(err, conn.ErrRejected) {
			o.logger.Debug("channel volumes rejected, retrying scalar", "node", id)
			err = h.SetParam(pod.ParamProps, pod.EncodeProps(scalar))
		}
		return err
	})
	if !ok {
		o.logger.Debug("volume write failed", "node", id, "volume", volume)
	}
	return ok
}

// volumeWrites assembles the two forms of a volume write: the channel
// array sized to the node's width, and the scalar fallback. The cached
// mute flag rides along in both so the server does not reinterpret the
// write as an unmute.
func (o *Ops) volumeWrites(id uint32, volume float32) (multi, scalar pod.PropUpdate) {
	arr := make([]float32, o.channelCount(id))
	for i := range arr {
		arr[i] = volume
	}

	if c, ok := o.mirror.ControlsByID(id); ok && c.HasMute {
		multi.HasMute = true
		multi.Mute = c.Mute
	}
	scalar = multi
	multi.HasChannelVolumes = true
	multi.ChannelVolumes = arr
	scalar.HasVolume = true
	scalar.Volume = volume
	return multi, scalar
}

// SetNodeMute writes the mute flag. The known volume representation rides
// along so the server does not reinterpret the write as a volume reset.
func (o *Ops) SetNodeMute(id uint32, mute bool) bool {
	u := pod.PropUpdate{HasMute: true, Mute: mute}
	if c, ok := o.mirror.ControlsByID(id); ok && c.HasVolume {
		if len(c.ChannelVolumes) > 0 {
			u.HasChannelVolumes = true
			u.ChannelVolumes = c.ChannelVolumes
		} else {
			u.HasVolume = true
			u.Volume = c.Volume
		}
	}

	ok := o.mirror.UseNodeBinding(id, func(h conn.NodeHandle) error {
		return h.SetParam(pod.ParamProps, pod.EncodeProps(u))
	})
	if !ok {
		o.logger.Debug("mute write failed", "node", id, "mute", mute)
	}
	return ok
}

// channelCount picks the channel width for a volume write: observed
// channel array first, then the node's declared count, then stereo.
func (o *Ops) channelCount(id uint32) int {
	if c, ok := o.mirror.ControlsByID(id); ok && len(c.ChannelVolumes) > 0 {
		return len(c.ChannelVolumes)
	}
	if n, ok := o.mirror.NodeByID(id); ok && n.AudioChannels > 0 {
		return n.AudioChannels
	}
	return fallbackChannels
}

// CreateLink asks the server for a lingering link between two ports. A
// lingering link stays up after this client disconnects.
func (o *Ops) CreateLink(outputNode, outputPort, inputNode, inputPort uint32) bool {
	ok := o.conn.CreateLink(outputNode, outputPort, inputNode, inputPort)
	if ok {
		o.logger.Info("link created",
			"output_node", outputNode, "output_port", outputPort,
			"input_node", inputNode, "input_port", inputPort)
	}
	return ok
}

// DestroyLink removes a mirrored link by id. Ids that do not name a link
// are refused rather than passed through.
func (o *Ops) DestroyLink(id uint32) bool {
	found := false
	for _, l := range o.mirror.Links() {
		if l.ID == id {
			found = true
			break
		}
	}
	if !found {
		return false
	}
	return o.conn.DestroyGlobal(id)
}

// SetDefaultAudioSink makes the node the default sink. Fails closed when
// no metadata object provides default-device support.
func (o *Ops) SetDefaultAudioSink(id uint32) bool {
	return o.setDefault(id, graph.MetaKeyDefaultSink, graph.MetaKeyConfiguredSink,
		o.mirror.DefaultAudioSinkID)
}

// SetDefaultAudioSource makes the node the default source.
func (o *Ops) SetDefaultAudioSource(id uint32) bool {
	return o.setDefault(id, graph.MetaKeyDefaultSource, graph.MetaKeyConfiguredSource,
		o.mirror.DefaultAudioSourceID)
}

// setDefault writes the observed and configured keys, then polls the
// mirror until the change is reflected or the retry budget runs out. The
// sleep between attempts yields to event processing; the server may take
// several cycles to re-evaluate the default.
func (o *Ops) setDefault(id uint32, observedKey, configuredKey string, current func() (uint32, bool)) bool {
	if !o.mirror.HasDefaultDeviceSupport() {
		o.logger.Warn("default-device write refused, no metadata support", "node", id)
		return false
	}
	n, ok := o.mirror.NodeByID(id)
	if !ok || n.Name == "" {
		return false
	}

	value, err := json.Marshal(struct {
		Name string `json:"name"`
	}{Name: n.Name})
	if err != nil {
		return false
	}

	deadline := time.Now().Add(o.retryBudget)
	for {
		wrote := o.mirror.UseDefaultMetadata(func(h conn.MetadataHandle) error {
			if err := h.SetProperty(0, observedKey, metaTypeJSON, string(value)); err != nil {
				return err
			}
			return h.SetProperty(0, configuredKey, metaTypeJSON, string(value))
		})
		if wrote {
			if got, ok := current(); ok && got == id {
				o.logger.Info("default device set", "node", id, "key", observedKey)
				return true
			}
		}
		if time.Now().After(deadline) {
			o.logger.Warn("default device did not settle", "node", id, "key", observedKey)
			return false
		}
		time.Sleep(o.retryInterval)
	}
}

// SetClockForceRate forces the graph sample rate; nil releases the force.
func (o *Ops) SetClockForceRate(rate *uint32) bool {
	return o.writeClock(graph.MetaKeyClockForceRate, rate)
}

// SetClockForceQuantum forces the graph quantum; nil releases the force.
func (o *Ops) SetClockForceQuantum(quantum *uint32) bool {
	return o.writeClock(graph.MetaKeyClockForceQuantum, quantum)
}

// SetClockMinQuantum sets the lower quantum bound; nil clears it.
func (o *Ops) SetClockMinQuantum(quantum *uint32) bool {
	return o.writeClock(graph.MetaKeyClockMinQuantum, quantum)
}

// SetClockMaxQuantum sets the upper quantum bound; nil clears it.
func (o *Ops) SetClockMaxQuantum(quantum *uint32) bool {
	return o.writeClock(graph.MetaKeyClockMaxQuantum, quantum)
}

func (o *Ops) writeClock(key string, value *uint32) bool {
	if !o.mirror.HasClockSettingsSupport() {
		o.logger.Warn("clock write refused, no settings metadata", "key", key)
		return false
	}
	return o.mirror.UseSettingsMetadata(func(h conn.MetadataHandle) error {
		if value == nil {
			return h.SetProperty(0, key, "", "")
		}
		return h.SetProperty(0, key, "", pod.FormatUint(*value))
	})
}
