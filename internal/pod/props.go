package pod

import "fmt"

// PropUpdate is the decoded content of one Props parameter event. Has* flags
// report which fields the event actually carried; absent fields must not
// disturb previously known state when the update is applied.
type PropUpdate struct {
	HasMute bool
	Mute    bool

	HasVolume bool
	Volume    float32

	HasChannelVolumes bool
	ChannelVolumes    []float32
}

// Volume bounds for all control writes and decoded channel rescaling.
const (
	VolumeMin float32 = 0.0
	VolumeMax float32 = 2.0
)

// ClampVolume limits v to the accepted control range.
func ClampVolume(v float32) float32 {
	if v < VolumeMin {
		return VolumeMin
	}
	if v > VolumeMax {
		return VolumeMax
	}
	return v
}

// DecodeProps parses a Props object blob into a PropUpdate. Properties other
// than mute, volume and channelVolumes are ignored. Properties whose value
// has an unexpected type are skipped rather than failing the whole event.
func DecodeProps(data []byte) (PropUpdate, error) {
	var u PropUpdate

	v, err := Parse(data)
	if err != nil {
		return u, err
	}
	objType, _, props, err := v.Object()
	if err != nil {
		return u, fmt.Errorf("%w: got %s", ErrNotProps, typeName(v.Type))
	}
	if objType != ObjectProps {
		return u, ErrNotProps
	}

	for _, p := range props {
		switch p.Key {
		case PropMute:
			if m, err := p.Value.Bool(); err == nil {
				u.HasMute = true
				u.Mute = m
			}
		case PropVolume:
			if f, err := p.Value.Float(); err == nil {
				u.HasVolume = true
				u.Volume = f
			}
		case PropChannelVolumes:
			if vols, err := p.Value.FloatArray(); err == nil {
				u.HasChannelVolumes = true
				u.ChannelVolumes = vols
			}
		}
	}
	return u, nil
}

// EncodeProps builds a Props object blob from an update. Only fields with
// their Has* flag set are emitted, in a fixed key order.
func EncodeProps(u PropUpdate) []byte {
	var props [][]byte
	if u.HasVolume {
		props = append(props, propEntry(PropVolume, floatPod(u.Volume)))
	}
	if u.HasChannelVolumes {
		props = append(props, propEntry(PropChannelVolumes, floatArrayPod(u.ChannelVolumes)))
	}
	if u.HasMute {
		props = append(props, propEntry(PropMute, boolPod(u.Mute)))
	}
	return objectPod(ObjectProps, ParamProps, props...)
}

// RescaleChannels redistributes a scalar-only volume update across cached
// per-channel volumes, preserving the channel balance. Each channel is scaled
// by newScalar/oldScalar and clamped; when the old scalar is effectively
// zero there is no balance to preserve and every channel becomes the new
// scalar.
func RescaleChannels(channels []float32, oldScalar, newScalar float32) []float32 {
	out := make([]float32, len(channels))
	if oldScalar < 1e-6 {
		v := ClampVolume(newScalar)
		for i := range out {
			out[i] = v
		}
		return out
	}
	ratio := newScalar / oldScalar
	for i, c := range channels {
		out[i] = ClampVolume(c * ratio)
	}
	return out
}

// MeanVolume is the scalar mirror of a channel volume set.
func MeanVolume(channels []float32) float32 {
	if len(channels) == 0 {
		return 0
	}
	var sum float32
	for _, c := range channels {
		sum += c
	}
	return sum / float32(len(channels))
}
