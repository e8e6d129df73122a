package eqpreset

import "fmt"

// BandType identifies the biquad filter shape of a band.
type BandType string

// Supported band types.
const (
	BandPeaking   BandType = "peaking"
	BandLowShelf  BandType = "lowshelf"
	BandHighShelf BandType = "highshelf"
	BandLowPass   BandType = "lowpass"
	BandHighPass  BandType = "highpass"
	BandNotch     BandType = "notch"
	BandBandPass  BandType = "bandpass"
)

// AllBandTypes returns every supported band type.
func AllBandTypes() []BandType {
	return []BandType{
		BandPeaking, BandLowShelf, BandHighShelf,
		BandLowPass, BandHighPass, BandNotch, BandBandPass,
	}
}

// Validation constants.
const (
	maxTargetLength = 256
	maxBands        = 32

	minFreqHz = 1.0
	maxFreqHz = 30000.0
	minQ      = 0.01
	maxQ      = 100.0
	minGainDB = -40.0
	maxGainDB = 40.0
)

// Pre-computed validation set for O(1) lookups.
var validBandTypes map[BandType]struct{}

func init() {
	validBandTypes = make(map[BandType]struct{}, len(AllBandTypes()))
	for _, bt := range AllBandTypes() {
		validBandTypes[bt] = struct{}{}
	}
}

// Band is one biquad stage of a preset's filter chain.
type Band struct {
	Enabled bool     `json:"enabled"`
	Type    BandType `json:"type"`
	FreqHz  float64  `json:"freqHz"`
	Q       float64  `json:"q"`
	GainDB  float64  `json:"gainDb"`
}

// Preset is a full equaliser configuration for one device or stream.
type Preset struct {
	Enabled  bool    `json:"enabled"`
	PreampDB float64 `json:"preampDb"`
	Bands    []Band  `json:"bands"`
}

// Validate checks a preset against the schema limits.
// A disabled preset is still validated in full so it can be re-enabled
// without re-editing.
func (p *Preset) Validate() error {
	if p.PreampDB < minGainDB || p.PreampDB > maxGainDB {
		return fmt.Errorf("%w: preampDb %.2f outside [%.0f, %.0f]", ErrInvalidPreset, p.PreampDB, minGainDB, maxGainDB)
	}
	if len(p.Bands) > maxBands {
		return fmt.Errorf("%w: %d bands exceeds maximum %d", ErrInvalidPreset, len(p.Bands), maxBands)
	}
	for i, b := range p.Bands {
		if _, ok := validBandTypes[b.Type]; !ok {
			return fmt.Errorf("%w: band %d type %q", ErrInvalidBandType, i, b.Type)
		}
		if b.FreqHz < minFreqHz || b.FreqHz > maxFreqHz {
			return fmt.Errorf("%w: band %d freqHz %.2f outside [%.0f, %.0f]", ErrInvalidPreset, i, b.FreqHz, minFreqHz, maxFreqHz)
		}
		if b.Q < minQ || b.Q > maxQ {
			return fmt.Errorf("%w: band %d q %.3f outside [%.2f, %.0f]", ErrInvalidPreset, i, b.Q, minQ, maxQ)
		}
		if b.GainDB < minGainDB || b.GainDB > maxGainDB {
			return fmt.Errorf("%w: band %d gainDb %.2f outside [%.0f, %.0f]", ErrInvalidPreset, i, b.GainDB, minGainDB, maxGainDB)
		}
	}
	return nil
}

// validateTarget checks a device/stream name used as a preset key.
func validateTarget(target string) error {
	if target == "" {
		return fmt.Errorf("%w: empty target", ErrInvalidTarget)
	}
	if len(target) > maxTargetLength {
		return fmt.Errorf("%w: target exceeds %d characters", ErrInvalidTarget, maxTargetLength)
	}
	return nil
}
