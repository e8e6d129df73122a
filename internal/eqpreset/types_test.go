package eqpreset

import (
	"encoding/json"
	"errors"
	"testing"
)

func validPreset() *Preset {
	return &Preset{
		Enabled:  true,
		PreampDB: -3.5,
		Bands: []Band{
			{Enabled: true, Type: BandLowShelf, FreqHz: 80, Q: 0.707, GainDB: 4},
			{Enabled: true, Type: BandPeaking, FreqHz: 2500, Q: 1.4, GainDB: -6},
			{Enabled: false, Type: BandHighShelf, FreqHz: 10000, Q: 0.707, GainDB: 2},
		},
	}
}

func TestPresetValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Preset)
		wantErr error
	}{
		{
			name:   "valid preset",
			mutate: func(p *Preset) {},
		},
		{
			name:   "disabled preset still validates",
			mutate: func(p *Preset) { p.Enabled = false },
		},
		{
			name:   "empty band list",
			mutate: func(p *Preset) { p.Bands = nil },
		},
		{
			name:    "preamp too hot",
			mutate:  func(p *Preset) { p.PreampDB = 41 },
			wantErr: ErrInvalidPreset,
		},
		{
			name:    "unknown band type",
			mutate:  func(p *Preset) { p.Bands[0].Type = "allpass" },
			wantErr: ErrInvalidBandType,
		},
		{
			name:    "frequency above audio range",
			mutate:  func(p *Preset) { p.Bands[1].FreqHz = 48000 },
			wantErr: ErrInvalidPreset,
		},
		{
			name:    "zero frequency",
			mutate:  func(p *Preset) { p.Bands[1].FreqHz = 0 },
			wantErr: ErrInvalidPreset,
		},
		{
			name:    "negative q",
			mutate:  func(p *Preset) { p.Bands[2].Q = -1 },
			wantErr: ErrInvalidPreset,
		},
		{
			name:    "gain out of range",
			mutate:  func(p *Preset) { p.Bands[0].GainDB = -50 },
			wantErr: ErrInvalidPreset,
		},
		{
			name: "too many bands",
			mutate: func(p *Preset) {
				p.Bands = make([]Band, maxBands+1)
				for i := range p.Bands {
					p.Bands[i] = Band{Type: BandPeaking, FreqHz: 1000, Q: 1, GainDB: 0}
				}
			},
			wantErr: ErrInvalidPreset,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPreset()
			tt.mutate(p)
			err := p.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPresetJSONShape(t *testing.T) {
	body, err := json.Marshal(validPreset())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	for _, key := range []string{"enabled", "preampDb", "bands"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("missing top-level key %q", key)
		}
	}

	bands, ok := raw["bands"].([]any)
	if !ok || len(bands) == 0 {
		t.Fatalf("bands = %v", raw["bands"])
	}
	band, ok := bands[0].(map[string]any)
	if !ok {
		t.Fatalf("band = %v", bands[0])
	}
	for _, key := range []string{"enabled", "type", "freqHz", "q", "gainDb"} {
		if _, ok := band[key]; !ok {
			t.Errorf("missing band key %q", key)
		}
	}
}

func TestValidateTarget(t *testing.T) {
	if err := validateTarget("alsa_output.pci-0000_00_1f.3.analog-stereo"); err != nil {
		t.Errorf("valid target rejected: %v", err)
	}
	if err := validateTarget(""); !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("empty target error = %v", err)
	}
	long := make([]byte, maxTargetLength+1)
	for i := range long {
		long[i] = 'a'
	}
	if err := validateTarget(string(long)); !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("oversized target error = %v", err)
	}
}
