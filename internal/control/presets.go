package control

// ClockPreset is one entry in the fixed latency/quality table. A zero
// Rate or Quantum means "release the force" for that dimension.
type ClockPreset struct {
	ID          string
	Label       string
	Rate        uint32
	Quantum     uint32
	Description string
}

// clockPresets is ordered from "let the server decide" to the most
// aggressive fixed configurations.
var clockPresets = []ClockPreset{
	{ID: "auto", Label: "Automatic", Rate: 0, Quantum: 0,
		Description: "Release all forces; the server follows stream demands"},
	{ID: "ll-48k-64", Label: "Lowest latency", Rate: 48000, Quantum: 64,
		Description: "48 kHz, 64-frame quantum (~1.3 ms)"},
	{ID: "ll-48k-128", Label: "Low latency", Rate: 48000, Quantum: 128,
		Description: "48 kHz, 128-frame quantum (~2.7 ms)"},
	{ID: "balanced-48k-256", Label: "Balanced", Rate: 48000, Quantum: 256,
		Description: "48 kHz, 256-frame quantum (~5.3 ms)"},
	{ID: "stable-48k-512", Label: "Stable", Rate: 48000, Quantum: 512,
		Description: "48 kHz, 512-frame quantum (~10.7 ms)"},
	{ID: "hq-96k-256", Label: "High quality", Rate: 96000, Quantum: 256,
		Description: "96 kHz, 256-frame quantum (~2.7 ms)"},
}

// Presets returns the preset table in its fixed order. The table is
// static, so no connection is needed to list it.
func Presets() []ClockPreset {
	return append([]ClockPreset(nil), clockPresets...)
}

// ClockPresets returns the preset table in its fixed order.
func (o *Ops) ClockPresets() []ClockPreset {
	return Presets()
}

// ApplyClockPreset applies one preset by id. Both the rate and the quantum
// write must land for the apply to count as a success; a zero dimension
// releases the corresponding force.
func (o *Ops) ApplyClockPreset(id string) bool {
	var preset *ClockPreset
	for i := range clockPresets {
		if clockPresets[i].ID == id {
			preset = &clockPresets[i]
			break
		}
	}
	if preset == nil {
		o.logger.Debug("unknown clock preset", "preset", id)
		return false
	}

	rateOK := o.SetClockForceRate(forceValue(preset.Rate))
	quantumOK := o.SetClockForceQuantum(forceValue(preset.Quantum))
	if rateOK && quantumOK {
		o.logger.Info("clock preset applied", "preset", id,
			"rate", preset.Rate, "quantum", preset.Quantum)
		return true
	}
	return false
}

func forceValue(v uint32) *uint32 {
	if v == 0 {
		return nil
	}
	return &v
}
