package pod

// Profile is one decoded performance-profile event.
type Profile struct {
	HasInfo       bool
	Counter       int64
	CPULoadFast   float32
	CPULoadMedium float32
	CPULoadSlow   float32
	XRunCount     int32

	HasClock            bool
	ClockDurationMs     float64
	ClockDelayMs        float64
	ClockXRunDurationMs float64
	ClockCycle          int64

	Drivers   []Block
	Followers []Block
}

// Block is one driver or follower timing entry within a profile event.
// Wait/busy durations and ratios are derived from the signal/awake/finish
// timestamp triple against the previous cycle's signal; they are left unset
// when the period is not positive or the derived duration is negative.
type Block struct {
	ID        int32
	Name      string
	Status    int32
	XRunCount int32

	HasLatency bool
	LatencyMs  float64

	HasWait   bool
	WaitMs    float64
	WaitRatio float64

	HasBusy   bool
	BusyMs    float64
	BusyRatio float64
}

const nsPerMs = 1e6

// DecodeProfile parses a Profiler object blob.
func DecodeProfile(data []byte) (Profile, error) {
	var p Profile

	v, err := Parse(data)
	if err != nil {
		return p, err
	}
	objType, _, props, err := v.Object()
	if err != nil || objType != ObjectProfiler {
		return p, ErrNotProfiler
	}

	for _, prop := range props {
		switch prop.Key {
		case ProfilerInfo:
			decodeInfo(&p, prop.Value)
		case ProfilerClock:
			decodeClock(&p, prop.Value)
		case ProfilerDriverBlock:
			if b, ok := decodeBlock(prop.Value); ok {
				p.Drivers = append(p.Drivers, b)
			}
		case ProfilerFollowerBlock:
			if b, ok := decodeBlock(prop.Value); ok {
				p.Followers = append(p.Followers, b)
			}
		}
	}
	return p, nil
}

// decodeInfo handles the two observed layouts of the info property.
//
// Shape A (flat):   Struct(Long counter, Float fast, Float medium, Float slow,
// Int xruns). Shape B (nested): Struct(Struct(Long counter, Float fast,
// Float medium, Float slow), Int xruns). Shape A is tried first; no version
// discriminator exists on the wire, so the order is fixed.
func decodeInfo(p *Profile, v Value) {
	fields, err := v.StructFields()
	if err != nil || len(fields) == 0 {
		return
	}

	if counter, err := fields[0].Long(); err == nil {
		// Shape A.
		if len(fields) < 5 {
			return
		}
		fast, e1 := fields[1].Float()
		medium, e2 := fields[2].Float()
		slow, e3 := fields[3].Float()
		xruns, e4 := fields[4].Int()
		if e1 != nil || e2 != nil || e3 != nil || e4 != nil {
			return
		}
		p.HasInfo = true
		p.Counter = counter
		p.CPULoadFast, p.CPULoadMedium, p.CPULoadSlow = fast, medium, slow
		p.XRunCount = xruns
		return
	}

	// Shape B: nested struct followed by the xrun count.
	inner, err := fields[0].StructFields()
	if err != nil || len(inner) < 4 || len(fields) < 2 {
		return
	}
	counter, e0 := inner[0].Long()
	fast, e1 := inner[1].Float()
	medium, e2 := inner[2].Float()
	slow, e3 := inner[3].Float()
	xruns, e4 := fields[1].Int()
	if e0 != nil || e1 != nil || e2 != nil || e3 != nil || e4 != nil {
		return
	}
	p.HasInfo = true
	p.Counter = counter
	p.CPULoadFast, p.CPULoadMedium, p.CPULoadSlow = fast, medium, slow
	p.XRunCount = xruns
}

// decodeClock extracts the cycle timing fields. Layout:
//
//	Struct(Int flags, Int id, String name, Long nsec, Fraction rate,
//	       Long position, Long duration, Long delay, Double rateDiff,
//	       Long nextNsec, Int transportState, Long cycle, Long xrunDuration)
//
// duration and delay are frame counts at the given rate fraction;
// xrunDuration is carried in microseconds.
func decodeClock(p *Profile, v Value) {
	fields, err := v.StructFields()
	if err != nil || len(fields) < 13 {
		return
	}
	rateNum, rateDenom, err := fields[4].Fraction()
	if err != nil || rateDenom == 0 {
		return
	}
	duration, e1 := fields[6].Long()
	delay, e2 := fields[7].Long()
	cycle, e3 := fields[11].Long()
	xrunDur, e4 := fields[12].Long()
	if e1 != nil || e2 != nil || e3 != nil || e4 != nil {
		return
	}

	scale := 1000.0 * float64(rateNum) / float64(rateDenom)
	p.HasClock = true
	p.ClockDurationMs = float64(duration) * scale
	p.ClockDelayMs = float64(delay) * scale
	p.ClockXRunDurationMs = float64(xrunDur) / 1000.0
	p.ClockCycle = cycle
}

// decodeBlock extracts one driver/follower entry. Layout:
//
//	Struct(Int id, String name, Long prevSignal, Long signal, Long awake,
//	       Long finish, Int status, Fraction latency, Int xrunCount)
//
// Timestamps are nanoseconds.
func decodeBlock(v Value) (Block, bool) {
	fields, err := v.StructFields()
	if err != nil || len(fields) < 9 {
		return Block{}, false
	}

	id, e0 := fields[0].Int()
	name, e1 := fields[1].String()
	prevSignal, e2 := fields[2].Long()
	signal, e3 := fields[3].Long()
	awake, e4 := fields[4].Long()
	finish, e5 := fields[5].Long()
	status, e6 := fields[6].Int()
	latNum, latDenom, e7 := fields[7].Fraction()
	xruns, e8 := fields[8].Int()
	for _, e := range []error{e0, e1, e2, e3, e4, e5, e6, e7, e8} {
		if e != nil {
			return Block{}, false
		}
	}

	b := Block{ID: id, Name: name, Status: status, XRunCount: xruns}
	if latDenom != 0 {
		b.HasLatency = true
		b.LatencyMs = 1000.0 * float64(latNum) / float64(latDenom)
	}

	period := signal - prevSignal
	if period > 0 {
		if wait := awake - signal; wait >= 0 {
			b.HasWait = true
			b.WaitMs = float64(wait) / nsPerMs
			b.WaitRatio = float64(wait) / float64(period)
		}
		if busy := finish - awake; busy >= 0 {
			b.HasBusy = true
			b.BusyMs = float64(busy) / nsPerMs
			b.BusyRatio = float64(busy) / float64(period)
		}
	}
	return b, true
}

// ---------------------------------------------------------------------------
// Encoding. Used by the simulated server and round-trip tests; a production
// deployment only ever decodes profile events.

// ProfileSource is the raw material for an encoded profile event.
type ProfileSource struct {
	Counter       int64
	CPULoadFast   float32
	CPULoadMedium float32
	CPULoadSlow   float32
	XRunCount     int32
	NestedInfo    bool // emit the nested info shape instead of the flat one

	HasClock     bool
	RateNum      uint32
	RateDenom    uint32
	Duration     int64
	Delay        int64
	Cycle        int64
	XRunDuration int64 // microseconds

	Drivers   []BlockSource
	Followers []BlockSource
}

// BlockSource is the raw material for one encoded timing block.
type BlockSource struct {
	ID         int32
	Name       string
	PrevSignal int64
	Signal     int64
	Awake      int64
	Finish     int64
	Status     int32
	LatNum     uint32
	LatDenom   uint32
	XRunCount  int32
}

// EncodeProfile builds a Profiler object blob.
func EncodeProfile(src ProfileSource) []byte {
	var props [][]byte

	var info []byte
	if src.NestedInfo {
		info = structPod(
			structPod(longPod(src.Counter), floatPod(src.CPULoadFast),
				floatPod(src.CPULoadMedium), floatPod(src.CPULoadSlow)),
			intPod(src.XRunCount),
		)
	} else {
		info = structPod(longPod(src.Counter), floatPod(src.CPULoadFast),
			floatPod(src.CPULoadMedium), floatPod(src.CPULoadSlow),
			intPod(src.XRunCount))
	}
	props = append(props, propEntry(ProfilerInfo, info))

	if src.HasClock {
		clock := structPod(
			intPod(0), intPod(0), stringPod("clock"), longPod(0),
			fractionPod(src.RateNum, src.RateDenom),
			longPod(0), longPod(src.Duration), longPod(src.Delay),
			doublePod(1.0), longPod(0), intPod(0),
			longPod(src.Cycle), longPod(src.XRunDuration),
		)
		props = append(props, propEntry(ProfilerClock, clock))
	}

	for _, d := range src.Drivers {
		props = append(props, propEntry(ProfilerDriverBlock, encodeBlock(d)))
	}
	for _, f := range src.Followers {
		props = append(props, propEntry(ProfilerFollowerBlock, encodeBlock(f)))
	}
	return objectPod(ObjectProfiler, 0, props...)
}

func encodeBlock(b BlockSource) []byte {
	return structPod(
		intPod(b.ID), stringPod(b.Name),
		longPod(b.PrevSignal), longPod(b.Signal), longPod(b.Awake), longPod(b.Finish),
		intPod(b.Status), fractionPod(b.LatNum, b.LatDenom), intPod(b.XRunCount),
	)
}
