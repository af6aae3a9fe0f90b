package gridseq

// StepsPerBeat fixes the grid resolution to sixteenth notes.
const StepsPerBeat = 4

// Tempo and swing limits. Values outside these ranges are clamped at the
// boundary, before they ever reach the pure timing math below.
const (
	MinTempo = 60
	MaxTempo = 300
)

type (
	// Transport holds the playback state of the engine: tempo, global swing,
	// the fixed time origin and the global step counter. All step times are
	// computed from StartTime, never by accumulating deltas, so the timeline
	// cannot drift no matter how long playback runs.
	Transport struct {
		TempoBPM    float64
		SwingAmount float64
		StartTime   float64 // audio-clock time of global step 0, in seconds
		Playing     bool
		GlobalStep  int
		Loop        *LoopRegion `yaml:",omitempty"`
	}

	// LoopRegion restricts the global step counter to [Start,End], both
	// inclusive. Start == End is a one-step loop that never advances.
	LoopRegion struct {
		Start int
		End   int
	}
)

func clampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// SetTempo sets the tempo, clamping it into [MinTempo,MaxTempo].
func (t *Transport) SetTempo(bpm float64) {
	t.TempoBPM = clampFloat(bpm, MinTempo, MaxTempo)
}

// SetSwing sets the global swing amount, clamped into [0,1].
func (t *Transport) SetSwing(amount float64) {
	t.SwingAmount = clampFloat(amount, 0, 1)
}

// SetLoop sets the loop region, clamping both ends into [0,MaxSteps) and
// swapping them if given in the wrong order. SetLoop(-1,-1) by convention is
// not used; call ClearLoop to remove the region.
func (t *Transport) SetLoop(start, end int) {
	if start > end {
		start, end = end, start
	}
	t.Loop = &LoopRegion{
		Start: clampInt(start, 0, MaxSteps-1),
		End:   clampInt(end, 0, MaxSteps-1),
	}
}

// ClearLoop removes the loop region.
func (t *Transport) ClearLoop() {
	t.Loop = nil
}

// StepDuration returns the duration of one step in seconds. Strictly positive
// and finite for all valid tempos, and monotonically decreasing in tempo.
func (t *Transport) StepDuration() float64 {
	return 60 / (t.TempoBPM * StepsPerBeat)
}

// StepTime returns the absolute time of the given global step slot. It is a
// pure function of the slot index and the fixed origin; consecutive slots are
// always exactly one StepDuration apart.
func (t *Transport) StepTime(slot int) float64 {
	return t.StartTime + float64(slot)*t.StepDuration()
}

// SlotAt returns the first global step slot whose StepTime is at or after the
// given time. Times before the origin map to slot 0.
func (t *Transport) SlotAt(time float64) int {
	d := t.StepDuration()
	if time <= t.StartTime {
		return 0
	}
	slot := int((time - t.StartTime) / d)
	for t.StepTime(slot) < time {
		slot++
	}
	return slot
}

// BlendSwing combines the global and per-track swing amounts. The blend
// g + t - g*t is commutative and stays within [0,1] even when both inputs are
// maxed, so stacking swings can never push a step past half a step late.
func BlendSwing(global, track float64) float64 {
	global = clampFloat(global, 0, 1)
	track = clampFloat(track, 0, 1)
	return global + track - global*track
}

// SwingDelay returns the delay added to the step at the given track-local
// index: zero for even steps, stepDuration*blended/2 for odd ones.
func SwingDelay(localStep int, blended, stepDuration float64) float64 {
	if localStep%2 == 0 {
		return 0
	}
	return stepDuration * blended * 0.5
}

// NextStep advances the global step counter by one, honoring the loop region:
// when at or past the region's end the counter returns to its start, and
// without a region the counter wraps at MaxSteps.
func (t *Transport) NextStep(step int) int {
	if t.Loop != nil {
		if step >= t.Loop.End {
			return t.Loop.Start
		}
		return step + 1
	}
	return (step + 1) % MaxSteps
}

// AdvanceSteps returns the global step position n steps after from, following
// the same chain as repeated NextStep calls but in constant time, so that
// schedulers and offline renders do not pay for long playback positions.
func (t *Transport) AdvanceSteps(from, n int) int {
	if n <= 0 {
		return from
	}
	if t.Loop == nil {
		return (from + n) % MaxSteps
	}
	start, end := t.Loop.Start, t.Loop.End
	length := end - start + 1
	if from < end {
		// counting up towards the region end first
		if d := end - from; n <= d {
			return from + n
		} else {
			n -= d + 1 // the step after reaching end lands on start
		}
	} else {
		n-- // at or past end, the next step lands on start
	}
	return start + n%length
}
