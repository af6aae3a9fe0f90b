package gridseq_test

import (
	"math"
	"testing"

	"github.com/gridseq/gridseq"
)

func TestStepDuration(t *testing.T) {
	tests := []struct {
		bpm      float64
		expected float64
	}{
		{60, 0.25},
		{120, 0.125},
		{240, 0.0625},
		{300, 0.05},
	}
	for _, test := range tests {
		tr := gridseq.Transport{}
		tr.SetTempo(test.bpm)
		if got := tr.StepDuration(); math.Abs(got-test.expected) > 1e-12 {
			t.Errorf("StepDuration at %v BPM: got %v, expected %v", test.bpm, got, test.expected)
		}
	}
}

func TestSetTempoClamps(t *testing.T) {
	tr := gridseq.Transport{}
	tr.SetTempo(10)
	if tr.TempoBPM != gridseq.MinTempo {
		t.Errorf("tempo 10 should clamp to %v, got %v", gridseq.MinTempo, tr.TempoBPM)
	}
	tr.SetTempo(1000)
	if tr.TempoBPM != gridseq.MaxTempo {
		t.Errorf("tempo 1000 should clamp to %v, got %v", gridseq.MaxTempo, tr.TempoBPM)
	}
}

// Step times are computed from the fixed origin, so the timeline must stay
// exact even tens of thousands of steps in: slot n is exactly n durations
// after the origin, not the sum of n float additions.
func TestStepTimeDriftFree(t *testing.T) {
	tr := gridseq.Transport{StartTime: 1.5}
	tr.SetTempo(133) // deliberately not representable nicely in binary
	d := tr.StepDuration()
	for _, slot := range []int{0, 1, 7, 1000, 86400} {
		expected := 1.5 + float64(slot)*d
		if got := tr.StepTime(slot); got != expected {
			t.Errorf("StepTime(%d): got %v, expected %v", slot, got, expected)
		}
	}
	prev := tr.StepTime(0)
	for slot := 1; slot < 10000; slot++ {
		cur := tr.StepTime(slot)
		if cur <= prev {
			t.Fatalf("StepTime not strictly increasing at slot %d", slot)
		}
		prev = cur
	}
}

func TestSlotAt(t *testing.T) {
	tr := gridseq.Transport{StartTime: 2}
	tr.SetTempo(120) // step duration 0.125
	tests := []struct {
		time     float64
		expected int
	}{
		{-5, 0},
		{2, 0},
		{2.01, 1},
		{2.125, 1},
		{2.1251, 2},
		{3, 8},
	}
	for _, test := range tests {
		if got := tr.SlotAt(test.time); got != test.expected {
			t.Errorf("SlotAt(%v): got %v, expected %v", test.time, got, test.expected)
		}
	}
}

func TestBlendSwing(t *testing.T) {
	tests := []struct {
		global, track, expected float64
	}{
		{0, 0, 0},
		{0.5, 0, 0.5},
		{0, 0.5, 0.5},
		{0.5, 0.5, 0.75},
		{1, 1, 1},
		{2, -1, 1}, // out-of-range inputs clamp before blending
	}
	for _, test := range tests {
		if got := gridseq.BlendSwing(test.global, test.track); math.Abs(got-test.expected) > 1e-12 {
			t.Errorf("BlendSwing(%v,%v): got %v, expected %v", test.global, test.track, got, test.expected)
		}
		if got, rev := gridseq.BlendSwing(test.global, test.track), gridseq.BlendSwing(test.track, test.global); got != rev {
			t.Errorf("BlendSwing(%v,%v) not commutative: %v vs %v", test.global, test.track, got, rev)
		}
	}
}

func TestSwingDelay(t *testing.T) {
	d := 0.125
	if got := gridseq.SwingDelay(0, 1, d); got != 0 {
		t.Errorf("even steps must never be delayed, got %v", got)
	}
	if got := gridseq.SwingDelay(2, 0.8, d); got != 0 {
		t.Errorf("even steps must never be delayed, got %v", got)
	}
	if got := gridseq.SwingDelay(1, 1, d); math.Abs(got-d/2) > 1e-12 {
		t.Errorf("full swing should delay an odd step by half a step, got %v", got)
	}
	if got := gridseq.SwingDelay(3, 0.5, d); math.Abs(got-d/4) > 1e-12 {
		t.Errorf("half swing should delay an odd step by a quarter step, got %v", got)
	}
}

func TestSetLoopSwapsAndClamps(t *testing.T) {
	tr := gridseq.Transport{}
	tr.SetLoop(12, 4)
	if tr.Loop == nil || tr.Loop.Start != 4 || tr.Loop.End != 12 {
		t.Errorf("misordered loop should be swapped, got %+v", tr.Loop)
	}
	tr.SetLoop(-3, 1000)
	if tr.Loop.Start != 0 || tr.Loop.End != gridseq.MaxSteps-1 {
		t.Errorf("loop bounds should clamp into the valid range, got %+v", tr.Loop)
	}
	tr.ClearLoop()
	if tr.Loop != nil {
		t.Errorf("ClearLoop should remove the region")
	}
}

func TestNextStepLoop(t *testing.T) {
	tr := gridseq.Transport{}
	tr.SetLoop(4, 7)
	tests := []struct{ step, expected int }{
		{4, 5},
		{6, 7},
		{7, 4},  // at the end, wrap to start
		{20, 4}, // past the end, pulled back in
		{0, 1},  // before the region, counting towards it
	}
	for _, test := range tests {
		if got := tr.NextStep(test.step); got != test.expected {
			t.Errorf("NextStep(%d): got %d, expected %d", test.step, got, test.expected)
		}
	}

	tr.SetLoop(9, 9)
	if got := tr.NextStep(9); got != 9 {
		t.Errorf("single-step loop should stay put, got %d", got)
	}

	tr.ClearLoop()
	if got := tr.NextStep(gridseq.MaxSteps - 1); got != 0 {
		t.Errorf("without a loop the counter should wrap at MaxSteps, got %d", got)
	}
}

// AdvanceSteps must follow exactly the same chain as repeated NextStep calls.
func TestAdvanceStepsMatchesNextStep(t *testing.T) {
	transports := []gridseq.Transport{
		{},
		{Loop: &gridseq.LoopRegion{Start: 4, End: 7}},
		{Loop: &gridseq.LoopRegion{Start: 0, End: 0}},
		{Loop: &gridseq.LoopRegion{Start: 100, End: 127}},
	}
	for ti, tr := range transports {
		for _, from := range []int{0, 3, 4, 7, 99, 127} {
			step := from
			for n := 1; n <= 300; n++ {
				step = tr.NextStep(step)
				if got := tr.AdvanceSteps(from, n); got != step {
					t.Fatalf("transport %d: AdvanceSteps(%d,%d) = %d, NextStep chain gives %d", ti, from, n, got, step)
				}
			}
		}
	}
}
