package gridseq_test

import (
	"testing"

	"github.com/gridseq/gridseq"
)

func TestParseInstrumentRef(t *testing.T) {
	tests := []struct {
		input    string
		expected gridseq.InstrumentRef
		wantErr  bool
	}{
		{"synth:bass", gridseq.InstrumentRef{Kind: gridseq.KindSynth, Name: "bass"}, false},
		{"sample:kick", gridseq.InstrumentRef{Kind: gridseq.KindSample, Name: "kick"}, false},
		{"bass", gridseq.InstrumentRef{Kind: gridseq.KindSynth, Name: "bass"}, false},
		{"granular:pad", gridseq.InstrumentRef{}, true},
	}
	for _, test := range tests {
		got, err := gridseq.ParseInstrumentRef(test.input)
		if (err != nil) != test.wantErr {
			t.Errorf("ParseInstrumentRef(%q) error = %v", test.input, err)
			continue
		}
		if !test.wantErr && got != test.expected {
			t.Errorf("ParseInstrumentRef(%q) = %+v, expected %+v", test.input, got, test.expected)
		}
	}
}

func TestKitResolve(t *testing.T) {
	kit := gridseq.Kit{Instruments: []gridseq.Instrument{
		{Name: "bass", Preset: &gridseq.SynthPreset{}},
		{Name: "kick", SamplePath: "kick.wav"},
	}}
	if _, err := kit.Resolve(gridseq.InstrumentRef{Kind: gridseq.KindSynth, Name: "bass"}); err != nil {
		t.Errorf("resolving a synth ref to a preset instrument should work: %v", err)
	}
	if _, err := kit.Resolve(gridseq.InstrumentRef{Kind: gridseq.KindSample, Name: "kick"}); err != nil {
		t.Errorf("resolving a sample ref to a sample instrument should work: %v", err)
	}
	// kind mismatches are resolution errors, not silent fallbacks
	if _, err := kit.Resolve(gridseq.InstrumentRef{Kind: gridseq.KindSample, Name: "bass"}); err == nil {
		t.Errorf("resolving a sample ref to a preset-only instrument should fail")
	}
	if _, err := kit.Resolve(gridseq.InstrumentRef{Kind: gridseq.KindSynth, Name: "kick"}); err == nil {
		t.Errorf("resolving a synth ref to a sample-only instrument should fail")
	}
	if _, err := kit.Resolve(gridseq.InstrumentRef{Kind: gridseq.KindSynth, Name: "nosuch"}); err == nil {
		t.Errorf("resolving an unknown name should fail")
	}
}

// baseNote fills the optional base note field in kit literals.
func baseNote(n int) *int { return &n }

func TestInstrumentBaseDefault(t *testing.T) {
	i := gridseq.Instrument{Name: "x"}
	if i.Base() != gridseq.DefaultBaseNote {
		t.Errorf("unset base note should default to middle C, got %d", i.Base())
	}
	i.BaseNote = baseNote(48)
	if i.Base() != 48 {
		t.Errorf("explicit base note should win, got %d", i.Base())
	}
	// note 0 is a legal pitch, distinct from leaving the field unset
	i.BaseNote = baseNote(0)
	if i.Base() != 0 {
		t.Errorf("explicit base note 0 should be honored, got %d", i.Base())
	}
}
