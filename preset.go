package gridseq

import (
	"fmt"
)

type (
	// Waveform is the oscillator (and LFO) shape.
	Waveform int

	// FilterType selects the filter response of a preset.
	FilterType int

	// LFODestination is the single target a preset's LFO modulates. A voice
	// never routes its LFO to more than one destination at a time.
	LFODestination int
)

const (
	Sine Waveform = iota
	Triangle
	Saw
	Square
	NoiseWave
)

const (
	LowPass FilterType = iota
	HighPass
	BandPass
)

const (
	LFONone LFODestination = iota
	LFOFilter
	LFOPitch
	LFOAmplitude
)

type (
	// ADSR is a linear attack/decay/sustain/release envelope. Times are in
	// seconds, Sustain is a level fraction in [0,1].
	ADSR struct {
		Attack  float64
		Decay   float64
		Sustain float64
		Release float64
	}

	// Oscillator is one of the two detunable oscillators of a preset.
	Oscillator struct {
		Waveform Waveform
		Level    float64
		Detune   float64 `yaml:",omitempty"` // fine detune, cents
		Coarse   int     `yaml:",omitempty"` // coarse detune, semitones
	}

	// Filter is the resonant filter section of a preset. EnvAmount sweeps the
	// cutoff by the filter envelope, KeyTracking raises it with note
	// frequency.
	Filter struct {
		Type        FilterType
		CutoffHz    float64
		Resonance   float64
		EnvAmount   float64 `yaml:",omitempty"` // [-1,1]
		KeyTracking float64 `yaml:",omitempty"` // [0,1]
	}

	// LFO is the low-frequency modulator of a preset.
	LFO struct {
		RateHz      float64
		Waveform    Waveform
		Destination LFODestination
		Amount      float64
	}

	// SynthPreset is the complete description of a synthesized instrument
	// sound. A preset is copied into a voice at note-on and stays immutable
	// for the duration of that note; later edits only affect new notes.
	SynthPreset struct {
		Name       string `yaml:",omitempty"`
		Osc1       Oscillator
		Osc2       Oscillator
		AmpEnv     ADSR
		FilterEnv  ADSR
		Filter     Filter
		LFO        LFO     `yaml:",omitempty"`
		NoiseLevel float64 `yaml:",omitempty"`
	}
)

const (
	// MinCutoffHz and MaxCutoffHz bound the filter cutoff range. The filter
	// envelope sweeps within this range, never outside it.
	MinCutoffHz = 20
	MaxCutoffHz = 20000
)

// Copy returns a copy of the preset. SynthPreset contains no reference types,
// so a value copy is a deep copy; the method exists to mirror the other
// domain types.
func (p *SynthPreset) Copy() SynthPreset {
	return *p
}

// Clamp forces every preset parameter into its documented range, in place.
// Clamping happens here at the boundary; the voice DSP assumes valid values.
func (p *SynthPreset) Clamp() {
	p.Osc1.clamp()
	p.Osc2.clamp()
	p.AmpEnv.clamp()
	p.FilterEnv.clamp()
	p.Filter.CutoffHz = clampFloat(p.Filter.CutoffHz, MinCutoffHz, MaxCutoffHz)
	p.Filter.Resonance = clampFloat(p.Filter.Resonance, 0.1, 20)
	p.Filter.EnvAmount = clampFloat(p.Filter.EnvAmount, -1, 1)
	p.Filter.KeyTracking = clampFloat(p.Filter.KeyTracking, 0, 1)
	p.LFO.RateHz = clampFloat(p.LFO.RateHz, 0, 40)
	p.LFO.Amount = clampFloat(p.LFO.Amount, 0, 1)
	p.NoiseLevel = clampFloat(p.NoiseLevel, 0, 1)
}

func (o *Oscillator) clamp() {
	o.Level = clampFloat(o.Level, 0, 1)
	o.Detune = clampFloat(o.Detune, -100, 100)
	o.Coarse = clampInt(o.Coarse, -48, 48)
}

func (e *ADSR) clamp() {
	e.Attack = clampFloat(e.Attack, 0, 30)
	e.Decay = clampFloat(e.Decay, 0, 30)
	e.Sustain = clampFloat(e.Sustain, 0, 1)
	e.Release = clampFloat(e.Release, 0, 30)
}

var waveformNames = [...]string{"sine", "triangle", "saw", "square", "noise"}

func (w Waveform) String() string {
	if w < 0 || int(w) >= len(waveformNames) {
		return "unknown"
	}
	return waveformNames[w]
}

// MarshalYAML serializes waveforms by name, keeping preset files readable.
func (w Waveform) MarshalYAML() (interface{}, error) {
	return w.String(), nil
}

func (w *Waveform) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	for i, n := range waveformNames {
		if n == name {
			*w = Waveform(i)
			return nil
		}
	}
	return fmt.Errorf("unknown waveform %q", name)
}

var filterTypeNames = [...]string{"lowpass", "highpass", "bandpass"}

func (f FilterType) String() string {
	if f < 0 || int(f) >= len(filterTypeNames) {
		return "unknown"
	}
	return filterTypeNames[f]
}

func (f FilterType) MarshalYAML() (interface{}, error) {
	return f.String(), nil
}

func (f *FilterType) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	for i, n := range filterTypeNames {
		if n == name {
			*f = FilterType(i)
			return nil
		}
	}
	return fmt.Errorf("unknown filter type %q", name)
}

var lfoDestinationNames = [...]string{"none", "filter", "pitch", "amplitude"}

func (d LFODestination) String() string {
	if d < 0 || int(d) >= len(lfoDestinationNames) {
		return "unknown"
	}
	return lfoDestinationNames[d]
}

func (d LFODestination) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

func (d *LFODestination) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	for i, n := range lfoDestinationNames {
		if n == name {
			*d = LFODestination(i)
			return nil
		}
	}
	return fmt.Errorf("unknown lfo destination %q", name)
}
