package gridseq

import (
	"fmt"
	"strings"
)

// InstrumentKind is the closed set of instrument flavors. A reference's kind
// is decided once when the song file is parsed, never re-derived per note.
type InstrumentKind int

const (
	KindSynth InstrumentKind = iota
	KindSample
)

type (
	// InstrumentRef points a track at an instrument in the kit. In song files
	// it is written as a prefixed string, "synth:bass" or "sample:kick"; the
	// prefix is parsed into Kind exactly once, at load time.
	InstrumentRef struct {
		Kind InstrumentKind
		Name string
	}

	// Instrument is one named entry of a kit: either a synthesis preset or a
	// path to a sample file, never both. BaseNote is the MIDI note the
	// instrument sounds at with no transpose or pitch lock applied; nil
	// means middle C, and note 0 is a valid explicit pitch.
	Instrument struct {
		Name       string
		BaseNote   *int         `yaml:",omitempty"`
		Preset     *SynthPreset `yaml:",omitempty"`
		SamplePath string       `yaml:"sample,omitempty"`
	}

	// Kit is the set of instruments a song's tracks can reference.
	Kit struct {
		Instruments []Instrument `yaml:",omitempty"`
	}

	// Resolver maps an instrument reference to its definition. The scheduler
	// and player depend on this capability, not on Kit directly, so hosts can
	// substitute their own instrument sources.
	Resolver interface {
		Resolve(ref InstrumentRef) (*Instrument, error)
	}
)

// DefaultBaseNote is middle C, used when an instrument does not specify one.
const DefaultBaseNote = 60

func (k InstrumentKind) String() string {
	switch k {
	case KindSynth:
		return "synth"
	case KindSample:
		return "sample"
	}
	return "unknown"
}

// ParseInstrumentRef parses a "kind:name" string into a reference. A bare
// name without a prefix is a synth reference.
func ParseInstrumentRef(s string) (InstrumentRef, error) {
	kind, name, found := strings.Cut(s, ":")
	if !found {
		return InstrumentRef{Kind: KindSynth, Name: s}, nil
	}
	switch kind {
	case "synth":
		return InstrumentRef{Kind: KindSynth, Name: name}, nil
	case "sample":
		return InstrumentRef{Kind: KindSample, Name: name}, nil
	}
	return InstrumentRef{}, fmt.Errorf("unknown instrument kind %q in reference %q", kind, s)
}

func (r InstrumentRef) String() string {
	return r.Kind.String() + ":" + r.Name
}

func (r InstrumentRef) MarshalYAML() (interface{}, error) {
	return r.String(), nil
}

func (r *InstrumentRef) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	ref, err := ParseInstrumentRef(s)
	if err != nil {
		return err
	}
	*r = ref
	return nil
}

// Copy makes a deep copy of a Kit.
func (k *Kit) Copy() Kit {
	instruments := make([]Instrument, len(k.Instruments))
	for i, instr := range k.Instruments {
		instruments[i] = instr
		if instr.BaseNote != nil {
			n := *instr.BaseNote
			instruments[i].BaseNote = &n
		}
		if instr.Preset != nil {
			p := instr.Preset.Copy()
			instruments[i].Preset = &p
		}
	}
	return Kit{Instruments: instruments}
}

// Resolve implements Resolver over the kit's instrument list.
func (k *Kit) Resolve(ref InstrumentRef) (*Instrument, error) {
	for i := range k.Instruments {
		instr := &k.Instruments[i]
		if instr.Name != ref.Name {
			continue
		}
		switch ref.Kind {
		case KindSynth:
			if instr.Preset == nil {
				return nil, fmt.Errorf("instrument %q has no synth preset", ref.Name)
			}
		case KindSample:
			if instr.SamplePath == "" {
				return nil, fmt.Errorf("instrument %q has no sample", ref.Name)
			}
		}
		return instr, nil
	}
	return nil, fmt.Errorf("unknown instrument %q", ref.Name)
}

func (i *Instrument) validate() error {
	if i.Name == "" {
		return fmt.Errorf("instrument with empty name")
	}
	if (i.Preset == nil) == (i.SamplePath == "") {
		return fmt.Errorf("instrument %q must have exactly one of a preset or a sample", i.Name)
	}
	if i.BaseNote != nil && (*i.BaseNote < 0 || *i.BaseNote > 127) {
		return fmt.Errorf("instrument %q base note %d outside [0,127]", i.Name, *i.BaseNote)
	}
	return nil
}

func (k *Kit) validate() error {
	seen := make(map[string]bool)
	for i := range k.Instruments {
		instr := &k.Instruments[i]
		if err := instr.validate(); err != nil {
			return err
		}
		if seen[instr.Name] {
			return fmt.Errorf("duplicate instrument name %q", instr.Name)
		}
		seen[instr.Name] = true
	}
	return nil
}

// Base returns the instrument's base note, defaulting to middle C when none
// is set.
func (i *Instrument) Base() int {
	if i.BaseNote == nil {
		return DefaultBaseNote
	}
	return *i.BaseNote
}
