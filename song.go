package gridseq

import (
	"errors"
	"math"
)

// Song bundles everything needed to play: transport defaults, the pattern and
// the kit of instruments the tracks reference. Song is the unit of file IO
// (YAML or JSON) and of whole-snapshot messages to the player.
type Song struct {
	BPM     float64
	Swing   float64 `yaml:",omitempty"`
	Pattern Pattern
	Kit     Kit
}

// Copy makes a deep copy of a Song.
func (s *Song) Copy() Song {
	return Song{
		BPM:     s.BPM,
		Swing:   s.Swing,
		Pattern: s.Pattern.Copy(),
		Kit:     s.Kit.Copy(),
	}
}

// Validate checks the structural invariants of a song: tempo and swing in
// range, track count and step counts valid, and every track referencing an
// instrument that exists in the kit with the right kind.
func (s *Song) Validate() error {
	if s.BPM < MinTempo || s.BPM > MaxTempo {
		return errors.New("song tempo outside the supported range")
	}
	if s.Swing < 0 || s.Swing > 1 {
		return errors.New("song swing outside [0,1]")
	}
	if err := s.Pattern.validate(); err != nil {
		return err
	}
	if err := s.Kit.validate(); err != nil {
		return err
	}
	for i := range s.Pattern.Tracks {
		if _, err := s.Kit.Resolve(s.Pattern.Tracks[i].Instrument); err != nil {
			return err
		}
	}
	return nil
}

// Transport returns a transport initialized from the song's tempo and swing,
// with the given time origin.
func (s *Song) Transport(startTime float64) Transport {
	tr := Transport{StartTime: startTime}
	tr.SetTempo(s.BPM)
	tr.SetSwing(s.Swing)
	return tr
}

// CycleSteps returns the number of global steps after which every track is
// back at its local step 0 simultaneously: the least common multiple of the
// track step counts, capped at MaxSteps. Tracks whose LCM exceeds MaxSteps
// never realign within one cycle; that is expected with polyrhythms.
func (s *Song) CycleSteps() int {
	ret := 1
	for _, t := range s.Pattern.Tracks {
		if t.StepCount <= 0 {
			continue
		}
		ret = lcm(ret, t.StepCount)
		if ret >= MaxSteps {
			return MaxSteps
		}
	}
	return ret
}

// NoteFrequency converts a MIDI note number to Hz, A4 = 440 Hz.
func NoteFrequency(note int) float64 {
	return 440 * math.Pow(2, float64(note-69)/12)
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm(a, b int) int {
	return a / gcd(a, b) * b
}
