package gridseq

import (
	"errors"
	"fmt"
)

const (
	// MaxTracks is the maximum number of tracks in a pattern.
	MaxTracks = 16

	// MaxSteps is the maximum step count of a single track, and also the
	// length of one full pattern cycle in global steps.
	MaxSteps = 128
)

// ValidStepCounts lists the allowed per-track loop lengths. Tracks with
// different step counts loop independently, producing polyrhythms.
var ValidStepCounts = []int{4, 8, 12, 16, 24, 32, 64, 96, 128}

type (
	// Pattern is the ordered collection of tracks edited by the user and read
	// by the scheduler. The player only ever sees whole Pattern values sent as
	// messages, so a scheduling pass always reads a consistent snapshot.
	Pattern struct {
		Tracks []Track `yaml:",omitempty"`
	}

	// Track is one row of the grid: a cycle of StepCount steps, each either
	// active or not, with optional per-step parameter locks. StepCount is the
	// track's independent loop length; only indices below it are played.
	Track struct {
		ID         int
		Instrument InstrumentRef
		Steps      []bool           `yaml:",flow"`
		Locks      []*ParameterLock `yaml:",omitempty"`
		Volume     float64
		Swing      float64 `yaml:",omitempty"`
		Muted      bool    `yaml:",omitempty"`
		Soloed     bool    `yaml:",omitempty"`
		StepCount  int
		Transpose  int `yaml:",omitempty"`
	}

	// ParameterLock overrides pitch, volume and/or tie for a single step. Tie
	// marks the step as a continuation of the previous active step's note
	// rather than a new onset.
	ParameterLock struct {
		Pitch  *int     `yaml:",omitempty"`
		Volume *float64 `yaml:",omitempty"`
		Tie    bool     `yaml:",omitempty"`
	}
)

// Copy makes a deep copy of a Pattern.
func (p *Pattern) Copy() Pattern {
	tracks := make([]Track, len(p.Tracks))
	for i, t := range p.Tracks {
		tracks[i] = t.Copy()
	}
	return Pattern{Tracks: tracks}
}

// HasSolo returns true if any track is soloed, in which case only soloed
// tracks sound.
func (p *Pattern) HasSolo() bool {
	for _, t := range p.Tracks {
		if t.Soloed {
			return true
		}
	}
	return false
}

// Audible returns whether the given track should produce sound, considering
// its own mute flag and the solo state of the whole pattern.
func (p *Pattern) Audible(track int) bool {
	if track < 0 || track >= len(p.Tracks) {
		return false
	}
	t := &p.Tracks[track]
	if t.Muted {
		return false
	}
	if p.HasSolo() && !t.Soloed {
		return false
	}
	return true
}

// Copy makes a deep copy of a Track.
func (t *Track) Copy() Track {
	steps := make([]bool, len(t.Steps))
	copy(steps, t.Steps)
	locks := make([]*ParameterLock, len(t.Locks))
	for i, l := range t.Locks {
		if l == nil {
			continue
		}
		c := l.Copy()
		locks[i] = &c
	}
	ret := *t
	ret.Steps = steps
	ret.Locks = locks
	return ret
}

// Copy makes a deep copy of a ParameterLock.
func (l *ParameterLock) Copy() ParameterLock {
	ret := ParameterLock{Tie: l.Tie}
	if l.Pitch != nil {
		p := *l.Pitch
		ret.Pitch = &p
	}
	if l.Volume != nil {
		v := *l.Volume
		ret.Volume = &v
	}
	return ret
}

// Step returns whether the step at index is active. The index is taken modulo
// StepCount, and indices beyond the stored slice read as inactive, so callers
// never need bounds checks.
func (t *Track) Step(index int) bool {
	if t.StepCount <= 0 {
		return false
	}
	index = ((index % t.StepCount) + t.StepCount) % t.StepCount
	if index >= len(t.Steps) {
		return false
	}
	return t.Steps[index]
}

// SetStep sets the step at index, growing the steps and locks slices as
// needed so that they always stay the same length.
func (t *Track) SetStep(index int, active bool) {
	if index < 0 || index >= MaxSteps {
		return
	}
	for len(t.Steps) <= index {
		t.Steps = append(t.Steps, false)
	}
	for len(t.Locks) < len(t.Steps) {
		t.Locks = append(t.Locks, nil)
	}
	t.Steps[index] = active
}

// Lock returns the parameter lock at index, or nil. Indexing follows the same
// modular rules as Step.
func (t *Track) Lock(index int) *ParameterLock {
	if t.StepCount <= 0 {
		return nil
	}
	index = ((index % t.StepCount) + t.StepCount) % t.StepCount
	if index >= len(t.Locks) {
		return nil
	}
	return t.Locks[index]
}

// SetLock sets the parameter lock at index, growing the slices as needed.
func (t *Track) SetLock(index int, lock *ParameterLock) {
	if index < 0 || index >= MaxSteps {
		return
	}
	t.SetStep(index, t.Step(index)) // grow both slices up to index
	t.Locks[index] = lock
}

// Tied returns whether the step at index continues the previous active step's
// note instead of starting a new one.
func (t *Track) Tied(index int) bool {
	l := t.Lock(index)
	return l != nil && l.Tie
}

// RotateRight rotates the active window [0,StepCount) of steps and locks one
// position towards higher indices, wrapping the last step to index 0.
func (t *Track) RotateRight() {
	n := t.StepCount
	if n <= 1 {
		return
	}
	t.SetStep(n-1, t.Step(n-1)) // make sure the slices cover the whole window
	copy(t.Steps[:n], append([]bool{t.Steps[n-1]}, t.Steps[:n-1]...))
	copy(t.Locks[:n], append([]*ParameterLock{t.Locks[n-1]}, t.Locks[:n-1]...))
}

// RotateLeft rotates the active window [0,StepCount) one position towards
// lower indices, wrapping step 0 to the end.
func (t *Track) RotateLeft() {
	n := t.StepCount
	if n <= 1 {
		return
	}
	t.SetStep(n-1, t.Step(n-1))
	copy(t.Steps[:n], append(t.Steps[1:n:n], t.Steps[0]))
	copy(t.Locks[:n], append(t.Locks[1:n:n], t.Locks[0]))
}

// ActiveSteps returns the indices of the active steps within the track's
// window, in increasing order.
func (t *Track) ActiveSteps() []int {
	var ret []int
	for i := 0; i < t.StepCount; i++ {
		if t.Step(i) {
			ret = append(ret, i)
		}
	}
	return ret
}

func validStepCount(count int) bool {
	for _, c := range ValidStepCounts {
		if c == count {
			return true
		}
	}
	return false
}

func (t *Track) validate() error {
	if !validStepCount(t.StepCount) {
		return fmt.Errorf("track %d has invalid step count %d", t.ID, t.StepCount)
	}
	if len(t.Steps) != len(t.Locks) {
		return fmt.Errorf("track %d has %d steps but %d locks", t.ID, len(t.Steps), len(t.Locks))
	}
	if len(t.Steps) > MaxSteps {
		return fmt.Errorf("track %d has %d steps, more than the maximum %d", t.ID, len(t.Steps), MaxSteps)
	}
	if t.Volume < 0 || t.Volume > 1 {
		return fmt.Errorf("track %d volume %v outside [0,1]", t.ID, t.Volume)
	}
	if t.Swing < 0 || t.Swing > 1 {
		return fmt.Errorf("track %d swing %v outside [0,1]", t.ID, t.Swing)
	}
	return nil
}

func (p *Pattern) validate() error {
	if len(p.Tracks) > MaxTracks {
		return errors.New("pattern has more than the maximum number of tracks")
	}
	for i := range p.Tracks {
		if err := p.Tracks[i].validate(); err != nil {
			return err
		}
	}
	return nil
}
