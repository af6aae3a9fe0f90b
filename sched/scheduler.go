// Package sched converts a pattern snapshot plus a transport into absolute
// timed note events. It is pure arithmetic over validated inputs: tempo and
// swing are clamped before they get here, and nothing in this package can
// fail at runtime.
package sched

import (
	"sort"

	"github.com/gridseq/gridseq"
)

// GateFraction is the fraction of the nominal (tie-extended) note length that
// the gate stays open; the remaining 10% gives the release stage headroom so
// adjacent notes do not click into each other.
const GateFraction = 0.9

// Scheduler emits the note events of a window of the timeline. WrapTies
// decides whether a tie chain may continue across the loop seam from the last
// step of a track back to step 0; both behaviors are valid musically, so it
// is an explicit switch rather than an artifact of index comparisons.
type Scheduler struct {
	WrapTies bool
}

// New returns a scheduler with wraparound ties enabled, which matches how
// hardware grooveboxes treat the loop seam.
func New() *Scheduler {
	return &Scheduler{WrapTies: true}
}

// ScheduleWindow returns every note event of the song whose onset time t
// satisfies from <= t < to, sorted by time (ties broken by track order). The
// window is half-open so that a sequence of adjacent windows neither repeats
// nor drops events. Events already sounding at `from` are not re-emitted;
// they belong to the window containing their onset.
func (s *Scheduler) ScheduleWindow(song *gridseq.Song, tr *gridseq.Transport, from, to float64) []gridseq.Event {
	if to <= from || len(song.Pattern.Tracks) == 0 {
		return nil
	}
	dur := tr.StepDuration()
	// Swing delays an odd step by at most dur/2, so any slot whose base time
	// is at or after `to` can never swing into the window, and a slot can
	// reach into it from at most half a step before `from`.
	firstSlot := tr.SlotAt(from - dur*0.5)
	var events []gridseq.Event
	for slot := firstSlot; tr.StepTime(slot) < to; slot++ {
		base := tr.StepTime(slot)
		pos := tr.AdvanceSteps(tr.GlobalStep, slot)
		for i := range song.Pattern.Tracks {
			track := &song.Pattern.Tracks[i]
			if !song.Pattern.Audible(i) || track.StepCount <= 0 {
				continue
			}
			local := pos % track.StepCount
			if !s.onsetAt(track, local) {
				continue
			}
			blended := gridseq.BlendSwing(tr.SwingAmount, track.Swing)
			time := base + gridseq.SwingDelay(local, blended, dur)
			if time < from || time >= to {
				continue
			}
			events = append(events, s.makeEvent(song, track, tr, pos, local, time, dur))
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Time < events[j].Time
	})
	return events
}

// onsetAt reports whether the step at local index starts a new note: it must
// be active, and it must not be a tied continuation of the previous active
// step. With WrapTies off, step 0 is always a fresh onset.
func (s *Scheduler) onsetAt(track *gridseq.Track, local int) bool {
	if !track.Step(local) {
		return false
	}
	if !track.Tied(local) {
		return true
	}
	if local == 0 && !s.WrapTies {
		return true
	}
	prev := ((local-1)%track.StepCount + track.StepCount) % track.StepCount
	return !track.Step(prev)
}

// tiedSteps counts the length of the note whose onset is at the given global
// position, in steps: one for the onset plus one per following step that is
// active, tied, and actually played next by the transport. A loop region (or
// the global wrap, for step counts that do not divide it) can jump the
// transport away from the track's next grid step; the chain is clipped there,
// so a gate never extends into time the tied step does not play.
func (s *Scheduler) tiedSteps(track *gridseq.Track, tr *gridseq.Transport, global int) int {
	n := 1
	g := global
	for k := 1; k < track.StepCount; k++ {
		next := tr.NextStep(g)
		idx := next % track.StepCount
		if idx != (g+1)%track.StepCount {
			break
		}
		if idx == 0 && !s.WrapTies {
			break
		}
		if !track.Step(idx) || !track.Tied(idx) {
			break
		}
		n++
		g = next
	}
	return n
}

func (s *Scheduler) makeEvent(song *gridseq.Song, track *gridseq.Track, tr *gridseq.Transport, global, local int, time, stepDur float64) gridseq.Event {
	note := gridseq.DefaultBaseNote
	if instr, err := song.Kit.Resolve(track.Instrument); err == nil {
		note = instr.Base()
	}
	note += track.Transpose
	velocity := track.Volume
	if lock := track.Lock(local); lock != nil {
		if lock.Pitch != nil {
			note += *lock.Pitch
		}
		if lock.Volume != nil {
			velocity *= *lock.Volume
		}
	}
	if velocity < 0 {
		velocity = 0
	} else if velocity > 1 {
		velocity = 1
	}
	steps := s.tiedSteps(track, tr, global)
	return gridseq.Event{
		TrackID:    track.ID,
		Step:       local,
		Time:       time,
		Instrument: track.Instrument,
		Note:       note,
		Frequency:  gridseq.NoteFrequency(note),
		Duration:   float64(steps) * stepDur * GateFraction,
		Velocity:   velocity,
	}
}
