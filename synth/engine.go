// Package synth renders scheduled note events into audio: a fixed pool of
// voices, each a dual-oscillator subtractive path or a pitched sample player,
// mixed down to stereo. Everything here runs on the audio goroutine; the
// engine has no locks and no allocation in the render path.
package synth

import (
	"fmt"

	"github.com/gridseq/gridseq"
	"github.com/gridseq/gridseq/sample"
	"github.com/viterin/vek/vek32"
)

// DefaultNumVoices is the polyphony of an engine created with New.
const DefaultNumVoices = 8

var _ gridseq.VoiceEngine = (*Engine)(nil)

// defaultGain leaves headroom for the full pool sounding at once.
const defaultGain = 0.25

// Engine is the voice pool. It owns the audio clock: every Render call
// advances it by the buffer length, and all trigger and release times are
// absolute seconds on that clock.
type Engine struct {
	voices  []voice
	cache   *sample.Cache
	now     float64
	gain    float32
	mix     []float32
	scratch []float32
}

// New returns an engine with the default polyphony. cache may be nil when no
// sample instruments are used.
func New(cache *sample.Cache) *Engine {
	return NewWithVoices(DefaultNumVoices, cache)
}

// NewWithVoices returns an engine with the given polyphony, minimum 1.
func NewWithVoices(numVoices int, cache *sample.Cache) *Engine {
	if numVoices < 1 {
		numVoices = 1
	}
	return &Engine{
		voices: make([]voice, numVoices),
		cache:  cache,
		gain:   defaultGain,
	}
}

// NumVoices returns the size of the pool.
func (e *Engine) NumVoices() int { return len(e.voices) }

// Now returns the engine clock: seconds of audio rendered since creation or
// the last Reset.
func (e *Engine) Now() float64 { return e.now }

// SetGain sets the master gain applied after mixdown.
func (e *Engine) SetGain(gain float32) { e.gain = gain }

// Trigger starts a synth note on the given slot at time when. A voice already
// sounding on the slot is cut off and fully restarted, which also clears any
// release the old note had pending. duration < 0 means the note holds until
// an explicit Release.
func (e *Engine) Trigger(slot int, freq float64, preset *gridseq.SynthPreset, velocity, when, duration float64) {
	if slot < 0 || slot >= len(e.voices) {
		return
	}
	v := &e.voices[slot]
	v.retire(e.cache)
	p := *preset
	p.Clamp()
	v.start(freq, velocity, when, duration, p)
}

// TriggerSample starts a sample-playback note on the given slot. The buffer
// is fetched from the cache and pinned for the lifetime of the voice; if the
// key is not cached the trigger is dropped and an error returned, so the
// caller can kick off a load and alert.
func (e *Engine) TriggerSample(slot int, key sample.Key, freq, velocity, when, duration float64) error {
	if slot < 0 || slot >= len(e.voices) {
		return fmt.Errorf("voice slot %d out of range", slot)
	}
	if e.cache == nil {
		return fmt.Errorf("no sample cache configured")
	}
	buf, ok := e.cache.Get(key)
	if !ok {
		return fmt.Errorf("sample %v not cached", key)
	}
	e.cache.Acquire(key)
	v := &e.voices[slot]
	v.retire(e.cache)
	v.start(freq, velocity, when, duration, samplePreset)
	v.hasSample = true
	v.sampleKey = key
	v.sampleBuf = buf
	return nil
}

// samplePreset shapes the amplitude of sample voices: instant attack, full
// sustain, a short release to avoid clicks. The filter is effectively open.
var samplePreset = gridseq.SynthPreset{
	AmpEnv: gridseq.ADSR{Sustain: 1, Release: 0.02},
	Filter: gridseq.Filter{Type: gridseq.LowPass, CutoffHz: gridseq.MaxCutoffHz, Resonance: 0.7},
}

// Allocate picks the slot for a new note: a free voice if one exists,
// otherwise the active voice with the earliest note start time is stolen.
func (e *Engine) Allocate() int {
	oldest := 0
	for i := range e.voices {
		if !e.voices[i].active {
			return i
		}
		if e.voices[i].noteOn < e.voices[oldest].noteOn {
			oldest = i
		}
	}
	return oldest
}

// Release starts the release stage of the voice on slot at time when. A voice
// already releasing, or an idle slot, is left alone.
func (e *Engine) Release(slot int, when float64) {
	if slot < 0 || slot >= len(e.voices) {
		return
	}
	v := &e.voices[slot]
	if !v.active || v.releasing(when) {
		return
	}
	v.scheduleRelease(when)
}

// ReleaseAll soft-stops every sounding voice at time when; each rings out
// through its own release tail.
func (e *Engine) ReleaseAll(when float64) {
	for i := range e.voices {
		e.Release(i, when)
	}
}

// Reset hard-stops everything: all voices go silent immediately, their cache
// references are dropped, and the clock rewinds to zero.
func (e *Engine) Reset() {
	for i := range e.voices {
		e.voices[i].retire(e.cache)
	}
	e.now = 0
}

// IsActive reports whether the voice on slot is sounding or scheduled.
func (e *Engine) IsActive(slot int) bool {
	return slot >= 0 && slot < len(e.voices) && e.voices[slot].active
}

// ActiveVoices returns the number of sounding or scheduled voices.
func (e *Engine) ActiveVoices() int {
	n := 0
	for i := range e.voices {
		if e.voices[i].active {
			n++
		}
	}
	return n
}

// Render fills buffer with the next chunk of audio and advances the engine
// clock by its length. Voices whose release tail has fully passed are retired
// back to the pool.
func (e *Engine) Render(buffer gridseq.AudioBuffer) {
	n := len(buffer)
	if n == 0 {
		return
	}
	if len(e.mix) < n {
		e.mix = make([]float32, n)
		e.scratch = make([]float32, n)
	}
	mix := e.mix[:n]
	scratch := e.scratch[:n]
	for i := range mix {
		mix[i] = 0
	}
	for i := range e.voices {
		v := &e.voices[i]
		if !v.active {
			continue
		}
		for j := range scratch {
			scratch[j] = 0
		}
		alive := v.render(scratch, e.now)
		vek32.Add_Inplace(mix, scratch)
		if !alive {
			v.retire(e.cache)
		}
	}
	vek32.MulNumber_Inplace(mix, e.gain)
	for i := range buffer {
		buffer[i][0] = mix[i]
		buffer[i][1] = mix[i]
	}
	e.now += float64(n) / gridseq.SampleRate
}
