package synth

import (
	"math"

	"github.com/chewxy/math32"
	"github.com/gridseq/gridseq"
	"github.com/gridseq/gridseq/sample"
)

// safetyBuffer is added after the release tail before a voice returns to the
// pool, absorbing scheduling jitter so a voice is never reused while its last
// samples are still audible.
const safetyBuffer = 0.05

// Modulation ranges. The LFO modulates exactly one destination per voice;
// these constants set how far full modulation reaches.
const (
	vibratoSemitones = 0.5  // pitch LFO depth at Amount=1
	lfoFilterRangeHz = 4000 // filter LFO depth at Amount=1
	middleCHz        = 261.6255653005986
)

// voice is one slot of the engine's pool: a dual-oscillator subtractive
// synthesis path, or a pitched sample player, from onset to silence. All of
// its times are absolute seconds fixed at trigger time; tempo changes in
// flight never move a sounding voice.
type voice struct {
	active    bool
	noteOn    float64
	releaseAt float64 // +Inf until a release is scheduled or requested
	endTime   float64 // retire time, +Inf until releaseAt is known
	freq      float64
	velocity  float64
	preset    gridseq.SynthPreset

	// oscillator, LFO and filter state
	phase1, phase2 float64
	lfoPhase       float64
	randSeed       uint32
	low, band      float32

	// sample playback state; the cache reference is held from trigger to
	// retirement so the buffer cannot be evicted out from under the voice
	hasSample bool
	sampleKey sample.Key
	sampleBuf *sample.Buffer
	samplePos float64
}

func inf() float64 { return math.Inf(1) }

func (v *voice) start(freq, velocity, when, duration float64, preset gridseq.SynthPreset) {
	*v = voice{
		active:    true,
		noteOn:    when,
		releaseAt: inf(),
		endTime:   inf(),
		freq:      freq,
		velocity:  velocity,
		preset:    preset,
		randSeed:  1,
	}
	if duration >= 0 {
		v.scheduleRelease(when + duration)
	}
}

// scheduleRelease sets the time the release stage begins, and from it the
// time the voice retires. Called both by auto-release durations and explicit
// Release requests; the earlier time wins, and once releasing the voice stays
// releasing.
func (v *voice) scheduleRelease(when float64) {
	if when < v.noteOn {
		when = v.noteOn
	}
	if when >= v.releaseAt {
		return // already releasing, or releasing sooner
	}
	v.releaseAt = when
	v.endTime = when + v.preset.AmpEnv.Release + safetyBuffer
}

func (v *voice) releasing(now float64) bool {
	return v.active && now >= v.releaseAt
}

// retire returns the voice to the idle state, dropping its cache reference.
// Safe to call twice; the second call finds an inactive voice and does
// nothing.
func (v *voice) retire(cache *sample.Cache) {
	if !v.active {
		return
	}
	if v.hasSample && cache != nil {
		cache.Release(v.sampleKey)
	}
	*v = voice{}
}

// heldLevel is the envelope level while the gate is held: linear attack to 1,
// linear decay to the sustain level, then flat.
func heldLevel(env gridseq.ADSR, elapsed float64) float64 {
	if elapsed < 0 {
		return 0
	}
	if elapsed < env.Attack {
		return elapsed / env.Attack
	}
	elapsed -= env.Attack
	if elapsed < env.Decay {
		return 1 - (1-env.Sustain)*(elapsed/env.Decay)
	}
	return env.Sustain
}

// envLevel is the full analytic envelope: held until releaseAt, then a linear
// ramp from the level the envelope had at release down to zero. Computing the
// level from elapsed time rather than integrating per sample keeps the
// envelope exact regardless of render chunking.
func envLevel(env gridseq.ADSR, t, noteOn, releaseAt float64) float64 {
	if t < noteOn {
		return 0
	}
	if t < releaseAt {
		return heldLevel(env, t-noteOn)
	}
	start := heldLevel(env, releaseAt-noteOn)
	if env.Release <= 0 {
		return 0
	}
	level := start * (1 - (t-releaseAt)/env.Release)
	if level < 0 {
		return 0
	}
	return level
}

// rand steps the voice's noise generator, returning a value in [-1,1).
func (v *voice) rand() float32 {
	v.randSeed *= 16007
	return float32(int32(v.randSeed)) / -2147483648.0
}

func waveSample(w gridseq.Waveform, phase float64, rnd func() float32) float32 {
	switch w {
	case gridseq.Sine:
		return math32.Sin(2 * math32.Pi * float32(phase))
	case gridseq.Triangle:
		return 1 - 4*math32.Abs(float32(phase)-0.5)
	case gridseq.Saw:
		return 2*float32(phase) - 1
	case gridseq.Square:
		if phase < 0.5 {
			return 1
		}
		return -1
	case gridseq.NoiseWave:
		if rnd != nil {
			return rnd()
		}
	}
	return 0
}

func detuneRatio(osc gridseq.Oscillator) float64 {
	return math.Exp2((float64(osc.Coarse) + osc.Detune/100) / 12)
}

// render adds the voice's next n samples, starting at time now, into out.
// out is a mono scratch buffer; the engine mixes and fans out to stereo.
// Returns false once the voice has passed its end time and can be retired.
func (v *voice) render(out []float32, now float64) bool {
	const dt = 1.0 / gridseq.SampleRate
	p := &v.preset
	ratio1 := detuneRatio(p.Osc1)
	ratio2 := detuneRatio(p.Osc2)
	lfoDt := p.LFO.RateHz * dt
	for i := range out {
		t := now + float64(i)*dt
		if t < v.noteOn || t >= v.endTime {
			continue
		}
		amp := envLevel(p.AmpEnv, t, v.noteOn, v.releaseAt) * v.velocity

		// the LFO runs from note-on and modulates exactly one destination
		var lfo float32
		if p.LFO.Destination != gridseq.LFONone && p.LFO.Amount > 0 {
			lfo = waveSample(p.LFO.Waveform, v.lfoPhase, v.rand) * float32(p.LFO.Amount)
			v.lfoPhase += lfoDt
			v.lfoPhase -= math.Floor(v.lfoPhase)
		}
		freq := v.freq
		if p.LFO.Destination == gridseq.LFOPitch {
			freq *= math.Exp2(float64(lfo) * vibratoSemitones / 12)
		}

		var raw float32
		if v.hasSample {
			raw = v.sampleAt(freq)
		} else {
			raw = waveSample(p.Osc1.Waveform, v.phase1, v.rand)*float32(p.Osc1.Level) +
				waveSample(p.Osc2.Waveform, v.phase2, v.rand)*float32(p.Osc2.Level)
			if p.NoiseLevel > 0 {
				raw += v.rand() * float32(p.NoiseLevel)
			}
			v.phase1 += freq * ratio1 * dt
			v.phase1 -= math.Floor(v.phase1)
			v.phase2 += freq * ratio2 * dt
			v.phase2 -= math.Floor(v.phase2)
		}

		raw = v.filter(raw, t, lfo)
		if p.LFO.Destination == gridseq.LFOAmplitude {
			amp *= 1 - float64(lfo)*0.5 - p.LFO.Amount*0.5
		}
		out[i] += raw * float32(amp)
	}
	return now+float64(len(out))*dt < v.endTime
}

// filter runs one sample through the state-variable filter. The cutoff is the
// preset's base cutoff plus key tracking, the filter envelope sweep towards
// its peak, and the LFO when routed here.
func (v *voice) filter(in float32, t float64, lfo float32) float32 {
	p := &v.preset
	cutoff := p.Filter.CutoffHz
	cutoff += p.Filter.KeyTracking * (v.freq - middleCHz)
	if p.Filter.EnvAmount != 0 {
		sweepRange := gridseq.MaxCutoffHz - p.Filter.CutoffHz
		if p.Filter.EnvAmount < 0 {
			sweepRange = p.Filter.CutoffHz - gridseq.MinCutoffHz
		}
		peak := sweepRange * math.Abs(p.Filter.EnvAmount)
		if p.Filter.EnvAmount < 0 {
			peak = -peak
		}
		cutoff += envLevel(p.FilterEnv, t, v.noteOn, v.releaseAt) * peak
	}
	if p.LFO.Destination == gridseq.LFOFilter {
		cutoff += float64(lfo) * lfoFilterRangeHz
	}
	if cutoff < gridseq.MinCutoffHz {
		cutoff = gridseq.MinCutoffHz
	} else if cutoff > gridseq.MaxCutoffHz {
		cutoff = gridseq.MaxCutoffHz
	}

	f := 2 * math32.Sin(math32.Pi*float32(cutoff)/gridseq.SampleRate)
	if f > 1.4 {
		f = 1.4 // keep the SVF stable when the cutoff nears Nyquist
	}
	q := float32(1 / p.Filter.Resonance)
	v.low += f * v.band
	high := in - v.low - q*v.band
	v.band += f * high
	switch p.Filter.Type {
	case gridseq.HighPass:
		return high
	case gridseq.BandPass:
		return v.band
	default:
		return v.low
	}
}

// sampleAt reads the next sample of the decoded buffer, pitch-shifted by the
// ratio of the requested frequency to the buffer's base note, with linear
// interpolation. Past the end of the buffer the voice goes silent but keeps
// its envelope timeline, so retirement stays uniform across voice kinds.
func (v *voice) sampleAt(freq float64) float32 {
	buf := v.sampleBuf
	if buf == nil || len(buf.Data) == 0 {
		return 0
	}
	idx := int(v.samplePos)
	if idx >= len(buf.Data)-1 {
		return 0
	}
	frac := float32(v.samplePos - float64(idx))
	s := buf.Data[idx]*(1-frac) + buf.Data[idx+1]*frac
	step := freq / gridseq.NoteFrequency(buf.BaseNote) * float64(buf.SampleRate) / gridseq.SampleRate
	v.samplePos += step
	return s
}
