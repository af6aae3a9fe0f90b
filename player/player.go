// Package player runs the sequencer in real time: it owns the audio-thread
// side of the system, turning broker messages and scheduled events into
// rendered audio. The player is the single writer of all playback state;
// the model side only ever sends it whole-value snapshots.
package player

import (
	"fmt"

	"github.com/gridseq/gridseq"
	"github.com/gridseq/gridseq/sample"
	"github.com/gridseq/gridseq/sched"
	"github.com/gridseq/gridseq/synth"
)

// lookaheadQuanta is how many render-buffer lengths ahead of the audio clock
// the scheduler runs. Two quanta absorbs message-processing jitter without
// making tempo changes feel laggy.
const lookaheadQuanta = 2

// staleQuanta is how far behind the audio clock an undispatchable event may
// fall before it is dropped instead of retried.
const staleQuanta = 2

type (
	// Player renders the song. Process is called repeatedly from the audio
	// goroutine; everything else talks to it through the broker.
	Player struct {
		engine *synth.Engine
		sched  *sched.Scheduler
		loader *sample.Loader
		broker *Broker

		song      gridseq.Song
		transport gridseq.Transport
		playing   bool

		scheduledUntil float64
		pending        []pendingEvent
		jam            map[jamKey]int
	}

	// pendingEvent is a scheduled event waiting for dispatch. An event whose
	// sample is still decoding is retried on later blocks until it goes
	// stale.
	pendingEvent struct {
		gridseq.Event
		retried bool
	}

	jamKey struct {
		instrument gridseq.InstrumentRef
		note       int
	}
)

// NewPlayer returns a player wired to the broker. The cache may be nil when
// the song has no sample instruments.
func NewPlayer(broker *Broker, cache *sample.Cache) *Player {
	p := &Player{
		engine: synth.New(cache),
		sched:  sched.New(),
		broker: broker,
		jam:    make(map[jamKey]int),
	}
	p.loader = sample.NewLoader(cache, func(err error) {
		p.SendAlert("SampleLoad", err.Error(), Error)
	})
	return p
}

// Engine exposes the underlying voice engine, mainly for tests and stats.
func (p *Player) Engine() *synth.Engine { return p.engine }

// Process renders one block of audio into buffer: drain broker messages,
// extend the scheduled horizon, dispatch events due within this block, then
// render. The engine clock advances by exactly len(buffer) samples per call,
// so event times are sample accurate regardless of block size.
func (p *Player) Process(buffer gridseq.AudioBuffer) {
	p.processMessages()
	now := p.engine.Now()
	quantum := float64(len(buffer)) / gridseq.SampleRate
	if p.playing {
		horizon := now + quantum*(1+lookaheadQuanta)
		if horizon > p.scheduledUntil {
			for _, ev := range p.sched.ScheduleWindow(&p.song, &p.transport, p.scheduledUntil, horizon) {
				p.pending = append(p.pending, pendingEvent{Event: ev})
			}
			p.scheduledUntil = horizon
		}
	}
	p.dispatch(now, quantum)
	p.engine.Render(buffer)

	bufPtr := p.broker.GetAudioBuffer()
	*bufPtr = append(*bufPtr, buffer...)
	if !TrySend(p.broker.ToModel, MsgToModel{Data: bufPtr}) {
		p.broker.PutAudioBuffer(bufPtr)
	}
	p.sendPosition(now)
}

// dispatch triggers every pending event due within the coming block. Events
// that cannot be triggered yet, because their sample is still decoding, stay
// pending for a retry; once they fall more than staleQuanta blocks behind the
// clock they are dropped with an alert, late notes being worse than missing
// ones.
func (p *Player) dispatch(now, quantum float64) {
	kept := p.pending[:0]
	for _, pe := range p.pending {
		if pe.Time >= now+quantum {
			kept = append(kept, pe)
			continue
		}
		err := p.trigger(pe.Event)
		if err == nil {
			continue
		}
		if !pe.retried && pe.Time >= now-staleQuanta*quantum {
			pe.retried = true
			kept = append(kept, pe)
			continue
		}
		p.SendAlert("NoteDropped", fmt.Sprintf("dropping note on track %d: %v", pe.TrackID, err), Warning)
	}
	p.pending = kept
}

func (p *Player) trigger(ev gridseq.Event) error {
	instr, err := p.song.Kit.Resolve(ev.Instrument)
	if err != nil {
		return err
	}
	slot := p.engine.Allocate()
	if instr.Preset != nil {
		p.engine.Trigger(slot, ev.Frequency, instr.Preset, ev.Velocity, ev.Time, ev.Duration)
		return nil
	}
	key := sample.Key{Instrument: instr.Name, Note: ev.Note, VelBucket: sample.BucketVelocity(ev.Velocity)}
	if err := p.engine.TriggerSample(slot, key, ev.Frequency, ev.Velocity, ev.Time, ev.Duration); err != nil {
		p.loader.Load(key, instr.SamplePath)
		return err
	}
	return nil
}

func (p *Player) processMessages() {
loop:
	for {
		select {
		case msg := <-p.broker.ToPlayer:
			switch m := msg.(type) {
			case gridseq.Song:
				p.song = m
				p.rebaseTransport()
				p.transport.SetTempo(m.BPM)
				p.transport.SetSwing(m.Swing)
				p.preloadSamples()
			case gridseq.Pattern:
				p.song.Pattern = m
			case PlayMsg:
				p.play(m.FromStep)
			case IsPlayingMsg:
				if m.bool && !p.playing {
					p.play(p.transport.GlobalStep)
				} else if !m.bool {
					p.stop()
				}
			case PanicMsg:
				p.playing = false
				p.pending = p.pending[:0]
				p.engine.Reset()
				clear(p.jam)
			case BPMMsg:
				p.song.BPM = m.float64
				p.rebaseTransport()
				p.transport.SetTempo(m.float64)
			case SwingMsg:
				p.song.Swing = m.float64
				p.transport.SetSwing(m.float64)
			case LoopMsg:
				if m.Region == nil {
					p.transport.ClearLoop()
				} else {
					p.transport.SetLoop(m.Region.Start, m.Region.End)
				}
			case NoteOnMsg:
				p.jamOn(m)
			case NoteOffMsg:
				p.jamOff(m)
			}
		default:
			break loop
		}
	}
}

func (p *Player) play(fromStep int) {
	now := p.engine.Now()
	p.transport = p.song.Transport(now)
	p.transport.GlobalStep = fromStep
	p.transport.Playing = true
	p.playing = true
	p.scheduledUntil = now
	p.pending = p.pending[:0]
	TrySend(p.broker.ToModel, MsgToModel{HasPosition: true, GlobalStep: fromStep, Playing: true})
}

// stop is soft: scheduled-but-unplayed events are discarded and sounding
// voices ring out through their release stage.
func (p *Player) stop() {
	if !p.playing {
		return
	}
	p.playing = false
	p.transport.Playing = false
	p.pending = p.pending[:0]
	p.engine.ReleaseAll(p.engine.Now())
	TrySend(p.broker.ToModel, MsgToModel{HasPosition: true, GlobalStep: p.transport.GlobalStep, Playing: false})
}

// rebaseTransport moves the transport origin to the first unscheduled slot
// before a tempo change, so events already emitted keep their times and the
// new step duration only applies from the scheduling horizon onwards.
func (p *Player) rebaseTransport() {
	if !p.playing {
		return
	}
	next := p.transport.SlotAt(p.scheduledUntil)
	p.transport.GlobalStep = p.transport.AdvanceSteps(p.transport.GlobalStep, next)
	p.transport.StartTime = p.transport.StepTime(next)
}

// preloadSamples starts decoding every sample instrument at its base note and
// full velocity, the most common rendition, so the first trigger usually
// hits the cache.
func (p *Player) preloadSamples() {
	for i := range p.song.Kit.Instruments {
		instr := &p.song.Kit.Instruments[i]
		if instr.SamplePath == "" {
			continue
		}
		key := sample.Key{Instrument: instr.Name, Note: instr.Base(), VelBucket: sample.VelBuckets - 1}
		p.loader.Load(key, instr.SamplePath)
	}
}

func (p *Player) jamOn(m NoteOnMsg) {
	instr, err := p.song.Kit.Resolve(m.Instrument)
	if err != nil {
		p.SendAlert("JamNote", err.Error(), Warning)
		return
	}
	key := jamKey{instrument: m.Instrument, note: m.Note}
	if slot, ok := p.jam[key]; ok {
		p.engine.Release(slot, p.engine.Now())
	}
	now := p.engine.Now()
	note := m.Note
	freq := gridseq.NoteFrequency(note)
	slot := p.engine.Allocate()
	if instr.Preset != nil {
		p.engine.Trigger(slot, freq, instr.Preset, m.Velocity, now, -1)
	} else {
		sk := sample.Key{Instrument: instr.Name, Note: note, VelBucket: sample.BucketVelocity(m.Velocity)}
		if err := p.engine.TriggerSample(slot, sk, freq, m.Velocity, now, -1); err != nil {
			p.loader.Load(sk, instr.SamplePath)
			p.SendAlert("JamNote", err.Error(), Warning)
			return
		}
	}
	p.jam[key] = slot
}

func (p *Player) jamOff(m NoteOffMsg) {
	key := jamKey{instrument: m.Instrument, note: m.Note}
	if slot, ok := p.jam[key]; ok {
		p.engine.Release(slot, p.engine.Now())
		delete(p.jam, key)
	}
}

// sendPosition reports the current global step to the model side; dropped
// messages are fine, the next block sends a fresh one.
func (p *Player) sendPosition(now float64) {
	if !p.playing {
		return
	}
	slot := p.transport.SlotAt(now)
	if slot > 0 {
		slot--
	}
	pos := p.transport.AdvanceSteps(p.transport.GlobalStep, slot)
	TrySend(p.broker.ToModel, MsgToModel{HasPosition: true, GlobalStep: pos, Playing: true})
}

func (p *Player) SendAlert(name, message string, priority AlertPriority) {
	TrySend(p.broker.ToModel, MsgToModel{Data: Alert{Name: name, Message: message, Priority: priority}})
}
