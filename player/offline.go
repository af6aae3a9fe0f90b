package player

import (
	"fmt"

	"github.com/gridseq/gridseq"
	"github.com/gridseq/gridseq/sample"
	"github.com/gridseq/gridseq/sched"
	"github.com/gridseq/gridseq/synth"
)

// offline render cache limits; one render never needs live-set economics, but
// the same admission path keeps behavior uniform with playback.
const (
	offlineCacheSoft = 64 << 20
	offlineCacheHard = 96 << 20
)

const renderBlockFrames = 1024

// RenderSong renders one full cycle of the song offline, plus the tail needed
// for the last notes to ring out. Samples are decoded synchronously; the
// returned buffer is ready for AudioBuffer.Wav or direct playback.
func RenderSong(song *gridseq.Song) (gridseq.AudioBuffer, error) {
	if err := song.Validate(); err != nil {
		return nil, fmt.Errorf("cannot render song: %w", err)
	}
	tr := song.Transport(0)
	tr.Playing = true
	events := sched.New().ScheduleWindow(song, &tr, 0, float64(song.CycleSteps())*tr.StepDuration())

	cache := sample.NewCache(offlineCacheSoft, offlineCacheHard)
	engine := synth.New(cache)

	end := float64(song.CycleSteps()) * tr.StepDuration()
	for _, ev := range events {
		if t := ev.Time + ev.Duration; t > end {
			end = t
		}
	}
	end += maxRelease(song) + 0.1
	buffer := make(gridseq.AudioBuffer, int(end*gridseq.SampleRate))

	next := 0
	for off := 0; off < len(buffer); off += renderBlockFrames {
		block := buffer[off:min(off+renderBlockFrames, len(buffer))]
		horizon := engine.Now() + float64(len(block))/gridseq.SampleRate
		for next < len(events) && events[next].Time < horizon {
			if err := triggerOffline(engine, cache, song, events[next]); err != nil {
				return nil, err
			}
			next++
		}
		engine.Render(block)
	}
	return buffer, nil
}

// triggerOffline dispatches one event, decoding sample instruments on the
// spot instead of going through the async loader.
func triggerOffline(engine *synth.Engine, cache *sample.Cache, song *gridseq.Song, ev gridseq.Event) error {
	instr, err := song.Kit.Resolve(ev.Instrument)
	if err != nil {
		return err
	}
	slot := engine.Allocate()
	if instr.Preset != nil {
		engine.Trigger(slot, ev.Frequency, instr.Preset, ev.Velocity, ev.Time, ev.Duration)
		return nil
	}
	key := sample.Key{Instrument: instr.Name, Note: ev.Note, VelBucket: sample.BucketVelocity(ev.Velocity)}
	if !cache.Has(key) {
		buf, err := sample.LoadWAV(instr.SamplePath, key.Note)
		if err != nil {
			return fmt.Errorf("rendering track %d: %w", ev.TrackID, err)
		}
		if err := cache.Set(key, buf); err != nil {
			return fmt.Errorf("rendering track %d: %w", ev.TrackID, err)
		}
	}
	return engine.TriggerSample(slot, key, ev.Frequency, ev.Velocity, ev.Time, ev.Duration)
}

func maxRelease(song *gridseq.Song) float64 {
	release := 0.1
	for i := range song.Kit.Instruments {
		if p := song.Kit.Instruments[i].Preset; p != nil && p.AmpEnv.Release > release {
			release = p.AmpEnv.Release
		}
	}
	return release
}
