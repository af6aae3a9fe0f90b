package player

import (
	"sync"
	"time"

	"github.com/gridseq/gridseq"
)

type (
	// Broker is the centralized message hub between the player, running on
	// the audio goroutine, and whoever controls it (the cmd frontend, a MIDI
	// listener, tests). It is many-to-one per direction: one channel for the
	// player, one for the model side. The broker also keeps a sync.Pool of
	// *gridseq.AudioBuffer so the player can hand rendered audio to the model
	// side without allocating on every block.
	Broker struct {
		ToPlayer chan any
		ToModel  chan MsgToModel

		bufferPool sync.Pool
	}

	// MsgToModel is a message from the player to the model side. The
	// frequently updated fields (position, playing state) are plain fields to
	// avoid boxing; infrequent payloads (alerts, rendered buffers) ride in
	// Data as an any.
	MsgToModel struct {
		HasPosition bool
		GlobalStep  int
		Playing     bool

		Data any
	}

	// Alert is a player-side notification surfaced to the model: dropped
	// notes, sample decode failures, render errors.
	Alert struct {
		Name     string
		Message  string
		Priority AlertPriority
	}

	AlertPriority int
)

const (
	None AlertPriority = iota
	Info
	Warning
	Error
)

// Messages to the player. Whole-value snapshots keep the player single-writer:
// the model never mutates what the player holds, it sends a new copy.
type (
	// PlayMsg starts playback from the given global step.
	PlayMsg struct {
		FromStep int
	}

	// IsPlayingMsg stops (false) or resumes (true) playback. Stopping is
	// soft: sounding voices ring out through their release.
	IsPlayingMsg struct {
		bool
	}

	// PanicMsg hard-stops every voice immediately.
	PanicMsg struct{}

	// BPMMsg changes the tempo. Already scheduled events keep their times;
	// steps not yet scheduled land on the new grid.
	BPMMsg struct {
		float64
	}

	// SwingMsg changes the global swing amount.
	SwingMsg struct {
		float64
	}

	// LoopMsg sets the loop region; a nil region clears it.
	LoopMsg struct {
		Region *gridseq.LoopRegion
	}

	// NoteOnMsg triggers a jam note on an instrument, held until the
	// matching NoteOffMsg.
	NoteOnMsg struct {
		Instrument gridseq.InstrumentRef
		Note       int
		Velocity   float64
	}

	NoteOffMsg struct {
		Instrument gridseq.InstrumentRef
		Note       int
	}
)

func NewBroker() *Broker {
	return &Broker{
		ToPlayer:   make(chan any, 1024),
		ToModel:    make(chan MsgToModel, 1024),
		bufferPool: sync.Pool{New: func() any { return &gridseq.AudioBuffer{} }},
	}
}

// GetAudioBuffer returns an empty audio buffer from the pool. Return it with
// PutAudioBuffer when done.
func (b *Broker) GetAudioBuffer() *gridseq.AudioBuffer {
	return b.bufferPool.Get().(*gridseq.AudioBuffer)
}

// PutAudioBuffer returns a buffer to the pool, resetting its length but
// keeping its capacity.
func (b *Broker) PutAudioBuffer(buf *gridseq.AudioBuffer) {
	if len(*buf) > 0 {
		*buf = (*buf)[:0]
	}
	b.bufferPool.Put(buf)
}

// TrySend sends a value to a channel if it is not full. It is guaranteed to
// be non-blocking; returns false if the value was dropped.
func TrySend[T any](c chan<- T, v T) bool {
	select {
	case c <- v:
	default:
		return false
	}
	return true
}

// TimeoutReceive blocks until a value is received from the channel or t has
// passed; ok is false on timeout or a closed channel.
func TimeoutReceive[T any](c <-chan T, t time.Duration) (v T, ok bool) {
	select {
	case v, ok = <-c:
		return v, ok
	case <-time.After(t):
		return v, false
	}
}
