package gridseq

import (
	"encoding/binary"
	"io"
	"math"
)

type (
	// AudioBuffer is a buffer of stereo audio samples of variable length.
	AudioBuffer [][2]float32

	// AudioContext is the audio backend: something capable of playing a
	// stream of stereo float32 frames. The oto subpackage provides the real
	// implementation; tests use NullAudioContext.
	AudioContext interface {
		Play(r io.Reader) CloserWaiter
		Close() error
	}

	// CloserWaiter is a handle to ongoing playback: Close stops it, Wait
	// blocks until it has finished on its own.
	CloserWaiter interface {
		Close() error
		Wait()
	}
)

// Source returns an io.Reader that reads the buffer out as interleaved
// float32 LE stereo frames, the format the audio backend consumes.
func (buffer AudioBuffer) Source() io.Reader {
	return &bufferSource{buffer: buffer}
}

type bufferSource struct {
	buffer AudioBuffer
	pos    int // in bytes from the start of the buffer
}

func (b *bufferSource) Read(p []byte) (int, error) {
	total := len(b.buffer) * 8
	if b.pos >= total {
		return 0, io.EOF
	}
	n := 0
	for b.pos < total && n+8 <= len(p) {
		frame := b.buffer[b.pos/8]
		binary.LittleEndian.PutUint32(p[n:], math.Float32bits(frame[0]))
		binary.LittleEndian.PutUint32(p[n+4:], math.Float32bits(frame[1]))
		n += 8
		b.pos += 8
	}
	return n, nil
}

// NullAudioContext is an AudioContext that discards everything written to it.
type NullAudioContext struct{}

func (NullAudioContext) Play(r io.Reader) CloserWaiter {
	go io.Copy(io.Discard, r)
	return nullCloserWaiter{}
}

func (NullAudioContext) Close() error { return nil }

type nullCloserWaiter struct{}

func (nullCloserWaiter) Close() error { return nil }
func (nullCloserWaiter) Wait()        {}
