// Package oto is the audio backend: it plays float32 LE stereo streams
// through the system audio device via ebitengine/oto.
package oto

import (
	"fmt"
	"io"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/gridseq/gridseq"
)

type OtoContext struct {
	context *oto.Context
}

// NewContext opens the system audio device at the engine sample rate and
// blocks until it is ready to play.
func NewContext() (*OtoContext, error) {
	op := oto.NewContextOptions{
		SampleRate:   gridseq.SampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
	}
	context, ready, err := oto.NewContext(&op)
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &OtoContext{context: context}, nil
}

// Play starts reading the stream into the audio device and returns
// immediately; the returned handle can stop playback or wait for the stream
// to drain.
func (c *OtoContext) Play(r io.Reader) gridseq.CloserWaiter {
	player := c.context.NewPlayer(r)
	player.Play()
	return &otoPlayer{player: player}
}

// Close is a no-op: oto contexts live for the whole process.
func (c *OtoContext) Close() error { return nil }

type otoPlayer struct {
	player *oto.Player
}

func (o *otoPlayer) Close() error {
	if err := o.player.Close(); err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}

// Wait polls until the player has consumed its stream; oto exposes no
// blocking wait.
func (o *otoPlayer) Wait() {
	for o.player.IsPlaying() {
		time.Sleep(time.Millisecond)
	}
}
