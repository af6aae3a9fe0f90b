//go:build !cgo

package cmd

import (
	"github.com/gridseq/gridseq/player"
)

func NewMidiContext(broker *player.Broker) player.MIDIContext {
	// with no cgo, we cannot use MIDI, so return a null context
	return player.NullMIDIContext{}
}
