//go:build cgo

package cmd

import (
	"github.com/gridseq/gridseq/player"
	"github.com/gridseq/gridseq/player/gomidi"
)

func NewMidiContext(broker *player.Broker) player.MIDIContext {
	return gomidi.NewContext(broker)
}
