package player

import "github.com/gridseq/gridseq"

// MIDIContext is the live MIDI input surface. The real implementation lives
// in the gomidi subpackage and needs cgo; NullMIDIContext stands in when it
// is unavailable.
type MIDIContext interface {
	InputNames() []string
	OpenByPrefix(prefix string) error
	SetInstrument(ref gridseq.InstrumentRef)
	Close()
}

type NullMIDIContext struct{}

func (NullMIDIContext) InputNames() []string               { return nil }
func (NullMIDIContext) OpenByPrefix(prefix string) error   { return nil }
func (NullMIDIContext) SetInstrument(gridseq.InstrumentRef) {}
func (NullMIDIContext) Close()                             {}
