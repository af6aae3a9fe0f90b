//go:build cgo

// Package gomidi feeds live MIDI input into the player as jam notes, using
// the rtmidi driver. Requires cgo; the cmd package falls back to a null
// context without it.
package gomidi

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/gridseq/gridseq"
	"github.com/gridseq/gridseq/player"
)

// RTMIDIContext listens to one MIDI input device and forwards note on/off
// messages to the player through the broker. The target instrument is
// settable at any time; notes already held keep the instrument they started
// with, since note-off messages carry the same ref the note-on used.
type RTMIDIContext struct {
	driver    *rtmididrv.Driver
	broker    *player.Broker
	currentIn drivers.In
	stop      func()

	mu         sync.Mutex
	instrument gridseq.InstrumentRef
	held       map[uint8]gridseq.InstrumentRef
}

// NewContext opens the rtmidi driver. A machine without one yields a context
// that lists no devices; everything else still works.
func NewContext(broker *player.Broker) *RTMIDIContext {
	c := &RTMIDIContext{
		broker: broker,
		held:   make(map[uint8]gridseq.InstrumentRef),
	}
	c.driver, _ = rtmididrv.New()
	return c
}

// SetInstrument sets the instrument new jam notes trigger.
func (c *RTMIDIContext) SetInstrument(ref gridseq.InstrumentRef) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.instrument = ref
}

// InputNames lists the available MIDI input devices.
func (c *RTMIDIContext) InputNames() []string {
	if c.driver == nil {
		return nil
	}
	ins, err := c.driver.Ins()
	if err != nil {
		return nil
	}
	names := make([]string, len(ins))
	for i, in := range ins {
		names[i] = in.String()
	}
	return names
}

// OpenByPrefix opens the first input device whose name starts with prefix,
// or the first device of all when prefix is empty.
func (c *RTMIDIContext) OpenByPrefix(prefix string) error {
	if c.driver == nil {
		return errors.New("no MIDI driver available")
	}
	ins, err := c.driver.Ins()
	if err != nil {
		return fmt.Errorf("listing MIDI inputs failed: %w", err)
	}
	for _, in := range ins {
		if prefix == "" || strings.HasPrefix(in.String(), prefix) {
			return c.open(in)
		}
	}
	return fmt.Errorf("no MIDI input device found with prefix %q", prefix)
}

func (c *RTMIDIContext) open(in drivers.In) error {
	if c.currentIn == in {
		return nil
	}
	c.closeInput()
	if err := in.Open(); err != nil {
		return fmt.Errorf("opening MIDI input failed: %w", err)
	}
	stop, err := midi.ListenTo(in, c.handleMessage)
	if err != nil {
		in.Close()
		return fmt.Errorf("listening to MIDI input failed: %w", err)
	}
	c.currentIn = in
	c.stop = stop
	return nil
}

func (c *RTMIDIContext) handleMessage(msg midi.Message, timestampms int32) {
	var channel, key, velocity uint8
	switch {
	case msg.GetNoteOn(&channel, &key, &velocity) && velocity > 0:
		c.mu.Lock()
		ref := c.instrument
		c.held[key] = ref
		c.mu.Unlock()
		player.TrySend(c.broker.ToPlayer, any(player.NoteOnMsg{
			Instrument: ref,
			Note:       int(key),
			Velocity:   float64(velocity) / 127,
		}))
	case msg.GetNoteEnd(&channel, &key):
		c.mu.Lock()
		ref, ok := c.held[key]
		delete(c.held, key)
		c.mu.Unlock()
		if !ok {
			return
		}
		player.TrySend(c.broker.ToPlayer, any(player.NoteOffMsg{
			Instrument: ref,
			Note:       int(key),
		}))
	}
}

func (c *RTMIDIContext) closeInput() {
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
	if c.currentIn != nil && c.currentIn.IsOpen() {
		c.currentIn.Close()
	}
	c.currentIn = nil
}

func (c *RTMIDIContext) Close() {
	if c.driver == nil {
		return
	}
	c.closeInput()
	c.driver.Close()
}
