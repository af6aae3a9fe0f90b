package gridseq

// VoiceEngine is the capability the player needs from a voice pool: trigger
// and release notes on slots at absolute times, allocate slots with voice
// stealing, and render audio. The synth package provides the implementation;
// the interface lives here so hosts can substitute their own engine.
type VoiceEngine interface {
	// Trigger starts a note on the slot at time when; a negative duration
	// holds the note until an explicit Release. Triggering an occupied slot
	// restarts it, clearing any pending auto-release.
	Trigger(slot int, freq float64, preset *SynthPreset, velocity, when, duration float64)

	// Allocate picks the slot for a new note: a free voice if one exists,
	// otherwise the voice with the earliest note start time.
	Allocate() int

	// Release starts the release stage at time when; a no-op on idle or
	// already releasing voices.
	Release(slot int, when float64)

	// ReleaseAll soft-stops every voice; each rings out through its release.
	ReleaseAll(when float64)

	// Reset hard-stops every voice immediately.
	Reset()

	IsActive(slot int) bool

	// Render fills the buffer with the next chunk of audio, advancing the
	// engine clock by its length.
	Render(buffer AudioBuffer)
}
