package gridseq

// Event is one scheduled note: the output unit of the scheduler and the input
// unit of the player. Times and durations are absolute seconds on the audio
// clock; once emitted, an event's timing is fixed and later tempo changes do
// not move it.
type Event struct {
	TrackID    int
	Step       int // track-local step index of the onset
	Time       float64
	Instrument InstrumentRef
	Note       int     // resolved MIDI note, transpose and pitch lock applied
	Frequency  float64 // Note as Hz, precomputed for the synth path
	Duration   float64 // gate time in seconds, tie extension applied
	Velocity   float64 // [0,1], track volume and volume lock combined
}
