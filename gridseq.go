// Package gridseq contains the domain types of the gridseq sequencer engine:
// patterns of steps per track, the transport that maps steps to wall-clock
// times, synthesizer presets and instrument references. The functional
// subsystems live in subpackages: sched (the window scheduler), synth (the
// polyphonic voice engine), sample (the decoded-sample cache), player (the
// host loop gluing them together against the audio clock) and oto (the audio
// backend).
package gridseq

// SampleRate is the fixed engine sample rate, in Hz. All subsystems assume
// this rate; resampling foreign material is the loader's job.
const SampleRate = 44100
