package player

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/gridseq/gridseq"
)

// streamBlockFrames is the render block size of the live stream. Small enough
// for responsive message handling, large enough to keep per-block overhead
// negligible.
const streamBlockFrames = 1024

// Source returns an io.Reader producing the player's live output as
// interleaved float32 LE stereo frames, the format the audio backend
// consumes. Each refill of the reader's internal block runs one Process call;
// the audio backend's read pace is what clocks the whole player.
func (p *Player) Source() io.Reader {
	return &playerSource{
		player: p,
		buffer: make(gridseq.AudioBuffer, streamBlockFrames),
		bytes:  make([]byte, streamBlockFrames*8),
		pos:    streamBlockFrames * 8,
	}
}

type playerSource struct {
	player *Player
	buffer gridseq.AudioBuffer
	bytes  []byte
	pos    int
}

func (s *playerSource) Read(out []byte) (int, error) {
	if s.pos >= len(s.bytes) {
		s.player.Process(s.buffer)
		for i, frame := range s.buffer {
			binary.LittleEndian.PutUint32(s.bytes[i*8:], math.Float32bits(frame[0]))
			binary.LittleEndian.PutUint32(s.bytes[i*8+4:], math.Float32bits(frame[1]))
		}
		s.pos = 0
	}
	n := copy(out, s.bytes[s.pos:])
	s.pos += n
	return n, nil
}
