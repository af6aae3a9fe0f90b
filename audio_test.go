package gridseq_test

import (
	"encoding/binary"
	"io"
	"math"
	"testing"

	"github.com/gridseq/gridseq"
)

func TestBufferSource(t *testing.T) {
	buffer := gridseq.AudioBuffer{{0.25, -0.5}, {1, 0}}
	data, err := io.ReadAll(buffer.Source())
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(data) != 16 {
		t.Fatalf("expected 16 bytes, got %d", len(data))
	}
	expected := []float32{0.25, -0.5, 1, 0}
	for i, v := range expected {
		if got := math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:])); got != v {
			t.Errorf("sample %d: got %v, expected %v", i, got, v)
		}
	}
}

func TestBufferSourceSmallReads(t *testing.T) {
	buffer := make(gridseq.AudioBuffer, 100)
	r := buffer.Source()
	total := 0
	p := make([]byte, 24) // deliberately not a multiple of the frame size
	for {
		n, err := r.Read(p)
		total += n
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
	}
	if total != 800 {
		t.Errorf("read %d bytes, expected 800", total)
	}
}

func TestWavHeader(t *testing.T) {
	buffer := make(gridseq.AudioBuffer, 128)
	for _, pcm16 := range []bool{false, true} {
		data, err := buffer.Wav(pcm16)
		if err != nil {
			t.Fatalf("Wav(%v): %v", pcm16, err)
		}
		if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
			t.Fatalf("Wav(%v): bad header %q", pcm16, data[:12])
		}
		bytesPerSample := 4
		if pcm16 {
			bytesPerSample = 2
		}
		// 128 stereo frames = 256 samples
		if expected := 256 * bytesPerSample; len(data) < expected {
			t.Errorf("Wav(%v): %d bytes, expected at least %d of sample data", pcm16, len(data), expected)
		}
	}
}

func TestRawLength(t *testing.T) {
	buffer := make(gridseq.AudioBuffer, 64)
	raw, err := buffer.Raw(false)
	if err != nil {
		t.Fatalf("Raw: %v", err)
	}
	if len(raw) != 64*8 {
		t.Errorf("float raw: %d bytes, expected %d", len(raw), 64*8)
	}
	raw, err = buffer.Raw(true)
	if err != nil {
		t.Fatalf("Raw pcm16: %v", err)
	}
	if len(raw) != 64*4 {
		t.Errorf("pcm16 raw: %d bytes, expected %d", len(raw), 64*4)
	}
}
