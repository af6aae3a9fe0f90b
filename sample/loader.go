package sample

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"
)

// Loader decodes WAV files into cache buffers off the audio thread. Load is
// asynchronous: the audio thread asks for a key, misses, and plays on; the
// note that needed the sample is dropped for this trigger and sounds once the
// decode lands in the cache.
type Loader struct {
	cache *Cache
	warn  func(err error)

	mu      sync.Mutex
	pending map[Key]struct{}
	wg      sync.WaitGroup
}

// NewLoader returns a loader feeding cache. warn, if non-nil, receives decode
// and admission errors; the loader itself never blocks on them.
func NewLoader(cache *Cache, warn func(err error)) *Loader {
	return &Loader{
		cache:   cache,
		warn:    warn,
		pending: make(map[Key]struct{}),
	}
}

// Load starts decoding path into the cache under key, unless the key is
// already cached or already being decoded. Returns immediately.
func (l *Loader) Load(key Key, path string) {
	if l.cache.Has(key) {
		return
	}
	l.mu.Lock()
	if _, ok := l.pending[key]; ok {
		l.mu.Unlock()
		return
	}
	l.pending[key] = struct{}{}
	l.mu.Unlock()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer func() {
			l.mu.Lock()
			delete(l.pending, key)
			l.mu.Unlock()
		}()
		buf, err := LoadWAV(path, key.Note)
		if err == nil {
			err = l.cache.Set(key, buf)
		}
		if err != nil && l.warn != nil {
			l.warn(fmt.Errorf("loading sample %v from %s: %w", key, path, err))
		}
	}()
}

// Pending reports whether key is currently being decoded.
func (l *Loader) Pending(key Key) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.pending[key]
	return ok
}

// Wait blocks until every in-flight decode has finished. Used by the offline
// renderer and tests; live playback never calls it.
func (l *Loader) Wait() {
	l.wg.Wait()
}

// LoadWAV reads and decodes a WAV file into a Buffer with the given base
// note.
func LoadWAV(path string, baseNote int) (*Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read sample file: %v", err)
	}
	buf, err := DecodeWAV(data)
	if err != nil {
		return nil, err
	}
	buf.BaseNote = baseNote
	return buf, nil
}

// DecodeWAV parses a RIFF/WAVE byte slice into a mono float32 Buffer.
// Supported encodings are 16-bit PCM and 32-bit IEEE float; multichannel
// audio is downmixed by averaging the channels of each frame.
func DecodeWAV(data []byte) (*Buffer, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("not a RIFF/WAVE file")
	}
	var (
		format     uint16
		channels   uint16
		sampleRate uint32
		bits       uint16
		sampleData []byte
	)
	r := bytes.NewReader(data[12:])
	for {
		var hdr [8]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			break
		}
		id := string(hdr[0:4])
		size := int(binary.LittleEndian.Uint32(hdr[4:8]))
		chunk := make([]byte, size)
		if _, err := io.ReadFull(r, chunk); err != nil {
			return nil, fmt.Errorf("truncated %q chunk: %v", id, err)
		}
		if size%2 == 1 {
			io.CopyN(io.Discard, r, 1) // chunks are word aligned
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("fmt chunk too short: %d bytes", size)
			}
			format = binary.LittleEndian.Uint16(chunk[0:2])
			channels = binary.LittleEndian.Uint16(chunk[2:4])
			sampleRate = binary.LittleEndian.Uint32(chunk[4:8])
			bits = binary.LittleEndian.Uint16(chunk[14:16])
		case "data":
			sampleData = chunk
		}
	}
	if sampleData == nil || channels == 0 {
		return nil, fmt.Errorf("missing fmt or data chunk")
	}
	var samples []float32
	switch {
	case format == 1 && bits == 16:
		samples = make([]float32, len(sampleData)/2)
		for i := range samples {
			samples[i] = float32(int16(binary.LittleEndian.Uint16(sampleData[i*2:]))) / 32768
		}
	case format == 3 && bits == 32:
		samples = make([]float32, len(sampleData)/4)
		if err := binary.Read(bytes.NewReader(sampleData), binary.LittleEndian, samples); err != nil {
			return nil, fmt.Errorf("could not read float samples: %v", err)
		}
	default:
		return nil, fmt.Errorf("unsupported wav encoding: format %d, %d bits", format, bits)
	}
	mono := samples
	if channels > 1 {
		n := int(channels)
		mono = make([]float32, len(samples)/n)
		for i := range mono {
			var sum float32
			for c := 0; c < n; c++ {
				sum += samples[i*n+c]
			}
			mono[i] = sum / float32(n)
		}
	}
	return &Buffer{Data: mono, SampleRate: int(sampleRate)}, nil
}
