package sample_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/gridseq/gridseq"
	"github.com/gridseq/gridseq/sample"
)

// sine440 returns a short stereo test tone with identical channels, so the
// mono downmix must reproduce it exactly.
func sine440(frames int) gridseq.AudioBuffer {
	buffer := make(gridseq.AudioBuffer, frames)
	for i := range buffer {
		v := float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/gridseq.SampleRate))
		buffer[i] = [2]float32{v, v}
	}
	return buffer
}

func TestDecodeWAVFloat(t *testing.T) {
	tone := sine440(1000)
	data, err := tone.Wav(false)
	if err != nil {
		t.Fatalf("Wav: %v", err)
	}
	buf, err := sample.DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if buf.SampleRate != gridseq.SampleRate {
		t.Errorf("sample rate %d, expected %d", buf.SampleRate, gridseq.SampleRate)
	}
	if len(buf.Data) != len(tone) {
		t.Fatalf("decoded %d samples, expected %d", len(buf.Data), len(tone))
	}
	for i := range buf.Data {
		if buf.Data[i] != tone[i][0] {
			t.Fatalf("sample %d: got %v, expected %v", i, buf.Data[i], tone[i][0])
		}
	}
}

func TestDecodeWAVPCM16(t *testing.T) {
	tone := sine440(1000)
	data, err := tone.Wav(true)
	if err != nil {
		t.Fatalf("Wav: %v", err)
	}
	buf, err := sample.DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if len(buf.Data) != len(tone) {
		t.Fatalf("decoded %d samples, expected %d", len(buf.Data), len(tone))
	}
	const errorThreshold = 1.0 / 16000 // quantization plus truncation slack
	for i := range buf.Data {
		if diff := float64(buf.Data[i] - tone[i][0]); diff > errorThreshold || diff < -errorThreshold {
			t.Fatalf("sample %d: got %v, expected %v within %v", i, buf.Data[i], tone[i][0], errorThreshold)
		}
	}
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	if _, err := sample.DecodeWAV([]byte("RIFFxxxxJUNK")); err == nil {
		t.Errorf("non-WAVE data should fail to decode")
	}
	if _, err := sample.DecodeWAV([]byte{1, 2, 3}); err == nil {
		t.Errorf("short data should fail to decode")
	}
}

func TestLoaderAsync(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tone.wav")
	data, err := sine440(500).Wav(false)
	if err != nil {
		t.Fatalf("Wav: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cache := sample.NewCache(1<<20, 2<<20)
	var warnings []error
	loader := sample.NewLoader(cache, func(err error) { warnings = append(warnings, err) })

	k := sample.Key{Instrument: "tone", Note: 72, VelBucket: 3}
	loader.Load(k, path)
	loader.Wait()
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	buf, ok := cache.Get(k)
	if !ok {
		t.Fatalf("decoded sample should be cached")
	}
	if buf.BaseNote != 72 {
		t.Errorf("base note %d, expected the key's note", buf.BaseNote)
	}
	if len(buf.Data) != 500 {
		t.Errorf("decoded %d samples, expected 500", len(buf.Data))
	}

	// a second load of a cached key is a no-op
	loader.Load(k, filepath.Join(dir, "does-not-exist.wav"))
	loader.Wait()
	if len(warnings) != 0 {
		t.Errorf("loading an already cached key should not touch the file")
	}
}

func TestLoaderMissingFile(t *testing.T) {
	cache := sample.NewCache(1<<20, 2<<20)
	warned := make(chan error, 1)
	loader := sample.NewLoader(cache, func(err error) { warned <- err })
	k := sample.Key{Instrument: "gone", Note: 60}
	loader.Load(k, "/no/such/file.wav")
	loader.Wait()
	select {
	case <-warned:
	default:
		t.Errorf("missing file should produce a warning")
	}
	if cache.Has(k) {
		t.Errorf("failed load must not populate the cache")
	}
}

func TestBucketVelocity(t *testing.T) {
	if got := sample.BucketVelocity(0); got != 0 {
		t.Errorf("BucketVelocity(0) = %d", got)
	}
	if got := sample.BucketVelocity(1); got != sample.VelBuckets-1 {
		t.Errorf("BucketVelocity(1) = %d", got)
	}
	if got := sample.BucketVelocity(0.5); got != sample.VelBuckets/2 {
		t.Errorf("BucketVelocity(0.5) = %d", got)
	}
	if got := sample.BucketVelocity(2); got != sample.VelBuckets-1 {
		t.Errorf("out-of-range velocity should clamp, got %d", got)
	}
}
