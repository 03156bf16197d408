package audiocache

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/sentiric/media-engine/internal/media/wavcodec"
)

func TestLoadFileAndCache(t *testing.T) {
	dir := t.TempDir()
	samples := []int16{1, 2, 3, 4, 5}
	data, err := wavcodec.Encode(samples, 8000)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	path := filepath.Join(dir, "prompt.wav")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	c := New(dir)
	entry, err := c.Load("file://prompt.wav")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if entry.SampleRate != 8000 || len(entry.Samples) != len(samples) {
		t.Fatalf("Load returned %+v", entry)
	}

	// second load should hit the cache and return identical data
	again, err := c.Load("file://prompt.wav")
	if err != nil {
		t.Fatalf("Load (cached): %v", err)
	}
	if len(again.Samples) != len(entry.Samples) {
		t.Fatalf("cached entry differs from first load")
	}
}

func TestLoadDataURI(t *testing.T) {
	samples := []int16{10, 20, 30}
	data, err := wavcodec.Encode(samples, 8000)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	uri := dataURIPrefix + base64.StdEncoding.EncodeToString(data)

	c := New(t.TempDir())
	entry, err := c.Load(uri)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entry.Samples) != len(samples) {
		t.Fatalf("Load data URI returned %d samples, want %d", len(entry.Samples), len(samples))
	}
}

func TestLoadUnsupportedScheme(t *testing.T) {
	c := New(t.TempDir())
	if _, err := c.Load("https://example.com/prompt.wav"); err == nil {
		t.Fatal("Load with unsupported scheme should fail")
	}
}
