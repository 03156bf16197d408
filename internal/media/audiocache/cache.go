// Package audiocache loads announcement audio from a file:// path or an
// inline data: URI and caches the decoded samples so repeated playback of
// the same prompt does not re-read or re-parse the WAV container.
package audiocache

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sentiric/media-engine/internal/media/wavcodec"
)

const dataURIPrefix = "data:audio/wav;base64,"

// Entry is a cached, fully-decoded audio source.
type Entry struct {
	Samples    []int16
	SampleRate int
}

// Cache is a concurrency-safe, in-memory decoded-audio cache keyed by URI.
type Cache struct {
	mu      sync.Mutex
	entries map[string]Entry
	baseDir string
}

// New creates a cache resolving relative file:// paths against baseDir.
func New(baseDir string) *Cache {
	return &Cache{entries: make(map[string]Entry), baseDir: baseDir}
}

// Load resolves audioURI to decoded PCM16 samples, serving from cache when
// possible. Only file:// and data:audio/wav;base64, schemes are supported;
// any other scheme is a caller error (InvalidArgument at the RPC layer).
func (c *Cache) Load(audioURI string) (Entry, error) {
	c.mu.Lock()
	if e, ok := c.entries[audioURI]; ok {
		c.mu.Unlock()
		return e, nil
	}
	c.mu.Unlock()

	var (
		samples []int16
		rate    int
		err     error
	)
	switch {
	case strings.HasPrefix(audioURI, "file://"):
		samples, rate, err = c.loadFile(strings.TrimPrefix(audioURI, "file://"))
	case strings.HasPrefix(audioURI, dataURIPrefix):
		samples, rate, err = loadDataURI(audioURI)
	default:
		return Entry{}, fmt.Errorf("audiocache: unsupported audio URI scheme: %s", audioURI)
	}
	if err != nil {
		return Entry{}, err
	}

	entry := Entry{Samples: samples, SampleRate: rate}
	c.mu.Lock()
	c.entries[audioURI] = entry
	c.mu.Unlock()
	return entry, nil
}

func (c *Cache) loadFile(path string) ([]int16, int, error) {
	resolved := path
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(c.baseDir, resolved)
	}
	f, err := os.Open(resolved)
	if err != nil {
		return nil, 0, fmt.Errorf("audiocache: open %s: %w", resolved, err)
	}
	defer f.Close()

	samples, rate, err := wavcodec.Decode(f)
	if err != nil {
		return nil, 0, fmt.Errorf("audiocache: decode %s: %w", resolved, err)
	}
	return samples, rate, nil
}

func loadDataURI(uri string) ([]int16, int, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, dataURIPrefix))
	if err != nil {
		return nil, 0, fmt.Errorf("audiocache: invalid base64 data URI: %w", err)
	}
	samples, rate, err := wavcodec.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, 0, fmt.Errorf("audiocache: decode inline WAV: %w", err)
	}
	return samples, rate, nil
}
