package engine

import (
	"context"
	"net"
	"os"
	"testing"
	"time"

	"github.com/sentiric/media-engine/internal/media/events"
	"github.com/sentiric/media-engine/internal/media/storage"
	"github.com/sentiric/media-engine/internal/media/wavcodec"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()
	cfg := Config{
		RTPHost:       "127.0.0.1",
		PortMin:       30000,
		PortMax:       30020,
		QuarantineFor: 10 * time.Millisecond,
		StagingDir:    dir,
		AudioBaseDir:  dir,
	}
	return New(cfg, storage.New(storage.Config{}), events.NoopPublisher{})
}

func TestAllocateAndReleasePort(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()

	port, err := e.AllocatePort(ctx, "call-1")
	if err != nil {
		t.Fatalf("AllocatePort: %v", err)
	}
	if port < 30000 || port > 30020 {
		t.Fatalf("port %d out of configured range", port)
	}
	if got := e.ActiveSessions(); got != 1 {
		t.Fatalf("ActiveSessions = %d, want 1", got)
	}

	e.ReleasePort(port)
	deadline := time.After(time.Second)
	for e.ActiveSessions() != 0 {
		select {
		case <-deadline:
			t.Fatal("session did not shut down after ReleasePort")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestPlayAudioUnknownPortReturnsNotFound(t *testing.T) {
	e := testEngine(t)
	err := e.PlayAudio(context.Background(), 1, "file://nope.wav", nil)
	if err != ErrSessionNotFound {
		t.Fatalf("PlayAudio on unknown port = %v, want ErrSessionNotFound", err)
	}
}

func TestPlayAudioPlaysCachedFile(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()

	port, err := e.AllocatePort(ctx, "call-2")
	if err != nil {
		t.Fatalf("AllocatePort: %v", err)
	}
	defer e.ReleasePort(port)

	wavPath := writeSilentWav(t, e.cfg.AudioBaseDir)

	target, err := net.ResolveUDPAddr("udp", "127.0.0.1:31999")
	if err != nil {
		t.Fatalf("ResolveUDPAddr: %v", err)
	}
	playCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := e.PlayAudio(playCtx, port, "file://"+wavPath, target); err != nil {
		t.Fatalf("PlayAudio: %v", err)
	}
}

func writeSilentWav(t *testing.T, dir string) string {
	t.Helper()
	path := dir + "/tone.wav"
	samples := make([]int16, 160)
	data, err := wavcodec.Encode(samples, 8000)
	if err != nil {
		t.Fatalf("encode test wav: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write test wav: %v", err)
	}
	return path
}
