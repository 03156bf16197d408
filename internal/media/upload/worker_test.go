package upload

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sentiric/media-engine/internal/media/events"
	"github.com/sentiric/media-engine/internal/media/storage"
)

type fakePublisher struct {
	events chan events.RecordingAvailable
}

func (f *fakePublisher) PublishRecordingAvailable(_ context.Context, evt events.RecordingAvailable) error {
	f.events <- evt
	return nil
}
func (f *fakePublisher) Close() error { return nil }

func TestWorkerUploadsStagedRecordingAndPublishes(t *testing.T) {
	stagingDir := t.TempDir()
	destDir := t.TempDir()
	wavPath := filepath.Join(stagingDir, "call-1_12345.wav")
	if err := os.WriteFile(wavPath, []byte("RIFF....fake wav bytes"), 0o644); err != nil {
		t.Fatalf("write staged wav: %v", err)
	}

	outputURI := "file://" + filepath.Join(destDir, "call-1.wav")
	if err := StageMeta(wavPath, Meta{OutputURI: outputURI, CallID: "call-1", TraceID: "trace-9"}); err != nil {
		t.Fatalf("StageMeta: %v", err)
	}

	pub := &fakePublisher{events: make(chan events.RecordingAvailable, 1)}
	w := New(stagingDir, storage.New(storage.Config{}), pub, 10*time.Millisecond)

	done := make(chan struct{})
	go w.Run(done)
	defer close(done)

	select {
	case evt := <-pub.events:
		if evt.CallID != "call-1" || evt.TraceID != "trace-9" || evt.RecordingURI != outputURI {
			t.Errorf("unexpected event: %+v", evt)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for upload to publish its event")
	}

	if _, err := os.Stat(filepath.Join(destDir, "call-1.wav")); err != nil {
		t.Errorf("expected uploaded file at destination: %v", err)
	}
	if _, err := os.Stat(wavPath); !os.IsNotExist(err) {
		t.Errorf("expected staged wav to be removed after upload, stat err = %v", err)
	}
}

func TestWorkerLeavesFileWithoutMetadataAlone(t *testing.T) {
	stagingDir := t.TempDir()
	wavPath := filepath.Join(stagingDir, "orphan.wav")
	if err := os.WriteFile(wavPath, []byte("data"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	w := New(stagingDir, storage.New(storage.Config{}), events.NoopPublisher{}, time.Hour)
	w.sweep()

	if _, err := os.Stat(wavPath); err != nil {
		t.Errorf("orphaned staged file without metadata should be left alone: %v", err)
	}
}
