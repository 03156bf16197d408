// Package upload runs the background worker that persists finalized
// recordings to their configured object store, decoupled from the RTP
// session that produced them: a session only ever stages a WAV (plus its
// sidecar metadata) to local disk, so StopRecording never blocks on a
// network round trip, and an upload that fails is simply retried on the
// worker's next poll instead of being lost with the session.
package upload

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sentiric/media-engine/internal/media/events"
	"github.com/sentiric/media-engine/internal/media/storage"
)

// metaSuffix names the sidecar file carrying the destination URI and
// event fields for a staged recording — the filename itself only needs to
// be unique, so the destination can't be derived from it the way a
// deterministic call_id-keyed path could.
const metaSuffix = ".json"

// Meta is staged alongside a recording's WAV bytes, naming where the
// finished upload should go and what to publish once it lands.
type Meta struct {
	OutputURI string `json:"output_uri"`
	CallID    string `json:"call_id"`
	TraceID   string `json:"trace_id"`
}

// StageMeta writes a sidecar metadata file for a staged recording at
// wavPath — called by the session's finalize path right after it writes
// the WAV itself.
func StageMeta(wavPath string, meta Meta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return os.WriteFile(metaPath(wavPath), data, 0o644)
}

func metaPath(wavPath string) string {
	return strings.TrimSuffix(wavPath, filepath.Ext(wavPath)) + metaSuffix
}

// Worker polls a staging directory for finalized recordings, uploads each
// to its destination, publishes the recording-available event, and
// removes the staged files on success.
type Worker struct {
	stagingDir   string
	storage      storage.Writer
	publisher    events.Publisher
	pollInterval time.Duration
}

// New builds a Worker. pollInterval of 0 defaults to 5 seconds, matching
// the upload worker this is grounded on.
func New(stagingDir string, storageWriter storage.Writer, publisher events.Publisher, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &Worker{
		stagingDir:   stagingDir,
		storage:      storageWriter,
		publisher:    publisher,
		pollInterval: pollInterval,
	}
}

// Run polls the staging directory until done is closed. Intended to be
// launched once, in its own goroutine, at process startup.
func (w *Worker) Run(done <-chan struct{}) {
	if err := os.MkdirAll(w.stagingDir, 0o755); err != nil {
		slog.Error("upload: cannot create staging directory", "dir", w.stagingDir, "error", err)
		return
	}
	slog.Info("upload: worker active", "staging_dir", w.stagingDir, "poll_interval", w.pollInterval)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		w.sweep()
		select {
		case <-done:
			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) sweep() {
	entries, err := os.ReadDir(w.stagingDir)
	if err != nil {
		slog.Warn("upload: reading staging directory failed", "dir", w.stagingDir, "error", err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".wav" {
			continue
		}
		path := filepath.Join(w.stagingDir, entry.Name())
		w.processFile(path)
	}
}

func (w *Worker) processFile(wavPath string) {
	metaRaw, err := os.ReadFile(metaPath(wavPath))
	if err != nil {
		// metadata not written yet (finalize still in flight) or this file
		// isn't one of ours; leave it for the next sweep.
		return
	}
	var meta Meta
	if err := json.Unmarshal(metaRaw, &meta); err != nil {
		slog.Error("upload: corrupt staged metadata, leaving file for inspection", "path", wavPath, "error", err)
		return
	}

	data, err := os.ReadFile(wavPath)
	if err != nil {
		slog.Error("upload: reading staged recording failed", "path", wavPath, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := w.storage.Write(ctx, meta.OutputURI, data); err != nil {
		slog.Error("upload: persisting recording failed, will retry next sweep", "path", wavPath, "output_uri", meta.OutputURI, "error", err)
		return
	}
	slog.Info("upload: recording persisted", "call_id", meta.CallID, "output_uri", meta.OutputURI)

	if w.publisher != nil {
		evt := events.RecordingAvailable{
			EventType:    "call.recording.available",
			TraceID:      meta.TraceID,
			CallID:       meta.CallID,
			RecordingURI: meta.OutputURI,
			Timestamp:    time.Now(),
		}
		if err := w.publisher.PublishRecordingAvailable(ctx, evt); err != nil {
			slog.Error("upload: publishing recording event failed", "call_id", meta.CallID, "error", err)
		}
	}

	if err := os.Remove(wavPath); err != nil {
		slog.Warn("upload: removing staged recording after upload failed", "path", wavPath, "error", err)
	}
	if err := os.Remove(metaPath(wavPath)); err != nil {
		slog.Warn("upload: removing staged metadata after upload failed", "path", wavPath, "error", err)
	}
}
