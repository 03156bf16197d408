package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/sentiric/media-engine/internal/media/resample"
	"github.com/sentiric/media-engine/internal/media/upload"
	"github.com/sentiric/media-engine/internal/media/wavcodec"
)

// recordingSession accumulates decoded, internal-rate PCM16 samples for
// the lifetime of a permanent (file/object-store backed) recording.
type recordingSession struct {
	outputURI string
	traceID   string
	samples   []int16
}

func newRecordingSession(outputURI, traceID string) *recordingSession {
	return &recordingSession{outputURI: outputURI, traceID: traceID}
}

func (r *recordingSession) append(pcmInternal []int16) {
	r.samples = append(r.samples, pcmInternal...)
}

// finalizeRecording hands the accumulated samples off to a bounded
// background goroutine that downsamples to 8kHz, WAV-encodes, and stages
// the result (plus a sidecar metadata file naming its destination) to
// local disk — this keeps the resample/encode CPU work off the session's
// own cooperative loop, so it doesn't stall RTP processing for the
// duration of finalize. done, if non-nil, is closed once finalization
// (not upload) completes; the upload worker discovers the staged file
// independently of this session's lifetime and owns the actual upload.
func (s *Session) finalizeRecording(done chan<- StopRecordingResult) {
	rec := s.recording
	s.recording = nil
	if rec == nil {
		reportFinalize(done, "", fmt.Errorf("session: no recording in progress"))
		return
	}
	if len(rec.samples) == 0 {
		// nothing was ever captured; skip writing an artifact entirely.
		reportFinalize(done, rec.outputURI, nil)
		return
	}

	port, callID, stagingDir, sem := s.Port, s.CallID, s.deps.StagingDir, s.deps.BlockingWork
	go func() {
		if sem != nil {
			_ = sem.Acquire(context.Background(), 1)
			defer sem.Release(1)
		}

		samples8k := resample.FloatToInt16(resample.OneShot(internalSampleRate, 8000, resample.Int16ToFloat(rec.samples)))
		wavBytes, err := wavcodec.Encode(samples8k, 8000)
		if err != nil {
			reportFinalize(done, "", fmt.Errorf("session: encode recording: %w", err))
			return
		}

		stagingPath := filepath.Join(stagingDir, fmt.Sprintf("%s_%d.wav", callID, time.Now().UnixNano()))
		if err := os.MkdirAll(filepath.Dir(stagingPath), 0o755); err != nil {
			reportFinalize(done, "", fmt.Errorf("session: stage recording: %w", err))
			return
		}
		if err := os.WriteFile(stagingPath, wavBytes, 0o644); err != nil {
			reportFinalize(done, "", fmt.Errorf("session: write staged recording: %w", err))
			return
		}
		meta := upload.Meta{OutputURI: rec.outputURI, CallID: callID, TraceID: rec.traceID}
		if err := upload.StageMeta(stagingPath, meta); err != nil {
			slog.Error("session: staging recording metadata failed, upload worker will skip this file", "path", stagingPath, "error", err)
		}

		slog.Info("session: recording staged", "port", port, "call_id", callID, "path", stagingPath, "output_uri", rec.outputURI)
		reportFinalize(done, rec.outputURI, nil)
	}()
}

func reportFinalize(done chan<- StopRecordingResult, uri string, err error) {
	if done == nil {
		return
	}
	done <- StopRecordingResult{RecordingURI: uri, Err: err}
	close(done)
}
