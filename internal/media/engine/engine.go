// Package engine wires the port pool, audio cache, and recording
// collaborators into one facade that owns the lifetime of every active
// session. It is the thing cmd/mediaengine constructs once at startup and
// hands to the RPC layer.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/sentiric/media-engine/internal/media/audiocache"
	"github.com/sentiric/media-engine/internal/media/events"
	"github.com/sentiric/media-engine/internal/media/portpool"
	"github.com/sentiric/media-engine/internal/media/session"
	"github.com/sentiric/media-engine/internal/media/storage"
	"github.com/sentiric/media-engine/internal/media/upload"
)

// maxConcurrentBlockingWork bounds how many sessions may simultaneously run
// CPU-heavy finalize work (batch resample + WAV encode) off their own
// cooperative loop. Unbounded goroutines here would let a burst of
// simultaneous StopRecording calls starve the CPU the RTP read loops need.
const maxConcurrentBlockingWork = 8

// maxAllocateRetries bounds how many times AllocatePort will pull a
// candidate port from the pool and try to bind it before giving up.
// A bind can fail out from under the pool (another process already holds
// the port, or the OS hasn't released it yet after a prior quarantine) —
// on failure the port is quarantined and a fresh one is tried.
const maxAllocateRetries = 5

// Config bundles the engine's static settings.
type Config struct {
	RTPHost          string
	PortMin, PortMax uint16
	QuarantineFor    time.Duration
	StagingDir       string
	AudioBaseDir     string
}

// Engine owns every live session for the process, the shared
// collaborators sessions are built against (port pool, audio cache,
// blocking-work semaphore), and the upload worker that holds the storage
// writer and event publisher.
type Engine struct {
	cfg Config

	pool         *portpool.Pool
	audioCache   *audiocache.Cache
	blockingWork *semaphore.Weighted
	uploadWorker *upload.Worker

	mu       sync.Mutex
	sessions map[uint16]*session.Session
	byCallID map[string]uint16
}

// New builds an Engine. storageWriter and publisher may be nil-free
// implementations (storage.New and events.NoopPublisher{}) when the
// deployment doesn't need object storage or event publishing.
func New(cfg Config, storageWriter storage.Writer, publisher events.Publisher) *Engine {
	return &Engine{
		cfg:          cfg,
		pool:         portpool.New(cfg.PortMin, cfg.PortMax, cfg.QuarantineFor),
		audioCache:   audiocache.New(cfg.AudioBaseDir),
		blockingWork: semaphore.NewWeighted(maxConcurrentBlockingWork),
		uploadWorker: upload.New(cfg.StagingDir, storageWriter, publisher, 0),
		sessions:     make(map[uint16]*session.Session),
		byCallID:     make(map[string]uint16),
	}
}

// RunPortReclamation runs the pool's quarantine sweep until done is closed.
// Intended to be launched once, in its own goroutine, at process startup.
func (e *Engine) RunPortReclamation(done <-chan struct{}, tick time.Duration) {
	e.pool.RunReclamationLoop(done, tick)
}

// RunUploadWorker polls the staging directory for finalized recordings
// until done is closed. Intended to be launched once, in its own
// goroutine, at process startup.
func (e *Engine) RunUploadWorker(done <-chan struct{}) {
	e.uploadWorker.Run(done)
}

// ActiveSessions returns the number of sessions currently bound, for the
// active-sessions gauge.
func (e *Engine) ActiveSessions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

// allocateBackoff is the pause between retries after the pool reports
// exhaustion, giving the reclamation loop a chance to free a quarantined
// port before the next attempt.
const allocateBackoff = 100 * time.Millisecond

// AllocatePort binds a fresh UDP socket on a pool-allocated port and starts
// a session loop for callID, retrying against a new port on bind failure.
func (e *Engine) AllocatePort(ctx context.Context, callID string) (uint16, error) {
	var lastErr error
	for attempt := 0; attempt < maxAllocateRetries; attempt++ {
		port, err := e.pool.Allocate()
		if err != nil {
			lastErr = err
			slog.Warn("engine: port pool exhausted", "attempt", attempt+1, "max_attempts", maxAllocateRetries)
			select {
			case <-time.After(allocateBackoff):
			case <-ctx.Done():
				return 0, ctx.Err()
			}
			continue
		}

		addr := fmt.Sprintf("%s:%d", e.cfg.RTPHost, port)
		conn, err := net.ListenPacket("udp", addr)
		if err != nil {
			slog.Warn("engine: bind failed, quarantining and retrying", "port", port, "error", err)
			e.pool.Quarantine(port)
			lastErr = err
			continue
		}

		deps := session.Deps{
			Pool:         e.pool,
			AudioCache:   e.audioCache,
			StagingDir:   e.cfg.StagingDir,
			BlockingWork: e.blockingWork,
		}
		sess := session.New(port, callID, conn, deps)

		e.mu.Lock()
		e.sessions[port] = sess
		e.byCallID[callID] = port
		e.mu.Unlock()

		go func() {
			sess.Run()
			e.mu.Lock()
			delete(e.sessions, port)
			if e.byCallID[callID] == port {
				delete(e.byCallID, callID)
			}
			e.mu.Unlock()
		}()

		slog.Info("engine: port allocated", "port", port, "call_id", callID)
		return port, nil
	}

	slog.Error("engine: exhausted all allocate retries", "max_attempts", maxAllocateRetries, "error", lastErr)
	return 0, fmt.Errorf("engine: no usable port after %d attempts: %w", maxAllocateRetries, lastErr)
}

// ErrSessionNotFound is returned by any command-dispatching method when
// port doesn't correspond to a live session.
var ErrSessionNotFound = fmt.Errorf("engine: no active session for port")

// ResolveCallID looks up the port currently bound to callID — used by
// StreamAudioToCall, the one RPC keyed by call ID instead of port.
func (e *Engine) ResolveCallID(callID string) (uint16, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	port, ok := e.byCallID[callID]
	if !ok {
		return 0, ErrSessionNotFound
	}
	return port, nil
}

func (e *Engine) lookup(port uint16) (*session.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sess, ok := e.sessions[port]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// ReleasePort idempotently tears down the session bound to port. It is not
// an error to release a port with no active session — the RPC layer may
// race a late release against a session that already finished on its own.
func (e *Engine) ReleasePort(port uint16) {
	sess, err := e.lookup(port)
	if err != nil {
		slog.Warn("engine: release of unknown port ignored", "port", port)
		return
	}
	sess.Commands() <- session.ShutdownCmd{}
}

// PlayAudio queues an announcement for playback on port's session, blocking
// until playback completes, is cancelled, or ctx expires.
func (e *Engine) PlayAudio(ctx context.Context, port uint16, audioURI string, target *net.UDPAddr) error {
	sess, err := e.lookup(port)
	if err != nil {
		return err
	}
	done := make(chan error, 1)
	sess.Commands() <- session.PlayAudioCmd{AudioURI: audioURI, TargetAddr: target, Done: done}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StopAudio cancels any in-flight playback on port's session.
func (e *Engine) StopAudio(port uint16) error {
	sess, err := e.lookup(port)
	if err != nil {
		return err
	}
	sess.Commands() <- session.StopAudioCmd{}
	return nil
}

// StartRecording begins accumulating inbound audio on port's session for
// eventual upload to outputURI.
func (e *Engine) StartRecording(port uint16, outputURI, traceID string) error {
	sess, err := e.lookup(port)
	if err != nil {
		return err
	}
	sess.Commands() <- session.StartRecordingCmd{OutputURI: outputURI, TraceID: traceID}
	return nil
}

// StopRecording finalizes the in-progress recording, blocking until it has
// been staged to local disk (the upload itself continues asynchronously),
// and returns the destination URI the recording was started with.
func (e *Engine) StopRecording(ctx context.Context, port uint16) (string, error) {
	sess, err := e.lookup(port)
	if err != nil {
		return "", err
	}
	done := make(chan session.StopRecordingResult, 1)
	sess.Commands() <- session.StopRecordingCmd{Done: done}
	select {
	case result := <-done:
		return result.RecordingURI, result.Err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// RecordAudio subscribes frames to a live tap of port's session, at
// targetSampleRate (0 meaning the internal rate, no resampling). The
// returned channel is closed by the session when the tap is stopped or the
// session ends; the caller should call StopLiveStream when done consuming.
func (e *Engine) RecordAudio(port uint16, targetSampleRate int) (<-chan session.AudioFrame, error) {
	sess, err := e.lookup(port)
	if err != nil {
		return nil, err
	}
	frames := make(chan session.AudioFrame, 32)
	sess.Commands() <- session.StartLiveStreamCmd{TargetSampleRate: targetSampleRate, Frames: frames}
	return frames, nil
}

// StopLiveStream ends a live tap started by RecordAudio.
func (e *Engine) StopLiveStream(port uint16) error {
	sess, err := e.lookup(port)
	if err != nil {
		return err
	}
	sess.Commands() <- session.StopLiveStreamCmd{}
	return nil
}

// StreamAudioToCall starts bridging pcm (16kHz PCM16 frames from a TTS
// engine) onto port's session as outbound RTP.
func (e *Engine) StreamAudioToCall(port uint16, pcm <-chan []byte) error {
	sess, err := e.lookup(port)
	if err != nil {
		return err
	}
	sess.Commands() <- session.StartOutboundStreamCmd{PCM: pcm}
	return nil
}

// StopOutboundStream ends a bridge started by StreamAudioToCall.
func (e *Engine) StopOutboundStream(port uint16) error {
	sess, err := e.lookup(port)
	if err != nil {
		return err
	}
	sess.Commands() <- session.StopOutboundStreamCmd{}
	return nil
}
