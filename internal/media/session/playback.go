package session

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/sentiric/media-engine/internal/media/codec"
	"github.com/sentiric/media-engine/internal/media/resample"
)

const holePunchPackets = 5

// enqueuePlayback starts cmd immediately if nothing is playing, otherwise
// appends it to playbackQueue. An announcement in flight is never
// preempted by a new PlayAudioCmd — only StopAudioCmd interrupts it.
func (s *Session) enqueuePlayback(cmd PlayAudioCmd) {
	if s.playbackDoneCh == nil {
		s.startPlayback(cmd)
		return
	}
	s.playbackQueue = append(s.playbackQueue, cmd)
}

// startPlayback runs cmd in its own goroutine. Playback runs independently
// of the session's main select loop so its 20ms pacing isn't perturbed by
// other session activity; the loop only learns it has finished via
// playbackDoneCh, at which point it advances the queue.
func (s *Session) startPlayback(cmd PlayAudioCmd) {
	ctx, cancel := context.WithCancel(context.Background())
	doneCh := make(chan struct{})
	s.playbackCancel = cancel
	s.playbackDoneCh = doneCh

	// Before the first inbound packet has latched a remote endpoint, use
	// the RPC caller's candidate target; afterwards the latched source
	// always wins, regardless of what a later command requests. Resolved
	// here, on the session's own goroutine, since s.remote is only safe
	// to read from it.
	var target net.Addr = cmd.TargetAddr
	if s.remote != nil {
		target = s.remote
	}

	go func() {
		defer close(doneCh)
		err := s.runAnnouncement(ctx, cmd.AudioURI, target)
		if cmd.Done != nil {
			cmd.Done <- err
			close(cmd.Done)
		}
	}()
}

// advancePlaybackQueue is called from the main loop once playbackDoneCh
// fires; it clears the finished job's bookkeeping and starts the next
// queued announcement, if any.
func (s *Session) advancePlaybackQueue() {
	s.playbackCancel = nil
	s.playbackDoneCh = nil
	if len(s.playbackQueue) == 0 {
		return
	}
	next := s.playbackQueue[0]
	s.playbackQueue = s.playbackQueue[1:]
	s.startPlayback(next)
}

// cancelPlayback stops whatever is currently playing and drops every
// queued announcement — StopAudio's documented, queue-clearing behavior.
func (s *Session) cancelPlayback() {
	if s.playbackCancel != nil {
		s.playbackCancel()
	}
	for _, queued := range s.playbackQueue {
		if queued.Done != nil {
			go func(done chan<- error) {
				done <- context.Canceled
				close(done)
			}(queued.Done)
		}
	}
	s.playbackQueue = nil
}

func (s *Session) runAnnouncement(ctx context.Context, audioURI string, target net.Addr) error {
	sendHolePunch(s.conn, target, holePunchPackets)

	entry, err := s.deps.AudioCache.Load(audioURI)
	if err != nil {
		return err
	}

	samples8k := entry.Samples
	if entry.SampleRate != 8000 {
		floats := resample.Int16ToFloat(entry.Samples)
		samples8k = resample.FloatToInt16(resample.OneShot(entry.SampleRate, 8000, floats))
	}
	payload := codec.Encode(s.rtpCodec, samples8k)

	writer := newRTPWriter(s.conn, target, s.rtpCodec)
	defer writer.Close()

	frameSize := s.rtpCodec.SamplesPerFrame()
	for offset := 0; offset < len(payload); offset += frameSize {
		end := offset + frameSize
		if end > len(payload) {
			end = len(payload)
		}
		if err := writer.WritePaced(ctx, payload[offset:end], false); err != nil {
			if err == context.Canceled {
				slog.Debug("session: playback cancelled", "port", s.Port)
			}
			return err
		}
	}
	return nil
}

func sendHolePunch(conn net.PacketConn, target net.Addr, count int) {
	silence := make([]byte, 160)
	for i := range silence {
		silence[i] = codec.SilenceByte
	}
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for i := 0; i < count; i++ {
		if _, err := conn.WriteTo(silence, target); err != nil {
			return
		}
		if i < count-1 {
			<-ticker.C
		}
	}
}
