// Package session implements one RTP media session: the cooperative,
// single-goroutine event loop that owns a bound UDP port for the
// lifetime of a call, decoding and (optionally) recording inbound audio
// while serving announcement playback, live audio tapping, and outbound
// TTS bridging commands from the RPC layer.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/sentiric/media-engine/internal/media/audiocache"
	"github.com/sentiric/media-engine/internal/media/codec"
	"github.com/sentiric/media-engine/internal/media/portpool"
	"github.com/sentiric/media-engine/internal/media/resample"
)

// internalSampleRate is the sample rate inbound audio is decoded and held
// at for both live fan-out and permanent-recording accumulation; it is
// downsampled back to 8kHz only at WAV finalize time.
const internalSampleRate = 8000 * 2

// Deps bundles the shared, engine-wide collaborators every session needs.
// It is built once in engine.Engine and passed to every session — no
// package-level singletons. Uploading a staged recording is the upload
// worker's job, not the session's, so Deps carries no storage/publisher
// collaborator: see internal/media/upload.
type Deps struct {
	Pool       *portpool.Pool
	AudioCache *audiocache.Cache
	StagingDir string

	// BlockingWork bounds concurrent CPU-heavy finalize work (batch
	// resample + WAV encode) across every session sharing this Deps, so a
	// burst of simultaneous StopRecording calls can't starve the RTP read
	// loops. May be nil in tests that never finalize a recording.
	BlockingWork *semaphore.Weighted
}

// Session is one RTP endpoint bound to a single UDP port for the
// duration of a call leg. Every field below is mutated only from the
// goroutine running Run; callers interact exclusively through Commands().
type Session struct {
	Port   uint16
	CallID string

	conn net.PacketConn
	deps Deps

	commandCh chan Command
	inboundCh chan inboundPacket
	doneCh    chan struct{}

	remote net.Addr

	decodeResampler *resample.Resampler // 8k -> internalSampleRate, persists for the call
	seqTracker      sequenceTracker
	rtpCodec        codec.Codec

	playbackCancel context.CancelFunc
	playbackDoneCh chan struct{}
	playbackQueue  []PlayAudioCmd

	liveSubscriber chan<- AudioFrame
	liveTargetRate int

	recording *recordingSession

	outbound *outboundBridge
}

// New creates a session bound to conn on port. The session does not start
// its event loop until Run is called.
func New(port uint16, callID string, conn net.PacketConn, deps Deps) *Session {
	return &Session{
		Port:            port,
		CallID:          callID,
		conn:            conn,
		deps:            deps,
		commandCh:       make(chan Command, 8),
		inboundCh:       make(chan inboundPacket, 64),
		doneCh:          make(chan struct{}),
		decodeResampler: resample.New(8000, internalSampleRate),
		rtpCodec:        codec.CodecPCMU,
	}
}

// Commands returns the channel used to drive this session.
func (s *Session) Commands() chan<- Command { return s.commandCh }

// Done is closed once Run returns.
func (s *Session) Done() <-chan struct{} { return s.doneCh }

// Run is the session's single cooperative event loop. It owns every piece
// of session-local state and must only ever be called once, from its own
// goroutine; everything else synchronizes through commandCh/inboundCh.
func (s *Session) Run() {
	defer close(s.doneCh)

	readerDone := make(chan struct{})
	go s.readLoop(readerDone)

	pacer := time.NewTicker(20 * time.Millisecond)
	defer pacer.Stop()

	for {
		select {
		case cmd := <-s.commandCh:
			if s.handle(cmd) {
				<-readerDone
				return
			}

		case in := <-s.inboundCh:
			s.handleInbound(in)

		case pcm, ok := <-s.outboundPCMChan():
			if ok {
				s.outbound.push(pcm)
			}

		case <-s.pacerChan(pacer):
			s.drainOutboundFrame()

		case <-s.playbackDoneChan():
			s.advancePlaybackQueue()
		}
	}
}

// outboundPCMChan returns the active outbound bridge's input channel, or a
// nil channel (which blocks forever in a select) when no bridge is active.
func (s *Session) outboundPCMChan() <-chan []byte {
	if s.outbound == nil {
		return nil
	}
	return s.outbound.pcmIn
}

// pacerChan disables the pacer tick entirely when no outbound stream is
// active, so the select doesn't wake up 50 times a second for nothing.
func (s *Session) pacerChan(t *time.Ticker) <-chan time.Time {
	if s.outbound == nil {
		return nil
	}
	return t.C
}

func (s *Session) playbackDoneChan() <-chan struct{} {
	return s.playbackDoneCh
}

// handle applies one command to session state. It returns true when the
// session should terminate (ShutdownCmd).
func (s *Session) handle(cmd Command) bool {
	switch c := cmd.(type) {
	case PlayAudioCmd:
		s.enqueuePlayback(c)
	case StopAudioCmd:
		s.cancelPlayback()
	case StartLiveStreamCmd:
		s.liveSubscriber = c.Frames
		s.liveTargetRate = c.TargetSampleRate
	case StopLiveStreamCmd:
		if s.liveSubscriber != nil {
			close(s.liveSubscriber)
			s.liveSubscriber = nil
		}
	case StartRecordingCmd:
		s.recording = newRecordingSession(c.OutputURI, c.TraceID)
	case StopRecordingCmd:
		s.finalizeRecording(c.Done)
	case StartOutboundStreamCmd:
		s.outbound = newOutboundBridge(c.PCM, s.rtpCodec)
	case StopOutboundStreamCmd:
		s.stopOutbound()
	case ShutdownCmd:
		s.shutdown()
		return true
	}
	return false
}

// inboundPacket carries one raw UDP datagram plus the source address it
// arrived from, so the session loop can latch the real (NAT-traversed)
// remote endpoint from live traffic instead of trusting signaling.
type inboundPacket struct {
	data []byte
	addr net.Addr
}

func (s *Session) readLoop(done chan<- struct{}) {
	defer close(done)
	buf := make([]byte, 1500)
	for {
		n, addr, err := s.conn.ReadFrom(buf)
		if err != nil {
			return
		}
		if n <= 12 {
			continue // too short to carry an RTP header + payload
		}
		pkt := make([]byte, n)
		copy(pkt, buf[:n])
		select {
		case s.inboundCh <- inboundPacket{data: pkt, addr: addr}:
		case <-s.doneCh:
			return
		}
	}
}

func (s *Session) handleInbound(in inboundPacket) {
	header, payload, err := parseRTPHeader(in.data)
	if err != nil {
		slog.Debug("session: dropping malformed RTP packet", "port", s.Port, "error", err)
		return
	}
	if s.remote == nil {
		// latch the remote endpoint from the first valid packet actually
		// arriving on the wire; this is frequently different from whatever
		// address the signaling layer announced (NAT), and it never moves
		// again regardless of where later packets come from.
		s.remote = in.addr
	}
	s.seqTracker.update(header.sequenceNumber)

	c, err := codec.ByPayloadType(header.payloadType)
	if err != nil {
		return
	}
	pcm8k := codec.Decode(c, payload)
	pcmInternal := resample.FloatToInt16(s.decodeResampler.Process(resample.Int16ToFloat(pcm8k)))

	if s.recording != nil {
		s.recording.append(pcmInternal)
	}
	if s.liveSubscriber != nil {
		s.fanOutLive(pcmInternal)
	}
}

func (s *Session) fanOutLive(pcmInternal []int16) {
	rate := s.liveTargetRate
	if rate == 0 {
		rate = internalSampleRate // default: 16kHz, no conversion needed
	}
	out := pcmInternal
	if rate != internalSampleRate {
		out = resample.FloatToInt16(resample.OneShot(internalSampleRate, rate, resample.Int16ToFloat(pcmInternal)))
	}
	frame := AudioFrame{PCM: out, MediaType: fmt.Sprintf("audio/l16;rate=%d", rate)}
	select {
	case s.liveSubscriber <- frame:
	default:
		slog.Warn("session: live subscriber too slow, dropping frame", "port", s.Port)
	}
}

func (s *Session) shutdown() {
	s.cancelPlayback()
	if s.recording != nil {
		s.finalizeRecording(nil)
	}
	if s.liveSubscriber != nil {
		close(s.liveSubscriber)
		s.liveSubscriber = nil
	}
	s.stopOutbound()
	_ = s.conn.Close()
	s.deps.Pool.Quarantine(s.Port)
}
