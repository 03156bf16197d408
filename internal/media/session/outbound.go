package session

import (
	"encoding/binary"
	"log/slog"
	"net"

	"github.com/sentiric/media-engine/internal/media/codec"
	"github.com/sentiric/media-engine/internal/media/resample"
)

// outboundFrameSamples is 20ms of audio at the internal 16kHz rate.
const outboundFrameSamples = 320

// outboundBridge accepts caller-supplied 16kHz PCM16 frames (little-endian
// bytes, as produced by a TTS engine) and drains exactly one 20ms frame
// per session pacer tick, resampling down to 8kHz and G.711-encoding it
// onto the RTP socket — the bridge that lets an external text-to-speech
// service speak into a live call.
type outboundBridge struct {
	pcmIn       chan []byte
	accumulator []int16
	resampler   *resample.Resampler
	writer      *rtpWriter
}

func newOutboundBridge(source <-chan []byte, c codec.Codec) *outboundBridge {
	b := &outboundBridge{
		pcmIn:     make(chan []byte, 1),
		resampler: resample.New(16000, 8000),
	}
	// Relay the caller's channel into our own buffered one so the
	// session's select loop always has exactly one outbound channel to
	// watch regardless of which stream is active.
	go func() {
		defer close(b.pcmIn)
		for chunk := range source {
			b.pcmIn <- chunk
		}
	}()
	return b
}

// bindWriter attaches the RTP writer once the session knows where to send
// outbound packets (the latched remote endpoint).
func (b *outboundBridge) bindWriter(conn net.PacketConn, remote net.Addr, c codec.Codec) {
	if b.writer == nil && remote != nil {
		b.writer = newRTPWriter(conn, remote, c)
	}
}

func (b *outboundBridge) push(chunk []byte) {
	if len(chunk)%2 != 0 {
		slog.Warn("outboundBridge: dropping malformed odd-length PCM chunk", "len", len(chunk))
		chunk = chunk[:len(chunk)-1]
	}
	samples := make([]int16, len(chunk)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(chunk[i*2:]))
	}
	b.accumulator = append(b.accumulator, samples...)
}

// drainFrame removes one 20ms frame from the accumulator (or substitutes
// silence if the caller hasn't supplied enough audio yet) and returns it
// resampled to 8kHz.
func (b *outboundBridge) drainFrame() []int16 {
	var frame []int16
	if len(b.accumulator) >= outboundFrameSamples {
		frame = b.accumulator[:outboundFrameSamples]
		b.accumulator = b.accumulator[outboundFrameSamples:]
	} else {
		frame = make([]int16, outboundFrameSamples)
	}
	return resample.FloatToInt16(b.resampler.Process(resample.Int16ToFloat(frame)))
}

func (s *Session) drainOutboundFrame() {
	if s.outbound == nil {
		return
	}
	s.outbound.bindWriter(s.conn, s.remote, s.rtpCodec)
	if s.outbound.writer == nil {
		return // no remote endpoint latched yet, nothing to send to
	}
	samples8k := s.outbound.drainFrame()
	payload := codec.Encode(s.rtpCodec, samples8k)
	if err := s.outbound.writer.WriteNow(payload, false); err != nil {
		slog.Warn("session: outbound write failed", "port", s.Port, "error", err)
	}
}

func (s *Session) stopOutbound() {
	if s.outbound == nil {
		return
	}
	if s.outbound.writer != nil {
		s.outbound.writer.Close()
	}
	s.outbound = nil
}
