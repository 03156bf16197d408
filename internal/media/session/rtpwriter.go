package session

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/pion/rtp"

	"github.com/sentiric/media-engine/internal/media/codec"
)

// rtpWriter marshals and sends outbound G.711 RTP packets, advancing the
// sequence number and timestamp on every send. One instance is created
// per announcement or outbound-stream activation and discarded when it
// ends; pacing is the caller's responsibility (either rtpWriter's own
// ticker via WritePaced, or the session loop's shared pacer via WriteNow).
type rtpWriter struct {
	conn   net.PacketConn
	remote net.Addr
	codec  codec.Codec

	ssrc      uint32
	seq       uint16
	timestamp uint32

	ticker *time.Ticker
	mu     sync.Mutex
	closed bool
}

func newRTPWriter(conn net.PacketConn, remote net.Addr, c codec.Codec) *rtpWriter {
	return &rtpWriter{
		conn:      conn,
		remote:    remote,
		codec:     c,
		ssrc:      generateSSRC(),
		seq:       generateSequenceStart(),
		timestamp: generateTimestampStart(),
		ticker:    time.NewTicker(c.FrameDur),
	}
}

// WritePaced blocks until the next pacing tick or ctx cancellation,
// whichever comes first, then sends payload as one RTP packet.
func (w *rtpWriter) WritePaced(ctx context.Context, payload []byte, marker bool) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-w.ticker.C:
		return w.WriteNow(payload, marker)
	}
}

// WriteNow sends payload immediately, with no pacing of its own — for
// callers (like the outbound TTS bridge) already paced by an external
// ticker.
func (w *rtpWriter) WriteNow(payload []byte, marker bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("rtpWriter: write after close")
	}

	pkt := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			Marker:         marker,
			PayloadType:    w.codec.PayloadType,
			SequenceNumber: w.seq,
			Timestamp:      w.timestamp,
			SSRC:           w.ssrc,
		},
		Payload: payload,
	}
	buf, err := pkt.Marshal()
	if err != nil {
		return fmt.Errorf("rtpWriter: marshal: %w", err)
	}
	if _, err := w.conn.WriteTo(buf, w.remote); err != nil {
		return fmt.Errorf("rtpWriter: write: %w", err)
	}

	w.seq++
	w.timestamp += uint32(w.codec.SamplesPerFrame())
	return nil
}

func (w *rtpWriter) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	w.ticker.Stop()
}
