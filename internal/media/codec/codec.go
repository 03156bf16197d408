// Package codec implements the G.711 PCMU/PCMA codecs used on the RTP
// leg of a media session. Encode/decode are table-driven, not delegated to
// an opaque third-party codec call, so the exact sample values carried over
// the wire are auditable.
package codec

import (
	"fmt"
	"time"
)

// Name identifies a supported G.711 variant.
type Name string

const (
	PCMU Name = "PCMU"
	PCMA Name = "PCMA"
)

// Codec is an immutable RTP codec descriptor.
type Codec struct {
	Name        Name
	PayloadType uint8
	SampleRate  uint32
	FrameDur    time.Duration
}

var (
	// CodecPCMU is G.711 µ-law, RTP static payload type 0.
	CodecPCMU = Codec{PCMU, 0, 8000, 20 * time.Millisecond}
	// CodecPCMA is G.711 A-law, RTP static payload type 8.
	CodecPCMA = Codec{PCMA, 8, 8000, 20 * time.Millisecond}
)

// ByPayloadType resolves a static RTP payload type to its codec.
func ByPayloadType(pt uint8) (Codec, error) {
	switch pt {
	case CodecPCMU.PayloadType:
		return CodecPCMU, nil
	case CodecPCMA.PayloadType:
		return CodecPCMA, nil
	default:
		return Codec{}, fmt.Errorf("codec: unsupported payload type %d", pt)
	}
}

// SamplesPerFrame is the number of 8kHz samples in one FrameDur frame (160
// for the standard 20ms packetization).
func (c Codec) SamplesPerFrame() int {
	return int(c.SampleRate) * int(c.FrameDur) / int(time.Second)
}

// Decode converts one G.711 payload into linear PCM16 samples at the
// codec's native sample rate (8kHz).
func Decode(c Codec, payload []byte) []int16 {
	out := make([]int16, len(payload))
	switch c.Name {
	case PCMA:
		for i, b := range payload {
			out[i] = decodeAlaw(b)
		}
	default:
		for i, b := range payload {
			out[i] = decodeUlaw(b)
		}
	}
	return out
}

// Encode converts linear PCM16 samples at 8kHz into a G.711 payload.
func Encode(c Codec, samples []int16) []byte {
	out := make([]byte, len(samples))
	switch c.Name {
	case PCMA:
		for i, s := range samples {
			out[i] = encodeAlaw(s)
		}
	default:
		for i, s := range samples {
			out[i] = encodeUlaw(s)
		}
	}
	return out
}

// SilenceByte is the encoded silence value used for NAT hole-punch bursts.
// G.711 µ-law silence round-trips through decodeUlaw/encodeUlaw as 0, and
// the wire-level convention for a "silence packet" during hole punching is
// the constant 0xFF byte.
const SilenceByte = 0xFF
