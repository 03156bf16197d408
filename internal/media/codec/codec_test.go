package codec

import "testing"

func TestSamplesPerFrame(t *testing.T) {
	if got := CodecPCMU.SamplesPerFrame(); got != 160 {
		t.Fatalf("PCMU SamplesPerFrame = %d, want 160", got)
	}
}

func TestUlawSilenceRoundTrip(t *testing.T) {
	encoded := encodeUlaw(0)
	decoded := decodeUlaw(encoded)
	if decoded != 0 {
		t.Fatalf("ulaw silence round-trip = %d, want 0", decoded)
	}
}

func TestUlawDecodeTableEndpoints(t *testing.T) {
	if got := decodeUlaw(0); got != -32124 {
		t.Fatalf("decodeUlaw(0) = %d, want -32124", got)
	}
	if got := decodeUlaw(255); got != 0 {
		t.Fatalf("decodeUlaw(255) = %d, want 0", got)
	}
}

func TestByPayloadType(t *testing.T) {
	c, err := ByPayloadType(0)
	if err != nil || c.Name != PCMU {
		t.Fatalf("ByPayloadType(0) = %+v, %v, want PCMU", c, err)
	}
	c, err = ByPayloadType(8)
	if err != nil || c.Name != PCMA {
		t.Fatalf("ByPayloadType(8) = %+v, %v, want PCMA", c, err)
	}
	if _, err := ByPayloadType(99); err == nil {
		t.Fatal("ByPayloadType(99) expected an error")
	}
}

func TestEncodeDecodeRoundTripApproximate(t *testing.T) {
	samples := []int16{0, 1000, -1000, 16000, -16000}
	encoded := Encode(CodecPCMU, samples)
	decoded := Decode(CodecPCMU, encoded)
	for i, s := range samples {
		diff := int(decoded[i]) - int(s)
		if diff < 0 {
			diff = -diff
		}
		// G.711 is lossy quantization; tolerate the segment's resolution.
		if diff > 1100 {
			t.Fatalf("sample %d: encode/decode round trip %d -> %d, too far from source", i, s, decoded[i])
		}
	}
}
