package wavcodec

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	samples := make([]int16, 8000)
	for i := range samples {
		samples[i] = int16(i % 1000)
	}

	data, err := Encode(samples, 8000)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("Encode produced no data")
	}

	decoded, rate, err := Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if rate != 8000 {
		t.Fatalf("decoded sample rate = %d, want 8000", rate)
	}
	if len(decoded) != len(samples) {
		t.Fatalf("decoded %d samples, want %d", len(decoded), len(samples))
	}
	for i := range samples {
		if decoded[i] != samples[i] {
			t.Fatalf("sample %d: got %d, want %d", i, decoded[i], samples[i])
		}
	}
}
