package resample

import (
	"math"
	"testing"
)

func TestUpsampleProducesExpectedLength(t *testing.T) {
	r := New(8000, 16000)
	in := make([]float64, 160)
	out := r.Process(in)
	if len(out) != 320 {
		t.Fatalf("Process(160 samples @8k->16k) produced %d samples, want 320", len(out))
	}
}

func TestStreamingAccumulatesAcrossCalls(t *testing.T) {
	r := New(8000, 16000)
	total := 0
	for i := 0; i < 5; i++ {
		in := make([]float64, 160)
		total += len(r.Process(in))
	}
	if total != 1600 {
		t.Fatalf("cumulative streamed output = %d, want 1600", total)
	}
}

func TestOneShotDownsampleRatio(t *testing.T) {
	in := make([]float64, 320)
	out := OneShot(16000, 8000, in)
	if out == nil {
		t.Fatal("OneShot returned nil")
	}
	if len(out) != 160 {
		t.Fatalf("OneShot(16k->8k, 320 samples) produced %d samples, want 160", len(out))
	}
}

func TestInt16FloatRoundTrip(t *testing.T) {
	samples := []int16{0, 16000, -16000, 32000, -32000}
	back := FloatToInt16(Int16ToFloat(samples))
	for i, s := range samples {
		diff := int(back[i]) - int(s)
		if diff < 0 {
			diff = -diff
		}
		if diff > 2 {
			t.Fatalf("sample %d: round trip %d -> %d", i, s, back[i])
		}
	}
}

func TestSineWaveDoesNotExplode(t *testing.T) {
	in := make([]float64, 800)
	for i := range in {
		in[i] = math.Sin(2 * math.Pi * 440 * float64(i) / 8000)
	}
	out := New(8000, 16000).Process(in)
	for _, v := range out {
		if math.IsNaN(v) || math.Abs(v) > 2 {
			t.Fatalf("resampled sample out of sane bounds: %v", v)
		}
	}
}
