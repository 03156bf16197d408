package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

type fakeProvider struct{ count int }

func (f fakeProvider) ActiveSessions() int { return f.count }

func TestRegisterAndCollect(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg, fakeProvider{count: 3}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	var found bool
	for _, fam := range families {
		if fam.GetName() == "sentiric_media_active_sessions" {
			found = true
			if got := fam.Metric[0].GetGauge().GetValue(); got != 3 {
				t.Errorf("active_sessions = %v, want 3", got)
			}
		}
	}
	if !found {
		t.Fatal("sentiric_media_active_sessions metric not found in registry")
	}
}
