package portpool

import (
	"testing"
	"time"
)

func TestAllocateExhaustion(t *testing.T) {
	p := New(20000, 20004, time.Minute)
	first, err := p.Allocate()
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	second, err := p.Allocate()
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if first == second {
		t.Fatalf("Allocate returned the same port twice: %d", first)
	}
	if _, err := p.Allocate(); err != ErrExhausted {
		t.Fatalf("Allocate on exhausted pool = %v, want ErrExhausted", err)
	}
}

func TestEvenPortsOnly(t *testing.T) {
	p := New(20001, 20005, time.Minute)
	for i := 0; i < 2; i++ {
		port, err := p.Allocate()
		if err != nil {
			t.Fatalf("Allocate: %v", err)
		}
		if port%2 != 0 {
			t.Fatalf("Allocate returned odd port %d", port)
		}
	}
}

func TestQuarantineHoldsPortUntilCooldown(t *testing.T) {
	p := New(20000, 20002, 50*time.Millisecond)
	port, _ := p.Allocate()
	p.Quarantine(port)

	if _, err := p.Allocate(); err != ErrExhausted {
		t.Fatalf("Allocate during quarantine = %v, want ErrExhausted", err)
	}

	reclaimed := p.Reclaim(time.Now().Add(100 * time.Millisecond))
	if reclaimed != 1 {
		t.Fatalf("Reclaim() = %d, want 1", reclaimed)
	}

	again, err := p.Allocate()
	if err != nil {
		t.Fatalf("Allocate after reclaim: %v", err)
	}
	if again != port {
		t.Fatalf("Allocate after reclaim = %d, want the reclaimed port %d", again, port)
	}
}

func TestCounts(t *testing.T) {
	p := New(20000, 20004, time.Minute)
	a, _ := p.Allocate()
	available, inUse, quarantined := p.Counts()
	if available != 1 || inUse != 1 || quarantined != 0 {
		t.Fatalf("Counts() = (%d,%d,%d), want (1,1,0)", available, inUse, quarantined)
	}
	p.Quarantine(a)
	available, inUse, quarantined = p.Counts()
	if available != 1 || inUse != 0 || quarantined != 1 {
		t.Fatalf("Counts() after quarantine = (%d,%d,%d), want (1,0,1)", available, inUse, quarantined)
	}
}
