// Package portpool manages the range of UDP ports available for RTP
// sessions: a FIFO of free ports, the set currently bound to a session,
// and a quarantine of recently-released ports held back for a cooldown
// period before they are handed out again (letting in-flight packets from
// the old session drain off the wire before a new one reuses the port).
package portpool

import (
	"container/list"
	"errors"
	"sync"
	"time"
)

// ErrExhausted is returned when no port is immediately available.
var ErrExhausted = errors.New("portpool: no ports available")

type quarantineEntry struct {
	port       uint16
	releasedAt time.Time
}

// Pool tracks the lifecycle of every even port in [min, max).
type Pool struct {
	mu         sync.Mutex
	min, max   uint16
	available  *list.List // FIFO of uint16
	inUse      map[uint16]struct{}
	quarantine []quarantineEntry
	cooldown   time.Duration
}

// New creates a pool covering the even ports in [min, max); max itself is
// never handed out (the RTP/RTCP pairing convention: port N for RTP, N+1
// for RTCP). Released ports are held back for
// `cooldown` after release before being reallocated.
func New(min, max uint16, cooldown time.Duration) *Pool {
	if min%2 != 0 {
		min++
	}
	p := &Pool{
		min:       min,
		max:       max,
		available: list.New(),
		inUse:     make(map[uint16]struct{}),
		cooldown:  cooldown,
	}
	for port := min; port < max; port += 2 {
		p.available.PushBack(port)
	}
	return p
}

// Allocate pops the next free port and marks it in-use. Callers that fail
// to bind the returned port hand it back with Quarantine (the pool's only
// way back from in-use), so the cooldown period still applies to other
// in-flight traffic that may be addressed to it.
func (p *Pool) Allocate() (uint16, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	front := p.available.Front()
	if front == nil {
		return 0, ErrExhausted
	}
	p.available.Remove(front)
	port := front.Value.(uint16)
	p.inUse[port] = struct{}{}
	return port, nil
}

// Quarantine moves a port from in-use to the cooldown queue.
func (p *Pool) Quarantine(port uint16) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inUse, port)
	p.quarantine = append(p.quarantine, quarantineEntry{port: port, releasedAt: time.Now()})
}

// Reclaim moves any quarantined port whose cooldown has elapsed back onto
// the available queue. It is meant to be called periodically from
// RunReclamationLoop, but is exposed directly for deterministic tests.
func (p *Pool) Reclaim(now time.Time) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	kept := p.quarantine[:0]
	reclaimed := 0
	for _, e := range p.quarantine {
		if now.Sub(e.releasedAt) >= p.cooldown {
			p.available.PushBack(e.port)
			reclaimed++
			continue
		}
		kept = append(kept, e)
	}
	p.quarantine = kept
	return reclaimed
}

// RunReclamationLoop blocks, sweeping the quarantine queue on each tick,
// until done is closed.
func (p *Pool) RunReclamationLoop(done <-chan struct{}, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case now := <-ticker.C:
			p.Reclaim(now)
		}
	}
}

// Counts reports the current size of each port state, for the /metrics
// surface and tests.
func (p *Pool) Counts() (available, inUse, quarantined int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.available.Len(), len(p.inUse), len(p.quarantine)
}
