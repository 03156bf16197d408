package session

// sequenceTracker implements RFC 3550's rollover-aware sequence tracking
// for inbound RTP and counts packets that arrive behind the last-seen
// sequence number (see lossRate).
type sequenceTracker struct {
	initialized bool
	lastSeq     uint16
	cycles      uint32
	lost        uint64
	received    uint64
}

// update folds the next inbound sequence number into the tracker and
// returns the extended (32-bit, rollover-corrected) sequence number.
func (t *sequenceTracker) update(seq uint16) uint32 {
	t.received++
	if !t.initialized {
		t.initialized = true
		t.lastSeq = seq
		return uint32(seq)
	}

	delta := int32(seq) - int32(t.lastSeq)
	switch {
	case delta > 0x7FFF:
		// large negative jump interpreted as an old, reordered packet
		// from before the most recent rollover
	case delta < -0x7FFF:
		t.cycles++
	case delta < 0:
		t.lost++ // out-of-order packet behind lastSeq; forward gaps are not counted
	}

	if seq != t.lastSeq {
		t.lastSeq = seq
	}
	return t.cycles<<16 | uint32(seq)
}

func (t *sequenceTracker) lossRate() float64 {
	if t.received == 0 {
		return 0
	}
	return float64(t.lost) / float64(t.received+t.lost)
}
