package core

// HopScheduler is the receiver's half of lock-step hopping. The receiver
// decides when to hop and says so in the ack; both ends retune right after
// the exchange that carried the flag.
type HopScheduler struct {
	lc *LinkContext
}

func NewHopScheduler(lc *LinkContext) HopScheduler {
	return HopScheduler{lc: lc}
}

// Due reports whether the next ack should carry the hop flag
func (h HopScheduler) Due(now uint32) bool {
	return Elapsed(now, h.lc.LastHop) >= h.lc.Config.HopInterval
}

// PrepareAck decides the hop flag for the ack about to be queued. Once set
// the flag stays pending until the exchange carrying it completes.
func (h HopScheduler) PrepareAck(now uint32) bool {
	if h.lc.HopPending {
		return false
	}
	if !h.Due(now) {
		return false
	}
	h.lc.HopPending = true
	return true
}

// ExchangeDone retunes r if the ack just delivered carried the hop flag.
// Returns true when a hop happened.
func (h HopScheduler) ExchangeDone(r Radio, now uint32) (bool, error) {
	lc := h.lc
	if !lc.HopPending {
		return false, nil
	}
	lc.HopPending = false
	ch := lc.Hop.Advance()
	lc.LastHop = now
	lc.Stats.Hops++
	lc.Events.Record(EvtHop, now, uint32(lc.Hop.Index()), uint32(ch))
	return true, retune(r, ch)
}

// ForceDue makes the first ack after contact carry the hop flag so a parked
// pair moves back onto the table together
func (h HopScheduler) ForceDue(now uint32) {
	h.lc.HopPending = false
	h.lc.LastHop = now - h.lc.Config.HopInterval
}

// FollowHop is the transmitter's half: retune when the ack says so
func FollowHop(lc *LinkContext, r Radio, hop bool) (bool, error) {
	if !hop {
		return false, nil
	}
	ch := lc.Hop.Advance()
	lc.LastHop = lc.Now()
	lc.Stats.Hops++
	lc.Events.Record(EvtHop, lc.LastHop, uint32(lc.Hop.Index()), uint32(ch))
	return true, r.SetChannel(ch)
}
