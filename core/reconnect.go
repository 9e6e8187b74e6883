package core

import "hoplink/protocol"

// Reconnector hunts the recovery channels after contact is lost and
// arbitrates failsafe while it does.
type Reconnector struct {
	lc       *LinkContext
	pair     *TransceiverPair
	session  *Session
	failsafe *Failsafe
	sched    *Scheduler

	// armed once the link has carried data; a receiver that never had
	// contact searches without failsafe
	armed  bool
	lostAt uint32
}

func NewReconnector(lc *LinkContext, pair *TransceiverPair, session *Session, fs *Failsafe, sched *Scheduler) *Reconnector {
	return &Reconnector{lc: lc, pair: pair, session: session, failsafe: fs, sched: sched}
}

func (rc *Reconnector) Armed() bool    { return rc.armed }
func (rc *Reconnector) LostAt() uint32 { return rc.lostAt }

// Disarm stops failsafe and output until the next contact
func (rc *Reconnector) Disarm() {
	rc.armed = false
}

// requeueAck replaces whatever ack the active radio holds with the current
// payload minus the hop flag. A stale flag delivered on the first exchange
// after contact would split the pair across channels.
func (rc *Reconnector) requeueAck() {
	var buf [protocol.AckPayloadLen]byte
	rc.lc.Ack.SetHop(false)
	rc.pair.Radio().WriteAck(rc.lc.Ack.Encode(buf[:]))
}

// Lost moves a connected link into the search
func (rc *Reconnector) Lost(now uint32) {
	lc := rc.lc
	rc.lostAt = now
	lc.SetState(Reconnecting)
	lc.HopPending = false
	if len(lc.Config.RecoveryChannels) > 0 {
		lc.Hop.Park(lc.Config.RecoveryChannels[0])
	}
	rc.requeueAck()
	lc.Events.Record(EvtLost, now, Elapsed(now, lc.LastPacket), 0)
	lc.Log.Info("link lost", "since_packet_ms", Elapsed(now, lc.LastPacket))
}

// Attempt runs one listen cycle on the next recovery channel, swapping
// transceivers every SwapEvery attempts when two are fitted. Returns true
// as soon as a packet is waiting.
func (rc *Reconnector) Attempt() (bool, error) {
	lc := rc.lc
	ch := rc.session.NextRecoveryChannel()
	n := rc.session.Attempts()
	now := lc.Now()

	every := lc.Config.SwapEvery
	if rc.pair.Dual() && every > 0 && n > every && (n-1)%every == 0 {
		if err := rc.pair.Handoff(rc.session.Pipe(), ch); err != nil {
			return false, err
		}
		lc.Stats.ActiveRadio = uint8(rc.pair.ActiveIndex())
		rc.requeueAck()
		lc.Events.Record(EvtSwap, now, uint32(rc.pair.ActiveIndex()), uint32(n))
		lc.Log.Debug("transceiver swap", "active", rc.pair.Active().Name)
	} else if err := retune(rc.pair.Radio(), ch); err != nil {
		return false, err
	}
	lc.Hop.Park(ch)
	lc.Events.Record(EvtSearch, now, uint32(ch), uint32(n))

	return rc.Listen(now + lc.Config.ListenWindow), nil
}

// Listen spin-waits on the active radio until deadline. The watchdog, the
// failsafe deadline and the timer list are serviced every iteration.
func (rc *Reconnector) Listen(deadline uint32) bool {
	lc := rc.lc
	r := rc.pair.Radio()
	for {
		if r.Available() {
			return true
		}
		now := lc.Now()
		if rc.armed {
			rc.failsafe.Check(now)
		}
		rc.sched.Dispatch(now)
		if Reached(now, deadline) {
			return false
		}
		lc.service()
	}
}

// Restored handles first contact after a search. The latch is cleared once
// per episode; a call while already connected does nothing.
func (rc *Reconnector) Restored(now uint32) {
	lc := rc.lc
	if lc.State == Connected {
		return
	}
	wasLost := lc.State == Reconnecting || lc.State == FailsafeActive
	lc.Stats.ActiveRadio = uint8(rc.pair.ActiveIndex())
	if wasLost {
		lc.Stats.Reconnects++
		rc.failsafe.Clear()
		lc.Events.Record(EvtRestore, now, uint32(rc.pair.ActiveIndex()), Elapsed(now, rc.lostAt))
		lc.Log.Info("link restored", "radio", rc.pair.Active().Name, "outage_ms", Elapsed(now, rc.lostAt))
	} else {
		lc.Events.Record(EvtRestore, now, uint32(rc.pair.ActiveIndex()), 0)
		lc.Log.Info("link up", "radio", rc.pair.Active().Name)
	}
	rc.armed = true
	lc.SetState(Connected)
}
