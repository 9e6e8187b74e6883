package core

import (
	"fmt"

	"hoplink/protocol"
	"hoplink/storage"
)

// ReceiverOptions wires a receiver to its collaborators. Secondary, the
// stores, Output and Telemetry may be nil.
type ReceiverOptions struct {
	Primary   *Transceiver
	Secondary *Transceiver

	PipeStore     storage.Store
	FailsafeStore storage.Store

	Output    Output
	Telemetry TelemetrySource
}

// Receiver is the vehicle end of the link and its timing master. Poll is
// one iteration of the cooperative loop.
type Receiver struct {
	lc        *LinkContext
	pair      *TransceiverPair
	binder    *Binder
	session   *Session
	hop       HopScheduler
	mux       *Multiplexer
	failsafe  *Failsafe
	reconnect *Reconnector
	output    Output

	sched     Scheduler
	keepAlive Timer
	uptime    Timer

	buf   [protocol.MaxPayload]byte
	ack   [protocol.AckPayloadLen]byte
	frame [protocol.LinkChannels]uint16
}

func NewReceiver(lc *LinkContext, opts ReceiverOptions) *Receiver {
	r := &Receiver{
		lc:     lc,
		pair:   NewTransceiverPair(opts.Primary, opts.Secondary),
		binder: NewBinder(lc, opts.PipeStore),
		session: NewSession(RolePrimary, PlainAddress,
			TimeoutPolicy{Timeout: lc.Config.HopInterval}, lc.Config.RecoveryChannels),
		hop:      NewHopScheduler(lc),
		mux:      NewMultiplexer(lc.Config.Sensors, opts.Telemetry),
		failsafe: NewFailsafe(lc, opts.FailsafeStore),
		output:   opts.Output,
	}
	r.reconnect = NewReconnector(lc, r.pair, r.session, r.failsafe, &r.sched)
	r.keepAlive.Handler = r.keepAliveEvent
	r.uptime.Handler = r.uptimeEvent
	return r
}

func (r *Receiver) Context() *LinkContext          { return r.lc }
func (r *Receiver) Binder() *Binder                { return r.binder }
func (r *Receiver) Session() *Session              { return r.session }
func (r *Receiver) Failsafe() *Failsafe            { return r.failsafe }
func (r *Receiver) Multiplexer() *Multiplexer      { return r.mux }
func (r *Receiver) Transceivers() *TransceiverPair { return r.pair }

// Init probes the transceivers and restores the persisted pipe and
// failsafe table. ErrNoTransceiver means the loop must not start.
func (r *Receiver) Init() error {
	lc := r.lc
	if len(lc.Config.RecoveryChannels) == 0 {
		return fmt.Errorf("receiver: no recovery channels configured")
	}
	if err := r.pair.Init(lc); err != nil {
		return err
	}
	if err := r.failsafe.Load(); err != nil {
		lc.Log.Warn("failsafe table ignored", "err", err)
	}

	pipe, bound, err := r.binder.Load()
	if err != nil {
		lc.Log.Warn("stored pipe ignored", "err", err)
	}
	if bound {
		r.session.SetAddress(pipe)
		lc.Log.Info("bound", "pipe", pipe)
		err = r.listenOn(pipe, lc.Config.RecoveryChannels[0])
		lc.SetState(Listening)
	} else {
		lc.Log.Info("no stored pipe, waiting for bind")
		err = r.listenOn(protocol.DefaultBindPipe, lc.Config.RecoveryChannels[0])
		lc.SetState(Disconnected)
	}
	if err != nil {
		return err
	}

	r.mux.Fill(lc, false)
	r.pair.Radio().WriteAck(lc.Ack.Encode(r.ack[:]))

	now := lc.Now()
	r.keepAlive.WakeTime = now + lc.Config.OutputInterval
	r.sched.Schedule(&r.keepAlive)
	r.uptime.WakeTime = now + 1000
	r.sched.Schedule(&r.uptime)
	return nil
}

func (r *Receiver) listenOn(pipe protocol.PipeAddress, ch uint8) error {
	radio := r.pair.Radio()
	radio.StopListening()
	for radio.Available() {
		radio.Read(r.buf[:])
	}
	if err := radio.OpenPipe(pipe); err != nil {
		return fmt.Errorf("open pipe %v: %w", pipe, err)
	}
	if err := radio.SetChannel(ch); err != nil {
		return fmt.Errorf("tune %d: %w", ch, err)
	}
	radio.StartListening()
	r.lc.Hop.Park(ch)
	return nil
}

// Poll runs one loop iteration: receive or search, then publish the
// output frame.
func (r *Receiver) Poll() error {
	lc := r.lc
	now := lc.Now()
	r.sched.Dispatch(now)

	if r.binder.State() != Bound {
		return r.pollBind()
	}

	radio := r.pair.Radio()
	if radio.Available() {
		if err := r.receive(now); err != nil {
			return err
		}
		r.publish()
		return nil
	}

	if lc.State == Connected && r.session.Check(now) == TransitionLost {
		r.reconnect.Lost(now)
	}
	if lc.State.Searching() {
		if r.reconnect.Armed() {
			r.failsafe.Check(now)
		}
		got, err := r.reconnect.Attempt()
		if err != nil {
			return err
		}
		if got {
			if err := r.receive(lc.Now()); err != nil {
				return err
			}
		}
	}
	r.publish()
	return nil
}

// receive handles one packet waiting on the active radio
func (r *Receiver) receive(now uint32) error {
	lc := r.lc
	radio := r.pair.Radio()
	n := radio.Read(r.buf[:])
	pkt, err := protocol.DecodePacket(r.buf[:n])
	if err != nil {
		lc.Log.Debug("dropped packet", "err", err)
		return nil
	}

	switch pkt.Kind {
	case protocol.KindChannels:
		if err := protocol.DecodeChannels(r.frame[:], pkt.Body); err != nil {
			lc.Log.Debug("dropped channels", "err", err)
			return nil
		}
		lc.Frame = r.frame
	case protocol.KindFailsafe:
		t, err := protocol.DecodeFailsafe(pkt.Body)
		if err != nil {
			lc.Log.Debug("dropped failsafe push", "err", err)
			return nil
		}
		if err := r.failsafe.Save(t); err != nil {
			lc.Log.Error("failsafe table not saved", "err", err)
		}
	default:
		return nil
	}

	lc.LastPacket = now
	lc.Stats.Packets++
	if r.session.Seen(now) == TransitionRestored {
		r.reconnect.Restored(now)
		r.hop.ForceDue(now)
	} else if _, err := r.hop.ExchangeDone(radio, now); err != nil {
		return fmt.Errorf("hop: %w", err)
	}

	hop := r.hop.PrepareAck(now)
	r.mux.Tick(lc, hop)
	radio.WriteAck(lc.Ack.Encode(r.ack[:]))
	return nil
}

// pollBind listens on the bind pipe for address announcements
func (r *Receiver) pollBind() error {
	lc := r.lc
	radio := r.pair.Radio()
	if !radio.Available() {
		return nil
	}
	n := radio.Read(r.buf[:])
	pkt, err := protocol.DecodePacket(r.buf[:n])
	if err != nil || pkt.Kind != protocol.KindBind {
		return nil
	}
	if err := protocol.DecodeChannels(r.frame[:], pkt.Body); err != nil {
		return nil
	}
	candidate, err := protocol.BindCandidate(r.frame[:])
	if err != nil {
		lc.Log.Debug("corrupt bind candidate", "err", err)
		return nil
	}
	if !r.binder.Observe(candidate) {
		return nil
	}
	return r.probe(candidate)
}

// probe switches to a validated candidate and waits for data on it before
// declaring the bind
func (r *Receiver) probe(candidate protocol.PipeAddress) error {
	lc := r.lc
	ch := lc.Config.RecoveryChannels[0]
	if err := r.listenOn(candidate, ch); err != nil {
		return err
	}
	if err := r.binder.Commit(candidate); err != nil {
		lc.Log.Error("pipe not persisted", "pipe", candidate, "err", err)
	}
	r.session.SetAddress(candidate)

	start := lc.Now()
	ok := r.reconnect.Listen(start + lc.Config.ProbeWindow)
	var v uint32
	if ok {
		v = 1
	}
	lc.Events.Record(EvtProbe, lc.Now(), v, Elapsed(lc.Now(), start))

	if !ok {
		lc.Log.Info("bind probe timed out", "pipe", candidate)
		r.binder.Reject()
		return r.listenOn(protocol.DefaultBindPipe, ch)
	}
	r.binder.Confirm()
	lc.Log.Info("bound", "pipe", candidate)
	lc.SetState(Listening)
	return r.receive(lc.Now())
}

// Unbind drops the current pipe and goes back to waiting for a bind. The
// stored address is kept so rebinding to it does not rewrite storage.
func (r *Receiver) Unbind() error {
	lc := r.lc
	r.binder.Unbind()
	r.session.Reset()
	r.failsafe.Clear()
	r.reconnect.Disarm()
	lc.HopPending = false
	lc.SetState(Disconnected)
	return r.listenOn(protocol.DefaultBindPipe, lc.Config.RecoveryChannels[0])
}

// publish hands the current frame to the output once the link has carried
// data
func (r *Receiver) publish() {
	if r.output == nil || !r.reconnect.Armed() {
		return
	}
	r.failsafe.Fill(r.lc.Output[:])
	r.output.WriteFrame(r.lc.Output[:], r.lc.State)
}

// keepAliveEvent feeds the output from inside bounded waits
func (r *Receiver) keepAliveEvent(t *Timer) uint8 {
	if r.lc.State.Searching() {
		r.publish()
	}
	r.rearm(t, r.lc.Config.OutputInterval)
	return SF_RESCHEDULE
}

// uptimeEvent accumulates connected seconds per transceiver
func (r *Receiver) uptimeEvent(t *Timer) uint8 {
	if r.lc.State == Connected {
		r.lc.Stats.RadioSeconds[r.pair.ActiveIndex()]++
	}
	r.rearm(t, 1000)
	return SF_RESCHEDULE
}

// rearm keeps a periodic timer on its cadence without replaying missed
// periods after a long stall
func (r *Receiver) rearm(t *Timer, period uint32) {
	t.WakeTime += period
	if now := r.lc.Now(); Reached(now, t.WakeTime) {
		t.WakeTime = now + period
	}
}
