package core

import (
	"fmt"
	"io"

	"hoplink/protocol"
)

// TransmitterOptions wires the handheld end of the link
type TransmitterOptions struct {
	Radio Radio
	Pipe  protocol.PipeAddress

	// Bind starts in bind mode, announcing Pipe on the bind pipe
	Bind bool

	// Bridge receives framed telemetry for a host tool. May be nil.
	Bridge io.Writer
}

// Transmitter is the pilot end. It follows the receiver's hop flag and
// collects the telemetry carried in acks. Step is one loop iteration.
type Transmitter struct {
	lc      *LinkContext
	radio   Radio
	session *Session
	pipe    protocol.PipeAddress
	bridge  *TelemetryBridge
	table   TelemetryTable

	binding    bool
	bindAcks   int
	awaitProbe bool
	bindEnded  uint32
	hunting    bool
	dwellUntil uint32

	seq      byte
	failsafe *protocol.FailsafeTable

	buf   [protocol.MaxPayload]byte
	frame [protocol.LinkChannels]uint16
}

func NewTransmitter(lc *LinkContext, opts TransmitterOptions) *Transmitter {
	t := &Transmitter{
		lc:    lc,
		radio: opts.Radio,
		session: NewSession(RolePrimary, PlainAddress,
			TimeoutPolicy{Timeout: lc.Config.HopInterval}, lc.Config.RecoveryChannels),
		pipe:    opts.Pipe,
		binding: opts.Bind,
	}
	if opts.Bridge != nil {
		t.bridge = NewTelemetryBridge(opts.Bridge)
	}
	t.session.SetAddress(opts.Pipe)
	return t
}

func (t *Transmitter) Context() *LinkContext      { return t.lc }
func (t *Transmitter) Session() *Session          { return t.session }
func (t *Transmitter) Telemetry() *TelemetryTable { return &t.table }
func (t *Transmitter) Binding() bool              { return t.binding }
func (t *Transmitter) Pipe() protocol.PipeAddress { return t.pipe }

// Init probes the radio and tunes to the first recovery channel, where the
// receiver listens at boot
func (t *Transmitter) Init() error {
	lc := t.lc
	if t.radio == nil || !t.radio.Probe() {
		return ErrNoTransceiver
	}
	if len(lc.Config.RecoveryChannels) == 0 {
		return fmt.Errorf("transmitter: no recovery channels configured")
	}
	pipe := t.pipe
	if t.binding {
		pipe = protocol.DefaultBindPipe
	}
	if err := t.radio.OpenPipe(pipe); err != nil {
		return fmt.Errorf("open pipe %v: %w", pipe, err)
	}
	ch := lc.Config.RecoveryChannels[0]
	lc.Hop.Park(ch)
	if err := t.radio.SetChannel(ch); err != nil {
		return fmt.Errorf("tune %d: %w", ch, err)
	}
	lc.SetState(Listening)
	t.report()
	return nil
}

// Bind restarts the bind announcement
func (t *Transmitter) Bind() error {
	t.binding = true
	t.bindAcks = 0
	t.awaitProbe = false
	t.hunting = false
	t.session.Reset()
	t.lc.SetState(Disconnected)
	ch := t.lc.Config.RecoveryChannels[0]
	t.lc.Hop.Park(ch)
	if err := t.radio.OpenPipe(protocol.DefaultBindPipe); err != nil {
		return err
	}
	return t.radio.SetChannel(ch)
}

// PushFailsafe queues a failsafe table for the receiver to store. It goes
// out in place of the next channel packet.
func (t *Transmitter) PushFailsafe(table protocol.FailsafeTable) {
	t.failsafe = &table
}

// Step sends one packet: a bind announcement, a pending failsafe push or
// the channel frame
func (t *Transmitter) Step(frame []uint16) error {
	now := t.lc.Now()
	if t.binding {
		return t.stepBind(now)
	}

	var payload []byte
	var err error
	pushing := t.failsafe != nil
	if pushing {
		payload, err = protocol.EncodeFailsafe(t.buf[:], t.seq, *t.failsafe)
	} else {
		copy(t.frame[:], frame)
		protocol.Clamp12(t.frame[:])
		payload, err = protocol.EncodeChannels(t.buf[:], protocol.KindChannels, t.seq, t.frame[:])
	}
	if err != nil {
		return err
	}
	t.seq++

	ack, ok := t.radio.Write(payload)
	if !ok {
		return t.missed(now)
	}
	if pushing {
		t.failsafe = nil
	}
	t.contact(now)

	a, err := protocol.DecodeAck(ack)
	if err != nil {
		// empty ack: the receiver had nothing queued
		return nil
	}
	active := t.active()
	item, known := t.table.Update(a)
	if known && t.bridge != nil {
		if err := t.bridge.Ack(a); err != nil {
			t.lc.Log.Debug("telemetry bridge", "err", err)
		}
	}
	hopped, err := FollowHop(t.lc, t.radio, a.Hop())
	if hopped || (item == ItemActiveRadio && t.active() != active) {
		t.report()
	}
	return err
}

func (t *Transmitter) stepBind(now uint32) error {
	lc := t.lc
	payload, err := protocol.EncodeChannels(t.buf[:], protocol.KindBind, t.seq, protocol.BindFrame(t.pipe))
	if err != nil {
		return err
	}
	t.seq++
	if _, ok := t.radio.Write(payload); !ok {
		return nil
	}
	t.bindAcks++
	if t.bindAcks < lc.Config.BindAcks {
		return nil
	}
	t.binding = false
	t.awaitProbe = true
	t.bindEnded = now
	lc.Log.Info("bind sent", "pipe", t.pipe, "acks", t.bindAcks)
	return t.radio.OpenPipe(t.pipe)
}

// contact records a successful exchange
func (t *Transmitter) contact(now uint32) {
	lc := t.lc
	lc.LastPacket = now
	lc.Stats.Packets++
	t.awaitProbe = false
	t.hunting = false
	if t.session.Seen(now) != TransitionRestored {
		return
	}
	if lc.State == Reconnecting {
		lc.Stats.Reconnects++
	}
	lc.Events.Record(EvtRestore, now, 0, 0)
	lc.SetState(Connected)
	t.report()
}

// missed handles a failed exchange: after a hop interval of silence park
// and walk the recovery channels, dwelling RecoveryDwell on each whatever
// the step rate
func (t *Transmitter) missed(now uint32) error {
	lc := t.lc
	if t.session.Alive() {
		if t.session.Check(now) != TransitionLost {
			return nil
		}
		lc.Events.Record(EvtLost, now, Elapsed(now, lc.LastPacket), 0)
		lc.SetState(Reconnecting)
		t.report()
	}

	if t.awaitProbe {
		// the receiver probes only the first recovery channel
		if Elapsed(now, t.bindEnded) < 10*lc.Config.ProbeWindow {
			return nil
		}
		lc.Log.Warn("no contact after bind, announcing again", "pipe", t.pipe)
		return t.Bind()
	}

	if t.hunting && !Reached(now, t.dwellUntil) {
		return nil
	}
	t.hunting = true
	t.dwellUntil = now + lc.Config.RecoveryDwell()
	ch := t.session.NextRecoveryChannel()
	lc.Hop.Park(ch)
	return t.radio.SetChannel(ch)
}

func (t *Transmitter) report() {
	if t.bridge == nil {
		return
	}
	rec := LinkRecord{State: t.lc.State, Active: t.active(), Index: uint8(t.lc.Hop.Index())}
	if err := t.bridge.Link(rec); err != nil {
		t.lc.Log.Debug("telemetry bridge", "err", err)
	}
}

// active is the receiver transceiver last reported in telemetry
func (t *Transmitter) active() uint8 {
	r, _ := t.table.Get(ItemActiveRadio)
	return uint8(r.Count)
}
