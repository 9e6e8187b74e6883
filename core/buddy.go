package core

import (
	"fmt"

	"hoplink/protocol"
)

// purpose byte of a pupil ack carrying stick data
const buddySticks = 0x01

// BuddyMaster is the instructor side of the buddy link. It polls the pupil
// transmitter and mixes the pupil's sticks into its own frame according to
// the command it sends.
type BuddyMaster struct {
	lc      *LinkContext
	radio   Radio
	session *Session

	command   protocol.BuddyCommand
	exchanges int
	seq       byte
	pupil     [protocol.LinkChannels]uint16
	fresh     bool

	buf     [protocol.MaxPayload]byte
	scratch [protocol.LinkChannels]uint16
}

// NewBuddyMaster pairs with the pupil through plain, which is XORed with
// the buddy key on the air
func NewBuddyMaster(lc *LinkContext, radio Radio, plain protocol.PipeAddress) *BuddyMaster {
	bc := lc.Config.Buddy
	b := &BuddyMaster{
		lc:    lc,
		radio: radio,
		session: NewSession(RoleBuddy, protocol.BuddyPipe,
			MissCountPolicy{MaxMisses: bc.MaxMisses}, []uint8{bc.QuietChannel}),
		command: protocol.NewBuddyCommand(protocol.MasterHasControl, 0),
	}
	b.session.SetAddress(plain)
	return b
}

func (b *BuddyMaster) Session() *Session { return b.session }

func (b *BuddyMaster) Init() error {
	if !b.radio.Probe() {
		return ErrNoTransceiver
	}
	if err := b.radio.OpenPipe(b.session.Pipe()); err != nil {
		return fmt.Errorf("buddy pipe: %w", err)
	}
	return b.radio.SetChannel(b.lc.Config.Buddy.Channel)
}

// SetCommand changes the role and switch bitmap sent to the pupil
func (b *BuddyMaster) SetCommand(c protocol.BuddyCommand) {
	b.command = c
}

func (b *BuddyMaster) Command() protocol.BuddyCommand { return b.command }

// Pupil returns the last stick frame received from the pupil
func (b *BuddyMaster) Pupil() []uint16 { return b.pupil[:] }

// Step runs one exchange with the pupil
func (b *BuddyMaster) Step() error {
	lc := b.lc
	bc := lc.Config.Buddy
	now := lc.Now()

	pkt := protocol.BuddyPacket{
		Special: bc.SpecialEvery > 0 && b.exchanges%bc.SpecialEvery == 0,
		Seq:     b.seq,
		ModelID: bc.ModelID,
		Command: b.command,
	}
	payload, err := protocol.EncodeBuddy(b.buf[:], pkt)
	if err != nil {
		return err
	}
	b.seq++
	b.exchanges++

	ack, ok := b.radio.Write(payload)
	if !ok {
		if b.session.Missed(now) == TransitionLost {
			b.fresh = false
			lc.Events.Record(EvtLost, now, uint32(b.session.Misses), uint32(RoleBuddy))
			lc.Log.Info("buddy lost", "misses", b.session.Misses)
			return b.radio.SetChannel(b.session.NextRecoveryChannel())
		}
		return nil
	}

	if b.session.Seen(now) == TransitionRestored {
		lc.Events.Record(EvtRestore, now, 0, uint32(RoleBuddy))
		lc.Log.Info("buddy connected", "pipe", b.session.Pipe())
		if err := b.radio.SetChannel(bc.Channel); err != nil {
			return err
		}
	}
	// only stick acks may replace the pupil frame
	purpose, err := protocol.DecodeBuddyAck(b.scratch[:], ack)
	if err == nil && purpose == buddySticks {
		b.pupil = b.scratch
		b.fresh = true
	}
	return nil
}

// Mix writes the frame to send to the vehicle. The master keeps control
// while the pupil is silent. The throttle channel is never blended: it
// comes from whichever side has control.
func (b *BuddyMaster) Mix(dst, master []uint16) {
	copy(dst, master)
	if !b.session.Alive() || !b.fresh {
		return
	}
	throttle := b.lc.Config.Buddy.ThrottleChannel
	n := min(len(dst), len(master), protocol.LinkChannels)

	switch b.command.Role() {
	case protocol.PupilHasControl:
		copy(dst[:n], b.pupil[:n])
	case protocol.MasterCanNudge:
		for i := 0; i < n; i++ {
			if i == throttle {
				continue
			}
			v := int(master[i]) + int(b.pupil[i]) - protocol.ChannelCentre
			dst[i] = uint16(max(protocol.ChannelMin, min(protocol.ChannelMax, v)))
		}
	}
}

// BuddyPupil is the student side: it answers the master with its sticks
// and follows the model and command the master announces
type BuddyPupil struct {
	lc      *LinkContext
	radio   Radio
	session *Session

	sticks   [protocol.LinkChannels]uint16
	modelID  uint32
	command  protocol.BuddyCommand
	specials uint32
	polls    uint32

	buf [protocol.MaxPayload]byte
	ack [protocol.BuddyAckLen]byte
}

func NewBuddyPupil(lc *LinkContext, radio Radio, plain protocol.PipeAddress) *BuddyPupil {
	bc := lc.Config.Buddy
	p := &BuddyPupil{
		lc:    lc,
		radio: radio,
		session: NewSession(RoleBuddy, protocol.BuddyPipe,
			TimeoutPolicy{Timeout: bc.PupilTimeout}, []uint8{bc.QuietChannel}),
	}
	for i := range p.sticks {
		p.sticks[i] = protocol.ChannelCentre
	}
	p.session.SetAddress(plain)
	return p
}

func (p *BuddyPupil) Session() *Session                { return p.session }
func (p *BuddyPupil) ModelID() uint32                  { return p.modelID }
func (p *BuddyPupil) Command() protocol.BuddyCommand   { return p.command }
func (p *BuddyPupil) Counts() (specials, polls uint32) { return p.specials, p.polls }

func (p *BuddyPupil) Init() error {
	if !p.radio.Probe() {
		return ErrNoTransceiver
	}
	if err := p.radio.OpenPipe(p.session.Pipe()); err != nil {
		return fmt.Errorf("buddy pipe: %w", err)
	}
	if err := p.radio.SetChannel(p.lc.Config.Buddy.Channel); err != nil {
		return err
	}
	p.radio.StartListening()
	return p.queueSticks()
}

// SetSticks updates the frame returned in the next ack
func (p *BuddyPupil) SetSticks(frame []uint16) error {
	copy(p.sticks[:], frame)
	protocol.Clamp12(p.sticks[:])
	return p.queueSticks()
}

func (p *BuddyPupil) queueSticks() error {
	ack, err := protocol.EncodeBuddyAck(p.ack[:], buddySticks, p.sticks[:])
	if err != nil {
		return err
	}
	p.radio.WriteAck(ack)
	return nil
}

// Poll handles one waiting master packet, or checks liveness
func (p *BuddyPupil) Poll() error {
	lc := p.lc
	now := lc.Now()

	if !p.radio.Available() {
		if p.session.Check(now) == TransitionLost {
			lc.Events.Record(EvtLost, now, Elapsed(now, p.session.LastSeen), uint32(RoleBuddy))
			lc.Log.Info("buddy master lost")
			return retune(p.radio, p.session.NextRecoveryChannel())
		}
		return nil
	}

	n := p.radio.Read(p.buf[:])
	pkt, err := protocol.DecodeBuddy(p.buf[:n])
	if err != nil {
		lc.Log.Debug("dropped buddy packet", "err", err)
		return nil
	}
	if pkt.Special {
		p.specials++
		if pkt.ModelID != p.modelID {
			lc.Log.Info("buddy model", "id", pkt.ModelID)
			p.modelID = pkt.ModelID
		}
	} else {
		p.polls++
	}
	p.command = pkt.Command

	if p.session.Seen(now) == TransitionRestored {
		lc.Events.Record(EvtRestore, now, 0, uint32(RoleBuddy))
		if err := retune(p.radio, lc.Config.Buddy.Channel); err != nil {
			return err
		}
	}
	return p.queueSticks()
}
