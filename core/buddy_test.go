package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hoplink/protocol"
	"hoplink/radio/sim"
)

type buddyLink struct {
	t        *testing.T
	clock    *ManualClock
	medium   *sim.Medium
	masterEp *sim.Endpoint
	pupilEp  *sim.Endpoint
	master   *BuddyMaster
	pupil    *BuddyPupil
}

func newBuddyLink(t *testing.T) *buddyLink {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Buddy.ModelID = 0xCAFE
	b := &buddyLink{t: t, clock: NewManualClock(0), medium: sim.NewMedium()}
	b.masterEp = b.medium.NewEndpoint("master")
	b.pupilEp = b.medium.NewEndpoint("pupil")
	b.master = NewBuddyMaster(NewLinkContext(cfg, b.clock), b.masterEp, testPipe)
	b.pupil = NewBuddyPupil(NewLinkContext(cfg, b.clock), b.pupilEp, testPipe)
	require.NoError(t, b.master.Init())
	require.NoError(t, b.pupil.Init())
	return b
}

func (b *buddyLink) run(ms int) {
	for i := 0; i < ms; i++ {
		b.clock.Advance(1)
		require.NoError(b.t, b.master.Step())
		require.NoError(b.t, b.pupil.Poll())
	}
}

func frameOf(v uint16) []uint16 {
	f := make([]uint16, protocol.LinkChannels)
	for i := range f {
		f[i] = v
	}
	return f
}

func TestBuddyPipeIsKeyed(t *testing.T) {
	b := newBuddyLink(t)
	assert.Equal(t, protocol.BuddyPipe(testPipe), b.masterEp.Pipe())
	assert.NotEqual(t, testPipe, b.masterEp.Pipe())
	assert.Equal(t, uint8(101), b.masterEp.Channel())
}

func TestBuddyExchange(t *testing.T) {
	b := newBuddyLink(t)
	require.NoError(t, b.pupil.SetSticks(frameOf(1200)))
	b.master.SetCommand(protocol.NewBuddyCommand(protocol.PupilHasControl, 0x05))
	b.run(100)

	assert.True(t, b.master.Session().Alive())
	assert.True(t, b.pupil.Session().Alive())
	assert.Equal(t, uint32(0xCAFE), b.pupil.ModelID())
	assert.Equal(t, byte(protocol.PupilHasControl), b.pupil.Command().Role())
	assert.Equal(t, byte(0x05), b.pupil.Command().Switches())

	specials, polls := b.pupil.Counts()
	assert.Equal(t, uint32(4), specials)
	assert.Equal(t, uint32(96), polls)
	assert.Equal(t, frameOf(1200), b.master.Pupil())
}

func TestBuddyMix(t *testing.T) {
	b := newBuddyLink(t)
	require.NoError(t, b.pupil.SetSticks(frameOf(1100)))
	master := frameOf(1000)
	dst := make([]uint16, protocol.LinkChannels)

	// no pupil yet: master keeps control whatever the command says
	b.master.SetCommand(protocol.NewBuddyCommand(protocol.PupilHasControl, 0))
	b.master.Mix(dst, master)
	assert.Equal(t, master, dst)

	b.run(10)
	b.master.Mix(dst, master)
	assert.Equal(t, frameOf(1100), dst)

	b.master.SetCommand(protocol.NewBuddyCommand(protocol.MasterHasControl, 0))
	b.master.Mix(dst, master)
	assert.Equal(t, master, dst)

	b.master.SetCommand(protocol.NewBuddyCommand(protocol.MasterCanNudge, 0))
	b.master.Mix(dst, master)
	throttle := DefaultConfig().Buddy.ThrottleChannel
	for i, v := range dst {
		if i == throttle {
			assert.Equal(t, uint16(1000), v, "throttle is never blended")
			continue
		}
		assert.Equal(t, uint16(1000+1100-protocol.ChannelCentre), v, "channel %d", i)
	}

	// nudging clamps to the channel range
	require.NoError(t, b.pupil.SetSticks(frameOf(protocol.ChannelMax)))
	b.run(2)
	b.master.Mix(dst, frameOf(1800))
	assert.Equal(t, uint16(protocol.ChannelMax), dst[0])
	assert.Equal(t, uint16(1800), dst[throttle])
}

func TestBuddyLossAndRecovery(t *testing.T) {
	b := newBuddyLink(t)
	b.run(50)
	require.True(t, b.master.Session().Alive())

	cfg := DefaultConfig().Buddy
	b.medium.Blackout(true)
	b.run(int(cfg.PupilTimeout) + 10)

	assert.False(t, b.master.Session().Alive())
	assert.False(t, b.pupil.Session().Alive())
	assert.Equal(t, cfg.QuietChannel, b.masterEp.Channel())
	assert.Equal(t, cfg.QuietChannel, b.pupilEp.Channel())

	dst := make([]uint16, protocol.LinkChannels)
	b.master.SetCommand(protocol.NewBuddyCommand(protocol.PupilHasControl, 0))
	b.master.Mix(dst, frameOf(1000))
	assert.Equal(t, frameOf(1000), dst, "dead pupil never takes control")

	b.medium.Blackout(false)
	b.run(5)
	assert.True(t, b.master.Session().Alive())
	assert.True(t, b.pupil.Session().Alive())
	assert.Equal(t, cfg.Channel, b.masterEp.Channel())
	assert.Equal(t, cfg.Channel, b.pupilEp.Channel())
}

func TestBuddyIgnoresOtherAcks(t *testing.T) {
	b := newBuddyLink(t)
	require.NoError(t, b.pupil.SetSticks(frameOf(1200)))
	b.run(10)
	require.Equal(t, frameOf(1200), b.master.Pupil())

	var buf [protocol.BuddyAckLen]byte
	ack, err := protocol.EncodeBuddyAck(buf[:], buddySticks+1, frameOf(1900))
	require.NoError(t, err)
	b.pupilEp.WriteAck(ack)

	b.clock.Advance(1)
	require.NoError(t, b.master.Step())
	assert.Equal(t, frameOf(1200), b.master.Pupil())

	dst := make([]uint16, protocol.LinkChannels)
	b.master.SetCommand(protocol.NewBuddyCommand(protocol.PupilHasControl, 0))
	b.master.Mix(dst, frameOf(1000))
	assert.Equal(t, frameOf(1200), dst)
}
