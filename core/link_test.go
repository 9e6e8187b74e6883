package core

import (
	"testing"

	"github.com/stretchr/testify/require"

	"hoplink/protocol"
	"hoplink/radio/sim"
	"hoplink/storage"
)

const testPipe = protocol.PipeAddress(0x0102030405)

type outFrame struct {
	clock uint32
	state ConnectionState
	frame [protocol.LinkChannels]uint16
}

type recordingOutput struct {
	clock  Clock
	frames []outFrame
}

func (o *recordingOutput) WriteFrame(frame []uint16, state ConnectionState) {
	f := outFrame{clock: o.clock.Millis(), state: state}
	copy(f.frame[:], frame)
	o.frames = append(o.frames, f)
}

// testLink is a receiver and transmitter sharing one simulated medium and
// one manual clock. The transmitter sends once every txPeriod simulated
// milliseconds, or every millisecond when unset.
type testLink struct {
	t      *testing.T
	clock  *ManualClock
	medium *sim.Medium

	txEp  *sim.Endpoint
	rxEp  *sim.Endpoint
	rxEp2 *sim.Endpoint

	txLC *LinkContext
	rxLC *LinkContext
	tx   *Transmitter
	rx   *Receiver

	out       *recordingOutput
	pipeStore *storage.MemStore
	fsStore   *storage.MemStore
	sticks    [protocol.LinkChannels]uint16
	txPeriod  uint32
}

type linkOptions struct {
	bound     bool
	bind      bool
	secondary bool
	failsafe  *protocol.FailsafeTable
	txPeriod  uint32
}

func newTestLink(t *testing.T, opts linkOptions) *testLink {
	t.Helper()
	l := &testLink{
		t:         t,
		clock:     NewManualClock(1000),
		medium:    sim.NewMedium(),
		pipeStore: &storage.MemStore{},
		fsStore:   &storage.MemStore{},
		txPeriod:  opts.txPeriod,
	}
	for i := range l.sticks {
		l.sticks[i] = 1500
	}
	if opts.bound {
		require.NoError(t, storage.SavePipe(l.pipeStore, testPipe))
		l.pipeStore.Saves = 0
	}
	if opts.failsafe != nil {
		require.NoError(t, storage.SaveFailsafe(l.fsStore, *opts.failsafe))
	}

	l.txEp = l.medium.NewEndpoint("tx")
	l.rxEp = l.medium.NewEndpoint("rx0")
	primary := &Transceiver{Name: "rx0", Radio: l.rxEp, CE: l.rxEp}
	var secondary *Transceiver
	if opts.secondary {
		l.rxEp2 = l.medium.NewEndpoint("rx1")
		secondary = &Transceiver{Name: "rx1", Radio: l.rxEp2, CE: l.rxEp2}
	}

	l.txLC = NewLinkContext(DefaultConfig(), l.clock)
	l.rxLC = NewLinkContext(DefaultConfig(), l.clock)
	l.rxLC.Yield = l.tick
	l.out = &recordingOutput{clock: l.clock}

	l.tx = NewTransmitter(l.txLC, TransmitterOptions{Radio: l.txEp, Pipe: testPipe, Bind: opts.bind})
	l.rx = NewReceiver(l.rxLC, ReceiverOptions{
		Primary:       primary,
		Secondary:     secondary,
		PipeStore:     l.pipeStore,
		FailsafeStore: l.fsStore,
		Output:        l.out,
	})
	require.NoError(t, l.tx.Init())
	require.NoError(t, l.rx.Init())
	return l
}

// tick advances one millisecond and lets the transmitter send when its
// period is up
func (l *testLink) tick() {
	l.clock.Advance(1)
	if l.txPeriod > 1 && l.clock.Millis()%l.txPeriod != 0 {
		return
	}
	require.NoError(l.t, l.tx.Step(l.sticks[:]))
}

// run drives both ends for ms simulated milliseconds
func (l *testLink) run(ms uint32) {
	deadline := l.clock.Millis() + ms
	for !Reached(l.clock.Millis(), deadline) {
		l.tick()
		require.NoError(l.t, l.rx.Poll())
	}
}

// runUntil drives both ends until cond holds, failing after limit ms
func (l *testLink) runUntil(limit uint32, cond func() bool) {
	deadline := l.clock.Millis() + limit
	for !cond() {
		require.False(l.t, Reached(l.clock.Millis(), deadline), "condition not met within %d ms", limit)
		l.tick()
		require.NoError(l.t, l.rx.Poll())
	}
}

func (l *testLink) connected() bool {
	return l.rxLC.State == Connected && l.txLC.State == Connected
}
