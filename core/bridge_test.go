package core

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hoplink/protocol"
	"hoplink/radio/sim"
	"hoplink/storage"
)

func TestBridgeRoundTrip(t *testing.T) {
	var wire bytes.Buffer
	b := NewTelemetryBridge(&wire)

	var a protocol.AckPayload
	a.Purpose = byte(ItemVolts)
	a.SetFloat(11.1)
	require.NoError(t, b.Ack(a))
	require.NoError(t, b.Link(LinkRecord{State: FailsafeActive, Active: 1, Index: 42}))

	var m Monitor
	var links []LinkRecord
	m.OnLink = func(rec LinkRecord) { links = append(links, rec) }
	protocol.NewFrameReader(m.Handle).Receive(protocol.NewSliceInputBuffer(wire.Bytes()))

	assert.Equal(t, uint32(2), m.Frames())
	assert.Zero(t, m.Unknown())
	r, ok := m.Table.Get(ItemVolts)
	require.True(t, ok)
	assert.InDelta(t, 11.1, r.Float, 1e-5)
	require.Len(t, links, 1)
	assert.Equal(t, LinkRecord{State: FailsafeActive, Active: 1, Index: 42}, m.Link)
}

func TestMonitorRejectsUnknownRecords(t *testing.T) {
	var m Monitor
	m.Handle(0, nil)
	m.Handle(0, []byte{0x7F, 1, 2})
	m.Handle(0, []byte{protocol.RecordLink, 1})
	assert.Equal(t, uint32(3), m.Unknown())
}

func TestTransmitterForwardsTelemetry(t *testing.T) {
	clock := NewManualClock(0)
	medium := sim.NewMedium()
	txEp := medium.NewEndpoint("tx")
	rxEp := medium.NewEndpoint("rx")
	pipes := &storage.MemStore{}
	require.NoError(t, storage.SavePipe(pipes, testPipe))

	var wire bytes.Buffer
	txLC := NewLinkContext(DefaultConfig(), clock)
	rxLC := NewLinkContext(DefaultConfig(), clock)
	tx := NewTransmitter(txLC, TransmitterOptions{Radio: txEp, Pipe: testPipe, Bridge: &wire})
	rx := NewReceiver(rxLC, ReceiverOptions{Primary: &Transceiver{Name: "rx", Radio: rxEp}, PipeStore: pipes})
	rxLC.Yield = func() {
		clock.Advance(1)
		require.NoError(t, tx.Step(frameOf(1500)))
	}
	require.NoError(t, tx.Init())
	require.NoError(t, rx.Init())

	for i := 0; i < 300; i++ {
		clock.Advance(1)
		require.NoError(t, tx.Step(frameOf(1500)))
		require.NoError(t, rx.Poll())
	}

	var m Monitor
	protocol.NewFrameReader(m.Handle).Receive(protocol.NewSliceInputBuffer(wire.Bytes()))
	assert.Zero(t, m.Unknown())
	assert.Equal(t, Connected, m.Link.State)
	assert.Equal(t, uint8(txLC.Hop.Index()), m.Link.Index)
	assert.Equal(t, "2.4.1", m.Table.Format(ItemVersion))
	assert.Equal(t, tx.Telemetry().Format(ItemPackets), m.Table.Format(ItemPackets))
}

func TestTransmitterReportsActiveRadio(t *testing.T) {
	clock := NewManualClock(0)
	medium := sim.NewMedium()
	txEp := medium.NewEndpoint("tx")
	rxEp := medium.NewEndpoint("rx")

	var wire bytes.Buffer
	txLC := NewLinkContext(DefaultConfig(), clock)
	tx := NewTransmitter(txLC, TransmitterOptions{Radio: txEp, Pipe: testPipe, Bridge: &wire})
	require.NoError(t, tx.Init())

	require.NoError(t, rxEp.OpenPipe(testPipe))
	require.NoError(t, rxEp.SetChannel(txLC.Config.RecoveryChannels[0]))
	rxEp.StartListening()

	var a protocol.AckPayload
	a.Purpose = byte(ItemActiveRadio)
	CountReading(1).encode(ItemActiveRadio, &a)
	var buf [protocol.AckPayloadLen]byte
	rxEp.WriteAck(a.Encode(buf[:]))

	clock.Advance(1)
	require.NoError(t, tx.Step(frameOf(1500)))

	var m Monitor
	var links []LinkRecord
	m.OnLink = func(rec LinkRecord) { links = append(links, rec) }
	protocol.NewFrameReader(m.Handle).Receive(protocol.NewSliceInputBuffer(wire.Bytes()))
	require.NotEmpty(t, links)
	assert.Equal(t, Connected, m.Link.State)
	assert.Equal(t, uint8(1), m.Link.Active)
	assert.Equal(t, uint8(0), links[0].Active)
}
