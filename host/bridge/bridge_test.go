package bridge

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hoplink/core"
	"hoplink/protocol"
)

func TestConnFeedsMonitor(t *testing.T) {
	host, device := net.Pipe()
	defer device.Close()

	var m core.Monitor
	c := New(host, &m, nil)

	tx := core.NewTelemetryBridge(device)
	var a protocol.AckPayload
	a.Purpose = byte(core.ItemPackets)
	a.SetUint32(87)
	require.NoError(t, tx.Ack(a))
	require.NoError(t, tx.Link(core.LinkRecord{State: core.Connected, Index: 7}))

	require.Eventually(t, func() bool {
		var frames uint32
		c.View(func(m *core.Monitor) { frames = m.Frames() })
		return frames == 2
	}, time.Second, 5*time.Millisecond)

	c.View(func(m *core.Monitor) {
		r, ok := m.Table.Get(core.ItemPackets)
		require.True(t, ok)
		assert.Equal(t, uint32(87), r.Count)
		assert.Equal(t, core.Connected, m.Link.State)
		assert.Equal(t, uint8(7), m.Link.Index)
	})
	assert.Zero(t, c.Dropped())

	require.NoError(t, c.Close())
	select {
	case <-c.Done():
	default:
		t.Fatal("reader still running after Close")
	}
}

func TestConnStopsOnPeerClose(t *testing.T) {
	host, device := net.Pipe()
	var m core.Monitor
	c := New(host, &m, nil)

	require.NoError(t, device.Close())
	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("reader did not stop")
	}
	assert.Error(t, c.Err())
	_ = c.Close()
}

func TestConnSkipsLineNoise(t *testing.T) {
	host, device := net.Pipe()
	defer device.Close()

	var m core.Monitor
	c := New(host, &m, nil)
	defer c.Close()

	_, err := device.Write([]byte{0x03, 0x99, 0x42, protocol.MessageValueSync})
	require.NoError(t, err)
	tx := core.NewTelemetryBridge(device)
	require.NoError(t, tx.Link(core.LinkRecord{State: core.Reconnecting}))

	require.Eventually(t, func() bool {
		var st core.ConnectionState
		c.View(func(m *core.Monitor) { st = m.Link.State })
		return st == core.Reconnecting
	}, time.Second, 5*time.Millisecond)
}
