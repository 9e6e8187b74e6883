package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailsafeTableBinary(t *testing.T) {
	var table FailsafeTable
	table.Values[0] = 90
	table.Enabled[0] = true
	table.Values[15] = 180
	table.Enabled[15] = true

	b, err := table.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, b, FailsafeBytes)
	assert.Equal(t, byte(90), b[0])
	assert.Equal(t, byte(1), b[16])
	assert.Equal(t, byte(0), b[17])

	var got FailsafeTable
	require.NoError(t, got.UnmarshalBinary(b))
	assert.Equal(t, table, got)

	assert.ErrorIs(t, got.UnmarshalBinary(b[:10]), ErrFailsafeLength)
}

func TestServoToChannel(t *testing.T) {
	assert.Equal(t, uint16(ChannelMin), ServoToChannel(0))
	assert.Equal(t, uint16(ChannelMax), ServoToChannel(180))
	assert.Equal(t, uint16(ChannelMax), ServoToChannel(255))
	assert.InDelta(t, ChannelCentre, float64(ServoToChannel(90)), 2)
}

func TestFailsafeApplyHoldsDisabledChannels(t *testing.T) {
	var table FailsafeTable
	table.Values[1] = 0
	table.Enabled[1] = true
	table.Values[2] = 180

	frame := []uint16{1500, 1500, 1500, 1500}
	table.Apply(frame)
	assert.Equal(t, []uint16{1500, ChannelMin, 1500, 1500}, frame)
}
