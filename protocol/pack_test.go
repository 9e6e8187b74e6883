package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestCompressRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, MaxChannels/4).Draw(t, "groups") * 4
		src := rapid.SliceOfN(rapid.Uint16Range(0, ChannelMask), n, n).Draw(t, "src")

		packed := make([]uint16, CompressedLen(n))
		require.NoError(t, Compress(packed, src))

		out := make([]uint16, n)
		require.NoError(t, Decompress(out, packed))
		assert.Equal(t, src, out)
	})
}

// Every 12-bit value in every slot position survives the trip
func TestCompressFullDomain(t *testing.T) {
	src := make([]uint16, 4)
	packed := make([]uint16, 3)
	out := make([]uint16, 4)
	for v := uint16(0); v <= ChannelMask; v++ {
		for slot := 0; slot < 4; slot++ {
			for i := range src {
				src[i] = ChannelMask - v
			}
			src[slot] = v
			if err := Compress(packed, src); err != nil {
				t.Fatal(err)
			}
			if err := Decompress(out, packed); err != nil {
				t.Fatal(err)
			}
			if out[slot] != v {
				t.Fatalf("slot %d: got %d, want %d", slot, out[slot], v)
			}
		}
	}
}

func TestCompressBitLayout(t *testing.T) {
	src := []uint16{0xABC, 0xDEF, 0x123, 0x456}
	packed := make([]uint16, 3)
	require.NoError(t, Compress(packed, src))

	assert.Equal(t, uint16(0xABCD), packed[0])
	assert.Equal(t, uint16(0xEF12), packed[1])
	assert.Equal(t, uint16(0x3456), packed[2])

	b := make([]byte, 6)
	PutWords(b, packed)
	assert.Equal(t, []byte{0xCD, 0xAB, 0x12, 0xEF, 0x56, 0x34}, b)
}

func TestCompressTruncatesHighBits(t *testing.T) {
	src := []uint16{0xFABC, 0, 0, 0x1001}
	packed := make([]uint16, 3)
	out := make([]uint16, 4)
	require.NoError(t, Compress(packed, src))
	require.NoError(t, Decompress(out, packed))
	assert.Equal(t, []uint16{0xABC, 0, 0, 0x001}, out)
}

func TestCompressErrors(t *testing.T) {
	assert.ErrorIs(t, Compress(make([]uint16, 3), make([]uint16, 5)), ErrPackLength)
	assert.ErrorIs(t, Compress(make([]uint16, 2), make([]uint16, 4)), ErrBufferTooSmall)
	assert.ErrorIs(t, Decompress(make([]uint16, 4), make([]uint16, 4)), ErrPackLength)
	assert.ErrorIs(t, Decompress(make([]uint16, 3), make([]uint16, 3)), ErrBufferTooSmall)
}

func TestClamp12(t *testing.T) {
	frame := []uint16{0, 4095, 4096, 0xFFFF}
	Clamp12(frame)
	assert.Equal(t, []uint16{0, 4095, 4095, 4095}, frame)
}

func TestWordsRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		in := rapid.SliceOfN(rapid.Uint16(), 1, 16).Draw(t, "words")
		b := make([]byte, len(in)*2)
		PutWords(b, in)
		out := make([]uint16, len(in))
		Words(out, b)
		assert.Equal(t, in, out)
	})
}
