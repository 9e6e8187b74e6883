package protocol

import (
	"encoding/binary"
	"errors"
)

var (
	ErrPackLength     = errors.New("channel count must be a multiple of 4")
	ErrBufferTooSmall = errors.New("destination buffer too small")
)

// CompressedLen returns the number of 16-bit words n 12-bit values pack into
func CompressedLen(n int) int {
	return n * 3 / 4
}

// Compress packs four 12-bit values into three 16-bit words:
//
//	w0 = v0[11:0]<<4 | v1[11:8]
//	w1 = v1[7:0]<<8  | v2[11:4]
//	w2 = v2[3:0]<<12 | v3[11:0]
//
// Bits above 12 are discarded, callers clamp first.
func Compress(dst, src []uint16) error {
	if len(src)%4 != 0 {
		return ErrPackLength
	}
	if len(dst) < CompressedLen(len(src)) {
		return ErrBufferTooSmall
	}
	p := 0
	for i := 0; i < len(src); i += 4 {
		v0 := src[i] & ChannelMask
		v1 := src[i+1] & ChannelMask
		v2 := src[i+2] & ChannelMask
		v3 := src[i+3] & ChannelMask
		dst[p] = v0<<4 | v1>>8
		dst[p+1] = (v1&0xFF)<<8 | v2>>4
		dst[p+2] = (v2&0x0F)<<12 | v3
		p += 3
	}
	return nil
}

// Decompress reverses Compress index for index
func Decompress(dst, src []uint16) error {
	if len(src)%3 != 0 {
		return ErrPackLength
	}
	if len(dst) < len(src)*4/3 {
		return ErrBufferTooSmall
	}
	p := 0
	for i := 0; i < len(src); i += 3 {
		w0, w1, w2 := src[i], src[i+1], src[i+2]
		dst[p] = w0 >> 4
		dst[p+1] = (w0&0x0F)<<8 | w1>>8
		dst[p+2] = (w1&0xFF)<<4 | w2>>12
		dst[p+3] = w2 & ChannelMask
		p += 4
	}
	return nil
}

// Clamp12 limits every value to the 12 bits the packer can carry
func Clamp12(frame []uint16) {
	for i, v := range frame {
		if v > ChannelMask {
			frame[i] = ChannelMask
		}
	}
}

// PutWords writes words little-endian, the order both MCUs keep them in RAM
func PutWords(b []byte, words []uint16) {
	for i, w := range words {
		binary.LittleEndian.PutUint16(b[i*2:], w)
	}
}

// Words reads len(words) little-endian words from b
func Words(words []uint16, b []byte) {
	for i := range words {
		words[i] = binary.LittleEndian.Uint16(b[i*2:])
	}
}
