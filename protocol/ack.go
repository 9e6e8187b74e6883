package protocol

import (
	"encoding/binary"
	"math"
)

// HopFlag is the high bit of the purpose byte: retune after this exchange
const HopFlag = 0x80

// AckPayload is the reverse channel piggy-backed on every acknowledgement.
// Byte 0 is the purpose byte (hop flag + item selector), bytes 1-4 carry
// the item value.
type AckPayload struct {
	Purpose byte
	Data    [4]byte
}

func (a AckPayload) Hop() bool  { return a.Purpose&HopFlag != 0 }
func (a AckPayload) Item() byte { return a.Purpose &^ HopFlag }

func (a *AckPayload) SetHop(on bool) {
	if on {
		a.Purpose |= HopFlag
	} else {
		a.Purpose &^= HopFlag
	}
}

func (a *AckPayload) SetFloat(f float32) {
	binary.LittleEndian.PutUint32(a.Data[:], math.Float32bits(f))
}

func (a AckPayload) Float() float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(a.Data[:]))
}

func (a *AckPayload) SetUint32(v uint32) {
	binary.LittleEndian.PutUint32(a.Data[:], v)
}

func (a AckPayload) Uint32() uint32 {
	return binary.LittleEndian.Uint32(a.Data[:])
}

// SetTriple stores up to three byte fields (version numbers, date, time)
func (a *AckPayload) SetTriple(x, y, z byte) {
	a.Data = [4]byte{x, y, z, 0}
}

func (a AckPayload) Triple() (byte, byte, byte) {
	return a.Data[0], a.Data[1], a.Data[2]
}

// Encode writes the payload in wire order
func (a AckPayload) Encode(buf []byte) []byte {
	buf[0] = a.Purpose
	copy(buf[1:AckPayloadLen], a.Data[:])
	return buf[:AckPayloadLen]
}

// DecodeAck parses a wire ack. Shorter payloads leave trailing data zero.
func DecodeAck(b []byte) (AckPayload, error) {
	var a AckPayload
	if len(b) < 1 {
		return a, ErrShortPacket
	}
	a.Purpose = b[0]
	copy(a.Data[:], b[1:])
	return a, nil
}

// EncodeBuddyAck packs the pupil's sticks into its ack.
// Layout: Purpose | 12 packed words
func EncodeBuddyAck(buf []byte, purpose byte, frame []uint16) ([]byte, error) {
	if len(frame) != LinkChannels {
		return nil, ErrPackLength
	}
	if len(buf) < BuddyAckLen {
		return nil, ErrBufferTooSmall
	}
	var words [PackedChannelWords]uint16
	if err := Compress(words[:], frame); err != nil {
		return nil, err
	}
	buf[0] = purpose
	PutWords(buf[1:], words[:])
	return buf[:BuddyAckLen], nil
}

// DecodeBuddyAck returns the purpose byte and fills frame
func DecodeBuddyAck(frame []uint16, b []byte) (byte, error) {
	if len(b) < BuddyAckLen {
		return 0, ErrShortPacket
	}
	return b[0], DecodeChannels(frame, b[1:])
}
