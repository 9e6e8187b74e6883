package protocol

import (
	"encoding/binary"
	"errors"
)

var (
	ErrShortPacket = errors.New("packet too short")
	ErrPacketKind  = errors.New("unexpected packet kind")
	ErrBindCheck   = errors.New("bind candidate check byte mismatch")
)

// Packet is a decoded radio payload.
// Layout: Kind(1) | Seq(1) | Body(0-30)
type Packet struct {
	Kind byte
	Seq  byte
	Body []byte
}

// DecodePacket splits a raw payload into kind, sequence and body
func DecodePacket(data []byte) (Packet, error) {
	if len(data) < PacketHeader {
		return Packet{}, ErrShortPacket
	}
	return Packet{Kind: data[0], Seq: data[1], Body: data[PacketHeader:]}, nil
}

// EncodeChannels builds a channel packet from a 16 channel frame.
// Layout: Kind | Seq | 12 packed words (24 bytes, little-endian)
func EncodeChannels(buf []byte, kind, seq byte, frame []uint16) ([]byte, error) {
	if len(frame) != LinkChannels {
		return nil, ErrPackLength
	}
	if len(buf) < PacketHeader+PackedChannelBytes {
		return nil, ErrBufferTooSmall
	}
	var words [PackedChannelWords]uint16
	if err := Compress(words[:], frame); err != nil {
		return nil, err
	}
	buf[0] = kind
	buf[1] = seq
	PutWords(buf[PacketHeader:], words[:])
	return buf[:PacketHeader+PackedChannelBytes], nil
}

// DecodeChannels expands the packed words in body into frame
func DecodeChannels(frame []uint16, body []byte) error {
	if len(body) < PackedChannelBytes {
		return ErrShortPacket
	}
	if len(frame) < LinkChannels {
		return ErrBufferTooSmall
	}
	var words [PackedChannelWords]uint16
	Words(words[:], body)
	return Decompress(frame[:LinkChannels], words[:])
}

// BindFrame lays a proposed pipe address into the first six channel
// slots: one address byte per slot, slot 5 holding their XOR.
func BindFrame(addr PipeAddress) []uint16 {
	frame := make([]uint16, LinkChannels)
	b := addr.Bytes()
	var check byte
	for i, v := range b {
		frame[i] = uint16(v)
		check ^= v
	}
	frame[5] = uint16(check)
	return frame
}

// BindCandidate recovers the pipe address from a bind frame
func BindCandidate(frame []uint16) (PipeAddress, error) {
	if len(frame) < 6 {
		return 0, ErrShortPacket
	}
	var b [5]byte
	var check byte
	for i := range b {
		if frame[i] > 0xFF {
			return 0, ErrBindCheck
		}
		b[i] = byte(frame[i])
		check ^= b[i]
	}
	if uint16(check) != frame[5] {
		return 0, ErrBindCheck
	}
	return PipeFromBytes(b), nil
}

// EncodeFailsafe builds a failsafe push packet.
// Layout: Kind | Seq | Values(16) | Enabled bitmap(2)
func EncodeFailsafe(buf []byte, seq byte, t FailsafeTable) ([]byte, error) {
	n := PacketHeader + FailsafeChannels + 2
	if len(buf) < n {
		return nil, ErrBufferTooSmall
	}
	buf[0] = KindFailsafe
	buf[1] = seq
	copy(buf[PacketHeader:], t.Values[:])
	var mask uint16
	for i, on := range t.Enabled {
		if on {
			mask |= 1 << i
		}
	}
	binary.LittleEndian.PutUint16(buf[PacketHeader+FailsafeChannels:], mask)
	return buf[:n], nil
}

// DecodeFailsafe parses the body of a KindFailsafe packet
func DecodeFailsafe(body []byte) (FailsafeTable, error) {
	var t FailsafeTable
	if len(body) < FailsafeChannels+2 {
		return t, ErrShortPacket
	}
	copy(t.Values[:], body[:FailsafeChannels])
	mask := binary.LittleEndian.Uint16(body[FailsafeChannels:])
	for i := range t.Enabled {
		t.Enabled[i] = mask&(1<<i) != 0
	}
	return t, nil
}

// BuddyCommand is the 2-byte command field of buddy packets.
// Low byte: role. High byte: switch-state bitmap.
type BuddyCommand uint16

// Buddy roles
const (
	MasterHasControl = 0x01
	PupilHasControl  = 0x02
	MasterCanNudge   = 0x03
)

func NewBuddyCommand(role byte, switches byte) BuddyCommand {
	return BuddyCommand(uint16(switches)<<8 | uint16(role))
}

func (c BuddyCommand) Role() byte     { return byte(c) }
func (c BuddyCommand) Switches() byte { return byte(c >> 8) }

// BuddyPacket is what the master sends to the pupil.
// Special layout: Kind | Seq | ModelID(4, LE) | Command(2, LE)
// Poll layout:    Kind | Seq | Command(2, LE)
type BuddyPacket struct {
	Special bool
	Seq     byte
	ModelID uint32
	Command BuddyCommand
}

func EncodeBuddy(buf []byte, p BuddyPacket) ([]byte, error) {
	if len(buf) < PacketHeader+6 {
		return nil, ErrBufferTooSmall
	}
	buf[1] = p.Seq
	if p.Special {
		buf[0] = KindBuddySpecial
		binary.LittleEndian.PutUint32(buf[2:], p.ModelID)
		binary.LittleEndian.PutUint16(buf[6:], uint16(p.Command))
		return buf[:8], nil
	}
	buf[0] = KindBuddyPoll
	binary.LittleEndian.PutUint16(buf[2:], uint16(p.Command))
	return buf[:4], nil
}

func DecodeBuddy(data []byte) (BuddyPacket, error) {
	pkt, err := DecodePacket(data)
	if err != nil {
		return BuddyPacket{}, err
	}
	p := BuddyPacket{Seq: pkt.Seq}
	switch pkt.Kind {
	case KindBuddySpecial:
		if len(pkt.Body) < 6 {
			return p, ErrShortPacket
		}
		p.Special = true
		p.ModelID = binary.LittleEndian.Uint32(pkt.Body)
		p.Command = BuddyCommand(binary.LittleEndian.Uint16(pkt.Body[4:]))
	case KindBuddyPoll:
		if len(pkt.Body) < 2 {
			return p, ErrShortPacket
		}
		p.Command = BuddyCommand(binary.LittleEndian.Uint16(pkt.Body))
	default:
		return p, ErrPacketKind
	}
	return p, nil
}
