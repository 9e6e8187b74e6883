package core

import (
	"io"

	"hoplink/protocol"
)

// TelemetryBridge forwards received acks and link changes to a host over
// a byte stream using the serial frame format
type TelemetryBridge struct {
	w   io.Writer
	out protocol.ScratchOutput
	seq uint8
}

func NewTelemetryBridge(w io.Writer) *TelemetryBridge {
	return &TelemetryBridge{w: w}
}

// Ack forwards one ack payload
func (b *TelemetryBridge) Ack(a protocol.AckPayload) error {
	var rec [1 + protocol.AckPayloadLen]byte
	rec[0] = protocol.RecordAck
	a.Encode(rec[1:])
	return b.send(rec[:])
}

// Link forwards the transmitter's link state
func (b *TelemetryBridge) Link(rec LinkRecord) error {
	return b.send([]byte{protocol.RecordLink, byte(rec.State), rec.Active, rec.Index})
}

func (b *TelemetryBridge) send(payload []byte) error {
	b.out.Reset()
	protocol.EncodeFrame(&b.out, b.seq, payload)
	b.seq = (b.seq + 1) & protocol.MessageSeqMask
	_, err := b.w.Write(b.out.Result())
	return err
}

// LinkRecord is the state snapshot carried by a RecordLink frame
type LinkRecord struct {
	State  ConnectionState
	Active uint8
	Index  uint8
}

// Monitor is the host end of the bridge: it decodes frame payloads into a
// TelemetryTable and the last link record
type Monitor struct {
	Table TelemetryTable
	Link  LinkRecord

	OnAck  func(item Item)
	OnLink func(rec LinkRecord)

	frames  uint32
	unknown uint32
}

// Handle is a protocol.FrameHandler
func (m *Monitor) Handle(seq uint8, payload []byte) {
	m.frames++
	if len(payload) == 0 {
		m.unknown++
		return
	}
	switch payload[0] {
	case protocol.RecordAck:
		a, err := protocol.DecodeAck(payload[1:])
		if err != nil {
			m.unknown++
			return
		}
		item, ok := m.Table.Update(a)
		if ok && m.OnAck != nil {
			m.OnAck(item)
		}
	case protocol.RecordLink:
		if len(payload) < 4 {
			m.unknown++
			return
		}
		m.Link = LinkRecord{State: ConnectionState(payload[1]), Active: payload[2], Index: payload[3]}
		if m.OnLink != nil {
			m.OnLink(m.Link)
		}
	default:
		m.unknown++
	}
}

func (m *Monitor) Frames() uint32  { return m.frames }
func (m *Monitor) Unknown() uint32 { return m.unknown }
