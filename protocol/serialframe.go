package protocol

// Serial telemetry framing between a transmitter and a host tool.
// Layout: Len(1) | Seq(1) | Payload | CRC16(2, big-endian) | Sync(0x7E)
// Len counts the whole frame.
const (
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1
	MessageValueSync   = 0x7E
	MessageDest        = 0x10
	MessageSeqMask     = 0x0F
)

// Record types carried as the first payload byte
const (
	RecordAck  = 0x01 // AckPayload as received by the transmitter
	RecordLink = 0x02 // link state byte, active transceiver, hop index
)

// FrameHandler receives the payload of each valid frame
type FrameHandler func(seq uint8, payload []byte)

// EncodeFrame appends one frame around payload to output
func EncodeFrame(output OutputBuffer, seq uint8, payload []byte) {
	cursor := output.CurPosition()
	output.Output([]byte{0, MessageDest | seq&MessageSeqMask})
	output.Output(payload)

	changed := len(output.DataSince(cursor))
	output.Update(cursor, uint8(changed+MessageTrailerSize))

	crc := CRC16(output.DataSince(cursor))
	output.Output([]byte{
		uint8((crc & 0xFF00) >> 8),
		uint8(crc & 0xFF),
		MessageValueSync,
	})
}

// FrameReader scans a byte stream for frames, resynchronising on the sync
// byte after any corruption.
type FrameReader struct {
	synchronized bool
	handler      FrameHandler
	dropped      uint32
}

func NewFrameReader(handler FrameHandler) *FrameReader {
	return &FrameReader{synchronized: true, handler: handler}
}

// Dropped returns how many times the reader lost sync
func (r *FrameReader) Dropped() uint32 {
	return r.dropped
}

// Receive consumes every complete frame available in input
func (r *FrameReader) Receive(input InputBuffer) {
	data := input.Data()

	for len(data) > 0 {
		if !r.synchronized {
			syncPos := -1
			for i, b := range data {
				if b == MessageValueSync {
					syncPos = i
					break
				}
			}
			if syncPos < 0 {
				data = nil
				break
			}
			data = data[syncPos+1:]
			r.synchronized = true
			continue
		}

		if data[0] == MessageValueSync {
			data = data[1:]
			continue
		}
		if len(data) < MessageLengthMin {
			break
		}

		msgLen := int(data[MessagePositionLen])
		if msgLen < MessageLengthMin || msgLen > MessageLengthMax {
			r.desync()
			continue
		}
		seq := data[MessagePositionSeq]
		if seq&^MessageSeqMask != MessageDest {
			r.desync()
			continue
		}
		if len(data) < msgLen {
			break
		}
		if data[msgLen-MessageTrailerSync] != MessageValueSync {
			r.desync()
			continue
		}
		frameCRC := uint16(data[msgLen-MessageTrailerCRC])<<8 |
			uint16(data[msgLen-MessageTrailerCRC+1])
		if frameCRC != CRC16(data[:msgLen-MessageTrailerSize]) {
			r.desync()
			continue
		}

		payload := data[MessageHeaderSize : msgLen-MessageTrailerSize]
		data = data[msgLen:]
		if r.handler != nil {
			r.handler(seq&MessageSeqMask, payload)
		}
	}

	consumed := input.Available() - len(data)
	if consumed > 0 {
		input.Pop(consumed)
	}
}

func (r *FrameReader) desync() {
	r.synchronized = false
	r.dropped++
}
