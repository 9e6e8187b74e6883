// Package protocol implements the over-the-air formats of the hoplink
// control link: channel packing, radio payloads, ack payloads and the
// framing used to forward telemetry to a host over serial.
package protocol

// Version is reported by the receiver through the telemetry ack items.
const (
	VersionMajor = 2
	VersionMinor = 4
	VersionPatch = 1
)

// Radio payload limits
const (
	MaxPayload    = 32 // hardware FIFO size
	PacketHeader  = 2  // kind + sequence
	AckPayloadLen = 5  // purpose + 4 data bytes
	BuddyAckLen   = 1 + PackedChannelBytes

	MaxChannels        = 20
	LinkChannels       = 16
	PackedChannelWords = LinkChannels * 3 / 4
	PackedChannelBytes = PackedChannelWords * 2
)

// Channel value range (12-bit equivalent, microsecond-like)
const (
	ChannelMin    = 172
	ChannelCentre = 992
	ChannelMax    = 1811
	ChannelMask   = 0x0FFF
)

// Packet kinds carried in byte 0 of every radio payload
const (
	KindChannels     = 0x01
	KindBind         = 0x02
	KindFailsafe     = 0x03
	KindBuddySpecial = 0x04
	KindBuddyPoll    = 0x05
)
