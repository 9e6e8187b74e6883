package core

import "hoplink/protocol"

// Radio is the abstract packet transceiver the link drives. Target code
// (or radio/sim) provides the implementation; register-level setup stays
// behind it.
type Radio interface {
	// Probe reports whether the chip answers on its bus
	Probe() bool

	// SetChannel tunes to an RF channel (0-125)
	SetChannel(ch uint8) error

	// OpenPipe sets the address used for both sending and receiving
	OpenPipe(addr protocol.PipeAddress) error

	StartListening()
	StopListening()

	// Available reports whether a received payload is waiting
	Available() bool

	// Read copies the oldest received payload into buf
	Read(buf []byte) int

	// WriteAck queues the payload returned with the next received packet
	WriteAck(payload []byte)

	// Write sends a payload and reports whether it was acknowledged,
	// returning the ack payload (possibly empty)
	Write(payload []byte) (ack []byte, ok bool)
}

// ChipEnable drives a transceiver's CE line
type ChipEnable interface {
	Set(on bool) error
}

// Output consumes the channel frame once per loop iteration (servo/SBUS
// encoders live behind it)
type Output interface {
	WriteFrame(frame []uint16, state ConnectionState)
}

// Watchdog is fed from every loop iteration and every bounded wait
type Watchdog interface {
	Feed()
}

// TelemetrySource supplies sensor readings for the ack multiplexer. A false
// return means the value is momentarily unavailable.
type TelemetrySource interface {
	Reading(item Item) (Reading, bool)
}
