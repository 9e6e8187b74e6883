// Package sim is an in-memory radio medium for tests and the link
// simulator. Endpoints behave like auto-ack packet transceivers: a write is
// delivered to the listening endpoint on the same channel and pipe, which
// answers with whatever ack payload it has queued.
package sim

import (
	"errors"

	"hoplink/protocol"
)

// RxDepth is the receive FIFO depth of every endpoint
const RxDepth = 3

var ErrChannel = errors.New("sim: channel out of range")

// Fault decides the fate of one exchange
type Fault uint8

const (
	Deliver Fault = iota
	DropPacket
	DropAck
)

// Medium connects endpoints. It is not safe for concurrent use; the link
// runs a single cooperative loop.
type Medium struct {
	endpoints []*Endpoint

	// Filter is consulted for every write that has a listener. Nil
	// delivers everything.
	Filter func(ch uint8, payload []byte) Fault

	blackout bool

	Sent      uint32
	Delivered uint32
	Acked     uint32
}

func NewMedium() *Medium {
	return &Medium{}
}

// Blackout drops every packet until cleared
func (m *Medium) Blackout(on bool) {
	m.blackout = on
}

// Endpoint is one simulated transceiver
type Endpoint struct {
	Name string

	medium    *Medium
	present   bool
	enabled   bool
	listening bool
	channel   uint8
	pipe      protocol.PipeAddress

	rx     [][]byte
	ack    []byte
	hasAck bool

	Retunes  uint32
	CEWrites uint32
}

// NewEndpoint attaches a transceiver to m. It starts present and enabled.
func (m *Medium) NewEndpoint(name string) *Endpoint {
	e := &Endpoint{Name: name, medium: m, present: true, enabled: true}
	m.endpoints = append(m.endpoints, e)
	return e
}

// Remove makes the endpoint fail its probe
func (e *Endpoint) Remove() {
	e.present = false
}

func (e *Endpoint) Probe() bool {
	return e.present
}

func (e *Endpoint) SetChannel(ch uint8) error {
	if ch > 125 {
		return ErrChannel
	}
	e.channel = ch
	e.Retunes++
	return nil
}

func (e *Endpoint) Channel() uint8 {
	return e.channel
}

func (e *Endpoint) OpenPipe(addr protocol.PipeAddress) error {
	e.pipe = addr
	return nil
}

func (e *Endpoint) Pipe() protocol.PipeAddress {
	return e.pipe
}

func (e *Endpoint) StartListening() {
	e.listening = true
}

func (e *Endpoint) StopListening() {
	e.listening = false
}

func (e *Endpoint) Listening() bool {
	return e.listening
}

// Set drives the chip-enable line
func (e *Endpoint) Set(on bool) error {
	e.enabled = on
	e.CEWrites++
	return nil
}

func (e *Endpoint) Enabled() bool {
	return e.enabled
}

func (e *Endpoint) Available() bool {
	return len(e.rx) > 0
}

func (e *Endpoint) Read(buf []byte) int {
	if len(e.rx) == 0 {
		return 0
	}
	n := copy(buf, e.rx[0])
	e.rx = e.rx[1:]
	return n
}

// WriteAck replaces the payload returned with the next received packet
func (e *Endpoint) WriteAck(payload []byte) {
	e.ack = append(e.ack[:0], payload...)
	e.hasAck = true
}

// Write sends payload and waits for the auto-ack
func (e *Endpoint) Write(payload []byte) ([]byte, bool) {
	m := e.medium
	m.Sent++
	if !e.present || !e.enabled || m.blackout {
		return nil, false
	}
	peer := m.listener(e)
	if peer == nil {
		return nil, false
	}
	fault := Deliver
	if m.Filter != nil {
		fault = m.Filter(e.channel, payload)
	}
	if fault == DropPacket || len(peer.rx) >= RxDepth {
		return nil, false
	}
	peer.rx = append(peer.rx, append([]byte(nil), payload...))
	m.Delivered++

	var ack []byte
	if peer.hasAck {
		ack = append([]byte(nil), peer.ack...)
		peer.hasAck = false
	}
	if fault == DropAck {
		return nil, false
	}
	m.Acked++
	return ack, true
}

func (m *Medium) listener(from *Endpoint) *Endpoint {
	for _, e := range m.endpoints {
		if e == from || !e.present || !e.enabled || !e.listening {
			continue
		}
		if e.channel == from.channel && e.pipe == from.pipe {
			return e
		}
	}
	return nil
}
