// Package scenario runs a transmitter and receiver against each other
// over the simulated medium with scripted outages.
package scenario

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"hoplink/core"
	"hoplink/protocol"
	"hoplink/radio/sim"
	"hoplink/storage"
)

// Outage blacks out the medium for Length ms from Start ms into the run
type Outage struct {
	Start  uint32
	Length uint32
}

// ParseOutage reads "start+length" in milliseconds, e.g. "3000+2500"
func ParseOutage(s string) (Outage, error) {
	start, length, ok := strings.Cut(s, "+")
	if !ok {
		return Outage{}, fmt.Errorf("outage %q: want start+length", s)
	}
	a, err := strconv.ParseUint(strings.TrimSpace(start), 10, 32)
	if err != nil {
		return Outage{}, fmt.Errorf("outage %q: %w", s, err)
	}
	b, err := strconv.ParseUint(strings.TrimSpace(length), 10, 32)
	if err != nil {
		return Outage{}, fmt.Errorf("outage %q: %w", s, err)
	}
	return Outage{Start: uint32(a), Length: uint32(b)}, nil
}

func (o Outage) covers(t uint32) bool {
	return t >= o.Start && t-o.Start < o.Length
}

// Scenario describes one simulated run
type Scenario struct {
	Config    core.Config
	Duration  uint32 // ms
	Outages   []Outage
	Bind      bool // start unbound and bind over the air
	Secondary bool
	Pipe      protocol.PipeAddress
	Failsafe  *protocol.FailsafeTable

	// CE lines mirrored from the receiver's transceivers, by index
	CE []core.ChipEnable

	Log *log.Logger
}

// Result is what a run leaves behind
type Result struct {
	RxState core.ConnectionState
	TxState core.ConnectionState
	Stats   core.LinkStats

	RxEvents *core.EventRing
	TxEvents *core.EventRing

	Frames         int // output frames published by the receiver
	FailsafeFrames int // of which substituted by the failsafe table
	BindSaves      int
	Pipe           protocol.PipeAddress

	Telemetry *core.Monitor
	Medium    struct{ Sent, Delivered, Acked uint32 }
}

const startClock = 1000

// Run drives both ends one simulated millisecond at a time
func Run(s Scenario) (*Result, error) {
	if s.Duration == 0 {
		return nil, errors.New("scenario: zero duration")
	}
	logger := s.Log
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if s.Pipe == 0 {
		s.Pipe = protocol.NewPipeAddress()
	}

	clock := core.NewManualClock(startClock)
	medium := sim.NewMedium()
	pipes := &storage.MemStore{}
	failsafes := &storage.MemStore{}
	if !s.Bind {
		if err := storage.SavePipe(pipes, s.Pipe); err != nil {
			return nil, err
		}
		pipes.Saves = 0
	}
	if s.Failsafe != nil {
		if err := storage.SaveFailsafe(failsafes, *s.Failsafe); err != nil {
			return nil, err
		}
	}

	txEp := medium.NewEndpoint("tx")
	rx0 := medium.NewEndpoint("rx0")
	primary := &core.Transceiver{Name: "rx0", Radio: rx0, CE: mirror(rx0, s.CE, 0)}
	var secondary *core.Transceiver
	if s.Secondary {
		rx1 := medium.NewEndpoint("rx1")
		secondary = &core.Transceiver{Name: "rx1", Radio: rx1, CE: mirror(rx1, s.CE, 1)}
	}

	res := &Result{Telemetry: &core.Monitor{}}
	out := &countingOutput{res: res}

	txLC := core.NewLinkContext(s.Config, clock)
	rxLC := core.NewLinkContext(s.Config, clock)
	txLC.Log = logger.WithPrefix("tx")
	rxLC.Log = logger.WithPrefix("rx")

	tx := core.NewTransmitter(txLC, core.TransmitterOptions{
		Radio:  txEp,
		Pipe:   s.Pipe,
		Bind:   s.Bind,
		Bridge: newMonitorSink(res.Telemetry),
	})
	rx := core.NewReceiver(rxLC, core.ReceiverOptions{
		Primary:       primary,
		Secondary:     secondary,
		PipeStore:     pipes,
		FailsafeStore: failsafes,
		Output:        out,
		Telemetry:     newSensors(clock, s.Config.Sensors),
	})
	if s.Failsafe != nil {
		tx.PushFailsafe(*s.Failsafe)
	}

	var sticks [protocol.LinkChannels]uint16
	for i := range sticks {
		sticks[i] = protocol.ChannelCentre
	}

	var stepErr error
	blackout := false
	tick := func() {
		clock.Advance(1)
		t := clock.Millis() - startClock
		dark := false
		for _, o := range s.Outages {
			if o.covers(t) {
				dark = true
				break
			}
		}
		if dark != blackout {
			blackout = dark
			medium.Blackout(dark)
			logger.Info("medium", "blackout", dark, "t", t)
		}
		sticks[0] = sweep(t)
		if err := tx.Step(sticks[:]); err != nil && stepErr == nil {
			stepErr = err
		}
	}
	rxLC.Yield = tick

	if err := tx.Init(); err != nil {
		return nil, fmt.Errorf("transmitter: %w", err)
	}
	if err := rx.Init(); err != nil {
		return nil, fmt.Errorf("receiver: %w", err)
	}

	end := clock.Millis() + s.Duration
	for !core.Reached(clock.Millis(), end) {
		tick()
		if err := rx.Poll(); err != nil {
			return nil, fmt.Errorf("receiver: %w", err)
		}
		if stepErr != nil {
			return nil, fmt.Errorf("transmitter: %w", stepErr)
		}
	}

	res.RxState = rxLC.State
	res.TxState = txLC.State
	res.Stats = rxLC.Stats
	res.RxEvents = rxLC.Events
	res.TxEvents = txLC.Events
	res.BindSaves = pipes.Saves
	res.Pipe = rx.Binder().Pipe()
	res.Medium.Sent = medium.Sent
	res.Medium.Delivered = medium.Delivered
	res.Medium.Acked = medium.Acked
	return res, nil
}

// sweep moves the first channel end to end every four seconds
func sweep(t uint32) uint16 {
	span := uint32(protocol.ChannelMax - protocol.ChannelMin)
	p := t % 4000
	if p >= 2000 {
		p = 4000 - p
	}
	return uint16(uint32(protocol.ChannelMin) + p*span/2000)
}

type countingOutput struct {
	res *Result
}

func (o *countingOutput) WriteFrame(frame []uint16, state core.ConnectionState) {
	o.res.Frames++
	if state == core.FailsafeActive {
		o.res.FailsafeFrames++
	}
}

// monitorSink decodes the transmitter's bridge stream in place
type monitorSink struct {
	input  *protocol.FifoBuffer
	frames *protocol.FrameReader
}

func newMonitorSink(m *core.Monitor) *monitorSink {
	return &monitorSink{
		input:  protocol.NewFifoBuffer(256),
		frames: protocol.NewFrameReader(m.Handle),
	}
}

func (s *monitorSink) Write(p []byte) (int, error) {
	n := s.input.Write(p)
	s.frames.Receive(s.input)
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

// ceMirror drives the simulated CE and an optional real line together
type ceMirror struct {
	sim  core.ChipEnable
	line core.ChipEnable
}

func mirror(ep *sim.Endpoint, lines []core.ChipEnable, i int) core.ChipEnable {
	if i >= len(lines) || lines[i] == nil {
		return ep
	}
	return &ceMirror{sim: ep, line: lines[i]}
}

func (m *ceMirror) Set(on bool) error {
	return errors.Join(m.sim.Set(on), m.line.Set(on))
}

// sensors is a synthetic TelemetrySource: a draining pack, a fixed GPS
// position and wall time running from when the scenario started
type sensors struct {
	clock core.Clock
	start time.Time
	have  core.Sensors
}

func newSensors(clock core.Clock, have core.Sensors) *sensors {
	return &sensors{clock: clock, start: time.Now().UTC(), have: have}
}

func (s *sensors) Reading(item core.Item) (core.Reading, bool) {
	ms := s.clock.Millis() - startClock
	switch item {
	case core.ItemVolts:
		return core.FloatReading(12.6 - float32(ms)/600000), true
	case core.ItemTemperature:
		return core.FloatReading(24.5), true
	}
	if s.have.Baro {
		switch item {
		case core.ItemBaroAltitude:
			return core.FloatReading(120.5), true
		case core.ItemBaroTemperature:
			return core.FloatReading(21.0), true
		}
	}
	if s.have.GPS {
		now := s.start.Add(time.Duration(ms) * time.Millisecond)
		switch item {
		case core.ItemLatitude:
			return core.FloatReading(51.4779), true
		case core.ItemLongitude:
			return core.FloatReading(-0.0015), true
		case core.ItemSpeed, core.ItemCourse:
			return core.FloatReading(0), true
		case core.ItemSatellites:
			return core.CountReading(9), true
		case core.ItemGPSAltitude:
			return core.FloatReading(46), true
		case core.ItemGPSDate:
			return core.TripleReading(byte(now.Day()), byte(now.Month()), byte(now.Year()%100)), true
		case core.ItemGPSTime:
			return core.TripleReading(byte(now.Hour()), byte(now.Minute()), byte(now.Second())), true
		}
	}
	return core.Reading{}, false
}
