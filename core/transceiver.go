package core

import (
	"errors"
	"fmt"

	"hoplink/protocol"
)

var ErrNoTransceiver = errors.New("no transceiver answered the probe")

// Transceiver is one physical radio and its chip-enable line
type Transceiver struct {
	Name  string
	Radio Radio
	CE    ChipEnable
}

func (t *Transceiver) enable(on bool) error {
	if t.CE == nil {
		return nil
	}
	return t.CE.Set(on)
}

// TransceiverPair owns one or two radios; exactly one is active at a time
type TransceiverPair struct {
	units  [2]*Transceiver
	active int
}

// NewTransceiverPair takes the primary and an optional secondary (nil)
func NewTransceiverPair(primary, secondary *Transceiver) *TransceiverPair {
	return &TransceiverPair{units: [2]*Transceiver{primary, secondary}}
}

// Init probes both radios. A missing primary is fatal; a missing secondary
// drops the pair to single-radio mode.
func (p *TransceiverPair) Init(lc *LinkContext) error {
	if p.units[0] == nil || !p.units[0].Radio.Probe() {
		return ErrNoTransceiver
	}
	if p.units[1] != nil && !p.units[1].Radio.Probe() {
		lc.Log.Warn("second transceiver not found, running on one radio", "name", p.units[1].Name)
		p.units[1] = nil
	}
	if p.units[1] != nil {
		if err := p.units[1].enable(false); err != nil {
			return fmt.Errorf("disable %s: %w", p.units[1].Name, err)
		}
	}
	p.active = 0
	if err := p.units[0].enable(true); err != nil {
		return fmt.Errorf("enable %s: %w", p.units[0].Name, err)
	}
	return nil
}

func (p *TransceiverPair) Dual() bool {
	return p.units[1] != nil
}

func (p *TransceiverPair) Active() *Transceiver {
	return p.units[p.active]
}

func (p *TransceiverPair) ActiveIndex() int {
	return p.active
}

func (p *TransceiverPair) Radio() Radio {
	return p.units[p.active].Radio
}

// Handoff quiesces the active radio before bringing up the other one on
// the given pipe and channel. No-op with a single radio.
func (p *TransceiverPair) Handoff(pipe protocol.PipeAddress, ch uint8) error {
	if !p.Dual() {
		return nil
	}
	old := p.units[p.active]
	next := p.units[1-p.active]

	old.Radio.StopListening()
	if err := old.enable(false); err != nil {
		return fmt.Errorf("disable %s: %w", old.Name, err)
	}
	if err := next.enable(true); err != nil {
		return fmt.Errorf("enable %s: %w", next.Name, err)
	}
	if err := next.Radio.OpenPipe(pipe); err != nil {
		return fmt.Errorf("open pipe on %s: %w", next.Name, err)
	}
	if err := next.Radio.SetChannel(ch); err != nil {
		return fmt.Errorf("tune %s: %w", next.Name, err)
	}
	next.Radio.StartListening()
	p.active = 1 - p.active
	return nil
}

// retune moves a listening radio to ch
func retune(r Radio, ch uint8) error {
	r.StopListening()
	if err := r.SetChannel(ch); err != nil {
		return err
	}
	r.StartListening()
	return nil
}
