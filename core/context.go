package core

import (
	"io"

	"github.com/charmbracelet/log"

	"hoplink/protocol"
)

// LinkStats are the counters reported through telemetry
type LinkStats struct {
	Packets      uint32
	Reconnects   uint32
	Failsafes    uint32
	Hops         uint32
	RadioSeconds [2]uint32
	ActiveRadio  uint8
}

// LinkContext is the single holder of a device's mutable link state. Every
// component takes it explicitly; nothing else is shared.
type LinkContext struct {
	Config   Config
	Clock    Clock
	Log      *log.Logger
	Events   *EventRing
	Watchdog Watchdog

	// Yield runs on every iteration of a bounded wait. No-op on target;
	// simulations advance time and step the peer from it.
	Yield func()

	State      ConnectionState
	Hop        Hopper
	Ack        protocol.AckPayload
	HopPending bool
	LastHop    uint32
	LastPacket uint32

	Frame  [protocol.LinkChannels]uint16 // last good frame
	Output [protocol.LinkChannels]uint16 // frame after failsafe substitution

	Stats LinkStats
}

func NewLinkContext(cfg Config, clock Clock) *LinkContext {
	lc := &LinkContext{
		Config: cfg,
		Clock:  clock,
		Log:    log.New(io.Discard),
		Events: &EventRing{},
		Hop:    NewHopper(DefaultTable),
	}
	for i := range lc.Frame {
		lc.Frame[i] = protocol.ChannelCentre
	}
	lc.Output = lc.Frame
	return lc
}

func (lc *LinkContext) Now() uint32 {
	return lc.Clock.Millis()
}

// SetState moves the connection state machine and logs the transition
func (lc *LinkContext) SetState(s ConnectionState) {
	if lc.State == s {
		return
	}
	lc.Log.Debug("link state", "from", lc.State, "to", s, "clock", lc.Now())
	lc.State = s
}

// service keeps a bounded wait honest: watchdog, then the yield hook
func (lc *LinkContext) service() {
	if lc.Watchdog != nil {
		lc.Watchdog.Feed()
	}
	if lc.Yield != nil {
		lc.Yield()
	}
}
