package core

import "strconv"

// Event captures a link transition for post-mortem analysis
type Event struct {
	Kind   uint8
	Clock  uint32
	Value1 uint32
	Value2 uint32
}

// Event kinds
const (
	EvtHop      = 1 // retuned to next table entry; v1=index v2=channel
	EvtLost     = 2 // session lost; v1=ms since last packet
	EvtFailsafe = 3 // failsafe latched; v1=ms since last packet
	EvtRestore  = 4 // contact regained; v1=active transceiver v2=outage ms
	EvtSwap     = 5 // transceiver hand-off; v1=new active
	EvtBind     = 6 // pipe accepted; v1,v2 = address high/low
	EvtSearch   = 7 // recovery listen attempt; v1=channel v2=attempt
	EvtProbe    = 8 // bind probe result; v1=1 success
)

const EventRingSize = 32

// EventRing keeps the last EventRingSize events. Recording never blocks.
type EventRing struct {
	ring  [EventRingSize]Event
	head  uint8
	total [EvtProbe + 1]uint32
}

// Record appends an event, overwriting the oldest
func (r *EventRing) Record(kind uint8, clock, value1, value2 uint32) {
	if r == nil {
		return
	}
	r.ring[r.head] = Event{Kind: kind, Clock: clock, Value1: value1, Value2: value2}
	r.head = (r.head + 1) % EventRingSize
	if int(kind) < len(r.total) {
		r.total[kind]++
	}
}

// Count returns how many events of kind were ever recorded
func (r *EventRing) Count(kind uint8) uint32 {
	if r == nil || int(kind) >= len(r.total) {
		return 0
	}
	return r.total[kind]
}

// Events returns the retained events oldest first
func (r *EventRing) Events() []Event {
	out := make([]Event, 0, EventRingSize)
	for i := uint8(0); i < EventRingSize; i++ {
		evt := r.ring[(r.head+i)%EventRingSize]
		if evt.Kind == 0 {
			continue
		}
		out = append(out, evt)
	}
	return out
}

// Last returns the most recent event of kind
func (r *EventRing) Last(kind uint8) (Event, bool) {
	for i := 1; i <= EventRingSize; i++ {
		evt := r.ring[(int(r.head)-i+EventRingSize)%EventRingSize]
		if evt.Kind == kind {
			return evt, true
		}
	}
	return Event{}, false
}

// Clear empties the ring and the counters
func (r *EventRing) Clear() {
	*r = EventRing{}
}

// Dump writes the ring oldest first, one line per event
func (r *EventRing) Dump(println func(string)) {
	println("[LINK] === Event Ring Dump ===")
	for _, evt := range r.Events() {
		println("[LINK] " + EventName(evt.Kind) +
			" clock=" + strconv.FormatUint(uint64(evt.Clock), 10) +
			" v1=" + strconv.FormatUint(uint64(evt.Value1), 10) +
			" v2=" + strconv.FormatUint(uint64(evt.Value2), 10))
	}
	println("[LINK] === End Dump ===")
}

func EventName(kind uint8) string {
	switch kind {
	case EvtHop:
		return "HOP"
	case EvtLost:
		return "LOST"
	case EvtFailsafe:
		return "FAILSAFE!"
	case EvtRestore:
		return "RESTORE"
	case EvtSwap:
		return "SWAP"
	case EvtBind:
		return "BIND"
	case EvtSearch:
		return "SEARCH"
	case EvtProbe:
		return "PROBE"
	default:
		return "UNKNOWN"
	}
}
