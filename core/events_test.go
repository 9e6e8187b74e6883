package core

import (
	"strings"
	"testing"
)

func TestEventRingOverwrite(t *testing.T) {
	var r EventRing
	for i := uint32(0); i < EventRingSize+5; i++ {
		r.Record(EvtSearch, i, i, 0)
	}
	r.Record(EvtLost, 100, 97, 0)

	evts := r.Events()
	if len(evts) != EventRingSize {
		t.Fatalf("retained %d events, want %d", len(evts), EventRingSize)
	}
	if evts[0].Clock != 6 {
		t.Errorf("oldest clock = %d, want 6", evts[0].Clock)
	}
	if r.Count(EvtSearch) != EventRingSize+5 {
		t.Errorf("search count = %d", r.Count(EvtSearch))
	}
	last, ok := r.Last(EvtLost)
	if !ok || last.Value1 != 97 {
		t.Errorf("last lost = %+v ok=%v", last, ok)
	}
	if _, ok := r.Last(EvtBind); ok {
		t.Error("found an event that was never recorded")
	}
}

func TestEventRingNil(t *testing.T) {
	var r *EventRing
	r.Record(EvtHop, 1, 2, 3)
	if r.Count(EvtHop) != 0 {
		t.Error("nil ring counted an event")
	}
}

func TestEventRingDump(t *testing.T) {
	var r EventRing
	r.Record(EvtFailsafe, 2000, 2000, 0)
	var lines []string
	r.Dump(func(s string) { lines = append(lines, s) })
	if len(lines) != 3 || !strings.Contains(lines[1], EventName(EvtFailsafe)) || !strings.Contains(lines[1], "clock=2000") {
		t.Errorf("dump = %q", lines)
	}
}
