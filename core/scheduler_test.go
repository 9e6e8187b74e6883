package core

import "testing"

func TestSchedulerOrder(t *testing.T) {
	var s Scheduler
	var order []int
	mk := func(id int, wake uint32) *Timer {
		return &Timer{WakeTime: wake, Handler: func(*Timer) uint8 {
			order = append(order, id)
			return SF_DONE
		}}
	}
	s.Schedule(mk(3, 30))
	s.Schedule(mk(1, 10))
	s.Schedule(mk(2, 20))

	s.Dispatch(15)
	if len(order) != 1 || order[0] != 1 {
		t.Fatalf("after 15: %v", order)
	}
	s.Dispatch(30)
	if len(order) != 3 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("after 30: %v", order)
	}
}

func TestSchedulerReschedule(t *testing.T) {
	var s Scheduler
	fired := 0
	tm := &Timer{WakeTime: 5}
	tm.Handler = func(t *Timer) uint8 {
		fired++
		t.WakeTime += 5
		return SF_RESCHEDULE
	}
	s.Schedule(tm)
	for now := uint32(0); now <= 50; now++ {
		s.Dispatch(now)
	}
	if fired != 10 {
		t.Errorf("fired %d times, want 10", fired)
	}
	if !s.Pending(tm) {
		t.Error("periodic timer dropped")
	}
	s.Cancel(tm)
	if s.Pending(tm) {
		t.Error("cancelled timer still pending")
	}
}

func TestSchedulerWrap(t *testing.T) {
	var s Scheduler
	var order []string
	late := &Timer{WakeTime: 5, Handler: func(*Timer) uint8 { order = append(order, "late"); return SF_DONE }}
	early := &Timer{WakeTime: 0xFFFFFFF0, Handler: func(*Timer) uint8 { order = append(order, "early"); return SF_DONE }}
	s.Schedule(late)
	s.Schedule(early)

	s.Dispatch(0xFFFFFFF8)
	s.Dispatch(10)
	if len(order) != 2 || order[0] != "early" || order[1] != "late" {
		t.Errorf("order across wrap: %v", order)
	}
}
