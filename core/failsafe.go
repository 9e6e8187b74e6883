package core

import (
	"errors"
	"fmt"

	"hoplink/protocol"
	"hoplink/storage"
)

// Failsafe owns the stored failsafe table and the one-shot latch
type Failsafe struct {
	lc        *LinkContext
	store     storage.Store
	table     protocol.FailsafeTable
	latched   bool
	latchedAt uint32
}

func NewFailsafe(lc *LinkContext, store storage.Store) *Failsafe {
	return &Failsafe{lc: lc, store: store}
}

// Load reads the persisted table. A receiver that never had one keeps every
// channel holding its last value.
func (f *Failsafe) Load() error {
	if f.store == nil {
		return nil
	}
	t, err := storage.LoadFailsafe(f.store)
	if errors.Is(err, storage.ErrEmpty) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load failsafe table: %w", err)
	}
	f.table = t
	return nil
}

// Save replaces and persists the table (pushed by the transmitter)
func (f *Failsafe) Save(t protocol.FailsafeTable) error {
	f.table = t
	if f.store == nil {
		return nil
	}
	if err := storage.SaveFailsafe(f.store, t); err != nil {
		return fmt.Errorf("save failsafe table: %w", err)
	}
	return nil
}

func (f *Failsafe) Table() protocol.FailsafeTable { return f.table }
func (f *Failsafe) Latched() bool                 { return f.latched }
func (f *Failsafe) LatchedAt() uint32             { return f.latchedAt }

// Check latches failsafe once the deadline since the last packet has
// passed. Only the first call of an episode has side effects.
func (f *Failsafe) Check(now uint32) bool {
	lc := f.lc
	if f.latched {
		return false
	}
	since := Elapsed(now, lc.LastPacket)
	if since < lc.Config.FailsafeTimeout {
		return false
	}
	f.latched = true
	f.latchedAt = now
	lc.Stats.Failsafes++
	lc.Events.Record(EvtFailsafe, now, since, 0)
	lc.SetState(FailsafeActive)
	lc.Log.Warn("failsafe", "since_packet_ms", since)
	return true
}

// Clear releases the latch. Returns false when it was not set.
func (f *Failsafe) Clear() bool {
	if !f.latched {
		return false
	}
	f.latched = false
	return true
}

// Fill copies the last good frame into dst, substituting the table while
// latched
func (f *Failsafe) Fill(dst []uint16) {
	copy(dst, f.lc.Frame[:])
	if f.latched {
		f.table.Apply(dst)
	}
}
