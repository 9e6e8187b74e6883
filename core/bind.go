package core

import (
	"errors"

	"hoplink/protocol"
	"hoplink/storage"
)

// BindState tracks pairing on the receiver
type BindState uint8

const (
	AwaitingCandidate BindState = iota
	Validating
	Bound
)

func (s BindState) String() string {
	switch s {
	case AwaitingCandidate:
		return "awaiting"
	case Validating:
		return "validating"
	case Bound:
		return "bound"
	default:
		return "unknown"
	}
}

const (
	PipeHistorySize = 8
	PipeMinMatches  = 2
)

// PipeHistory is the rolling buffer of recently announced addresses
type PipeHistory struct {
	entries  [PipeHistorySize]protocol.PipeAddress
	next     int
	filled   int
	observed uint32
}

// Push stores an observation, overwriting the oldest when full
func (h *PipeHistory) Push(p protocol.PipeAddress) int {
	slot := h.next
	h.entries[slot] = p
	h.next = (h.next + 1) % PipeHistorySize
	if h.filled < PipeHistorySize {
		h.filled++
	}
	h.observed++
	return slot
}

// matchesExcept counts filled entries other than slot equal to p
func (h *PipeHistory) matchesExcept(p protocol.PipeAddress, slot int) int {
	n := 0
	for i := 0; i < h.filled; i++ {
		if i != slot && h.entries[i] == p {
			n++
		}
	}
	return n
}

// ValidateNewPipe records candidate and accepts it only when at least two
// other entries agree. Fewer than two observations ever made rejects.
func (h *PipeHistory) ValidateNewPipe(candidate protocol.PipeAddress) bool {
	slot := h.Push(candidate)
	if h.observed < PipeMinMatches {
		return false
	}
	return h.matchesExcept(candidate, slot) >= PipeMinMatches
}

func (h *PipeHistory) Observed() uint32 {
	return h.observed
}

func (h *PipeHistory) Reset() {
	*h = PipeHistory{}
}

// Binder is the receiver side of pairing: candidate validation, the
// persisted address and the save-new-bind policy.
type Binder struct {
	lc      *LinkContext
	store   storage.Store
	history PipeHistory
	state   BindState
	pipe    protocol.PipeAddress
	stored  protocol.PipeAddress
	saved   bool
	writes  int
}

func NewBinder(lc *LinkContext, store storage.Store) *Binder {
	return &Binder{lc: lc, store: store}
}

// Load reads the persisted pipe. Returns false on a fresh receiver.
func (b *Binder) Load() (protocol.PipeAddress, bool, error) {
	if b.store == nil {
		return 0, false, nil
	}
	p, err := storage.LoadPipe(b.store)
	if errors.Is(err, storage.ErrEmpty) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	b.stored = p
	b.saved = true
	b.pipe = p
	b.state = Bound
	return p, true, nil
}

func (b *Binder) State() BindState           { return b.state }
func (b *Binder) Pipe() protocol.PipeAddress { return b.pipe }
func (b *Binder) History() *PipeHistory      { return &b.history }
func (b *Binder) Writes() int                { return b.writes }

// Observe feeds one announced address. It returns true when the candidate
// passed validation and should be probed.
func (b *Binder) Observe(candidate protocol.PipeAddress) bool {
	if b.state == Bound && candidate == b.pipe {
		b.history.Push(candidate)
		return false
	}
	b.state = Validating
	return b.history.ValidateNewPipe(candidate)
}

// Commit makes candidate the current pipe and persists it when the
// save-new-bind flag is set and it differs from what storage holds. The
// binder stays Validating until Confirm.
func (b *Binder) Commit(candidate protocol.PipeAddress) error {
	b.pipe = candidate
	if !b.lc.Config.SaveNewBind || b.store == nil {
		return nil
	}
	if b.saved && b.stored == candidate {
		return nil
	}
	if err := storage.SavePipe(b.store, candidate); err != nil {
		return err
	}
	b.stored = candidate
	b.saved = true
	b.writes++
	return nil
}

// Confirm declares the bind once the probe has heard data on the pipe
func (b *Binder) Confirm() {
	b.state = Bound
	b.lc.Events.Record(EvtBind, b.lc.Now(), uint32(b.pipe>>32), uint32(b.pipe))
}

// Reject drops back to waiting for a candidate
func (b *Binder) Reject() {
	b.state = AwaitingCandidate
	b.history.Reset()
}

// Unbind forgets the current pipe (persisted copy is kept for the
// redundant-write check)
func (b *Binder) Unbind() {
	b.state = AwaitingCandidate
	b.pipe = 0
	b.history.Reset()
}
