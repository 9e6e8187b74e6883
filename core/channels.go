package core

// ChannelTable is the hop sequence both ends compile in. Index 0 is
// reserved and never selected by hopping.
type ChannelTable []uint8

// DefaultTable: 82 channels from 2-124 in a fixed pseudo-random order,
// excluding the recovery channels.
var DefaultTable = ChannelTable{
	0,
	121, 107, 77, 5, 23, 113, 44, 59, 116, 80, 101, 36,
	72, 48, 6, 78, 98, 87, 64, 102, 53, 99, 17, 100,
	28, 4, 93, 45, 85, 3, 43, 92, 47, 38, 106, 105,
	122, 63, 16, 118, 11, 103, 120, 123, 68, 90, 12, 7,
	29, 73, 51, 117, 114, 18, 49, 89, 79, 19, 110, 20,
	46, 54, 2, 13, 8, 119, 67, 33, 40, 55, 111, 84,
	37, 50, 9, 97, 42, 62, 39, 34, 27, 96,
}

func (t ChannelTable) Len() int {
	return len(t)
}

// Contains reports whether ch appears at a selectable index
func (t ChannelTable) Contains(ch uint8) bool {
	for i := 1; i < len(t); i++ {
		if t[i] == ch {
			return true
		}
	}
	return false
}

// Hopper walks a ChannelTable. While parked (index 0) it sits on a
// recovery channel instead of a table entry.
type Hopper struct {
	table  ChannelTable
	index  int
	parked uint8
}

func NewHopper(t ChannelTable) Hopper {
	return Hopper{table: t, index: 1}
}

func (h *Hopper) Index() int {
	return h.index
}

func (h *Hopper) Parked() bool {
	return h.index == 0
}

// Current is the channel both ends should be tuned to
func (h *Hopper) Current() uint8 {
	if h.index == 0 {
		return h.parked
	}
	return h.table[h.index]
}

// NextIndex is the index Advance will move to
func (h *Hopper) NextIndex() int {
	next := (h.index + 1) % len(h.table)
	if next == 0 {
		next = 1
	}
	return next
}

// Advance moves to the next table entry and returns its channel
func (h *Hopper) Advance() uint8 {
	h.index = h.NextIndex()
	return h.table[h.index]
}

// Park leaves the table and tunes to a recovery channel. The next Advance
// resumes at index 1 on both ends.
func (h *Hopper) Park(ch uint8) {
	h.index = 0
	h.parked = ch
}
