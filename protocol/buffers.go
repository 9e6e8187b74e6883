package protocol

// InputBuffer is a byte stream FrameReader consumes from the front
type InputBuffer interface {
	Data() []byte
	Available() int
	Pop(n int)
}

// OutputBuffer is what EncodeFrame writes into. Update patches a byte
// already written, which is how the length header gets filled in.
type OutputBuffer interface {
	Output(data []byte)
	CurPosition() int
	Update(pos int, val byte)
	DataSince(pos int) []byte
}

// SliceInputBuffer is an InputBuffer over a fixed slice
type SliceInputBuffer struct {
	data []byte
}

func NewSliceInputBuffer(data []byte) *SliceInputBuffer {
	return &SliceInputBuffer{data: data}
}

func (s *SliceInputBuffer) Data() []byte   { return s.data }
func (s *SliceInputBuffer) Available() int { return len(s.data) }

func (s *SliceInputBuffer) Pop(n int) {
	s.data = s.data[min(n, len(s.data)):]
}

// ScratchOutput holds one frame at a time. Output past the end is dropped.
type ScratchOutput struct {
	buf [MessageLengthMax]byte
	pos int
}

func NewScratchOutput() *ScratchOutput {
	return &ScratchOutput{}
}

func (s *ScratchOutput) Output(data []byte) {
	s.pos += copy(s.buf[s.pos:], data)
}

func (s *ScratchOutput) CurPosition() int {
	return s.pos
}

func (s *ScratchOutput) Update(pos int, val byte) {
	if pos < s.pos {
		s.buf[pos] = val
	}
}

func (s *ScratchOutput) DataSince(pos int) []byte {
	if pos > s.pos {
		return nil
	}
	return s.buf[pos:s.pos]
}

func (s *ScratchOutput) Result() []byte { return s.buf[:s.pos] }
func (s *ScratchOutput) Reset()         { s.pos = 0 }

// FifoBuffer is the ring between a serial port and FrameReader. One slot
// stays empty so read == write always means empty.
type FifoBuffer struct {
	buf   []byte
	flat  []byte // contiguous copy handed out by Data when the ring wraps
	read  int
	write int
}

func NewFifoBuffer(capacity int) *FifoBuffer {
	return &FifoBuffer{buf: make([]byte, capacity)}
}

// Write stores as much of data as fits and returns how much that was
func (f *FifoBuffer) Write(data []byte) int {
	n := min(len(data), f.Free())
	first := min(n, len(f.buf)-f.write)
	copy(f.buf[f.write:], data[:first])
	copy(f.buf, data[first:n])
	f.write = (f.write + n) % len(f.buf)
	return n
}

func (f *FifoBuffer) Available() int {
	if f.write >= f.read {
		return f.write - f.read
	}
	return len(f.buf) - f.read + f.write
}

func (f *FifoBuffer) Free() int {
	return len(f.buf) - f.Available() - 1
}

// Data returns the buffered bytes in order. The slice is valid until the
// next Write or Pop.
func (f *FifoBuffer) Data() []byte {
	if f.read <= f.write {
		return f.buf[f.read:f.write]
	}
	f.flat = append(f.flat[:0], f.buf[f.read:]...)
	f.flat = append(f.flat, f.buf[:f.write]...)
	return f.flat
}

// Pop discards up to n bytes from the front
func (f *FifoBuffer) Pop(n int) {
	f.read = (f.read + min(n, f.Available())) % len(f.buf)
}
