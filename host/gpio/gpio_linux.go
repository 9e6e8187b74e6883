//go:build linux

package gpio

import (
	"github.com/warthog618/go-gpiocdev"
)

// Line is a chip-enable output. It satisfies core.ChipEnable.
type Line struct {
	chip   string
	offset int
	line   *gpiocdev.Line
}

// Open requests offset on chip as an output, driven low so the
// transceiver starts in standby
func Open(chip string, offset int) (*Line, error) {
	l, err := gpiocdev.RequestLine(chip, offset,
		gpiocdev.AsOutput(0),
		gpiocdev.WithConsumer(Consumer))
	if err != nil {
		return nil, &LineError{Chip: chip, Offset: offset, Err: err}
	}
	return &Line{chip: chip, offset: offset, line: l}, nil
}

func (l *Line) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := l.line.SetValue(v); err != nil {
		return &LineError{Chip: l.chip, Offset: l.offset, Err: err}
	}
	return nil
}

// Close drops the line back to low and releases it
func (l *Line) Close() error {
	_ = l.line.SetValue(0)
	return l.line.Close()
}
