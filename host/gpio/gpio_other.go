//go:build !linux

package gpio

import "errors"

// ErrUnsupported is returned on hosts without the GPIO character device
var ErrUnsupported = errors.New("gpio character device requires linux")

type Line struct{}

func Open(chip string, offset int) (*Line, error) {
	return nil, &LineError{Chip: chip, Offset: offset, Err: ErrUnsupported}
}

func (l *Line) Set(on bool) error { return ErrUnsupported }
func (l *Line) Close() error      { return nil }
