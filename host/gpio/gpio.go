// Package gpio drives transceiver chip-enable lines through the Linux GPIO
// character device.
package gpio

import "fmt"

// Consumer is the label the kernel shows for lines held by this package
const Consumer = "hoplink-ce"

// LineError reports a failed request or write on one line
type LineError struct {
	Chip   string
	Offset int
	Err    error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("gpio %s:%d: %v", e.Chip, e.Offset, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }
