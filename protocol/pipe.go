package protocol

import (
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	mrand "math/rand"
	"time"
)

// PipeAddress is a 40-bit logical radio address held in the low bits
type PipeAddress uint64

const (
	PipeMask = PipeAddress(1)<<40 - 1

	// DefaultBindPipe is where unbound receivers listen for bind packets
	DefaultBindPipe PipeAddress = 0xE7E7E7E7E7

	// BuddyKey is XORed into the plain address to form the buddy pipe
	BuddyKey PipeAddress = 0xC3A5F0E1B2
)

var ErrPipeLength = errors.New("pipe address must be 5 bytes")

// Bytes returns the address most significant byte first
func (p PipeAddress) Bytes() [5]byte {
	var b [5]byte
	for i := range b {
		b[i] = byte(p >> (8 * (4 - i)))
	}
	return b
}

func (p PipeAddress) String() string {
	return fmt.Sprintf("%010X", uint64(p&PipeMask))
}

// PipeFromBytes is the inverse of Bytes
func PipeFromBytes(b [5]byte) PipeAddress {
	var p PipeAddress
	for _, v := range b {
		p = p<<8 | PipeAddress(v)
	}
	return p
}

// ParsePipe decodes a persisted 5-byte address
func ParsePipe(data []byte) (PipeAddress, error) {
	if len(data) != 5 {
		return 0, ErrPipeLength
	}
	var b [5]byte
	copy(b[:], data)
	return PipeFromBytes(b), nil
}

// BuddyPipe derives the buddy-link address from a plain address
func BuddyPipe(p PipeAddress) PipeAddress {
	return (p ^ BuddyKey) & PipeMask
}

// NewPipeAddress returns a random address that is neither zero nor the
// bind pipe. Falls back to math/rand if crypto/rand fails.
func NewPipeAddress() PipeAddress {
	for {
		var b [8]byte
		var v uint64
		if _, err := crand.Read(b[:]); err == nil {
			v = binary.LittleEndian.Uint64(b[:])
		} else {
			v = mrand.New(mrand.NewSource(time.Now().UnixNano())).Uint64()
		}
		p := PipeAddress(v) & PipeMask
		if p != 0 && p != DefaultBindPipe {
			return p
		}
	}
}
