//go:build tinygo

package core

import "sync/atomic"

var systemMillis uint32

// getSystemMillis returns the SysTick millisecond counter
func getSystemMillis() uint32 {
	return atomic.LoadUint32(&systemMillis)
}

// TickMillis is called from the target's 1 kHz SysTick handler
func TickMillis() {
	atomic.AddUint32(&systemMillis, 1)
}
