//go:build tinygo

package core

import "runtime/interrupt"

// disableInterrupts guards the timer list against the SysTick handler
func disableInterrupts() interrupt.State {
	return interrupt.Disable()
}

func restoreInterrupts(state interrupt.State) {
	interrupt.Restore(state)
}
