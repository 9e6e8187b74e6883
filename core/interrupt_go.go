//go:build !tinygo

package core

type interruptState uintptr

// disableInterrupts is a no-op off-target
func disableInterrupts() interruptState {
	return 0
}

func restoreInterrupts(state interruptState) {}
