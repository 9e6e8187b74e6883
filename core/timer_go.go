//go:build !tinygo

package core

import "time"

var bootTime = time.Now()

// getSystemMillis returns milliseconds since process start
func getSystemMillis() uint32 {
	return uint32(time.Since(bootTime).Milliseconds())
}
