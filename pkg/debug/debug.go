// Package debug provides global debug output flags
package debug

import "fmt"

// Enabled controls whether per-frame debug output is printed
var Enabled bool

// Timing controls whether inference and pipeline timings are printed.
// Use --debug-timing to enable; it prints one line per frame.
var Timing bool

// Log prints a message only if debug mode is enabled
func Log(format string, args ...interface{}) {
	if Enabled {
		fmt.Printf(format, args...)
	}
}

// TimeLog prints a message only if timing output is enabled
func TimeLog(format string, args ...interface{}) {
	if Timing {
		fmt.Printf(format, args...)
	}
}
