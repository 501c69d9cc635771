//go:build !linux

package perfmon

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// sampleRSS falls back to getrusage on non-Linux unix platforms, where
// /proc is unavailable.
func sampleRSS() (float64, error) {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return 0, err
	}
	// Maxrss is in bytes on Darwin, kilobytes on most other BSD-derived
	// unixes.
	if runtime.GOOS == "darwin" {
		return float64(ru.Maxrss) / (1024 * 1024), nil
	}
	return float64(ru.Maxrss) / 1024, nil
}
