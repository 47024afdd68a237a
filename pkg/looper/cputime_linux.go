//go:build linux

package looper

import "golang.org/x/sys/unix"

// threadTimeMs returns the user and system time of the calling OS thread.
// The caller is expected to be locked to its thread.
func threadTimeMs() int64 {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_THREAD, &ru); err != nil {
		return 0
	}

	return (ru.Utime.Nano() + ru.Stime.Nano()) / 1e6
}
