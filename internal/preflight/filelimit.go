package preflight

import (
	"fmt"
	"syscall"
)

// MinFileDescriptors is the open file limit below which watching large
// knowledge bases may fail.
const MinFileDescriptors = 256

// CheckFileDescriptors warns when the open file limit is low. On BSD and
// macOS fsnotify holds one descriptor per watched file.
func (c *Checker) CheckFileDescriptors() CheckResult {
	const name = "file_descriptors"

	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		return warning(name, fmt.Sprintf("failed to check file descriptor limit: %v", err))
	}

	msg := fmt.Sprintf("%d (minimum: %d)", rLimit.Cur, MinFileDescriptors)
	if rLimit.Cur < MinFileDescriptors {
		r := warning(name, msg)
		r.Details = "run 'ulimit -n 10240' before watching large knowledge bases"
		return r
	}
	return pass(name, msg, false)
}
