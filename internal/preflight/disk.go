package preflight

import (
	"fmt"
	"syscall"
)

// MinDiskSpaceBytes is the minimum free space required in the output directory.
const MinDiskSpaceBytes = 100 * 1024 * 1024

// CheckDiskSpace checks the free space where documents are written.
func (c *Checker) CheckDiskSpace() CheckResult {
	return checkDiskSpace(c.cfg.OutputDir(), MinDiskSpaceBytes)
}

func checkDiskSpace(path string, minBytes uint64) CheckResult {
	const name = "disk_space"

	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return fail(name, fmt.Sprintf("failed to check disk space: %v", err), true)
	}

	available := stat.Bavail * uint64(stat.Bsize)
	msg := fmt.Sprintf("%s free (minimum: %s)", formatBytes(available), formatBytes(minBytes))
	if available < minBytes {
		return fail(name, msg, true)
	}
	return pass(name, msg, true)
}

// formatBytes formats bytes as a human-readable string.
func formatBytes(bytes uint64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
		TB = 1024 * GB
	)

	switch {
	case bytes >= TB:
		return fmt.Sprintf("%.1f TB", float64(bytes)/TB)
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}
