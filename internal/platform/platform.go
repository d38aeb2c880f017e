// Package platform exposes process- and container-level introspection
// used by the info command: cgroup-aware memory-limit detection and
// process RSS/uptime via gopsutil.
package platform

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// MemoryLimit returns the container memory limit in bytes, trying
// cgroup v2 first and falling back to cgroup v1. Returns 0 when no
// limit is detected (unlimited, non-containerized, or unreadable).
func MemoryLimit() int64 {
	if data, err := os.ReadFile("/sys/fs/cgroup/memory.max"); err == nil {
		limitStr := strings.TrimSpace(string(data))
		if limitStr != "max" {
			if n, err := strconv.ParseInt(limitStr, 10, 64); err == nil {
				return n
			}
		}
	}
	if data, err := os.ReadFile("/sys/fs/cgroup/memory/memory.limit_in_bytes"); err == nil {
		if n, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64); err == nil {
			return n
		}
	}
	return 0
}

// ProcessStats reports the running process's resident memory and how
// long it has been running.
type ProcessStats struct {
	RSSBytes uint64
	Uptime   time.Duration
}

// Stats samples the current process's memory info via gopsutil. boot is
// the instant the engine started.
func Stats(boot time.Time) (ProcessStats, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return ProcessStats{}, err
	}
	memInfo, err := proc.MemoryInfo()
	if err != nil {
		return ProcessStats{}, err
	}
	return ProcessStats{RSSBytes: memInfo.RSS, Uptime: time.Since(boot)}, nil
}
