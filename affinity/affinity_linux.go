//go:build linux

// File: affinity/affinity_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux-specific implementation for setting thread CPU affinity.

package affinity

import (
	"fmt"
	"runtime"

	"github.com/momentics/hioload-fs/api"
	"golang.org/x/sys/unix"
)

// setAffinityPlatform sets the calling thread's affinity with sched_setaffinity.
func setAffinityPlatform(cpuID int) error {
	if cpuID < 0 || cpuID >= runtime.NumCPU() {
		return fmt.Errorf("affinity: cpu %d out of range [0,%d): %w", cpuID, runtime.NumCPU(), api.ErrInvalidArgument)
	}
	var set unix.CPUSet
	set.Set(cpuID)
	// pid 0 addresses the calling thread.
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("affinity: sched_setaffinity cpu %d: %w", cpuID, err)
	}
	return nil
}

func pinPlatform(cpuID int) (restore func(), err error) {
	var prev unix.CPUSet
	if err := unix.SchedGetaffinity(0, &prev); err != nil {
		return nil, fmt.Errorf("affinity: sched_getaffinity: %w", err)
	}
	if err := setAffinityPlatform(cpuID); err != nil {
		return nil, err
	}
	return func() { _ = unix.SchedSetaffinity(0, &prev) }, nil
}

// Current returns the CPUs the calling thread may run on.
func Current() ([]int, error) {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return nil, fmt.Errorf("affinity: sched_getaffinity: %w", err)
	}
	var cpus []int
	for i := 0; i < len(set)*64 && len(cpus) < set.Count(); i++ {
		if set.IsSet(i) {
			cpus = append(cpus, i)
		}
	}
	return cpus, nil
}
