// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral API for CPU affinity. Platform-specific implementations are located
// in separate files guarded by build tags.

package affinity

import "runtime"

// Pin locks the calling goroutine to its OS thread and binds that thread to
// cpuID. The returned release func restores the previous CPU mask and
// unlocks the thread.
func Pin(cpuID int) (release func(), err error) {
	runtime.LockOSThread()
	restore, err := pinPlatform(cpuID)
	if err != nil {
		runtime.UnlockOSThread()
		return nil, err
	}
	return func() {
		restore()
		runtime.UnlockOSThread()
	}, nil
}
