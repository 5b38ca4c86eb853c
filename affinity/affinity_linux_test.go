//go:build linux

package affinity_test

import (
	"errors"
	"runtime"
	"testing"

	"github.com/momentics/hioload-fs/affinity"
	"github.com/momentics/hioload-fs/api"
)

func TestPin_BindsThread(t *testing.T) {
	allowed, err := affinity.Current()
	if err != nil {
		t.Fatal(err)
	}
	if len(allowed) == 0 {
		t.Skip("no CPUs reported")
	}
	cpu := allowed[len(allowed)-1]

	done := make(chan error, 1)
	go func() {
		release, err := affinity.Pin(cpu)
		if err != nil {
			done <- err
			return
		}
		defer release()
		got, err := affinity.Current()
		if err == nil && (len(got) != 1 || got[0] != cpu) {
			err = errors.New("thread not bound to the requested cpu")
		}
		done <- err
	}()
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

func TestPin_RejectsOutOfRange(t *testing.T) {
	for _, cpu := range []int{-1, runtime.NumCPU()} {
		if _, err := affinity.Pin(cpu); !errors.Is(err, api.ErrInvalidArgument) {
			t.Errorf("Pin(%d) = %v", cpu, err)
		}
	}
}
