package pool_test

import (
	"testing"

	"github.com/momentics/hioload-fs/pool"
)

func TestBytePool_Size(t *testing.T) {
	bp := pool.NewBytePool(128)
	b := bp.GetBuffer()
	if len(b) != 128 {
		t.Fatalf("expected len 128, got %d", len(b))
	}
	bp.PutBuffer(b[:10])
	b2 := bp.GetBuffer()
	if len(b2) != 128 {
		t.Errorf("reused buffer must be resliced to full size, got %d", len(b2))
	}
}

func TestBytePool_DropsForeignBuffers(t *testing.T) {
	bp := pool.NewBytePool(64)
	bp.PutBuffer(make([]byte, 8))
	if got := len(bp.GetBuffer()); got != 64 {
		t.Errorf("expected 64-byte buffer, got %d", got)
	}
}

func TestForSize_SharesPools(t *testing.T) {
	if pool.ForSize(4096) != pool.ForSize(4096) {
		t.Error("expected same pool instance for equal sizes")
	}
	if pool.ForSize(0).Size() != pool.DefaultChunkSize {
		t.Error("zero size should fall back to DefaultChunkSize")
	}
}

func TestSyncPool_StatsAndReset(t *testing.T) {
	sp := pool.NewSyncPool(func() []int { return make([]int, 0, 4) }, func(s []int) []int { return s[:0] })
	s := sp.Get()
	s = append(s, 1, 2)
	sp.Put(s)
	st := sp.Stats()
	if st.Gets != 1 || st.Puts != 1 || st.Allocated != 1 {
		t.Errorf("stats = %+v", st)
	}
	// sync.Pool may drop objects, so only the reset contract is checked.
	if got := sp.Get(); len(got) != 0 {
		t.Errorf("reset not applied, len %d", len(got))
	}
}

func TestBytePool_Stats(t *testing.T) {
	bp := pool.NewBytePool(32)
	bp.PutBuffer(bp.GetBuffer())
	bp.PutBuffer(make([]byte, 1))
	if st := bp.Stats(); st.Gets != 1 || st.Puts != 1 {
		t.Errorf("stats = %+v", st)
	}
}
