package index

import (
	"sync/atomic"

	"github.com/gyaneshwarpardhi/commerge/internal/graph"
)

// slot is the index's storage cell for one live community. The lock lives
// here rather than on the community so locking discipline can be observed
// and tested on its own; negotiations borrow it and never own it.
type slot struct {
	id        uint64
	community *graph.Community
	locked    atomic.Bool
	retired   bool // set inside the index critical section once merged away
}

func (s *slot) size() int { return s.community.NodeCount() }

// tryLock never blocks.
func (s *slot) tryLock() bool {
	return s.locked.CompareAndSwap(false, true)
}

// unlock panics if the lock is not held: releasing someone else's lock, or
// releasing twice, is a programming error.
func (s *slot) unlock() {
	if !s.locked.CompareAndSwap(true, false) {
		panic("index: unlock of unlocked community")
	}
}

func (s *slot) isLocked() bool { return s.locked.Load() }
