package rxpool

import (
	"sync"
	"sync/atomic"
)

// descriptor is the per-bpage state: a live reference count, an
// owning core (or unowned), and a lease expiration. refs, owner and
// expiration are all read unlocked as hints during the getPages scan,
// so they are kept atomic even though owner and expiration are
// otherwise only ever mutated while mu is held.
type descriptor struct {
	refs       int32 // atomic; live reference count
	owner      int32 // atomic; core id or unowned
	expiration int64 // atomic; monotonic nanoseconds

	// mu is the descriptor's trylock-capable mutex. Go's stdlib
	// sync.Mutex has provided TryLock since 1.18, playing the same
	// role the teacher's hand-rolled SpinLatch plays in C — no
	// third-party spinlock package in the example corpus offers
	// anything a plain stdlib mutex doesn't already give us here.
	mu sync.Mutex
}

func (d *descriptor) loadRefs() int32       { return atomic.LoadInt32(&d.refs) }
func (d *descriptor) addRefs(n int32) int32 { return atomic.AddInt32(&d.refs, n) }
func (d *descriptor) storeRefs(v int32)     { atomic.StoreInt32(&d.refs, v) }

func (d *descriptor) loadOwner() int32   { return atomic.LoadInt32(&d.owner) }
func (d *descriptor) storeOwner(v int32) { atomic.StoreInt32(&d.owner, v) }

func (d *descriptor) loadExpiration() int64   { return atomic.LoadInt64(&d.expiration) }
func (d *descriptor) storeExpiration(v int64) { atomic.StoreInt64(&d.expiration, v) }

// tryLock acquires the descriptor's mutex without blocking, mirroring
// the teacher's SpinLatch trylock role: the hot path only ever
// acquires a descriptor's mutex via trylock, never a blocking lock.
func (d *descriptor) tryLock() bool { return d.mu.TryLock() }
func (d *descriptor) unlock()       { d.mu.Unlock() }
func (d *descriptor) lock()         { d.mu.Lock() }
