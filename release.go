package rxpool

import "sync/atomic"

// ReleaseBuffers returns the bpages backing offsets to the pool. It
// is a no-op if the pool has already been destroyed, so it is safe to
// call during a destruction race.
func (p *Pool) ReleaseBuffers(offsets []uint32) {
	if p == nil || p.region == nil {
		return
	}

	bsz := uint32(p.bpageSize)
	freed := false

	for _, off := range offsets {
		b := off / bsz
		d := &p.descriptors[b]

		d.lock()
		newRefs := d.addRefs(-1)
		isFree := newRefs == 0 && d.loadOwner() == unowned
		d.unlock()

		if isFree {
			atomic.AddInt64(&p.freeBpages, 1)
			freed = true
		}
	}

	if freed {
		p.CheckWaiting()
	}
}

// CheckWaiting fires the waiter-notification hook if one is owed: it
// invokes the configured Notifier exactly once for each upward
// transition of the free-bpage count that followed a prior Allocate
// returning ErrNotEnoughFree, clearing the pending flag as it does. External callers may also poll it directly after
// doing their own bookkeeping.
func (p *Pool) CheckWaiting() {
	if p == nil || p.notifier == nil {
		return
	}
	if atomic.LoadInt64(&p.freeBpages) <= 0 {
		return
	}
	if p.pendingWaiters.CompareAndSwap(true, false) {
		p.notifier.NotifyFreePages()
	}
}
