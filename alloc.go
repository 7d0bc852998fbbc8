package rxpool

import (
	"sync/atomic"
	"time"
)

// getPages picks n fresh bpages for coreID, writing their indices into
// out (len(out) >= n). If setOwner is true every claimed page becomes
// an owned partial page leased to coreID; otherwise claimed pages are
// left UNOWNED (SHARED_FULL). getPages never returns fewer than n
// pages on success.
func (p *Pool) getPages(coreID int, n int, out []int32, setOwner bool) error {
	if n == 0 {
		return nil
	}

	// Admission: the sole gate. Once past it we are committed to
	// producing n pages, stealing expired leases if necessary.
	if atomic.AddInt64(&p.freeBpages, -int64(n)) < 0 {
		atomic.AddInt64(&p.freeBpages, int64(n))
		p.markWaiting()
		return ErrNotEnoughFree
	}

	core := &p.cores[coreID]
	numBpages := uint32(len(p.descriptors))

	limit := 2 * n
	if limit < minExtraScan {
		limit = minExtraScan
	}

	claimed := 0
	extra := 0
	i := core.nextCandidate % numBpages

	for claimed < n {
		d := &p.descriptors[i]
		if p.tryClaim(d, coreID, setOwner) {
			out[claimed] = int32(i)
			claimed++
		} else {
			extra++
		}

		i = (i + 1) % numBpages

		// Scan-length limit: once we've inspected at least limit
		// candidates beyond what we've claimed and the free-bpage
		// counter is not negative, restart from index 0 to reuse
		// fragmentation at the low end of the ring.
		if claimed < n && extra >= limit && atomic.LoadInt64(&p.freeBpages) >= 0 {
			i = 0
			extra = 0
		}
	}

	core.nextCandidate = i
	return nil
}

// tryClaim attempts to claim descriptor d as FREE, either because it
// already is, or by stealing an owner whose lease has expired with no
// remaining message references.
func (p *Pool) tryClaim(d *descriptor, coreID int, setOwner bool) bool {
	now := time.Now().UnixNano()

	// Quick unlocked filter: a hint only, re-verified under lock.
	refs := d.loadRefs()
	owner := d.loadOwner()
	if !(refs == 0 || (owner != unowned && d.loadExpiration() < now)) {
		return false
	}

	if !d.tryLock() {
		return false
	}
	defer d.unlock()

	refs = d.loadRefs()
	owner = d.loadOwner()

	switch {
	case refs == 0 && owner == unowned:
		// already FREE

	case owner != unowned && d.loadExpiration() < now && refs == 1:
		// steal: the page was occupying a slot not already counted as
		// free, so its recovery must restore one budget unit that the
		// up-front reservation spent on our behalf.
		d.storeOwner(unowned)
		d.storeRefs(0)
		atomic.AddInt64(&p.freeBpages, 1)

	default:
		return false
	}

	newRefs := int32(1)
	if setOwner {
		newRefs = 2
		d.storeOwner(int32(coreID))
		d.storeExpiration(now + p.leaseCycles)
	} else {
		d.storeOwner(unowned)
	}
	d.storeRefs(newRefs)
	return true
}

func (p *Pool) markWaiting() {
	p.pendingWaiters.Store(true)
	p.log.Debug("rxpool: allocate starved for free bpages", "free_bpages", p.FreeBpages())
}
