package rxpool

import "fmt"

// MessageDescriptor is the external, caller-owned record a message's
// buffer pages are recorded into. Entry k for k < NumBpages-1 (or all
// entries, for a whole-bpage-only message) refers to a full bpage;
// the final entry may address the middle of a shared partial bpage.
type MessageDescriptor struct {
	BpageOffsets []uint32
	NumBpages    int
	Length       int
}

// NewMessageDescriptor builds a MessageDescriptor for a message of the
// given byte length, with BpageOffsets capacity bounded by the pool's
// configured MaxMessageBpages.
func (p *Pool) NewMessageDescriptor(length int) *MessageDescriptor {
	return &MessageDescriptor{
		BpageOffsets: make([]uint32, 0, p.maxMessageBpages),
		Length:       length,
	}
}

// Allocate fills msg.BpageOffsets to cover msg.Length bytes for
// coreID. On ErrNotEnoughFree, msg.NumBpages is set to 0 and no
// bpages are left claimed on msg's behalf — Allocate is all-or-
// nothing. Zero-length messages succeed trivially.
func (p *Pool) Allocate(coreID int, msg *MessageDescriptor) error {
	bsz := int(p.bpageSize)
	full := msg.Length / bsz
	partial := msg.Length % bsz

	want := full
	if partial > 0 {
		want++
	}
	// msg.NumBpages <= MaxMessageBpages is a caller contract enforced by
	// the transport protocol upstream, not a runtime condition this
	// pool recovers from.
	if want > p.maxMessageBpages {
		panic(fmt.Sprintf("rxpool: message of %d bytes needs %d bpages, exceeds MaxMessageBpages (%d)", msg.Length, want, p.maxMessageBpages))
	}

	msg.BpageOffsets = msg.BpageOffsets[:0]
	msg.NumBpages = 0

	if full > 0 {
		pages := make([]int32, full)
		if err := p.getPages(coreID, full, pages, false); err != nil {
			return err
		}
		for _, pg := range pages {
			msg.BpageOffsets = append(msg.BpageOffsets, uint32(pg)*uint32(p.bpageSize))
		}
	}

	if partial > 0 {
		if !p.reuseHint(coreID, partial, msg) {
			p.dropHintIfOwned(coreID)

			var h [1]int32
			if err := p.getPages(coreID, 1, h[:], true); err != nil {
				// The full bpages already claimed above must go back to
				// the pool; otherwise Allocate leaves them permanently
				// stranded as SHARED_FULL with no offsets to release them
				// through.
				p.ReleaseBuffers(msg.BpageOffsets)
				msg.NumBpages = 0
				msg.BpageOffsets = msg.BpageOffsets[:0]
				return err
			}

			msg.BpageOffsets = append(msg.BpageOffsets, uint32(h[0])*uint32(p.bpageSize))

			core := &p.cores[coreID]
			core.pageHint = h[0]
			core.allocated = uint32(partial)
		}
	}

	msg.NumBpages = want
	return nil
}

// reuseHint tries to append partial bytes to coreID's cached partial
// page.
func (p *Pool) reuseHint(coreID int, partial int, msg *MessageDescriptor) bool {
	core := &p.cores[coreID]
	h := core.pageHint
	if h == noHint {
		return false
	}
	if core.allocated+uint32(partial) > uint32(p.bpageSize) {
		return false
	}

	d := &p.descriptors[h]
	if !d.tryLock() {
		// trylock failure: fall through to fresh allocation.
		return false
	}
	defer d.unlock()

	if d.loadOwner() != int32(coreID) {
		// stolen out from under us between checks.
		core.pageHint = noHint
		return false
	}

	offset := uint32(h)*uint32(p.bpageSize) + core.allocated
	d.addRefs(1)
	core.allocated += uint32(partial)
	msg.BpageOffsets = append(msg.BpageOffsets, offset)
	return true
}

// dropHintIfOwned releases the lease bias on coreID's previous partial
// page once it can no longer absorb a new slice (OWNED_PARTIAL ->
// SHARED_FULL). If the descriptor's trylock fails, only the hint is
// cleared and the page keeps its owner until its lease expires and it
// is stolen.
func (p *Pool) dropHintIfOwned(coreID int) {
	core := &p.cores[coreID]
	h := core.pageHint
	if h == noHint {
		return
	}

	d := &p.descriptors[h]
	if d.tryLock() {
		if d.loadOwner() == int32(coreID) {
			d.storeOwner(unowned)
			d.addRefs(-1)
		}
		d.unlock()
	}
	core.pageHint = noHint
	core.allocated = 0
}

// GetBuffer resolves a byte offset within msg to the backing region
// slice and the number of contiguous bytes available from there. It
// performs no locking; msg is immutable once Allocate has returned.
func (p *Pool) GetBuffer(msg *MessageDescriptor, offset int) ([]byte, int, error) {
	bsz := int(p.bpageSize)
	b := offset / bsz
	d := offset % bsz
	if b < 0 || b >= msg.NumBpages {
		return nil, 0, ErrInvalidArgument
	}

	available := bsz - d
	if b == msg.NumBpages-1 {
		if rem := msg.Length % bsz; rem != 0 {
			available = rem - d
		}
	}
	if available <= 0 {
		return nil, 0, ErrInvalidArgument
	}

	base := int(msg.BpageOffsets[b]) + d
	if base < 0 || base+available > len(p.region) {
		return nil, 0, ErrInvalidArgument
	}

	return p.region[base : base+available], available, nil
}
