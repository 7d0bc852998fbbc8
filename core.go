package rxpool

// coreSlot is the per-core state: a cached partial page, how many
// bytes of it are already spoken for, and a scan cursor for getPages.
// Padded to a cache line so that concurrent allocations on different
// cores never false-share a slot.
type coreSlot struct {
	pageHint      int32  // bpage index being filled, or noHint
	allocated     uint32 // bytes already assigned inside pageHint
	nextCandidate uint32 // getPages scan cursor into descriptors

	_ [cacheLinePad - 12]byte
}
