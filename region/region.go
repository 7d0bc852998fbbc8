// Package region supplies helpers for obtaining the contiguous byte
// region an rxpool.Pool is built over. A caller that already owns a
// suitably-aligned buffer (an mmap'd device, a file mapping) can pass
// it straight to rxpool.Config.Region; this package exists for
// callers — tests among them — that need one allocated from scratch.
package region

import (
	"fmt"
	"unsafe"

	"github.com/dsnet/golib/memfile"
	"github.com/ncw/directio"
)

// NewAligned allocates a region of numBpages*bpageSize bytes whose
// base address is aligned to bpageSize, using
// github.com/ncw/directio's aligned block allocator as the underlying
// raw allocation (so the result is also safe for O_DIRECT I/O on a
// real Homa receive path, where incoming bpages are eventually handed
// off to a DMA'd socket read). directio.AlignedBlock only guarantees
// alignment to directio.AlignSize (the OS page size, typically 4096),
// which is finer-grained than a 64KiB bpage, so a little slack is
// over-allocated and trimmed to the bpage-aligned offset within it.
func NewAligned(numBpages int, bpageSize uintptr) ([]byte, error) {
	if numBpages <= 0 {
		return nil, fmt.Errorf("region: numBpages must be positive, got %d", numBpages)
	}
	if bpageSize == 0 {
		return nil, fmt.Errorf("region: bpageSize must be positive")
	}

	size := uintptr(numBpages) * bpageSize
	raw := directio.AlignedBlock(int(size + bpageSize))

	base := uintptr(unsafe.Pointer(&raw[0]))
	offset := (bpageSize - base%bpageSize) % bpageSize

	return raw[offset : offset+size : offset+size], nil
}

// NewFromMemfile is the in-memory counterpart to NewAligned: it backs
// the region with a memfile.File instead of a bare directio block, for
// callers exercising the pool against a caller-owned backing store
// that need not be real O_DIRECT memory. The backing make([]byte, ...)
// carries no alignment guarantee from the Go allocator, so — exactly
// as NewAligned does for directio's block — a little slack is
// over-allocated and trimmed to the bpage-aligned offset before being
// handed to memfile.New. The returned []byte views memfile's own
// buffer, so writes through either the slice or the file are visible
// to both.
func NewFromMemfile(numBpages int, bpageSize uintptr) ([]byte, *memfile.File, error) {
	if numBpages <= 0 {
		return nil, nil, fmt.Errorf("region: numBpages must be positive, got %d", numBpages)
	}
	if bpageSize == 0 {
		return nil, nil, fmt.Errorf("region: bpageSize must be positive")
	}

	size := uintptr(numBpages) * bpageSize
	raw := make([]byte, size+bpageSize)

	base := uintptr(unsafe.Pointer(&raw[0]))
	offset := (bpageSize - base%bpageSize) % bpageSize

	aligned := raw[offset : offset+size : offset+size]
	f := memfile.New(aligned)
	return aligned, f, nil
}
