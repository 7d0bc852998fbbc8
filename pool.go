// Package rxpool implements the receive buffer pool for a Homa-style
// transport: a fixed-region slab allocator with per-core partial-page
// caching, reference-counted page descriptors, and lease-based
// stealing of idle owners. The pool consumes only a contiguous byte
// region and the message descriptors the caller writes into; packet
// parsing, RPC lookup, and socket lifecycle live outside this package.
package rxpool

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/zcusanza/HomaModule/interfaces"
)

const (
	// DefaultBpageSize is used when Config.BpageSize is zero.
	DefaultBpageSize = 64 * 1024

	// MinBpages is the smallest region size Init will accept, in bpages.
	MinBpages = 4

	// DefaultMaxMessageBpages bounds MessageDescriptor.BpageOffsets when
	// Config.MaxMessageBpages is left zero.
	DefaultMaxMessageBpages = 256

	// minExtraScan is the floor on how many candidates beyond what it
	// has claimed getPages inspects before it is allowed to restart its
	// scan from index 0.
	minExtraScan = 8

	cacheLinePad = 64
)

// unowned marks a descriptor as having no owning core.
const unowned = int32(-1)

// noHint marks a coreSlot with no cached partial page.
const noHint = int32(-1)

// Config supplies NewPool with the region to manage and the pool's
// runtime configuration.
type Config struct {
	// Region is the caller-owned backing store. Its base address must
	// be aligned to BpageSize and its length must be a multiple of
	// BpageSize.
	Region []byte

	// BpageSize is the fixed page size; defaults to DefaultBpageSize.
	BpageSize uintptr

	// NumCores is the number of per-core slots to allocate. It is a
	// caller contract, not a runtime condition: NewPool panics if it
	// is not positive.
	NumCores int

	// MaxMessageBpages bounds how many bpages a single message may
	// span; defaults to DefaultMaxMessageBpages.
	MaxMessageBpages int

	// LeaseCycles is how long a partial-page owner holds its claim
	// before another core may steal it.
	LeaseCycles time.Duration

	// Notifier is invoked at most once per upward transition of the
	// free-bpage count, after a prior Allocate returned
	// ErrNotEnoughFree. OnFreePages is a shorthand for callers that
	// would rather pass a bare function than implement the interface;
	// it is wrapped in interfaces.Func. If both are set, Notifier
	// takes precedence.
	Notifier interfaces.Notifier

	// OnFreePages is shorthand for Notifier; see above.
	OnFreePages func()

	// Logger receives the pool's sparse diagnostic events. Defaults
	// to slog.Default().
	Logger *slog.Logger
}

// Pool is the receive buffer pool. All exported methods are safe for
// concurrent use from any goroutine; there is no global pool lock.
type Pool struct {
	region           []byte
	bpageSize        uintptr
	numBpages        int32
	maxMessageBpages int
	descriptors      []descriptor
	cores            []coreSlot
	freeBpages       int64 // atomic
	leaseCycles      int64 // nanoseconds
	notifier         interfaces.Notifier
	pendingWaiters   atomic.Bool
	log              *slog.Logger
}

// NewPool validates cfg and builds a Pool over cfg.Region. It returns
// ErrInvalidArgument if the region is misaligned or too small. A
// panic while allocating the descriptor or per-core arrays is
// recovered and reported as ErrOutOfMemory.
func NewPool(cfg Config) (pool *Pool, err error) {
	if cfg.NumCores <= 0 {
		panic(fmt.Sprintf("rxpool: NumCores must be positive, got %d", cfg.NumCores))
	}

	bpageSize := cfg.BpageSize
	if bpageSize == 0 {
		bpageSize = DefaultBpageSize
	}

	if len(cfg.Region) == 0 || uintptr(len(cfg.Region))%bpageSize != 0 {
		return nil, ErrInvalidArgument
	}
	if uintptr(unsafe.Pointer(&cfg.Region[0]))%bpageSize != 0 {
		return nil, ErrInvalidArgument
	}

	numBpages := uintptr(len(cfg.Region)) / bpageSize
	if numBpages < MinBpages {
		return nil, ErrInvalidArgument
	}

	maxMessageBpages := cfg.MaxMessageBpages
	if maxMessageBpages == 0 {
		maxMessageBpages = DefaultMaxMessageBpages
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	notifier := cfg.Notifier
	if notifier == nil && cfg.OnFreePages != nil {
		notifier = interfaces.Func(cfg.OnFreePages)
	}

	defer func() {
		if r := recover(); r != nil {
			pool = nil
			err = ErrOutOfMemory
		}
	}()

	p := &Pool{
		region:           cfg.Region,
		bpageSize:        bpageSize,
		numBpages:        int32(numBpages),
		maxMessageBpages: maxMessageBpages,
		descriptors:      make([]descriptor, numBpages),
		cores:            make([]coreSlot, cfg.NumCores),
		leaseCycles:      int64(cfg.LeaseCycles),
		notifier:         notifier,
		log:              logger,
	}

	for i := range p.cores {
		p.cores[i].pageHint = noHint
	}
	for i := range p.descriptors {
		p.descriptors[i].storeOwner(unowned)
	}
	// written explicitly: the last descriptor's owner must read UNOWNED
	// even if a future change to the loop above stops covering it.
	p.descriptors[numBpages-1].storeOwner(unowned)

	atomic.StoreInt64(&p.freeBpages, int64(numBpages))

	p.log.Info("rxpool: pool initialized",
		"num_bpages", numBpages,
		"bpage_size", bpageSize,
		"num_cores", cfg.NumCores,
	)

	return p, nil
}

// Destroy releases the pool's descriptor and per-core arrays. It is
// idempotent and safe to call on a never-initialized or already
// destroyed pool.
func (p *Pool) Destroy() {
	if p == nil || p.region == nil {
		return
	}
	p.log.Info("rxpool: pool destroyed", "num_bpages", p.numBpages)
	p.region = nil
	p.descriptors = nil
	p.cores = nil
}

// BpageSize returns the pool's fixed page size.
func (p *Pool) BpageSize() uintptr { return p.bpageSize }

// NumBpages returns the number of bpages in the region.
func (p *Pool) NumBpages() int32 { return p.numBpages }

// FreeBpages returns the current free-bpage accounting counter.
func (p *Pool) FreeBpages() int64 { return atomic.LoadInt64(&p.freeBpages) }
