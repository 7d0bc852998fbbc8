package rxpool

// PoolError is the sentinel error type returned by pool operations,
// the idiomatic Go successor to the teacher's comparable BLTErr enum.
type PoolError struct {
	msg string
}

func (e *PoolError) Error() string { return e.msg }

var (
	// ErrInvalidArgument: region misaligned or too small at init.
	ErrInvalidArgument = &PoolError{"rxpool: invalid argument"}

	// ErrOutOfMemory: descriptor/per-core arrays could not be allocated at init.
	ErrOutOfMemory = &PoolError{"rxpool: out of memory"}

	// ErrNotEnoughFree: allocate could not reserve the required bpages;
	// the message descriptor is left with NumBpages == 0.
	ErrNotEnoughFree = &PoolError{"rxpool: not enough free bpages"}
)
