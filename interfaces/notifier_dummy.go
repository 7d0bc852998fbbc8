package interfaces

import "sync/atomic"

// CountingNotifier is a Notifier test double that records how many
// times it has fired, the same minimal in-memory-collaborator role
// the teacher's ParentBufMgrDummy plays for its own external
// interface.
type CountingNotifier struct {
	count int32
}

func (c *CountingNotifier) NotifyFreePages() {
	atomic.AddInt32(&c.count, 1)
}

// Count returns the number of times NotifyFreePages has been called.
func (c *CountingNotifier) Count() int32 {
	return atomic.LoadInt32(&c.count)
}
