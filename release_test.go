package rxpool

import (
	"testing"

	"github.com/zcusanza/HomaModule/interfaces"
)

func TestWaiterNotification_FiresOnlyAfterStarvation(t *testing.T) {
	const numBpages = MinBpages

	notifier := &interfaces.CountingNotifier{}
	p, err := NewPool(Config{
		Region:      mustRegion(t, numBpages),
		BpageSize:   testBpageSize,
		NumCores:    1,
		OnFreePages: notifier.NotifyFreePages,
	})
	if err != nil {
		t.Fatalf("NewPool() err = %v", err)
	}
	defer p.Destroy()

	msg1 := p.NewMessageDescriptor(testBpageSize * numBpages)
	if err := p.Allocate(0, msg1); err != nil {
		t.Fatalf("Allocate() err = %v", err)
	}

	// Pool is fully claimed; a further allocate must starve.
	msg2 := p.NewMessageDescriptor(testBpageSize)
	if err := p.Allocate(0, msg2); err != ErrNotEnoughFree {
		t.Fatalf("Allocate() err = %v, want ErrNotEnoughFree", err)
	}

	// Releasing restores free pages and must fire the hook exactly once.
	p.ReleaseBuffers(msg1.BpageOffsets)

	if got := notifier.Count(); got != 1 {
		t.Errorf("notifier.Count() = %d, want 1", got)
	}

	// With nothing owed, further CheckWaiting calls must not refire.
	p.CheckWaiting()
	if got := notifier.Count(); got != 1 {
		t.Errorf("notifier.Count() after extra CheckWaiting = %d, want 1", got)
	}
}

func TestWaiterNotification_ViaNotifierField(t *testing.T) {
	const numBpages = MinBpages

	notifier := &interfaces.CountingNotifier{}
	p, err := NewPool(Config{
		Region:    mustRegion(t, numBpages),
		BpageSize: testBpageSize,
		NumCores:  1,
		Notifier:  notifier,
	})
	if err != nil {
		t.Fatalf("NewPool() err = %v", err)
	}
	defer p.Destroy()

	msg := p.NewMessageDescriptor(testBpageSize * numBpages)
	if err := p.Allocate(0, msg); err != nil {
		t.Fatalf("Allocate() err = %v", err)
	}

	starve := p.NewMessageDescriptor(testBpageSize)
	if err := p.Allocate(0, starve); err != ErrNotEnoughFree {
		t.Fatalf("Allocate() err = %v, want ErrNotEnoughFree", err)
	}

	p.ReleaseBuffers(msg.BpageOffsets)

	if got := notifier.Count(); got != 1 {
		t.Errorf("notifier.Count() = %d, want 1", got)
	}
}

func TestReleaseBuffers_NoopAfterDestroy(t *testing.T) {
	p := newTestPool(t, MinBpages, 1)

	msg := p.NewMessageDescriptor(testBpageSize)
	if err := p.Allocate(0, msg); err != nil {
		t.Fatalf("Allocate() err = %v", err)
	}

	p.Destroy()
	p.ReleaseBuffers(msg.BpageOffsets) // must not panic
}

func TestReleaseBuffers_NilPool(t *testing.T) {
	var p *Pool
	p.ReleaseBuffers([]uint32{0}) // must not panic
}
