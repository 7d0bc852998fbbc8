package rxpool

import (
	"testing"
	"time"

	"github.com/zcusanza/HomaModule/region"
)

// TestPool_MemfileBackedRegion exercises the "region can come from any
// caller-owned backing store" contract: the pool is built over a
// memfile.File-backed buffer instead of region.NewAligned's directio
// block, and allocation/release behave identically.
func TestPool_MemfileBackedRegion(t *testing.T) {
	const numBpages = 8

	buf, file, err := region.NewFromMemfile(numBpages, testBpageSize)
	if err != nil {
		t.Fatalf("region.NewFromMemfile() err = %v", err)
	}

	p, err := NewPool(Config{
		Region:      buf,
		BpageSize:   testBpageSize,
		NumCores:    2,
		LeaseCycles: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewPool() err = %v", err)
	}
	defer p.Destroy()

	msg := p.NewMessageDescriptor(testBpageSize + 1000)
	if err := p.Allocate(0, msg); err != nil {
		t.Fatalf("Allocate() err = %v", err)
	}

	// Writing through the file must be visible via the pool's region,
	// and vice versa, since both view the same backing buffer.
	want := byte(0x42)
	if _, err := file.WriteAt([]byte{want}, int64(msg.BpageOffsets[0])); err != nil {
		t.Fatalf("file.WriteAt() err = %v", err)
	}

	view, _, err := p.GetBuffer(msg, 0)
	if err != nil {
		t.Fatalf("GetBuffer() err = %v", err)
	}
	if view[0] != want {
		t.Errorf("GetBuffer()[0] = %#x after file.WriteAt, want %#x", view[0], want)
	}

	p.ReleaseBuffers(msg.BpageOffsets)
	if got := p.FreeBpages(); got != int64(numBpages) {
		t.Errorf("FreeBpages() = %d after release, want %d", got, numBpages)
	}
}

func TestNewFromMemfile_Validation(t *testing.T) {
	if _, _, err := region.NewFromMemfile(0, testBpageSize); err == nil {
		t.Errorf("NewFromMemfile(0, ...) err = nil, want error")
	}
	if _, _, err := region.NewFromMemfile(4, 0); err == nil {
		t.Errorf("NewFromMemfile(4, 0) err = nil, want error")
	}
}
