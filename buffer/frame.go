package buffer

import "cs174bufferpool/disk"

// FrameID identifies a slot in the buffer pool manager's frame array. It is stable for the life of
// the pool. InvalidFrameID is used internally by the Replacer to report "no candidate".
type FrameID int

const InvalidFrameID FrameID = -1

// Frame is an in-memory slot holding, at most, one page's worth of data plus the metadata the buffer
// pool manager and replacer need to decide whether it can be reclaimed.
//
// A frame is only ever mutated while the owning BufferPoolManager's latch is held; there is no
// per-frame lock here.
type Frame struct {
	Data     []byte
	PageID   disk.PageID
	PinCount int
	IsDirty  bool
}

func newFrame() *Frame {
	return &Frame{
		Data:   make([]byte, disk.PageSize),
		PageID: disk.InvalidPageID,
	}
}

// reset clears data and metadata, as if the frame had just come off the free list for the first time.
func (f *Frame) reset() {
	for i := range f.Data {
		f.Data[i] = 0
	}
	f.PageID = disk.InvalidPageID
	f.PinCount = 0
	f.IsDirty = false
}
