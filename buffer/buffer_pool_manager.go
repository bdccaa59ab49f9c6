package buffer

import (
	"fmt"
	"sync"

	"cs174bufferpool/disk"
	"cs174bufferpool/disk/wal"
)

// BufferPoolManager is the single point of entry for page access: it translates page identifiers to
// frame indices, orchestrates frame allocation, synchronous disk I/O, pin counting, dirty tracking,
// and the LRU-K replacer, all under one mutex.
//
// There is no page-level latching and no pluggable replacer strategy: one mutex guards every field,
// and page identifiers are allocated monotonically and never reused.
type BufferPoolManager struct {
	mu sync.Mutex

	poolSize  int
	frames    []*Frame
	pageTable map[disk.PageID]FrameID
	freeList  []FrameID

	replacer Replacer
	disk     disk.IDiskManager
	log      wal.LogManager
}

// NewBufferPoolManager constructs a pool of poolSize frames, backed by dm for page I/O, replacing
// victims with an LRU-K policy of depth k. lm is held for future WAL integration and is never called
// by any method below; pass wal.NoopLM if none is needed.
func NewBufferPoolManager(poolSize int, k int, dm disk.IDiskManager, lm wal.LogManager) *BufferPoolManager {
	if poolSize <= 0 {
		panic("buffer: pool size must be positive")
	}
	if lm == nil {
		lm = wal.NoopLM
	}

	frames := make([]*Frame, poolSize)
	freeList := make([]FrameID, poolSize)
	for i := 0; i < poolSize; i++ {
		frames[i] = newFrame()
		freeList[i] = FrameID(i)
	}

	return &BufferPoolManager{
		poolSize:  poolSize,
		frames:    frames,
		pageTable: make(map[disk.PageID]FrameID, poolSize),
		freeList:  freeList,
		replacer:  NewLRUKReplacer(poolSize, k),
		disk:      dm,
		log:       lm,
	}
}

// NewPage allocates a brand-new page and returns a pinned handle to it plus its identifier. ok is
// false if the pool is full and no frame could be freed.
func (b *BufferPoolManager) NewPage() (frame *Frame, pageId disk.PageID, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	frameId, ok := b.allocateFrame()
	if !ok {
		return nil, disk.InvalidPageID, false
	}

	f := b.frames[frameId]
	pageId = b.disk.NewPage()

	f.reset()
	f.PageID = pageId
	f.PinCount = 1

	b.pageTable[pageId] = frameId
	b.replacer.RecordAccess(frameId)
	b.replacer.SetEvictable(frameId, false)

	return f, pageId, true
}

// FetchPage returns a pinned handle for pageId, reading it from disk on a miss. ok is false if pageId
// is not resident and the pool is full with no frame to free.
func (b *BufferPoolManager) FetchPage(pageId disk.PageID) (frame *Frame, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if frameId, resident := b.pageTable[pageId]; resident {
		f := b.frames[frameId]
		f.PinCount++
		b.replacer.RecordAccess(frameId)
		b.replacer.SetEvictable(frameId, false)
		return f, true
	}

	frameId, ok := b.allocateFrame()
	if !ok {
		return nil, false
	}

	f := b.frames[frameId]
	f.reset()
	f.PageID = pageId
	f.PinCount = 1

	if err := b.disk.ReadPage(pageId, f.Data); err != nil {
		// disk-level failures propagate as a panic; this core does not translate them into a
		// recoverable return value.
		panic(fmt.Sprintf("buffer: read page %d: %v", pageId, err))
	}

	b.pageTable[pageId] = frameId
	b.replacer.RecordAccess(frameId)
	b.replacer.SetEvictable(frameId, false)

	return f, true
}

// UnpinPage decrements pageId's pin count, marking it dirty if dirty is true (dirty is sticky: it is
// never cleared here), and makes the frame evictable once its pin count reaches zero. It returns false
// if pageId is not resident or its pin count is already zero.
func (b *BufferPoolManager) UnpinPage(pageId disk.PageID, dirty bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	frameId, resident := b.pageTable[pageId]
	if !resident {
		return false
	}

	f := b.frames[frameId]
	if f.PinCount == 0 {
		return false
	}

	f.PinCount--
	if dirty {
		f.IsDirty = true
	}

	if f.PinCount == 0 {
		b.replacer.SetEvictable(frameId, true)
	}

	return true
}

// FlushPage writes pageId's current contents to disk and clears its dirty flag, regardless of its pin
// count. It returns false if pageId is InvalidPageID or not resident.
func (b *BufferPoolManager) FlushPage(pageId disk.PageID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if pageId == disk.InvalidPageID {
		return false
	}

	frameId, resident := b.pageTable[pageId]
	if !resident {
		return false
	}

	return b.flushFrame(frameId)
}

// FlushAllPages flushes every resident page, as FlushPage would.
func (b *BufferPoolManager) FlushAllPages() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, frameId := range b.pageTable {
		b.flushFrame(frameId)
	}
}

// flushFrame writes frameId's page to disk and clears its dirty flag. Caller must hold b.mu.
func (b *BufferPoolManager) flushFrame(frameId FrameID) bool {
	f := b.frames[frameId]
	if err := b.disk.WritePage(f.PageID, f.Data); err != nil {
		panic(fmt.Sprintf("buffer: flush page %d: %v", f.PageID, err))
	}
	f.IsDirty = false
	return true
}

// DeletePage removes pageId from the pool, returning its frame to the free list. It returns true
// vacuously if pageId is not resident, and false without mutating anything if it is resident but
// pinned.
func (b *BufferPoolManager) DeletePage(pageId disk.PageID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	frameId, resident := b.pageTable[pageId]
	if !resident {
		return true
	}

	f := b.frames[frameId]
	if f.PinCount > 0 {
		return false
	}

	delete(b.pageTable, pageId)
	b.replacer.Remove(frameId)
	f.reset()
	b.freeList = append(b.freeList, frameId)

	b.disk.FreePage(pageId)
	return true
}

// allocateFrame obtains a frame from the free list or, failing that, by evicting a victim, writing it
// back first if dirty. Caller must hold b.mu.
func (b *BufferPoolManager) allocateFrame() (FrameID, bool) {
	if len(b.freeList) > 0 {
		frameId := b.freeList[0]
		b.freeList = b.freeList[1:]
		return frameId, true
	}

	frameId, ok := b.replacer.Evict()
	if !ok {
		return InvalidFrameID, false
	}

	victim := b.frames[frameId]
	if victim.PinCount != 0 {
		panic(fmt.Sprintf("buffer: replacer chose pinned frame %d as victim", frameId))
	}

	if victim.IsDirty {
		if err := b.disk.WritePage(victim.PageID, victim.Data); err != nil {
			// disk-level failures propagate as a panic; this core does not translate them into a
			// recoverable return value.
			panic(fmt.Sprintf("buffer: write back page %d: %v", victim.PageID, err))
		}
	}

	delete(b.pageTable, victim.PageID)
	return frameId, true
}

// PoolSize returns the fixed number of frames this pool manages.
func (b *BufferPoolManager) PoolSize() int {
	return b.poolSize
}
