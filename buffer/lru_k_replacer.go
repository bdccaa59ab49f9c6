package buffer

import (
	"fmt"
	"math"
	"sync"
)

// lruKEntry is the per-frame bookkeeping the replacer keeps: a bounded history of the last K access
// timestamps (oldest first) and whether the frame is currently a candidate for eviction.
type lruKEntry struct {
	history   []uint64
	evictable bool
}

// backwardKDistance returns the entry's backward K-distance at currentTime: the distance back to the
// K-th most recent access, or +Inf if fewer than K accesses have been recorded.
func (e *lruKEntry) backwardKDistance(k int, currentTime uint64) float64 {
	if len(e.history) < k {
		return math.Inf(1)
	}
	kthMostRecent := e.history[len(e.history)-k]
	return float64(currentTime - kthMostRecent)
}

func (e *lruKEntry) firstAccess() uint64 {
	return e.history[0]
}

// LRUKReplacer implements Replacer with the LRU-K victim-selection rule: among evictable frames,
// prefer the one with the largest backward K-distance (treating fewer-than-K histories as +Inf),
// breaking ties by earliest first-recorded access.
type LRUKReplacer struct {
	mu sync.Mutex // repl_latch

	k                int
	currentTimestamp uint64
	evictableCount   int
	frames           map[FrameID]*lruKEntry
}

// NewLRUKReplacer constructs a replacer whose frames each remember up to their last k accesses. k must
// be >= 1. numFrames only sizes the initial frame map; frame ids are not checked against it.
func NewLRUKReplacer(numFrames int, k int) *LRUKReplacer {
	if k < 1 {
		panic("buffer: LRU-K depth k must be >= 1")
	}

	return &LRUKReplacer{
		k:      k,
		frames: make(map[FrameID]*lruKEntry, numFrames),
	}
}

func (r *LRUKReplacer) RecordAccess(frameId FrameID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.frames[frameId]
	if !ok {
		e = &lruKEntry{}
		r.frames[frameId] = e
	}

	e.history = append(e.history, r.currentTimestamp)
	r.currentTimestamp++

	if len(e.history) > r.k {
		e.history = e.history[1:]
	}
}

func (r *LRUKReplacer) SetEvictable(frameId FrameID, evictable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.frames[frameId]
	if !ok {
		return
	}

	if e.evictable == evictable {
		return
	}

	e.evictable = evictable
	if evictable {
		r.evictableCount++
	} else {
		r.evictableCount--
	}
}

func (r *LRUKReplacer) Remove(frameId FrameID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.frames[frameId]
	if !ok {
		return
	}

	if !e.evictable {
		panic(fmt.Sprintf("buffer: Remove called on non-evictable frame %d", frameId))
	}

	r.evictableCount--
	delete(r.frames, frameId)
}

func (r *LRUKReplacer) Evict() (FrameID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	victim := InvalidFrameID
	maxDistance := -1.0
	var earliestFirstAccess uint64

	for id, e := range r.frames {
		if !e.evictable {
			continue
		}

		d := e.backwardKDistance(r.k, r.currentTimestamp)

		if victim == InvalidFrameID || d > maxDistance ||
			(d == maxDistance && e.firstAccess() < earliestFirstAccess) {
			victim = id
			maxDistance = d
			earliestFirstAccess = e.firstAccess()
		}
	}

	if victim == InvalidFrameID {
		return InvalidFrameID, false
	}

	r.evictableCount--
	delete(r.frames, victim)
	return victim, true
}

func (r *LRUKReplacer) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.evictableCount
}

var _ Replacer = &LRUKReplacer{}
