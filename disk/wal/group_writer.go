package wal

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"cs174bufferpool/common"
)

// GroupWriter batches writes into an in-memory buffer and flushes the whole buffer to an underlying
// io.Writer in one shot, either on a timer or on demand (SwapAndWaitFlush). This amortizes the cost of
// many small log appends into fewer, larger writes.
type GroupWriter struct {
	buf         []byte
	offset      int
	latestInBuf LSN

	flushBuf         []byte
	flushOffset      int
	latestInFlushBuf LSN

	latestFlushed LSN

	w      io.Writer
	mut    sync.Mutex
	bufMut sync.Mutex

	flushEvent *common.Event

	flusherDone chan bool
	errChan     chan error
	stats       *common.Stats
}

func NewGroupWriter(size int, w io.Writer) *GroupWriter {
	return &GroupWriter{
		buf:        make([]byte, size),
		flushBuf:   make([]byte, size),
		errChan:    make(chan error),
		w:          w,
		stats:      common.NewStats(),
		flushEvent: common.NewEvent(),
	}
}

// Write copies d into the active buffer, swapping and flushing buffers as needed if d does not fit.
// lsn is the identifier of the latest entry contained in d, recorded so GetFlushedLSN can report it
// once this write reaches the underlying writer.
func (w *GroupWriter) Write(d []byte, lsn LSN) (int, error) {
	w.bufMut.Lock()
	size := len(d)
	if size <= w.Available() {
		copy(w.buf[w.offset:], d)
		w.offset += size
		w.latestInBuf = lsn
		w.bufMut.Unlock()
		return size, nil
	}

	acc := 0
	for {
		n := copy(w.buf[w.offset:], d[acc:])
		w.offset += n
		acc += n

		if size <= acc {
			w.latestInBuf = lsn
			break
		}
		w.bufMut.Unlock()
		w.swap()
		w.bufMut.Lock()
	}

	w.bufMut.Unlock()
	return size, nil
}

// Available returns the size of the available space in the current buffer in bytes.
func (w *GroupWriter) Available() int {
	return len(w.buf) - w.offset
}

func (w *GroupWriter) RunFlusher() {
	w.mut.Lock()
	defer w.mut.Unlock()

	if w.flusherDone != nil {
		panic("flusher was already running")
	}

	w.flusherDone = make(chan bool)

	go func() {
		ticker := time.NewTicker(common.LogTimeout)
		defer ticker.Stop()

		for {
			select {
			case <-w.flusherDone:
				w.errChan <- w.swapAndWaitFlush()
				return
			case <-ticker.C:
				w.swap()
			}
		}
	}()
}

func (w *GroupWriter) StopFlusher() error {
	w.mut.Lock()
	defer w.mut.Unlock()
	if w.flusherDone == nil {
		panic("flusher is already stopped")
	}

	w.flusherDone <- true
	w.flusherDone = nil
	return <-w.errChan
}

func (w *GroupWriter) swap() {
	w.mut.Lock()
	w.bufMut.Lock()

	w.buf, w.flushBuf = w.flushBuf, w.buf
	w.flushOffset = w.offset
	w.latestInFlushBuf = w.latestInBuf
	w.offset = 0
	w.bufMut.Unlock()

	go func() {
		if err := w.flush(true); err != nil {
			log.Printf("wal.GroupWriter flush failed: %v\n", err.Error())
		}
	}()
}

func (w *GroupWriter) flush(release bool) error {
	w.stats.Avg("avg_log_flush_size", float64(w.flushOffset))
	n, err := w.w.Write(w.flushBuf[:w.flushOffset])
	if err != nil {
		return err
	}
	if n != w.flushOffset {
		return errors.New("short write")
	}

	w.latestFlushed = w.latestInFlushBuf
	if release {
		w.mut.Unlock()
	}

	w.flushEvent.Broadcast()
	return nil
}

func (w *GroupWriter) swapAndWaitFlush() error {
	w.buf, w.flushBuf = w.flushBuf, w.buf
	w.flushOffset = w.offset
	w.latestInFlushBuf = w.latestInBuf
	w.offset = 0

	if err := w.flush(false); err != nil {
		return fmt.Errorf("flush failed: %w", err)
	}

	return nil
}

// SwapAndWaitFlush swaps the active and flush buffers and synchronously flushes the result.
func (w *GroupWriter) SwapAndWaitFlush() error {
	w.mut.Lock()
	defer w.mut.Unlock()

	w.buf, w.flushBuf = w.flushBuf, w.buf
	w.flushOffset = w.offset
	w.latestInFlushBuf = w.latestInBuf
	w.offset = 0

	if err := w.flush(false); err != nil {
		return fmt.Errorf("flush failed: %w", err)
	}

	return nil
}
