package wal

import (
	"encoding/binary"
	"io"
	"sync"
	"sync/atomic"

	"github.com/golang/snappy"
)

const bufSize = 1024 * 64

// compressThreshold is the payload size, in bytes, at or above which AppendLog snappy-compresses the
// payload before handing it to the group writer. Small payloads are not worth the framing overhead.
const compressThreshold = 256

// entryHeaderSize is the fixed-size prefix written ahead of every log entry: 1 compression flag byte
// followed by a uint32 length of what follows.
const entryHeaderSize = 1 + 4

// GroupLogManager is the real LogManager implementation: AppendLog buffers payloads and assigns them
// an LSN; buffered payloads reach the underlying writer either when the background flusher's timer
// fires or when Flush is called directly.
type GroupLogManager struct {
	currLsn uint64

	bufM sync.Mutex
	gw   *GroupWriter
}

func NewLogManager(w io.Writer) *GroupLogManager {
	return &GroupLogManager{
		gw: NewGroupWriter(bufSize, w),
	}
}

// AppendLog appends payload to the log, assigns it the next LSN, and returns that LSN. It does not
// block on the payload reaching the underlying writer; call Flush for that.
func (l *GroupLogManager) AppendLog(payload []byte) LSN {
	l.bufM.Lock()
	defer l.bufM.Unlock()

	lsn := LSN(atomic.AddUint64(&l.currLsn, 1))
	l.gw.Write(encodeEntry(payload), lsn)
	return lsn
}

// WaitAppendLog is the same as AppendLog but blocks until the appended entry is flushed to the
// underlying writer. Useful when a caller must know a record reached disk before proceeding.
func (l *GroupLogManager) WaitAppendLog(payload []byte) LSN {
	l.bufM.Lock()
	lsn := LSN(atomic.AddUint64(&l.currLsn, 1))
	l.gw.Write(encodeEntry(payload), lsn)
	l.bufM.Unlock()

	l.gw.flushEvent.Wait()
	return lsn
}

func (l *GroupLogManager) RunFlusher() {
	l.gw.RunFlusher()
}

func (l *GroupLogManager) StopFlusher() error {
	return l.gw.StopFlusher()
}

// Flush swaps the active and flush-in-progress buffers and blocks until the swapped-out buffer is
// written to the underlying writer.
func (l *GroupLogManager) Flush() error {
	l.bufM.Lock()
	defer l.bufM.Unlock()

	return l.gw.SwapAndWaitFlush()
}

// GetFlushedLSN returns the latest LSN known to be durable.
func (l *GroupLogManager) GetFlushedLSN() LSN {
	return l.gw.latestFlushed
}

// encodeEntry frames payload behind a 1-byte compression flag and a uint32 length, snappy-compressing
// it first when it is large enough to be worth the overhead.
func encodeEntry(payload []byte) []byte {
	compressed := byte(0)
	body := payload
	if len(payload) >= compressThreshold {
		body = snappy.Encode(nil, payload)
		compressed = 1
	}

	out := make([]byte, entryHeaderSize+len(body))
	out[0] = compressed
	binary.BigEndian.PutUint32(out[1:entryHeaderSize], uint32(len(body)))
	copy(out[entryHeaderSize:], body)
	return out
}

// decodeEntry reverses encodeEntry, returning the original payload and the number of bytes consumed
// from src.
func decodeEntry(src []byte) (payload []byte, consumed int, err error) {
	if len(src) < entryHeaderSize {
		return nil, 0, io.ErrUnexpectedEOF
	}

	compressed := src[0]
	n := int(binary.BigEndian.Uint32(src[1:entryHeaderSize]))
	if len(src) < entryHeaderSize+n {
		return nil, 0, io.ErrUnexpectedEOF
	}

	body := src[entryHeaderSize : entryHeaderSize+n]
	if compressed == 1 {
		payload, err = snappy.Decode(nil, body)
		if err != nil {
			return nil, 0, err
		}
		return payload, entryHeaderSize + n, nil
	}

	out := make([]byte, n)
	copy(out, body)
	return out, entryHeaderSize + n, nil
}

var _ LogManager = &GroupLogManager{}
