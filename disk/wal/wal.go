// Package wal is the Log Manager collaborator: the buffer pool manager holds a LogManager but never
// drives it from NewPage, FetchPage, UnpinPage, FlushPage, or DeletePage.
package wal

import "encoding/binary"

// LSN is a log sequence number. ZeroLSN is returned by NoopLM and by any LogManager before
// its first AppendLog.
type LSN uint64

const ZeroLSN LSN = 0

func PutLSN(dst []byte, lsn LSN) {
	binary.BigEndian.PutUint64(dst, uint64(lsn))
}

func ReadLSN(src []byte) LSN {
	return LSN(binary.BigEndian.Uint64(src))
}

// LogManager is the narrow collaborator the buffer pool manager holds but never calls directly.
// AppendLog buffers payload for a later group-committed write and returns the LSN assigned to it;
// Flush forces everything buffered so far out to the underlying writer; GetFlushedLSN reports the
// newest LSN known to be durable.
type LogManager interface {
	AppendLog(payload []byte) LSN
	Flush() error
	GetFlushedLSN() LSN
}
