package wal

import (
	"bytes"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogManager_AppendThenFlush_WritesFramedEntries(t *testing.T) {
	var buf bytes.Buffer
	lm := NewLogManager(&buf)

	small := []byte("hello")
	large := make([]byte, 1024)
	rand.New(rand.NewSource(1)).Read(large)

	lsn1 := lm.AppendLog(small)
	lsn2 := lm.AppendLog(large)
	assert.Equal(t, LSN(1), lsn1)
	assert.Equal(t, LSN(2), lsn2)

	require.NoError(t, lm.Flush())
	assert.Equal(t, LSN(2), lm.GetFlushedLSN())

	rest := buf.Bytes()
	got1, n, err := decodeEntry(rest)
	require.NoError(t, err)
	assert.Equal(t, small, got1)

	rest = rest[n:]
	got2, _, err := decodeEntry(rest)
	require.NoError(t, err)
	assert.Equal(t, large, got2)
}

func TestLogManager_LargePayload_IsCompressedOnDisk(t *testing.T) {
	var buf bytes.Buffer
	lm := NewLogManager(&buf)

	repetitive := bytes.Repeat([]byte("cs174bufferpool"), 200)
	lm.AppendLog(repetitive)
	require.NoError(t, lm.Flush())

	assert.Less(t, buf.Len(), len(repetitive))
}

func TestLogManager_WaitAppendLog_BlocksUntilFlushed(t *testing.T) {
	var buf bytes.Buffer
	lm := NewLogManager(&buf)

	done := make(chan LSN, 1)
	go func() {
		done <- lm.WaitAppendLog([]byte("durable"))
	}()

	// give the goroutine above a chance to buffer its entry and start waiting before we flush it.
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, lm.Flush())

	select {
	case lsn := <-done:
		assert.Equal(t, LSN(1), lsn)
	case <-time.After(time.Second):
		t.Fatal("WaitAppendLog did not return after Flush")
	}
	assert.Equal(t, LSN(1), lm.GetFlushedLSN())
}

func TestNoopLogManager_DiscardsEverything(t *testing.T) {
	lsn := NoopLM.AppendLog([]byte("anything"))
	assert.Equal(t, ZeroLSN, lsn)
	assert.NoError(t, NoopLM.Flush())
	assert.Equal(t, ZeroLSN, NoopLM.GetFlushedLSN())
}
