package stream

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSourceReadFullAndAll(t *testing.T) {
	src := NewSource(bytes.NewReader([]byte("hello, world")))
	buf := make([]byte, 5)
	require.NoError(t, ReadFull(src, buf))
	require.Equal(t, []byte("hello"), buf)

	rest, err := ReadAll(src)
	require.NoError(t, err)
	require.Equal(t, []byte(", world"), rest)
}

func TestSourcePeekDoesNotConsume(t *testing.T) {
	src := NewSource(bytes.NewReader([]byte("abcdef")))
	peeked, err := src.Peek(3)
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), peeked)

	buf := make([]byte, 3)
	require.NoError(t, ReadFull(src, buf))
	require.Equal(t, []byte("abc"), buf)
}

func TestSourceSkip(t *testing.T) {
	src := NewSource(bytes.NewReader([]byte("abcdef")))
	require.NoError(t, src.Skip(2))
	buf := make([]byte, 4)
	require.NoError(t, ReadFull(src, buf))
	require.Equal(t, []byte("cdef"), buf)
}

func TestSourceEOF(t *testing.T) {
	src := NewSource(bytes.NewReader([]byte("x")))
	require.False(t, src.EOF())
	buf := make([]byte, 1)
	require.NoError(t, ReadFull(src, buf))
	require.True(t, src.EOF())
}

func TestSourceReadSoFarAndFinish(t *testing.T) {
	src := NewSource(bytes.NewReader([]byte("123456")))
	buf := make([]byte, 4)
	require.NoError(t, ReadFull(src, buf))
	require.Equal(t, int64(4), src.ReadSoFar())

	status := src.Finish()
	require.Equal(t, int64(4), status.BytesRead)
}

func TestSinkWriteAndClose(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSink(&buf)
	_, err := sink.Write([]byte("buffered"))
	require.NoError(t, err)
	require.Empty(t, buf.Bytes(), "bufio.Writer should not have flushed yet")

	require.NoError(t, sink.Close(false))
	require.Equal(t, "buffered", buf.String())
}

func TestSinkCloseDiscard(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSink(&buf)
	_, err := sink.Write([]byte("dropped"))
	require.NoError(t, err)
	require.NoError(t, sink.Close(true))
	require.Empty(t, buf.Bytes())
}

func TestSinkCloseIsIdempotent(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSink(&buf)
	require.NoError(t, sink.Close(false))
	require.NoError(t, sink.Close(false))
}

func TestChainClosesParentAfterChild(t *testing.T) {
	var buf bytes.Buffer
	parent := NewSink(&buf)
	child := NewSink(&buf)
	chained := Chain(child, parent)

	_, err := chained.Write([]byte("data"))
	require.NoError(t, err)
	require.NoError(t, chained.Close(false))
	require.Equal(t, "data", buf.String())
}
