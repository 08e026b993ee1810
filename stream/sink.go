package stream

import (
	"bufio"
	"io"
)

// Sink is a push-write byte stream. Layers compose sinks for nested
// armor/encrypt/compress/literal writes, mirroring the Source stack.
type Sink interface {
	io.Writer
	// Close flushes buffered output to the underlying writer, unless
	// discard is true in which case all buffering is dropped and no
	// partial output reaches the underlying writer from this layer.
	// Close must be idempotent and must propagate the underlying
	// writer's close error.
	Close(discard bool) error
}

// baseSink adapts a plain io.Writer (and, if present, io.Closer) into a
// Sink at the bottom of a sink stack.
type baseSink struct {
	w      *bufio.Writer
	closer io.Closer
	closed bool
}

// NewSink wraps an io.Writer as the bottom of a sink stack.
func NewSink(w io.Writer) Sink {
	closer, _ := w.(io.Closer)
	return &baseSink{w: bufio.NewWriter(w), closer: closer}
}

func (s *baseSink) Write(p []byte) (int, error) {
	return s.w.Write(p)
}

func (s *baseSink) Close(discard bool) error {
	if s.closed {
		return nil
	}
	s.closed = true
	var err error
	if !discard {
		err = s.w.Flush()
	}
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// chainSink wraps a child Sink that owns a parent Sink, closing the
// parent only when the child itself is closed (LIFO lifetime, mirroring
// Source's parent ownership).
type chainSink struct {
	Sink
	parent Sink
}

// Chain ties child's Close to also close parent, in LIFO order (child
// first, so the child can flush trailers into parent before parent
// itself closes).
func Chain(child, parent Sink) Sink {
	return &chainSink{Sink: child, parent: parent}
}

func (c *chainSink) Close(discard bool) error {
	err := c.Sink.Close(discard)
	if perr := c.parent.Close(discard); err == nil {
		err = perr
	}
	return err
}
