package packet

import (
	"io"

	"github.com/pkg/errors"

	"github.com/openpgp-core/pgpcore/stream"
)

// partialSource exposes a sequence of length-prefixed parts (the last one
// non-partial) as one flat byte stream, per spec.md section 4.3's
// streaming reassembly rule. It never accumulates a full packet in
// memory; each part is consumed as the caller reads.
type partialSource struct {
	parent    stream.Source
	remaining int64 // bytes left in the current part
	done      bool
	read      int64
}

// NewBodySource returns a Source over exactly the body bytes described by
// hdr, reading further part-length headers from parent as needed when
// hdr.Partial is set.
func NewBodySource(parent stream.Source, hdr Header) stream.Source {
	if hdr.Indeterminate {
		return &indeterminateSource{parent: parent}
	}
	if !hdr.Partial {
		return &limitedSource{parent: parent, remaining: hdr.Length}
	}
	return &partialSource{parent: parent, remaining: hdr.Length}
}

func (p *partialSource) nextPart() error {
	length, partial, err := readNewLength(p.parent)
	if err != nil {
		return err
	}
	p.remaining = length
	if !partial {
		p.done = true // this is the final, non-partial part
	}
	return nil
}

func (p *partialSource) Read(buf []byte) (int, error) {
	for p.remaining == 0 {
		if p.done {
			return 0, io.EOF
		}
		if err := p.nextPart(); err != nil {
			return 0, err
		}
	}
	n := len(buf)
	if int64(n) > p.remaining {
		n = int(p.remaining)
	}
	read, err := p.parent.Read(buf[:n])
	p.remaining -= int64(read)
	p.read += int64(read)
	return read, err
}

func (p *partialSource) Peek(n int) ([]byte, error) {
	// Peek never crosses a part boundary; sufficient for the format
	// sniffing this package needs Peek for.
	avail := n
	if int64(avail) > p.remaining {
		avail = int(p.remaining)
	}
	return p.parent.Peek(avail)
}

func (p *partialSource) Skip(n int) error {
	buf := make([]byte, 4096)
	for n > 0 {
		chunk := len(buf)
		if chunk > n {
			chunk = n
		}
		read, err := p.Read(buf[:chunk])
		n -= read
		if err != nil && n > 0 {
			return err
		}
	}
	return nil
}

func (p *partialSource) EOF() bool {
	return p.remaining == 0 && p.done
}

func (p *partialSource) ReadSoFar() int64 { return p.read }

func (p *partialSource) Finish() stream.Status {
	return stream.Status{BytesRead: p.read}
}

// limitedSource bounds reads to a fixed non-partial body length.
type limitedSource struct {
	parent    stream.Source
	remaining int64
	read      int64
}

func (l *limitedSource) Read(buf []byte) (int, error) {
	if l.remaining == 0 {
		return 0, io.EOF
	}
	n := len(buf)
	if int64(n) > l.remaining {
		n = int(l.remaining)
	}
	read, err := l.parent.Read(buf[:n])
	l.remaining -= int64(read)
	l.read += int64(read)
	if err == nil && l.remaining == 0 {
		err = io.EOF
	}
	return read, err
}

func (l *limitedSource) Peek(n int) ([]byte, error) {
	if int64(n) > l.remaining {
		n = int(l.remaining)
	}
	return l.parent.Peek(n)
}

func (l *limitedSource) Skip(n int) error {
	if int64(n) > l.remaining {
		return errors.New("packet: skip exceeds remaining body")
	}
	if err := l.parent.Skip(n); err != nil {
		return err
	}
	l.remaining -= int64(n)
	l.read += int64(n)
	return nil
}

func (l *limitedSource) EOF() bool { return l.remaining == 0 }

func (l *limitedSource) ReadSoFar() int64 { return l.read }

func (l *limitedSource) Finish() stream.Status {
	// Draining is the caller's responsibility; Finish just reports how
	// much of the declared body was actually consumed.
	return stream.Status{BytesRead: l.read}
}

// indeterminateSource reads until the parent's EOF, for legacy old-format
// packets with length type 3.
type indeterminateSource struct {
	parent stream.Source
	read   int64
}

func (i *indeterminateSource) Read(buf []byte) (int, error) {
	n, err := i.parent.Read(buf)
	i.read += int64(n)
	return n, err
}
func (i *indeterminateSource) Peek(n int) ([]byte, error)  { return i.parent.Peek(n) }
func (i *indeterminateSource) Skip(n int) error             { return i.parent.Skip(n) }
func (i *indeterminateSource) EOF() bool                    { return i.parent.EOF() }
func (i *indeterminateSource) ReadSoFar() int64              { return i.read }
func (i *indeterminateSource) Finish() stream.Status         { return stream.Status{BytesRead: i.read} }
