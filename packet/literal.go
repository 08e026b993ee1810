package packet

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Literal data formats, RFC 4880 section 5.9.
const (
	LiteralBinary byte = 'b'
	LiteralText   byte = 't'
	LiteralUTF8   byte = 'u'
)

// LiteralHeader is the fixed-size prefix of a Literal Data packet; the
// remainder of the packet body is the raw content, streamed rather than
// buffered (spec.md section 4.1).
type LiteralHeader struct {
	Format   byte
	FileName string
	ModTime  int64
}

// ParseLiteralHeader decodes the fixed header from the start of a Literal
// packet's body and returns the number of bytes it occupied, so the
// caller can hand the remainder to a streaming Source.
func ParseLiteralHeader(prefix []byte) (LiteralHeader, int, error) {
	if len(prefix) < 6 {
		return LiteralHeader{}, 0, errors.New("packet: literal header truncated")
	}
	h := LiteralHeader{Format: prefix[0]}
	nameLen := int(prefix[1])
	if len(prefix) < 2+nameLen+4 {
		return LiteralHeader{}, 0, errors.New("packet: literal header truncated")
	}
	h.FileName = string(prefix[2 : 2+nameLen])
	h.ModTime = int64(binary.BigEndian.Uint32(prefix[2+nameLen : 2+nameLen+4]))
	return h, 2 + nameLen + 4, nil
}

// Encode serializes the fixed Literal Data header (format, filename,
// mod-time); the caller appends the content bytes separately.
func (h LiteralHeader) Encode() []byte {
	out := []byte{h.Format, byte(len(h.FileName))}
	out = append(out, h.FileName...)
	var mt [4]byte
	binary.BigEndian.PutUint32(mt[:], uint32(h.ModTime))
	return append(out, mt[:]...)
}
