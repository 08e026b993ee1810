package packet

import (
	"github.com/pkg/errors"

	"github.com/openpgp-core/pgpcore/primitive"
)

// CompressedHeader is the one-byte algorithm identifier that precedes a
// Compressed Data packet's compressed stream (RFC 4880 section 5.6). The
// decompressor itself lives in the pipeline package, which wraps the
// packet body Source with compress/zlib, compress/flate or
// compress/bzip2 as appropriate.
type CompressedHeader struct {
	Algo primitive.CompressAlgo
}

// ParseCompressedHeader reads the single algorithm byte.
func ParseCompressedHeader(prefix []byte) (CompressedHeader, int, error) {
	if len(prefix) < 1 {
		return CompressedHeader{}, 0, errors.New("packet: compressed header truncated")
	}
	return CompressedHeader{Algo: primitive.CompressAlgo(prefix[0])}, 1, nil
}

// Encode serializes the algorithm byte.
func (h CompressedHeader) Encode() []byte { return []byte{byte(h.Algo)} }
