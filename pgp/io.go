package pgp

import (
	"bytes"

	"github.com/openpgp-core/pgpcore/stream"
)

func newByteSource(data []byte) stream.Source {
	return stream.NewSource(bytes.NewReader(data))
}
