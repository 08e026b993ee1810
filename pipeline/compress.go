package pipeline

import (
	"bytes"
	"compress/flate"
	"compress/zlib"

	"github.com/pkg/errors"

	"github.com/openpgp-core/pgpcore/primitive"
)

// compressPayload compresses data for the given algorithm. BZIP2 has no
// compressor in Go's standard library (compress/bzip2 is decode-only,
// which matches OpenPGP's historical "BZIP2 is read-only for most
// implementations" posture) and is rejected here rather than silently
// falling back to another algorithm.
func compressPayload(algo primitive.CompressAlgo, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	switch algo {
	case primitive.CompressZIP:
		w, err := flate.NewWriter(&buf, flate.DefaultCompression)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case primitive.CompressZLIB:
		w := zlib.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, errors.Errorf("pipeline: unsupported compression algorithm for encoding: %d", algo)
	}
}
