package primitive

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"hash"

	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // RFC 4880 hash id 3
	"github.com/pkg/errors"
)

func newHash(alg HashAlgo) (hash.Hash, error) {
	switch alg {
	case HashMD5:
		return md5.New(), nil
	case HashSHA1:
		return sha1.New(), nil
	case HashRIPEMD160:
		return ripemd160.New(), nil
	case HashSHA256:
		return sha256.New(), nil
	case HashSHA384:
		return sha512.New384(), nil
	case HashSHA512:
		return sha512.New(), nil
	case HashSHA224:
		return sha256.New224(), nil
	default:
		return nil, errors.Errorf("primitive: unsupported hash algorithm %d", alg)
	}
}

// factoryHash remembers its own algorithm so Copy can rebuild a fresh
// hash.Hash of the same concrete type and replay its running state via
// the stdlib hashes' encoding.BinaryMarshaler support, rather than
// type-switching on an opaque hash.Hash value.
type factoryHash struct {
	alg HashAlgo
	h   hash.Hash
}

func (s *factoryHash) Write(p []byte) (int, error) { return s.h.Write(p) }
func (s *factoryHash) Sum() []byte                 { return s.h.Sum(nil) }
func (s *factoryHash) Size() int                   { return s.h.Size() }

func (s *factoryHash) Copy() Hash {
	type cloner interface {
		MarshalBinary() ([]byte, error)
	}
	type restorer interface {
		UnmarshalBinary([]byte) error
	}
	fresh, _ := newHash(s.alg)
	if c, ok := s.h.(cloner); ok {
		if state, err := c.MarshalBinary(); err == nil {
			if r, ok := fresh.(restorer); ok {
				r.UnmarshalBinary(state)
			}
		}
	}
	return &factoryHash{alg: s.alg, h: fresh}
}

// NewHash implements HashFactory for DefaultSuite.
func (DefaultSuite) NewHash(alg HashAlgo) (Hash, error) {
	h, err := newHash(alg)
	if err != nil {
		return nil, err
	}
	return &factoryHash{alg: alg, h: h}, nil
}
