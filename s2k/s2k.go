// Package s2k implements the OpenPGP String-to-Key constructions: Simple,
// Salted, and Iterated-and-Salted, each deriving an N-byte symmetric key
// from a passphrase via a primitive.Hash.
package s2k

import (
	"github.com/pkg/errors"

	"github.com/openpgp-core/pgpcore/primitive"
)

// Mode identifies the S2K specifier type byte.
type Mode byte

const (
	ModeSimple         Mode = 0
	ModeSalted         Mode = 1
	ModeIteratedSalted Mode = 3
	// ModeGNUDummy marks a secret key whose material was stripped
	// (GnuPG's "gnu-dummy" extension); pgpcore preserves such packets
	// verbatim rather than attempting to derive a key for them.
	ModeGNUDummy Mode = 101
)

// Params describes one S2K specifier as it appears on the wire.
type Params struct {
	Mode  Mode
	Hash  primitive.HashAlgo
	Salt  []byte // 8 bytes, Salted and IteratedSalted only
	Count int    // decoded iteration count, IteratedSalted only
}

// EncodeCount packs an iteration count into the standard 1-byte
// logarithmic form: (16 + (c & 15)) << ((c >> 4) + 6). The caller
// supplies the desired byte count directly; EncodeCount finds the
// smallest encodable count >= want.
func EncodeCount(want int) byte {
	for c := 0; c < 256; c++ {
		if DecodeCount(byte(c)) >= want {
			return byte(c)
		}
	}
	return 255
}

// DecodeCount expands the 1-byte logarithmic count into an octet count.
func DecodeCount(c byte) int {
	return (16 + int(c&15)) << (uint(c>>4) + 6)
}

// Derive produces an N-byte key from passphrase per p's mode.
func Derive(hf primitive.HashFactory, p Params, passphrase []byte, n int) ([]byte, error) {
	h, err := hf.NewHash(p.Hash)
	if err != nil {
		return nil, errors.Wrap(err, "s2k: hash")
	}
	out := make([]byte, 0, n)
	var preload []byte
	for len(out) < n {
		h := h.Copy()
		for i := 0; i < len(preload); i++ {
			h.Write([]byte{0})
		}
		switch p.Mode {
		case ModeSimple:
			h.Write(passphrase)
		case ModeSalted:
			h.Write(p.Salt)
			h.Write(passphrase)
		case ModeIteratedSalted:
			full := append(append([]byte{}, p.Salt...), passphrase...)
			if len(full) == 0 {
				return nil, errors.New("s2k: empty salt+passphrase")
			}
			count := p.Count
			if count < len(full) {
				count = len(full)
			}
			written := 0
			for written+len(full) <= count {
				h.Write(full)
				written += len(full)
			}
			if written < count {
				h.Write(full[:count-written])
			}
		default:
			return nil, errors.Errorf("s2k: unsupported mode %d", p.Mode)
		}
		out = append(out, h.Sum()...)
		preload = append(preload, 0)
	}
	return out[:n], nil
}
