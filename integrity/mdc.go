// Package integrity implements the two message-integrity mechanisms
// layered under Symmetrically Encrypted (Integrity Protected) Data: the
// SHA-1 Modification Detection Code trailer (RFC 4880 section 5.13) and
// chunked AEAD framing (RFC 4880bis section 5.16), per spec.md section
// 4.9.
package integrity

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/openpgp-core/pgpcore/primitive"
)

// mdcTagByte/mdcLenByte are the fixed two bytes (tag 0xd3, length
// 0x14) that open an MDC packet's 22-byte encoding, hashed as part of
// the trailer even though they are never separately "read" as a packet
// by the decrypting side (RFC 4880 section 5.14).
const mdcTagByte = 0xd3
const mdcLenByte = 0x14
const MDCSize = 22

// ErrMDCMismatch is returned when a decrypted stream's trailing MDC does
// not match the SHA-1 hash of everything preceding it.
var ErrMDCMismatch = errors.New("integrity: mdc mismatch")

// AppendMDC computes the MDC trailer for plaintext (prefixed by the
// random+repeat quick-check bytes already mixed in by the caller) and
// returns plaintext with the 22-byte trailer appended.
func AppendMDC(suite primitive.Suite, plaintext []byte) ([]byte, error) {
	h, err := suite.NewHash(primitive.HashSHA1)
	if err != nil {
		return nil, err
	}
	h.Write(plaintext)
	h.Write([]byte{mdcTagByte, mdcLenByte})
	sum := h.Sum()
	out := make([]byte, 0, len(plaintext)+MDCSize)
	out = append(out, plaintext...)
	out = append(out, mdcTagByte, mdcLenByte)
	out = append(out, sum...)
	return out, nil
}

// VerifyMDC splits decrypted (plaintext-with-trailer) into plaintext and
// its MDC trailer, recomputes the hash, and returns ErrMDCMismatch if it
// does not match.
func VerifyMDC(suite primitive.Suite, decrypted []byte) ([]byte, error) {
	if len(decrypted) < MDCSize {
		return nil, errors.New("integrity: stream too short for mdc trailer")
	}
	plaintext := decrypted[:len(decrypted)-MDCSize]
	trailer := decrypted[len(decrypted)-MDCSize:]
	if trailer[0] != mdcTagByte || trailer[1] != mdcLenByte {
		return nil, errors.New("integrity: malformed mdc trailer header")
	}
	h, err := suite.NewHash(primitive.HashSHA1)
	if err != nil {
		return nil, err
	}
	h.Write(plaintext)
	h.Write(trailer[:2])
	if !bytes.Equal(h.Sum(), trailer[2:]) {
		return nil, ErrMDCMismatch
	}
	return plaintext, nil
}
