package integrity

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/openpgp-core/pgpcore/primitive"
)

// ChunkParams describes one AEAD-Encrypted Data packet's framing (RFC
// 4880bis section 5.16): the cipher/AEAD algorithm pair, the starting
// IV, and the chunk size exponent (chunk length is 1<<(chunkSizeOctet+6)
// bytes).
type ChunkParams struct {
	Version       byte
	Cipher        primitive.CipherAlgo
	AEAD          primitive.AEADAlgo
	ChunkSizeOctet byte
	IV            []byte
}

// ChunkSize returns the plaintext chunk length in bytes.
func (p ChunkParams) ChunkSize() int64 {
	return int64(1) << (uint(p.ChunkSizeOctet) + 6)
}

// chunkNonce derives the per-chunk nonce by XORing the low 8 bytes of
// the starting IV with the big-endian chunk index, per RFC 4880bis
// section 5.16.1.
func chunkNonce(iv []byte, index uint64) []byte {
	nonce := append([]byte(nil), iv...)
	var idx [8]byte
	binary.BigEndian.PutUint64(idx[:], index)
	offset := len(nonce) - 8
	for i := 0; i < 8; i++ {
		nonce[offset+i] ^= idx[i]
	}
	return nonce
}

// chunkAAD builds the additional authenticated data for one chunk: the
// packet's framing header octets (tag, version, cipher, aead,
// chunk-size) followed by the big-endian chunk index.
func chunkAAD(p ChunkParams, index uint64) []byte {
	aad := []byte{0xd4 /* new-format tag 20 */, p.Version, byte(p.Cipher), byte(p.AEAD), p.ChunkSizeOctet}
	var idx [8]byte
	binary.BigEndian.PutUint64(idx[:], index)
	return append(aad, idx[:]...)
}

// finalAAD is the AAD for the trailing zero-length "total octet count"
// authentication chunk every AEAD-Encrypted Data packet ends with.
func finalAAD(p ChunkParams, index uint64, totalPlaintext uint64) []byte {
	aad := chunkAAD(p, index)
	var total [8]byte
	binary.BigEndian.PutUint64(total[:], totalPlaintext)
	return append(aad, total[:]...)
}

// Encrypt splits plaintext into ChunkSize()-byte chunks, seals each with
// aead using a per-chunk nonce and AAD, and appends the final
// zero-length authentication tag, writing the concatenated ciphertext
// chunks to w.
func Encrypt(w io.Writer, aead primitive.AEAD, p ChunkParams, plaintext []byte) error {
	chunkSize := p.ChunkSize()
	var index uint64
	var total uint64
	for int64(len(plaintext)) > 0 {
		n := chunkSize
		if int64(len(plaintext)) < n {
			n = int64(len(plaintext))
		}
		chunk := plaintext[:n]
		plaintext = plaintext[n:]
		nonce := chunkNonce(p.IV, index)
		sealed := aead.Seal(nil, nonce, chunk, chunkAAD(p, index))
		if _, err := w.Write(sealed); err != nil {
			return err
		}
		total += uint64(n)
		index++
	}
	finalNonce := chunkNonce(p.IV, index)
	final := aead.Seal(nil, finalNonce, nil, finalAAD(p, index, total))
	_, err := w.Write(final)
	return err
}

// Decrypt reverses Encrypt: ciphertext must be the full concatenation of
// sealed chunks plus the trailing authentication tag. It returns an
// error (without any recovered plaintext) if any chunk fails to
// authenticate.
func Decrypt(aead primitive.AEAD, p ChunkParams, ciphertext []byte) ([]byte, error) {
	chunkSize := p.ChunkSize()
	sealedChunk := chunkSize + int64(aead.Overhead())
	var out []byte
	var index uint64
	var total uint64
	for int64(len(ciphertext)) > int64(aead.Overhead()) {
		n := sealedChunk
		if int64(len(ciphertext))-int64(aead.Overhead()) < n {
			n = int64(len(ciphertext)) - int64(aead.Overhead())
		}
		chunk := ciphertext[:n]
		ciphertext = ciphertext[n:]
		nonce := chunkNonce(p.IV, index)
		plain, err := aead.Open(nil, nonce, chunk, chunkAAD(p, index))
		if err != nil {
			return nil, errors.Wrapf(err, "integrity: aead chunk %d", index)
		}
		out = append(out, plain...)
		total += uint64(len(plain))
		index++
	}
	finalNonce := chunkNonce(p.IV, index)
	if _, err := aead.Open(nil, finalNonce, ciphertext, finalAAD(p, index, total)); err != nil {
		return nil, errors.Wrap(err, "integrity: aead final tag")
	}
	return out, nil
}
