// Package key implements the OpenPGP key entity model: grouping a primary
// key with its user IDs, certifications, subkeys and binding signatures
// into one mergeable object, with fingerprint/key-id/grip derivation for
// both v3 and v4 keys.
package key

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/openpgp-core/pgpcore/packet"
	"github.com/openpgp-core/pgpcore/primitive"
)

// KeyID is the low 64 bits of a key's fingerprint (v4) or, for v3 RSA
// keys, the low 64 bits of the modulus n itself.
type KeyID [8]byte

// Fingerprint uniquely identifies a public key: 20 bytes (SHA-1) for v4,
// 16 bytes (MD5 over n||e) for v3.
type Fingerprint []byte

// UserID binds an identity string (or attribute) to certifying
// signatures from the primary key and, potentially, third parties.
type UserID struct {
	Packet    *packet.UserID
	Attribute *packet.UserAttribute
	CertSigs  []*packet.Signature
	Primary   bool // carries a SubPrimaryUserID hashed subpacket
	Revoked   bool
}

// Subkey is a secondary key bound to the primary by a SubkeyBinding
// signature, optionally with an embedded primary-key-binding signature
// (required when the subkey carries the "sign data" capability).
type Subkey struct {
	Public   *packet.PublicKey
	Secret   *packet.SecretKey // nil if this is a public-only view
	Binding  *packet.Signature
	Revoked  bool
	Valid    bool
	KeyID    KeyID
	Fingerprint Fingerprint
}

// Key is the merged entity for one primary key: its public material,
// optionally its secret material, user IDs, direct-key signatures,
// revocations and subkeys.
type Key struct {
	Public  *packet.PublicKey
	Secret  *packet.SecretKey // nil for a public-only key
	UserIDs []*UserID
	DirectSigs []*packet.Signature
	Revocations []*packet.Signature
	Subkeys []*Subkey

	KeyID       KeyID
	Fingerprint Fingerprint
	Grip        Grip

	// Valid is computed by Validate; a key is usable for lookup before
	// validation but Valid defaults to false until Validate has run.
	Valid bool
	// Validated reports whether Validate has run at all, distinct from
	// Valid (a key can be validated and found invalid).
	Validated bool
}

// Grip is RNP's key grip: a SHA-1 hash over the key's raw algorithm
// parameters (not the RFC 4880 fingerprint bytes), used internally by
// GnuPG/RNP to correlate a public key with its secret-key storage
// independent of packet encoding. pgpcore hashes the raw parameter bytes
// (see key/grip.go), so its grips do not byte-match GnuPG/RNP grips.
type Grip []byte

// Fingerprint computes the RFC 4880 fingerprint for pk: v4 uses SHA-1
// over 0x99, a 2-byte length, and the public key body; v3 uses MD5 over
// the raw n||e bytes (no header), per RFC 4880 section 12.2.
func ComputeFingerprint(pk *packet.PublicKey) (Fingerprint, error) {
	if pk.Version == 4 {
		body := pk.RawBody()
		h, err := primitive.DefaultSuite{}.NewHash(primitive.HashSHA1)
		if err != nil {
			return nil, err
		}
		h.Write([]byte{0x99})
		h.Write([]byte{byte(len(body) >> 8), byte(len(body))})
		h.Write(body)
		return h.Sum(), nil
	}
	if pk.Version == 3 {
		rsa, ok := pk.Material.(*primitive.RSAPublic)
		if !ok {
			return nil, errors.New("key: v3 fingerprint requires rsa material")
		}
		return md5Fingerprint(rsa)
	}
	return nil, errors.Errorf("key: unsupported public key version %d", pk.Version)
}

// ComputeKeyID derives the 8-byte key ID from a fingerprint: the low 8
// bytes for v4 (SHA-1 fingerprint), or the low 8 bytes of the RSA
// modulus for v3 (per RFC 4880 section 12.2, v3 key IDs are NOT derived
// from the v3 fingerprint, which uses MD5 — they come from n directly).
func ComputeKeyID(pk *packet.PublicKey) (KeyID, error) {
	if pk.Version == 4 {
		fp, err := ComputeFingerprint(pk)
		if err != nil {
			return KeyID{}, err
		}
		var id KeyID
		copy(id[:], fp[len(fp)-8:])
		return id, nil
	}
	rsa, ok := pk.Material.(*primitive.RSAPublic)
	if !ok {
		return KeyID{}, errors.New("key: v3 key id requires rsa material")
	}
	nBytes := rsa.N.Bytes()
	var id KeyID
	if len(nBytes) >= 8 {
		copy(id[:], nBytes[len(nBytes)-8:])
	} else {
		copy(id[8-len(nBytes):], nBytes)
	}
	return id, nil
}

// New builds a Key from a parsed primary PublicKey, computing its
// fingerprint and key ID. UserIDs, subkeys and signatures are attached
// afterward (LoadAll appends them as they follow the primary in a flat
// packet sequence, adding subkeys through AddSubkey).
func New(pub *packet.PublicKey) (*Key, error) {
	if pub.IsSubkey {
		return nil, errors.New("key: New requires a primary public key")
	}
	fp, err := ComputeFingerprint(pub)
	if err != nil {
		return nil, err
	}
	id, err := ComputeKeyID(pub)
	if err != nil {
		return nil, err
	}
	grip, err := ComputeGrip(pub.Material)
	if err != nil {
		return nil, err
	}
	return &Key{Public: pub, Fingerprint: fp, KeyID: id, Grip: grip}, nil
}

func md5Fingerprint(rsa *primitive.RSAPublic) (Fingerprint, error) {
	// v3 fingerprints hash the raw big-endian bytes of n and e with no
	// MPI bit-count prefix, per RFC 4880 section 12.2.
	var buf bytes.Buffer
	buf.Write(rsa.N.Bytes())
	buf.Write(rsa.E.Bytes())
	return md5Sum(buf.Bytes())
}
