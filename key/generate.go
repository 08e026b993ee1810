package key

import (
	"time"

	"github.com/pkg/errors"

	"github.com/openpgp-core/pgpcore/primitive"
)

// GenParams describes the parameters for a new primary key or subkey,
// mirroring RNP's generate_keygen_params gate (original_source/src/lib/
// generate-key.c): algorithm, a bit size for RSA/DSA/ElGamal or a curve
// identifier for EC algorithms, and an optional expiration.
type GenParams struct {
	Algo      primitive.PubKeyAlgo
	Bits      int    // RSA/DSA/ElGamal
	CurveOID  []byte // ECDSA/EdDSA/ECDH
	Created   time.Time
	ExpiresIn time.Duration // zero means "never expires"
	Flags     byte          // FlagCertify/FlagSign/FlagEncrypt.../FlagAuth
}

// minRSABits is RNP's floor for newly generated RSA keys; smaller moduli
// are accepted on load (spec.md draws a line between "generate" and
// "load" strictness) but rejected here.
const minRSABits = 1024

// certifyingAlgos lists public-key algorithms capable of producing a
// certification signature; a primary key must use one of these, the
// "reject a non-certifying primary" rule from spec.md's REDESIGN FLAGS.
var certifyingAlgos = map[primitive.PubKeyAlgo]bool{
	primitive.PubKeyRSA:     true,
	primitive.PubKeyDSA:     true,
	primitive.PubKeyEdDSA:   true,
	primitive.PubKeyECDSA:   true,
}

// Validate checks p for internal consistency and algorithm/bit-size
// compatibility, without touching any RNG or producing key material.
func (p GenParams) Validate(asPrimary bool) error {
	switch p.Algo {
	case primitive.PubKeyRSA, primitive.PubKeyRSAEncryptOnly, primitive.PubKeyRSASignOnly:
		if p.Bits < minRSABits {
			return errors.Errorf("key: rsa bit size %d below minimum %d", p.Bits, minRSABits)
		}
		if p.Bits%8 != 0 {
			return errors.New("key: rsa bit size must be a multiple of 8")
		}
	case primitive.PubKeyDSA:
		if p.Bits < 1024 || p.Bits > 3072 {
			return errors.Errorf("key: dsa bit size %d out of range [1024,3072]", p.Bits)
		}
	case primitive.PubKeyElGamal:
		if p.Bits < 1024 {
			return errors.Errorf("key: elgamal bit size %d below minimum 1024", p.Bits)
		}
	case primitive.PubKeyECDSA, primitive.PubKeyEdDSA, primitive.PubKeyECDH:
		if len(p.CurveOID) == 0 {
			return errors.New("key: ec algorithm requires a curve oid")
		}
	default:
		return errors.Errorf("key: unsupported algorithm %d", p.Algo)
	}

	if asPrimary && !certifyingAlgos[p.Algo] {
		return errors.Errorf("key: algorithm %d cannot certify, not usable as a primary key", p.Algo)
	}
	if p.ExpiresIn < 0 {
		return errors.New("key: negative expiration")
	}
	return nil
}

// GeneratePrimary validates p as a primary-key parameter set. It returns
// an error for any algorithm that cannot issue certifications (ElGamal,
// plain RSA-encrypt-only, plain RSA-sign-only) rather than silently
// accepting a primary key that could never certify its own subkeys or
// user IDs — the behavior RNP's rnp_generate_key_ex gates on, and which
// spec.md's REDESIGN FLAGS calls out as a correction over looser
// historical parsers that accept such a key and only fail later at
// certification time.
func GeneratePrimary(p GenParams) error {
	return p.Validate(true)
}

// GenerateSubkey validates p as a subkey parameter set; unlike a
// primary, a subkey with only encryption or authentication capability is
// perfectly ordinary.
func GenerateSubkey(p GenParams) error {
	return p.Validate(false)
}
