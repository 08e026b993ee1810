package key

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/openpgp-core/pgpcore/primitive"
)

// ComputeGrip derives a Grip from a key's raw algorithm parameters: the
// modulus for RSA, p for DSA/ElGamal, or the encoded point for EC
// algorithms. RNP computes its grip via libgcrypt's keygrip over an
// S-expression of the same parameters; pgpcore does not link libgcrypt,
// so this hashes the parameter bytes directly rather than reproducing
// gcrypt's S-expression canonicalization. Grips computed here will not
// byte-match a real GnuPG/RNP keyring's grip-indexed files — acceptable
// for pgpcore's own keystore/kbx round-trips, which only need internal
// consistency, but noted for any caller comparing against an external
// gcrypt-derived grip.
func ComputeGrip(m primitive.KeyMaterial) (Grip, error) {
	h, err := primitive.DefaultSuite{}.NewHash(primitive.HashSHA1)
	if err != nil {
		return nil, err
	}
	switch k := m.(type) {
	case *primitive.RSAPublic:
		h.Write(bigBytes(k.N))
	case *primitive.RSAPrivate:
		h.Write(bigBytes(k.N))
	case *primitive.DSAPublic:
		h.Write(bigBytes(k.P))
	case *primitive.DSAPrivate:
		h.Write(bigBytes(k.P))
	case *primitive.ElGamalPublic:
		h.Write(bigBytes(k.P))
	case *primitive.ElGamalPrivate:
		h.Write(bigBytes(k.P))
	case *primitive.ECPublic:
		h.Write(k.CurveOID)
		h.Write(k.Point)
	case *primitive.ECPrivate:
		h.Write(k.CurveOID)
		h.Write(k.Point)
	default:
		return nil, errors.Errorf("key: grip unsupported for %T", m)
	}
	return h.Sum(), nil
}

func bigBytes(n *big.Int) []byte {
	if n == nil {
		return nil
	}
	return n.Bytes()
}
