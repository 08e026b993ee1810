package primitive

import "math/big"

// RSAPublic carries RSA public parameters {n, e}.
type RSAPublic struct {
	N, E *big.Int
}

func (RSAPublic) Algo() PubKeyAlgo { return PubKeyRSA }

// RSAPrivate adds RSA secret parameters {d, p, q, u} to the public ones.
// U is the multiplicative inverse of p mod q, per RFC 4880 section 5.5.3.
type RSAPrivate struct {
	RSAPublic
	D, P, Q, U *big.Int
}

// DSAPublic carries DSA public parameters {p, q, g, y}.
type DSAPublic struct {
	P, Q, G, Y *big.Int
}

func (DSAPublic) Algo() PubKeyAlgo { return PubKeyDSA }

// DSAPrivate adds the DSA secret exponent x.
type DSAPrivate struct {
	DSAPublic
	X *big.Int
}

// ElGamalPublic carries ElGamal public parameters {p, g, y}.
type ElGamalPublic struct {
	P, G, Y *big.Int
}

func (ElGamalPublic) Algo() PubKeyAlgo { return PubKeyElGamal }

// ElGamalPrivate adds the ElGamal secret exponent x.
type ElGamalPrivate struct {
	ElGamalPublic
	X *big.Int
}

// ECDHParams carries the KDF hash and key-wrap cipher an ECDH key
// negotiates, per RFC 6637 section 9.
type ECDHParams struct {
	KDFHash   HashAlgo
	WrapCipher CipherAlgo
}

// ECPublic carries an EC-family public point over a named curve, used for
// ECDSA, EdDSA and ECDH (ECDH additionally populates KDF).
type ECPublic struct {
	CurveOID []byte
	Point    []byte // uncompressed SEC1 point, or raw EdDSA point with 0x40 prefix
	Algo_    PubKeyAlgo
	KDF      *ECDHParams // non-nil only for ECDH
}

func (k ECPublic) Algo() PubKeyAlgo { return k.Algo_ }

// ECPrivate adds the EC secret scalar.
type ECPrivate struct {
	ECPublic
	Scalar []byte
}
