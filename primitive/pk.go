package primitive

import (
	"crypto"
	"crypto/dsa" //nolint:staticcheck // RFC 4880 pk-alg 17
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"math/big"

	"github.com/pkg/errors"
	"golang.org/x/crypto/openpgp/elgamal" //nolint:staticcheck // RFC 4880 pk-alg 16
)

var cryptoHashByAlgo = map[HashAlgo]crypto.Hash{
	HashMD5:       crypto.MD5,
	HashSHA1:      crypto.SHA1,
	HashRIPEMD160: crypto.RIPEMD160,
	HashSHA256:    crypto.SHA256,
	HashSHA384:    crypto.SHA384,
	HashSHA512:    crypto.SHA512,
	HashSHA224:    crypto.SHA224,
}

// Sign implements PK for DefaultSuite.
func (DefaultSuite) Sign(alg PubKeyAlgo, priv KeyMaterial, hashAlg HashAlgo, digest []byte) ([][]byte, error) {
	switch alg {
	case PubKeyRSA, PubKeyRSASignOnly:
		k, ok := priv.(*RSAPrivate)
		if !ok {
			return nil, errMaterialMismatch(alg)
		}
		rk := rsaPrivateKey(k)
		ch, ok := cryptoHashByAlgo[hashAlg]
		if !ok {
			return nil, errors.Errorf("primitive: unsupported hash %d for RSA sign", hashAlg)
		}
		sig, err := rsa.SignPKCS1v15(rand.Reader, rk, ch, digest)
		if err != nil {
			return nil, err
		}
		return [][]byte{sig}, nil

	case PubKeyDSA:
		k, ok := priv.(*DSAPrivate)
		if !ok {
			return nil, errMaterialMismatch(alg)
		}
		dk := dsaPrivateKey(k)
		r, s, err := dsa.Sign(rand.Reader, dk, digest)
		if err != nil {
			return nil, err
		}
		return [][]byte{r.Bytes(), s.Bytes()}, nil

	case PubKeyECDSA:
		k, ok := priv.(*ECPrivate)
		if !ok {
			return nil, errMaterialMismatch(alg)
		}
		curve, err := curveByOID(k.CurveOID)
		if err != nil {
			return nil, err
		}
		ek := new(ecdsa.PrivateKey)
		ek.Curve = curve
		ek.D = new(big.Int).SetBytes(k.Scalar)
		ek.PublicKey.X, ek.PublicKey.Y = elliptic.Unmarshal(curve, k.Point)
		r, s, err := ecdsa.Sign(rand.Reader, ek, digest)
		if err != nil {
			return nil, err
		}
		return [][]byte{r.Bytes(), s.Bytes()}, nil

	case PubKeyEdDSA:
		k, ok := priv.(*ECPrivate)
		if !ok {
			return nil, errMaterialMismatch(alg)
		}
		sk := ed25519.NewKeyFromSeed(k.Scalar)
		sig := ed25519.Sign(sk, digest)
		return [][]byte{sig[:32], sig[32:]}, nil

	default:
		return nil, errors.Errorf("primitive: unsupported sign algorithm %d", alg)
	}
}

// Verify implements PK for DefaultSuite.
func (DefaultSuite) Verify(alg PubKeyAlgo, pub KeyMaterial, hashAlg HashAlgo, digest []byte, sig [][]byte) (bool, error) {
	switch alg {
	case PubKeyRSA, PubKeyRSASignOnly:
		k, ok := pub.(*RSAPublic)
		if !ok {
			return false, errMaterialMismatch(alg)
		}
		if len(sig) != 1 {
			return false, errors.New("primitive: rsa signature malformed")
		}
		ch, ok := cryptoHashByAlgo[hashAlg]
		if !ok {
			return false, errors.Errorf("primitive: unsupported hash %d for RSA verify", hashAlg)
		}
		rk := &rsa.PublicKey{N: k.N, E: int(k.E.Int64())}
		err := rsa.VerifyPKCS1v15(rk, ch, digest, sig[0])
		return err == nil, nil

	case PubKeyDSA:
		k, ok := pub.(*DSAPublic)
		if !ok {
			return false, errMaterialMismatch(alg)
		}
		if len(sig) != 2 {
			return false, errors.New("primitive: dsa signature malformed")
		}
		dk := &dsa.PublicKey{
			Parameters: dsa.Parameters{P: k.P, Q: k.Q, G: k.G},
			Y:          k.Y,
		}
		r := new(big.Int).SetBytes(sig[0])
		s := new(big.Int).SetBytes(sig[1])
		return dsa.Verify(dk, digest, r, s), nil

	case PubKeyECDSA:
		k, ok := pub.(*ECPublic)
		if !ok {
			return false, errMaterialMismatch(alg)
		}
		if len(sig) != 2 {
			return false, errors.New("primitive: ecdsa signature malformed")
		}
		curve, err := curveByOID(k.CurveOID)
		if err != nil {
			return false, err
		}
		x, y := elliptic.Unmarshal(curve, k.Point)
		ek := &ecdsa.PublicKey{Curve: curve, X: x, Y: y}
		r := new(big.Int).SetBytes(sig[0])
		s := new(big.Int).SetBytes(sig[1])
		return ecdsa.Verify(ek, digest, r, s), nil

	case PubKeyEdDSA:
		k, ok := pub.(*ECPublic)
		if !ok {
			return false, errMaterialMismatch(alg)
		}
		if len(sig) != 2 || len(k.Point) < 32 {
			return false, errors.New("primitive: eddsa signature malformed")
		}
		pubkey := k.Point[len(k.Point)-32:]
		full := append(append([]byte{}, sig[0]...), sig[1]...)
		return ed25519.Verify(pubkey, digest, full), nil

	default:
		return false, errors.Errorf("primitive: unsupported verify algorithm %d", alg)
	}
}

// Encrypt implements PK for DefaultSuite (used for PK-ESK session-key
// wrapping). Only RSA and ElGamal are handled; ECDH and every other
// algorithm return an error.
func (DefaultSuite) Encrypt(alg PubKeyAlgo, pub KeyMaterial, plaintext []byte) ([][]byte, error) {
	switch alg {
	case PubKeyRSA, PubKeyRSAEncryptOnly:
		k, ok := pub.(*RSAPublic)
		if !ok {
			return nil, errMaterialMismatch(alg)
		}
		rk := &rsa.PublicKey{N: k.N, E: int(k.E.Int64())}
		ct, err := rsa.EncryptPKCS1v15(rand.Reader, rk, plaintext)
		if err != nil {
			return nil, err
		}
		return [][]byte{ct}, nil

	case PubKeyElGamal:
		k, ok := pub.(*ElGamalPublic)
		if !ok {
			return nil, errMaterialMismatch(alg)
		}
		ek := &elgamal.PublicKey{P: k.P, G: k.G, Y: k.Y}
		c1, c2, err := elgamal.Encrypt(rand.Reader, ek, plaintext)
		if err != nil {
			return nil, err
		}
		return [][]byte{c1.Bytes(), c2.Bytes()}, nil

	default:
		return nil, errors.Errorf("primitive: unsupported encrypt algorithm %d", alg)
	}
}

// Decrypt implements PK for DefaultSuite.
func (DefaultSuite) Decrypt(alg PubKeyAlgo, priv KeyMaterial, material [][]byte) ([]byte, error) {
	switch alg {
	case PubKeyRSA, PubKeyRSAEncryptOnly:
		k, ok := priv.(*RSAPrivate)
		if !ok {
			return nil, errMaterialMismatch(alg)
		}
		if len(material) != 1 {
			return nil, errors.New("primitive: rsa ciphertext malformed")
		}
		rk := rsaPrivateKey(k)
		return rsa.DecryptPKCS1v15(rand.Reader, rk, material[0])

	case PubKeyElGamal:
		k, ok := priv.(*ElGamalPrivate)
		if !ok {
			return nil, errMaterialMismatch(alg)
		}
		if len(material) != 2 {
			return nil, errors.New("primitive: elgamal ciphertext malformed")
		}
		ek := &elgamal.PrivateKey{
			PublicKey: elgamal.PublicKey{P: k.P, G: k.G, Y: k.Y},
			X:         k.X,
		}
		c1 := new(big.Int).SetBytes(material[0])
		c2 := new(big.Int).SetBytes(material[1])
		return elgamal.Decrypt(ek, c1, c2)

	default:
		return nil, errors.Errorf("primitive: unsupported decrypt algorithm %d", alg)
	}
}

func rsaPrivateKey(k *RSAPrivate) *rsa.PrivateKey {
	rk := &rsa.PrivateKey{
		PublicKey: rsa.PublicKey{N: k.N, E: int(k.E.Int64())},
		D:         k.D,
		Primes:    []*big.Int{k.P, k.Q},
	}
	rk.Precompute()
	return rk
}

func dsaPrivateKey(k *DSAPrivate) *dsa.PrivateKey {
	return &dsa.PrivateKey{
		PublicKey: dsa.PublicKey{
			Parameters: dsa.Parameters{P: k.P, Q: k.Q, G: k.G},
			Y:          k.Y,
		},
		X: k.X,
	}
}

func errMaterialMismatch(alg PubKeyAlgo) error {
	return errors.Errorf("primitive: key material does not match algorithm %d", alg)
}

// curveByOID maps a DER-encoded curve OID to its stdlib elliptic.Curve.
// Only the NIST curves RFC 6637 mandates are wired; any other OID is
// rejected. Ed25519 EdDSA is handled by its own algorithm branch above
// rather than through elliptic.Curve.
func curveByOID(oid []byte) (elliptic.Curve, error) {
	nistP256 := []byte{0x2a, 0x86, 0x48, 0xce, 0x3d, 0x03, 0x01, 0x07}
	nistP384 := []byte{0x2b, 0x81, 0x04, 0x00, 0x22}
	nistP521 := []byte{0x2b, 0x81, 0x04, 0x00, 0x23}
	switch {
	case bytesEqual(oid, nistP256):
		return elliptic.P256(), nil
	case bytesEqual(oid, nistP384):
		return elliptic.P384(), nil
	case bytesEqual(oid, nistP521):
		return elliptic.P521(), nil
	default:
		return nil, errors.New("primitive: unsupported curve oid")
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
