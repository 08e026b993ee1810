// Package primitive defines the capability interfaces through which the
// rest of pgpcore reaches cryptographic and compression primitives. The
// core never imports crypto/rsa, crypto/aes, etc. directly outside of this
// package; everything else calls through Cipher, AEAD, Hash, PK and RNG.
package primitive

import "io"

// PubKeyAlgo identifies a public-key algorithm per RFC 4880 section 9.1.
type PubKeyAlgo uint8

const (
	PubKeyRSA            PubKeyAlgo = 1
	PubKeyRSAEncryptOnly PubKeyAlgo = 2
	PubKeyRSASignOnly    PubKeyAlgo = 3
	PubKeyElGamal        PubKeyAlgo = 16
	PubKeyDSA            PubKeyAlgo = 17
	PubKeyECDH           PubKeyAlgo = 18
	PubKeyECDSA          PubKeyAlgo = 19
	PubKeyEdDSA          PubKeyAlgo = 22
)

// HashAlgo identifies a hash algorithm per RFC 4880 section 9.4.
type HashAlgo uint8

const (
	HashMD5       HashAlgo = 1
	HashSHA1      HashAlgo = 2
	HashRIPEMD160 HashAlgo = 3
	HashSHA256    HashAlgo = 8
	HashSHA384    HashAlgo = 9
	HashSHA512    HashAlgo = 10
	HashSHA224    HashAlgo = 11
)

// String returns the RFC 4880bis section 9.5 text name, the form used
// in an armored cleartext signature's "Hash:" header.
func (a HashAlgo) String() string {
	switch a {
	case HashMD5:
		return "MD5"
	case HashSHA1:
		return "SHA1"
	case HashRIPEMD160:
		return "RIPEMD160"
	case HashSHA256:
		return "SHA256"
	case HashSHA384:
		return "SHA384"
	case HashSHA512:
		return "SHA512"
	case HashSHA224:
		return "SHA224"
	default:
		return "UNKNOWN"
	}
}

// CipherAlgo identifies a symmetric cipher algorithm per RFC 4880 section 9.2.
type CipherAlgo uint8

const (
	CipherPlaintext CipherAlgo = 0
	CipherIDEA      CipherAlgo = 1
	Cipher3DES      CipherAlgo = 2
	CipherCAST5     CipherAlgo = 3
	CipherBlowfish  CipherAlgo = 4
	CipherAES128    CipherAlgo = 7
	CipherAES192    CipherAlgo = 8
	CipherAES256    CipherAlgo = 9
	CipherTwofish   CipherAlgo = 10
	CipherCamellia128 CipherAlgo = 11
	CipherCamellia192 CipherAlgo = 12
	CipherCamellia256 CipherAlgo = 13
)

// CompressAlgo identifies a compression algorithm per RFC 4880 section 9.3.
type CompressAlgo uint8

const (
	CompressNone  CompressAlgo = 0
	CompressZIP   CompressAlgo = 1
	CompressZLIB  CompressAlgo = 2
	CompressBZIP2 CompressAlgo = 3
)

// AEADAlgo identifies a chunked AEAD mode per RFC 4880bis section 9.6.
type AEADAlgo uint8

const (
	AEADEAX AEADAlgo = 1
	AEADOCB AEADAlgo = 2
)

// Hash is a resettable, copyable running hash context.
type Hash interface {
	io.Writer
	Sum() []byte
	Copy() Hash
	Size() int
}

// HashFactory builds a fresh Hash context for the given algorithm.
type HashFactory interface {
	NewHash(alg HashAlgo) (Hash, error)
}

// Cipher is a symmetric block cipher operating in CFB mode, the only mode
// the core needs directly (secret-key protection and SE/SEIP data).
type Cipher interface {
	BlockSize() int
	KeySize() int
	// NewCFBEncrypter/NewCFBDecrypter return a stream over the given key
	// and IV (IV may be all-zero for the "resync" legacy construction;
	// callers needing mid-stream resync call NewCFBDecrypter again with a
	// fresh IV derived from the previous ciphertext, matching the
	// per-MPI resync rule for v3 secret keys).
	NewCFBEncrypter(key, iv []byte) (CFBStream, error)
	NewCFBDecrypter(key, iv []byte) (CFBStream, error)
}

// CFBStream XORs a keystream into data in place.
type CFBStream interface {
	XORKeyStream(dst, src []byte)
}

// CipherFactory resolves a CipherAlgo to a Cipher implementation.
type CipherFactory interface {
	NewCipher(alg CipherAlgo) (Cipher, error)
}

// AEAD is a chunk-oriented authenticated cipher (EAX or OCB).
type AEAD interface {
	NonceSize() int
	Overhead() int
	Seal(dst, nonce, plaintext, ad []byte) []byte
	Open(dst, nonce, ciphertext, ad []byte) ([]byte, error)
}

// AEADFactory resolves an (AEADAlgo, CipherAlgo, key) triple to an AEAD.
type AEADFactory interface {
	NewAEAD(aeadAlg AEADAlgo, cipherAlg CipherAlgo, key []byte) (AEAD, error)
}

// PK performs public-key sign/verify/encrypt/decrypt operations. Material
// is algorithm-specific (an MPI sequence for classic algorithms); the core
// never inspects it beyond passing it to PK.
type PK interface {
	Sign(alg PubKeyAlgo, priv KeyMaterial, hashAlg HashAlgo, digest []byte) (sig [][]byte, err error)
	Verify(alg PubKeyAlgo, pub KeyMaterial, hashAlg HashAlgo, digest []byte, sig [][]byte) (bool, error)
	Encrypt(alg PubKeyAlgo, pub KeyMaterial, plaintext []byte) (material [][]byte, err error)
	Decrypt(alg PubKeyAlgo, priv KeyMaterial, material [][]byte) (plaintext []byte, err error)
}

// KeyMaterial is an opaque, algorithm-specific carrier for public or
// secret key parameters. Concrete shapes (RSAPublic, DSAPrivate,
// ECPublic and the rest) are defined in keymaterial.go.
type KeyMaterial interface {
	Algo() PubKeyAlgo
}

// RNG is an opaque source of random bytes.
type RNG interface {
	Fill(buf []byte) error
}

// Suite bundles every capability the core consumes.
type Suite interface {
	HashFactory
	CipherFactory
	AEADFactory
	PK
	RNG
}
