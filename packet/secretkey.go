package packet

import (
	"bytes"
	"encoding/binary"
	"math/big"

	"github.com/pkg/errors"

	"github.com/openpgp-core/pgpcore/mpi"
	"github.com/openpgp-core/pgpcore/primitive"
	"github.com/openpgp-core/pgpcore/s2k"
)

// Protection usage bytes, spec.md section 4.4.
const (
	ProtectNone        byte = 0x00
	ProtectSHA1Hashed  byte = 0xfe
	ProtectChecksummed byte = 0xff
)

// SecretKeyProtection describes how a secret key's material is encoded on
// the wire, per spec.md section 3.
type SecretKeyProtection struct {
	Usage    byte
	Cipher   primitive.CipherAlgo
	S2K      s2k.Params
	IV       []byte
}

// SecretKey is the decoded body of a Secret-Key or Secret-Subkey packet.
// Material holds the public parameters always; the secret components are
// only populated once Unlock succeeds (or immediately, for an unprotected
// key).
type SecretKey struct {
	Public     *PublicKey
	Protection SecretKeyProtection
	// encryptedData is the still-encrypted secret region (protected
	// keys) exactly as parsed; Secret is nil until Unlock runs.
	encryptedData []byte
	Secret        primitive.KeyMaterial // populated once unlocked
	locked        bool
}

// ErrBadPassword distinguishes a checksum/hash mismatch on unlock from
// structural corruption, per spec.md section 4.4.
var ErrBadPassword = errors.New("packet: bad password")

// ParseSecretKeyBody decodes a Secret-Key/Secret-Subkey packet body. The
// public portion is always available; secret material requires Unlock
// unless Protection.Usage is ProtectNone, in which case it is populated
// immediately (an empty, non-nil passphrase still calls Unlock by
// convention so callers have one code path).
func ParseSecretKeyBody(body []byte, isSubkey bool) (*SecretKey, error) {
	pub, err := ParsePublicKeyBody(body, isSubkey)
	if err != nil {
		return nil, err
	}
	rest := body[len(pub.RawBody()):]
	if len(rest) < 1 {
		return nil, errors.New("packet: secret key missing protection byte")
	}
	sk := &SecretKey{Public: pub, locked: true}
	usage := rest[0]
	rest = rest[1:]
	sk.Protection.Usage = usage

	switch usage {
	case ProtectNone:
		material, err := parseSecretMaterial(pub.Algo, rest, nil)
		if err != nil {
			return nil, err
		}
		sk.Secret = material
		sk.locked = false
		return sk, nil

	case ProtectSHA1Hashed, ProtectChecksummed:
		if len(rest) < 1 {
			return nil, errors.New("packet: secret key truncated protection")
		}
		sk.Protection.Cipher = primitive.CipherAlgo(rest[0])
		rest = rest[1:]
		mode, consumed, err := parseS2KParams(rest)
		if err != nil {
			return nil, err
		}
		sk.Protection.S2K = mode
		rest = rest[consumed:]
		if mode.Mode != s2k.ModeGNUDummy {
			ivLen := cipherBlockLen(sk.Protection.Cipher)
			if len(rest) < ivLen {
				return nil, errors.New("packet: secret key truncated iv")
			}
			sk.Protection.IV = append([]byte(nil), rest[:ivLen]...)
			rest = rest[ivLen:]
		}
		sk.encryptedData = append([]byte(nil), rest...)
		return sk, nil

	default:
		// Legacy simple cipher-only protection (usage byte equals a
		// cipher algorithm ID directly): rare, but RFC 4880 section
		// 5.5.3 still documents it for version-3 secret keys.
		sk.Protection.Cipher = primitive.CipherAlgo(usage)
		ivLen := cipherBlockLen(sk.Protection.Cipher)
		if len(rest) < ivLen {
			return nil, errors.New("packet: secret key truncated iv")
		}
		sk.Protection.IV = append([]byte(nil), rest[:ivLen]...)
		sk.encryptedData = append([]byte(nil), rest[ivLen:]...)
		return sk, nil
	}
}

func parseS2KParams(rest []byte) (s2k.Params, int, error) {
	if len(rest) < 2 {
		return s2k.Params{}, 0, errors.New("packet: truncated s2k")
	}
	mode := s2k.Mode(rest[0])
	hashAlgo := primitive.HashAlgo(rest[1])
	switch mode {
	case s2k.ModeSimple:
		return s2k.Params{Mode: mode, Hash: hashAlgo}, 2, nil
	case s2k.ModeSalted:
		if len(rest) < 10 {
			return s2k.Params{}, 0, errors.New("packet: truncated salted s2k")
		}
		return s2k.Params{Mode: mode, Hash: hashAlgo, Salt: append([]byte(nil), rest[2:10]...)}, 10, nil
	case s2k.ModeIteratedSalted:
		if len(rest) < 11 {
			return s2k.Params{}, 0, errors.New("packet: truncated iterated s2k")
		}
		count := s2k.DecodeCount(rest[10])
		return s2k.Params{Mode: mode, Hash: hashAlgo, Salt: append([]byte(nil), rest[2:10]...), Count: count}, 11, nil
	case s2k.ModeGNUDummy:
		// GNU dummy extension: 0x65 'G' 'N' 'U' <type-byte>.
		if len(rest) < 5 {
			return s2k.Params{}, 0, errors.New("packet: truncated gnu-dummy s2k")
		}
		return s2k.Params{Mode: mode}, 5, nil
	default:
		return s2k.Params{}, 0, errors.Errorf("packet: unsupported s2k mode %d", mode)
	}
}

func cipherBlockLen(alg primitive.CipherAlgo) int {
	switch alg {
	case primitive.Cipher3DES, primitive.CipherCAST5, primitive.CipherBlowfish:
		return 8
	default:
		return 16
	}
}

func cipherKeyLen(alg primitive.CipherAlgo) int {
	switch alg {
	case primitive.CipherAES128, primitive.CipherCamellia128:
		return 16
	case primitive.CipherAES192, primitive.CipherCamellia192, primitive.Cipher3DES:
		return 24
	case primitive.CipherAES256, primitive.CipherCamellia256, primitive.CipherTwofish:
		return 32
	case primitive.CipherCAST5:
		return 16
	case primitive.CipherBlowfish:
		return 16
	default:
		return 16
	}
}

// Unlock decrypts the secret material with passphrase (which may be an
// empty, non-nil slice). It returns ErrBadPassword if the checksum/hash
// trailer does not match, distinguished from structural corruption only
// by that mismatch, per spec.md section 4.4.
func (sk *SecretKey) Unlock(suite primitive.Suite, passphrase []byte) error {
	if sk.Protection.Usage == ProtectNone {
		return nil // already populated by ParseSecretKeyBody
	}
	if sk.Protection.S2K.Mode == s2k.ModeGNUDummy {
		return errors.New("packet: gnu-dummy key has no secret material")
	}

	cleartext := sk.encryptedData
	if passphrase != nil {
		keyLen := cipherKeyLen(sk.Protection.Cipher)
		key, err := s2k.Derive(suite, sk.Protection.S2K, passphrase, keyLen)
		if err != nil {
			return err
		}
		cipher, err := suite.NewCipher(sk.Protection.Cipher)
		if err != nil {
			return err
		}
		decrypted := make([]byte, len(sk.encryptedData))
		if sk.Public.Version == 4 {
			stream, err := cipher.NewCFBDecrypter(key, sk.Protection.IV)
			if err != nil {
				return err
			}
			stream.XORKeyStream(decrypted, sk.encryptedData)
		} else {
			if err := decryptV3PerMPI(cipher, key, sk.Protection.IV, sk.encryptedData, decrypted, sk.Public.Algo); err != nil {
				return err
			}
		}
		cleartext = decrypted
	}

	material, trailerLen, err := parseSecretMaterialWithTrailer(sk.Public.Algo, cleartext)
	if err != nil {
		return err
	}
	if sk.Protection.Usage == ProtectSHA1Hashed {
		if trailerLen != 20 {
			return ErrBadPassword
		}
		want := cleartext[len(cleartext)-20:]
		h, err := suite.NewHash(primitive.HashSHA1)
		if err != nil {
			return err
		}
		h.Write(cleartext[:len(cleartext)-20])
		if !bytes.Equal(h.Sum(), want) {
			return ErrBadPassword
		}
	} else {
		if trailerLen != 2 {
			return ErrBadPassword
		}
		want := cleartext[len(cleartext)-2:]
		got := checksum16(cleartext[:len(cleartext)-2])
		if binary.BigEndian.Uint16(want) != got {
			return ErrBadPassword
		}
	}
	sk.Secret = material
	sk.locked = false
	return nil
}

// Locked reports whether secret material has not yet been populated.
func (sk *SecretKey) Locked() bool { return sk.locked }

// Lock scrubs the decrypted secret material, per spec.md section 3's
// lifecycle (unlock produces a scoped plaintext copy wiped on lock/drop).
func (sk *SecretKey) Lock() {
	scrubKeyMaterial(sk.Secret)
	sk.Secret = nil
	sk.locked = true
}

// Encode serializes the secret key back to wire form. If passphrase is
// nil, the key is written unprotected (usage 0x00); otherwise it is
// protected with a freshly salted iterated-and-salted SHA-1-hashed S2K
// and CFB encryption under cipher, mirroring Unlock in reverse. Encode
// requires sk.Secret to be populated (Locked() == false).
func (sk *SecretKey) Encode(suite primitive.Suite, passphrase []byte, cipher primitive.CipherAlgo) ([]byte, error) {
	if sk.locked || sk.Secret == nil {
		return nil, errors.New("packet: cannot encode a locked secret key")
	}
	var out bytes.Buffer
	out.Write(sk.Public.RawBody())

	material := encodeSecretMaterial(sk.Public.Algo, sk.Secret)

	if passphrase == nil {
		out.WriteByte(ProtectNone)
		out.Write(material)
		return out.Bytes(), nil
	}

	out.WriteByte(ProtectSHA1Hashed)
	out.WriteByte(byte(cipher))

	salt := make([]byte, 8)
	if err := suite.Fill(salt); err != nil {
		return nil, err
	}
	s2kParams := s2k.Params{Mode: s2k.ModeIteratedSalted, Hash: primitive.HashSHA1, Salt: salt, Count: 65536}
	out.WriteByte(byte(s2kParams.Mode))
	out.WriteByte(byte(s2kParams.Hash))
	out.Write(salt)
	out.WriteByte(s2k.EncodeCount(s2kParams.Count))

	keyLen := cipherKeyLen(cipher)
	derivedKey, err := s2k.Derive(suite, s2kParams, passphrase, keyLen)
	if err != nil {
		return nil, err
	}
	iv := make([]byte, cipherBlockLen(cipher))
	if err := suite.Fill(iv); err != nil {
		return nil, err
	}
	out.Write(iv)

	h, err := suite.NewHash(primitive.HashSHA1)
	if err != nil {
		return nil, err
	}
	h.Write(material)
	cleartext := append(append([]byte(nil), material...), h.Sum()...)

	cipherImpl, err := suite.NewCipher(cipher)
	if err != nil {
		return nil, err
	}
	stream, err := cipherImpl.NewCFBEncrypter(derivedKey, iv)
	if err != nil {
		return nil, err
	}
	encrypted := make([]byte, len(cleartext))
	stream.XORKeyStream(encrypted, cleartext)
	out.Write(encrypted)

	sk.Protection = SecretKeyProtection{Usage: ProtectSHA1Hashed, Cipher: cipher, S2K: s2kParams, IV: iv}
	return out.Bytes(), nil
}

// encodeSecretMaterial is parseSecretMaterialWithTrailer's inverse: it
// writes the algorithm-specific secret MPI sequence with no trailer.
func encodeSecretMaterial(algo primitive.PubKeyAlgo, m primitive.KeyMaterial) []byte {
	var buf bytes.Buffer
	switch k := m.(type) {
	case *primitive.RSAPrivate:
		buf.Write(mpi.Encode(k.D))
		buf.Write(mpi.Encode(k.P))
		buf.Write(mpi.Encode(k.Q))
		buf.Write(mpi.Encode(k.U))
	case *primitive.DSAPrivate:
		buf.Write(mpi.Encode(k.X))
	case *primitive.ElGamalPrivate:
		buf.Write(mpi.Encode(k.X))
	case *primitive.ECPrivate:
		buf.Write(mpi.Encode(new(big.Int).SetBytes(k.Scalar)))
	}
	return buf.Bytes()
}

func checksum16(b []byte) uint16 {
	var sum uint16
	for _, c := range b {
		sum += uint16(c)
	}
	return sum
}

// decryptV3PerMPI mirrors RFC 4880 section 5.5.3: for a version-3 secret
// key each MPI is individually CFB-decrypted with the cipher state
// resynchronized (IV reset to the tail of the previous MPI's ciphertext)
// between MPIs, rather than treating the whole region as one stream.
func decryptV3PerMPI(cipher primitive.Cipher, key, iv []byte, in, out []byte, algo primitive.PubKeyAlgo) error {
	count := secretFieldCount(algo)
	curIV := iv
	offset := 0
	for i := 0; i < count; i++ {
		stream, err := cipher.NewCFBDecrypter(key, curIV)
		if err != nil {
			return err
		}
		if offset+2 > len(in) {
			return errors.New("packet: v3 secret truncated")
		}
		stream.XORKeyStream(out[offset:offset+2], in[offset:offset+2])
		bits := int(out[offset])<<8 | int(out[offset+1])
		nbytes := (bits + 7) / 8
		if offset+2+nbytes > len(in) {
			return errors.New("packet: v3 secret truncated")
		}
		stream.XORKeyStream(out[offset+2:offset+2+nbytes], in[offset+2:offset+2+nbytes])
		blockLen := cipher.BlockSize()
		if nbytes >= blockLen {
			curIV = append([]byte(nil), in[offset+2+nbytes-blockLen:offset+2+nbytes]...)
		}
		offset += 2 + nbytes
	}
	// trailing checksum bytes are copied through untouched
	if offset < len(in) {
		copy(out[offset:], in[offset:])
	}
	return nil
}

func secretFieldCount(algo primitive.PubKeyAlgo) int {
	switch algo {
	case primitive.PubKeyRSA, primitive.PubKeyRSAEncryptOnly, primitive.PubKeyRSASignOnly:
		return 4 // d, p, q, u
	case primitive.PubKeyDSA:
		return 1 // x
	case primitive.PubKeyElGamal:
		return 1 // x
	default:
		return 1
	}
}

// parseSecretMaterial decodes secret MPIs with no trailer expected
// (ProtectNone path where the caller has already validated separately,
// used only from ParseSecretKeyBody's fast path before checksum
// validation becomes relevant during Unlock of protected keys).
func parseSecretMaterial(algo primitive.PubKeyAlgo, rest []byte, _ []byte) (primitive.KeyMaterial, error) {
	m, _, err := parseSecretMaterialWithTrailer(algo, rest)
	return m, err
}

func parseSecretMaterialWithTrailer(algo primitive.PubKeyAlgo, data []byte) (primitive.KeyMaterial, int, error) {
	r := bytes.NewReader(data)
	start := len(data)
	switch algo {
	case primitive.PubKeyRSA, primitive.PubKeyRSAEncryptOnly, primitive.PubKeyRSASignOnly:
		d, err := mpi.Decode(r)
		if err != nil {
			return nil, 0, err
		}
		p, err := mpi.Decode(r)
		if err != nil {
			return nil, 0, err
		}
		q, err := mpi.Decode(r)
		if err != nil {
			return nil, 0, err
		}
		u, err := mpi.Decode(r)
		if err != nil {
			return nil, 0, err
		}
		consumed := start - r.Len()
		return &primitive.RSAPrivate{D: d, P: p, Q: q, U: u}, len(data) - consumed, nil

	case primitive.PubKeyDSA:
		x, err := mpi.Decode(r)
		if err != nil {
			return nil, 0, err
		}
		consumed := start - r.Len()
		return &primitive.DSAPrivate{X: x}, len(data) - consumed, nil

	case primitive.PubKeyElGamal:
		x, err := mpi.Decode(r)
		if err != nil {
			return nil, 0, err
		}
		consumed := start - r.Len()
		return &primitive.ElGamalPrivate{X: x}, len(data) - consumed, nil

	case primitive.PubKeyECDSA, primitive.PubKeyEdDSA, primitive.PubKeyECDH:
		scalar, err := mpi.Decode(r)
		if err != nil {
			return nil, 0, err
		}
		consumed := start - r.Len()
		return &primitive.ECPrivate{Scalar: scalar.Bytes()}, len(data) - consumed, nil

	default:
		return nil, 0, errors.Errorf("packet: unsupported secret key algorithm %d", algo)
	}
}

// scrubKeyMaterial overwrites secret scalars before release, per spec.md's
// shared-resource policy (section 5). big.Int has no safe in-place zero of
// its backing array, so SetInt64(0) is the best this package can do for
// the classic algorithms; ECPrivate's raw byte scalar is zeroed directly.
func scrubKeyMaterial(m primitive.KeyMaterial) {
	switch k := m.(type) {
	case *primitive.RSAPrivate:
		zeroBigInt(k.D)
		zeroBigInt(k.P)
		zeroBigInt(k.Q)
		zeroBigInt(k.U)
	case *primitive.DSAPrivate:
		zeroBigInt(k.X)
	case *primitive.ElGamalPrivate:
		zeroBigInt(k.X)
	case *primitive.ECPrivate:
		for i := range k.Scalar {
			k.Scalar[i] = 0
		}
	}
}

func zeroBigInt(n *big.Int) {
	if n != nil {
		n.SetInt64(0)
	}
}
