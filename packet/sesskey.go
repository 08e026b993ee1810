package packet

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/openpgp-core/pgpcore/primitive"
	"github.com/openpgp-core/pgpcore/s2k"
)

// PKESK is the decoded body of a Public-Key Encrypted Session Key packet
// (RFC 4880 section 5.1).
type PKESK struct {
	Version     int
	KeyID       [8]byte // all-zero means "anonymous recipient", wildcard lookup
	Algo        primitive.PubKeyAlgo
	EncryptedData [][]byte // algorithm-specific MPI sequence wrapping the session key
}

// ParsePKESKBody decodes a PKESK packet body.
func ParsePKESKBody(body []byte) (*PKESK, error) {
	if len(body) < 10 {
		return nil, errors.New("packet: pkesk too short")
	}
	if body[0] != 3 {
		return nil, errors.Errorf("packet: unsupported pkesk version %d", body[0])
	}
	p := &PKESK{Version: 3}
	copy(p.KeyID[:], body[1:9])
	p.Algo = primitive.PubKeyAlgo(body[9])
	count := mpiCountForEncrypt(p.Algo)
	mpis, err := decodeMPISequence(body[10:], count)
	if err != nil {
		return nil, err
	}
	p.EncryptedData = mpis
	return p, nil
}

func mpiCountForEncrypt(algo primitive.PubKeyAlgo) int {
	switch algo {
	case primitive.PubKeyRSA, primitive.PubKeyRSAEncryptOnly:
		return 1
	case primitive.PubKeyElGamal:
		return 2
	default:
		return -1
	}
}

// Encode serializes the PKESK packet body.
func (p *PKESK) Encode() []byte {
	var buf bytes.Buffer
	buf.WriteByte(3)
	buf.Write(p.KeyID[:])
	buf.WriteByte(byte(p.Algo))
	for _, m := range p.EncryptedData {
		buf.Write(m)
	}
	return buf.Bytes()
}

// EncodeSessionKeyPlaintext builds the algorithm-id-prefixed,
// checksummed plaintext that a PKESK's encrypted material conceals (RFC
// 4880 section 5.1): one octet symmetric algorithm ID, the session key,
// a two-octet additive checksum.
func EncodeSessionKeyPlaintext(cipherAlgo primitive.CipherAlgo, sessionKey []byte) []byte {
	out := make([]byte, 0, 1+len(sessionKey)+2)
	out = append(out, byte(cipherAlgo))
	out = append(out, sessionKey...)
	sum := checksum16(sessionKey)
	out = append(out, byte(sum>>8), byte(sum))
	return out
}

// DecodeSessionKeyPlaintext reverses EncodeSessionKeyPlaintext and
// validates the checksum.
func DecodeSessionKeyPlaintext(plaintext []byte) (primitive.CipherAlgo, []byte, error) {
	if len(plaintext) < 3 {
		return 0, nil, errors.New("packet: session key plaintext too short")
	}
	algo := primitive.CipherAlgo(plaintext[0])
	key := plaintext[1 : len(plaintext)-2]
	want := checksum16(key)
	got := uint16(plaintext[len(plaintext)-2])<<8 | uint16(plaintext[len(plaintext)-1])
	if want != got {
		return 0, nil, errors.New("packet: session key checksum mismatch")
	}
	return algo, key, nil
}

// SKESK is the decoded body of a Symmetric-Key Encrypted Session Key
// packet (RFC 4880 section 5.3, and RFC 4880bis section 5.3 for v5's
// AEAD variant).
type SKESK struct {
	Version       int
	Cipher        primitive.CipherAlgo
	S2K           s2k.Params
	AEAD          primitive.AEADAlgo // v5 only; zero value means "none"
	IV            []byte             // v5 only, AEAD nonce
	EncryptedKey  []byte             // present when a session key is encrypted under the S2K-derived key; absent (v4) means "derived key is the session key"
}

// ParseSKESKBody decodes an SKESK packet body.
func ParseSKESKBody(body []byte) (*SKESK, error) {
	if len(body) < 2 {
		return nil, errors.New("packet: skesk too short")
	}
	sk := &SKESK{Version: int(body[0])}
	switch sk.Version {
	case 4:
		sk.Cipher = primitive.CipherAlgo(body[1])
		params, consumed, err := parseS2KParams(body[2:])
		if err != nil {
			return nil, err
		}
		sk.S2K = params
		rest := body[2+consumed:]
		if len(rest) > 0 {
			sk.EncryptedKey = append([]byte(nil), rest...)
		}
		return sk, nil

	case 5:
		if len(body) < 3 {
			return nil, errors.New("packet: v5 skesk too short")
		}
		sk.Cipher = primitive.CipherAlgo(body[1])
		sk.AEAD = primitive.AEADAlgo(body[2])
		params, consumed, err := parseS2KParams(body[3:])
		if err != nil {
			return nil, err
		}
		sk.S2K = params
		rest := body[3+consumed:]
		ivLen := aeadNonceLenFor(sk.AEAD)
		if len(rest) < ivLen {
			return nil, errors.New("packet: v5 skesk truncated iv")
		}
		sk.IV = append([]byte(nil), rest[:ivLen]...)
		sk.EncryptedKey = append([]byte(nil), rest[ivLen:]...)
		return sk, nil

	default:
		return nil, errors.Errorf("packet: unsupported skesk version %d", sk.Version)
	}
}

func aeadNonceLenFor(alg primitive.AEADAlgo) int {
	switch alg {
	case primitive.AEADEAX:
		return 16
	case primitive.AEADOCB:
		return 15
	default:
		return 16
	}
}

// Encode serializes the SKESK packet body.
func (sk *SKESK) Encode() []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(sk.Version))
	buf.WriteByte(byte(sk.Cipher))
	if sk.Version == 5 {
		buf.WriteByte(byte(sk.AEAD))
	}
	buf.Write(encodeS2KParams(sk.S2K))
	if sk.Version == 5 {
		buf.Write(sk.IV)
	}
	buf.Write(sk.EncryptedKey)
	return buf.Bytes()
}

func encodeS2KParams(p s2k.Params) []byte {
	switch p.Mode {
	case s2k.ModeSimple:
		return []byte{byte(p.Mode), byte(p.Hash)}
	case s2k.ModeSalted:
		out := []byte{byte(p.Mode), byte(p.Hash)}
		return append(out, p.Salt...)
	case s2k.ModeIteratedSalted:
		out := []byte{byte(p.Mode), byte(p.Hash)}
		out = append(out, p.Salt...)
		return append(out, s2k.EncodeCount(p.Count))
	case s2k.ModeGNUDummy:
		return []byte{byte(p.Mode), 0, 'G', 'N', 'U', 1}
	default:
		return []byte{byte(p.Mode), byte(p.Hash)}
	}
}
