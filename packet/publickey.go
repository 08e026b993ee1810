package packet

import (
	"bytes"
	"encoding/binary"
	"io"
	"math/big"

	"github.com/pkg/errors"

	"github.com/openpgp-core/pgpcore/mpi"
	"github.com/openpgp-core/pgpcore/primitive"
)

// PublicKey is the decoded body of a Public-Key or Public-Subkey packet,
// v3 or v4 (spec.md section 4.4).
type PublicKey struct {
	Version  int
	Created  int64
	DaysValid int // v3 only
	Algo     primitive.PubKeyAlgo
	Material primitive.KeyMaterial
	IsSubkey bool

	// body is the exact packet-body bytes as parsed, retained so
	// key.ComputeFingerprint (through RawBody) can hash the canonical
	// bytes rather than a re-serialization that might drift from the
	// original encoding.
	body []byte
}

// ParsePublicKeyBody decodes a Public-Key/Public-Subkey packet body.
func ParsePublicKeyBody(body []byte, isSubkey bool) (*PublicKey, error) {
	if len(body) < 6 {
		return nil, errors.New("packet: public key body too short")
	}
	pk := &PublicKey{IsSubkey: isSubkey}
	switch body[0] {
	case 3:
		pk.Version = 3
		pk.Created = int64(binary.BigEndian.Uint32(body[1:5]))
		pk.DaysValid = int(body[5])<<8 | int(body[6])
		pk.Algo = primitive.PubKeyAlgo(body[7])
		if pk.Algo != primitive.PubKeyRSA && pk.Algo != primitive.PubKeyRSAEncryptOnly && pk.Algo != primitive.PubKeyRSASignOnly {
			return nil, errors.New("packet: v3 keys may only use RSA")
		}
		r := bytes.NewReader(body[8:])
		n, err := mpi.Decode(r)
		if err != nil {
			return nil, errors.Wrap(err, "packet: v3 public n")
		}
		e, err := mpi.Decode(r)
		if err != nil {
			return nil, errors.Wrap(err, "packet: v3 public e")
		}
		pk.Material = &primitive.RSAPublic{N: n, E: e}
		// A secret-key packet body has protection bytes trailing the
		// public portion; retain only what was actually consumed so
		// RawBody() reflects just the public-key sub-structure.
		pk.body = body[:8+(len(body[8:])-r.Len())]
		return pk, nil

	case 4:
		pk.Version = 4
		pk.Created = int64(binary.BigEndian.Uint32(body[1:5]))
		pk.Algo = primitive.PubKeyAlgo(body[5])
		r := bytes.NewReader(body[6:])
		material, err := parsePublicMaterial(pk.Algo, r)
		if err != nil {
			return nil, err
		}
		pk.Material = material
		pk.body = body[:6+(len(body[6:])-r.Len())]
		return pk, nil

	default:
		return nil, errors.Errorf("packet: unsupported public key version %d", body[0])
	}
}

func parsePublicMaterial(algo primitive.PubKeyAlgo, r *bytes.Reader) (primitive.KeyMaterial, error) {
	switch algo {
	case primitive.PubKeyRSA, primitive.PubKeyRSAEncryptOnly, primitive.PubKeyRSASignOnly:
		n, err := mpi.Decode(r)
		if err != nil {
			return nil, err
		}
		e, err := mpi.Decode(r)
		if err != nil {
			return nil, err
		}
		return &primitive.RSAPublic{N: n, E: e}, nil

	case primitive.PubKeyDSA:
		p, err := mpi.Decode(r)
		if err != nil {
			return nil, err
		}
		q, err := mpi.Decode(r)
		if err != nil {
			return nil, err
		}
		g, err := mpi.Decode(r)
		if err != nil {
			return nil, err
		}
		y, err := mpi.Decode(r)
		if err != nil {
			return nil, err
		}
		return &primitive.DSAPublic{P: p, Q: q, G: g, Y: y}, nil

	case primitive.PubKeyElGamal:
		p, err := mpi.Decode(r)
		if err != nil {
			return nil, err
		}
		g, err := mpi.Decode(r)
		if err != nil {
			return nil, err
		}
		y, err := mpi.Decode(r)
		if err != nil {
			return nil, err
		}
		return &primitive.ElGamalPublic{P: p, G: g, Y: y}, nil

	case primitive.PubKeyECDSA, primitive.PubKeyEdDSA, primitive.PubKeyECDH:
		oidLen, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		oid := make([]byte, oidLen)
		if _, err := io.ReadFull(r, oid); err != nil {
			return nil, err
		}
		point, err := mpi.Decode(r)
		if err != nil {
			return nil, err
		}
		pub := primitive.ECPublic{CurveOID: oid, Point: point.Bytes(), Algo_: algo}
		if algo == primitive.PubKeyECDH {
			// KDF parameter field: len, 1(reserved), hash-alg, sym-alg.
			kdfLen, err := r.ReadByte()
			if err != nil {
				return nil, err
			}
			kdf := make([]byte, kdfLen)
			if _, err := io.ReadFull(r, kdf); err != nil {
				return nil, err
			}
			if len(kdf) >= 3 {
				pub.KDF = &primitive.ECDHParams{
					KDFHash:    primitive.HashAlgo(kdf[1]),
					WrapCipher: primitive.CipherAlgo(kdf[2]),
				}
			}
		}
		return &pub, nil

	default:
		return nil, errors.Errorf("packet: unsupported public key algorithm %d", algo)
	}
}

// Encode serializes the public key packet body (not including the outer
// packet header).
func (pk *PublicKey) Encode() []byte {
	var buf bytes.Buffer
	if pk.Version == 3 {
		buf.WriteByte(3)
		writeU32(&buf, uint32(pk.Created))
		buf.WriteByte(byte(pk.DaysValid >> 8))
		buf.WriteByte(byte(pk.DaysValid))
		buf.WriteByte(byte(pk.Algo))
		rsa := pk.Material.(*primitive.RSAPublic)
		buf.Write(mpi.Encode(rsa.N))
		buf.Write(mpi.Encode(rsa.E))
		return buf.Bytes()
	}
	buf.WriteByte(4)
	writeU32(&buf, uint32(pk.Created))
	buf.WriteByte(byte(pk.Algo))
	buf.Write(encodePublicMaterial(pk.Algo, pk.Material))
	return buf.Bytes()
}

func encodePublicMaterial(algo primitive.PubKeyAlgo, m primitive.KeyMaterial) []byte {
	var buf bytes.Buffer
	switch algo {
	case primitive.PubKeyRSA, primitive.PubKeyRSAEncryptOnly, primitive.PubKeyRSASignOnly:
		k := m.(*primitive.RSAPublic)
		buf.Write(mpi.Encode(k.N))
		buf.Write(mpi.Encode(k.E))
	case primitive.PubKeyDSA:
		k := m.(*primitive.DSAPublic)
		buf.Write(mpi.Encode(k.P))
		buf.Write(mpi.Encode(k.Q))
		buf.Write(mpi.Encode(k.G))
		buf.Write(mpi.Encode(k.Y))
	case primitive.PubKeyElGamal:
		k := m.(*primitive.ElGamalPublic)
		buf.Write(mpi.Encode(k.P))
		buf.Write(mpi.Encode(k.G))
		buf.Write(mpi.Encode(k.Y))
	case primitive.PubKeyECDSA, primitive.PubKeyEdDSA, primitive.PubKeyECDH:
		k := m.(*primitive.ECPublic)
		buf.WriteByte(byte(len(k.CurveOID)))
		buf.Write(k.CurveOID)
		buf.Write(mpi.Encode(new(big.Int).SetBytes(k.Point)))
		if algo == primitive.PubKeyECDH && k.KDF != nil {
			buf.WriteByte(3)
			buf.WriteByte(1)
			buf.WriteByte(byte(k.KDF.KDFHash))
			buf.WriteByte(byte(k.KDF.WrapCipher))
		}
	}
	return buf.Bytes()
}

func writeU32(buf *bytes.Buffer, v uint32) {
	buf.WriteByte(byte(v >> 24))
	buf.WriteByte(byte(v >> 16))
	buf.WriteByte(byte(v >> 8))
	buf.WriteByte(byte(v))
}

// RawBody returns the exact parsed bytes (used for fingerprint/signature
// hashing so re-encoding never drifts from the wire form).
func (pk *PublicKey) RawBody() []byte {
	if pk.body != nil {
		return pk.body
	}
	return pk.Encode()
}
