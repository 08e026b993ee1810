package packet

import (
	"bytes"
	"encoding/binary"
	"math/big"

	"github.com/pkg/errors"

	"github.com/openpgp-core/pgpcore/mpi"
	"github.com/openpgp-core/pgpcore/primitive"
)

// Signature type byte, RFC 4880 section 5.2.1.
const (
	SigTypeBinary           byte = 0x00
	SigTypeText             byte = 0x01
	SigTypeStandalone       byte = 0x02
	SigTypeGenericCert      byte = 0x10
	SigTypePersonaCert      byte = 0x11
	SigTypeCasualCert       byte = 0x12
	SigTypePositiveCert     byte = 0x13
	SigTypeSubkeyBinding    byte = 0x18
	SigTypePrimaryBinding   byte = 0x19
	SigTypeDirectKey        byte = 0x1f
	SigTypeKeyRevocation    byte = 0x20
	SigTypeSubkeyRevocation byte = 0x28
	SigTypeCertRevocation   byte = 0x30
	SigTypeTimestamp        byte = 0x40
	SigTypeThirdPartyConfirm byte = 0x50
)

// Signature is the decoded body of a Signature packet, v3 or v4.
type Signature struct {
	Version   int
	Type      byte
	PubAlgo   primitive.PubKeyAlgo
	HashAlgo  primitive.HashAlgo
	Created   int64 // v3: carried directly; v4: from SubSignatureCreationTime
	IssuerKeyID [8]byte

	Hashed   []Subpacket // v4 only; empty for v3
	Unhashed []Subpacket // v4 only; empty for v3

	LeftHash [2]byte
	MPIs     [][]byte // raw MPI-encoded signature components

	// hashedRegion is the exact bytes that were hashed (public key
	// material is hashed separately by the caller); retained so
	// Encode() reproduces the original trailer construction exactly.
	hashedRegion []byte
}

// ParseSignatureBody decodes a Signature packet body.
func ParseSignatureBody(body []byte) (*Signature, error) {
	if len(body) < 1 {
		return nil, errors.New("packet: empty signature body")
	}
	switch body[0] {
	case 3:
		return parseSignatureV3(body)
	case 4, 5:
		return parseSignatureV4(body)
	default:
		return nil, errors.Errorf("packet: unsupported signature version %d", body[0])
	}
}

func parseSignatureV3(body []byte) (*Signature, error) {
	// version(1) hashedlen(1, must be 5) type(1) created(4) keyid(8)
	// pubalgo(1) hashalgo(1) left16(2) mpis...
	if len(body) < 19 {
		return nil, errors.New("packet: v3 signature too short")
	}
	if body[1] != 5 {
		return nil, errors.New("packet: v3 signature hashed-material length must be 5")
	}
	sig := &Signature{Version: 3}
	sig.Type = body[2]
	sig.Created = int64(binary.BigEndian.Uint32(body[3:7]))
	copy(sig.IssuerKeyID[:], body[7:15])
	sig.PubAlgo = primitive.PubKeyAlgo(body[15])
	sig.HashAlgo = primitive.HashAlgo(body[16])
	sig.LeftHash[0] = body[17]
	sig.LeftHash[1] = body[18]
	mpis, err := decodeMPISequence(body[19:], mpiCountFor(sig.PubAlgo, sig.Type))
	if err != nil {
		return nil, err
	}
	sig.MPIs = mpis
	return sig, nil
}

func parseSignatureV4(body []byte) (*Signature, error) {
	// version(1) type(1) pubalgo(1) hashalgo(1) hashedlen(2) hashed[...]
	// unhashedlen(2) unhashed[...] left16(2) mpis...
	if len(body) < 6 {
		return nil, errors.New("packet: v4 signature too short")
	}
	sig := &Signature{Version: int(body[0])}
	sig.Type = body[1]
	sig.PubAlgo = primitive.PubKeyAlgo(body[2])
	sig.HashAlgo = primitive.HashAlgo(body[3])
	rest := body[4:]

	hashedLen := int(binary.BigEndian.Uint16(rest[:2]))
	rest = rest[2:]
	if len(rest) < hashedLen {
		return nil, errors.New("packet: truncated hashed subpacket area")
	}
	hashedArea := rest[:hashedLen]
	rest = rest[hashedLen:]

	hashedTotal := len(body) - len(rest) // bytes covered by the hash, up to and including hashed area
	sig.hashedRegion = append([]byte(nil), body[:hashedTotal]...)

	if len(rest) < 2 {
		return nil, errors.New("packet: truncated unhashed area length")
	}
	unhashedLen := int(binary.BigEndian.Uint16(rest[:2]))
	rest = rest[2:]
	if len(rest) < unhashedLen {
		return nil, errors.New("packet: truncated unhashed subpacket area")
	}
	unhashedArea := rest[:unhashedLen]
	rest = rest[unhashedLen:]

	hashed, err := parseSubpacketArea(hashedArea)
	if err != nil {
		return nil, errors.Wrap(err, "packet: hashed subpackets")
	}
	unhashed, err := parseSubpacketArea(unhashedArea)
	if err != nil {
		return nil, errors.Wrap(err, "packet: unhashed subpackets")
	}
	sig.Hashed = hashed
	sig.Unhashed = unhashed

	if sp, ok := Find(hashed, unhashed, SubSignatureCreationTime); ok && len(sp.Data) == 4 {
		sig.Created = int64(binary.BigEndian.Uint32(sp.Data))
	}
	if sp, ok := Find(hashed, unhashed, SubIssuerKeyID); ok && len(sp.Data) == 8 {
		copy(sig.IssuerKeyID[:], sp.Data)
	}

	if len(rest) < 2 {
		return nil, errors.New("packet: truncated left-hash bytes")
	}
	sig.LeftHash[0] = rest[0]
	sig.LeftHash[1] = rest[1]
	rest = rest[2:]

	mpis, err := decodeMPISequence(rest, mpiCountFor(sig.PubAlgo, sig.Type))
	if err != nil {
		return nil, err
	}
	sig.MPIs = mpis
	return sig, nil
}

func mpiCountFor(algo primitive.PubKeyAlgo, _ byte) int {
	switch algo {
	case primitive.PubKeyRSA, primitive.PubKeyRSAEncryptOnly, primitive.PubKeyRSASignOnly:
		return 1 // s
	case primitive.PubKeyDSA, primitive.PubKeyECDSA, primitive.PubKeyEdDSA:
		return 2 // r, s
	default:
		return -1 // unknown algo: consume all remaining as one opaque MPI-sequence
	}
}

func decodeMPISequence(data []byte, count int) ([][]byte, error) {
	r := bytes.NewReader(data)
	var out [][]byte
	for count < 0 || len(out) < count {
		if r.Len() == 0 {
			break
		}
		v, err := mpi.Decode(r)
		if err != nil {
			return nil, err
		}
		out = append(out, mpi.Encode(v))
	}
	return out, nil
}

// HashTrailer returns the bytes that must be fed to the signature's hash
// after the signed content and (for v4) before the final length trailer:
// for v3 the classic 5-byte [type, created(4)] block, for v4 the hashed
// region plus a version/0xff/length trailer, per RFC 4880 sections
// 5.2.4.
func (sig *Signature) HashTrailer() []byte {
	if sig.Version == 3 {
		var buf bytes.Buffer
		buf.WriteByte(sig.Type)
		writeU32(&buf, uint32(sig.Created))
		return buf.Bytes()
	}
	var buf bytes.Buffer
	buf.Write(sig.hashedRegionOrBuild())
	buf.WriteByte(byte(sig.Version))
	buf.WriteByte(0xff)
	writeU32(&buf, uint32(len(sig.hashedRegionOrBuild())))
	return buf.Bytes()
}

func (sig *Signature) hashedRegionOrBuild() []byte {
	if sig.hashedRegion != nil {
		return sig.hashedRegion
	}
	var buf bytes.Buffer
	buf.WriteByte(byte(sig.Version))
	buf.WriteByte(sig.Type)
	buf.WriteByte(byte(sig.PubAlgo))
	buf.WriteByte(byte(sig.HashAlgo))
	area := encodeSubpacketArea(sig.Hashed)
	buf.WriteByte(byte(len(area) >> 8))
	buf.WriteByte(byte(len(area)))
	buf.Write(area)
	return buf.Bytes()
}

// Encode serializes the signature packet body.
func (sig *Signature) Encode() []byte {
	var buf bytes.Buffer
	if sig.Version == 3 {
		buf.WriteByte(3)
		buf.WriteByte(5)
		buf.WriteByte(sig.Type)
		writeU32(&buf, uint32(sig.Created))
		buf.Write(sig.IssuerKeyID[:])
		buf.WriteByte(byte(sig.PubAlgo))
		buf.WriteByte(byte(sig.HashAlgo))
		buf.Write(sig.LeftHash[:])
		for _, m := range sig.MPIs {
			buf.Write(m)
		}
		return buf.Bytes()
	}

	buf.Write(sig.hashedRegionOrBuild())
	unhashedArea := encodeSubpacketArea(sig.Unhashed)
	buf.WriteByte(byte(len(unhashedArea) >> 8))
	buf.WriteByte(byte(len(unhashedArea)))
	buf.Write(unhashedArea)
	buf.Write(sig.LeftHash[:])
	for _, m := range sig.MPIs {
		buf.Write(m)
	}
	return buf.Bytes()
}

// SigMPIsFromBigInts packs a slice of *big.Int signature components into
// the [][]byte form Signature.MPIs expects.
func SigMPIsFromBigInts(vals ...*big.Int) [][]byte {
	out := make([][]byte, len(vals))
	for i, v := range vals {
		out[i] = mpi.Encode(v)
	}
	return out
}

// SigMPIBigInts decodes Signature.MPIs back into *big.Int values.
func (sig *Signature) SigMPIBigInts() ([]*big.Int, error) {
	out := make([]*big.Int, len(sig.MPIs))
	for i, raw := range sig.MPIs {
		v, err := mpi.Decode(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
