package pipeline

import (
	"bytes"
	"time"

	"github.com/openpgp-core/pgpcore/key"
	"github.com/openpgp-core/pgpcore/packet"
	"github.com/openpgp-core/pgpcore/primitive"
)

// SignParams configures a single signing operation.
type SignParams struct {
	Signer   *key.Key
	HashAlgo primitive.HashAlgo
	SigType  byte // packet.SigTypeBinary or packet.SigTypeText
	Created  time.Time
	Literal  packet.LiteralHeader
}

// Sign builds a One-Pass-Signature + Literal-Data + Signature packet
// sequence over content, the shape Encrypt expects as its literalData
// input for a sign-then-encrypt message, or that a caller can serialize
// directly for a sign-only message.
func Sign(suite primitive.Suite, p SignParams, content []byte) ([]byte, error) {
	if p.SigType == 0 {
		p.SigType = packet.SigTypeBinary
	}
	if p.Created.IsZero() {
		p.Created = time.Now()
	}

	ops := &packet.OnePassSignature{
		Version:     3,
		SigType:     p.SigType,
		HashAlgo:    p.HashAlgo,
		PubAlgo:     p.Signer.Public.Algo,
		IssuerKeyID: p.Signer.KeyID,
		Nested:      true,
	}

	var out bytes.Buffer
	opsBody := ops.Encode()
	out.Write(packet.WriteHeader(packet.TagOnePassSignature, len(opsBody)))
	out.Write(opsBody)

	litBody := append(p.Literal.Encode(), content...)
	out.Write(packet.WriteHeader(packet.TagLiteral, len(litBody)))
	out.Write(litBody)

	sig, err := buildContentSignature(suite, p, content)
	if err != nil {
		return nil, err
	}
	sigBody := sig.Encode()
	out.Write(packet.WriteHeader(packet.TagSignature, len(sigBody)))
	out.Write(sigBody)

	return out.Bytes(), nil
}

// SignDetached builds a standalone Signature packet over content, with
// no One-Pass-Signature or Literal-Data framing: the construction both
// detached and cleartext signatures need.
func SignDetached(suite primitive.Suite, p SignParams, content []byte) (*packet.Signature, error) {
	if p.SigType == 0 {
		p.SigType = packet.SigTypeBinary
	}
	if p.Created.IsZero() {
		p.Created = time.Now()
	}
	return buildContentSignature(suite, p, content)
}

func buildContentSignature(suite primitive.Suite, p SignParams, content []byte) (*packet.Signature, error) {
	var created [4]byte
	t := p.Created.Unix()
	created[0] = byte(t >> 24)
	created[1] = byte(t >> 16)
	created[2] = byte(t >> 8)
	created[3] = byte(t)

	sig := &packet.Signature{
		Version:  4,
		Type:     p.SigType,
		PubAlgo:  p.Signer.Public.Algo,
		HashAlgo: p.HashAlgo,
		Created:  t,
		Hashed: []packet.Subpacket{
			{Type: packet.SubSignatureCreationTime, Data: created[:]},
		},
		Unhashed: []packet.Subpacket{
			{Type: packet.SubIssuerKeyID, Data: p.Signer.KeyID[:]},
		},
	}

	h, err := suite.NewHash(p.HashAlgo)
	if err != nil {
		return nil, err
	}
	h.Write(content)
	h.Write(sig.HashTrailer())
	digest := h.Sum()
	sig.LeftHash[0] = digest[0]
	sig.LeftHash[1] = digest[1]

	mpis, err := suite.Sign(p.Signer.Public.Algo, p.Signer.Secret.Secret, p.HashAlgo, digest)
	if err != nil {
		return nil, err
	}
	sig.MPIs = mpis
	return sig, nil
}
