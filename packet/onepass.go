package packet

import (
	"github.com/pkg/errors"

	"github.com/openpgp-core/pgpcore/primitive"
)

// OnePassSignature is the decoded body of a One-Pass Signature packet: it
// precedes the signed data in a message so a streaming verifier can start
// hashing before seeing the trailing Signature packet, per spec.md
// section 4.7.
type OnePassSignature struct {
	Version     int
	SigType     byte
	HashAlgo    primitive.HashAlgo
	PubAlgo     primitive.PubKeyAlgo
	IssuerKeyID [8]byte
	Nested      bool // 0 = another one-pass signature follows, 1 = this is the last
}

// ParseOnePassSignatureBody decodes a One-Pass Signature packet body.
func ParseOnePassSignatureBody(body []byte) (*OnePassSignature, error) {
	if len(body) != 13 {
		return nil, errors.New("packet: one-pass signature must be 13 bytes")
	}
	if body[0] != 3 {
		return nil, errors.Errorf("packet: unsupported one-pass signature version %d", body[0])
	}
	ops := &OnePassSignature{Version: 3}
	ops.SigType = body[1]
	ops.HashAlgo = primitive.HashAlgo(body[2])
	ops.PubAlgo = primitive.PubKeyAlgo(body[3])
	copy(ops.IssuerKeyID[:], body[4:12])
	ops.Nested = body[12] == 1
	return ops, nil
}

// Encode serializes the One-Pass Signature packet body.
func (ops *OnePassSignature) Encode() []byte {
	out := make([]byte, 13)
	out[0] = 3
	out[1] = ops.SigType
	out[2] = byte(ops.HashAlgo)
	out[3] = byte(ops.PubAlgo)
	copy(out[4:12], ops.IssuerKeyID[:])
	if ops.Nested {
		out[12] = 1
	}
	return out
}
