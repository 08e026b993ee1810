package packet

import (
	"io"

	"github.com/openpgp-core/pgpcore/stream"
)

// ReadPacket reads one packet header and its fully drained body from src,
// leaving Body nil and Raw set to the body bytes; callers that need the
// typed form call ParseSignatureBody/ParsePublicKeyBody/etc. themselves
// and assign the result into Body. It returns io.EOF once src is
// exhausted between packets.
func ReadPacket(src stream.Source) (*Packet, error) {
	if _, err := src.Peek(1); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, err
	}
	hdr, err := ReadHeader(src)
	if err != nil {
		return nil, err
	}
	bodySrc := NewBodySource(src, hdr)
	raw, err := stream.ReadAll(bodySrc)
	if err != nil {
		return nil, err
	}
	return &Packet{Header: hdr, Raw: raw}, nil
}

// Decode populates pkt.Body with the typed form for tags this package
// understands, dispatching on pkt.Header.Tag. Unknown tags are left as
// Raw only.
func Decode(pkt *Packet) error {
	switch pkt.Header.Tag {
	case TagPublicKey, TagPublicSubkey:
		body, err := ParsePublicKeyBody(pkt.Raw, pkt.Header.Tag == TagPublicSubkey)
		if err != nil {
			return err
		}
		pkt.Body = body
	case TagSecretKey, TagSecretSubkey:
		body, err := ParseSecretKeyBody(pkt.Raw, pkt.Header.Tag == TagSecretSubkey)
		if err != nil {
			return err
		}
		pkt.Body = body
	case TagSignature:
		body, err := ParseSignatureBody(pkt.Raw)
		if err != nil {
			return err
		}
		pkt.Body = body
	case TagOnePassSignature:
		body, err := ParseOnePassSignatureBody(pkt.Raw)
		if err != nil {
			return err
		}
		pkt.Body = body
	case TagUserID:
		pkt.Body = ParseUserIDBody(pkt.Raw)
	case TagUserAttribute:
		body, err := ParseUserAttributeBody(pkt.Raw)
		if err != nil {
			return err
		}
		pkt.Body = body
	case TagPKESK:
		body, err := ParsePKESKBody(pkt.Raw)
		if err != nil {
			return err
		}
		pkt.Body = body
	case TagSKESK:
		body, err := ParseSKESKBody(pkt.Raw)
		if err != nil {
			return err
		}
		pkt.Body = body
	case TagMarker:
		if err := ParseMarkerBody(pkt.Raw); err != nil {
			return err
		}
	}
	return nil
}
