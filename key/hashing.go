package key

import (
	"github.com/openpgp-core/pgpcore/packet"
	"github.com/openpgp-core/pgpcore/primitive"
)

// hashKeyOnly hashes just the primary key body plus sig's trailer, the
// construction used for direct-key signatures and key revocations (RFC
// 4880 section 5.2.4).
func hashKeyOnly(suite primitive.Suite, pub *packet.PublicKey, sig *packet.Signature) ([]byte, error) {
	h, err := suite.NewHash(sig.HashAlgo)
	if err != nil {
		return nil, err
	}
	writeKeyBody(h, pub)
	h.Write(sig.HashTrailer())
	return h.Sum(), nil
}

// hashUserIDCert hashes the primary key body, the user ID (or attribute)
// body with its own RFC 4880 section 5.2.4 prefix, and sig's trailer —
// the construction for self-certifications and third-party
// certifications over a user ID.
func hashUserIDCert(suite primitive.Suite, pub *packet.PublicKey, u *UserID, sig *packet.Signature) ([]byte, error) {
	h, err := suite.NewHash(sig.HashAlgo)
	if err != nil {
		return nil, err
	}
	writeKeyBody(h, pub)
	if sig.Version >= 4 {
		if u.Packet != nil {
			body := u.Packet.Encode()
			h.Write([]byte{0xb4})
			writeU32Hash(h, uint32(len(body)))
			h.Write(body)
		} else if u.Attribute != nil {
			body := u.Attribute.Encode()
			h.Write([]byte{0xd1})
			writeU32Hash(h, uint32(len(body)))
			h.Write(body)
		}
	} else if u.Packet != nil {
		// v3 certifications hash the user ID bytes with no prefix.
		h.Write([]byte(u.Packet.ID))
	}
	h.Write(sig.HashTrailer())
	return h.Sum(), nil
}

// hashKeyAndSubkey hashes the primary key body, then the subkey body
// (each with its own 0x99-length prefix), then sig's trailer — the
// construction for subkey-binding and primary-key-binding signatures.
func hashKeyAndSubkey(suite primitive.Suite, primary, sub *packet.PublicKey, sig *packet.Signature) ([]byte, error) {
	h, err := suite.NewHash(sig.HashAlgo)
	if err != nil {
		return nil, err
	}
	writeKeyBody(h, primary)
	writeKeyBody(h, sub)
	h.Write(sig.HashTrailer())
	return h.Sum(), nil
}

func writeKeyBody(h primitive.Hash, pub *packet.PublicKey) {
	body := pub.RawBody()
	h.Write([]byte{0x99})
	writeU32Hash16(h, len(body))
	h.Write(body)
}

func writeU32Hash16(h primitive.Hash, n int) {
	h.Write([]byte{byte(n >> 8), byte(n)})
}

func writeU32Hash(h primitive.Hash, n uint32) {
	h.Write([]byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)})
}
