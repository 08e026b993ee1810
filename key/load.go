package key

import (
	"github.com/pkg/errors"

	"github.com/openpgp-core/pgpcore/packet"
)

// Load consumes one primary key's packet sequence (primary key packet,
// optional direct-key signatures and revocations, user ID/attribute
// packets each followed by their certifications, and subkey packets each
// followed by their binding signature) and builds a Key. pkts must
// already be Decode()d (Body populated) by the caller; Load stops at the
// first packet that starts a new primary key and returns the number of
// packets it consumed, so a caller walking a flat keyring file can feed
// the remainder back in for the next key.
func Load(pkts []*packet.Packet) (*Key, int, error) {
	if len(pkts) == 0 {
		return nil, 0, errors.New("key: empty packet sequence")
	}
	pub, ok := pkts[0].Body.(*packet.PublicKey)
	var sec *packet.SecretKey
	if !ok {
		sec, ok = pkts[0].Body.(*packet.SecretKey)
		if !ok || sec.Public.IsSubkey {
			return nil, 0, errors.New("key: expected a primary public or secret key packet")
		}
		pub = sec.Public
	}
	if pub.IsSubkey {
		return nil, 0, errors.New("key: expected a primary key packet, found a subkey")
	}

	k, err := New(pub)
	if err != nil {
		return nil, 0, err
	}
	k.Secret = sec

	i := 1
	for i < len(pkts) {
		switch body := pkts[i].Body.(type) {
		case *packet.Signature:
			switch {
			case body.Type == packet.SigTypeKeyRevocation:
				k.Revocations = append(k.Revocations, body)
			case body.Type == packet.SigTypeDirectKey:
				k.DirectSigs = append(k.DirectSigs, body)
			default:
				// A bare signature with no preceding user ID in this
				// primary's region is unexpected; skip rather than fail
				// the whole key, matching a tolerant loader posture.
			}
			i++

		case *packet.UserID, *packet.UserAttribute:
			uid := &UserID{}
			if u, ok := body.(*packet.UserID); ok {
				uid.Packet = u
			} else {
				uid.Attribute = body.(*packet.UserAttribute)
			}
			i++
			for i < len(pkts) {
				sig, ok := pkts[i].Body.(*packet.Signature)
				if !ok {
					break
				}
				if sig.Type == packet.SigTypeCertRevocation {
					uid.Revoked = true
				} else {
					uid.CertSigs = append(uid.CertSigs, sig)
					if sp, has := packet.Find(sig.Hashed, sig.Unhashed, packet.SubPrimaryUserID); has && len(sp.Data) == 1 && sp.Data[0] != 0 {
						uid.Primary = true
					}
				}
				i++
			}
			k.UserIDs = append(k.UserIDs, uid)

		case *packet.PublicKey, *packet.SecretKey:
			var subPub *packet.PublicKey
			var subSec *packet.SecretKey
			if p, ok := body.(*packet.PublicKey); ok {
				subPub = p
			} else {
				subSec = body.(*packet.SecretKey)
				subPub = subSec.Public
			}
			if !subPub.IsSubkey {
				// Start of the next primary key: stop here.
				return k, i, nil
			}
			i++
			var binding *packet.Signature
			var revoked bool
			for i < len(pkts) {
				sig, ok := pkts[i].Body.(*packet.Signature)
				if !ok {
					break
				}
				switch sig.Type {
				case packet.SigTypeSubkeyBinding:
					binding = sig
				case packet.SigTypeSubkeyRevocation:
					revoked = true
				}
				i++
			}
			if err := k.AddSubkey(subPub, subSec, binding); err != nil {
				return nil, 0, err
			}
			if revoked {
				k.Subkeys[len(k.Subkeys)-1].Revoked = true
			}

		default:
			// Unknown/undecoded packet type inside a key's region (e.g. a
			// Trust packet): skip it.
			i++
		}
	}
	return k, i, nil
}

// LoadAll parses every primary key in a flat decoded packet sequence.
func LoadAll(pkts []*packet.Packet) ([]*Key, error) {
	var keys []*Key
	for len(pkts) > 0 {
		k, consumed, err := Load(pkts)
		if err != nil {
			return nil, err
		}
		if consumed == 0 {
			return nil, errors.New("key: loader made no progress")
		}
		keys = append(keys, k)
		pkts = pkts[consumed:]
	}
	return keys, nil
}
