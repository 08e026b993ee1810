package key

import (
	"bytes"

	"github.com/openpgp-core/pgpcore/packet"
)

// Merge folds other's user IDs, direct-key signatures, revocations and
// subkeys into k, deduplicating by exact packet bytes. Both keys must
// share the same fingerprint; Merge returns false without modifying k if
// they do not, per spec.md's key-entity merge rule (a keyring re-reading
// a previously-seen key only ever adds new certifications, never
// replaces existing material).
func (k *Key) Merge(other *Key) bool {
	if !bytes.Equal(k.Fingerprint, other.Fingerprint) {
		return false
	}
	if k.Secret == nil && other.Secret != nil {
		k.Secret = other.Secret
	}

	k.DirectSigs = mergeSigs(k.DirectSigs, other.DirectSigs)
	k.Revocations = mergeSigs(k.Revocations, other.Revocations)

	for _, ou := range other.UserIDs {
		if existing := k.findUserID(ou); existing != nil {
			existing.CertSigs = mergeSigs(existing.CertSigs, ou.CertSigs)
			existing.Revoked = existing.Revoked || ou.Revoked
			continue
		}
		k.UserIDs = append(k.UserIDs, ou)
	}

	for _, os := range other.Subkeys {
		if existing := k.findSubkey(os); existing != nil {
			if existing.Secret == nil && os.Secret != nil {
				existing.Secret = os.Secret
			}
			if os.Revoked {
				existing.Revoked = true
			}
			continue
		}
		k.Subkeys = append(k.Subkeys, os)
	}
	return true
}

func (k *Key) findUserID(want *UserID) *UserID {
	for _, u := range k.UserIDs {
		if sameUserID(u, want) {
			return u
		}
	}
	return nil
}

func sameUserID(a, b *UserID) bool {
	if a.Packet != nil && b.Packet != nil {
		return a.Packet.ID == b.Packet.ID
	}
	if a.Attribute != nil && b.Attribute != nil {
		return bytes.Equal(a.Attribute.Encode(), b.Attribute.Encode())
	}
	return false
}

func (k *Key) findSubkey(want *Subkey) *Subkey {
	for _, s := range k.Subkeys {
		if bytes.Equal(s.Fingerprint, want.Fingerprint) {
			return s
		}
	}
	return nil
}

func mergeSigs(existing, incoming []*packet.Signature) []*packet.Signature {
	for _, sig := range incoming {
		if !containsSig(existing, sig) {
			existing = append(existing, sig)
		}
	}
	return existing
}

func containsSig(sigs []*packet.Signature, sig *packet.Signature) bool {
	for _, s := range sigs {
		if bytes.Equal(s.Encode(), sig.Encode()) {
			return true
		}
	}
	return false
}

// AddSubkey attaches a secondary key bound by binding to k, computing the
// subkey's own fingerprint and key ID.
func (k *Key) AddSubkey(pub *packet.PublicKey, sec *packet.SecretKey, binding *packet.Signature) error {
	fp, err := ComputeFingerprint(pub)
	if err != nil {
		return err
	}
	id, err := ComputeKeyID(pub)
	if err != nil {
		return err
	}
	k.Subkeys = append(k.Subkeys, &Subkey{
		Public:      pub,
		Secret:      sec,
		Binding:     binding,
		KeyID:       id,
		Fingerprint: fp,
	})
	return nil
}
