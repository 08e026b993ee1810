package key

import (
	"time"

	"github.com/pkg/errors"

	"github.com/openpgp-core/pgpcore/packet"
	"github.com/openpgp-core/pgpcore/primitive"
)

// KeyFlag bits from the SubKeyFlags subpacket, RFC 4880 section 5.2.3.21.
const (
	FlagCertify    byte = 0x01
	FlagSign       byte = 0x02
	FlagEncryptComm byte = 0x04
	FlagEncryptStorage byte = 0x08
	FlagAuth       byte = 0x20
)

// Validate checks the primary key's self-certifications and each
// subkey's binding signature (verifying an embedded primary-key-binding
// signature when the subkey carries FlagSign, per spec.md's binding
// rule), setting Valid and Validated on k and Valid on each Subkey.
func (k *Key) Validate(suite primitive.Suite, now time.Time) error {
	k.Validated = true
	k.Valid = false

	for _, u := range k.UserIDs {
		for _, sig := range u.CertSigs {
			ok, err := verifySelfCert(suite, k.Public, u, sig)
			if err != nil {
				continue
			}
			if ok && !expired(sig, now) {
				k.Valid = true
			}
		}
	}
	if len(k.Revocations) > 0 {
		for _, rev := range k.Revocations {
			if ok, _ := verifyDirectSig(suite, k.Public, rev); ok {
				k.Valid = false
				break
			}
		}
	}

	for _, sub := range k.Subkeys {
		valid, err := validateSubkeyBinding(suite, k.Public, sub, now)
		sub.Valid = err == nil && valid && !sub.Revoked
	}
	return nil
}

func expired(sig *packet.Signature, now time.Time) bool {
	sp, ok := packet.Find(sig.Hashed, sig.Unhashed, packet.SubSignatureExpiration)
	if !ok || len(sp.Data) != 4 {
		return false
	}
	seconds := int64(sp.Data[0])<<24 | int64(sp.Data[1])<<16 | int64(sp.Data[2])<<8 | int64(sp.Data[3])
	if seconds == 0 {
		return false
	}
	expiry := time.Unix(sig.Created+seconds, 0)
	return now.After(expiry)
}

func verifySelfCert(suite primitive.Suite, pub *packet.PublicKey, u *UserID, sig *packet.Signature) (bool, error) {
	digest, err := hashUserIDCert(suite, pub, u, sig)
	if err != nil {
		return false, err
	}
	sigMPIs, err := sig.SigMPIBigInts()
	if err != nil {
		return false, err
	}
	material := packet.SigMPIsFromBigInts(sigMPIs...)
	return suite.Verify(pub.Algo, pub.Material, sig.HashAlgo, digest, material)
}

func verifyDirectSig(suite primitive.Suite, pub *packet.PublicKey, sig *packet.Signature) (bool, error) {
	digest, err := hashKeyOnly(suite, pub, sig)
	if err != nil {
		return false, err
	}
	sigMPIs, err := sig.SigMPIBigInts()
	if err != nil {
		return false, err
	}
	material := packet.SigMPIsFromBigInts(sigMPIs...)
	return suite.Verify(pub.Algo, pub.Material, sig.HashAlgo, digest, material)
}

func validateSubkeyBinding(suite primitive.Suite, primary *packet.PublicKey, sub *Subkey, now time.Time) (bool, error) {
	if sub.Binding == nil {
		return false, errors.New("key: subkey missing binding signature")
	}
	digest, err := hashKeyAndSubkey(suite, primary, sub.Public, sub.Binding)
	if err != nil {
		return false, err
	}
	sigMPIs, err := sub.Binding.SigMPIBigInts()
	if err != nil {
		return false, err
	}
	material := packet.SigMPIsFromBigInts(sigMPIs...)
	ok, err := suite.Verify(primary.Algo, primary.Material, sub.Binding.HashAlgo, digest, material)
	if err != nil || !ok {
		return false, err
	}

	if sp, has := packet.Find(sub.Binding.Hashed, sub.Binding.Unhashed, packet.SubKeyFlags); has && len(sp.Data) > 0 {
		if sp.Data[0]&FlagSign != 0 {
			embedded, ok := findEmbeddedPrimaryBinding(sub.Binding)
			if !ok {
				return false, errors.New("key: signing subkey missing embedded primary-key-binding signature")
			}
			digest2, err := hashKeyAndSubkey(suite, primary, sub.Public, embedded)
			if err != nil {
				return false, err
			}
			embMPIs, err := embedded.SigMPIBigInts()
			if err != nil {
				return false, err
			}
			embMaterial := packet.SigMPIsFromBigInts(embMPIs...)
			return suite.Verify(sub.Public.Algo, sub.Public.Material, embedded.HashAlgo, digest2, embMaterial)
		}
	}
	if expired(sub.Binding, now) {
		return false, nil
	}
	return true, nil
}

// findEmbeddedPrimaryBinding extracts a SigTypePrimaryBinding signature
// packet embedded (unparsed) in the binding signature's unhashed area,
// if one is present. pgpcore's subpacket grammar treats the "Embedded
// Signature" subpacket (type 32) as an opaque signature body.
const subEmbeddedSignature byte = 32

func findEmbeddedPrimaryBinding(binding *packet.Signature) (*packet.Signature, bool) {
	sp, ok := packet.Find(binding.Hashed, binding.Unhashed, subEmbeddedSignature)
	if !ok {
		return nil, false
	}
	embedded, err := packet.ParseSignatureBody(sp.Data)
	if err != nil || embedded.Type != packet.SigTypePrimaryBinding {
		return nil, false
	}
	return embedded, true
}
