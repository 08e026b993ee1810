// Package provider defines the callback interfaces through which the
// pgp package asks its caller for secrets and keys it has no business
// holding onto itself: passphrases and private-key lookups, per spec.md
// section 6.2.
package provider

import (
	"github.com/openpgp-core/pgpcore/key"
)

// PasswordProvider supplies a passphrase for unlocking protected secret
// key material. reason is a short human-readable hint ("unlock
// 0xDEADBEEF" or similar); attempt counts from 0 so a provider backed by
// an interactive prompt can show "wrong password, try again" after the
// first failure.
type PasswordProvider interface {
	GetPassword(keyID key.KeyID, reason string, attempt int) ([]byte, error)
}

// KeyProvider resolves which key to use for an operation the Context
// cannot decide on its own: the decryption key for a PKESK whose key ID
// is not in the default keyring, or the signing key when more than one
// candidate exists.
type KeyProvider interface {
	ResolveDecryptionKey(candidates []key.KeyID) (*key.Key, error)
	ResolveSigningKey(userID string) (*key.Key, error)
}

// StaticPassword is a PasswordProvider that always returns the same
// passphrase, useful for tests and for scripted CLI use where the
// passphrase is supplied up front.
type StaticPassword []byte

func (s StaticPassword) GetPassword(key.KeyID, string, int) ([]byte, error) {
	return []byte(s), nil
}
