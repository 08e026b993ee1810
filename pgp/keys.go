package pgp

import (
	"bytes"
	"io"

	"github.com/openpgp-core/pgpcore/key"
	"github.com/openpgp-core/pgpcore/keystore/flat"
	"github.com/openpgp-core/pgpcore/keystore/kbx"
	"github.com/openpgp-core/pgpcore/primitive"
)

// KeystoreFormat selects the on-disk keyring encoding LoadKeyring and
// SaveKeyring use.
type KeystoreFormat int

const (
	FormatFlat KeystoreFormat = iota
	FormatKBX
)

// LoadKeyring reads keys from r in the given format and merges them into
// ctx.Keys, returning the number of keys added or merged.
func (ctx *Context) LoadKeyring(r io.Reader, format KeystoreFormat) (int, error) {
	var keys []*key.Key
	var err error
	switch format {
	case FormatKBX:
		keys, err = kbx.Load(r)
	default:
		keys, err = flat.Load(r)
	}
	if err != nil {
		return 0, outcome(ResultBadFormat, err)
	}
	for _, k := range keys {
		ctx.Keys.Add(k)
	}
	return len(keys), nil
}

// SaveKeyring writes every key currently in ctx.Keys to w. Only the flat
// format is supported for saving; pgpcore does not originate KBX files
// (it only reads GnuPG/RNP-produced ones), per SPEC_FULL.md's keystore
// section. Any unlocked secret key material is re-protected with
// passphrase (nil writes it unprotected).
func (ctx *Context) SaveKeyring(w io.Writer, passphrase []byte, cipher primitive.CipherAlgo) error {
	if cipher == 0 {
		cipher = primitive.CipherAES256
	}
	if err := flat.SaveProtected(w, ctx.Keys.All(), ctx.Suite, passphrase, cipher); err != nil {
		return outcome(ResultError, err)
	}
	return nil
}

// ImportArmored loads one or more armored public/private key blocks.
func (ctx *Context) ImportArmored(data []byte) (int, error) {
	return ctx.LoadKeyring(bytes.NewReader(data), FormatFlat)
}

// Lookup resolves a key-ID/fingerprint/user-ID substring query against
// ctx.Keys, per keyring.Lookup's matching rules.
func (ctx *Context) Lookup(query string) ([]*key.Key, error) {
	keys, err := ctx.Keys.Lookup(query)
	if err != nil {
		return nil, outcome(ResultError, err)
	}
	if len(keys) == 0 {
		return nil, outcome(ResultNoSuitableKey, nil)
	}
	return keys, nil
}

// AddKey inserts (or merges) a single key into ctx.Keys.
func (ctx *Context) AddKey(k *key.Key) {
	ctx.Keys.Add(k)
}

// RemoveKey removes a key by fingerprint from ctx.Keys.
func (ctx *Context) RemoveKey(fp key.Fingerprint) bool {
	return ctx.Keys.Remove(fp)
}
