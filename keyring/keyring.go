// Package keyring implements an in-memory collection of key.Key entities
// with fingerprint, key-id, grip and user-id lookup. Exact lookups are
// backed by plain maps (every indexed key must be found, however large
// the keyring grows); a bounded LRU cache sits in front of each map so
// repeated lookups on a large keyring amortize instead of re-hashing
// (spec.md section 4.6).
package keyring

import (
	"encoding/hex"
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/openpgp-core/pgpcore/key"
)

const defaultCacheSize = 4096

// Keyring holds a set of keys, indexed for fast lookup. The zero value is
// not usable; construct with New.
type Keyring struct {
	linear []*key.Key

	byKeyIDIndex       map[key.KeyID]*key.Key
	byFingerprintIndex map[string]*key.Key
	byGripIndex        map[string]*key.Key

	byKeyIDCache       *lru.Cache // KeyID -> *key.Key
	byFingerprintCache *lru.Cache // string(Fingerprint) -> *key.Key
	byGripCache        *lru.Cache // string(Grip) -> *key.Key
}

// New builds an empty Keyring with LRU caches sized for n expected keys
// (0 uses a reasonable default). The caches are a front-end over exact
// map indices, not the indices themselves, so lookups remain correct
// past n distinct keys.
func New(n int) (*Keyring, error) {
	if n <= 0 {
		n = defaultCacheSize
	}
	byKeyID, err := lru.New(n)
	if err != nil {
		return nil, errors.Wrap(err, "keyring: key-id cache")
	}
	byFP, err := lru.New(n)
	if err != nil {
		return nil, errors.Wrap(err, "keyring: fingerprint cache")
	}
	byGrip, err := lru.New(n)
	if err != nil {
		return nil, errors.Wrap(err, "keyring: grip cache")
	}
	return &Keyring{
		byKeyIDIndex:       make(map[key.KeyID]*key.Key),
		byFingerprintIndex: make(map[string]*key.Key),
		byGripIndex:        make(map[string]*key.Key),
		byKeyIDCache:       byKeyID,
		byFingerprintCache: byFP,
		byGripCache:        byGrip,
	}, nil
}

// Add inserts k, merging into an existing entry with the same
// fingerprint if one is present.
func (r *Keyring) Add(k *key.Key) {
	for _, existing := range r.linear {
		if existing.Merge(k) {
			r.index(existing)
			return
		}
	}
	r.linear = append(r.linear, k)
	r.index(k)
}

func (r *Keyring) index(k *key.Key) {
	r.byKeyIDIndex[k.KeyID] = k
	r.byKeyIDCache.Add(k.KeyID, k)
	r.byFingerprintIndex[string(k.Fingerprint)] = k
	r.byFingerprintCache.Add(string(k.Fingerprint), k)
	if len(k.Grip) > 0 {
		r.byGripIndex[string(k.Grip)] = k
		r.byGripCache.Add(string(k.Grip), k)
	}
	for _, sub := range k.Subkeys {
		r.byKeyIDIndex[sub.KeyID] = k
		r.byKeyIDCache.Add(sub.KeyID, k)
		r.byFingerprintIndex[string(sub.Fingerprint)] = k
		r.byFingerprintCache.Add(string(sub.Fingerprint), k)
	}
}

// Len returns the number of primary keys held.
func (r *Keyring) Len() int { return len(r.linear) }

// All returns every primary key, in insertion order.
func (r *Keyring) All() []*key.Key {
	out := make([]*key.Key, len(r.linear))
	copy(out, r.linear)
	return out
}

// ByKeyID looks up a key by its own or one of its subkeys' 8-byte key ID.
func (r *Keyring) ByKeyID(id key.KeyID) (*key.Key, bool) {
	if v, ok := r.byKeyIDCache.Get(id); ok {
		return v.(*key.Key), true
	}
	k, ok := r.byKeyIDIndex[id]
	if !ok {
		return nil, false
	}
	r.byKeyIDCache.Add(id, k)
	return k, true
}

// ByFingerprint looks up a key by exact fingerprint match (primary or
// subkey).
func (r *Keyring) ByFingerprint(fp key.Fingerprint) (*key.Key, bool) {
	s := string(fp)
	if v, ok := r.byFingerprintCache.Get(s); ok {
		return v.(*key.Key), true
	}
	k, ok := r.byFingerprintIndex[s]
	if !ok {
		return nil, false
	}
	r.byFingerprintCache.Add(s, k)
	return k, true
}

// ByGrip looks up a key by its computed grip.
func (r *Keyring) ByGrip(g key.Grip) (*key.Key, bool) {
	s := string(g)
	if v, ok := r.byGripCache.Get(s); ok {
		return v.(*key.Key), true
	}
	k, ok := r.byGripIndex[s]
	if !ok {
		return nil, false
	}
	r.byGripCache.Add(s, k)
	return k, true
}

// LookupHalf finds a key whose key ID shares its low 4 bytes with a
// short (4-byte/8-hex-digit) query. pgpcore treats this as a distinct,
// opt-in operation rather than folding it into ByKeyID, since a half
// key-id match is not cryptographically meaningful and callers should
// only use it for human-friendly lookup UIs, mirroring the ambiguity
// warning RNP's own CLI emits for short key IDs.
func (r *Keyring) LookupHalf(half [4]byte) []*key.Key {
	var out []*key.Key
	for _, k := range r.linear {
		if [4]byte{k.KeyID[4], k.KeyID[5], k.KeyID[6], k.KeyID[7]} == half {
			out = append(out, k)
		}
	}
	return out
}

// Lookup resolves a human-entered query: a "0x"-prefixed or bare hex key
// ID/fingerprint, or otherwise a regular expression matched against each
// key's user IDs, per the RNP key-resolution convenience recorded in
// SPEC_FULL.md section 7.
func (r *Keyring) Lookup(query string) ([]*key.Key, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(query, "0x"), "0X")
	if raw, err := hex.DecodeString(trimmed); err == nil {
		switch len(raw) {
		case 8:
			var id key.KeyID
			copy(id[:], raw)
			if k, ok := r.ByKeyID(id); ok {
				return []*key.Key{k}, nil
			}
			return nil, nil
		case 4:
			var half [4]byte
			copy(half[:], raw)
			return r.LookupHalf(half), nil
		case 16, 20:
			if k, ok := r.ByFingerprint(raw); ok {
				return []*key.Key{k}, nil
			}
			return nil, nil
		}
	}

	re, err := regexp.Compile("(?i)" + query)
	if err != nil {
		return nil, errors.Wrap(err, "keyring: invalid user id query")
	}
	var out []*key.Key
	for _, k := range r.linear {
		for _, u := range k.UserIDs {
			if u.Packet != nil && re.MatchString(u.Packet.ID) {
				out = append(out, k)
				break
			}
		}
	}
	return out, nil
}

// Remove deletes the key with the given fingerprint, if present.
func (r *Keyring) Remove(fp key.Fingerprint) bool {
	for i, k := range r.linear {
		if string(k.Fingerprint) == string(fp) {
			r.linear = append(r.linear[:i], r.linear[i+1:]...)
			r.unindex(k)
			return true
		}
	}
	return false
}

func (r *Keyring) unindex(k *key.Key) {
	delete(r.byFingerprintIndex, string(k.Fingerprint))
	r.byFingerprintCache.Remove(string(k.Fingerprint))
	delete(r.byKeyIDIndex, k.KeyID)
	r.byKeyIDCache.Remove(k.KeyID)
	if len(k.Grip) > 0 {
		delete(r.byGripIndex, string(k.Grip))
		r.byGripCache.Remove(string(k.Grip))
	}
	for _, sub := range k.Subkeys {
		delete(r.byKeyIDIndex, sub.KeyID)
		r.byKeyIDCache.Remove(sub.KeyID)
		delete(r.byFingerprintIndex, string(sub.Fingerprint))
		r.byFingerprintCache.Remove(string(sub.Fingerprint))
	}
}
