package keyring

import (
	"crypto/rand"
	"crypto/rsa"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openpgp-core/pgpcore/key"
	"github.com/openpgp-core/pgpcore/packet"
	"github.com/openpgp-core/pgpcore/primitive"
)

func newTestKey(t *testing.T, userID string) *key.Key {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	pub := &packet.PublicKey{
		Version: 4,
		Created: 1700000000,
		Algo:    primitive.PubKeyRSA,
		Material: &primitive.RSAPublic{
			N: priv.N,
			E: big.NewInt(int64(priv.E)),
		},
	}
	k, err := key.New(pub)
	require.NoError(t, err)
	if userID != "" {
		k.UserIDs = append(k.UserIDs, &key.UserID{Packet: &packet.UserID{ID: userID}})
	}
	return k
}

func TestAddAndByKeyIDFingerprint(t *testing.T) {
	kr, err := New(0)
	require.NoError(t, err)
	k := newTestKey(t, "Alice <alice@example.com>")
	kr.Add(k)

	require.Equal(t, 1, kr.Len())
	got, ok := kr.ByKeyID(k.KeyID)
	require.True(t, ok)
	require.Equal(t, k, got)

	got2, ok := kr.ByFingerprint(k.Fingerprint)
	require.True(t, ok)
	require.Equal(t, k, got2)
}

func TestAddMergesSameFingerprint(t *testing.T) {
	kr, err := New(0)
	require.NoError(t, err)
	k := newTestKey(t, "Alice <alice@example.com>")
	kr.Add(k)
	kr.Add(k) // re-adding the identical *Key must merge, not duplicate
	require.Equal(t, 1, kr.Len())
}

func TestLookupByHexKeyID(t *testing.T) {
	kr, err := New(0)
	require.NoError(t, err)
	k := newTestKey(t, "Bob <bob@example.com>")
	kr.Add(k)

	query := "0x"
	for _, b := range k.KeyID {
		query += string("0123456789abcdef"[b>>4]) + string("0123456789abcdef"[b&0xf])
	}
	found, err := kr.Lookup(query)
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, k, found[0])
}

func TestLookupUserIDIsCaseInsensitive(t *testing.T) {
	kr, err := New(0)
	require.NoError(t, err)
	k := newTestKey(t, "Carol Example <CAROL@example.com>")
	kr.Add(k)

	found, err := kr.Lookup("carol@EXAMPLE.com")
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, k, found[0])
}

func TestLookupHalfKeyID(t *testing.T) {
	kr, err := New(0)
	require.NoError(t, err)
	k := newTestKey(t, "Dave <dave@example.com>")
	kr.Add(k)

	var half [4]byte
	copy(half[:], k.KeyID[4:8])
	found := kr.LookupHalf(half)
	require.Len(t, found, 1)
	require.Equal(t, k, found[0])
}

func TestByKeyIDSurvivesCacheEviction(t *testing.T) {
	// A cache sized for a single entry must still resolve every key: the
	// exact indices are plain maps, the LRU only accelerates hits.
	kr, err := New(1)
	require.NoError(t, err)

	keys := make([]*key.Key, 5)
	for i := range keys {
		keys[i] = newTestKey(t, "")
		kr.Add(keys[i])
	}
	require.Equal(t, 5, kr.Len())

	for _, k := range keys {
		got, ok := kr.ByKeyID(k.KeyID)
		require.True(t, ok)
		require.Equal(t, k, got)

		gotFP, ok := kr.ByFingerprint(k.Fingerprint)
		require.True(t, ok)
		require.Equal(t, k, gotFP)
	}
}

func TestRemoveUnindexesSubkeys(t *testing.T) {
	kr, err := New(0)
	require.NoError(t, err)
	k := newTestKey(t, "Frank <frank@example.com>")
	sub := newTestKey(t, "")
	k.Subkeys = append(k.Subkeys, &key.Subkey{
		Public:      sub.Public,
		KeyID:       sub.KeyID,
		Fingerprint: sub.Fingerprint,
		Valid:       true,
	})
	kr.Add(k)

	require.True(t, kr.Remove(k.Fingerprint))
	_, ok := kr.ByKeyID(sub.KeyID)
	require.False(t, ok)
	_, ok = kr.ByFingerprint(sub.Fingerprint)
	require.False(t, ok)
}

func TestRemove(t *testing.T) {
	kr, err := New(0)
	require.NoError(t, err)
	k := newTestKey(t, "Erin <erin@example.com>")
	kr.Add(k)
	require.True(t, kr.Remove(k.Fingerprint))
	require.Equal(t, 0, kr.Len())
	_, ok := kr.ByFingerprint(k.Fingerprint)
	require.False(t, ok)
}
