package key

import (
	"crypto/rand"
	"crypto/rsa"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openpgp-core/pgpcore/packet"
	"github.com/openpgp-core/pgpcore/primitive"
)

func newRSAPublicKey(t *testing.T, created int64) *packet.PublicKey {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	return &packet.PublicKey{
		Version: 4,
		Created: created,
		Algo:    primitive.PubKeyRSA,
		Material: &primitive.RSAPublic{
			N: priv.N,
			E: big.NewInt(int64(priv.E)),
		},
	}
}

func TestFingerprintAndKeyIDAreDeterministic(t *testing.T) {
	pub := newRSAPublicKey(t, 1700000000)

	fp1, err := ComputeFingerprint(pub)
	require.NoError(t, err)
	fp2, err := ComputeFingerprint(pub)
	require.NoError(t, err)
	require.Equal(t, fp1, fp2)
	require.Len(t, fp1, 20)

	id1, err := ComputeKeyID(pub)
	require.NoError(t, err)
	id2, err := ComputeKeyID(pub)
	require.NoError(t, err)
	require.Equal(t, id1, id2)
	require.Equal(t, fp1[12:20], id1[:])
}

func TestFingerprintChangesWithKeyMaterial(t *testing.T) {
	a := newRSAPublicKey(t, 1700000000)
	b := newRSAPublicKey(t, 1700000000)

	fpA, err := ComputeFingerprint(a)
	require.NoError(t, err)
	fpB, err := ComputeFingerprint(b)
	require.NoError(t, err)
	require.NotEqual(t, fpA, fpB)
}

func TestNewBuildsKeyFromPrimary(t *testing.T) {
	pub := newRSAPublicKey(t, 1700000000)
	k, err := New(pub)
	require.NoError(t, err)
	require.NotEmpty(t, k.Fingerprint)
	require.NotEmpty(t, k.Grip)
	require.False(t, k.Valid)
	require.False(t, k.Validated)
}

func TestNewRejectsSubkeyMarkedPrimary(t *testing.T) {
	pub := newRSAPublicKey(t, 1700000000)
	pub.IsSubkey = true
	_, err := New(pub)
	require.Error(t, err)
}

func TestMergeRequiresSameFingerprint(t *testing.T) {
	a, err := New(newRSAPublicKey(t, 1700000000))
	require.NoError(t, err)
	b, err := New(newRSAPublicKey(t, 1700000000))
	require.NoError(t, err)

	require.False(t, a.Merge(b))
}

func TestMergeDeduplicatesUserIDsAndSigs(t *testing.T) {
	pub := newRSAPublicKey(t, 1700000000)
	base, err := New(pub)
	require.NoError(t, err)

	u := &UserID{Packet: &packet.UserID{ID: "alice <alice@example.com>"}}
	sig := &packet.Signature{Version: 4, Type: packet.SigTypeGenericCert, PubAlgo: primitive.PubKeyRSA, HashAlgo: primitive.HashSHA256, Created: 1700000001}
	u.CertSigs = append(u.CertSigs, sig)
	base.UserIDs = append(base.UserIDs, u)

	other, err := New(pub)
	require.NoError(t, err)
	u2 := &UserID{Packet: &packet.UserID{ID: "alice <alice@example.com>"}}
	u2.CertSigs = append(u2.CertSigs, sig) // identical signature bytes
	other.UserIDs = append(other.UserIDs, u2)

	require.True(t, base.Merge(other))
	require.Len(t, base.UserIDs, 1)
	require.Len(t, base.UserIDs[0].CertSigs, 1)
}

func TestExpiredChecksSignatureExpirationSubpacket(t *testing.T) {
	created := time.Unix(1700000000, 0)
	sig := &packet.Signature{Created: created.Unix(), Hashed: []packet.Subpacket{
		{Type: packet.SubSignatureExpiration, Data: []byte{0, 0, 0x0e, 0x10}}, // 3600 seconds
	}}
	require.False(t, expired(sig, created.Add(time.Hour-time.Second)))
	require.True(t, expired(sig, created.Add(2*time.Hour)))
}
