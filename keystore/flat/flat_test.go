package flat

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"math/big"
	"testing"

	gc "gopkg.in/check.v1"

	"github.com/openpgp-core/pgpcore/key"
	"github.com/openpgp-core/pgpcore/mpi"
	"github.com/openpgp-core/pgpcore/packet"
	"github.com/openpgp-core/pgpcore/primitive"
)

func Test(t *testing.T) { gc.TestingT(t) }

type FlatSuite struct{}

var _ = gc.Suite(&FlatSuite{})

func newTestKey(c *gc.C, userID string) *key.Key {
	priv, err := rsa.GenerateKey(rand.Reader, 1024)
	c.Assert(err, gc.IsNil)

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
	c.Assert(err, gc.IsNil)
	k.UserIDs = append(k.UserIDs, &key.UserID{Packet: &packet.UserID{ID: userID}})

	u := new(big.Int).ModInverse(priv.Primes[0], priv.Primes[1])
	c.Assert(u, gc.NotNil)

	var secretBody []byte
	secretBody = append(secretBody, pub.Encode()...)
	secretBody = append(secretBody, 0x00) // ProtectNone
	secretBody = append(secretBody, mpi.Encode(priv.D)...)
	secretBody = append(secretBody, mpi.Encode(priv.Primes[0])...)
	secretBody = append(secretBody, mpi.Encode(priv.Primes[1])...)
	secretBody = append(secretBody, mpi.Encode(u)...)

	sk, err := packet.ParseSecretKeyBody(secretBody, false)
	c.Assert(err, gc.IsNil)
	k.Secret = sk
	return k
}

func (s *FlatSuite) TestSaveLoadPublicOnlyRoundTrip(c *gc.C) {
	k := newTestKey(c, "alice <alice@example.com>")
	pubOnly, err := key.New(k.Public)
	c.Assert(err, gc.IsNil)
	pubOnly.UserIDs = k.UserIDs

	var buf bytes.Buffer
	c.Assert(Save(&buf, []*key.Key{pubOnly}), gc.IsNil)

	loaded, err := Load(&buf)
	c.Assert(err, gc.IsNil)
	c.Assert(loaded, gc.HasLen, 1)
	c.Assert(loaded[0].Fingerprint, gc.DeepEquals, k.Fingerprint)
	c.Assert(loaded[0].UserIDs, gc.HasLen, 1)
	c.Assert(loaded[0].UserIDs[0].Packet.ID, gc.Equals, "alice <alice@example.com>")
	c.Assert(loaded[0].Secret, gc.IsNil)
}

func (s *FlatSuite) TestSaveProtectedRoundTripsUnlockedSecret(c *gc.C) {
	k := newTestKey(c, "bob <bob@example.com>")

	var buf bytes.Buffer
	c.Assert(SaveProtected(&buf, []*key.Key{k}, primitive.DefaultSuite{}, []byte("s3cret"), primitive.CipherAES256), gc.IsNil)

	loaded, err := Load(&buf)
	c.Assert(err, gc.IsNil)
	c.Assert(loaded, gc.HasLen, 1)
	c.Assert(loaded[0].Secret, gc.NotNil)
	c.Assert(loaded[0].Secret.Locked(), gc.Equals, true)

	c.Assert(loaded[0].Secret.Unlock(primitive.DefaultSuite{}, []byte("s3cret")), gc.IsNil)
	c.Assert(loaded[0].Secret.Locked(), gc.Equals, false)
}

func (s *FlatSuite) TestSaveRejectsLockedSecretWithoutPassphrase(c *gc.C) {
	k := newTestKey(c, "carol <carol@example.com>")

	var locked bytes.Buffer
	c.Assert(SaveProtected(&locked, []*key.Key{k}, primitive.DefaultSuite{}, []byte("pw"), primitive.CipherAES256), gc.IsNil)
	loaded, err := Load(&locked)
	c.Assert(err, gc.IsNil)

	var out bytes.Buffer
	err = Save(&out, loaded)
	c.Assert(err, gc.NotNil)
}

func (s *FlatSuite) TestLoadMultipleKeysPreservesOrder(c *gc.C) {
	a := newTestKey(c, "a <a@example.com>")
	b := newTestKey(c, "b <b@example.com>")

	var buf bytes.Buffer
	c.Assert(Save(&buf, []*key.Key{a, b}), gc.IsNil)

	loaded, err := Load(&buf)
	c.Assert(err, gc.IsNil)
	c.Assert(loaded, gc.HasLen, 2)
	c.Assert(loaded[0].Fingerprint, gc.DeepEquals, a.Fingerprint)
	c.Assert(loaded[1].Fingerprint, gc.DeepEquals, b.Fingerprint)
}
