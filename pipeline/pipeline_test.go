package pipeline

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openpgp-core/pgpcore/key"
	"github.com/openpgp-core/pgpcore/keyring"
	"github.com/openpgp-core/pgpcore/mpi"
	"github.com/openpgp-core/pgpcore/packet"
	"github.com/openpgp-core/pgpcore/primitive"
	"github.com/openpgp-core/pgpcore/provider"
	"github.com/openpgp-core/pgpcore/stream"
)

func newTestRSAKey(t *testing.T, bits int) *key.Key {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, bits)
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

	u := new(big.Int).ModInverse(priv.Primes[0], priv.Primes[1])
	require.NotNil(t, u)

	var secretBody []byte
	secretBody = append(secretBody, pub.Encode()...)
	secretBody = append(secretBody, 0x00) // ProtectNone
	secretBody = append(secretBody, mpi.Encode(priv.D)...)
	secretBody = append(secretBody, mpi.Encode(priv.Primes[0])...)
	secretBody = append(secretBody, mpi.Encode(priv.Primes[1])...)
	secretBody = append(secretBody, mpi.Encode(u)...)

	sk, err := packet.ParseSecretKeyBody(secretBody, false)
	require.NoError(t, err)
	require.False(t, sk.Locked())

	k, err := key.New(sk.Public)
	require.NoError(t, err)
	k.Secret = sk
	return k
}

func wrapLiteral(content []byte) []byte {
	hdr := packet.LiteralHeader{Format: packet.LiteralBinary, FileName: "m.txt"}
	body := append(hdr.Encode(), content...)
	var buf bytes.Buffer
	buf.Write(packet.WriteHeader(packet.TagLiteral, len(body)))
	buf.Write(body)
	return buf.Bytes()
}

func TestEncryptMultiRecipient(t *testing.T) {
	suite := primitive.DefaultSuite{}
	alice := newTestRSAKey(t, 1024)
	bob := newTestRSAKey(t, 1024)

	literal := wrapLiteral([]byte("shared secret content"))
	message, err := Encrypt(suite, EncryptParams{
		Recipients: []*key.Key{alice, bob},
		Cipher:     primitive.CipherAES256,
	}, literal)
	require.NoError(t, err)

	kr, err := keyring.New(0)
	require.NoError(t, err)
	kr.Add(bob)

	result, err := Unwind(suite, stream.NewSource(bytes.NewReader(message)), kr, nil)
	require.NoError(t, err)
	require.Equal(t, []byte("shared secret content"), result.Content)
}

func TestEncryptWithCompression(t *testing.T) {
	suite := primitive.DefaultSuite{}
	for _, algo := range []primitive.CompressAlgo{primitive.CompressZIP, primitive.CompressZLIB} {
		recipient := newTestRSAKey(t, 1024)
		literal := wrapLiteral(bytes.Repeat([]byte("compress me "), 50))

		message, err := Encrypt(suite, EncryptParams{
			Recipients: []*key.Key{recipient},
			Cipher:     primitive.CipherAES128,
			Compress:   algo,
		}, literal)
		require.NoError(t, err, "algo %d", algo)

		kr, err := keyring.New(0)
		require.NoError(t, err)
		kr.Add(recipient)

		result, err := Unwind(suite, stream.NewSource(bytes.NewReader(message)), kr, nil)
		require.NoError(t, err, "algo %d", algo)
		require.Equal(t, bytes.Repeat([]byte("compress me "), 50), result.Content, "algo %d", algo)
	}
}

func TestEncryptWithAEAD(t *testing.T) {
	suite := primitive.DefaultSuite{}
	recipient := newTestRSAKey(t, 1024)
	literal := wrapLiteral([]byte("aead framed content, more than one chunk worth of bytes perhaps"))

	message, err := Encrypt(suite, EncryptParams{
		Recipients: []*key.Key{recipient},
		Cipher:     primitive.CipherAES128,
		UseAEAD:    true,
		AEAD:       primitive.AEADEAX,
	}, literal)
	require.NoError(t, err)

	kr, err := keyring.New(0)
	require.NoError(t, err)
	kr.Add(recipient)

	result, err := Unwind(suite, stream.NewSource(bytes.NewReader(message)), kr, nil)
	require.NoError(t, err)
	require.Equal(t, []byte("aead framed content, more than one chunk worth of bytes perhaps"), result.Content)
}

func TestEncryptWithPassphraseOnly(t *testing.T) {
	suite := primitive.DefaultSuite{}
	literal := wrapLiteral([]byte("passphrase only content"))

	message, err := Encrypt(suite, EncryptParams{
		Passphrase: []byte("hunter2"),
		Cipher:     primitive.CipherAES256,
	}, literal)
	require.NoError(t, err)

	kr, err := keyring.New(0)
	require.NoError(t, err)

	result, err := Unwind(suite, stream.NewSource(bytes.NewReader(message)), kr, provider.StaticPassword("hunter2"))
	require.NoError(t, err)
	require.Equal(t, []byte("passphrase only content"), result.Content)
}

func TestSignByOnePassVerifiesAgainstSigningSubkey(t *testing.T) {
	suite := primitive.DefaultSuite{}
	primary := newTestRSAKey(t, 1024)
	signingSub := newTestRSAKey(t, 1024)

	primary.Subkeys = append(primary.Subkeys, &key.Subkey{
		Public:      signingSub.Public,
		Secret:      signingSub.Secret,
		KeyID:       signingSub.KeyID,
		Fingerprint: signingSub.Fingerprint,
		Valid:       true,
	})

	kr, err := keyring.New(0)
	require.NoError(t, err)
	kr.Add(primary)

	// The subkey signs on its own behalf; keys.ByKeyID(signingSub.KeyID)
	// resolves to the primary Key, so verification must still pick the
	// subkey's own material rather than the primary's.
	message, err := Sign(suite, SignParams{
		Signer:   signingSub,
		HashAlgo: primitive.HashSHA256,
		Literal:  packet.LiteralHeader{Format: packet.LiteralBinary, FileName: "signed.txt"},
	}, []byte("signed by subkey"))
	require.NoError(t, err)

	result, err := Unwind(suite, stream.NewSource(bytes.NewReader(message)), kr, nil)
	require.NoError(t, err)
	require.True(t, result.Verified)
	require.Contains(t, result.SignedBy, signingSub.KeyID)
}

func TestResolveSignerKeyFindsSubkeyMaterial(t *testing.T) {
	primary := newTestRSAKey(t, 1024)
	sub := newTestRSAKey(t, 1024)
	primary.Subkeys = append(primary.Subkeys, &key.Subkey{
		Public: sub.Public,
		KeyID:  sub.KeyID,
	})

	algo, material, ok := ResolveSignerKey(primary, sub.KeyID)
	require.True(t, ok)
	require.Equal(t, sub.Public.Algo, algo)
	require.Equal(t, sub.Public.Material, material)

	algo, material, ok = ResolveSignerKey(primary, primary.KeyID)
	require.True(t, ok)
	require.Equal(t, primary.Public.Algo, algo)
	require.Equal(t, primary.Public.Material, material)

	_, _, ok = ResolveSignerKey(primary, key.KeyID{0xff})
	require.False(t, ok)
}

func TestVerifyDetachedAgainstSubkey(t *testing.T) {
	suite := primitive.DefaultSuite{}
	primary := newTestRSAKey(t, 1024)
	signingSub := newTestRSAKey(t, 1024)
	primary.Subkeys = append(primary.Subkeys, &key.Subkey{
		Public: signingSub.Public,
		Secret: signingSub.Secret,
		KeyID:  signingSub.KeyID,
	})

	kr, err := keyring.New(0)
	require.NoError(t, err)
	kr.Add(primary)

	content := []byte("detached payload")
	sig, err := SignDetached(suite, SignParams{
		Signer:   signingSub,
		HashAlgo: primitive.HashSHA256,
	}, content)
	require.NoError(t, err)

	ok, err := VerifyDetached(suite, kr, sig, content)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = VerifyDetached(suite, kr, sig, []byte("tampered payload"))
	require.False(t, err == nil && ok, "tampered content must not verify")
}

func TestSignProducesVerifiableOnePassMessage(t *testing.T) {
	suite := primitive.DefaultSuite{}
	signer := newTestRSAKey(t, 1024)

	message, err := Sign(suite, SignParams{
		Signer:   signer,
		HashAlgo: primitive.HashSHA256,
		Literal:  packet.LiteralHeader{Format: packet.LiteralBinary, FileName: "signed.txt"},
	}, []byte("signed content"))
	require.NoError(t, err)

	kr, err := keyring.New(0)
	require.NoError(t, err)
	kr.Add(signer)

	result, err := Unwind(suite, stream.NewSource(bytes.NewReader(message)), kr, nil)
	require.NoError(t, err)
	require.True(t, result.Verified)
	require.Equal(t, []byte("signed content"), result.Content)
	require.Contains(t, result.SignedBy, signer.KeyID)
}
