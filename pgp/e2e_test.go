package pgp

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openpgp-core/pgpcore/key"
	"github.com/openpgp-core/pgpcore/mpi"
	"github.com/openpgp-core/pgpcore/packet"
	"github.com/openpgp-core/pgpcore/pipeline"
	"github.com/openpgp-core/pgpcore/primitive"
	"github.com/openpgp-core/pgpcore/provider"
)

// newTestRSAKey builds a *key.Key with an already-unlocked secret part by
// round-tripping real RSA key material through the wire encoding
// (ParsePublicKeyBody/ParseSecretKeyBody), the only way to obtain an
// unlocked packet.SecretKey from outside the packet package.
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
	k.UserIDs = append(k.UserIDs, &key.UserID{Packet: &packet.UserID{ID: "test key <test@example.com>"}})
	return k
}

func TestEncryptDecryptRoundTripToRecipient(t *testing.T) {
	ctx, err := New()
	require.NoError(t, err)
	recipient := newTestRSAKey(t, 1024)
	ctx.AddKey(recipient)

	plaintext := []byte("abc")
	out, err := ctx.Encrypt(plaintext, EncryptOptions{
		Recipients: []*key.Key{recipient},
		Cipher:     primitive.CipherAES128,
	})
	require.NoError(t, err)

	result, err := ctx.Decrypt(out, DecryptOptions{})
	require.NoError(t, err)
	require.Equal(t, plaintext, result.Content)
}

func TestEncryptDecryptRoundTripWithPassphrase(t *testing.T) {
	ctx, err := New()
	require.NoError(t, err)
	ctx.Passwords = provider.StaticPassword("correct horse battery staple")

	plaintext := []byte("symmetric round trip content")
	out, err := ctx.Encrypt(plaintext, EncryptOptions{
		Passphrase: []byte("correct horse battery staple"),
		Cipher:     primitive.CipherAES256,
		Armor:      true,
	})
	require.NoError(t, err)

	result, err := ctx.Decrypt(out, DecryptOptions{})
	require.NoError(t, err)
	require.Equal(t, plaintext, result.Content)
}

func TestSignVerifyRoundTrip(t *testing.T) {
	ctx, err := New()
	require.NoError(t, err)
	signer := newTestRSAKey(t, 1024)
	ctx.AddKey(signer)

	content := []byte("message to be signed")
	signed, err := ctx.Sign(content, SignOptions{Signer: signer, HashAlgo: primitive.HashSHA256}, false, "msg.txt")
	require.NoError(t, err)

	result, err := ctx.Verify(signed, DecryptOptions{})
	require.NoError(t, err)
	require.True(t, result.Verified)
	require.Equal(t, content, result.Content)
	require.Contains(t, result.SignedBy, signer.KeyID)
}

func TestVerifyDetectsTamperedContent(t *testing.T) {
	ctx, err := New()
	require.NoError(t, err)
	signer := newTestRSAKey(t, 1024)
	ctx.AddKey(signer)

	content := []byte("original content")
	signed, err := ctx.Sign(content, SignOptions{Signer: signer, HashAlgo: primitive.HashSHA256}, false, "msg.txt")
	require.NoError(t, err)

	// Flip a byte inside the literal data packet's content region; the
	// signature was computed over the untampered bytes so verification
	// must fail.
	tampered := append([]byte{}, signed...)
	at := bytes.Index(tampered, content)
	require.True(t, at >= 0)
	tampered[at] ^= 0x01

	_, err = ctx.Verify(tampered, DecryptOptions{})
	require.Error(t, err)
}

func TestCleartextSignVerifyRoundTrip(t *testing.T) {
	ctx, err := New()
	require.NoError(t, err)
	signer := newTestRSAKey(t, 1024)
	ctx.AddKey(signer)

	content := []byte("line one\nline two\nline three")
	signed, err := ctx.Sign(content, SignOptions{Signer: signer, HashAlgo: primitive.HashSHA256, Cleartext: true}, false, "")
	require.NoError(t, err)
	require.Contains(t, string(signed), "-----BEGIN PGP SIGNED MESSAGE-----")

	result, err := ctx.Verify(signed, DecryptOptions{})
	require.NoError(t, err)
	require.True(t, result.Verified)
	require.Contains(t, result.SignedBy, signer.KeyID)
}

func TestCleartextVerifyDetectsTamperedContent(t *testing.T) {
	ctx, err := New()
	require.NoError(t, err)
	signer := newTestRSAKey(t, 1024)
	ctx.AddKey(signer)

	signed, err := ctx.Sign([]byte("trustworthy content"), SignOptions{Signer: signer, HashAlgo: primitive.HashSHA256, Cleartext: true}, false, "")
	require.NoError(t, err)

	tampered := []byte(strings.Replace(string(signed), "trustworthy", "tamperedxx!", 1))
	_, err = ctx.Verify(tampered, DecryptOptions{})
	require.Error(t, err)
}

func TestDetachedSignVerifyRoundTrip(t *testing.T) {
	ctx, err := New()
	require.NoError(t, err)
	signer := newTestRSAKey(t, 1024)
	ctx.AddKey(signer)

	content := []byte("payload covered by a detached signature")
	sigPacket, err := pipeline.SignDetached(ctx.Suite, pipeline.SignParams{
		Signer:   signer,
		HashAlgo: primitive.HashSHA256,
	}, content)
	require.NoError(t, err)
	sigBody := sigPacket.Encode()
	var raw bytes.Buffer
	raw.Write(packet.WriteHeader(packet.TagSignature, len(sigBody)))
	raw.Write(sigBody)

	result, err := ctx.Verify(content, DecryptOptions{Detached: raw.Bytes()})
	require.NoError(t, err)
	require.True(t, result.Verified)
	require.Contains(t, result.SignedBy, signer.KeyID)

	_, err = ctx.Verify([]byte("different payload"), DecryptOptions{Detached: raw.Bytes()})
	require.Error(t, err)
}

func TestDecryptRejectsWrongPassphrase(t *testing.T) {
	ctx, err := New()
	require.NoError(t, err)
	ctx.Passwords = provider.StaticPassword("right passphrase")

	out, err := ctx.Encrypt([]byte("secret"), EncryptOptions{
		Passphrase: []byte("right passphrase"),
		Cipher:     primitive.CipherAES128,
	})
	require.NoError(t, err)

	ctx.Passwords = provider.StaticPassword("wrong passphrase")
	_, err = ctx.Decrypt(out, DecryptOptions{})
	require.Error(t, err)
}
