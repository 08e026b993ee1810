package integrity

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openpgp-core/pgpcore/primitive"
)

func TestMDCRoundTrip(t *testing.T) {
	suite := primitive.DefaultSuite{}
	plaintext := []byte("literal data packet content, quick-check prefix already mixed in")

	withTrailer, err := AppendMDC(suite, plaintext)
	require.NoError(t, err)
	require.Len(t, withTrailer, len(plaintext)+MDCSize)

	got, err := VerifyMDC(suite, withTrailer)
	require.NoError(t, err)
	require.Equal(t, plaintext, got)
}

func TestMDCDetectsTamperedPlaintext(t *testing.T) {
	suite := primitive.DefaultSuite{}
	plaintext := []byte("some plaintext content")
	withTrailer, err := AppendMDC(suite, plaintext)
	require.NoError(t, err)

	tampered := append([]byte{}, withTrailer...)
	tampered[0] ^= 0x01
	_, err = VerifyMDC(suite, tampered)
	require.ErrorIs(t, err, ErrMDCMismatch)
}

func TestMDCDetectsTruncatedTrailer(t *testing.T) {
	suite := primitive.DefaultSuite{}
	_, err := VerifyMDC(suite, []byte("too short"))
	require.Error(t, err)
}

func newTestAEAD(t *testing.T, algo primitive.AEADAlgo) primitive.AEAD {
	t.Helper()
	suite := primitive.DefaultSuite{}
	key := make([]byte, 16)
	require.NoError(t, suite.Fill(key))
	aead, err := suite.NewAEAD(algo, primitive.CipherAES128, key)
	require.NoError(t, err)
	return aead
}

func TestAEADChunkedRoundTrip(t *testing.T) {
	for _, algo := range []primitive.AEADAlgo{primitive.AEADEAX, primitive.AEADOCB} {
		aead := newTestAEAD(t, algo)
		params := ChunkParams{Version: 1, Cipher: primitive.CipherAES128, AEAD: algo, ChunkSizeOctet: 0, IV: make([]byte, aead.NonceSize())}
		plaintext := bytes.Repeat([]byte("x"), 150) // several 64-byte chunks plus a remainder

		var buf bytes.Buffer
		require.NoError(t, Encrypt(&buf, aead, params, plaintext))

		got, err := Decrypt(aead, params, buf.Bytes())
		require.NoError(t, err, "algo %d", algo)
		require.Equal(t, plaintext, got, "algo %d", algo)
	}
}

func TestAEADDetectsTamperedChunk(t *testing.T) {
	aead := newTestAEAD(t, primitive.AEADEAX)
	params := ChunkParams{Version: 1, Cipher: primitive.CipherAES128, AEAD: primitive.AEADEAX, ChunkSizeOctet: 0, IV: make([]byte, aead.NonceSize())}
	plaintext := []byte("short secret message")

	var buf bytes.Buffer
	require.NoError(t, Encrypt(&buf, aead, params, plaintext))

	tampered := buf.Bytes()
	tampered[0] ^= 0x01
	_, err := Decrypt(aead, params, tampered)
	require.Error(t, err)
}

func TestAEADEmptyPlaintext(t *testing.T) {
	aead := newTestAEAD(t, primitive.AEADEAX)
	params := ChunkParams{Version: 1, Cipher: primitive.CipherAES128, AEAD: primitive.AEADEAX, ChunkSizeOctet: 0, IV: make([]byte, aead.NonceSize())}

	var buf bytes.Buffer
	require.NoError(t, Encrypt(&buf, aead, params, nil))
	got, err := Decrypt(aead, params, buf.Bytes())
	require.NoError(t, err)
	require.Empty(t, got)
}
