package armor

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeCleartextRoundTrip(t *testing.T) {
	message := []byte("line one\n-dash leading line\nlast line")
	sigBlock := []byte("-----BEGIN PGP SIGNATURE-----\n\nZm9v\n=abcd\n-----END PGP SIGNATURE-----\n")

	var buf bytes.Buffer
	require.NoError(t, EncodeCleartext(&buf, "SHA256", message, sigBlock))

	hashName, got, gotSig, err := DecodeCleartext(&buf)
	require.NoError(t, err)
	require.Equal(t, "SHA256", hashName)
	require.Equal(t, string(message)+"\n", string(got))
	require.Equal(t, sigBlock, gotSig)
}

func TestDecodeCleartextUnescapesDashes(t *testing.T) {
	raw := "-----BEGIN PGP SIGNED MESSAGE-----\n" +
		"Hash: SHA256\n\n" +
		"- -----BEGIN PGP MESSAGE-----\n" +
		"plain line\n" +
		"-----BEGIN PGP SIGNATURE-----\nbody\n-----END PGP SIGNATURE-----\n"

	_, message, sigBlock, err := DecodeCleartext(bytes.NewReader([]byte(raw)))
	require.NoError(t, err)
	require.Equal(t, "-----BEGIN PGP MESSAGE-----\nplain line\n", string(message))
	require.True(t, bytes.HasPrefix(sigBlock, []byte("-----BEGIN PGP SIGNATURE-----\n")))
}

func TestDecodeCleartextRejectsMissingBeginLine(t *testing.T) {
	_, _, _, err := DecodeCleartext(bytes.NewReader([]byte("not a cleartext message\n")))
	require.Error(t, err)
}

func TestCanonicalizeForHashTrimsTrailingWhitespaceAndUsesCRLF(t *testing.T) {
	got := CanonicalizeForHash([]byte("one  \nthe two\t\nthree"))
	require.Equal(t, "one\r\nthe two\r\nthree", string(got))
}
