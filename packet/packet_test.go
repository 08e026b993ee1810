package packet

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openpgp-core/pgpcore/stream"
)

func TestWriteReadHeaderRoundTrip(t *testing.T) {
	lengths := []int{0, 1, 191, 192, 193, 8383, 8384, 70000}
	for _, n := range lengths {
		hdr := WriteHeader(TagLiteral, n)
		src := stream.NewSource(bytes.NewReader(hdr))
		got, err := ReadHeader(src)
		require.NoError(t, err, "length %d", n)
		require.Equal(t, TagLiteral, got.Tag)
		require.Equal(t, int64(n), got.Length, "length %d", n)
		require.True(t, got.NewFormat)
		require.False(t, got.Partial)
	}
}

func TestReadHeaderOldFormat(t *testing.T) {
	// Old-format tag 6 (public key), 1-byte length of 10: 0x98, 0x0a.
	src := stream.NewSource(bytes.NewReader([]byte{0x98, 0x0a}))
	hdr, err := ReadHeader(src)
	require.NoError(t, err)
	require.Equal(t, TagPublicKey, hdr.Tag)
	require.Equal(t, int64(10), hdr.Length)
	require.False(t, hdr.NewFormat)
}

func TestReadHeaderOldFormatIndeterminate(t *testing.T) {
	src := stream.NewSource(bytes.NewReader([]byte{0x9b}))
	hdr, err := ReadHeader(src)
	require.NoError(t, err)
	require.True(t, hdr.Indeterminate)
	require.Equal(t, int64(-1), hdr.Length)
}

func TestReadHeaderRejectsPartialOnDisallowedTag(t *testing.T) {
	// New-format tag 6 (public key, not in partialLengthAllowed) with a
	// partial-length first octet (0xe0 -> 1<<0 = 1 byte chunk).
	hdr := []byte{0xc0 | byte(TagPublicKey), 0xe0}
	src := stream.NewSource(bytes.NewReader(hdr))
	_, err := ReadHeader(src)
	require.Error(t, err)
}

func TestReadHeaderRejectsMissingMSB(t *testing.T) {
	src := stream.NewSource(bytes.NewReader([]byte{0x00}))
	_, err := ReadHeader(src)
	require.Error(t, err)
}

func TestReadHeaderRejectsPartialBelowMinimum(t *testing.T) {
	// Partial length encoding 1<<8 = 256 bytes, below the 512 minimum for
	// a Literal packet's first chunk.
	hdr := []byte{0xc0 | byte(TagLiteral), 0xe8}
	src := stream.NewSource(bytes.NewReader(hdr))
	_, err := ReadHeader(src)
	require.Error(t, err)
}
