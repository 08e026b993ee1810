package mpi

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []int64{0, 1, 2, 255, 256, 65535, 1 << 20}
	for _, c := range cases {
		n := big.NewInt(c)
		enc := Encode(n)
		got, err := Decode(bytes.NewReader(enc))
		require.NoError(t, err)
		require.Zero(t, n.Cmp(got), "round trip mismatch for %d", c)
	}
}

func TestEncodeBitCountExcludesLeadingZero(t *testing.T) {
	// 0xff is 8 bits, not 9: the encoded bit count must match exactly so
	// a reader's high-bit sanity check (Decode's topBits mask) succeeds.
	enc := Encode(big.NewInt(0xff))
	require.Equal(t, []byte{0, 8, 0xff}, enc)
}

func TestEncodeZero(t *testing.T) {
	require.Equal(t, []byte{0, 0}, Encode(new(big.Int)))
}

func TestDecodeRejectsOverflow(t *testing.T) {
	hdr := []byte{0xff, 0xff}
	_, err := Decode(bytes.NewReader(hdr))
	require.ErrorIs(t, err, ErrOverflow)
}

func TestDecodeRejectsMalformedBitCount(t *testing.T) {
	// Declares 16 bits but the first byte's high bit is unset.
	buf := []byte{0, 16, 0x00, 0x01}
	_, err := Decode(bytes.NewReader(buf))
	require.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeRejectsTruncated(t *testing.T) {
	buf := []byte{0, 16, 0xff}
	_, err := Decode(bytes.NewReader(buf))
	require.ErrorIs(t, err, ErrTruncated)
}

func TestEncodeBytesMatchesEncode(t *testing.T) {
	raw := []byte{0x00, 0x00, 0x01, 0x23}
	n := new(big.Int).SetBytes(raw)
	require.Equal(t, Encode(n), EncodeBytes(raw))
}

func TestDecodeBytesPadsToExpectedWidth(t *testing.T) {
	n := big.NewInt(0x7f)
	enc := Encode(n)
	value, rest := DecodeBytes(enc, 4)
	require.Equal(t, []byte{0x00, 0x00, 0x00, 0x7f}, value)
	require.Empty(t, rest)
}

func TestDecodeBytesReturnsRemainder(t *testing.T) {
	enc := Encode(big.NewInt(42))
	trailer := []byte{0xaa, 0xbb}
	value, rest := DecodeBytes(append(append([]byte{}, enc...), trailer...), 0)
	require.Equal(t, []byte{42}, value)
	require.Equal(t, trailer, rest)
}
