package s2k

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openpgp-core/pgpcore/primitive"
)

func TestCountEncodeDecodeRoundTrip(t *testing.T) {
	for _, want := range []int{1024, 65536, 1 << 20, 1 << 24} {
		c := EncodeCount(want)
		got := DecodeCount(c)
		require.GreaterOrEqual(t, got, want)
	}
}

func TestDecodeCountKnownValues(t *testing.T) {
	// c=0 -> (16+0)<<6 = 1024; c=0xff -> (16+15)<<(15+6) = 31<<21
	require.Equal(t, 1024, DecodeCount(0))
	require.Equal(t, 31<<21, DecodeCount(0xff))
}

func TestDeriveSimpleDeterministic(t *testing.T) {
	suite := primitive.DefaultSuite{}
	p := Params{Mode: ModeSimple, Hash: primitive.HashSHA1}
	a, err := Derive(suite, p, []byte("passphrase"), 16)
	require.NoError(t, err)
	b, err := Derive(suite, p, []byte("passphrase"), 16)
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Len(t, a, 16)
}

func TestDeriveSaltedChangesOutput(t *testing.T) {
	suite := primitive.DefaultSuite{}
	p1 := Params{Mode: ModeSalted, Hash: primitive.HashSHA256, Salt: []byte("01234567")}
	p2 := Params{Mode: ModeSalted, Hash: primitive.HashSHA256, Salt: []byte("76543210")}
	a, err := Derive(suite, p1, []byte("secret"), 32)
	require.NoError(t, err)
	b, err := Derive(suite, p2, []byte("secret"), 32)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestDeriveIteratedSaltedLongerThanOneHash(t *testing.T) {
	suite := primitive.DefaultSuite{}
	p := Params{Mode: ModeIteratedSalted, Hash: primitive.HashSHA1, Salt: []byte("abcdefgh"), Count: DecodeCount(EncodeCount(4096))}
	key, err := Derive(suite, p, []byte("a longer passphrase"), 40)
	require.NoError(t, err)
	require.Len(t, key, 40)
}

func TestDeriveIteratedSaltedRejectsEmptyPassphrase(t *testing.T) {
	suite := primitive.DefaultSuite{}
	p := Params{Mode: ModeIteratedSalted, Hash: primitive.HashSHA1, Count: 1024}
	_, err := Derive(suite, p, nil, 16)
	require.Error(t, err)
}

func TestDeriveUnsupportedMode(t *testing.T) {
	suite := primitive.DefaultSuite{}
	p := Params{Mode: ModeGNUDummy, Hash: primitive.HashSHA1}
	_, err := Derive(suite, p, []byte("x"), 16)
	require.Error(t, err)
}
