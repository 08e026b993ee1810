package provider

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openpgp-core/pgpcore/key"
)

func TestStaticPasswordAlwaysReturnsSamePassphrase(t *testing.T) {
	p := StaticPassword("correct horse battery staple")

	got, err := p.GetPassword(key.KeyID{}, "unlock 0xDEADBEEF", 0)
	require.NoError(t, err)
	require.Equal(t, []byte("correct horse battery staple"), got)

	got2, err := p.GetPassword(key.KeyID{1, 2, 3}, "retry", 3)
	require.NoError(t, err)
	require.Equal(t, got, got2)
}
