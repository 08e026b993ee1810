package primitive

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestAES128CFBKnownVector checks a fixed key/IV/plaintext triple against
// a precomputed ciphertext: key = 16 zero bytes, IV = sixteen 0x42 bytes,
// plaintext = 20 zero bytes, matching OpenPGP's CFB-with-explicit-IV
// construction (no quick-check prefix involved at this layer).
func TestAES128CFBKnownVector(t *testing.T) {
	suite := DefaultSuite{}
	cipher, err := suite.NewCipher(CipherAES128)
	require.NoError(t, err)

	key := make([]byte, 16)
	iv := make([]byte, 16)
	for i := range iv {
		iv[i] = 0x42
	}
	plaintext := make([]byte, 20)

	want, err := hex.DecodeString("bfdaa57cb812189713a950ad9947887983021617")
	require.NoError(t, err)

	enc, err := cipher.NewCFBEncrypter(key, iv)
	require.NoError(t, err)
	ciphertext := make([]byte, len(plaintext))
	enc.XORKeyStream(ciphertext, plaintext)
	require.Equal(t, want, ciphertext)

	dec, err := cipher.NewCFBDecrypter(key, iv)
	require.NoError(t, err)
	recovered := make([]byte, len(ciphertext))
	dec.XORKeyStream(recovered, ciphertext)
	require.Equal(t, plaintext, recovered)
}

func TestCipherRoundTripAllAlgos(t *testing.T) {
	suite := DefaultSuite{}
	algos := []CipherAlgo{CipherAES128, CipherAES192, CipherAES256, CipherCAST5, CipherBlowfish, CipherTwofish, Cipher3DES}
	for _, algo := range algos {
		cipher, err := suite.NewCipher(algo)
		require.NoError(t, err, "algo %d", algo)

		key := make([]byte, cipher.KeySize())
		require.NoError(t, suite.Fill(key))
		iv := make([]byte, cipher.BlockSize())
		require.NoError(t, suite.Fill(iv))
		plaintext := []byte("round trip through CFB mode, multiple blocks long")

		enc, err := cipher.NewCFBEncrypter(key, iv)
		require.NoError(t, err)
		ciphertext := make([]byte, len(plaintext))
		enc.XORKeyStream(ciphertext, plaintext)

		dec, err := cipher.NewCFBDecrypter(key, iv)
		require.NoError(t, err)
		recovered := make([]byte, len(ciphertext))
		dec.XORKeyStream(recovered, ciphertext)
		require.Equal(t, plaintext, recovered, "algo %d", algo)
	}
}

func TestNewCipherRejectsCamellia(t *testing.T) {
	suite := DefaultSuite{}
	_, err := suite.NewCipher(CipherCamellia128)
	require.Error(t, err)
}
