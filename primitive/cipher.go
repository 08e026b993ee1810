package primitive

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"

	"github.com/pkg/errors"
	"golang.org/x/crypto/blowfish"
	"golang.org/x/crypto/cast5"
	"golang.org/x/crypto/twofish"
)

type blockCipher struct {
	newBlock func(key []byte) (cipher.Block, error)
	keySize  int
	blockLen int
}

func blockCipherFor(alg CipherAlgo) (blockCipher, error) {
	switch alg {
	case Cipher3DES:
		return blockCipher{func(k []byte) (cipher.Block, error) { return des.NewTripleDESCipher(k) }, 24, des.BlockSize}, nil
	case CipherCAST5:
		return blockCipher{func(k []byte) (cipher.Block, error) { return cast5.NewCipher(k) }, cast5.KeySize, 8}, nil
	case CipherBlowfish:
		return blockCipher{func(k []byte) (cipher.Block, error) { return blowfish.NewCipher(k) }, 16, 8}, nil
	case CipherAES128:
		return blockCipher{aes.NewCipher, 16, aes.BlockSize}, nil
	case CipherAES192:
		return blockCipher{aes.NewCipher, 24, aes.BlockSize}, nil
	case CipherAES256:
		return blockCipher{aes.NewCipher, 32, aes.BlockSize}, nil
	case CipherTwofish:
		return blockCipher{twofish.NewCipher, 32, twofish.BlockSize}, nil
	default:
		return blockCipher{}, errors.Errorf("primitive: unsupported cipher algorithm %d", alg)
	}
}

type stdCipher struct {
	bc blockCipher
}

func (c stdCipher) BlockSize() int { return c.bc.blockLen }
func (c stdCipher) KeySize() int   { return c.bc.keySize }

func (c stdCipher) NewCFBEncrypter(key, iv []byte) (CFBStream, error) {
	block, err := c.bc.newBlock(key)
	if err != nil {
		return nil, errors.Wrap(err, "primitive: cfb encrypter")
	}
	return cipher.NewCFBEncrypter(block, iv), nil
}

func (c stdCipher) NewCFBDecrypter(key, iv []byte) (CFBStream, error) {
	block, err := c.bc.newBlock(key)
	if err != nil {
		return nil, errors.Wrap(err, "primitive: cfb decrypter")
	}
	return cipher.NewCFBDecrypter(block, iv), nil
}

// NewCipher implements CipherFactory for DefaultSuite.
func (DefaultSuite) NewCipher(alg CipherAlgo) (Cipher, error) {
	bc, err := blockCipherFor(alg)
	if err != nil {
		return nil, err
	}
	return stdCipher{bc: bc}, nil
}

// blockOf exposes the raw cipher.Block behind a CipherAlgo, used by the
// AEAD constructions in aead.go which need the block primitive itself
// rather than a CFB stream.
func blockOf(alg CipherAlgo, key []byte) (cipher.Block, error) {
	bc, err := blockCipherFor(alg)
	if err != nil {
		return nil, err
	}
	return bc.newBlock(key)
}
