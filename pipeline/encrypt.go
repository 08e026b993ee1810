package pipeline

import (
	"bytes"

	"github.com/openpgp-core/pgpcore/integrity"
	"github.com/openpgp-core/pgpcore/key"
	"github.com/openpgp-core/pgpcore/packet"
	"github.com/openpgp-core/pgpcore/primitive"
	"github.com/openpgp-core/pgpcore/s2k"
)

// EncryptParams configures a single encrypt operation: the recipients
// (each wrapping the session key in their own PKESK), an optional
// passphrase recipient (SKESK), and the symmetric/AEAD algorithms used
// for the bulk data.
type EncryptParams struct {
	Recipients []*key.Key
	Passphrase []byte // empty means no SKESK recipient
	Cipher     primitive.CipherAlgo
	UseAEAD    bool
	AEAD       primitive.AEADAlgo
	Compress   primitive.CompressAlgo
}

// Encrypt wraps literalData (a fully-built Literal Data packet's bytes,
// optionally itself the output of Sign for a sign-then-encrypt message)
// in Compressed (if requested) and Encrypted packets, returning the
// serialized message.
func Encrypt(suite primitive.Suite, p EncryptParams, literalData []byte) ([]byte, error) {
	payload := literalData
	if p.Compress != primitive.CompressNone {
		compressed, err := compressPayload(p.Compress, payload)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		hdr := packet.CompressedHeader{Algo: p.Compress}
		body := append(hdr.Encode(), compressed...)
		buf.Write(packet.WriteHeader(packet.TagCompressed, len(body)))
		buf.Write(body)
		payload = buf.Bytes()
	}

	sessionKey := make([]byte, cipherKeyLenFor(p.Cipher))
	if err := suite.Fill(sessionKey); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	for _, recipient := range p.Recipients {
		pkesk, err := buildPKESK(suite, recipient, p.Cipher, sessionKey)
		if err != nil {
			return nil, err
		}
		body := pkesk.Encode()
		out.Write(packet.WriteHeader(packet.TagPKESK, len(body)))
		out.Write(body)
	}
	if len(p.Passphrase) > 0 {
		skesk, err := buildSKESK(suite, p.Cipher, p.Passphrase, sessionKey)
		if err != nil {
			return nil, err
		}
		body := skesk.Encode()
		out.Write(packet.WriteHeader(packet.TagSKESK, len(body)))
		out.Write(body)
	}

	encBody, tag, err := encryptPayload(suite, p, sessionKey, payload)
	if err != nil {
		return nil, err
	}
	out.Write(packet.WriteHeader(tag, len(encBody)))
	out.Write(encBody)
	return out.Bytes(), nil
}

func buildPKESK(suite primitive.Suite, recipient *key.Key, cipherAlgo primitive.CipherAlgo, sessionKey []byte) (*packet.PKESK, error) {
	plaintext := packet.EncodeSessionKeyPlaintext(cipherAlgo, sessionKey)
	material, err := suite.Encrypt(recipient.Public.Algo, recipient.Public.Material, plaintext)
	if err != nil {
		return nil, err
	}
	return &packet.PKESK{Version: 3, KeyID: recipient.KeyID, Algo: recipient.Public.Algo, EncryptedData: material}, nil
}

func buildSKESK(suite primitive.Suite, cipherAlgo primitive.CipherAlgo, passphrase, sessionKey []byte) (*packet.SKESK, error) {
	salt := make([]byte, 8)
	if err := suite.Fill(salt); err != nil {
		return nil, err
	}
	params := s2k.Params{Mode: s2k.ModeIteratedSalted, Hash: primitive.HashSHA256, Salt: salt, Count: 65536}
	derived, err := s2k.Derive(suite, params, passphrase, len(sessionKey))
	if err != nil {
		return nil, err
	}
	cipher, err := suite.NewCipher(cipherAlgo)
	if err != nil {
		return nil, err
	}
	cfb, err := cipher.NewCFBEncrypter(derived, make([]byte, cipher.BlockSize()))
	if err != nil {
		return nil, err
	}
	plain := packet.EncodeSessionKeyPlaintext(cipherAlgo, sessionKey)[1:]
	wrapped := make([]byte, len(plain))
	cfb.XORKeyStream(wrapped, plain)
	return &packet.SKESK{Version: 4, Cipher: cipherAlgo, S2K: params, EncryptedKey: wrapped}, nil
}

func encryptPayload(suite primitive.Suite, p EncryptParams, sessionKey, payload []byte) ([]byte, packet.Tag, error) {
	if p.UseAEAD {
		aead, err := suite.NewAEAD(p.AEAD, p.Cipher, sessionKey)
		if err != nil {
			return nil, 0, err
		}
		iv := make([]byte, aead.NonceSize())
		if err := suite.Fill(iv); err != nil {
			return nil, 0, err
		}
		var buf bytes.Buffer
		buf.WriteByte(1)
		buf.WriteByte(byte(p.Cipher))
		buf.WriteByte(byte(p.AEAD))
		const chunkSizeOctet = 4 // 1<<(4+6) = 1024-byte chunks
		buf.WriteByte(chunkSizeOctet)
		buf.Write(iv)
		params := integrity.ChunkParams{Version: 1, Cipher: p.Cipher, AEAD: p.AEAD, ChunkSizeOctet: chunkSizeOctet, IV: iv}
		if err := integrity.Encrypt(&buf, aead, params, payload); err != nil {
			return nil, 0, err
		}
		return buf.Bytes(), packet.TagAEADEncryptedData, nil
	}

	cipher, err := suite.NewCipher(p.Cipher)
	if err != nil {
		return nil, 0, err
	}
	blockLen := cipher.BlockSize()
	prefix := make([]byte, blockLen+2)
	if err := suite.Fill(prefix[:blockLen]); err != nil {
		return nil, 0, err
	}
	prefix[blockLen] = prefix[blockLen-2]
	prefix[blockLen+1] = prefix[blockLen-1]

	withPrefix := append(prefix, payload...)
	withMDC, err := integrity.AppendMDC(suite, withPrefix)
	if err != nil {
		return nil, 0, err
	}

	iv := make([]byte, blockLen)
	cfb, err := cipher.NewCFBEncrypter(sessionKey, iv)
	if err != nil {
		return nil, 0, err
	}
	out := make([]byte, len(withMDC))
	cfb.XORKeyStream(out, withMDC)
	return append([]byte{1}, out...), packet.TagSymEncIntegrityProtected, nil
}
