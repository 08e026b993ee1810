// Package pipeline implements the message-processing stack: a pull
// chain of Sources for decrypt/verify (armor -> encrypted -> compressed
// -> one-pass-signed -> literal), per spec.md section 4.10. Encrypt and
// Sign build their output in memory as byte slices; they do not write
// through a chain of stream.Sink values.
package pipeline

import (
	"bytes"
	"compress/bzip2"
	"compress/flate"
	"compress/zlib"
	"io"

	"github.com/pkg/errors"

	"github.com/openpgp-core/pgpcore/integrity"
	"github.com/openpgp-core/pgpcore/key"
	"github.com/openpgp-core/pgpcore/keyring"
	"github.com/openpgp-core/pgpcore/packet"
	"github.com/openpgp-core/pgpcore/primitive"
	"github.com/openpgp-core/pgpcore/provider"
	"github.com/openpgp-core/pgpcore/s2k"
	"github.com/openpgp-core/pgpcore/stream"
)

// DecryptResult carries everything a caller needs after unwinding a
// message: the literal data's plaintext content, its metadata, and the
// verification outcome for any signature layer encountered.
type DecryptResult struct {
	Literal  packet.LiteralHeader
	Content  []byte
	SignedBy []key.KeyID
	Verified bool
}

// Unwind decodes an OpenPGP message: a sequence of Compressed/Encrypted/
// One-Pass-Signed/Literal packets, in the nesting order the format
// allows, returning the recovered literal content. keyring resolves
// PKESK recipients and signature verification keys; passwords resolves
// SKESK/secret-key passphrases.
func Unwind(suite primitive.Suite, src stream.Source, keys *keyring.Keyring, passwords provider.PasswordProvider) (*DecryptResult, error) {
	var pending []*packet.Packet
	var skesks []*packet.SKESK
	var pkesks []*packet.PKESK
	var ops []*packet.OnePassSignature
	var sigs []*packet.Signature

	for {
		pkt, err := packet.ReadPacket(src)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if err := packet.Decode(pkt); err != nil {
			return nil, err
		}
		switch pkt.Header.Tag {
		case packet.TagSKESK:
			skesks = append(skesks, pkt.Body.(*packet.SKESK))
		case packet.TagPKESK:
			pkesks = append(pkesks, pkt.Body.(*packet.PKESK))
		case packet.TagSymEncData, packet.TagSymEncIntegrityProtected, packet.TagAEADEncryptedData:
			return unwindEncrypted(suite, pkt, skesks, pkesks, keys, passwords)
		case packet.TagCompressed:
			inner, err := decompress(pkt)
			if err != nil {
				return nil, err
			}
			return Unwind(suite, stream.NewSource(bytes.NewReader(inner)), keys, passwords)
		case packet.TagOnePassSignature:
			ops = append(ops, pkt.Body.(*packet.OnePassSignature))
		case packet.TagLiteral:
			hdr, n, err := packet.ParseLiteralHeader(pkt.Raw)
			if err != nil {
				return nil, err
			}
			content := pkt.Raw[n:]
			result := &DecryptResult{Literal: hdr, Content: content}
			if len(ops) > 0 {
				trailingSigs, err := collectTrailingSignatures(src)
				if err != nil {
					return nil, err
				}
				sigs = append(sigs, trailingSigs...)
				verified, signers := verifyOnePass(suite, ops, sigs, content, keys)
				result.Verified = verified
				result.SignedBy = signers
			}
			return result, nil
		case packet.TagSignature:
			sigs = append(sigs, pkt.Body.(*packet.Signature))
		case packet.TagMarker:
			// ignore
		default:
			pending = append(pending, pkt)
		}
	}
	return nil, errors.New("pipeline: message ended with no literal data")
}

func collectTrailingSignatures(src stream.Source) ([]*packet.Signature, error) {
	var sigs []*packet.Signature
	for {
		pkt, err := packet.ReadPacket(src)
		if err == io.EOF {
			return sigs, nil
		}
		if err != nil {
			return nil, err
		}
		if pkt.Header.Tag != packet.TagSignature {
			continue
		}
		sig, err := packet.ParseSignatureBody(pkt.Raw)
		if err != nil {
			return nil, err
		}
		sigs = append(sigs, sig)
	}
}

func decompress(pkt *packet.Packet) ([]byte, error) {
	hdr, n, err := packet.ParseCompressedHeader(pkt.Raw)
	if err != nil {
		return nil, err
	}
	body := pkt.Raw[n:]
	switch hdr.Algo {
	case primitive.CompressNone:
		return body, nil
	case primitive.CompressZIP:
		r := flate.NewReader(bytes.NewReader(body))
		defer r.Close()
		return io.ReadAll(r)
	case primitive.CompressZLIB:
		r, err := zlib.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case primitive.CompressBZIP2:
		return io.ReadAll(bzip2.NewReader(bytes.NewReader(body)))
	default:
		return nil, errors.Errorf("pipeline: unsupported compression algorithm %d", hdr.Algo)
	}
}

func unwindEncrypted(suite primitive.Suite, pkt *packet.Packet, skesks []*packet.SKESK, pkesks []*packet.PKESK, keys *keyring.Keyring, passwords provider.PasswordProvider) (*DecryptResult, error) {
	sessionKey, cipherAlgo, aeadAlgo, err := resolveSessionKey(suite, skesks, pkesks, keys, passwords)
	if err != nil {
		return nil, err
	}

	var plaintext []byte
	switch pkt.Header.Tag {
	case packet.TagSymEncData, packet.TagSymEncIntegrityProtected:
		cipher, err := suite.NewCipher(cipherAlgo)
		if err != nil {
			return nil, err
		}
		iv := make([]byte, cipher.BlockSize())
		body := pkt.Raw
		if pkt.Header.Tag == packet.TagSymEncIntegrityProtected {
			if len(body) < 1 || body[0] != 1 {
				return nil, errors.New("pipeline: unsupported seip version")
			}
			body = body[1:]
		}
		stream, err := cipher.NewCFBDecrypter(sessionKey, iv)
		if err != nil {
			return nil, err
		}
		decrypted := make([]byte, len(body))
		stream.XORKeyStream(decrypted, body)
		// The first blockSize+2 bytes are the quick-check prefix
		// (random block plus two repeated bytes); skip past it.
		prefixLen := cipher.BlockSize() + 2
		if len(decrypted) < prefixLen {
			return nil, errors.New("pipeline: encrypted data too short")
		}
		rest := decrypted[prefixLen:]
		if pkt.Header.Tag == packet.TagSymEncIntegrityProtected {
			rest, err = integrity.VerifyMDC(suite, rest)
			if err != nil {
				return nil, err
			}
		}
		plaintext = rest

	case packet.TagAEADEncryptedData:
		if len(pkt.Raw) < 4 {
			return nil, errors.New("pipeline: aead packet too short")
		}
		params := integrity.ChunkParams{
			Version:        pkt.Raw[0],
			Cipher:         cipherAlgo,
			AEAD:           aeadAlgo,
			ChunkSizeOctet: pkt.Raw[3],
		}
		ivLen := aeadNonceLen(aeadAlgo)
		if len(pkt.Raw) < 4+ivLen {
			return nil, errors.New("pipeline: aead packet missing iv")
		}
		params.IV = pkt.Raw[4 : 4+ivLen]
		aead, err := suite.NewAEAD(aeadAlgo, cipherAlgo, sessionKey)
		if err != nil {
			return nil, err
		}
		plaintext, err = integrity.Decrypt(aead, params, pkt.Raw[4+ivLen:])
		if err != nil {
			return nil, err
		}

	default:
		return nil, errors.Errorf("pipeline: unexpected encrypted packet tag %d", pkt.Header.Tag)
	}

	return Unwind(suite, stream.NewSource(bytes.NewReader(plaintext)), keys, nil)
}

func aeadNonceLen(alg primitive.AEADAlgo) int {
	switch alg {
	case primitive.AEADEAX:
		return 16
	case primitive.AEADOCB:
		return 15
	default:
		return 16
	}
}

func resolveSessionKey(suite primitive.Suite, skesks []*packet.SKESK, pkesks []*packet.PKESK, keys *keyring.Keyring, passwords provider.PasswordProvider) ([]byte, primitive.CipherAlgo, primitive.AEADAlgo, error) {
	for _, pk := range pkesks {
		if keys == nil {
			continue
		}
		k, ok := keys.ByKeyID(pk.KeyID)
		if !ok {
			continue
		}
		for _, cand := range append([]*key.Subkey{{Public: k.Public, Secret: k.Secret, KeyID: k.KeyID}}, k.Subkeys...) {
			if cand.Secret == nil || cand.Secret.Locked() {
				continue
			}
			plain, err := suite.Decrypt(pk.Algo, cand.Secret.Secret, pk.EncryptedData)
			if err != nil {
				continue
			}
			algo, sk, err := packet.DecodeSessionKeyPlaintext(plain)
			if err != nil {
				continue
			}
			return sk, algo, 0, nil
		}
	}

	if passwords != nil {
		for _, sk := range skesks {
			pass, err := passwords.GetPassword(key.KeyID{}, "symmetric-key session key", 0)
			if err != nil {
				continue
			}
			keyLen := cipherKeyLenFor(sk.Cipher)
			derived, err := s2k.Derive(suite, sk.S2K, pass, keyLen)
			if err != nil {
				continue
			}
			if len(sk.EncryptedKey) == 0 {
				return derived, sk.Cipher, sk.AEAD, nil
			}
			if sk.Version == 5 {
				aead, err := suite.NewAEAD(sk.AEAD, sk.Cipher, derived)
				if err != nil {
					continue
				}
				plain, err := aead.Open(nil, sk.IV, sk.EncryptedKey, []byte{0xc3, 5, byte(sk.Cipher), byte(sk.AEAD)})
				if err != nil {
					continue
				}
				return plain, sk.Cipher, sk.AEAD, nil
			}
			cipher, err := suite.NewCipher(sk.Cipher)
			if err != nil {
				continue
			}
			cfb, err := cipher.NewCFBDecrypter(derived, make([]byte, cipher.BlockSize()))
			if err != nil {
				continue
			}
			plain := make([]byte, len(sk.EncryptedKey))
			cfb.XORKeyStream(plain, sk.EncryptedKey)
			algo, sessionKey, err := packet.DecodeSessionKeyPlaintext(append([]byte{byte(sk.Cipher)}, plain...))
			if err != nil {
				continue
			}
			return sessionKey, algo, 0, nil
		}
	}

	return nil, 0, 0, errors.New("pipeline: no session key resolved")
}

func cipherKeyLenFor(alg primitive.CipherAlgo) int {
	switch alg {
	case primitive.CipherAES128, primitive.CipherCamellia128, primitive.CipherCAST5, primitive.CipherBlowfish:
		return 16
	case primitive.CipherAES192, primitive.CipherCamellia192, primitive.Cipher3DES:
		return 24
	case primitive.CipherAES256, primitive.CipherCamellia256, primitive.CipherTwofish:
		return 32
	default:
		return 16
	}
}

func verifyOnePass(suite primitive.Suite, ops []*packet.OnePassSignature, sigs []*packet.Signature, content []byte, keys *keyring.Keyring) (bool, []key.KeyID) {
	var signers []key.KeyID
	allOK := len(ops) > 0 && len(sigs) > 0
	for i, op := range ops {
		var sig *packet.Signature
		// One-pass signatures are emitted in the order they'll be
		// verified against the trailing signature packets, which
		// appear in reverse (the innermost one-pass corresponds to
		// the last trailing signature).
		idx := len(ops) - 1 - i
		if idx < 0 || idx >= len(sigs) {
			allOK = false
			continue
		}
		sig = sigs[idx]
		signers = append(signers, op.IssuerKeyID)
		if keys == nil {
			allOK = false
			continue
		}
		k, ok := keys.ByKeyID(op.IssuerKeyID)
		if !ok {
			allOK = false
			continue
		}
		algo, material, ok := ResolveSignerKey(k, op.IssuerKeyID)
		if !ok {
			allOK = false
			continue
		}
		ok2, err := verifyContentSignature(suite, algo, material, sig, content)
		if err != nil || !ok2 {
			allOK = false
		}
	}
	return allOK, signers
}

// ResolveSignerKey finds the public key material belonging to id within
// k, whether id names k's own primary key or one of its subkeys: keyring
// lookups are indexed by key ID but return the owning primary *key.Key,
// so signature verification needs this extra step whenever a message
// was signed with a signing subkey rather than the primary.
func ResolveSignerKey(k *key.Key, id key.KeyID) (primitive.PubKeyAlgo, primitive.KeyMaterial, bool) {
	if k.KeyID == id {
		return k.Public.Algo, k.Public.Material, true
	}
	for _, sub := range k.Subkeys {
		if sub.KeyID == id {
			return sub.Public.Algo, sub.Public.Material, true
		}
	}
	return 0, nil, false
}

// VerifyDetached checks sig against content, resolving the signer's
// primary or signing-subkey material from keys by sig.IssuerKeyID. This
// is the entry point for detached and cleartext signatures, which never
// pass through Unwind's packet-sequence decoding.
func VerifyDetached(suite primitive.Suite, keys *keyring.Keyring, sig *packet.Signature, content []byte) (bool, error) {
	if keys == nil {
		return false, errors.New("pipeline: no keyring to resolve signer")
	}
	k, ok := keys.ByKeyID(sig.IssuerKeyID)
	if !ok {
		return false, errors.New("pipeline: signer key not found")
	}
	algo, material, ok := ResolveSignerKey(k, sig.IssuerKeyID)
	if !ok {
		return false, errors.New("pipeline: signer key not found")
	}
	return verifyContentSignature(suite, algo, material, sig, content)
}

func verifyContentSignature(suite primitive.Suite, algo primitive.PubKeyAlgo, material primitive.KeyMaterial, sig *packet.Signature, content []byte) (bool, error) {
	h, err := suite.NewHash(sig.HashAlgo)
	if err != nil {
		return false, err
	}
	h.Write(content)
	h.Write(sig.HashTrailer())
	digest := h.Sum()
	sigMPIs, err := sig.SigMPIBigInts()
	if err != nil {
		return false, err
	}
	return suite.Verify(algo, material, sig.HashAlgo, digest, packet.SigMPIsFromBigInts(sigMPIs...))
}
