package pgp

import (
	"bytes"
	"time"

	"github.com/pkg/errors"

	"github.com/openpgp-core/pgpcore/armor"
	"github.com/openpgp-core/pgpcore/key"
	"github.com/openpgp-core/pgpcore/packet"
	"github.com/openpgp-core/pgpcore/pipeline"
	"github.com/openpgp-core/pgpcore/primitive"
)

// EncryptOptions controls Encrypt's behavior.
type EncryptOptions struct {
	Recipients []*key.Key
	Passphrase []byte
	Cipher     primitive.CipherAlgo
	UseAEAD    bool
	AEAD       primitive.AEADAlgo
	Compress   primitive.CompressAlgo
	Armor      bool
	Filename   string
	ModTime    time.Time

	// Sign, if non-nil, produces a sign-then-encrypt message.
	Sign *SignOptions
}

// SignOptions configures the embedded signature for a sign-then-encrypt
// operation, or a standalone Sign call.
type SignOptions struct {
	Signer   *key.Key
	HashAlgo primitive.HashAlgo
	Cleartext bool
}

// Encrypt produces an OpenPGP message for content: optionally signed,
// optionally compressed, always encrypted to at least one recipient or
// passphrase.
func (ctx *Context) Encrypt(content []byte, opts EncryptOptions) ([]byte, error) {
	if len(opts.Recipients) == 0 && len(opts.Passphrase) == 0 {
		return nil, outcome(ResultNoSuitableKey, nil)
	}
	if opts.Cipher == 0 {
		opts.Cipher = primitive.CipherAES256
	}

	var literalData []byte
	if opts.Sign != nil {
		sigResult, err := pipeline.Sign(ctx.Suite, pipeline.SignParams{
			Signer:   opts.Sign.Signer,
			HashAlgo: opts.Sign.HashAlgo,
			Created:  time.Now(),
			Literal:  packet.LiteralHeader{Format: packet.LiteralBinary, FileName: opts.Filename, ModTime: opts.ModTime.Unix()},
		}, content)
		if err != nil {
			return nil, outcome(ResultError, err)
		}
		literalData = sigResult
	} else {
		hdr := packet.LiteralHeader{Format: packet.LiteralBinary, FileName: opts.Filename, ModTime: opts.ModTime.Unix()}
		var buf bytes.Buffer
		body := append(hdr.Encode(), content...)
		buf.Write(packet.WriteHeader(packet.TagLiteral, len(body)))
		buf.Write(body)
		literalData = buf.Bytes()
	}

	message, err := pipeline.Encrypt(ctx.Suite, pipeline.EncryptParams{
		Recipients: opts.Recipients,
		Passphrase: opts.Passphrase,
		Cipher:     opts.Cipher,
		UseAEAD:    opts.UseAEAD,
		AEAD:       opts.AEAD,
		Compress:   opts.Compress,
	}, literalData)
	if err != nil {
		return nil, outcome(ResultError, err)
	}

	if !opts.Armor {
		return message, nil
	}
	var out bytes.Buffer
	if err := armor.Encode(&out, armor.BlockMessage, nil, message); err != nil {
		return nil, outcome(ResultError, err)
	}
	return out.Bytes(), nil
}

// Sign produces a standalone One-Pass-Signature + Literal + Signature
// message (no encryption layer), optionally armored, or, when
// opts.Cleartext is set, an RFC 4880 section 7 cleartext-signed message
// (always textual, always carrying its signature as an armored block).
func (ctx *Context) Sign(content []byte, opts SignOptions, armored bool, filename string) ([]byte, error) {
	if opts.Cleartext {
		return ctx.signCleartext(content, opts)
	}

	message, err := pipeline.Sign(ctx.Suite, pipeline.SignParams{
		Signer:   opts.Signer,
		HashAlgo: opts.HashAlgo,
		Created:  time.Now(),
		Literal:  packet.LiteralHeader{Format: packet.LiteralBinary, FileName: filename},
	}, content)
	if err != nil {
		return nil, outcome(ResultError, err)
	}
	if !armored {
		return message, nil
	}
	var out bytes.Buffer
	if err := armor.Encode(&out, armor.BlockMessage, nil, message); err != nil {
		return nil, outcome(ResultError, err)
	}
	return out.Bytes(), nil
}

// signCleartext builds the dash-escaped, canonicalized body and
// armored detached signature an RFC 4880 section 7 message needs.
func (ctx *Context) signCleartext(content []byte, opts SignOptions) ([]byte, error) {
	canonical := armor.CanonicalizeForHash(content)
	sig, err := pipeline.SignDetached(ctx.Suite, pipeline.SignParams{
		Signer:   opts.Signer,
		HashAlgo: opts.HashAlgo,
		SigType:  packet.SigTypeText,
		Created:  time.Now(),
	}, canonical)
	if err != nil {
		return nil, outcome(ResultError, err)
	}

	sigBody := sig.Encode()
	var sigPacket bytes.Buffer
	sigPacket.Write(packet.WriteHeader(packet.TagSignature, len(sigBody)))
	sigPacket.Write(sigBody)

	var sigArmor bytes.Buffer
	if err := armor.Encode(&sigArmor, armor.BlockSignature, nil, sigPacket.Bytes()); err != nil {
		return nil, outcome(ResultError, err)
	}

	var out bytes.Buffer
	if err := armor.EncodeCleartext(&out, opts.HashAlgo.String(), content, sigArmor.Bytes()); err != nil {
		return nil, outcome(ResultError, err)
	}
	return out.Bytes(), nil
}

// Verify checks a cleartext-signed message, a detached signature, or an
// inline One-Pass-Signature message, depending on what data and
// opts.Detached carry. An inline message runs through Decrypt's
// pipeline; the other two verify directly against the supplied content
// without expecting an encryption or compression layer.
func (ctx *Context) Verify(data []byte, opts DecryptOptions) (*EncryptedContent, error) {
	if looksCleartext(data) {
		return ctx.verifyCleartext(data)
	}
	if len(opts.Detached) > 0 {
		return ctx.verifyDetached(data, opts.Detached)
	}

	content, err := ctx.Decrypt(data, opts)
	if err != nil {
		return nil, err
	}
	if !content.Verified {
		ctx.logf("verify: no valid signature found")
		return content, outcome(ResultSignatureInvalid, nil)
	}
	return content, nil
}

func looksCleartext(data []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("-----BEGIN PGP SIGNED MESSAGE-----"))
}

// verifyCleartext implements RFC 4880 section 7: dash-unescape and
// canonicalize the message body, then verify the trailing armored
// signature block against the canonical form.
func (ctx *Context) verifyCleartext(data []byte) (*EncryptedContent, error) {
	_, message, sigBlock, err := armor.DecodeCleartext(bytes.NewReader(data))
	if err != nil {
		return nil, outcome(ResultBadFormat, err)
	}
	sig, err := parseSignaturePacket(sigBlock)
	if err != nil {
		return nil, outcome(ResultBadFormat, err)
	}
	message = bytes.TrimSuffix(message, []byte("\n"))
	canonical := armor.CanonicalizeForHash(message)

	ok, verr := pipeline.VerifyDetached(ctx.Suite, ctx.Keys, sig, canonical)
	result := &EncryptedContent{
		Content:  message,
		ModTime:  time.Unix(sig.Created, 0),
		SignedBy: []key.KeyID{sig.IssuerKeyID},
		Verified: ok && verr == nil,
	}
	if verr != nil || !ok {
		ctx.logf("cleartext verify failed: %v", verr)
		return result, outcome(ResultSignatureInvalid, verr)
	}
	ctx.logf("cleartext verify ok, signed by %x", sig.IssuerKeyID)
	return result, nil
}

// verifyDetached checks sigData (raw or armored) against content.
func (ctx *Context) verifyDetached(content []byte, sigData []byte) (*EncryptedContent, error) {
	sig, err := parseSignaturePacket(sigData)
	if err != nil {
		return nil, outcome(ResultBadFormat, err)
	}
	ok, verr := pipeline.VerifyDetached(ctx.Suite, ctx.Keys, sig, content)
	result := &EncryptedContent{
		Content:  content,
		ModTime:  time.Unix(sig.Created, 0),
		SignedBy: []key.KeyID{sig.IssuerKeyID},
		Verified: ok && verr == nil,
	}
	if verr != nil || !ok {
		ctx.logf("detached verify failed: %v", verr)
		return result, outcome(ResultSignatureInvalid, verr)
	}
	ctx.logf("detached verify ok, signed by %x", sig.IssuerKeyID)
	return result, nil
}

// parseSignaturePacket reads a single Signature packet out of data,
// armored or binary.
func parseSignaturePacket(data []byte) (*packet.Signature, error) {
	raw := data
	if looksArmored(data) {
		_, _, body, err := armor.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		raw = body
	}
	pkt, err := packet.ReadPacket(newByteSource(raw))
	if err != nil {
		return nil, err
	}
	if pkt.Header.Tag != packet.TagSignature {
		return nil, errors.Errorf("pgp: expected a signature packet, got tag %d", pkt.Header.Tag)
	}
	return packet.ParseSignatureBody(pkt.Raw)
}
