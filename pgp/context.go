// Package pgp is pgpcore's public API: a Context bundling a primitive
// capability suite, a keyring, and callback providers, exposing
// encrypt/decrypt/sign/verify and key-management operations over the
// packet, key, keyring and pipeline packages, per spec.md section 6.
package pgp

import (
	"bytes"
	"io"
	"log"
	"time"

	"github.com/pkg/errors"

	"github.com/openpgp-core/pgpcore/armor"
	"github.com/openpgp-core/pgpcore/integrity"
	"github.com/openpgp-core/pgpcore/key"
	"github.com/openpgp-core/pgpcore/keyring"
	"github.com/openpgp-core/pgpcore/packet"
	"github.com/openpgp-core/pgpcore/pipeline"
	"github.com/openpgp-core/pgpcore/primitive"
	"github.com/openpgp-core/pgpcore/provider"
)

// Logger is satisfied by *log.Logger and by logrus.Logger/Entry's
// Printf/Debugf-shaped methods, so a caller can plug in a structured
// logger without pgpcore importing logrus itself.
type Logger interface {
	Printf(format string, args ...interface{})
}

// Context is the single entry point for pgpcore operations: it owns the
// capability suite, the active keyring, and the providers operations
// call back into for passphrases and key resolution.
type Context struct {
	Suite     primitive.Suite
	Keys      *keyring.Keyring
	Passwords provider.PasswordProvider
	KeyLookup provider.KeyProvider
	Log       Logger
}

// New builds a Context with the default primitive suite, an empty
// keyring, and a stdlib *log.Logger sink that discards its output
// (Context.Log can be replaced by any Logger).
func New() (*Context, error) {
	kr, err := keyring.New(0)
	if err != nil {
		return nil, err
	}
	return &Context{
		Suite: primitive.DefaultSuite{},
		Keys:  kr,
		Log:   log.New(logDiscard{}, "", 0),
	}, nil
}

type logDiscard struct{}

func (logDiscard) Write(p []byte) (int, error) { return len(p), nil }

// logf is a nil-safe wrapper so operations can log diagnostics without
// every caller of New() being forced to supply a Logger.
func (ctx *Context) logf(format string, args ...interface{}) {
	if ctx.Log != nil {
		ctx.Log.Printf(format, args...)
	}
}

// Result is pgpcore's flat operation-outcome enum, mirroring spec.md
// section 6.3's result kinds: every public operation returns one of
// these, with Cause carrying the underlying error (unwrap via
// github.com/pkg/errors.Cause) for logging.
type Result int

const (
	ResultOk Result = iota
	ResultBadParameters
	ResultBadFormat
	ResultNotSupported
	ResultBadPassword
	ResultKeyNotFound
	ResultNoSuitableKey
	ResultDecryptFailed
	ResultSignatureInvalid
	ResultSignatureExpired
	ResultMdcMismatch
	ResultTruncated
	ResultIO
	ResultOutOfMemory
	ResultCancelled
	ResultError
)

func (r Result) String() string {
	switch r {
	case ResultOk:
		return "ok"
	case ResultBadParameters:
		return "bad parameters"
	case ResultBadFormat:
		return "bad format"
	case ResultNotSupported:
		return "not supported"
	case ResultBadPassword:
		return "bad password"
	case ResultKeyNotFound:
		return "key not found"
	case ResultNoSuitableKey:
		return "no suitable key"
	case ResultDecryptFailed:
		return "decrypt failed"
	case ResultSignatureInvalid:
		return "signature invalid"
	case ResultSignatureExpired:
		return "signature expired"
	case ResultMdcMismatch:
		return "mdc mismatch"
	case ResultTruncated:
		return "truncated"
	case ResultIO:
		return "io error"
	case ResultOutOfMemory:
		return "out of memory"
	case ResultCancelled:
		return "cancelled"
	default:
		return "error"
	}
}

// Outcome pairs a Result with the underlying cause, if any.
type Outcome struct {
	Result Result
	Cause  error
}

func (o Outcome) Error() string {
	if o.Cause == nil {
		return o.Result.String()
	}
	return o.Result.String() + ": " + o.Cause.Error()
}

func outcome(r Result, err error) error {
	if r == ResultOk && err == nil {
		return nil
	}
	return Outcome{Result: r, Cause: err}
}

// DecryptOptions controls Decrypt's and Verify's behavior.
type DecryptOptions struct {
	ExpectArmored bool

	// Detached, when set, is the raw or armored bytes of a detached
	// signature covering data; Verify checks it against data directly
	// instead of looking for an inline One-Pass-Signature layer.
	Detached []byte
}

// EncryptedContent is what Decrypt returns on success.
type EncryptedContent struct {
	Filename string
	ModTime  time.Time
	Content  []byte
	SignedBy []key.KeyID
	Verified bool
}

// Decrypt unwinds an OpenPGP message (armored or binary) using ctx's
// keyring and password provider.
func (ctx *Context) Decrypt(data []byte, opts DecryptOptions) (*EncryptedContent, error) {
	raw := data
	if opts.ExpectArmored || looksArmored(data) {
		_, _, body, err := armor.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, outcome(ResultBadFormat, err)
		}
		raw = body
	}

	result, err := pipeline.Unwind(ctx.Suite, newByteSource(raw), ctx.Keys, ctx.Passwords)
	if err != nil {
		r := classifyDecryptError(err)
		ctx.logf("decrypt failed: %s: %s", r, err)
		return nil, outcome(r, err)
	}
	ctx.logf("decrypt ok: %d byte(s), verified=%v", len(result.Content), result.Verified)
	return &EncryptedContent{
		Filename: result.Literal.FileName,
		ModTime:  time.Unix(result.Literal.ModTime, 0),
		Content:  result.Content,
		SignedBy: result.SignedBy,
		Verified: result.Verified,
	}, nil
}

func looksArmored(data []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("-----BEGIN PGP"))
}

// classifyDecryptError maps an error surfaced from the armor/pipeline
// layers onto a Result. It unwraps github.com/pkg/errors causes so a
// wrapped sentinel (errors.Wrap(packet.ErrBadPassword, "...")) still
// classifies correctly.
func classifyDecryptError(err error) Result {
	cause := errors.Cause(err)
	switch cause {
	case packet.ErrBadPassword:
		return ResultBadPassword
	case integrity.ErrMDCMismatch:
		return ResultMdcMismatch
	case io.ErrUnexpectedEOF, io.EOF:
		return ResultTruncated
	}
	return ResultError
}
