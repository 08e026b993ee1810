package armor

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// EncodeCleartext writes RFC 4880 section 7's cleartext signature
// framing: a "-----BEGIN PGP SIGNED MESSAGE-----" line, a "Hash:" header
// naming hashName, a blank line, the message with every line beginning
// with '-' prefixed by "- " (dash-escaping), then the detached
// signature as a normal armored SIGNATURE block.
func EncodeCleartext(w io.Writer, hashName string, message []byte, sigBlock []byte) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString("-----BEGIN PGP SIGNED MESSAGE-----\nHash: " + hashName + "\n\n"); err != nil {
		return err
	}
	lines := strings.Split(string(message), "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "-") {
			line = "- " + line
		}
		if _, err := bw.WriteString(line); err != nil {
			return err
		}
		if i != len(lines)-1 {
			if _, err := bw.WriteString("\n"); err != nil {
				return err
			}
		}
	}
	if _, err := bw.WriteString("\n"); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	_, err := w.Write(sigBlock)
	return err
}

// DecodeCleartext parses a cleartext-signed message, returning the
// declared hash algorithm name, the dash-unescaped message bytes (each
// line's CR/LF ending replaced by a single LF; other trailing whitespace
// is kept, and CanonicalizeForHash gives the as-hashed form), and the
// remaining armored signature block bytes.
func DecodeCleartext(r io.Reader) (hashName string, message []byte, sigBlock []byte, err error) {
	br := bufio.NewReader(r)

	line, err := br.ReadString('\n')
	if err != nil || strings.TrimRight(line, "\r\n") != "-----BEGIN PGP SIGNED MESSAGE-----" {
		return "", nil, nil, errors.New("armor: missing cleartext begin line")
	}

	for {
		line, err = br.ReadString('\n')
		if err != nil {
			return "", nil, nil, errors.Wrap(err, "armor: truncated cleartext headers")
		}
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "" {
			break
		}
		if strings.HasPrefix(trimmed, "Hash: ") {
			hashName = strings.TrimPrefix(trimmed, "Hash: ")
		}
	}

	var msg bytes.Buffer
	for {
		line, err = br.ReadString('\n')
		trimmed := strings.TrimRight(line, "\r\n")
		if strings.HasPrefix(trimmed, "-----BEGIN PGP SIGNATURE-----") {
			break
		}
		unescaped := strings.TrimPrefix(trimmed, "- ")
		msg.WriteString(unescaped)
		msg.WriteString("\n")
		if err != nil {
			return "", nil, nil, errors.New("armor: missing signature block")
		}
	}

	var sig bytes.Buffer
	sig.WriteString("-----BEGIN PGP SIGNATURE-----\n")
	if _, err := io.Copy(&sig, br); err != nil {
		return "", nil, nil, err
	}

	return hashName, msg.Bytes(), sig.Bytes(), nil
}

// CanonicalizeForHash applies the cleartext-signature hashing rule: CRLF
// line endings and no trailing whitespace before each newline, matching
// what SelfSign/Clearsign-style signers in the corpus hash.
func CanonicalizeForHash(message []byte) []byte {
	lines := strings.Split(string(message), "\n")
	var out bytes.Buffer
	for i, line := range lines {
		out.WriteString(strings.TrimRight(line, " \t\r"))
		if i != len(lines)-1 {
			out.WriteString("\r\n")
		}
	}
	return out.Bytes()
}
