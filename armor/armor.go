// Package armor implements RFC 4880 section 6's ASCII-armor encoding:
// base64 (radix-64) body framed by "-----BEGIN/END PGP ...-----" header
// lines, a CRC-24 checksum line, and optional free-form armor headers.
package armor

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// BlockType identifies the armor header/footer label.
type BlockType string

const (
	BlockMessage       BlockType = "MESSAGE"
	BlockPublicKey     BlockType = "PUBLIC KEY BLOCK"
	BlockPrivateKey    BlockType = "PRIVATE KEY BLOCK"
	BlockSignature     BlockType = "SIGNATURE"
	BlockCleartext     BlockType = "SIGNED MESSAGE"
)

const crc24Init = 0xb704ce
const crc24Poly = 0x1864cfb

func crc24(data []byte) uint32 {
	crc := uint32(crc24Init)
	for _, b := range data {
		crc ^= uint32(b) << 16
		for i := 0; i < 8; i++ {
			crc <<= 1
			if crc&0x1000000 != 0 {
				crc ^= crc24Poly
			}
		}
	}
	return crc & 0xffffff
}

// Encode writes data as one ASCII-armored block of the given type, with
// the supplied headers (e.g. "Version") emitted in map-iteration order
// is not guaranteed, so callers wanting deterministic output should pass
// a single well-known header or accept arbitrary ordering.
func Encode(w io.Writer, blockType BlockType, headers map[string]string, data []byte) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString("-----BEGIN PGP " + string(blockType) + "-----\n"); err != nil {
		return err
	}
	for k, v := range headers {
		if _, err := bw.WriteString(k + ": " + v + "\n"); err != nil {
			return err
		}
	}
	if _, err := bw.WriteString("\n"); err != nil {
		return err
	}

	enc := base64.StdEncoding
	for i := 0; i < len(data); i += 48 {
		end := i + 48
		if end > len(data) {
			end = len(data)
		}
		line := enc.EncodeToString(data[i:end])
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return err
		}
	}

	crc := crc24(data)
	var crcBytes [3]byte
	crcBytes[0] = byte(crc >> 16)
	crcBytes[1] = byte(crc >> 8)
	crcBytes[2] = byte(crc)
	if _, err := bw.WriteString("=" + enc.EncodeToString(crcBytes[:]) + "\n"); err != nil {
		return err
	}
	if _, err := bw.WriteString("-----END PGP " + string(blockType) + "-----\n"); err != nil {
		return err
	}
	return bw.Flush()
}

// Decode parses one ASCII-armored block from r, returning its type,
// headers, and decoded body. It validates the CRC-24 checksum line when
// present (RFC 4880bis makes it optional; pgpcore accepts either but
// always verifies one it finds).
func Decode(r io.Reader) (BlockType, map[string]string, []byte, error) {
	br := bufio.NewReader(r)

	var beginLine string
	for {
		line, err := br.ReadString('\n')
		if err != nil && line == "" {
			return "", nil, nil, errors.Wrap(err, "armor: no begin line found")
		}
		trimmed := strings.TrimRight(line, "\r\n")
		if strings.HasPrefix(trimmed, "-----BEGIN PGP ") && strings.HasSuffix(trimmed, "-----") {
			beginLine = trimmed
			break
		}
		if err != nil {
			return "", nil, nil, errors.New("armor: no begin line found")
		}
	}
	blockType := BlockType(strings.TrimSuffix(strings.TrimPrefix(beginLine, "-----BEGIN PGP "), "-----"))

	headers := map[string]string{}
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return "", nil, nil, errors.Wrap(err, "armor: truncated before body")
		}
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "" {
			break
		}
		if idx := strings.Index(trimmed, ": "); idx >= 0 {
			headers[trimmed[:idx]] = trimmed[idx+2:]
		}
	}

	var b64 bytes.Buffer
	var crcLine string
	endLine := "-----END PGP " + string(blockType) + "-----"
	for {
		line, err := br.ReadString('\n')
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == endLine {
			break
		}
		if strings.HasPrefix(trimmed, "=") && len(trimmed) == 5 {
			crcLine = trimmed[1:]
		} else {
			b64.WriteString(trimmed)
		}
		if err != nil {
			if trimmed == endLine {
				break
			}
			return "", nil, nil, errors.Wrap(err, "armor: truncated before end line")
		}
	}

	data, err := base64.StdEncoding.DecodeString(b64.String())
	if err != nil {
		return "", nil, nil, errors.Wrap(err, "armor: invalid base64 body")
	}

	if crcLine != "" {
		want, err := base64.StdEncoding.DecodeString(crcLine)
		if err != nil || len(want) != 3 {
			return "", nil, nil, errors.New("armor: invalid crc line")
		}
		gotCRC := crc24(data)
		wantCRC := uint32(want[0])<<16 | uint32(want[1])<<8 | uint32(want[2])
		if gotCRC != wantCRC {
			return "", nil, nil, errors.New("armor: crc-24 mismatch")
		}
	}

	return blockType, headers, data, nil
}
