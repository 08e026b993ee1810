// Package packet implements RFC 4880 packet framing: header parsing (old
// and new length forms, partial-length streaming), the typed packet
// bodies, and the signature sub-packet grammar. It consumes cryptographic
// primitives only through the primitive package's capability interfaces.
package packet

import (
	"github.com/pkg/errors"

	"github.com/openpgp-core/pgpcore/stream"
)

// Tag identifies an RFC 4880 section 4.3 packet content tag.
type Tag uint8

const (
	TagPKESK                   Tag = 1
	TagSignature               Tag = 2
	TagSKESK                   Tag = 3
	TagOnePassSignature        Tag = 4
	TagSecretKey                Tag = 5
	TagPublicKey                Tag = 6
	TagSecretSubkey              Tag = 7
	TagCompressed               Tag = 8
	TagSymEncData                Tag = 9
	TagMarker                    Tag = 10
	TagLiteral                  Tag = 11
	TagTrust                    Tag = 12
	TagUserID                   Tag = 13
	TagPublicSubkey              Tag = 14
	TagUserAttribute             Tag = 17
	TagSymEncIntegrityProtected  Tag = 18
	TagModificationDetectionCode Tag = 19
	TagAEADEncryptedData        Tag = 20
)

// partialLengthAllowed lists the tags RFC 4880 permits partial-length
// (streaming) framing for: literal, compressed, and every encrypted-data
// form, plus Marker (RNP's stream-parse.c extends it there for
// uniformity; pgpcore follows that).
var partialLengthAllowed = map[Tag]bool{
	TagLiteral:                   true,
	TagCompressed:                true,
	TagSymEncData:                true,
	TagSymEncIntegrityProtected:  true,
	TagAEADEncryptedData:         true,
	TagMarker:                    true,
}

// maxHeaderBytes is an 8 KiB header-parse cap. No reader in this package
// consults it: header and partial-length chunk bytes are not counted
// against any cap.
const maxHeaderBytes = 8 * 1024

// minFirstPartialLen is RFC 4880's requirement that a partial-length
// packet's first part be at least 512 bytes.
const minFirstPartialLen = 512

// ErrTruncated is returned when a stream ends mid-packet.
var ErrTruncated = errors.New("packet: truncated")

// Header describes a parsed packet header.
type Header struct {
	Tag           Tag
	NewFormat     bool
	Length        int64 // total body length; -1 if Partial or Indeterminate
	Partial       bool
	Indeterminate bool
}

// Packet is a tagged union over packet content: a decoded Body value for
// tags this package understands, or Raw bytes for unknown tags (preserved
// verbatim for round-trip per spec.md section 3).
type Packet struct {
	Header Header
	Raw    []byte      // present when Body == nil (unknown tag, or not yet decoded)
	Body   interface{} // one of *PublicKey, *SecretKey, *Signature, *UserID, ...
}

// readOldLength parses an old-format length field following the tag byte.
func readOldLength(src stream.Source, lengthType byte) (length int64, indeterminate bool, err error) {
	switch lengthType {
	case 0:
		var b [1]byte
		if err = stream.ReadFull(src, b[:]); err != nil {
			return 0, false, wrapTruncated(err)
		}
		return int64(b[0]), false, nil
	case 1:
		var b [2]byte
		if err = stream.ReadFull(src, b[:]); err != nil {
			return 0, false, wrapTruncated(err)
		}
		return int64(b[0])<<8 | int64(b[1]), false, nil
	case 2:
		var b [4]byte
		if err = stream.ReadFull(src, b[:]); err != nil {
			return 0, false, wrapTruncated(err)
		}
		return int64(b[0])<<24 | int64(b[1])<<16 | int64(b[2])<<8 | int64(b[3]), false, nil
	case 3:
		return 0, true, nil
	default:
		return 0, false, errors.New("packet: invalid old-format length type")
	}
}

// readNewLength parses a new-format length field (one-byte, two-byte,
// five-byte, or partial), per spec.md section 4.3.
func readNewLength(src stream.Source) (length int64, partial bool, err error) {
	var b0 [1]byte
	if err = stream.ReadFull(src, b0[:]); err != nil {
		return 0, false, wrapTruncated(err)
	}
	switch {
	case b0[0] < 192:
		return int64(b0[0]), false, nil
	case b0[0] < 224:
		var b1 [1]byte
		if err = stream.ReadFull(src, b1[:]); err != nil {
			return 0, false, wrapTruncated(err)
		}
		return (int64(b0[0])-192)<<8 + int64(b1[0]) + 192, false, nil
	case b0[0] == 255:
		var b [4]byte
		if err = stream.ReadFull(src, b[:]); err != nil {
			return 0, false, wrapTruncated(err)
		}
		return int64(b[0])<<24 | int64(b[1])<<16 | int64(b[2])<<8 | int64(b[3]), false, nil
	default:
		// Partial body length: 1 << (b0 & 0x1f).
		return int64(1) << uint(b0[0]&0x1f), true, nil
	}
}

// ReadHeader parses one packet header from src.
func ReadHeader(src stream.Source) (Header, error) {
	var tagByte [1]byte
	if err := stream.ReadFull(src, tagByte[:]); err != nil {
		return Header{}, wrapTruncated(err)
	}
	if tagByte[0]&0x80 == 0 {
		return Header{}, errors.New("packet: tag byte does not have MSB set")
	}
	if tagByte[0]&0x40 == 0 {
		tag := Tag((tagByte[0] & 0x3c) >> 2)
		length, indeterminate, err := readOldLength(src, tagByte[0]&0x03)
		if err != nil {
			return Header{}, err
		}
		if indeterminate {
			return Header{Tag: tag, Indeterminate: true, Length: -1}, nil
		}
		return Header{Tag: tag, Length: length}, nil
	}
	tag := Tag(tagByte[0] & 0x3f)
	length, partial, err := readNewLength(src)
	if err != nil {
		return Header{}, err
	}
	if partial {
		if !partialLengthAllowed[tag] {
			return Header{}, errors.Errorf("packet: partial length not allowed for tag %d", tag)
		}
		if length < minFirstPartialLen {
			return Header{}, errors.New("packet: first partial-length part below 512 bytes")
		}
		return Header{Tag: tag, NewFormat: true, Partial: true, Length: length}, nil
	}
	return Header{Tag: tag, NewFormat: true, Length: length}, nil
}

func wrapTruncated(err error) error {
	return errors.Wrap(ErrTruncated, err.Error())
}

// WriteHeader encodes tag+length in new format with a one-, two- or
// five-octet length; it never writes partial lengths.
func WriteHeader(tag Tag, length int) []byte {
	out := []byte{0xc0 | byte(tag)}
	switch {
	case length < 192:
		out = append(out, byte(length))
	case length < 8384:
		l := length - 192
		out = append(out, byte((l>>8)+192), byte(l))
	default:
		out = append(out, 255,
			byte(length>>24), byte(length>>16), byte(length>>8), byte(length))
	}
	return out
}
