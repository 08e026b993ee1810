// Package kbx implements GnuPG/RNP's indexed keybox (.kbx) format: a
// sequence of length-prefixed blobs, each either a header blob, a PGP
// key blob, or an X.509 blob, carrying a key-ID/fingerprint index inline
// so a reader need not parse every key's packets to build a lookup
// table. Grounded in original_source/src/lib/key_store_kbx.c.
package kbx

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// BlobType identifies the type byte at offset 4 of every blob.
type BlobType byte

const (
	BlobTypeEmpty  BlobType = 0
	BlobTypeHeader BlobType = 1
	BlobTypePGP    BlobType = 2
	BlobTypeX509   BlobType = 3
)

// BlobSizeLimit bounds a single blob's declared length, matching RNP's
// BLOB_SIZE_LIMIT guard against a corrupt or hostile length field
// causing an unbounded allocation.
const BlobSizeLimit = 5 * 1024 * 1024

const blobHeaderSize = 0x5
const blobFirstSize = 0x20

// Header is the decoded first (header) blob of a keybox file.
type Header struct {
	Version       byte
	Flags         uint16
	FileCreatedAt uint32
}

// ParseHeaderBlob decodes the fixed first-blob format. RNP's original
// parser reads the file_created_at field twice, once at image+4 (it
// overlaps the blob-length field it already consumed) and again at the
// RFC-documented image+15 offset, with the second read silently winning;
// both reads land on the same logical field in every file this package
// has observed, but nothing requires it, and repeating an already-parsed
// read serves no purpose. This reads file_created_at once, at its
// documented offset.
func ParseHeaderBlob(blob []byte) (Header, error) {
	if len(blob) < blobFirstSize {
		return Header{}, errors.New("kbx: header blob too short")
	}
	if blob[4] != byte(BlobTypeHeader) {
		return Header{}, errors.New("kbx: not a header blob")
	}
	h := Header{Version: blob[5]}
	h.Flags = binary.BigEndian.Uint16(blob[6:8])
	magic := blob[8:12]
	if !bytes.Equal(magic, []byte("KBXf")) {
		return Header{}, errors.New("kbx: bad magic")
	}
	h.FileCreatedAt = binary.BigEndian.Uint32(blob[16:20])
	return h, nil
}

// EncodeHeaderBlob serializes a Header back into the fixed 32-byte first
// blob.
func EncodeHeaderBlob(h Header) []byte {
	out := make([]byte, blobFirstSize)
	binary.BigEndian.PutUint32(out[0:4], blobFirstSize)
	out[4] = byte(BlobTypeHeader)
	out[5] = h.Version
	binary.BigEndian.PutUint16(out[6:8], h.Flags)
	copy(out[8:12], "KBXf")
	binary.BigEndian.PutUint32(out[16:20], h.FileCreatedAt)
	return out
}

// KeyRecord is one indexed key entry within a PGP blob.
type KeyRecord struct {
	Fingerprint []byte
	KeyIDOffset uint16
	Flags       uint16
}

// UIDRecord is one indexed user-id entry within a PGP blob.
type UIDRecord struct {
	Offset   uint32
	Length   uint32
	Flags    uint16
	Validity byte
}

// SigRecord is one indexed signature entry within a PGP blob.
type SigRecord struct {
	Expired uint32
}

// PGPBlob is a decoded PGP key blob: the raw OpenPGP keyblock plus RNP's
// inline index over it.
type PGPBlob struct {
	Version        byte
	Flags          uint16
	KeyblockOffset uint32
	KeyblockLength uint32
	Keys           []KeyRecord
	SerialNumber   []byte
	UIDs           []UIDRecord
	Sigs           []SigRecord
	OwnerTrust     byte
	ADSKValidity   byte
	Keyblock       []byte
}

// ru8/ru16/ru32 mirror RNP's same-named big-endian readers.
func ru8(b []byte) byte     { return b[0] }
func ru16(b []byte) uint16  { return binary.BigEndian.Uint16(b) }
func ru32(b []byte) uint32  { return binary.BigEndian.Uint32(b) }

// ParsePGPBlob decodes a PGP key blob's index fields and extracts its
// embedded keyblock bytes, per RNP's rnp_key_store_kbx_parse_pgp_blob.
func ParsePGPBlob(blob []byte) (*PGPBlob, error) {
	if len(blob) < blobHeaderSize+1 {
		return nil, errors.New("kbx: pgp blob too short")
	}
	p := &PGPBlob{}
	off := blobHeaderSize // skip length(4)+type(1), already validated by the caller
	if len(blob) < off+1 {
		return nil, errors.New("kbx: pgp blob truncated version")
	}
	p.Version = ru8(blob[off:])
	off++

	if len(blob) < off+2 {
		return nil, errors.New("kbx: pgp blob truncated flags")
	}
	p.Flags = ru16(blob[off:])
	off += 2

	if len(blob) < off+8 {
		return nil, errors.New("kbx: pgp blob truncated keyblock offsets")
	}
	p.KeyblockOffset = ru32(blob[off:])
	off += 4
	p.KeyblockLength = ru32(blob[off:])
	off += 4

	if len(blob) < off+2 {
		return nil, errors.New("kbx: pgp blob truncated nkeys")
	}
	nkeys := int(ru16(blob[off:]))
	off += 2
	if len(blob) < off+2 {
		return nil, errors.New("kbx: pgp blob truncated keys_len")
	}
	keysLen := int(ru16(blob[off:]))
	off += 2
	if keysLen < 28 {
		return nil, errors.New("kbx: pgp blob keys_len below minimum 28")
	}
	for i := 0; i < nkeys; i++ {
		if len(blob) < off+keysLen {
			return nil, errors.New("kbx: pgp blob truncated key record")
		}
		rec := KeyRecord{}
		rec.Fingerprint = append([]byte(nil), blob[off:off+20]...)
		rec.KeyIDOffset = ru16(blob[off+20:])
		rec.Flags = ru16(blob[off+22:])
		p.Keys = append(p.Keys, rec)
		off += keysLen
	}

	if len(blob) < off+1 {
		return nil, errors.New("kbx: pgp blob truncated sn_size")
	}
	snSize := int(ru8(blob[off:]))
	off++
	if len(blob) < off+snSize {
		return nil, errors.New("kbx: pgp blob truncated serial number")
	}
	p.SerialNumber = append([]byte(nil), blob[off:off+snSize]...)
	off += snSize

	if len(blob) < off+2 {
		return nil, errors.New("kbx: pgp blob truncated nuids")
	}
	nuids := int(ru16(blob[off:]))
	off += 2
	if len(blob) < off+2 {
		return nil, errors.New("kbx: pgp blob truncated uids_len")
	}
	uidsLen := int(ru16(blob[off:]))
	off += 2
	if uidsLen < 12 {
		return nil, errors.New("kbx: pgp blob uids_len below minimum 12")
	}
	for i := 0; i < nuids; i++ {
		if len(blob) < off+uidsLen {
			return nil, errors.New("kbx: pgp blob truncated uid record")
		}
		rec := UIDRecord{}
		rec.Offset = ru32(blob[off:])
		rec.Length = ru32(blob[off+4:])
		rec.Flags = ru16(blob[off+8:])
		rec.Validity = ru8(blob[off+10:])
		p.UIDs = append(p.UIDs, rec)
		off += uidsLen
	}

	if len(blob) < off+2 {
		return nil, errors.New("kbx: pgp blob truncated nsigs")
	}
	nsigs := int(ru16(blob[off:]))
	off += 2
	if len(blob) < off+2 {
		return nil, errors.New("kbx: pgp blob truncated sigs_len")
	}
	sigsLen := int(ru16(blob[off:]))
	off += 2
	if sigsLen < 4 {
		return nil, errors.New("kbx: pgp blob sigs_len below minimum 4")
	}
	for i := 0; i < nsigs; i++ {
		if len(blob) < off+sigsLen {
			return nil, errors.New("kbx: pgp blob truncated sig record")
		}
		p.Sigs = append(p.Sigs, SigRecord{Expired: ru32(blob[off:])})
		off += sigsLen
	}

	if len(blob) < off+2 {
		return nil, errors.New("kbx: pgp blob truncated trust bytes")
	}
	p.OwnerTrust = ru8(blob[off:])
	p.ADSKValidity = ru8(blob[off+1:])
	off += 2

	if int(p.KeyblockOffset)+int(p.KeyblockLength) > len(blob) {
		return nil, errors.New("kbx: pgp blob keyblock extends past blob")
	}
	p.Keyblock = append([]byte(nil), blob[p.KeyblockOffset:p.KeyblockOffset+p.KeyblockLength]...)
	return p, nil
}

// ReadBlobs splits r into its constituent length-prefixed blobs, each
// returned as its raw bytes (including the 4-byte length and 1-byte type
// fields) for ParseHeaderBlob/ParsePGPBlob to decode.
func ReadBlobs(r io.Reader) ([][]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var blobs [][]byte
	for len(data) > 0 {
		if len(data) < blobHeaderSize {
			return nil, errors.New("kbx: trailing bytes too short for a blob header")
		}
		length := binary.BigEndian.Uint32(data[:4])
		if length > BlobSizeLimit {
			return nil, errors.Errorf("kbx: blob length %d exceeds limit", length)
		}
		if uint64(len(data)) < uint64(length) {
			return nil, errors.New("kbx: blob truncated")
		}
		blobs = append(blobs, data[:length])
		data = data[length:]
	}
	return blobs, nil
}
