package kbx

import (
	"bytes"
	"encoding/binary"
	"testing"

	gc "gopkg.in/check.v1"
)

func Test(t *testing.T) { gc.TestingT(t) }

type KbxSuite struct{}

var _ = gc.Suite(&KbxSuite{})

func (s *KbxSuite) TestHeaderBlobRoundTrip(c *gc.C) {
	h := Header{Version: 1, Flags: 0x0002, FileCreatedAt: 1700000000}
	blob := EncodeHeaderBlob(h)
	c.Assert(blob, gc.HasLen, blobFirstSize)

	got, err := ParseHeaderBlob(blob)
	c.Assert(err, gc.IsNil)
	c.Assert(got, gc.Equals, h)
}

func (s *KbxSuite) TestParseHeaderBlobRejectsBadMagic(c *gc.C) {
	blob := EncodeHeaderBlob(Header{Version: 1})
	copy(blob[8:12], "XXXX")
	_, err := ParseHeaderBlob(blob)
	c.Assert(err, gc.NotNil)
}

func (s *KbxSuite) TestParseHeaderBlobRejectsWrongType(c *gc.C) {
	blob := EncodeHeaderBlob(Header{Version: 1})
	blob[4] = byte(BlobTypePGP)
	_, err := ParseHeaderBlob(blob)
	c.Assert(err, gc.NotNil)
}

// buildPGPBlob assembles a minimal, well-formed PGP blob with one key
// record, no UIDs or sigs, and an arbitrary keyblock payload.
func buildPGPBlob(c *gc.C, fingerprint []byte, keyblock []byte) []byte {
	var body bytes.Buffer
	body.WriteByte(1)  // version
	writeU16(&body, 0) // flags

	writeU32(&body, 0) // keyblock offset, patched below
	writeU32(&body, uint32(len(keyblock)))

	writeU16(&body, 1)  // nkeys
	writeU16(&body, 28) // keys_len minimum
	body.Write(fingerprint)
	writeU16(&body, 0) // key id offset
	writeU16(&body, 0) // flags
	body.Write(make([]byte, 28-24))

	body.WriteByte(0) // sn_size

	writeU16(&body, 0)  // nuids
	writeU16(&body, 12) // uids_len minimum

	writeU16(&body, 0) // nsigs
	writeU16(&body, 4) // sigs_len minimum

	body.WriteByte(0) // owner trust
	body.WriteByte(0) // adsk validity

	body.Write(keyblock)

	payload := body.Bytes()
	// Keyblock offset field is at payload[3:7] (version+flags precede
	// it); patch it now that the prefix length is known.
	offsetWithinBlob := uint32(blobHeaderSize) + uint32(len(payload)-len(keyblock))
	binary.BigEndian.PutUint32(payload[3:7], offsetWithinBlob)

	var blob bytes.Buffer
	writeU32(&blob, uint32(blobHeaderSize+len(payload)))
	blob.WriteByte(byte(BlobTypePGP))
	blob.Write(payload)
	return blob.Bytes()
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func (s *KbxSuite) TestParsePGPBlobExtractsKeyblock(c *gc.C) {
	fp := bytes.Repeat([]byte{0xab}, 20)
	keyblock := []byte("fake openpgp packet bytes")
	blob := buildPGPBlob(c, fp, keyblock)

	parsed, err := ParsePGPBlob(blob)
	c.Assert(err, gc.IsNil)
	c.Assert(parsed.Keys, gc.HasLen, 1)
	c.Assert(parsed.Keys[0].Fingerprint, gc.DeepEquals, fp)
	c.Assert(parsed.Keyblock, gc.DeepEquals, keyblock)
}

func (s *KbxSuite) TestReadBlobsSplitsConcatenatedBlobs(c *gc.C) {
	h := EncodeHeaderBlob(Header{Version: 1, FileCreatedAt: 42})
	pgp := buildPGPBlob(c, bytes.Repeat([]byte{0x01}, 20), []byte("kb"))

	var all bytes.Buffer
	all.Write(h)
	all.Write(pgp)

	blobs, err := ReadBlobs(bytes.NewReader(all.Bytes()))
	c.Assert(err, gc.IsNil)
	c.Assert(blobs, gc.HasLen, 2)
	c.Assert(blobs[0], gc.DeepEquals, h)
	c.Assert(blobs[1], gc.DeepEquals, pgp)
}

func (s *KbxSuite) TestReadBlobsRejectsOversizedLength(c *gc.C) {
	var buf bytes.Buffer
	writeU32(&buf, BlobSizeLimit+1)
	buf.WriteByte(byte(BlobTypePGP))
	_, err := ReadBlobs(bytes.NewReader(buf.Bytes()))
	c.Assert(err, gc.NotNil)
}

func (s *KbxSuite) TestReadBlobsRejectsTruncatedBlob(c *gc.C) {
	var buf bytes.Buffer
	writeU32(&buf, 100)
	buf.WriteByte(byte(BlobTypePGP))
	_, err := ReadBlobs(bytes.NewReader(buf.Bytes()))
	c.Assert(err, gc.NotNil)
}
