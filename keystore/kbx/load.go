package kbx

import (
	"bytes"
	"io"

	"github.com/pkg/errors"

	"github.com/openpgp-core/pgpcore/key"
	"github.com/openpgp-core/pgpcore/packet"
	"github.com/openpgp-core/pgpcore/stream"
)

// Load reads a keybox file from r, validates its header blob, and
// decodes every PGP blob's embedded keyblock into a key.Key.
func Load(r io.Reader) ([]*key.Key, error) {
	blobs, err := ReadBlobs(r)
	if err != nil {
		return nil, err
	}
	if len(blobs) == 0 {
		return nil, errors.New("kbx: empty keybox")
	}
	if _, err := ParseHeaderBlob(blobs[0]); err != nil {
		return nil, errors.Wrap(err, "kbx: header blob")
	}

	var keys []*key.Key
	for _, blob := range blobs[1:] {
		if len(blob) < blobHeaderSize+1 {
			continue
		}
		switch BlobType(blob[4]) {
		case BlobTypePGP:
			pgpBlob, err := ParsePGPBlob(blob)
			if err != nil {
				return nil, errors.Wrap(err, "kbx: pgp blob")
			}
			src := stream.NewSource(bytes.NewReader(pgpBlob.Keyblock))
			var pkts []*packet.Packet
			err = packet.Walk(src, func(pkt *packet.Packet) error {
				if err := packet.Decode(pkt); err != nil {
					return err
				}
				pkts = append(pkts, pkt)
				return nil
			})
			if err != nil {
				return nil, errors.Wrap(err, "kbx: keyblock decode")
			}
			loaded, err := key.LoadAll(pkts)
			if err != nil {
				return nil, err
			}
			keys = append(keys, loaded...)
		case BlobTypeX509, BlobTypeEmpty:
			// Out of scope: pgpcore carries no X.509 support, and an
			// empty (deleted) blob has nothing to load.
		}
	}
	return keys, nil
}
