// Package flat implements the simplest OpenPGP keyring on-disk format: a
// flat concatenation of packets, read and written with no index
// structure of its own (spec.md section 4.8). This is the format GnuPG's
// classic pubring.gpg/secring.gpg files use.
package flat

import (
	"bytes"
	"io"

	"github.com/pkg/errors"

	"github.com/openpgp-core/pgpcore/key"
	"github.com/openpgp-core/pgpcore/packet"
	"github.com/openpgp-core/pgpcore/primitive"
	"github.com/openpgp-core/pgpcore/stream"
)

// Load reads every packet from r, decodes the ones pgpcore understands,
// and groups them into key.Key entities via key.LoadAll.
func Load(r io.Reader) ([]*key.Key, error) {
	src := stream.NewSource(r)
	var pkts []*packet.Packet
	err := packet.Walk(src, func(pkt *packet.Packet) error {
		if err := packet.Decode(pkt); err != nil {
			return errors.Wrap(err, "flat: decode packet")
		}
		pkts = append(pkts, pkt)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return key.LoadAll(pkts)
}

// Save serializes keys back to the flat packet-sequence format: for each
// key, its primary packet, revocations, direct-key signatures, user IDs
// with their certifications, then subkeys with their bindings. Unlocked
// secret key material is written unprotected; a locked Secret makes Save
// return an error.
func Save(w io.Writer, keys []*key.Key) error {
	return SaveProtected(w, keys, nil, nil, primitive.CipherAES256)
}

// SaveProtected is Save, but re-protects any unlocked secret key
// material with passphrase under cipher using suite, mirroring
// packet.SecretKey.Unlock in reverse (a nil passphrase writes it
// unprotected). A key with a nil Secret is written public-only; a locked
// Secret makes SaveProtected return an error.
func SaveProtected(w io.Writer, keys []*key.Key, suite primitive.Suite, passphrase []byte, cipher primitive.CipherAlgo) error {
	var buf bytes.Buffer
	for _, k := range keys {
		if err := writeKey(&buf, k, suite, passphrase, cipher); err != nil {
			return err
		}
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func writeKey(buf *bytes.Buffer, k *key.Key, suite primitive.Suite, passphrase []byte, cipher primitive.CipherAlgo) error {
	if err := writePrimaryPacket(buf, k, suite, passphrase, cipher); err != nil {
		return err
	}
	for _, sig := range k.Revocations {
		writeSigPacket(buf, sig)
	}
	for _, sig := range k.DirectSigs {
		writeSigPacket(buf, sig)
	}
	for _, u := range k.UserIDs {
		writeUserIDPacket(buf, u)
		for _, sig := range u.CertSigs {
			writeSigPacket(buf, sig)
		}
	}
	for _, sub := range k.Subkeys {
		if err := writeSubkeyPacket(buf, sub, suite, passphrase, cipher); err != nil {
			return err
		}
		if sub.Binding != nil {
			writeSigPacket(buf, sub.Binding)
		}
	}
	return nil
}

func writePrimaryPacket(buf *bytes.Buffer, k *key.Key, suite primitive.Suite, passphrase []byte, cipher primitive.CipherAlgo) error {
	return writeKeyOrSubkeyPacket(buf, k.Public, k.Secret, false, suite, passphrase, cipher)
}

func writeSubkeyPacket(buf *bytes.Buffer, sub *key.Subkey, suite primitive.Suite, passphrase []byte, cipher primitive.CipherAlgo) error {
	return writeKeyOrSubkeyPacket(buf, sub.Public, sub.Secret, true, suite, passphrase, cipher)
}

func writeKeyOrSubkeyPacket(buf *bytes.Buffer, pub *packet.PublicKey, sec *packet.SecretKey, isSubkey bool, suite primitive.Suite, passphrase []byte, cipher primitive.CipherAlgo) error {
	if sec == nil {
		body := pub.Encode()
		tag := packet.TagPublicKey
		if isSubkey {
			tag = packet.TagPublicSubkey
		}
		buf.Write(packet.WriteHeader(tag, len(body)))
		buf.Write(body)
		return nil
	}
	if sec.Locked() {
		return errors.New("flat: cannot encode a locked secret key; unlock it first or omit Secret")
	}
	body, err := sec.Encode(suite, passphrase, cipher)
	if err != nil {
		return err
	}
	tag := packet.TagSecretKey
	if isSubkey {
		tag = packet.TagSecretSubkey
	}
	buf.Write(packet.WriteHeader(tag, len(body)))
	buf.Write(body)
	return nil
}

func writeSigPacket(buf *bytes.Buffer, sig *packet.Signature) {
	body := sig.Encode()
	buf.Write(packet.WriteHeader(packet.TagSignature, len(body)))
	buf.Write(body)
}

func writeUserIDPacket(buf *bytes.Buffer, u *key.UserID) {
	if u.Packet != nil {
		body := u.Packet.Encode()
		buf.Write(packet.WriteHeader(packet.TagUserID, len(body)))
		buf.Write(body)
		return
	}
	body := u.Attribute.Encode()
	buf.Write(packet.WriteHeader(packet.TagUserAttribute, len(body)))
	buf.Write(body)
}
