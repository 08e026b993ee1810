package packet

import (
	"io"

	"github.com/openpgp-core/pgpcore/stream"
)

// Walk reads every packet from src in sequence and calls fn with each. It
// stops and returns nil at a clean end-of-stream, or returns the first
// error from ReadPacket or fn. Unlike the pipeline package's nested-Source
// model (which interprets one packet's body as the transport for the
// next), Walk treats src as a flat concatenated sequence — the shape a
// keyring file or a raw dump tool needs, not a layered message.
func Walk(src stream.Source, fn func(*Packet) error) error {
	for {
		pkt, err := ReadPacket(src)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(pkt); err != nil {
			return err
		}
	}
}
