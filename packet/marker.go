package packet

import "github.com/pkg/errors"

// markerBody is the fixed 3-byte "PGP" body of a Marker packet (RFC 4880
// section 5.8), emitted by some implementations for forward
// compatibility and always safe to ignore.
var markerBody = []byte{0x50, 0x47, 0x50}

// IsMarker reports whether body is a well-formed Marker packet body.
func IsMarker(body []byte) bool {
	return len(body) == 3 && body[0] == markerBody[0] && body[1] == markerBody[1] && body[2] == markerBody[2]
}

// ErrNotMarker is returned by ParseMarkerBody for a malformed body.
var ErrNotMarker = errors.New("packet: not a marker packet")

// ParseMarkerBody validates a Marker packet body.
func ParseMarkerBody(body []byte) error {
	if !IsMarker(body) {
		return ErrNotMarker
	}
	return nil
}

// EncodeMarker returns the canonical Marker packet body.
func EncodeMarker() []byte {
	return append([]byte(nil), markerBody...)
}
