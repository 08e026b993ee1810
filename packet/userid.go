package packet

// UserID is the decoded body of a User ID packet: a UTF-8 string,
// conventionally "Name (Comment) <email>".
type UserID struct {
	ID string
}

// ParseUserIDBody decodes a User ID packet body.
func ParseUserIDBody(body []byte) *UserID {
	return &UserID{ID: string(body)}
}

// Encode serializes the User ID packet body.
func (u *UserID) Encode() []byte { return []byte(u.ID) }

// UserAttribute is the decoded body of a User Attribute packet: a
// sequence of sub-packets, conventionally a single JPEG image subpacket
// (type 1).
type UserAttribute struct {
	Subpackets []Subpacket
}

// ParseUserAttributeBody decodes a User Attribute packet body. Its
// sub-packet length encoding is identical to a signature's sub-packet
// area, minus the area's own 2-byte length prefix.
func ParseUserAttributeBody(body []byte) (*UserAttribute, error) {
	subs, err := parseSubpacketArea(body)
	if err != nil {
		return nil, err
	}
	return &UserAttribute{Subpackets: subs}, nil
}

// Encode serializes the User Attribute packet body.
func (u *UserAttribute) Encode() []byte {
	return encodeSubpacketArea(u.Subpackets)
}
