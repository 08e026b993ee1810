package key

import "github.com/openpgp-core/pgpcore/primitive"

func md5Sum(b []byte) (Fingerprint, error) {
	h, err := primitive.DefaultSuite{}.NewHash(primitive.HashMD5)
	if err != nil {
		return nil, err
	}
	h.Write(b)
	return h.Sum(), nil
}
