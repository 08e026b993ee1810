package primitive

import "crypto/rand"

// Fill implements RNG for DefaultSuite using the OS CSPRNG. pgpcore never
// seeds or otherwise manages entropy itself, per spec.md's "random-number
// generation consumed as an opaque byte source".
func (DefaultSuite) Fill(buf []byte) error {
	_, err := rand.Read(buf)
	return err
}
