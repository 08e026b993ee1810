package primitive

// DefaultSuite backs every capability interface with Go's standard
// library plus the golang.org/x/crypto subpackages the teacher already
// depends on (cast5, blowfish, twofish, ripemd160, ed25519's openpgp
// elgamal sibling). It is the Suite a Context uses unless the caller
// supplies its own, e.g. to route RSA operations to an HSM.
type DefaultSuite struct{}

var _ Suite = DefaultSuite{}
