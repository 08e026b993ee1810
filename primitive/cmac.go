package primitive

import "crypto/cipher"

// cmac implements NIST SP 800-38B CMAC (one-key CBC-MAC) generically over
// any cipher.Block. It backs the EAX and OCB AEAD constructions in
// aead.go, which need a block-size-agnostic MAC the stdlib does not
// expose directly.
type cmac struct {
	block cipher.Block
	k1    []byte
	k2    []byte
}

func newCMAC(block cipher.Block) *cmac {
	n := block.BlockSize()
	zero := make([]byte, n)
	l := make([]byte, n)
	block.Encrypt(l, zero)
	k1 := gfDouble(l)
	k2 := gfDouble(k1)
	return &cmac{block: block, k1: k1, k2: k2}
}

// gfDouble multiplies b (interpreted as an element of GF(2^128) under the
// standard AES polynomial, generalized to any block length) by x.
func gfDouble(b []byte) []byte {
	n := len(b)
	out := make([]byte, n)
	carry := byte(0)
	for i := n - 1; i >= 0; i-- {
		v := b[i]
		out[i] = (v << 1) | carry
		carry = v >> 7
	}
	if carry != 0 {
		var rb byte
		switch n {
		case 16:
			rb = 0x87
		case 8:
			rb = 0x1b
		default:
			rb = 0x87
		}
		out[n-1] ^= rb
	}
	return out
}

func xorInto(dst, src []byte) {
	for i := range dst {
		dst[i] ^= src[i]
	}
}

// Sum computes the CMAC tag of msg.
func (c *cmac) Sum(msg []byte) []byte {
	n := c.block.BlockSize()
	var last []byte
	nblocks := (len(msg) + n - 1) / n
	if nblocks == 0 {
		nblocks = 1
	}
	complete := len(msg) > 0 && len(msg)%n == 0

	x := make([]byte, n)
	for i := 0; i < nblocks-1; i++ {
		block := msg[i*n : (i+1)*n]
		xorInto(x, block)
		enc := make([]byte, n)
		c.block.Encrypt(enc, x)
		x = enc
	}

	last = msg[(nblocks-1)*n:]
	padded := make([]byte, n)
	if complete {
		copy(padded, last)
		xorInto(padded, c.k1)
	} else {
		copy(padded, last)
		padded[len(last)] = 0x80
		xorInto(padded, c.k2)
	}
	xorInto(x, padded)
	out := make([]byte, n)
	c.block.Encrypt(out, x)
	return out
}
