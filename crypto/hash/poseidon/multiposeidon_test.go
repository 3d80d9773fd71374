package poseidon

import (
	"bytes"
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestMultiPoseidon(t *testing.T) {
	c := qt.New(t)

	_, err := MultiPoseidon()
	c.Assert(err, qt.ErrorMatches, "no inputs provided")

	inputs := make([]*big.Int, 257)
	for i := range inputs {
		inputs[i] = big.NewInt(int64(i))
	}
	_, err = MultiPoseidon(inputs...)
	c.Assert(err, qt.ErrorMatches, "too many inputs")

	// more than one chunk of 16 elements
	h1, err := MultiPoseidon(inputs[:40]...)
	c.Assert(err, qt.IsNil)
	h2, err := MultiPoseidon(inputs[:40]...)
	c.Assert(err, qt.IsNil)
	c.Assert(h1.Cmp(h2), qt.Equals, 0)
	h3, err := MultiPoseidon(inputs[:39]...)
	c.Assert(err, qt.IsNil)
	c.Assert(h1.Cmp(h3), qt.Not(qt.Equals), 0)
}

func TestHashBytes(t *testing.T) {
	c := qt.New(t)

	empty, err := HashBytes(nil)
	c.Assert(err, qt.IsNil)
	zero, err := HashBytes([]byte{0})
	c.Assert(err, qt.IsNil)
	c.Assert(empty.Cmp(zero), qt.Not(qt.Equals), 0)

	a, err := HashBytes([]byte("alice"))
	c.Assert(err, qt.IsNil)
	b, err := HashBytes([]byte("bob"))
	c.Assert(err, qt.IsNil)
	c.Assert(a.Cmp(b), qt.Not(qt.Equals), 0)

	long, err := HashBytes(bytes.Repeat([]byte("x"), 1024))
	c.Assert(err, qt.IsNil)
	c.Assert(long.Sign(), qt.Equals, 1)

	_, err = HashBytes(make([]byte, maxBytes+1))
	c.Assert(err, qt.IsNotNil)
}
