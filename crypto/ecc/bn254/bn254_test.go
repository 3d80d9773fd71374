package bn254

import (
	"bytes"
	"errors"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	qt "github.com/frankban/quicktest"
)

func TestPointEncoding(t *testing.T) {
	c := qt.New(t)
	g1, g2 := Generators()
	s, err := RandomScalar()
	c.Assert(err, qt.IsNil)

	p1 := MulG1(&g1, &s)
	enc1 := EncodeG1(&p1)
	c.Assert(enc1, qt.HasLen, G1Size)
	dec1, err := DecodeG1(enc1)
	c.Assert(err, qt.IsNil)
	c.Assert(dec1.Equal(&p1), qt.IsTrue)

	p2 := MulG2(&g2, &s)
	enc2 := EncodeG2(&p2)
	c.Assert(enc2, qt.HasLen, G2Size)
	dec2, err := DecodeG2(enc2)
	c.Assert(err, qt.IsNil)
	c.Assert(dec2.Equal(&p2), qt.IsTrue)

	// wrong sizes
	_, err = DecodeG1(enc1[:G1Size-1])
	c.Assert(errors.Is(err, ErrInvalidPoint), qt.IsTrue)
	_, err = DecodeG2(append(enc2, 0))
	c.Assert(errors.Is(err, ErrInvalidPoint), qt.IsTrue)

	// an x coordinate over the field modulus is never a valid point
	bad := bytes.Repeat([]byte{0xff}, G1Size)
	bad[0] = 0x3f
	_, err = DecodeG1(bad)
	c.Assert(errors.Is(err, ErrInvalidPoint), qt.IsTrue)
}

func TestScalarEncoding(t *testing.T) {
	c := qt.New(t)
	s, err := RandomScalar()
	c.Assert(err, qt.IsNil)
	c.Assert(s.IsZero(), qt.IsFalse)

	dec, err := DecodeScalar(EncodeScalar(&s))
	c.Assert(err, qt.IsNil)
	c.Assert(dec.Equal(&s), qt.IsTrue)

	// the modulus itself is not canonical
	mod := fr.Modulus().FillBytes(make([]byte, ScalarSize))
	_, err = DecodeScalar(mod)
	c.Assert(errors.Is(err, ErrInvalidScalar), qt.IsTrue)

	_, err = DecodeScalar([]byte{1, 2, 3})
	c.Assert(errors.Is(err, ErrInvalidScalar), qt.IsTrue)
}

func TestPairingEqual(t *testing.T) {
	c := qt.New(t)
	g1, g2 := Generators()
	a, err := RandomScalar()
	c.Assert(err, qt.IsNil)
	b, err := RandomScalar()
	c.Assert(err, qt.IsNil)

	// e(g1^a, g2^b) == e(g1^(ab), g2)
	var ab fr.Element
	ab.Mul(&a, &b)
	ga := MulG1(&g1, &a)
	gb := MulG2(&g2, &b)
	gab := MulG1(&g1, &ab)
	c.Assert(PairingEqual(&ga, &gb, &gab, &g2), qt.IsTrue)
	c.Assert(PairingEqual(&ga, &gb, &ga, &g2), qt.IsFalse)
}

func TestHashToGroup(t *testing.T) {
	c := qt.New(t)
	h1, err := HashToG1([]byte("msg"), []byte("dst-a"))
	c.Assert(err, qt.IsNil)
	h2, err := HashToG1([]byte("msg"), []byte("dst-a"))
	c.Assert(err, qt.IsNil)
	h3, err := HashToG1([]byte("msg"), []byte("dst-b"))
	c.Assert(err, qt.IsNil)
	c.Assert(h1.Equal(&h2), qt.IsTrue)
	c.Assert(h1.Equal(&h3), qt.IsFalse)
	c.Assert(h1.IsInSubGroup(), qt.IsTrue)

	s1, err := HashToScalar([]byte("msg"), []byte("dst-a"))
	c.Assert(err, qt.IsNil)
	s2, err := HashToScalar([]byte("msg2"), []byte("dst-a"))
	c.Assert(err, qt.IsNil)
	c.Assert(s1.Equal(&s2), qt.IsFalse)
}
