package utt

import (
	"bytes"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	curve "github.com/vocdoni/utt-core/crypto/ecc/bn254"
)

const (
	keyEncodingVersion = 1
	// maxAttributes bounds the number of attributes a key can sign.
	maxAttributes = 16
)

// RandSigSK is the secret key of a Pointcheval-Sanders signature scheme
// over n attributes: a scalar x and one scalar y_i per attribute.
type RandSigSK struct {
	x  fr.Element
	y  []fr.Element
	pk *RandSigPK
}

// RandSigPK is the public key matching a RandSigSK: X = g2^x and
// Y_i = g2^y_i.
type RandSigPK struct {
	x bn254.G2Affine
	y []bn254.G2Affine
}

// RandSig is a randomizable signature (h, h^(x + Σ y_i·m_i)).
type RandSig struct {
	s1 bn254.G1Affine
	s2 bn254.G1Affine
}

// GenerateRandSigKey creates a new key pair able to sign n attributes.
func GenerateRandSigKey(n int) (*RandSigSK, error) {
	if n < 1 || n > maxAttributes {
		return nil, fmt.Errorf("%w: attribute count %d out of range", ErrInvalidArgument, n)
	}
	sk := &RandSigSK{y: make([]fr.Element, n)}
	var err error
	if sk.x, err = curve.RandomScalar(); err != nil {
		return nil, err
	}
	for i := range sk.y {
		if sk.y[i], err = curve.RandomScalar(); err != nil {
			return nil, err
		}
	}
	sk.pk = sk.derivePublicKey()
	return sk, nil
}

func (sk *RandSigSK) derivePublicKey() *RandSigPK {
	_, g2 := curve.Generators()
	pk := &RandSigPK{
		x: curve.MulG2(&g2, &sk.x),
		y: make([]bn254.G2Affine, len(sk.y)),
	}
	for i := range sk.y {
		pk.y[i] = curve.MulG2(&g2, &sk.y[i])
	}
	return pk
}

// PublicKey returns the public key of sk.
func (sk *RandSigSK) PublicKey() *RandSigPK {
	return sk.pk
}

// Sign signs the attributes. The number of attributes must match the key.
func (sk *RandSigSK) Sign(attrs []fr.Element) (*RandSig, error) {
	if len(attrs) != len(sk.y) {
		return nil, fmt.Errorf("%w: expected %d attributes, got %d", ErrInvalidArgument, len(sk.y), len(attrs))
	}
	r, err := curve.RandomScalar()
	if err != nil {
		return nil, err
	}
	g1, _ := curve.Generators()
	h := curve.MulG1(&g1, &r)

	e := sk.x
	var t fr.Element
	for i := range attrs {
		t.Mul(&sk.y[i], &attrs[i])
		e.Add(&e, &t)
	}
	return &RandSig{s1: h, s2: curve.MulG1(&h, &e)}, nil
}

// Zeroize overwrites the secret scalars. The key must not be used
// afterwards.
func (sk *RandSigSK) Zeroize() {
	sk.x.SetZero()
	for i := range sk.y {
		sk.y[i].SetZero()
	}
}

// Marshal encodes the secret key. The public key is derived again when
// decoding.
func (sk *RandSigSK) Marshal() []byte {
	var buf bytes.Buffer
	buf.WriteByte(keyEncodingVersion)
	buf.WriteByte(byte(len(sk.y)))
	buf.Write(curve.EncodeScalar(&sk.x))
	for i := range sk.y {
		buf.Write(curve.EncodeScalar(&sk.y[i]))
	}
	return buf.Bytes()
}

// UnmarshalRandSigSK decodes a secret key encoded with Marshal.
func UnmarshalRandSigSK(data []byte) (*RandSigSK, error) {
	n, off, err := readKeyHeader(data, curve.ScalarSize)
	if err != nil {
		return nil, err
	}
	sk := &RandSigSK{y: make([]fr.Element, n)}
	if sk.x, err = curve.DecodeScalar(data[off : off+curve.ScalarSize]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	for i := 0; i < n; i++ {
		off += curve.ScalarSize
		if sk.y[i], err = curve.DecodeScalar(data[off : off+curve.ScalarSize]); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
		}
	}
	sk.pk = sk.derivePublicKey()
	return sk, nil
}

// Len returns the number of attributes the key signs.
func (pk *RandSigPK) Len() int {
	return len(pk.y)
}

// Verify reports whether sig is a valid signature of attrs under pk.
func (pk *RandSigPK) Verify(attrs []fr.Element, sig *RandSig) bool {
	if pk == nil || sig == nil || len(attrs) != len(pk.y) {
		return false
	}
	disclosed := make(map[int]fr.Element, len(attrs))
	for i := range attrs {
		disclosed[i] = attrs[i]
	}
	var identity bn254.G2Affine
	return pk.verifyBlinded(&sig.s1, &sig.s2, disclosed, &identity)
}

// verifyBlinded checks a signature shown with some attributes hidden. The
// hidden ones, and the blinding factor t of the second signature element,
// are carried by kappa = g2^t · Π Y_j^m_j. It checks
//
//	e(s1, X · Π Y_i^m_i · kappa) == e(s2, g2)
//
// where i ranges over the disclosed attributes.
func (pk *RandSigPK) verifyBlinded(s1, s2 *bn254.G1Affine, disclosed map[int]fr.Element, kappa *bn254.G2Affine) bool {
	if s1.IsInfinity() {
		return false
	}
	acc := curve.AddG2(&pk.x, kappa)
	for i, m := range disclosed {
		if i < 0 || i >= len(pk.y) {
			return false
		}
		ym := curve.MulG2(&pk.y[i], &m)
		acc = curve.AddG2(&acc, &ym)
	}
	_, g2 := curve.Generators()
	return curve.PairingEqual(s1, &acc, s2, &g2)
}

// Equal reports whether both public keys are the same.
func (pk *RandSigPK) Equal(other *RandSigPK) bool {
	if pk == nil || other == nil {
		return pk == other
	}
	return bytes.Equal(pk.Marshal(), other.Marshal())
}

// Marshal encodes the public key as version, attribute count, X and Y_i in
// compressed form.
func (pk *RandSigPK) Marshal() []byte {
	var buf bytes.Buffer
	buf.WriteByte(keyEncodingVersion)
	buf.WriteByte(byte(len(pk.y)))
	buf.Write(curve.EncodeG2(&pk.x))
	for i := range pk.y {
		buf.Write(curve.EncodeG2(&pk.y[i]))
	}
	return buf.Bytes()
}

// UnmarshalRandSigPK decodes a public key encoded with Marshal.
func UnmarshalRandSigPK(data []byte) (*RandSigPK, error) {
	n, off, err := readKeyHeader(data, curve.G2Size)
	if err != nil {
		return nil, err
	}
	pk := &RandSigPK{y: make([]bn254.G2Affine, n)}
	if pk.x, err = curve.DecodeG2(data[off : off+curve.G2Size]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	for i := 0; i < n; i++ {
		off += curve.G2Size
		if pk.y[i], err = curve.DecodeG2(data[off : off+curve.G2Size]); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
		}
	}
	return pk, nil
}

// readKeyHeader checks the version and attribute count of an encoded key
// made of n+1 elements of elemSize bytes each. It returns the attribute
// count and the offset of the first element.
func readKeyHeader(data []byte, elemSize int) (int, int, error) {
	off := 0
	version, err := readU8(data, &off)
	if err != nil {
		return 0, 0, err
	}
	if version != keyEncodingVersion {
		return 0, 0, fmt.Errorf("%w: unknown key version %d", ErrMalformedInput, version)
	}
	count, err := readU8(data, &off)
	if err != nil {
		return 0, 0, err
	}
	n := int(count)
	if n < 1 || n > maxAttributes {
		return 0, 0, fmt.Errorf("%w: attribute count %d out of range", ErrMalformedInput, n)
	}
	if len(data) != off+(n+1)*elemSize {
		return 0, 0, fmt.Errorf("%w: key length %d does not match %d attributes", ErrMalformedInput, len(data), n)
	}
	return n, off, nil
}

// Randomize returns a new signature over the same attributes,
// (s1^r, s2^r) for a random r, which is unlinkable to sig.
func (sig *RandSig) Randomize() (*RandSig, error) {
	r, err := curve.RandomScalar()
	if err != nil {
		return nil, err
	}
	return &RandSig{
		s1: curve.MulG1(&sig.s1, &r),
		s2: curve.MulG1(&sig.s2, &r),
	}, nil
}

// blind returns the shown form of sig for a hidden set of attributes:
// (s1^r, (s2·s1^t)^r).
func (sig *RandSig) blind(r, t *fr.Element) (bn254.G1Affine, bn254.G1Affine) {
	s1t := curve.MulG1(&sig.s1, t)
	s2 := curve.AddG1(&sig.s2, &s1t)
	return curve.MulG1(&sig.s1, r), curve.MulG1(&s2, r)
}

// Marshal encodes the signature as two compressed G1 points.
func (sig *RandSig) Marshal() []byte {
	return append(curve.EncodeG1(&sig.s1), curve.EncodeG1(&sig.s2)...)
}

// UnmarshalRandSig decodes a signature encoded with Marshal.
func UnmarshalRandSig(data []byte) (*RandSig, error) {
	if len(data) != 2*curve.G1Size {
		return nil, fmt.Errorf("%w: signature length %d", ErrMalformedInput, len(data))
	}
	s1, err := curve.DecodeG1(data[:curve.G1Size])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	s2, err := curve.DecodeG1(data[curve.G1Size:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	return &RandSig{s1: s1, s2: s2}, nil
}
