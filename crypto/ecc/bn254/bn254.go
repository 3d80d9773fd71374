// Package bn254 wraps the gnark-crypto BN254 implementation with the fixed
// size encodings and helpers used by the anonymous coin protocol. Every
// decoding function performs the on-curve and subgroup checks, so callers can
// feed untrusted bytes into it.
package bn254

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

const CurveType = "bn254"

const (
	// G1Size is the size of a compressed G1 point.
	G1Size = bn254.SizeOfG1AffineCompressed
	// G2Size is the size of a compressed G2 point.
	G2Size = bn254.SizeOfG2AffineCompressed
	// ScalarSize is the size of a canonical scalar field element.
	ScalarSize = fr.Bytes
)

var (
	// ErrInvalidPoint is returned when a buffer does not hold a valid group
	// element.
	ErrInvalidPoint = errors.New("invalid group element")
	// ErrInvalidScalar is returned when a buffer does not hold a canonical
	// scalar.
	ErrInvalidScalar = errors.New("invalid scalar")
)

var (
	g1Gen bn254.G1Affine
	g2Gen bn254.G2Affine
)

func init() {
	_, _, g1Gen, g2Gen = bn254.Generators()
}

// Generators returns a copy of the standard G1 and G2 generators.
func Generators() (bn254.G1Affine, bn254.G2Affine) {
	return g1Gen, g2Gen
}

// EncodeG1 returns the compressed encoding of p.
func EncodeG1(p *bn254.G1Affine) []byte {
	b := p.Bytes()
	return b[:]
}

// DecodeG1 decodes a compressed G1 point. The buffer must be exactly G1Size
// bytes long.
func DecodeG1(buf []byte) (bn254.G1Affine, error) {
	var p bn254.G1Affine
	if len(buf) != G1Size {
		return p, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidPoint, G1Size, len(buf))
	}
	n, err := p.SetBytes(buf)
	if err != nil {
		return p, fmt.Errorf("%w: %v", ErrInvalidPoint, err)
	}
	if n != G1Size {
		return p, fmt.Errorf("%w: uncompressed encoding", ErrInvalidPoint)
	}
	return p, nil
}

// EncodeG2 returns the compressed encoding of p.
func EncodeG2(p *bn254.G2Affine) []byte {
	b := p.Bytes()
	return b[:]
}

// DecodeG2 decodes a compressed G2 point. The buffer must be exactly G2Size
// bytes long.
func DecodeG2(buf []byte) (bn254.G2Affine, error) {
	var p bn254.G2Affine
	if len(buf) != G2Size {
		return p, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidPoint, G2Size, len(buf))
	}
	n, err := p.SetBytes(buf)
	if err != nil {
		return p, fmt.Errorf("%w: %v", ErrInvalidPoint, err)
	}
	if n != G2Size {
		return p, fmt.Errorf("%w: uncompressed encoding", ErrInvalidPoint)
	}
	return p, nil
}

// EncodeScalar returns the canonical big-endian encoding of s.
func EncodeScalar(s *fr.Element) []byte {
	b := s.Bytes()
	return b[:]
}

// DecodeScalar decodes a canonical big-endian scalar. Values greater or equal
// than the field modulus are rejected.
func DecodeScalar(buf []byte) (fr.Element, error) {
	var s fr.Element
	if len(buf) != ScalarSize {
		return s, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidScalar, ScalarSize, len(buf))
	}
	if err := s.SetBytesCanonical(buf); err != nil {
		return s, fmt.Errorf("%w: %v", ErrInvalidScalar, err)
	}
	return s, nil
}

// RandomScalar returns a uniformly random non-zero scalar.
func RandomScalar() (fr.Element, error) {
	var s fr.Element
	for s.IsZero() {
		if _, err := s.SetRandom(); err != nil {
			return s, fmt.Errorf("could not sample scalar: %w", err)
		}
	}
	return s, nil
}

// HashToScalar hashes msg into a scalar using the dst domain separation tag.
func HashToScalar(msg, dst []byte) (fr.Element, error) {
	res, err := fr.Hash(msg, dst, 1)
	if err != nil {
		return fr.Element{}, err
	}
	return res[0], nil
}

// HashToG1 hashes msg into a G1 point using the dst domain separation tag.
func HashToG1(msg, dst []byte) (bn254.G1Affine, error) {
	return bn254.HashToG1(msg, dst)
}

// MulG1 returns p^s.
func MulG1(p *bn254.G1Affine, s *fr.Element) bn254.G1Affine {
	var res bn254.G1Affine
	res.ScalarMultiplication(p, s.BigInt(new(big.Int)))
	return res
}

// MulG2 returns p^s.
func MulG2(p *bn254.G2Affine, s *fr.Element) bn254.G2Affine {
	var res bn254.G2Affine
	res.ScalarMultiplication(p, s.BigInt(new(big.Int)))
	return res
}

// AddG1 returns a·b.
func AddG1(a, b *bn254.G1Affine) bn254.G1Affine {
	var res bn254.G1Affine
	res.Add(a, b)
	return res
}

// AddG2 returns a·b.
func AddG2(a, b *bn254.G2Affine) bn254.G2Affine {
	var res bn254.G2Affine
	res.Add(a, b)
	return res
}

// PairingEqual reports whether e(a1, b1) == e(a2, b2).
func PairingEqual(a1 *bn254.G1Affine, b1 *bn254.G2Affine, a2 *bn254.G1Affine, b2 *bn254.G2Affine) bool {
	var na2 bn254.G1Affine
	na2.Neg(a2)
	ok, err := bn254.PairingCheck(
		[]bn254.G1Affine{*a1, na2},
		[]bn254.G2Affine{*b1, *b2},
	)
	return err == nil && ok
}
