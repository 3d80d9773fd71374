package utt

import (
	"encoding/hex"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	curve "github.com/vocdoni/utt-core/crypto/ecc/bn254"
)

// NullifierSize is the size of an encoded nullifier.
const NullifierSize = curve.G1Size

// Nullifier is the one-time token revealed when a coin is spent. It is the
// compressed encoding of H_d^(1/(s+sn)), where H_d is the nullifier base of
// the operation domain, s the owner secret and sn the coin serial.
type Nullifier [NullifierSize]byte

// String returns the lowercase hex form of the nullifier.
func (n Nullifier) String() string {
	return hex.EncodeToString(n[:])
}

// Bytes returns a copy of the nullifier bytes.
func (n Nullifier) Bytes() []byte {
	return append([]byte(nil), n[:]...)
}

// ComputeNullifier derives the nullifier of the coin with serial sn owned
// by the holder of secret s, for domain d.
func ComputeNullifier(params *Params, d Domain, s, sn *fr.Element) (Nullifier, error) {
	p, err := nullifierPoint(params, d, s, sn)
	if err != nil {
		return Nullifier{}, err
	}
	var n Nullifier
	copy(n[:], curve.EncodeG1(&p))
	return n, nil
}

func nullifierPoint(params *Params, d Domain, s, sn *fr.Element) (bn254.G1Affine, error) {
	h, err := params.NullifierBase(d)
	if err != nil {
		return bn254.G1Affine{}, err
	}
	var e fr.Element
	e.Add(s, sn)
	if e.IsZero() {
		return bn254.G1Affine{}, fmt.Errorf("%w: degenerate nullifier exponent", ErrInvalidArgument)
	}
	e.Inverse(&e)
	return curve.MulG1(&h, &e), nil
}
