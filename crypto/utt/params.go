// Package utt implements the anonymous coin core: system parameters,
// registration authority identities, Pointcheval-Sanders randomizable
// signatures, coins and the burn operation with its nullifier.
//
// All the group elements live in the BN254 pairing groups. Coin attributes
// are signed in the order (pidHash, serial, value) and registration
// attributes in the order (pidHash, s).
package utt

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	curve "github.com/vocdoni/utt-core/crypto/ecc/bn254"
)

// DefaultTag is the domain separation tag of the default parameters.
const DefaultTag = "utt/v1"

// Domain identifies the operation type a nullifier is computed for. The
// same coin produces unrelated nullifiers in different domains.
type Domain uint8

const (
	DomainBurn     Domain = 1
	DomainTransfer Domain = 2
)

// String returns the name of the domain.
func (d Domain) String() string {
	switch d {
	case DomainBurn:
		return "burn"
	case DomainTransfer:
		return "transfer"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(d))
	}
}

var domains = []Domain{DomainBurn, DomainTransfer}

// Params holds the immutable system wide parameters. A Params value is safe
// for concurrent use once created.
type Params struct {
	tag            string
	g1             bn254.G1Affine
	g2             bn254.G2Affine
	nullifierBases map[Domain]bn254.G1Affine
}

// NewParams returns the parameters for DefaultTag.
func NewParams() (*Params, error) {
	return NewParamsWithTag(DefaultTag)
}

// NewParamsWithTag derives the parameters for the given domain separation
// tag. Parameters derived from different tags are incompatible with each
// other.
func NewParamsWithTag(tag string) (*Params, error) {
	if tag == "" {
		return nil, fmt.Errorf("%w: empty params tag", ErrInvalidArgument)
	}
	p := &Params{
		tag:            tag,
		nullifierBases: make(map[Domain]bn254.G1Affine, len(domains)),
	}
	p.g1, p.g2 = curve.Generators()
	for _, d := range domains {
		h, err := curve.HashToG1([]byte(d.String()), []byte(tag+"/nullifier"))
		if err != nil {
			return nil, fmt.Errorf("could not derive %s nullifier base: %w", d, err)
		}
		p.nullifierBases[d] = h
	}
	return p, nil
}

// Tag returns the domain separation tag the parameters were derived from.
func (p *Params) Tag() string {
	return p.tag
}

// G1 returns the G1 generator.
func (p *Params) G1() bn254.G1Affine {
	return p.g1
}

// G2 returns the G2 generator.
func (p *Params) G2() bn254.G2Affine {
	return p.g2
}

// NullifierBase returns the G1 base point nullifiers of domain d are
// computed from.
func (p *Params) NullifierBase(d Domain) (bn254.G1Affine, error) {
	h, ok := p.nullifierBases[d]
	if !ok {
		return bn254.G1Affine{}, fmt.Errorf("%w: unknown nullifier domain %s", ErrInvalidArgument, d)
	}
	return h, nil
}

// challengeDST returns the domain separation tag used to derive the
// Fiat-Shamir challenge of the proofs of domain d.
func (p *Params) challengeDST(d Domain) []byte {
	return []byte(p.tag + "/" + d.String() + "/challenge")
}
