package utt

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/ethereum/go-ethereum/crypto"
	curve "github.com/vocdoni/utt-core/crypto/ecc/bn254"
)

// BurnOp publicly reveals the value and owner of a coin while proving, in
// zero knowledge, that the coin was issued by the bank, that the revealed
// owner holds a registered address key and that the exposed nullifier
// belongs to that coin and key.
//
// The proof shows both signatures in blinded form, as (σ1^r, (σ2·σ1^t)^r)
// together with a G2 commitment κ = g2^t·Y_j^m_j to the hidden attribute
// (the serial for the coin, the secret s for the registration). A
// Fiat-Shamir sigma protocol proves knowledge of t1, sn, t2 and s such that
// κ and κ_r open to them and N^(s+sn) equals the burn nullifier base.
//
// A BurnOp is immutable. The zero value is the "not constructed" state:
// its accessors return zero values and Validate always fails.
type BurnOp struct {
	valid bool

	value   uint64
	pid     string
	pidHash fr.Element

	nullifier bn254.G1Affine
	coinSig1  bn254.G1Affine
	coinSig2  bn254.G1Affine
	regSig1   bn254.G1Affine
	regSig2   bn254.G1Affine
	kappa     bn254.G2Affine
	kappaReg  bn254.G2Affine
	proof     burnProof

	// enc caches the canonical encoding.
	enc []byte
}

// burnProof holds the Fiat-Shamir challenge and the sigma protocol
// responses z = a - c·w for each witness.
type burnProof struct {
	c   fr.Element
	zT1 fr.Element
	zSn fr.Element
	zT2 fr.Element
	zS  fr.Element
}

// NewBurnOp builds the burn of coin by the holder of ask. It fails with
// ErrInvalidArgument if the coin does not verify under bankPK, if ask is
// not the coin owner or if ask is not certified under regPK.
func NewBurnOp(params *Params, ask *AddrSK, coin *Coin, bankPK *RandSigPK, regPK *RegAuthPK) (*BurnOp, error) {
	switch {
	case params == nil:
		return nil, fmt.Errorf("%w: missing params", ErrInvalidArgument)
	case ask == nil || ask.regSig == nil:
		return nil, fmt.Errorf("%w: missing address key", ErrInvalidArgument)
	case coin == nil:
		return nil, fmt.Errorf("%w: missing coin", ErrInvalidArgument)
	case bankPK == nil || bankPK.Len() != CoinAttributes:
		return nil, fmt.Errorf("%w: not a bank public key", ErrInvalidArgument)
	case regPK == nil || regPK.pk == nil || regPK.pk.Len() != regAttrs:
		return nil, fmt.Errorf("%w: not a registration public key", ErrInvalidArgument)
	}
	if !coin.Verify(bankPK) {
		return nil, fmt.Errorf("%w: coin signature does not verify under the bank key", ErrInvalidArgument)
	}
	if !coin.OwnedBy(ask) {
		return nil, fmt.Errorf("%w: address key of %q does not own the coin", ErrInvalidArgument, ask.pid)
	}
	if !regPK.VerifyAddrSK(ask) {
		return nil, fmt.Errorf("%w: address key is not registered", ErrInvalidArgument)
	}
	null, err := nullifierPoint(params, DomainBurn, &ask.s, &coin.sn)
	if err != nil {
		return nil, err
	}

	// blinding factors and sigma protocol nonces
	rnd := make([]fr.Element, 8)
	for i := range rnd {
		if rnd[i], err = curve.RandomScalar(); err != nil {
			return nil, err
		}
	}
	r1, t1, r2, t2 := &rnd[0], &rnd[1], &rnd[2], &rnd[3]
	aT1, aSn, aT2, aS := &rnd[4], &rnd[5], &rnd[6], &rnd[7]

	b := &BurnOp{
		value:     coin.value,
		pid:       coin.pid,
		pidHash:   coin.pidHash,
		nullifier: null,
	}
	g2 := params.G2()
	ySn := &bankPK.y[coinAttrSn]
	yS := &regPK.pk.y[regAttrS]

	b.coinSig1, b.coinSig2 = coin.sig.blind(r1, t1)
	b.regSig1, b.regSig2 = ask.regSig.blind(r2, t2)
	b.kappa = commitG2(&g2, t1, ySn, &coin.sn)
	b.kappaReg = commitG2(&g2, t2, yS, &ask.s)

	k1 := commitG2(&g2, aT1, ySn, aSn)
	k2 := commitG2(&g2, aT2, yS, aS)
	var aSum fr.Element
	aSum.Add(aS, aSn)
	k3 := curve.MulG1(&null, &aSum)

	c, err := b.challenge(params, bankPK, regPK, &k1, &k2, &k3)
	if err != nil {
		return nil, err
	}
	b.proof = burnProof{
		c:   c,
		zT1: response(aT1, &c, t1),
		zSn: response(aSn, &c, &coin.sn),
		zT2: response(aT2, &c, t2),
		zS:  response(aS, &c, &ask.s),
	}
	for i := range rnd {
		rnd[i].SetZero()
	}
	b.valid = true
	b.enc = b.encode()
	return b, nil
}

// commitG2 returns g^a·y^m.
func commitG2(g *bn254.G2Affine, a *fr.Element, y *bn254.G2Affine, m *fr.Element) bn254.G2Affine {
	ga := curve.MulG2(g, a)
	ym := curve.MulG2(y, m)
	return curve.AddG2(&ga, &ym)
}

// response returns a - c·w.
func response(a, c, w *fr.Element) fr.Element {
	var z fr.Element
	z.Mul(c, w)
	z.Sub(a, &z)
	return z
}

// challenge hashes the public statement and the sigma commitments into the
// Fiat-Shamir challenge.
func (b *BurnOp) challenge(params *Params, bankPK *RandSigPK, regPK *RegAuthPK, k1, k2 *bn254.G2Affine, k3 *bn254.G1Affine) (fr.Element, error) {
	var transcript bytes.Buffer
	transcript.Write(b.encodeStatement())
	transcript.Write(bankPK.Marshal())
	transcript.Write(regPK.Marshal())
	transcript.Write(curve.EncodeG2(k1))
	transcript.Write(curve.EncodeG2(k2))
	transcript.Write(curve.EncodeG1(k3))
	return curve.HashToScalar(transcript.Bytes(), params.challengeDST(DomainBurn))
}

// Validate reports whether the burn is internally sound under the given
// parameters and authority keys. It does not check whether the nullifier
// was already spent.
func (b *BurnOp) Validate(params *Params, bankPK *RandSigPK, regPK *RegAuthPK) bool {
	if b == nil || !b.valid || params == nil {
		return false
	}
	if bankPK == nil || bankPK.Len() != CoinAttributes {
		return false
	}
	if regPK == nil || regPK.pk == nil || regPK.pk.Len() != regAttrs {
		return false
	}
	// structure
	if !b.wellFormed() {
		return false
	}
	// coin signature over the revealed owner and value
	var value fr.Element
	value.SetUint64(b.value)
	coinDisclosed := map[int]fr.Element{
		coinAttrPid:   b.pidHash,
		coinAttrValue: value,
	}
	if !bankPK.verifyBlinded(&b.coinSig1, &b.coinSig2, coinDisclosed, &b.kappa) {
		return false
	}
	// owner registration
	regDisclosed := map[int]fr.Element{regAttrPid: b.pidHash}
	if !regPK.pk.verifyBlinded(&b.regSig1, &b.regSig2, regDisclosed, &b.kappaReg) {
		return false
	}
	// nullifier derivation and knowledge of the hidden attributes
	return b.verifyProof(params, bankPK, regPK)
}

// wellFormed checks group membership of every embedded element. Decoding
// already enforces it; it is checked again so that Validate never depends
// on how the operation was obtained.
func (b *BurnOp) wellFormed() bool {
	for _, p := range []*bn254.G1Affine{&b.nullifier, &b.coinSig1, &b.regSig1} {
		if p.IsInfinity() {
			return false
		}
	}
	for _, p := range []*bn254.G1Affine{&b.nullifier, &b.coinSig1, &b.coinSig2, &b.regSig1, &b.regSig2} {
		if !p.IsInSubGroup() {
			return false
		}
	}
	return b.kappa.IsInSubGroup() && b.kappaReg.IsInSubGroup()
}

func (b *BurnOp) verifyProof(params *Params, bankPK *RandSigPK, regPK *RegAuthPK) bool {
	h, err := params.NullifierBase(DomainBurn)
	if err != nil {
		return false
	}
	g2 := params.G2()
	pr := &b.proof

	// K1 = g2^zT1 · Ysn^zSn · κ^c
	k1 := commitG2(&g2, &pr.zT1, &bankPK.y[coinAttrSn], &pr.zSn)
	kc := curve.MulG2(&b.kappa, &pr.c)
	k1 = curve.AddG2(&k1, &kc)

	// K2 = g2^zT2 · Ys^zS · κ_r^c
	k2 := commitG2(&g2, &pr.zT2, &regPK.pk.y[regAttrS], &pr.zS)
	krc := curve.MulG2(&b.kappaReg, &pr.c)
	k2 = curve.AddG2(&k2, &krc)

	// K3 = N^(zS+zSn) · H^c
	var zSum fr.Element
	zSum.Add(&pr.zS, &pr.zSn)
	k3 := curve.MulG1(&b.nullifier, &zSum)
	hc := curve.MulG1(&h, &pr.c)
	k3 = curve.AddG1(&k3, &hc)

	c, err := b.challenge(params, bankPK, regPK, &k1, &k2, &k3)
	if err != nil {
		return false
	}
	return c.Equal(&pr.c)
}

// IsValid reports whether b holds a constructed or decoded operation.
func (b *BurnOp) IsValid() bool {
	return b != nil && b.valid
}

// Value returns the revealed coin value.
func (b *BurnOp) Value() uint64 {
	if !b.IsValid() {
		return 0
	}
	return b.value
}

// OwnerPid returns the revealed owner identifier.
func (b *BurnOp) OwnerPid() string {
	if !b.IsValid() {
		return ""
	}
	return b.pid
}

// NullifierBytes returns the nullifier exposed by the burn.
func (b *BurnOp) NullifierBytes() Nullifier {
	var n Nullifier
	if b.IsValid() {
		copy(n[:], curve.EncodeG1(&b.nullifier))
	}
	return n
}

// Nullifier returns the lowercase hex form of the nullifier, or an empty
// string for an unconstructed operation.
func (b *BurnOp) Nullifier() string {
	if !b.IsValid() {
		return ""
	}
	return b.NullifierBytes().String()
}

// HashHex returns the keccak256 digest of the encoded operation as
// lowercase hex. It identifies the operation instance.
func (b *BurnOp) HashHex() string {
	if !b.IsValid() {
		return ""
	}
	return hex.EncodeToString(crypto.Keccak256(b.enc))
}

// Size returns the length of the encoded operation.
func (b *BurnOp) Size() int {
	if !b.IsValid() {
		return 0
	}
	return len(b.enc)
}

// Equal reports whether both operations have the same encoding.
func (b *BurnOp) Equal(other *BurnOp) bool {
	return bytes.Equal(b.Bytes(), other.Bytes())
}

// Clone returns an independent copy of b.
func (b *BurnOp) Clone() *BurnOp {
	if b == nil {
		return nil
	}
	cp := *b
	cp.enc = bytes.Clone(b.enc)
	return &cp
}

// String implements fmt.Stringer.
func (b *BurnOp) String() string {
	if !b.IsValid() {
		return "burn{invalid}"
	}
	return fmt.Sprintf("burn{value:%d pid:%q nullifier:%s}", b.value, b.pid, b.Nullifier())
}
