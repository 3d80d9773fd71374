package utt

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	curve "github.com/vocdoni/utt-core/crypto/ecc/bn254"
	"github.com/vocdoni/utt-core/crypto/hash/poseidon"
)

const (
	coinAttrPid   = 0
	coinAttrSn    = 1
	coinAttrValue = 2
	// CoinAttributes is the number of attributes the bank key signs.
	CoinAttributes = 3
)

// GenerateBankKey creates a new key pair for the coin issuing authority.
func GenerateBankKey() (*RandSigSK, error) {
	return GenerateRandSigKey(CoinAttributes)
}

// NewRandomSerial draws a fresh coin serial number.
func NewRandomSerial() (fr.Element, error) {
	return curve.RandomScalar()
}

// Coin is an issued confidential asset. Its attributes are immutable and
// signed by the bank key.
type Coin struct {
	pid     string
	pidHash fr.Element
	sn      fr.Element
	value   uint64
	sig     *RandSig
}

// IssueCoin signs a new coin of value owned by pid with serial sn.
func IssueCoin(bankSK *RandSigSK, pid string, sn fr.Element, value uint64) (*Coin, error) {
	if bankSK == nil || bankSK.PublicKey().Len() != CoinAttributes {
		return nil, fmt.Errorf("%w: not a bank key", ErrInvalidArgument)
	}
	ph, err := hashPid(pid)
	if err != nil {
		return nil, err
	}
	c := &Coin{pid: pid, pidHash: ph, sn: sn, value: value}
	if c.sig, err = bankSK.Sign(c.attrs()); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Coin) attrs() []fr.Element {
	attrs := make([]fr.Element, CoinAttributes)
	attrs[coinAttrPid] = c.pidHash
	attrs[coinAttrSn] = c.sn
	attrs[coinAttrValue].SetUint64(c.value)
	return attrs
}

// Value returns the amount of the coin.
func (c *Coin) Value() uint64 {
	return c.value
}

// Pid returns the public identifier of the owner.
func (c *Coin) Pid() string {
	return c.pid
}

// Serial returns the serial number of the coin.
func (c *Coin) Serial() fr.Element {
	return c.sn
}

// Verify reports whether the coin signature is valid under bankPK.
func (c *Coin) Verify(bankPK *RandSigPK) bool {
	if c == nil || c.sig == nil || bankPK == nil || bankPK.Len() != CoinAttributes {
		return false
	}
	return bankPK.Verify(c.attrs(), c.sig)
}

// OwnedBy reports whether ask is the address key the coin was issued to.
func (c *Coin) OwnedBy(ask *AddrSK) bool {
	return ask != nil && ask.pid == c.pid && ask.pidHash.Equal(&c.pidHash)
}

// Commitment returns a poseidon commitment to the coin attributes, usable
// as a wallet index. It is not part of any proof.
func (c *Coin) Commitment() (*big.Int, error) {
	attrs := c.attrs()
	inputs := make([]*big.Int, len(attrs))
	for i := range attrs {
		inputs[i] = attrs[i].BigInt(new(big.Int))
	}
	return poseidon.MultiPoseidon(inputs...)
}

// Marshal encodes the coin so a wallet can store it.
func (c *Coin) Marshal() []byte {
	b := []byte{keyEncodingVersion}
	b = appendU64(b, c.value)
	b = appendU16(b, uint16(len(c.pid)))
	b = append(b, c.pid...)
	b = append(b, curve.EncodeScalar(&c.sn)...)
	return append(b, c.sig.Marshal()...)
}

// UnmarshalCoin decodes a coin encoded with Marshal. The signature is not
// verified.
func UnmarshalCoin(data []byte) (*Coin, error) {
	off := 0
	version, err := readU8(data, &off)
	if err != nil {
		return nil, err
	}
	if version != keyEncodingVersion {
		return nil, fmt.Errorf("%w: unknown coin version %d", ErrMalformedInput, version)
	}
	c := &Coin{}
	if c.value, err = readU64(data, &off); err != nil {
		return nil, err
	}
	pidLen, err := readU16(data, &off)
	if err != nil {
		return nil, err
	}
	pid, err := readBytes(data, &off, int(pidLen))
	if err != nil {
		return nil, err
	}
	c.pid = string(pid)
	if c.pidHash, err = hashPid(c.pid); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	sn, err := readBytes(data, &off, curve.ScalarSize)
	if err != nil {
		return nil, err
	}
	if c.sn, err = curve.DecodeScalar(sn); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if c.sig, err = UnmarshalRandSig(data[off:]); err != nil {
		return nil, err
	}
	return c, nil
}
