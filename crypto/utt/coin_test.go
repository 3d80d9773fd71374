package utt

import (
	"errors"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
)

// fixture holds the authorities shared by a test.
type fixture struct {
	params *Params
	bank   *RandSigSK
	reg    *RegAuthSK
}

func newFixture(c *qt.C) *fixture {
	params, err := NewParams()
	c.Assert(err, qt.IsNil)
	bank, err := GenerateBankKey()
	c.Assert(err, qt.IsNil)
	reg, err := GenerateRegAuth()
	c.Assert(err, qt.IsNil)
	return &fixture{params: params, bank: bank, reg: reg}
}

// issue registers pid and issues it a coin of the given value.
func (f *fixture) issue(c *qt.C, pid string, value uint64) (*AddrSK, *Coin) {
	ask, err := f.reg.Register(pid)
	c.Assert(err, qt.IsNil)
	sn, err := NewRandomSerial()
	c.Assert(err, qt.IsNil)
	coin, err := IssueCoin(f.bank, pid, sn, value)
	c.Assert(err, qt.IsNil)
	return ask, coin
}

func TestRegisterAddrSK(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)

	ask, err := f.reg.Register("alice")
	c.Assert(err, qt.IsNil)
	c.Assert(ask.Pid(), qt.Equals, "alice")
	c.Assert(f.reg.PublicKey().VerifyAddrSK(ask), qt.IsTrue)

	other, err := GenerateRegAuth()
	c.Assert(err, qt.IsNil)
	c.Assert(other.PublicKey().VerifyAddrSK(ask), qt.IsFalse)

	// same pid, different secrets
	ask2, err := f.reg.Register("alice")
	c.Assert(err, qt.IsNil)
	c.Assert(ask2.s.Equal(&ask.s), qt.IsFalse)
	h1, h2 := ask.PidHash(), ask2.PidHash()
	c.Assert(h1.Equal(&h2), qt.IsTrue)

	_, err = f.reg.Register("")
	c.Assert(errors.Is(err, ErrInvalidArgument), qt.IsTrue)
	_, err = f.reg.Register(strings.Repeat("x", MaxPidLen+1))
	c.Assert(errors.Is(err, ErrInvalidArgument), qt.IsTrue)
}

func TestAddrSKEncodingAndZeroize(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	ask, err := f.reg.Register("bob")
	c.Assert(err, qt.IsNil)

	dec, err := UnmarshalAddrSK(ask.Marshal())
	c.Assert(err, qt.IsNil)
	c.Assert(dec.Pid(), qt.Equals, "bob")
	c.Assert(f.reg.PublicKey().VerifyAddrSK(dec), qt.IsTrue)

	_, err = UnmarshalAddrSK(ask.Marshal()[:10])
	c.Assert(errors.Is(err, ErrMalformedInput), qt.IsTrue)

	ask.Zeroize()
	c.Assert(ask.s.IsZero(), qt.IsTrue)
	c.Assert(f.reg.PublicKey().VerifyAddrSK(ask), qt.IsFalse)
}

func TestRegAuthKeyEncoding(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)

	pk, err := UnmarshalRegAuthPK(f.reg.PublicKey().Marshal())
	c.Assert(err, qt.IsNil)
	c.Assert(pk.Equal(f.reg.PublicKey()), qt.IsTrue)

	sk, err := UnmarshalRegAuthSK(f.reg.Marshal())
	c.Assert(err, qt.IsNil)
	ask, err := sk.Register("carol")
	c.Assert(err, qt.IsNil)
	c.Assert(f.reg.PublicKey().VerifyAddrSK(ask), qt.IsTrue)

	// a bank key is not a registration key
	_, err = UnmarshalRegAuthPK(f.bank.PublicKey().Marshal())
	c.Assert(errors.Is(err, ErrMalformedInput), qt.IsTrue)
	_, err = UnmarshalRegAuthSK(f.bank.Marshal())
	c.Assert(errors.Is(err, ErrMalformedInput), qt.IsTrue)
}

func TestIssueCoin(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	ask, coin := f.issue(c, "alice", 100)

	c.Assert(coin.Value(), qt.Equals, uint64(100))
	c.Assert(coin.Pid(), qt.Equals, "alice")
	c.Assert(coin.Verify(f.bank.PublicKey()), qt.IsTrue)
	c.Assert(coin.OwnedBy(ask), qt.IsTrue)

	other, err := GenerateBankKey()
	c.Assert(err, qt.IsNil)
	c.Assert(coin.Verify(other.PublicKey()), qt.IsFalse)

	bob, err := f.reg.Register("bob")
	c.Assert(err, qt.IsNil)
	c.Assert(coin.OwnedBy(bob), qt.IsFalse)

	// changing the value without issuing again breaks the signature
	forged := *coin
	forged.value = 1000
	c.Assert(forged.Verify(f.bank.PublicKey()), qt.IsFalse)

	// a registration key cannot issue coins
	_, err = IssueCoin(f.reg.sk, "alice", coin.Serial(), 1)
	c.Assert(errors.Is(err, ErrInvalidArgument), qt.IsTrue)
}

func TestCoinEncodingAndCommitment(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	_, coin := f.issue(c, "alice", 7)

	dec, err := UnmarshalCoin(coin.Marshal())
	c.Assert(err, qt.IsNil)
	c.Assert(dec.Verify(f.bank.PublicKey()), qt.IsTrue)
	c.Assert(dec.Value(), qt.Equals, uint64(7))

	cm1, err := coin.Commitment()
	c.Assert(err, qt.IsNil)
	cm2, err := dec.Commitment()
	c.Assert(err, qt.IsNil)
	c.Assert(cm1.Cmp(cm2), qt.Equals, 0)

	_, other := f.issue(c, "alice", 7)
	cm3, err := other.Commitment()
	c.Assert(err, qt.IsNil)
	c.Assert(cm1.Cmp(cm3), qt.Not(qt.Equals), 0)

	_, err = UnmarshalCoin(coin.Marshal()[:20])
	c.Assert(errors.Is(err, ErrMalformedInput), qt.IsTrue)
}
