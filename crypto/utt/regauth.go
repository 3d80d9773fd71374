package utt

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	curve "github.com/vocdoni/utt-core/crypto/ecc/bn254"
	"github.com/vocdoni/utt-core/crypto/hash/poseidon"
)

const (
	// MaxPidLen is the maximum length in bytes of a public identifier.
	MaxPidLen = 1024

	regAttrPid = 0
	regAttrS   = 1
	regAttrs   = 2
)

// hashPid maps a public identifier into the scalar field.
func hashPid(pid string) (fr.Element, error) {
	var e fr.Element
	if len(pid) == 0 || len(pid) > MaxPidLen {
		return e, fmt.Errorf("%w: pid length %d out of range", ErrInvalidArgument, len(pid))
	}
	h, err := poseidon.HashBytes([]byte(pid))
	if err != nil {
		return e, fmt.Errorf("could not hash pid: %w", err)
	}
	e.SetBigInt(h)
	return e, nil
}

// RegAuthSK is the secret key of the registration authority. It certifies
// address keys by signing (pidHash, s).
type RegAuthSK struct {
	sk *RandSigSK
}

// RegAuthPK is the public key of the registration authority.
type RegAuthPK struct {
	pk *RandSigPK
}

// GenerateRegAuth creates a new registration authority key pair.
func GenerateRegAuth() (*RegAuthSK, error) {
	sk, err := GenerateRandSigKey(regAttrs)
	if err != nil {
		return nil, err
	}
	return &RegAuthSK{sk: sk}, nil
}

// PublicKey returns the public key of the authority.
func (ra *RegAuthSK) PublicKey() *RegAuthPK {
	return &RegAuthPK{pk: ra.sk.PublicKey()}
}

// Register creates the address key of pid, drawing a fresh secret s and
// certifying it.
func (ra *RegAuthSK) Register(pid string) (*AddrSK, error) {
	s, err := curve.RandomScalar()
	if err != nil {
		return nil, err
	}
	return ra.RegisterWithSecret(pid, s)
}

// RegisterWithSecret certifies an address key for pid with a caller chosen
// secret.
func (ra *RegAuthSK) RegisterWithSecret(pid string, s fr.Element) (*AddrSK, error) {
	ph, err := hashPid(pid)
	if err != nil {
		return nil, err
	}
	attrs := make([]fr.Element, regAttrs)
	attrs[regAttrPid] = ph
	attrs[regAttrS] = s
	sig, err := ra.sk.Sign(attrs)
	if err != nil {
		return nil, err
	}
	return &AddrSK{pid: pid, pidHash: ph, s: s, regSig: sig}, nil
}

// Zeroize overwrites the secret key material.
func (ra *RegAuthSK) Zeroize() {
	ra.sk.Zeroize()
}

// Marshal encodes the secret key.
func (ra *RegAuthSK) Marshal() []byte {
	return ra.sk.Marshal()
}

// UnmarshalRegAuthSK decodes a registration authority secret key.
func UnmarshalRegAuthSK(data []byte) (*RegAuthSK, error) {
	sk, err := UnmarshalRandSigSK(data)
	if err != nil {
		return nil, err
	}
	if sk.PublicKey().Len() != regAttrs {
		return nil, fmt.Errorf("%w: registration key signs %d attributes", ErrMalformedInput, sk.PublicKey().Len())
	}
	return &RegAuthSK{sk: sk}, nil
}

// VerifyAddrSK reports whether ask was certified by this authority.
func (rpk *RegAuthPK) VerifyAddrSK(ask *AddrSK) bool {
	if rpk == nil || rpk.pk == nil || ask == nil || ask.regSig == nil {
		return false
	}
	return rpk.pk.Verify(ask.attrs(), ask.regSig)
}

// Equal reports whether both public keys are the same.
func (rpk *RegAuthPK) Equal(other *RegAuthPK) bool {
	if rpk == nil || other == nil {
		return rpk == other
	}
	return rpk.pk.Equal(other.pk)
}

// Marshal encodes the public key.
func (rpk *RegAuthPK) Marshal() []byte {
	return rpk.pk.Marshal()
}

// UnmarshalRegAuthPK decodes a registration authority public key.
func UnmarshalRegAuthPK(data []byte) (*RegAuthPK, error) {
	pk, err := UnmarshalRandSigPK(data)
	if err != nil {
		return nil, err
	}
	if pk.Len() != regAttrs {
		return nil, fmt.Errorf("%w: registration key signs %d attributes", ErrMalformedInput, pk.Len())
	}
	return &RegAuthPK{pk: pk}, nil
}

// AddrSK is the secret address key of a holder: its public identifier, the
// secret s that nullifiers are derived from, and the registration
// signature over both.
type AddrSK struct {
	pid     string
	pidHash fr.Element
	s       fr.Element
	regSig  *RandSig
}

// Pid returns the public identifier of the holder.
func (a *AddrSK) Pid() string {
	return a.pid
}

// PidHash returns the public identifier mapped into the scalar field.
func (a *AddrSK) PidHash() fr.Element {
	return a.pidHash
}

func (a *AddrSK) attrs() []fr.Element {
	attrs := make([]fr.Element, regAttrs)
	attrs[regAttrPid] = a.pidHash
	attrs[regAttrS] = a.s
	return attrs
}

// Zeroize overwrites the secret. The key must not be used afterwards.
func (a *AddrSK) Zeroize() {
	a.s.SetZero()
	a.regSig = nil
}

// Marshal encodes the address key so it can be stored encrypted.
func (a *AddrSK) Marshal() []byte {
	b := []byte{keyEncodingVersion}
	b = appendU16(b, uint16(len(a.pid)))
	b = append(b, a.pid...)
	b = append(b, curve.EncodeScalar(&a.s)...)
	return append(b, a.regSig.Marshal()...)
}

// UnmarshalAddrSK decodes an address key encoded with Marshal.
func UnmarshalAddrSK(data []byte) (*AddrSK, error) {
	off := 0
	version, err := readU8(data, &off)
	if err != nil {
		return nil, err
	}
	if version != keyEncodingVersion {
		return nil, fmt.Errorf("%w: unknown address key version %d", ErrMalformedInput, version)
	}
	pidLen, err := readU16(data, &off)
	if err != nil {
		return nil, err
	}
	pid, err := readBytes(data, &off, int(pidLen))
	if err != nil {
		return nil, err
	}
	ph, err := hashPid(string(pid))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	sBytes, err := readBytes(data, &off, curve.ScalarSize)
	if err != nil {
		return nil, err
	}
	s, err := curve.DecodeScalar(sBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	sig, err := UnmarshalRandSig(data[off:])
	if err != nil {
		return nil, err
	}
	return &AddrSK{pid: string(pid), pidHash: ph, s: s, regSig: sig}, nil
}
