package utt

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	curve "github.com/vocdoni/utt-core/crypto/ecc/bn254"
)

// Encoding of a BurnOp, version 1. Integers are big-endian, points are
// compressed and scalars canonical.
//
//	version u8 | kind u8 | value u64 | pidLen u16 | pid
//	N | σ'1 | σ'2 | ρ'1 | ρ'2     (G1, 32 bytes each)
//	κ | κ_r                       (G2, 64 bytes each)
//	c | zT1 | zSn | zT2 | zS      (scalars, 32 bytes each)
const (
	BurnEncodingVersion = 1

	opKindBurn = 1

	burnHeaderSize = 1 + 1 + 8 + 2
	burnBodySize   = 5*curve.G1Size + 2*curve.G2Size + 5*curve.ScalarSize
)

// encodeStatement encodes the header and the group elements, the part of
// the operation hashed into the challenge.
func (b *BurnOp) encodeStatement() []byte {
	buf := make([]byte, 0, burnHeaderSize+len(b.pid)+burnBodySize)
	buf = append(buf, BurnEncodingVersion, opKindBurn)
	buf = appendU64(buf, b.value)
	buf = appendU16(buf, uint16(len(b.pid)))
	buf = append(buf, b.pid...)
	for _, p := range []*bn254.G1Affine{&b.nullifier, &b.coinSig1, &b.coinSig2, &b.regSig1, &b.regSig2} {
		buf = append(buf, curve.EncodeG1(p)...)
	}
	buf = append(buf, curve.EncodeG2(&b.kappa)...)
	return append(buf, curve.EncodeG2(&b.kappaReg)...)
}

func (b *BurnOp) encode() []byte {
	buf := b.encodeStatement()
	for _, s := range b.proof.scalars() {
		buf = append(buf, curve.EncodeScalar(s)...)
	}
	return buf
}

func (p *burnProof) scalars() []*fr.Element {
	return []*fr.Element{&p.c, &p.zT1, &p.zSn, &p.zT2, &p.zS}
}

// Bytes returns a copy of the encoded operation, or nil if b is not
// constructed.
func (b *BurnOp) Bytes() []byte {
	if !b.IsValid() {
		return nil
	}
	return bytes.Clone(b.enc)
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (b *BurnOp) MarshalBinary() ([]byte, error) {
	if !b.IsValid() {
		return nil, fmt.Errorf("%w: burn operation not constructed", ErrInvalidArgument)
	}
	return b.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. On error b is left
// untouched.
func (b *BurnOp) UnmarshalBinary(data []byte) error {
	nb, err := DecodeBurnOp(data)
	if err != nil {
		return err
	}
	*b = *nb
	return nil
}

// WriteTo writes the encoded operation to w.
func (b *BurnOp) WriteTo(w io.Writer) (int64, error) {
	if !b.IsValid() {
		return 0, fmt.Errorf("%w: burn operation not constructed", ErrInvalidArgument)
	}
	n, err := w.Write(b.enc)
	return int64(n), err
}

// ReadBurnOp reads exactly one encoded operation from r.
func ReadBurnOp(r io.Reader) (*BurnOp, error) {
	header := make([]byte, burnHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, readError(err)
	}
	off := burnHeaderSize - 2
	pidLen, err := readU16(header, &off)
	if err != nil {
		return nil, err
	}
	if pidLen > MaxPidLen {
		return nil, fmt.Errorf("%w: pid length %d out of range", ErrMalformedInput, pidLen)
	}
	data := make([]byte, burnHeaderSize+int(pidLen)+burnBodySize)
	copy(data, header)
	if _, err := io.ReadFull(r, data[burnHeaderSize:]); err != nil {
		return nil, readError(err)
	}
	return DecodeBurnOp(data)
}

func readError(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: truncated burn operation", ErrMalformedInput)
	}
	return err
}

// DecodeBurnOp decodes an operation encoded by a BurnOp. Either the whole
// buffer decodes into a well formed operation or an error wrapping
// ErrMalformedInput is returned.
func DecodeBurnOp(data []byte) (*BurnOp, error) {
	off := 0
	version, err := readU8(data, &off)
	if err != nil {
		return nil, err
	}
	if version != BurnEncodingVersion {
		return nil, fmt.Errorf("%w: unknown burn encoding version %d", ErrMalformedInput, version)
	}
	kind, err := readU8(data, &off)
	if err != nil {
		return nil, err
	}
	if kind != opKindBurn {
		return nil, fmt.Errorf("%w: unexpected operation kind %d", ErrMalformedInput, kind)
	}
	b := &BurnOp{}
	if b.value, err = readU64(data, &off); err != nil {
		return nil, err
	}
	pidLen, err := readU16(data, &off)
	if err != nil {
		return nil, err
	}
	if pidLen == 0 || pidLen > MaxPidLen {
		return nil, fmt.Errorf("%w: pid length %d out of range", ErrMalformedInput, pidLen)
	}
	pid, err := readBytes(data, &off, int(pidLen))
	if err != nil {
		return nil, err
	}
	b.pid = string(pid)
	if b.pidHash, err = hashPid(b.pid); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if len(data)-off != burnBodySize {
		return nil, fmt.Errorf("%w: body length %d, expected %d", ErrMalformedInput, len(data)-off, burnBodySize)
	}
	for _, p := range []*bn254.G1Affine{&b.nullifier, &b.coinSig1, &b.coinSig2, &b.regSig1, &b.regSig2} {
		buf, _ := readBytes(data, &off, curve.G1Size)
		if *p, err = curve.DecodeG1(buf); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
		}
	}
	for _, p := range []*bn254.G2Affine{&b.kappa, &b.kappaReg} {
		buf, _ := readBytes(data, &off, curve.G2Size)
		if *p, err = curve.DecodeG2(buf); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
		}
	}
	for _, s := range b.proof.scalars() {
		buf, _ := readBytes(data, &off, curve.ScalarSize)
		if *s, err = curve.DecodeScalar(buf); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
		}
	}
	b.valid = true
	b.enc = b.encode()
	// every field is canonical, so anything else means a non canonical
	// point encoding slipped through
	if !bytes.Equal(b.enc, data) {
		return nil, fmt.Errorf("%w: non canonical encoding", ErrMalformedInput)
	}
	return b, nil
}
