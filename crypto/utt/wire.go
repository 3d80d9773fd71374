package utt

import (
	"encoding/binary"
	"fmt"
)

func readU8(b []byte, off *int) (uint8, error) {
	if *off+1 > len(b) {
		return 0, fmt.Errorf("%w: unexpected EOF (u8)", ErrMalformedInput)
	}
	v := b[*off]
	*off++
	return v, nil
}

func readU16(b []byte, off *int) (uint16, error) {
	if *off+2 > len(b) {
		return 0, fmt.Errorf("%w: unexpected EOF (u16)", ErrMalformedInput)
	}
	v := binary.BigEndian.Uint16(b[*off : *off+2])
	*off += 2
	return v, nil
}

func readU64(b []byte, off *int) (uint64, error) {
	if *off+8 > len(b) {
		return 0, fmt.Errorf("%w: unexpected EOF (u64)", ErrMalformedInput)
	}
	v := binary.BigEndian.Uint64(b[*off : *off+8])
	*off += 8
	return v, nil
}

func readBytes(b []byte, off *int, n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative length", ErrMalformedInput)
	}
	if *off+n > len(b) {
		return nil, fmt.Errorf("%w: unexpected EOF (bytes)", ErrMalformedInput)
	}
	v := b[*off : *off+n]
	*off += n
	return v, nil
}

func appendU16(b []byte, v uint16) []byte {
	return binary.BigEndian.AppendUint16(b, v)
}

func appendU64(b []byte, v uint64) []byte {
	return binary.BigEndian.AppendUint64(b, v)
}
