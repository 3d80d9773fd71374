package poseidon

import (
	"fmt"
	"math/big"
)

// chunkSize is the number of bytes packed into a single field element. It
// is one byte less than the field size so that every chunk is always lower
// than the modulus.
const chunkSize = 31

// maxBytes is the maximum input accepted by HashBytes, bound by the
// MultiPoseidon input limit (one input is reserved for the length).
const maxBytes = chunkSize * 255

// HashBytes hashes an arbitrary byte string into the BN254 scalar field. The
// input is split in 31 byte big-endian chunks, prefixed by its length, and
// hashed with MultiPoseidon. The length prefix makes the empty string and
// strings with trailing zero bytes hash differently.
func HashBytes(b []byte) (*big.Int, error) {
	if len(b) > maxBytes {
		return nil, fmt.Errorf("input too long: %d bytes (max %d)", len(b), maxBytes)
	}
	inputs := []*big.Int{big.NewInt(int64(len(b)))}
	for i := 0; i < len(b); i += chunkSize {
		end := min(i+chunkSize, len(b))
		inputs = append(inputs, new(big.Int).SetBytes(b[i:end]))
	}
	return MultiPoseidon(inputs...)
}
