package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/vocdoni/utt-core/util"
)

// HexBytes is a []byte which encodes as hexadecimal in json, as opposed to
// the base64 default.
type HexBytes []byte

// String returns the lowercase hex representation without prefix.
func (b HexBytes) String() string {
	return hex.EncodeToString(b)
}

// MarshalJSON implements the json.Marshaler interface.
func (b HexBytes) MarshalJSON() ([]byte, error) {
	enc := make([]byte, hex.EncodedLen(len(b))+2)
	enc[0] = '"'
	hex.Encode(enc[1:], b)
	enc[len(enc)-1] = '"'
	return enc, nil
}

// UnmarshalJSON implements the json.Unmarshaler interface. An optional 0x
// prefix is accepted.
func (b *HexBytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid hex string: %w", err)
	}
	decoded, err := hex.DecodeString(util.TrimHex(s))
	if err != nil {
		return fmt.Errorf("could not decode hex string: %w", err)
	}
	*b = decoded
	return nil
}

// HexStringToHexBytes converts a hex string (with or without 0x) to HexBytes.
func HexStringToHexBytes(s string) (HexBytes, error) {
	b, err := hex.DecodeString(util.TrimHex(s))
	if err != nil {
		return nil, err
	}
	return b, nil
}
