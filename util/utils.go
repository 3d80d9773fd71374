// Package util holds small helpers shared by the node packages and tests.
package util

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"strings"
)

// RandomBytes returns n bytes read from the system CSPRNG. It panics if the
// CSPRNG fails, since nothing sensible can continue after that.
func RandomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// RandomHex returns the lowercase hex form of n random bytes.
func RandomHex(n int) string {
	return hex.EncodeToString(RandomBytes(n))
}

// RandomUint64 returns a random value in [0, limit). The small modulo bias
// is irrelevant for the test amounts it draws.
func RandomUint64(limit uint64) uint64 {
	if limit == 0 {
		return 0
	}
	return binary.BigEndian.Uint64(RandomBytes(8)) % limit
}

// TrimHex strips an optional 0x or 0X prefix.
func TrimHex(s string) string {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s[2:]
	}
	return s
}
