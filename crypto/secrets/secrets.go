// Package secrets encrypts key material at rest with AES. Two block cipher
// modes are provided behind the Mode interface: CBC with PKCS#7 padding and
// GCM with a configurable authentication tag size. The random IV or nonce
// used by each encryption is prepended to the ciphertext.
package secrets

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/vocdoni/utt-core/util"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the size of the AES-256 keys derived by NewKeyParams.
	KeySize = 32
	// SaltSize is the size of the random salts generated by NewSalt.
	SaltSize = 16
	// pbkdf2Iterations is the number of PBKDF2 rounds used to derive keys
	// from passwords.
	pbkdf2Iterations = 4096
)

var (
	// ErrInvalidKey is returned when the key or IV size is not valid for
	// the mode.
	ErrInvalidKey = errors.New("invalid key parameters")
	// ErrDecrypt is returned when a ciphertext cannot be decrypted, for
	// example because of a bad length or bad padding.
	ErrDecrypt = errors.New("decryption failed")
	// ErrTagMismatch is returned by authenticated modes when the ciphertext
	// or its tag were modified, or the key is wrong.
	ErrTagMismatch = errors.New("authentication tag mismatch")
)

// Mode is a symmetric encryption mode.
type Mode interface {
	// Encrypt returns the ciphertext of plaintext, prefixed by the IV or
	// nonce used.
	Encrypt(plaintext []byte) ([]byte, error)
	// Decrypt reverses Encrypt.
	Decrypt(ciphertext []byte) ([]byte, error)
	// Name returns the mode identifier accepted by New.
	Name() string
}

// KeyParams holds the AES key and, optionally, a fixed IV for CBC. When IV
// is empty a random one is drawn for every encryption. GCM never takes a
// fixed IV.
type KeyParams struct {
	Key []byte
	IV  []byte
}

// NewKeyParams derives an AES-256 key from a password and salt with
// PBKDF2-SHA256.
func NewKeyParams(password string, salt []byte) (*KeyParams, error) {
	if password == "" {
		return nil, fmt.Errorf("%w: empty password", ErrInvalidKey)
	}
	if len(salt) == 0 {
		return nil, fmt.Errorf("%w: empty salt", ErrInvalidKey)
	}
	return &KeyParams{
		Key: pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, KeySize, sha256.New),
	}, nil
}

// NewSalt returns a random salt suitable for NewKeyParams.
func NewSalt() []byte {
	return util.RandomBytes(SaltSize)
}

// Zeroize overwrites the key material.
func (kp *KeyParams) Zeroize() {
	clear(kp.Key)
	clear(kp.IV)
}

func (kp *KeyParams) validate() error {
	if kp == nil {
		return fmt.Errorf("%w: missing key params", ErrInvalidKey)
	}
	switch len(kp.Key) {
	case 16, 24, 32:
		return nil
	default:
		return fmt.Errorf("%w: key size %d", ErrInvalidKey, len(kp.Key))
	}
}

// nextIV returns the fixed IV of kp, or a random one of size n.
func (kp *KeyParams) nextIV(n int) ([]byte, error) {
	if len(kp.IV) == 0 {
		return util.RandomBytes(n), nil
	}
	if len(kp.IV) != n {
		return nil, fmt.Errorf("%w: iv size %d, expected %d", ErrInvalidKey, len(kp.IV), n)
	}
	return append([]byte(nil), kp.IV...), nil
}

// New returns the mode called name ("cbc" or "gcm") for the given key
// params. GCM uses the default 128 bit tag.
func New(name string, kp *KeyParams) (Mode, error) {
	switch name {
	case ModeCBC:
		return NewCBC(kp)
	case ModeGCM:
		return NewGCM(kp, DefaultTagBits)
	default:
		return nil, fmt.Errorf("unknown encryption mode %q", name)
	}
}
