package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/vocdoni/utt-core/util"
)

const (
	// ModeGCM is the name of the GCM mode.
	ModeGCM = "gcm"
	// DefaultTagBits is the default GCM authentication tag length.
	DefaultTagBits = 128
	// MinTagBits is the shortest tag accepted.
	MinTagBits = 96
	// NonceSize is the GCM nonce size.
	NonceSize = 12
)

// GCM implements AES-GCM. Any modification of the ciphertext is reported
// as ErrTagMismatch.
type GCM struct {
	kp   *KeyParams
	aead cipher.AEAD
}

// NewGCM returns an AES-GCM mode for kp with a tag of tagBits bits, which
// must be a multiple of 8 between MinTagBits and DefaultTagBits. A fresh
// random nonce is drawn for every encryption, so kp must not carry a fixed
// IV.
func NewGCM(kp *KeyParams, tagBits int) (*GCM, error) {
	if err := kp.validate(); err != nil {
		return nil, err
	}
	if len(kp.IV) != 0 {
		return nil, fmt.Errorf("%w: gcm does not accept a fixed nonce", ErrInvalidKey)
	}
	if tagBits < MinTagBits || tagBits > DefaultTagBits || tagBits%8 != 0 {
		return nil, fmt.Errorf("%w: tag length %d bits", ErrInvalidKey, tagBits)
	}
	block, err := aes.NewCipher(kp.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	aead, err := cipher.NewGCMWithTagSize(block, tagBits/8)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return &GCM{kp: kp, aead: aead}, nil
}

// Name implements Mode.
func (*GCM) Name() string {
	return ModeGCM
}

// TagBits returns the tag length in bits.
func (m *GCM) TagBits() int {
	return m.aead.Overhead() * 8
}

// Encrypt implements Mode.
func (m *GCM) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := util.RandomBytes(NonceSize)
	return m.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt implements Mode.
func (m *GCM) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < NonceSize+m.aead.Overhead() {
		return nil, fmt.Errorf("%w: ciphertext length %d", ErrDecrypt, len(ciphertext))
	}
	nonce, body := ciphertext[:NonceSize], ciphertext[NonceSize:]
	out, err := m.aead.Open(nil, nonce, body, nil)
	if err != nil {
		return nil, ErrTagMismatch
	}
	return out, nil
}
