package secrets

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/subtle"
	"fmt"
)

// ModeCBC is the name of the CBC mode.
const ModeCBC = "cbc"

// CBC implements AES-CBC with PKCS#7 padding. It provides confidentiality
// only: tampering is detected just when it breaks the padding.
type CBC struct {
	kp    *KeyParams
	block cipher.Block
}

// NewCBC returns an AES-CBC mode for kp.
func NewCBC(kp *KeyParams) (*CBC, error) {
	if err := kp.validate(); err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(kp.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return &CBC{kp: kp, block: block}, nil
}

// Name implements Mode.
func (*CBC) Name() string {
	return ModeCBC
}

// Encrypt implements Mode.
func (m *CBC) Encrypt(plaintext []byte) ([]byte, error) {
	iv, err := m.kp.nextIV(aes.BlockSize)
	if err != nil {
		return nil, err
	}
	padded := pkcs7Pad(plaintext)
	out := make([]byte, aes.BlockSize+len(padded))
	copy(out, iv)
	cipher.NewCBCEncrypter(m.block, iv).CryptBlocks(out[aes.BlockSize:], padded)
	return out, nil
}

// Decrypt implements Mode.
func (m *CBC) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < 2*aes.BlockSize || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext length %d", ErrDecrypt, len(ciphertext))
	}
	iv, body := ciphertext[:aes.BlockSize], ciphertext[aes.BlockSize:]
	out := make([]byte, len(body))
	cipher.NewCBCDecrypter(m.block, iv).CryptBlocks(out, body)
	return pkcs7Unpad(out)
}

func pkcs7Pad(data []byte) []byte {
	n := aes.BlockSize - len(data)%aes.BlockSize
	return append(bytes.Clone(data), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	n := int(data[len(data)-1])
	if n == 0 || n > aes.BlockSize {
		return nil, fmt.Errorf("%w: bad padding", ErrDecrypt)
	}
	pad := data[len(data)-n:]
	if subtle.ConstantTimeCompare(pad, bytes.Repeat([]byte{byte(n)}, n)) != 1 {
		return nil, fmt.Errorf("%w: bad padding", ErrDecrypt)
	}
	return data[:len(data)-n], nil
}
