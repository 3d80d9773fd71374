package storage

import (
	"errors"
	"fmt"

	"github.com/vocdoni/utt-core/crypto/secrets"
)

// ErrWrongPassword is returned when a stored secret cannot be opened with
// the given password.
var ErrWrongPassword = errors.New("wrong password or corrupted secret")

// SetSecret encrypts secret with a key derived from password and stores it
// under name. A fresh salt is drawn on every call.
func (s *Storage) SetSecret(name, password string, secret []byte) error {
	salt := secrets.NewSalt()
	kp, err := secrets.NewKeyParams(password, salt)
	if err != nil {
		return err
	}
	defer kp.Zeroize()
	mode, err := secrets.New(secrets.ModeGCM, kp)
	if err != nil {
		return err
	}
	ct, err := mode.Encrypt(secret)
	if err != nil {
		return fmt.Errorf("encrypt secret %s: %w", name, err)
	}
	return s.setArtifact(keyPrefix, []byte(name), &EncryptedSecret{
		Mode:       mode.Name(),
		Salt:       salt,
		Ciphertext: ct,
	})
}

// Secret returns the secret stored under name, decrypted with password. It
// returns ErrNotFound if there is no such secret.
func (s *Storage) Secret(name, password string) ([]byte, error) {
	var es EncryptedSecret
	if err := s.getArtifact(keyPrefix, []byte(name), &es); err != nil {
		return nil, err
	}
	kp, err := secrets.NewKeyParams(password, es.Salt)
	if err != nil {
		return nil, err
	}
	defer kp.Zeroize()
	mode, err := secrets.New(es.Mode, kp)
	if err != nil {
		return nil, err
	}
	pt, err := mode.Decrypt(es.Ciphertext)
	if err != nil {
		if errors.Is(err, secrets.ErrTagMismatch) || errors.Is(err, secrets.ErrDecrypt) {
			return nil, ErrWrongPassword
		}
		return nil, err
	}
	return pt, nil
}
