package encryption

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
)

// ErrTampered is returned when sealed data fails authentication.
var ErrTampered = errors.New("encryption: message authentication failed")

type aeadSealer struct {
	aead cipher.AEAD
}

func (s *aeadSealer) Seal(plaintext, additionalData []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("encryption: nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plaintext, additionalData), nil
}

func (s *aeadSealer) Open(sealed, additionalData []byte) ([]byte, error) {
	n := s.aead.NonceSize()
	if len(sealed) < n+s.aead.Overhead() {
		return nil, fmt.Errorf("encryption: sealed data too short (%d bytes)", len(sealed))
	}
	plaintext, err := s.aead.Open(nil, sealed[:n], sealed[n:], additionalData)
	if err != nil {
		return nil, ErrTampered
	}
	return plaintext, nil
}
