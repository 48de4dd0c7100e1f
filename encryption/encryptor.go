package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Sealer encrypts and authenticates byte strings.
type Sealer interface {
	Seal(plaintext, additionalData []byte) ([]byte, error)
	Open(sealed, additionalData []byte) ([]byte, error)
}

// Algorithm names a supported AEAD.
type Algorithm string

const (
	// AlgorithmChaCha20 is ChaCha20-Poly1305, the default.
	AlgorithmChaCha20 Algorithm = "chacha20-poly1305"
	// AlgorithmAESGCM is AES-256-GCM.
	AlgorithmAESGCM Algorithm = "aes-256-gcm"
)

// Option configures New.
type Option func(*options)

type options struct {
	algorithm Algorithm
}

// WithAlgorithm selects the cipher.
func WithAlgorithm(alg Algorithm) Option {
	return func(o *options) { o.algorithm = alg }
}

// New returns a Sealer keyed from passphrase.
func New(passphrase string, opts ...Option) (Sealer, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("encryption: empty passphrase")
	}
	o := &options{algorithm: AlgorithmChaCha20}
	for _, opt := range opts {
		opt(o)
	}

	key := sha256.Sum256([]byte(passphrase))
	var (
		aead cipher.AEAD
		err  error
	)
	switch o.algorithm {
	case AlgorithmChaCha20, "":
		aead, err = chacha20poly1305.New(key[:])
	case AlgorithmAESGCM:
		aead, err = newGCM(key[:])
	default:
		return nil, fmt.Errorf("encryption: unknown algorithm %q", o.algorithm)
	}
	if err != nil {
		return nil, fmt.Errorf("encryption: %s: %w", o.algorithm, err)
	}
	return &aeadSealer{aead: aead}, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
