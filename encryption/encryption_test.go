package encryption

import (
	"bytes"
	"errors"
	"testing"
)

var algorithms = []Algorithm{AlgorithmChaCha20, AlgorithmAESGCM}

func TestNew(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Error("expected an error for an empty passphrase")
	}
	if _, err := New("k", WithAlgorithm("rot13")); err == nil {
		t.Error("expected an error for an unknown algorithm")
	}
	if _, err := New("k"); err != nil {
		t.Fatalf("New: %v", err)
	}
}

func TestSealOpen(t *testing.T) {
	tests := []struct {
		name      string
		plaintext []byte
		aad       []byte
	}{
		{"token", []byte(`{"token":"eyJhbGciOi","expires_at":"2026-10-19T12:00:00Z"}`), []byte("https://relay.example.com")},
		{"empty plaintext", []byte{}, nil},
		{"binary", []byte{0, 1, 2, 0xff}, []byte("ctx")},
	}
	for _, alg := range algorithms {
		s, err := New("passphrase", WithAlgorithm(alg))
		if err != nil {
			t.Fatalf("New(%s): %v", alg, err)
		}
		for _, tc := range tests {
			t.Run(string(alg)+"/"+tc.name, func(t *testing.T) {
				sealed, err := s.Seal(tc.plaintext, tc.aad)
				if err != nil {
					t.Fatalf("Seal: %v", err)
				}
				if len(tc.plaintext) > 0 && bytes.Contains(sealed, tc.plaintext) {
					t.Error("sealed output contains the plaintext")
				}
				got, err := s.Open(sealed, tc.aad)
				if err != nil {
					t.Fatalf("Open: %v", err)
				}
				if !bytes.Equal(got, tc.plaintext) {
					t.Errorf("got %q, want %q", got, tc.plaintext)
				}
			})
		}
	}
}

func TestSeal_FreshNonce(t *testing.T) {
	s, _ := New("passphrase")
	a, _ := s.Seal([]byte("same"), nil)
	b, _ := s.Seal([]byte("same"), nil)
	if bytes.Equal(a, b) {
		t.Error("sealing twice should produce different output")
	}
}

func TestOpen_Rejects(t *testing.T) {
	for _, alg := range algorithms {
		t.Run(string(alg), func(t *testing.T) {
			s, _ := New("passphrase", WithAlgorithm(alg))
			other, _ := New("other", WithAlgorithm(alg))
			sealed, err := s.Seal([]byte("secret"), []byte("relay-a"))
			if err != nil {
				t.Fatalf("Seal: %v", err)
			}

			if _, err := other.Open(sealed, []byte("relay-a")); !errors.Is(err, ErrTampered) {
				t.Errorf("wrong key: expected ErrTampered, got %v", err)
			}
			if _, err := s.Open(sealed, []byte("relay-b")); !errors.Is(err, ErrTampered) {
				t.Errorf("wrong additional data: expected ErrTampered, got %v", err)
			}
			flipped := append([]byte(nil), sealed...)
			flipped[len(flipped)-1] ^= 1
			if _, err := s.Open(flipped, []byte("relay-a")); !errors.Is(err, ErrTampered) {
				t.Errorf("flipped bit: expected ErrTampered, got %v", err)
			}
			if _, err := s.Open(sealed[:5], nil); err == nil || errors.Is(err, ErrTampered) {
				t.Errorf("short input: expected a length error, got %v", err)
			}
		})
	}
}
