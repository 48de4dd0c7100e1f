package token

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kbukum/transcribekit/encryption"
	"github.com/kbukum/transcribekit/logger"
)

// FileStore persists the token sealed on disk so short-lived processes,
// like one CLI run per file, share it. The relay URL is bound in as
// additional data, so a cache written for one relay never serves another.
// Unreadable or tampered files are treated as empty.
type FileStore struct {
	path   string
	sealer encryption.Sealer
	scope  []byte
	log    *logger.Logger

	mu sync.Mutex
}

type fileToken struct {
	Value     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewFileStore returns a FileStore at path for tokens issued by relayURL.
func NewFileStore(path, relayURL string, sealer encryption.Sealer) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("token: cache path is required")
	}
	if sealer == nil {
		return nil, fmt.Errorf("token: cache sealer is required")
	}
	return &FileStore{
		path:   path,
		sealer: sealer,
		scope:  []byte(relayURL),
		log:    logger.Get("token"),
	}, nil
}

func (s *FileStore) Load() (Token, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sealed, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Debug("token cache unreadable", logger.ErrorFields("token-cache", err))
		}
		return Token{}, false
	}
	plain, err := s.sealer.Open(sealed, s.scope)
	if err != nil {
		s.log.Debug("token cache rejected", logger.ErrorFields("token-cache", err))
		return Token{}, false
	}
	var ft fileToken
	if err := json.Unmarshal(plain, &ft); err != nil || ft.Value == "" {
		return Token{}, false
	}
	return Token{Value: ft.Value, ExpiresAt: ft.ExpiresAt}, true
}

func (s *FileStore) Save(t Token) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.write(t); err != nil {
		s.log.Warn("token cache not written", logger.ErrorFields("token-cache", err))
	}
}

func (s *FileStore) write(t Token) error {
	plain, err := json.Marshal(fileToken{Value: t.Value, ExpiresAt: t.ExpiresAt})
	if err != nil {
		return err
	}
	sealed, err := s.sealer.Seal(plain, s.scope)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".token-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(sealed); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

func (s *FileStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		s.log.Warn("token cache not cleared", logger.ErrorFields("token-cache", err))
	}
}
