package client

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/pkg/errors"
)

// Token storage keys, shared by every TokenStorage implementation.
const (
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
)

// TokenStorage persists session tokens between requests (and optionally
// between process runs).
type TokenStorage interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(keys ...string) error
}

// MemoryStorage is a mutex-guarded in-process TokenStorage.
type MemoryStorage struct {
	mu     sync.RWMutex
	tokens map[string]string
}

var _ TokenStorage = (*MemoryStorage)(nil)

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{tokens: make(map[string]string)}
}

func (s *MemoryStorage) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.tokens[key]
	return v, ok
}

func (s *MemoryStorage) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[key] = value
	return nil
}

func (s *MemoryStorage) Delete(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.tokens, k)
	}
	return nil
}

// FileStorage persists tokens as a JSON file, surviving process restarts.
type FileStorage struct {
	mu   sync.Mutex
	path string
}

var _ TokenStorage = (*FileStorage)(nil)

func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

func (s *FileStorage) load() (map[string]string, error) {
	tokens := make(map[string]string)
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return tokens, nil
		}
		return nil, errors.Wrap(err, "reading token file")
	}
	if err = json.Unmarshal(data, &tokens); err != nil {
		return nil, errors.Wrap(err, "parsing token file")
	}
	return tokens, nil
}

func (s *FileStorage) save(tokens map[string]string) error {
	data, err := json.Marshal(tokens)
	if err != nil {
		return errors.Wrap(err, "encoding tokens")
	}
	return errors.Wrap(os.WriteFile(s.path, data, 0o600), "writing token file")
}

func (s *FileStorage) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tokens, err := s.load()
	if err != nil {
		return "", false
	}
	v, ok := tokens[key]
	return v, ok
}

func (s *FileStorage) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tokens, err := s.load()
	if err != nil {
		return err
	}
	tokens[key] = value
	return s.save(tokens)
}

func (s *FileStorage) Delete(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tokens, err := s.load()
	if err != nil {
		return err
	}
	for _, k := range keys {
		delete(tokens, k)
	}
	return s.save(tokens)
}
