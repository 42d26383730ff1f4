package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Tokens is the pair returned by POST /token/.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type tokenStore struct {
	path string
}

func newTokenStore(path string) *tokenStore {
	return &tokenStore{path: path}
}

// Load returns the stored pair, or an empty one when nobody is logged in.
func (s *tokenStore) Load() (Tokens, error) {
	var t Tokens
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return t, nil
	}
	if err != nil {
		return t, fmt.Errorf("read token file: %w", err)
	}
	if err := json.Unmarshal(data, &t); err != nil {
		return Tokens{}, fmt.Errorf("corrupt token file %s: %w", s.path, err)
	}
	return t, nil
}

func (s *tokenStore) Save(t Tokens) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

func (s *tokenStore) Clear() error {
	err := os.Remove(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
