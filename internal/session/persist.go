package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
)

// Persister stores the session token across process restarts.
type Persister interface {
	// Load returns the stored token, or nil if none is stored.
	Load() (*oauth2.Token, error)

	// Save stores the token, replacing any previous one.
	Save(token *oauth2.Token) error

	// Clear removes the stored token. Clearing an empty store is not an error.
	Clear() error
}

// FilePersister stores the token as JSON in a file with mode 0600.
type FilePersister struct {
	Path string
}

// Load implements Persister.
func (p FilePersister) Load() (*oauth2.Token, error) {
	data, err := os.ReadFile(p.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("invalid session file: %w", err)
	}
	if token.AccessToken == "" {
		return nil, nil
	}
	return &token, nil
}

// Save implements Persister.
func (p FilePersister) Save(token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(p.Path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p.Path, data, 0600)
}

// Clear implements Persister.
func (p FilePersister) Clear() error {
	err := os.Remove(p.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// MemoryPersister keeps the token in memory. The zero value is empty.
type MemoryPersister struct {
	Token *oauth2.Token
}

// Load implements Persister.
func (p *MemoryPersister) Load() (*oauth2.Token, error) { return p.Token, nil }

// Save implements Persister.
func (p *MemoryPersister) Save(token *oauth2.Token) error {
	p.Token = token
	return nil
}

// Clear implements Persister.
func (p *MemoryPersister) Clear() error {
	p.Token = nil
	return nil
}
