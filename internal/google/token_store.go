package google

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// ErrTokenNotFound is returned by a TokenStore when no token was persisted
// for a service yet.
var ErrTokenNotFound = errors.New("token not found")

// TokenStore persists OAuth tokens, one per service.
// Saving overwrites whatever was stored before (last write wins).
type TokenStore interface {
	// LoadToken returns the stored token or ErrTokenNotFound.
	LoadToken(svc Service) (*oauth2.Token, error)

	// SaveToken stores tok for svc, replacing any previous token.
	SaveToken(svc Service, tok *oauth2.Token) error
}

// storedToken is the on-disk form: the standard OAuth2 token fields plus the
// scopes the token was granted for.
type storedToken struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
	Scopes       []string  `json:"scopes,omitempty"`
}

// FileTokenStore keeps each service's token in its own JSON file inside Dir.
type FileTokenStore struct {
	Dir string
}

// NewFileTokenStore creates a file based token store rooted at dir.
func NewFileTokenStore(dir string) *FileTokenStore {
	return &FileTokenStore{Dir: dir}
}

// Path returns the token file path for svc.
func (s *FileTokenStore) Path(svc Service) string {
	return filepath.Join(s.Dir, svc.TokenFile())
}

// LoadToken reads the token file for svc.
func (s *FileTokenStore) LoadToken(svc Service) (*oauth2.Token, error) {
	data, err := os.ReadFile(s.Path(svc))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var st storedToken
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to decode token file %s: %w", s.Path(svc), err)
	}
	if st.AccessToken == "" && st.RefreshToken == "" {
		return nil, fmt.Errorf("token file %s holds neither an access nor a refresh token", s.Path(svc))
	}

	return &oauth2.Token{
		AccessToken:  st.AccessToken,
		TokenType:    st.TokenType,
		RefreshToken: st.RefreshToken,
		Expiry:       st.Expiry,
	}, nil
}

// SaveToken writes the token for svc. The file is written next to its final
// location and renamed into place so a crash never leaves a truncated token.
func (s *FileTokenStore) SaveToken(svc Service, tok *oauth2.Token) error {
	if tok == nil {
		return fmt.Errorf("refusing to save nil token for %s", svc)
	}
	if err := os.MkdirAll(s.Dir, 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	data, err := json.MarshalIndent(storedToken{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
		Scopes:       svc.Scopes(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	data = append(data, '\n')

	path := s.Path(svc)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to commit token file: %w", err)
	}

	return nil
}

// MemoryTokenStore is an in-memory TokenStore, used by tests and dry runs.
type MemoryTokenStore struct {
	mu     sync.Mutex
	tokens map[Service]oauth2.Token
	saves  map[Service]int
}

// NewMemoryTokenStore creates an empty in-memory store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{
		tokens: make(map[Service]oauth2.Token),
		saves:  make(map[Service]int),
	}
}

// LoadToken returns a copy of the stored token.
func (m *MemoryTokenStore) LoadToken(svc Service) (*oauth2.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tok, ok := m.tokens[svc]
	if !ok {
		return nil, ErrTokenNotFound
	}
	return &tok, nil
}

// SaveToken stores a copy of tok.
func (m *MemoryTokenStore) SaveToken(svc Service, tok *oauth2.Token) error {
	if tok == nil {
		return fmt.Errorf("refusing to save nil token for %s", svc)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.tokens[svc] = *tok
	m.saves[svc]++
	return nil
}

// SaveCount returns how many times a token was saved for svc.
func (m *MemoryTokenStore) SaveCount(svc Service) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves[svc]
}
