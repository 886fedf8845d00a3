// Package memory is the process local backing used by default and in tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-mock-oauth/store"
)

var _ store.Store = (*Store)(nil)

// Store keeps codes and token pairs in maps guarded by one mutex, so every operation,
// including consume and take, is a single critical section.
//
// Codes are never swept; a long running process grows with every code issued.
type Store struct {
	mu        sync.Mutex
	codes     map[string]store.AuthorizationCode
	byAccess  map[string]store.TokenPair
	byRefresh map[string]string // refresh token to access token
}

func New() *Store {
	return &Store{
		codes:     make(map[string]store.AuthorizationCode),
		byAccess:  make(map[string]store.TokenPair),
		byRefresh: make(map[string]string),
	}
}

func (s *Store) PutCode(_ context.Context, code *store.AuthorizationCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.codes[code.Value]; ok {
		return store.ErrCodeExists
	}
	s.codes[code.Value] = *code
	return nil
}

func (s *Store) ConsumeCode(_ context.Context, value string, now time.Time) (*store.AuthorizationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	code, ok := s.codes[value]
	if !ok {
		return nil, store.ErrCodeNotFound
	}
	if code.Used {
		return nil, store.ErrCodeUsed
	}
	if code.Expired(now) {
		return nil, store.ErrCodeExpired
	}
	code.Used = true
	s.codes[value] = code
	return &code, nil
}

func (s *Store) PutTokens(_ context.Context, pair *store.TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byAccess[pair.AccessToken]; ok {
		return store.ErrTokenExists
	}
	if _, ok := s.byRefresh[pair.RefreshToken]; ok {
		return store.ErrTokenExists
	}
	s.byAccess[pair.AccessToken] = *pair
	s.byRefresh[pair.RefreshToken] = pair.AccessToken
	return nil
}

func (s *Store) GetByAccessToken(_ context.Context, accessToken string) (*store.TokenPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pair, ok := s.byAccess[accessToken]
	if !ok {
		return nil, store.ErrTokenNotFound
	}
	return &pair, nil
}

func (s *Store) TakeByRefreshToken(_ context.Context, refreshToken string) (*store.TokenPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	accessToken, ok := s.byRefresh[refreshToken]
	if !ok {
		return nil, store.ErrTokenNotFound
	}
	pair := s.byAccess[accessToken]
	delete(s.byRefresh, refreshToken)
	delete(s.byAccess, accessToken)
	return &pair, nil
}

func (s *Store) Close() error {
	return nil
}
