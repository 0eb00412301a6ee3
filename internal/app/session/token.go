package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/66gu1/thesisportal/internal/infrastructure/logger"
	"github.com/66gu1/thesisportal/internal/infrastructure/secure"
	"golang.org/x/oauth2"
)

// tokenState is the single owner of the access token. Every set and clear bumps
// version, which lets a request tell whether the token it was sent with has been
// superseded in the meantime.
type tokenState struct {
	mu      sync.RWMutex
	token   *oauth2.Token
	claims  secure.AccessTokenClaims
	version uint64
	store   TokenStore
}

func newTokenState(store TokenStore) *tokenState {
	return &tokenState{store: store}
}

// get returns the current token (nil when none is held) and its version.
// The returned token is never mutated.
func (s *tokenState) get() (*oauth2.Token, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.token, s.version
}

func (s *tokenState) currentClaims() (secure.AccessTokenClaims, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.claims, s.token != nil
}

// set replaces the held token, persists it and returns it with its version. A failing
// store is logged and otherwise ignored: the in-memory token stays authoritative.
func (s *tokenState) set(ctx context.Context, accessToken string) (*oauth2.Token, uint64) {
	tok, claims := newToken(accessToken)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.token, s.claims = tok, claims
	s.version++
	if err := s.store.Save(ctx, accessToken); err != nil {
		logger.Error(ctx, err).Msg("session.tokenState.set: store.Save")
	}

	return tok, s.version
}

// restore loads the persisted token into memory when none is held yet.
func (s *tokenState) restore(ctx context.Context) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != nil {
		return s.token, nil
	}

	accessToken, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("tokenState.restore: %w", err)
	}
	if accessToken == "" {
		return nil, nil
	}

	s.token, s.claims = newToken(accessToken)
	s.version++

	return s.token, nil
}

// clear unsets the in-memory token and then the persisted one, under one lock,
// so no reader can observe a half-cleared session.
func (s *tokenState) clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token, s.claims = nil, secure.AccessTokenClaims{}
	s.version++
	if err := s.store.Clear(ctx); err != nil {
		logger.Error(ctx, err).Msg("session.tokenState.clear: store.Clear")
	}
}

func newToken(accessToken string) (*oauth2.Token, secure.AccessTokenClaims) {
	tok := &oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}

	claims, ok := secure.DecodeClaims(accessToken)
	if ok {
		tok.Expiry = claims.Expiry()
	}

	return tok, claims
}
