// SPDX-License-Identifier: GPL-3.0-only

package services

import (
	"context"
	"devtrust-server/events"
	"devtrust-server/models"
	"errors"
	"strings"
	"sync"
	"testing"
)

type oauthFixture struct {
	clients *ClientService
	codes   *AuthCodeService
	tokens  *TokenService
	user    *models.User
	client  *models.OAuthClient
	secret  string
}

const fixtureRedirectURI = "https://app.example/cb"

func newOAuthFixture(t *testing.T) *oauthFixture {
	t.Helper()
	st, cr := newTestStore(t)
	user := newTestUser(t, st)

	clients := NewClientService(st, cr, events.LogDispatcher{})
	codes := NewAuthCodeService(st, cr)
	tokens := NewTokenService(st, cr, clients, events.LogDispatcher{})

	client, secret, err := clients.CreateClient(context.Background(), user.ID, CreateClientInput{
		Name:         "Acme Importer",
		RedirectURIs: []string{fixtureRedirectURI, "https://app.example/cb2"},
		Scopes:       []string{"read", "write"},
	})
	if err != nil {
		t.Fatalf("CreateClient failed: %v", err)
	}

	return &oauthFixture{
		clients: clients,
		codes:   codes,
		tokens:  tokens,
		user:    user,
		client:  client,
		secret:  secret,
	}
}

func (f *oauthFixture) issueCode(t *testing.T, scopes []string) string {
	t.Helper()
	code, _, err := f.codes.IssueCode(context.Background(), f.user.ID, f.client.ClientID, fixtureRedirectURI, scopes)
	if err != nil {
		t.Fatalf("IssueCode failed: %v", err)
	}
	return code
}

func TestValidateAuthorizeRequest(t *testing.T) {
	f := newOAuthFixture(t)
	ctx := context.Background()

	if _, err := f.codes.ValidateAuthorizeRequest(ctx, f.client.ClientID, fixtureRedirectURI, []string{"read"}); err != nil {
		t.Fatalf("ValidateAuthorizeRequest failed for valid request: %v", err)
	}

	if _, err := f.codes.ValidateAuthorizeRequest(ctx, "oc_missing", fixtureRedirectURI, []string{"read"}); !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("Expected ErrInvalidCredential for unknown client, got %v", err)
	}

	var validationErr *ValidationError
	if _, err := f.codes.ValidateAuthorizeRequest(ctx, f.client.ClientID, "https://evil.example/cb", []string{"read"}); !errors.As(err, &validationErr) {
		t.Errorf("Expected ValidationError for foreign redirect URI, got %v", err)
	}
	// Exact match only: a path suffix on an allowed URI is still foreign.
	if _, err := f.codes.ValidateAuthorizeRequest(ctx, f.client.ClientID, fixtureRedirectURI+"/extra", []string{"read"}); !errors.As(err, &validationErr) {
		t.Errorf("Expected ValidationError for suffixed redirect URI, got %v", err)
	}
	if _, err := f.codes.ValidateAuthorizeRequest(ctx, f.client.ClientID, fixtureRedirectURI, nil); !errors.As(err, &validationErr) {
		t.Errorf("Expected ValidationError for empty scopes, got %v", err)
	}

	var scopeErr *ScopeError
	if _, err := f.codes.ValidateAuthorizeRequest(ctx, f.client.ClientID, fixtureRedirectURI, []string{"read", "admin"}); !errors.As(err, &scopeErr) {
		t.Fatalf("Expected ScopeError for disallowed scope, got %v", err)
	}
	if len(scopeErr.Scopes) != 1 || scopeErr.Scopes[0] != "admin" {
		t.Errorf("Expected offending scope [admin], got %v", scopeErr.Scopes)
	}
}

func TestCodeExchange(t *testing.T) {
	f := newOAuthFixture(t)
	ctx := context.Background()

	code := f.issueCode(t, []string{"read"})
	if !strings.HasPrefix(code, "acx_") {
		t.Errorf("Expected acx_ prefix on code, got %q", code)
	}

	pair, err := f.tokens.ExchangeCode(ctx, code, f.client.ClientID, f.secret, fixtureRedirectURI)
	if err != nil {
		t.Fatalf("ExchangeCode failed: %v", err)
	}
	if pair.TokenType != "Bearer" {
		t.Errorf("Expected Bearer token type, got %q", pair.TokenType)
	}
	if pair.ExpiresIn != int(AccessTokenTTL.Seconds()) {
		t.Errorf("Expected expires_in %d, got %d", int(AccessTokenTTL.Seconds()), pair.ExpiresIn)
	}
	if pair.Scope != "read" {
		t.Errorf("Expected scope read, got %q", pair.Scope)
	}
	if !strings.HasPrefix(pair.AccessToken, "at_") || !strings.HasPrefix(pair.RefreshToken, "rt_") {
		t.Errorf("Unexpected token prefixes: %q %q", pair.AccessToken, pair.RefreshToken)
	}

	token, err := f.tokens.VerifyAccessToken(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccessToken failed: %v", err)
	}
	if token.UserID != f.user.ID || token.ClientID != f.client.ClientID {
		t.Error("Token should carry the granting user and client")
	}

	// Single use: the same code cannot be exchanged twice.
	if _, err := f.tokens.ExchangeCode(ctx, code, f.client.ClientID, f.secret, fixtureRedirectURI); !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("Expected ErrInvalidCredential for reused code, got %v", err)
	}
}

func TestCodeExchangeRejections(t *testing.T) {
	f := newOAuthFixture(t)
	ctx := context.Background()

	code := f.issueCode(t, []string{"read"})

	if _, err := f.tokens.ExchangeCode(ctx, code, f.client.ClientID, "ocs_wrong", fixtureRedirectURI); !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("Expected ErrInvalidCredential for wrong secret, got %v", err)
	}
	if _, err := f.tokens.ExchangeCode(ctx, code, f.client.ClientID, f.secret, "https://app.example/cb2"); !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("Expected ErrInvalidCredential for redirect mismatch, got %v", err)
	}
	if _, err := f.tokens.ExchangeCode(ctx, "acx_unknown", f.client.ClientID, f.secret, fixtureRedirectURI); !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("Expected ErrInvalidCredential for unknown code, got %v", err)
	}

	// A second client cannot redeem the first client's code.
	other, otherSecret, err := f.clients.CreateClient(ctx, f.user.ID, CreateClientInput{
		Name:         "Other App",
		RedirectURIs: []string{fixtureRedirectURI},
		Scopes:       []string{"read"},
	})
	if err != nil {
		t.Fatalf("CreateClient failed: %v", err)
	}
	if _, err := f.tokens.ExchangeCode(ctx, code, other.ClientID, otherSecret, fixtureRedirectURI); !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("Expected ErrInvalidCredential for foreign client, got %v", err)
	}

	// The failed attempts must not have consumed the code.
	if _, err := f.tokens.ExchangeCode(ctx, code, f.client.ClientID, f.secret, fixtureRedirectURI); err != nil {
		t.Errorf("Code should still be redeemable after rejected attempts: %v", err)
	}
}

func TestRefreshRotation(t *testing.T) {
	f := newOAuthFixture(t)
	ctx := context.Background()

	code := f.issueCode(t, []string{"read", "write"})
	first, err := f.tokens.ExchangeCode(ctx, code, f.client.ClientID, f.secret, fixtureRedirectURI)
	if err != nil {
		t.Fatalf("ExchangeCode failed: %v", err)
	}

	second, err := f.tokens.RefreshAccessToken(ctx, first.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshAccessToken failed: %v", err)
	}
	if second.AccessToken == first.AccessToken || second.RefreshToken == first.RefreshToken {
		t.Error("Rotation should mint fresh tokens")
	}
	if second.Scope != first.Scope {
		t.Errorf("Rotation should preserve scope, got %q", second.Scope)
	}

	if _, err := f.tokens.VerifyAccessToken(ctx, second.AccessToken); err != nil {
		t.Errorf("New access token should verify: %v", err)
	}
	// Lock-step rotation: the old pair is dead.
	if _, err := f.tokens.VerifyAccessToken(ctx, first.AccessToken); !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("Old access token should be revoked, got %v", err)
	}
	if _, err := f.tokens.RefreshAccessToken(ctx, first.RefreshToken); !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("Old refresh token should be unusable, got %v", err)
	}

	if _, err := f.tokens.RefreshAccessToken(ctx, "rt_unknown"); !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("Expected ErrInvalidCredential for unknown refresh token, got %v", err)
	}
}

func TestConcurrentCodeExchange(t *testing.T) {
	f := newOAuthFixture(t)
	ctx := context.Background()

	code := f.issueCode(t, []string{"read"})

	const attempts = 8
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.tokens.ExchangeCode(ctx, code, f.client.ClientID, f.secret, fixtureRedirectURI)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, rejected int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrInvalidCredential):
			rejected++
		default:
			t.Errorf("Unexpected error from concurrent exchange: %v", err)
		}
	}
	if successes != 1 {
		t.Errorf("Exactly one concurrent exchange should succeed, got %d", successes)
	}
	if rejected != attempts-1 {
		t.Errorf("Expected %d rejected exchanges, got %d", attempts-1, rejected)
	}
}

func TestConcurrentRefreshRotation(t *testing.T) {
	f := newOAuthFixture(t)
	ctx := context.Background()

	code := f.issueCode(t, []string{"read"})
	pair, err := f.tokens.ExchangeCode(ctx, code, f.client.ClientID, f.secret, fixtureRedirectURI)
	if err != nil {
		t.Fatalf("ExchangeCode failed: %v", err)
	}

	const attempts = 8
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.tokens.RefreshAccessToken(ctx, pair.RefreshToken)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, rejected int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrInvalidCredential):
			rejected++
		default:
			t.Errorf("Unexpected error from concurrent refresh: %v", err)
		}
	}
	if successes != 1 {
		t.Errorf("Exactly one concurrent refresh should succeed, got %d", successes)
	}
	if rejected != attempts-1 {
		t.Errorf("Expected %d rejected refreshes, got %d", attempts-1, rejected)
	}

	// The presented token is spent regardless of who won the race.
	if _, err := f.tokens.RefreshAccessToken(ctx, pair.RefreshToken); !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("Spent refresh token should stay unusable, got %v", err)
	}
}

func TestRevokeAccessToken(t *testing.T) {
	f := newOAuthFixture(t)
	ctx := context.Background()

	code := f.issueCode(t, []string{"read"})
	pair, err := f.tokens.ExchangeCode(ctx, code, f.client.ClientID, f.secret, fixtureRedirectURI)
	if err != nil {
		t.Fatalf("ExchangeCode failed: %v", err)
	}

	if err := f.tokens.RevokeAccessToken(ctx, pair.AccessToken); err != nil {
		t.Fatalf("RevokeAccessToken failed: %v", err)
	}
	if _, err := f.tokens.VerifyAccessToken(ctx, pair.AccessToken); !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("Expected ErrInvalidCredential after revocation, got %v", err)
	}

	// Idempotent, and silent on unknown tokens.
	if err := f.tokens.RevokeAccessToken(ctx, pair.AccessToken); err != nil {
		t.Errorf("Second revocation should succeed, got %v", err)
	}
	if err := f.tokens.RevokeAccessToken(ctx, "at_unknown"); err != nil {
		t.Errorf("Revoking an unknown token should succeed, got %v", err)
	}
}

func TestRevokeAllClientTokens(t *testing.T) {
	f := newOAuthFixture(t)
	ctx := context.Background()

	var pairs []*TokenPair
	for i := 0; i < 2; i++ {
		code := f.issueCode(t, []string{"read"})
		pair, err := f.tokens.ExchangeCode(ctx, code, f.client.ClientID, f.secret, fixtureRedirectURI)
		if err != nil {
			t.Fatalf("ExchangeCode failed: %v", err)
		}
		pairs = append(pairs, pair)
	}

	revoked, err := f.tokens.RevokeAllClientTokens(ctx, f.user.ID, f.client.ClientID)
	if err != nil {
		t.Fatalf("RevokeAllClientTokens failed: %v", err)
	}
	if revoked != 2 {
		t.Errorf("Expected 2 revoked access tokens, got %d", revoked)
	}

	for _, pair := range pairs {
		if _, err := f.tokens.VerifyAccessToken(ctx, pair.AccessToken); !errors.Is(err, ErrInvalidCredential) {
			t.Errorf("Access token should be revoked, got %v", err)
		}
		if _, err := f.tokens.RefreshAccessToken(ctx, pair.RefreshToken); !errors.Is(err, ErrInvalidCredential) {
			t.Errorf("Refresh token should be revoked, got %v", err)
		}
	}

	if _, err := f.tokens.RevokeAllClientTokens(ctx, f.user.ID, "oc_missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown client, got %v", err)
	}
	if _, err := f.tokens.RevokeAllClientTokens(ctx, f.user.ID+1, f.client.ClientID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for foreign owner, got %v", err)
	}
}
