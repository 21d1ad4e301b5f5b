// SPDX-License-Identifier: GPL-3.0-only

package services

import (
	"context"
	"devtrust-server/crypto"
	"devtrust-server/events"
	"devtrust-server/models"
	"devtrust-server/store"
	"errors"
	"time"
)

const (
	AccessTokenTTL  = time.Hour
	RefreshTokenTTL = 30 * 24 * time.Hour
)

type TokenService struct {
	store   *store.Store
	crypto  *crypto.Crypto
	clients *ClientService
	events  events.Dispatcher
}

func NewTokenService(st *store.Store, cr *crypto.Crypto, clients *ClientService, ev events.Dispatcher) *TokenService {
	return &TokenService{store: st, crypto: cr, clients: clients, events: ev}
}

// TokenPair is the OAuth token response payload. The plaintext values exist
// only in this struct, never in the store.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
}

// mintPair creates a linked access/refresh pair in one transaction and
// returns the plaintexts.
func (s *TokenService) mintPair(ctx context.Context, clientID string, userID uint, scopes string) (*TokenPair, error) {
	accessPlain, err := crypto.GenerateRandomString("at_", 32, "hex")
	if err != nil {
		return nil, err
	}
	refreshPlain, err := crypto.GenerateRandomString("rt_", 32, "hex")
	if err != nil {
		return nil, err
	}

	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		access := &models.AccessToken{
			TokenHash: s.crypto.DigestSecret(accessPlain),
			ClientID:  clientID,
			Scopes:    scopes,
			ExpiresAt: time.Now().Add(AccessTokenTTL),
			UserID:    userID,
		}
		if err := tx.CreateAccessToken(ctx, access); err != nil {
			return err
		}
		refresh := &models.RefreshToken{
			TokenHash:     s.crypto.DigestSecret(refreshPlain),
			AccessTokenID: access.ID,
			ClientID:      clientID,
			Scopes:        scopes,
			ExpiresAt:     time.Now().Add(RefreshTokenTTL),
			UserID:        userID,
		}
		return tx.CreateRefreshToken(ctx, refresh)
	})
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessPlain,
		RefreshToken: refreshPlain,
		TokenType:    "Bearer",
		ExpiresIn:    int(AccessTokenTTL.Seconds()),
		Scope:        scopes,
	}, nil
}

// ExchangeCode swaps an authorization code for a token pair. Marking the
// code used is the commit point: of N concurrent exchanges of the same code
// exactly one passes the conditional update, every other caller fails with
// ErrInvalidCredential.
func (s *TokenService) ExchangeCode(ctx context.Context, code, clientID, clientSecret, redirectURI string) (*TokenPair, error) {
	if _, err := s.clients.VerifyClient(ctx, clientID, clientSecret); err != nil {
		return nil, err
	}

	codeHash := s.crypto.DigestSecret(code)
	row, err := s.store.AuthorizationCodeByHash(ctx, codeHash)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, ErrInvalidCredential
		}
		return nil, err
	}
	if row.ClientID != clientID || row.Used || row.IsExpired() || row.RedirectURI != redirectURI {
		return nil, ErrInvalidCredential
	}

	if err := s.store.ConsumeAuthorizationCode(ctx, codeHash); err != nil {
		if errors.Is(err, store.ErrPreconditionFailed) {
			return nil, ErrInvalidCredential
		}
		return nil, err
	}

	return s.mintPair(ctx, row.ClientID, row.UserID, row.Scopes)
}

// RefreshAccessToken rotates a token pair: the old refresh token and its
// paired access token are revoked and a new pair is minted, all in one
// transaction. Reusing the old refresh token afterwards fails; a revoked
// lineage is never resurrected.
func (s *TokenService) RefreshAccessToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	row, err := s.store.RefreshTokenByHash(ctx, s.crypto.DigestSecret(refreshToken))
	if err != nil {
		if store.IsNotFound(err) {
			return nil, ErrInvalidCredential
		}
		return nil, err
	}
	if row.Revoked || row.IsExpired() {
		return nil, ErrInvalidCredential
	}

	accessPlain, err := crypto.GenerateRandomString("at_", 32, "hex")
	if err != nil {
		return nil, err
	}
	refreshPlain, err := crypto.GenerateRandomString("rt_", 32, "hex")
	if err != nil {
		return nil, err
	}

	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.RevokeRefreshTokenIfActive(ctx, row.ID); err != nil {
			return err
		}
		if err := tx.RevokeAccessToken(ctx, row.AccessTokenID); err != nil {
			return err
		}
		access := &models.AccessToken{
			TokenHash: s.crypto.DigestSecret(accessPlain),
			ClientID:  row.ClientID,
			Scopes:    row.Scopes,
			ExpiresAt: time.Now().Add(AccessTokenTTL),
			UserID:    row.UserID,
		}
		if err := tx.CreateAccessToken(ctx, access); err != nil {
			return err
		}
		refresh := &models.RefreshToken{
			TokenHash:     s.crypto.DigestSecret(refreshPlain),
			AccessTokenID: access.ID,
			ClientID:      row.ClientID,
			Scopes:        row.Scopes,
			ExpiresAt:     time.Now().Add(RefreshTokenTTL),
			UserID:        row.UserID,
		}
		return tx.CreateRefreshToken(ctx, refresh)
	})
	if err != nil {
		if errors.Is(err, store.ErrPreconditionFailed) {
			return nil, ErrInvalidCredential
		}
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessPlain,
		RefreshToken: refreshPlain,
		TokenType:    "Bearer",
		ExpiresIn:    int(AccessTokenTTL.Seconds()),
		Scope:        row.Scopes,
	}, nil
}

// VerifyAccessToken resolves a bearer token. No side effects.
func (s *TokenService) VerifyAccessToken(ctx context.Context, token string) (*models.AccessToken, error) {
	row, err := s.store.AccessTokenByHash(ctx, s.crypto.DigestSecret(token))
	if err != nil {
		if store.IsNotFound(err) {
			return nil, ErrInvalidCredential
		}
		return nil, err
	}
	if row.Revoked || row.IsExpired() {
		return nil, ErrInvalidCredential
	}
	return row, nil
}

// RevokeAccessToken marks the token revoked. Idempotent: revoking an
// unknown or already revoked token is a no-op success.
func (s *TokenService) RevokeAccessToken(ctx context.Context, token string) error {
	row, err := s.store.AccessTokenByHash(ctx, s.crypto.DigestSecret(token))
	if err != nil {
		if store.IsNotFound(err) {
			return nil
		}
		return err
	}
	return s.store.RevokeAccessToken(ctx, row.ID)
}

// RevokeAllClientTokens bulk-revokes every token issued to one of the
// owner's clients, refresh tokens included so the lineage cannot continue.
func (s *TokenService) RevokeAllClientTokens(ctx context.Context, userID uint, clientID string) (int64, error) {
	client, err := s.store.ClientByOwner(ctx, userID, clientID)
	if err != nil {
		if store.IsNotFound(err) {
			return 0, ErrNotFound
		}
		return 0, err
	}

	revoked, err := s.store.RevokeTokensForClient(ctx, client.ClientID)
	if err != nil {
		return 0, err
	}

	s.events.Publish(ctx, events.Event{
		Type:       events.OAuthTokensRevoked,
		OccurredAt: time.Now(),
		Data:       map[string]any{"client_id": client.ClientID, "revoked": revoked},
	})
	return revoked, nil
}
