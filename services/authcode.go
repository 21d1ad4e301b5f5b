// SPDX-License-Identifier: GPL-3.0-only

package services

import (
	"context"
	"devtrust-server/crypto"
	"devtrust-server/models"
	"devtrust-server/store"
	"strings"
	"time"
)

// CodeTTL is the absolute lifetime of an authorization code.
const CodeTTL = 10 * time.Minute

type AuthCodeService struct {
	store  *store.Store
	crypto *crypto.Crypto
}

func NewAuthCodeService(st *store.Store, cr *crypto.Crypto) *AuthCodeService {
	return &AuthCodeService{store: st, crypto: cr}
}

// ValidateAuthorizeRequest checks the three preconditions of the authorize
// step, each with its own failure mode: the client must exist and be active
// (ErrInvalidCredential), the redirect URI must be an exact member of the
// allow-list (ValidationError), and every requested scope must be allowed
// (ScopeError carrying the offenders).
func (s *AuthCodeService) ValidateAuthorizeRequest(ctx context.Context, clientID, redirectURI string, scopes []string) (*models.OAuthClient, error) {
	client, err := s.store.ClientByClientID(ctx, clientID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, ErrInvalidCredential
		}
		return nil, err
	}
	if !client.Active {
		return nil, ErrInvalidCredential
	}
	if !client.AllowsRedirectURI(redirectURI) {
		return nil, &ValidationError{Fields: []string{"redirect_uri"}, Message: "not in the client's allow-list"}
	}
	if len(scopes) == 0 {
		return nil, &ValidationError{Fields: []string{"scope"}, Message: "at least one scope is required"}
	}
	if offending := client.DisallowedScopes(scopes); len(offending) > 0 {
		return nil, &ScopeError{Scopes: offending}
	}
	return client, nil
}

// IssueCode validates the request and mints a single-use code with a
// 10-minute expiry. Only the code's digest is stored.
func (s *AuthCodeService) IssueCode(ctx context.Context, userID uint, clientID, redirectURI string, scopes []string) (string, time.Time, error) {
	if _, err := s.ValidateAuthorizeRequest(ctx, clientID, redirectURI, scopes); err != nil {
		return "", time.Time{}, err
	}

	code, err := crypto.GenerateRandomString("acx_", 32, "hex")
	if err != nil {
		return "", time.Time{}, err
	}
	expiresAt := time.Now().Add(CodeTTL)

	row := &models.AuthorizationCode{
		CodeHash:    s.crypto.DigestSecret(code),
		ClientID:    clientID,
		RedirectURI: redirectURI,
		Scopes:      strings.Join(scopes, " "),
		ExpiresAt:   expiresAt,
		Used:        false,
		UserID:      userID,
	}
	if err := s.store.CreateAuthorizationCode(ctx, row); err != nil {
		return "", time.Time{}, err
	}
	return code, expiresAt, nil
}
