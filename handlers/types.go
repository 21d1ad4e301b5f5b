// SPDX-License-Identifier: GPL-3.0-only

package handlers

import "time"

// swagger:model SignupRequest
type SignupRequest struct {
	// Developer's email address
	// required: true
	Email string `json:"email" example:"dev@example.com"`
	// Developer's password
	// required: true
	Password string `json:"password" example:"MySecretPassword@123"`
	// Optional full name
	FullName *string `json:"full_name" example:"Jane Doe"`
}

// swagger:model LoginRequest
type LoginRequest struct {
	// Developer's email address
	Email string `json:"email" example:"dev@example.com"`
	// Developer's password
	Password string `json:"password" example:"MySecretPassword@123"`
}

// swagger:model AuthResponse
type AuthResponse struct {
	// Session token for subsequent authenticated requests.
	// Should be used in the Authorization header as a Bearer token.
	SessionToken string `json:"session_token" example:"sample_session_token"`
	// Message indicating successful operation
	Message string `json:"message" example:"Operation successful"`
}

// swagger:model GenericResponse
type GenericResponse struct {
	// Message indicating the result of the operation
	Message string `json:"message"`
}

// swagger:model ErrorResponse
type ErrorResponse struct {
	Success bool   `json:"success" example:"false"`
	Error   string `json:"error" example:"not_found"`
	Message string `json:"message" example:"API key not found"`
}

// swagger:model OAuthErrorResponse
type OAuthErrorResponse struct {
	Error            string `json:"error" example:"invalid_grant"`
	ErrorDescription string `json:"error_description,omitempty" example:"The provided authorization grant is invalid"`
}

// swagger:model CreateAPIKeyRequest
type CreateAPIKeyRequest struct {
	// Name of the API key
	Name string `json:"name" example:"Production integration"`
	// Description of the API key
	Description *string `json:"description" example:"Key used by the nightly sync job."`
	// Scopes granted to the key
	Scopes []string `json:"scopes" example:"read,write"`
	// Requests allowed per window (default 1000)
	RateLimit *int `json:"rate_limit" example:"1000"`
	// Window length in seconds (default 3600)
	RateLimitWindow *int `json:"rate_limit_window" example:"3600"`
	// Expiration timestamp (optional)
	ExpiresAt *time.Time `json:"expires_at"`
}

// swagger:model APIKeyDetails
type APIKeyDetails struct {
	KeyID           string     `json:"key_id" example:"ak_6b86b273ff34fce1"`
	Name            string     `json:"name" example:"Production integration"`
	Description     *string    `json:"description"`
	Prefix          string     `json:"prefix" example:"sk_6b86b273f"`
	Scopes          []string   `json:"scopes" example:"read,write"`
	RateLimit       int        `json:"rate_limit" example:"1000"`
	RateLimitWindow int        `json:"rate_limit_window" example:"3600"`
	Active          bool       `json:"active" example:"true"`
	LastUsedAt      *time.Time `json:"last_used_at"`
	ExpiresAt       *time.Time `json:"expires_at"`
	CreatedAt       time.Time  `json:"created_at"`
}

// swagger:model CreateAPIKeyResponse
type CreateAPIKeyResponse struct {
	// The plaintext API key. Shown exactly once; it is not retrievable later.
	APIKey  string        `json:"api_key" example:"sk_6b86b273ff34fce19d6b804eff5a3f57..."`
	Key     APIKeyDetails `json:"key"`
	Message string        `json:"message" example:"API key created successfully. Store the key now; it will not be shown again."`
}

// swagger:model APIKeyListResponse
type APIKeyListResponse struct {
	Data    []APIKeyDetails `json:"data"`
	Message string          `json:"message" example:"API keys retrieved successfully"`
}

// swagger:model UpdateAPIKeyRequest
type UpdateAPIKeyRequest struct {
	Name            *string    `json:"name"`
	Description     *string    `json:"description"`
	Scopes          []string   `json:"scopes"`
	RateLimit       *int       `json:"rate_limit"`
	RateLimitWindow *int       `json:"rate_limit_window"`
	ExpiresAt       *time.Time `json:"expires_at"`
}

// swagger:model CreateOAuthClientRequest
type CreateOAuthClientRequest struct {
	// Application name
	Name string `json:"name" example:"Acme Importer"`
	// Application description
	Description *string `json:"description"`
	// Exact-match redirect URI allow-list
	RedirectURIs []string `json:"redirect_uris" example:"https://app.example/cb"`
	// Scope allow-list
	Scopes []string `json:"scopes" example:"read"`
}

// swagger:model OAuthClientDetails
type OAuthClientDetails struct {
	ClientID     string    `json:"client_id" example:"oc_6b86b273ff34fce1"`
	Name         string    `json:"name" example:"Acme Importer"`
	Description  *string   `json:"description"`
	RedirectURIs []string  `json:"redirect_uris"`
	Scopes       []string  `json:"scopes"`
	Active       bool      `json:"active" example:"true"`
	CreatedAt    time.Time `json:"created_at"`
}

// swagger:model CreateOAuthClientResponse
type CreateOAuthClientResponse struct {
	// The plaintext client secret. Shown exactly once.
	ClientSecret string             `json:"client_secret" example:"ocs_..."`
	Client       OAuthClientDetails `json:"client"`
	Message      string             `json:"message" example:"OAuth client created successfully. Store the secret now; it will not be shown again."`
}

// swagger:model OAuthClientListResponse
type OAuthClientListResponse struct {
	Data    []OAuthClientDetails `json:"data"`
	Message string               `json:"message" example:"OAuth clients retrieved successfully"`
}

// swagger:model UpdateOAuthClientRequest
type UpdateOAuthClientRequest struct {
	Name         *string  `json:"name"`
	Description  *string  `json:"description"`
	RedirectURIs []string `json:"redirect_uris"`
	Scopes       []string `json:"scopes"`
	Active       *bool    `json:"active"`
}

// swagger:model RevokeTokensResponse
type RevokeTokensResponse struct {
	Revoked int64  `json:"revoked" example:"4"`
	Message string `json:"message" example:"Client tokens revoked successfully"`
}

// swagger:model AuthorizeDetailsResponse
type AuthorizeDetailsResponse struct {
	ClientID    string   `json:"client_id" example:"oc_6b86b273ff34fce1"`
	ClientName  string   `json:"client_name" example:"Acme Importer"`
	RedirectURI string   `json:"redirect_uri" example:"https://app.example/cb"`
	Scopes      []string `json:"scopes" example:"read"`
	State       string   `json:"state,omitempty"`
}

// swagger:model AuthorizeDecisionRequest
type AuthorizeDecisionRequest struct {
	ClientID    string `json:"client_id"`
	RedirectURI string `json:"redirect_uri"`
	Scope       string `json:"scope"`
	State       string `json:"state"`
	Approve     bool   `json:"approve"`
}

// swagger:model AuthorizeDecisionResponse
type AuthorizeDecisionResponse struct {
	// Where the user agent should be sent, carrying either code+state or
	// error=access_denied.
	RedirectURL string `json:"redirect_url"`
}

// swagger:model TokenRequest
type TokenRequest struct {
	GrantType    string `json:"grant_type" form:"grant_type" example:"authorization_code"`
	Code         string `json:"code" form:"code"`
	RedirectURI  string `json:"redirect_uri" form:"redirect_uri"`
	ClientID     string `json:"client_id" form:"client_id"`
	ClientSecret string `json:"client_secret" form:"client_secret"`
	RefreshToken string `json:"refresh_token" form:"refresh_token"`
}

// swagger:model RevokeTokenRequest
type RevokeTokenRequest struct {
	Token string `json:"token" form:"token"`
}

// swagger:model UserInfoResponse
type UserInfoResponse struct {
	Sub   string `json:"sub" example:"acc_6b86b273ff34fce1"`
	Scope string `json:"scope" example:"read"`
}

// swagger:model WhoamiResponse
type WhoamiResponse struct {
	KeyID   string   `json:"key_id" example:"ak_6b86b273ff34fce1"`
	Name    string   `json:"name" example:"Production integration"`
	Scopes  []string `json:"scopes" example:"read"`
	Message string   `json:"message" example:"API key verified successfully"`
}
