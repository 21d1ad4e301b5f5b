// SPDX-License-Identifier: GPL-3.0-only

package handlers

import (
	"devtrust-server/middlewares"
	"devtrust-server/services"
	"devtrust-server/store"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
)

type OAuthHandler struct {
	Store  *store.Store
	Codes  *services.AuthCodeService
	Tokens *services.TokenService
}

// redirectWith appends query parameters to a validated redirect URI. The
// URI has already passed the client's allow-list, so a parse failure here
// is a server error.
func redirectWith(redirectURI string, params map[string]string) (string, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for k, v := range params {
		if v != "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// AuthorizeDetailsHandler godoc
// @Summary      Describe an authorization request
// @Description  Validates the query parameters of an authorization request
// @Description  and returns what a consent page needs to render. Errors are
// @Description  returned directly, never via redirect, so an attacker cannot
// @Description  use this endpoint as an open redirector.
// @Tags         oauth
// @Produce      json
// @Param        Authorization  header  string  true  "Bearer {session_token}"
// @Param        client_id     query  string  true   "Client ID"
// @Param        redirect_uri  query  string  true   "Redirect URI"
// @Param        scope         query  string  true   "Space-separated scopes"
// @Param        state         query  string  false  "Opaque client state"
// @Success      200 {object} AuthorizeDetailsResponse "Authorization request details"
// @Failure      400 {object} OAuthErrorResponse "Invalid request"
// @Failure      500 {object} OAuthErrorResponse "Internal Server Error"
// @Router       /v1/oauth/authorize [get]
func (h *OAuthHandler) AuthorizeDetailsHandler(c echo.Context) error {
	clientID := c.QueryParam("client_id")
	redirectURI := c.QueryParam("redirect_uri")
	scopes := strings.Fields(c.QueryParam("scope"))

	client, err := h.Codes.ValidateAuthorizeRequest(c.Request().Context(), clientID, redirectURI, scopes)
	if err != nil {
		return mapOAuthError(c, err, "invalid_client")
	}

	return c.JSON(http.StatusOK, AuthorizeDetailsResponse{
		ClientID:    client.ClientID,
		ClientName:  client.Name,
		RedirectURI: redirectURI,
		Scopes:      scopes,
		State:       c.QueryParam("state"),
	})
}

// AuthorizeDecisionHandler godoc
// @Summary      Record an authorization decision
// @Description  Records the user's approve or deny decision. On approval a
// @Description  single-use authorization code is minted and the response
// @Description  carries the redirect URL with code and state; on denial the
// @Description  redirect URL carries error=access_denied. The request is
// @Description  re-validated so a tampered decision cannot mint a code.
// @Tags         oauth
// @Accept       json
// @Produce      json
// @Param        Authorization  header  string  true  "Bearer {session_token}"
// @Param        body  body  AuthorizeDecisionRequest  true  "Decision payload"
// @Success      200 {object} AuthorizeDecisionResponse "Redirect URL"
// @Failure      400 {object} OAuthErrorResponse "Invalid request"
// @Failure      500 {object} OAuthErrorResponse "Internal Server Error"
// @Router       /v1/oauth/authorize [post]
func (h *OAuthHandler) AuthorizeDecisionHandler(c echo.Context) error {
	userID, err := middlewares.AuthenticatedUserID(c)
	if err != nil {
		return &echo.HTTPError{Code: http.StatusUnauthorized, Message: err.Error()}
	}

	req := AuthorizeDecisionRequest{}
	if err := c.Bind(&req); err != nil {
		return oauthError(c, http.StatusBadRequest, "invalid_request", "Invalid request body")
	}
	scopes := strings.Fields(req.Scope)

	if _, err := h.Codes.ValidateAuthorizeRequest(c.Request().Context(), req.ClientID, req.RedirectURI, scopes); err != nil {
		return mapOAuthError(c, err, "invalid_client")
	}

	if !req.Approve {
		location, err := redirectWith(req.RedirectURI, map[string]string{
			"error": "access_denied",
			"state": req.State,
		})
		if err != nil {
			return mapOAuthError(c, err, "invalid_client")
		}
		return c.JSON(http.StatusOK, AuthorizeDecisionResponse{RedirectURL: location})
	}

	code, _, err := h.Codes.IssueCode(c.Request().Context(), userID, req.ClientID, req.RedirectURI, scopes)
	if err != nil {
		return mapOAuthError(c, err, "invalid_client")
	}
	location, err := redirectWith(req.RedirectURI, map[string]string{
		"code":  code,
		"state": req.State,
	})
	if err != nil {
		return mapOAuthError(c, err, "invalid_client")
	}
	return c.JSON(http.StatusOK, AuthorizeDecisionResponse{RedirectURL: location})
}

// TokenHandler godoc
// @Summary      Token endpoint
// @Description  Issues token pairs. grant_type=authorization_code exchanges
// @Description  a single-use code; grant_type=refresh_token rotates the
// @Description  pair, invalidating the presented refresh token.
// @Tags         oauth
// @Accept       json
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Param        body  body  TokenRequest  true  "Token request"
// @Success      200 {object} services.TokenPair "Token pair"
// @Failure      400 {object} OAuthErrorResponse "Invalid grant"
// @Failure      500 {object} OAuthErrorResponse "Internal Server Error"
// @Router       /v1/oauth/token [post]
func (h *OAuthHandler) TokenHandler(c echo.Context) error {
	req := TokenRequest{}
	if err := c.Bind(&req); err != nil {
		return oauthError(c, http.StatusBadRequest, "invalid_request", "Invalid request body")
	}

	switch req.GrantType {
	case "authorization_code":
		if req.Code == "" || req.ClientID == "" || req.ClientSecret == "" || req.RedirectURI == "" {
			return oauthError(c, http.StatusBadRequest, "invalid_request",
				"code, client_id, client_secret and redirect_uri are required")
		}
		pair, err := h.Tokens.ExchangeCode(c.Request().Context(), req.Code, req.ClientID, req.ClientSecret, req.RedirectURI)
		if err != nil {
			return mapOAuthError(c, err, "invalid_grant")
		}
		return c.JSON(http.StatusOK, pair)

	case "refresh_token":
		if req.RefreshToken == "" {
			return oauthError(c, http.StatusBadRequest, "invalid_request", "refresh_token is required")
		}
		pair, err := h.Tokens.RefreshAccessToken(c.Request().Context(), req.RefreshToken)
		if err != nil {
			return mapOAuthError(c, err, "invalid_grant")
		}
		return c.JSON(http.StatusOK, pair)

	default:
		return oauthError(c, http.StatusBadRequest, "unsupported_grant_type", "")
	}
}

// RevokeTokenHandler godoc
// @Summary      Revoke an access token
// @Description  Marks the presented access token revoked. Revoking an
// @Description  unknown or already revoked token still returns 200, so the
// @Description  endpoint leaks nothing about token validity.
// @Tags         oauth
// @Accept       json
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Param        body  body  RevokeTokenRequest  true  "Token to revoke"
// @Success      200 {object} GenericResponse "Token revoked"
// @Failure      400 {object} OAuthErrorResponse "Invalid request"
// @Failure      500 {object} OAuthErrorResponse "Internal Server Error"
// @Router       /v1/oauth/revoke [post]
func (h *OAuthHandler) RevokeTokenHandler(c echo.Context) error {
	req := RevokeTokenRequest{}
	if err := c.Bind(&req); err != nil {
		return oauthError(c, http.StatusBadRequest, "invalid_request", "Invalid request body")
	}
	if req.Token == "" {
		return oauthError(c, http.StatusBadRequest, "invalid_request", "token is required")
	}

	if err := h.Tokens.RevokeAccessToken(c.Request().Context(), req.Token); err != nil {
		return mapOAuthError(c, err, "invalid_request")
	}
	return c.JSON(http.StatusOK, GenericResponse{
		Message: "Token revoked",
	})
}

// UserInfoHandler godoc
// @Summary      Resolve an access token
// @Description  Returns the subject and granted scopes for a valid bearer
// @Description  access token. The subject is the user's public account id,
// @Description  never the internal row id.
// @Tags         oauth
// @Produce      json
// @Param        Authorization  header  string  true  "Bearer {access_token}"
// @Success      200 {object} UserInfoResponse "Token subject and scopes"
// @Failure      401 {object} OAuthErrorResponse "Invalid token"
// @Failure      500 {object} OAuthErrorResponse "Internal Server Error"
// @Router       /v1/oauth/userinfo [get]
func (h *OAuthHandler) UserInfoHandler(c echo.Context) error {
	logger := c.Logger()

	plaintext, err := bearerFromHeader(c)
	if err != nil {
		return oauthError(c, http.StatusUnauthorized, "invalid_token", "Bearer access token is required")
	}

	token, err := h.Tokens.VerifyAccessToken(c.Request().Context(), plaintext)
	if err != nil {
		return oauthError(c, http.StatusUnauthorized, "invalid_token", "")
	}

	user, err := h.Store.UserByID(c.Request().Context(), token.UserID)
	if err != nil {
		logger.Error("Failed to resolve token subject: ", err)
		return oauthError(c, http.StatusInternalServerError, "server_error", "")
	}

	return c.JSON(http.StatusOK, UserInfoResponse{
		Sub:   user.AccountID,
		Scope: token.Scopes,
	})
}

func bearerFromHeader(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		return "", &echo.HTTPError{
			Code:    http.StatusUnauthorized,
			Message: "Bearer token is required",
		}
	}
	return strings.TrimPrefix(authHeader, "Bearer "), nil
}
