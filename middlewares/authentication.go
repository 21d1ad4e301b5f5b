// SPDX-License-Identifier: GPL-3.0-only

package middlewares

import (
	"devtrust-server/commons"
	"devtrust-server/models"
	"devtrust-server/services"
	"devtrust-server/store"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type Middleware struct {
	Store *store.Store
	Keys  *services.APIKeyService
}

func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		return "", &echo.HTTPError{
			Code:    http.StatusUnauthorized,
			Message: "Bearer token is required",
		}
	}
	return strings.TrimPrefix(authHeader, "Bearer "), nil
}

// RequireSession authenticates the /developer and /oauth/authorize routes
// with the JWT session token issued at login. The JWT is only a pointer;
// the session row in the store is authoritative.
func (m *Middleware) RequireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		logger := c.Logger()

		sessionToken, err := bearerToken(c)
		if err != nil {
			return err
		}

		token, err := jwt.Parse(sessionToken, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(commons.GetEnv("JWT_SECRET", "default_very_secret_key")), nil
		})
		if err != nil || !token.Valid {
			logger.Error("JWT failed to parse or is invalid: ", err)
			return &echo.HTTPError{
				Code:    http.StatusUnauthorized,
				Message: "Invalid or expired session token, please login again",
			}
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			logger.Error("Failed to parse JWT claims.")
			return &echo.HTTPError{
				Code:    http.StatusUnauthorized,
				Message: "Invalid session token, please login again",
			}
		}

		session, err := m.Store.SessionLookup(c.Request().Context(), claims["sid"], claims["uid"], claims["jti"])
		if err != nil || session.ExpiresAt == nil || session.ExpiresAt.Before(time.Now()) {
			logger.Error("Session not found or expired.")
			return &echo.HTTPError{
				Code:    http.StatusUnauthorized,
				Message: "Invalid or expired session token, please login again",
			}
		}

		now := time.Now()
		if err := m.Store.TouchSession(c.Request().Context(), session.ID, now); err != nil {
			logger.Error("Failed to update session LastUsedAt: ", err)
		}

		c.Set("session", *session)
		c.Set("user_id", session.UserID)
		return next(c)
	}
}

// RequireAPIKey authenticates keyed API routes: verify the key, enforce its
// rate limit, and append the call to the usage ledger once the handler has
// responded. Ledger writes never delay the response.
func (m *Middleware) RequireAPIKey(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		logger := c.Logger()

		plaintext, err := bearerToken(c)
		if err != nil {
			return err
		}

		key, err := m.Keys.VerifyKey(c.Request().Context(), plaintext)
		if err != nil {
			logger.Error("API key authentication failed.")
			return &echo.HTTPError{
				Code:    http.StatusUnauthorized,
				Message: "Invalid or expired API key",
			}
		}

		limit, err := m.Keys.CheckRateLimit(c.Request().Context(), key)
		if err != nil {
			logger.Error("Rate limit check failed: ", err)
			return &echo.HTTPError{
				Code:    http.StatusInternalServerError,
				Message: "Unable to check rate limit",
			}
		}
		c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(key.RateLimit))
		c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(limit.Remaining, 10))
		c.Response().Header().Set("X-RateLimit-Reset", strconv.FormatInt(limit.ResetAt.Unix(), 10))
		if !limit.Allowed {
			return &echo.HTTPError{
				Code:    http.StatusTooManyRequests,
				Message: "Rate limit exceeded",
			}
		}

		c.Set("api_key", *key)

		start := time.Now()
		handlerErr := next(c)

		status := c.Response().Status
		if handlerErr != nil {
			status = http.StatusInternalServerError
			var httpErr *echo.HTTPError
			if errors.As(handlerErr, &httpErr) {
				status = httpErr.Code
			}
		}
		ip := c.RealIP()
		ua := c.Request().Header.Get("User-Agent")
		m.Keys.LogUsage(c.Request().Context(), key.ID, services.UsageEntry{
			Endpoint:   c.Path(),
			Method:     c.Request().Method,
			StatusCode: status,
			LatencyMs:  time.Since(start).Milliseconds(),
			ClientIP:   &ip,
			UserAgent:  &ua,
		})
		return handlerErr
	}
}

// AuthenticatedUserID returns the user id set by RequireSession.
func AuthenticatedUserID(c echo.Context) (uint, error) {
	userID, ok := c.Get("user_id").(uint)
	if !ok {
		return 0, errors.New("no authenticated user found")
	}
	return userID, nil
}

// AuthenticatedAPIKey returns the key set by RequireAPIKey.
func AuthenticatedAPIKey(c echo.Context) (models.APIKey, error) {
	key, ok := c.Get("api_key").(models.APIKey)
	if !ok {
		return models.APIKey{}, errors.New("no authenticated API key found")
	}
	return key, nil
}
