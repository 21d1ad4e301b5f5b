// SPDX-License-Identifier: GPL-3.0-only

package handlers

import (
	"devtrust-server/middlewares"
	"devtrust-server/models"
	"devtrust-server/services"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type APIKeyHandler struct {
	Keys *services.APIKeyService
}

func apiKeyDetails(key models.APIKey) APIKeyDetails {
	return APIKeyDetails{
		KeyID:           key.KeyID,
		Name:            key.Name,
		Description:     key.Description,
		Prefix:          key.Prefix,
		Scopes:          key.ScopeList(),
		RateLimit:       key.RateLimit,
		RateLimitWindow: key.RateLimitWindow,
		Active:          key.Active,
		LastUsedAt:      key.LastUsedAt,
		ExpiresAt:       key.ExpiresAt,
		CreatedAt:       key.CreatedAt,
	}
}

// GetAllAPIKeysHandler godoc
// @Summary      List API keys
// @Description  Lists the authenticated developer's API keys. Secrets are
// @Description  never included; only display prefixes.
// @Tags         api-keys
// @Produce      json
// @Param        Authorization  header  string  true  "Bearer {session_token}"
// @Success      200 {object} APIKeyListResponse "API keys retrieved successfully"
// @Failure      401 {object} echo.HTTPError "Unauthorized"
// @Failure      500 {object} ErrorResponse "Internal Server Error"
// @Router       /v1/developer/api-keys [get]
func (h *APIKeyHandler) GetAllAPIKeysHandler(c echo.Context) error {
	userID, err := middlewares.AuthenticatedUserID(c)
	if err != nil {
		return &echo.HTTPError{Code: http.StatusUnauthorized, Message: err.Error()}
	}

	keys, err := h.Keys.ListKeys(c.Request().Context(), userID)
	if err != nil {
		return developerError(c, err)
	}

	data := make([]APIKeyDetails, 0, len(keys))
	for _, key := range keys {
		data = append(data, apiKeyDetails(key))
	}
	return c.JSON(http.StatusOK, APIKeyListResponse{
		Data:    data,
		Message: "API keys retrieved successfully",
	})
}

// CreateAPIKeyHandler godoc
// @Summary      Create an API key
// @Description  Creates a new API key. The plaintext key appears only in
// @Description  this response and cannot be retrieved afterwards.
// @Tags         api-keys
// @Accept       json
// @Produce      json
// @Param        Authorization  header  string  true  "Bearer {session_token}"
// @Param        body  body  CreateAPIKeyRequest  true  "Key parameters"
// @Success      201 {object} CreateAPIKeyResponse "API key created"
// @Failure      400 {object} ErrorResponse "Validation error"
// @Failure      500 {object} ErrorResponse "Internal Server Error"
// @Router       /v1/developer/api-keys [post]
func (h *APIKeyHandler) CreateAPIKeyHandler(c echo.Context) error {
	userID, err := middlewares.AuthenticatedUserID(c)
	if err != nil {
		return &echo.HTTPError{Code: http.StatusUnauthorized, Message: err.Error()}
	}

	req := CreateAPIKeyRequest{}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
		})
	}

	key, plaintext, err := h.Keys.CreateKey(c.Request().Context(), userID, services.CreateKeyInput{
		Name:            req.Name,
		Description:     req.Description,
		Scopes:          req.Scopes,
		RateLimit:       req.RateLimit,
		RateLimitWindow: req.RateLimitWindow,
		ExpiresAt:       req.ExpiresAt,
	})
	if err != nil {
		return developerError(c, err)
	}

	return c.JSON(http.StatusCreated, CreateAPIKeyResponse{
		APIKey:  plaintext,
		Key:     apiKeyDetails(*key),
		Message: "API key created successfully. Store the key now; it will not be shown again.",
	})
}

// UpdateAPIKeyHandler godoc
// @Summary      Update an API key
// @Description  Updates name, description, scopes, limits or expiry.
// @Tags         api-keys
// @Accept       json
// @Produce      json
// @Param        Authorization  header  string  true  "Bearer {session_token}"
// @Param        key_id  path  string  true  "Key ID"
// @Param        body  body  UpdateAPIKeyRequest  true  "Fields to update"
// @Success      200 {object} APIKeyDetails "API key updated"
// @Failure      400 {object} ErrorResponse "Validation error"
// @Failure      404 {object} ErrorResponse "Not Found"
// @Failure      500 {object} ErrorResponse "Internal Server Error"
// @Router       /v1/developer/api-keys/{key_id} [patch]
func (h *APIKeyHandler) UpdateAPIKeyHandler(c echo.Context) error {
	userID, err := middlewares.AuthenticatedUserID(c)
	if err != nil {
		return &echo.HTTPError{Code: http.StatusUnauthorized, Message: err.Error()}
	}

	req := UpdateAPIKeyRequest{}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
		})
	}

	key, err := h.Keys.UpdateKey(c.Request().Context(), userID, c.Param("key_id"), services.UpdateKeyInput{
		Name:            req.Name,
		Description:     req.Description,
		Scopes:          req.Scopes,
		RateLimit:       req.RateLimit,
		RateLimitWindow: req.RateLimitWindow,
		ExpiresAt:       req.ExpiresAt,
	})
	if err != nil {
		return developerError(c, err)
	}
	return c.JSON(http.StatusOK, apiKeyDetails(*key))
}

// RotateAPIKeyHandler godoc
// @Summary      Rotate an API key
// @Description  Replaces the key's secret. The new key inherits name, scopes
// @Description  and limits; the old secret stops working once this call
// @Description  returns. The new plaintext is shown exactly once.
// @Tags         api-keys
// @Produce      json
// @Param        Authorization  header  string  true  "Bearer {session_token}"
// @Param        key_id  path  string  true  "Key ID"
// @Success      200 {object} CreateAPIKeyResponse "API key rotated"
// @Failure      404 {object} ErrorResponse "Not Found"
// @Failure      500 {object} ErrorResponse "Internal Server Error"
// @Router       /v1/developer/api-keys/{key_id}/rotate [post]
func (h *APIKeyHandler) RotateAPIKeyHandler(c echo.Context) error {
	userID, err := middlewares.AuthenticatedUserID(c)
	if err != nil {
		return &echo.HTTPError{Code: http.StatusUnauthorized, Message: err.Error()}
	}

	key, plaintext, err := h.Keys.RotateKey(c.Request().Context(), userID, c.Param("key_id"))
	if err != nil {
		return developerError(c, err)
	}

	return c.JSON(http.StatusOK, CreateAPIKeyResponse{
		APIKey:  plaintext,
		Key:     apiKeyDetails(*key),
		Message: "API key rotated successfully. Store the new key now; it will not be shown again.",
	})
}

// RevokeAPIKeyHandler godoc
// @Summary      Revoke an API key
// @Description  Deactivates the key. Irreversible through this API.
// @Tags         api-keys
// @Produce      json
// @Param        Authorization  header  string  true  "Bearer {session_token}"
// @Param        key_id  path  string  true  "Key ID"
// @Success      200 {object} GenericResponse "API key revoked"
// @Failure      404 {object} ErrorResponse "Not Found"
// @Failure      500 {object} ErrorResponse "Internal Server Error"
// @Router       /v1/developer/api-keys/{key_id} [delete]
func (h *APIKeyHandler) RevokeAPIKeyHandler(c echo.Context) error {
	userID, err := middlewares.AuthenticatedUserID(c)
	if err != nil {
		return &echo.HTTPError{Code: http.StatusUnauthorized, Message: err.Error()}
	}

	if err := h.Keys.RevokeKey(c.Request().Context(), userID, c.Param("key_id")); err != nil {
		return developerError(c, err)
	}
	return c.JSON(http.StatusOK, GenericResponse{
		Message: "API key revoked successfully",
	})
}

// GetAPIKeyUsageHandler godoc
// @Summary      API key usage statistics
// @Description  Aggregates the usage ledger for one key. Optional from/to
// @Description  query parameters are RFC 3339 timestamps.
// @Tags         api-keys
// @Produce      json
// @Param        Authorization  header  string  true  "Bearer {session_token}"
// @Param        key_id  path  string  true  "Key ID"
// @Success      200 {object} services.UsageStats "Usage statistics"
// @Failure      400 {object} ErrorResponse "Validation error"
// @Failure      404 {object} ErrorResponse "Not Found"
// @Failure      500 {object} ErrorResponse "Internal Server Error"
// @Router       /v1/developer/api-keys/{key_id}/usage [get]
func (h *APIKeyHandler) GetAPIKeyUsageHandler(c echo.Context) error {
	userID, err := middlewares.AuthenticatedUserID(c)
	if err != nil {
		return &echo.HTTPError{Code: http.StatusUnauthorized, Message: err.Error()}
	}

	var from, to *time.Time
	if v := c.QueryParam("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "validation_error",
				Message: "from must be an RFC 3339 timestamp",
			})
		}
		from = &t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "validation_error",
				Message: "to must be an RFC 3339 timestamp",
			})
		}
		to = &t
	}

	stats, err := h.Keys.UsageStats(c.Request().Context(), userID, c.Param("key_id"), from, to)
	if err != nil {
		return developerError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}
