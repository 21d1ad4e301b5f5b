// SPDX-License-Identifier: GPL-3.0-only

package handlers

import (
	"devtrust-server/services"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// developerError maps service errors to the /developer error shape.
// Store failures are reported without detail.
func developerError(c echo.Context, err error) error {
	var validationErr *services.ValidationError
	var scopeErr *services.ScopeError

	switch {
	case errors.As(err, &validationErr):
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: validationErr.Error(),
		})
	case errors.As(err, &scopeErr):
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: scopeErr.Error(),
		})
	case errors.Is(err, services.ErrNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Resource not found",
		})
	default:
		c.Logger().Error("Unexpected error: ", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "server_error",
			Message: "An internal error occurred",
		})
	}
}

func oauthError(c echo.Context, status int, code, description string) error {
	return c.JSON(status, OAuthErrorResponse{
		Error:            code,
		ErrorDescription: description,
	})
}

// mapOAuthError maps service errors on /oauth routes. Credential failures
// always surface as credentialCode without distinguishing the cause.
func mapOAuthError(c echo.Context, err error, credentialCode string) error {
	var validationErr *services.ValidationError
	var scopeErr *services.ScopeError

	switch {
	case errors.As(err, &validationErr):
		return oauthError(c, http.StatusBadRequest, "invalid_request", validationErr.Error())
	case errors.As(err, &scopeErr):
		return oauthError(c, http.StatusBadRequest, "invalid_scope", scopeErr.Error())
	case errors.Is(err, services.ErrInvalidCredential):
		return oauthError(c, http.StatusBadRequest, credentialCode, "")
	default:
		c.Logger().Error("Unexpected error: ", err)
		return oauthError(c, http.StatusInternalServerError, "server_error", "")
	}
}
