// SPDX-License-Identifier: GPL-3.0-only

package handlers

import (
	"devtrust-server/middlewares"
	"net/http"

	"github.com/labstack/echo/v4"
)

type ResourceHandler struct{}

// WhoamiHandler godoc
// @Summary      Identify the calling API key
// @Description  Echoes the verified key's identity. Useful for integration
// @Description  smoke tests and for exercising the rate limiter.
// @Tags         api
// @Produce      json
// @Param        Authorization  header  string  true  "Bearer {api_key}"
// @Success      200 {object} WhoamiResponse "API key identity"
// @Failure      401 {object} echo.HTTPError "Unauthorized"
// @Failure      429 {object} echo.HTTPError "Rate limit exceeded"
// @Router       /v1/api/whoami [get]
func (h *ResourceHandler) WhoamiHandler(c echo.Context) error {
	key, err := middlewares.AuthenticatedAPIKey(c)
	if err != nil {
		return &echo.HTTPError{Code: http.StatusUnauthorized, Message: err.Error()}
	}
	return c.JSON(http.StatusOK, WhoamiResponse{
		KeyID:   key.KeyID,
		Name:    key.Name,
		Scopes:  key.ScopeList(),
		Message: "API key verified successfully",
	})
}
