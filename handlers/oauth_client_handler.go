// SPDX-License-Identifier: GPL-3.0-only

package handlers

import (
	"devtrust-server/middlewares"
	"devtrust-server/models"
	"devtrust-server/services"
	"net/http"

	"github.com/labstack/echo/v4"
)

type OAuthClientHandler struct {
	Clients *services.ClientService
	Tokens  *services.TokenService
}

func oauthClientDetails(client models.OAuthClient) OAuthClientDetails {
	return OAuthClientDetails{
		ClientID:     client.ClientID,
		Name:         client.Name,
		Description:  client.Description,
		RedirectURIs: client.RedirectURIList(),
		Scopes:       client.ScopeList(),
		Active:       client.Active,
		CreatedAt:    client.CreatedAt,
	}
}

// GetAllOAuthClientsHandler godoc
// @Summary      List OAuth clients
// @Description  Lists the authenticated developer's OAuth clients. Client
// @Description  secrets are never included.
// @Tags         oauth-clients
// @Produce      json
// @Param        Authorization  header  string  true  "Bearer {session_token}"
// @Success      200 {object} OAuthClientListResponse "OAuth clients retrieved successfully"
// @Failure      401 {object} echo.HTTPError "Unauthorized"
// @Failure      500 {object} ErrorResponse "Internal Server Error"
// @Router       /v1/developer/oauth/clients [get]
func (h *OAuthClientHandler) GetAllOAuthClientsHandler(c echo.Context) error {
	userID, err := middlewares.AuthenticatedUserID(c)
	if err != nil {
		return &echo.HTTPError{Code: http.StatusUnauthorized, Message: err.Error()}
	}

	clients, err := h.Clients.ListClients(c.Request().Context(), userID)
	if err != nil {
		return developerError(c, err)
	}

	data := make([]OAuthClientDetails, 0, len(clients))
	for _, client := range clients {
		data = append(data, oauthClientDetails(client))
	}
	return c.JSON(http.StatusOK, OAuthClientListResponse{
		Data:    data,
		Message: "OAuth clients retrieved successfully",
	})
}

// CreateOAuthClientHandler godoc
// @Summary      Register an OAuth client
// @Description  Registers a third-party application. The client secret
// @Description  appears only in this response.
// @Tags         oauth-clients
// @Accept       json
// @Produce      json
// @Param        Authorization  header  string  true  "Bearer {session_token}"
// @Param        body  body  CreateOAuthClientRequest  true  "Client parameters"
// @Success      201 {object} CreateOAuthClientResponse "OAuth client created"
// @Failure      400 {object} ErrorResponse "Validation error"
// @Failure      500 {object} ErrorResponse "Internal Server Error"
// @Router       /v1/developer/oauth/clients [post]
func (h *OAuthClientHandler) CreateOAuthClientHandler(c echo.Context) error {
	userID, err := middlewares.AuthenticatedUserID(c)
	if err != nil {
		return &echo.HTTPError{Code: http.StatusUnauthorized, Message: err.Error()}
	}

	req := CreateOAuthClientRequest{}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
		})
	}

	client, secret, err := h.Clients.CreateClient(c.Request().Context(), userID, services.CreateClientInput{
		Name:         req.Name,
		Description:  req.Description,
		RedirectURIs: req.RedirectURIs,
		Scopes:       req.Scopes,
	})
	if err != nil {
		return developerError(c, err)
	}

	return c.JSON(http.StatusCreated, CreateOAuthClientResponse{
		ClientSecret: secret,
		Client:       oauthClientDetails(*client),
		Message:      "OAuth client created successfully. Store the secret now; it will not be shown again.",
	})
}

// UpdateOAuthClientHandler godoc
// @Summary      Update an OAuth client
// @Description  Updates name, description, redirect URIs, scopes or the
// @Description  active flag.
// @Tags         oauth-clients
// @Accept       json
// @Produce      json
// @Param        Authorization  header  string  true  "Bearer {session_token}"
// @Param        client_id  path  string  true  "Client ID"
// @Param        body  body  UpdateOAuthClientRequest  true  "Fields to update"
// @Success      200 {object} OAuthClientDetails "OAuth client updated"
// @Failure      400 {object} ErrorResponse "Validation error"
// @Failure      404 {object} ErrorResponse "Not Found"
// @Failure      500 {object} ErrorResponse "Internal Server Error"
// @Router       /v1/developer/oauth/clients/{client_id} [patch]
func (h *OAuthClientHandler) UpdateOAuthClientHandler(c echo.Context) error {
	userID, err := middlewares.AuthenticatedUserID(c)
	if err != nil {
		return &echo.HTTPError{Code: http.StatusUnauthorized, Message: err.Error()}
	}

	req := UpdateOAuthClientRequest{}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
		})
	}

	client, err := h.Clients.UpdateClient(c.Request().Context(), userID, c.Param("client_id"), services.UpdateClientInput{
		Name:         req.Name,
		Description:  req.Description,
		RedirectURIs: req.RedirectURIs,
		Scopes:       req.Scopes,
		Active:       req.Active,
	})
	if err != nil {
		return developerError(c, err)
	}
	return c.JSON(http.StatusOK, oauthClientDetails(*client))
}

// DeleteOAuthClientHandler godoc
// @Summary      Delete an OAuth client
// @Description  Removes the client registration. Existing tokens are not
// @Description  touched; use the revoke-tokens endpoint for that.
// @Tags         oauth-clients
// @Produce      json
// @Param        Authorization  header  string  true  "Bearer {session_token}"
// @Param        client_id  path  string  true  "Client ID"
// @Success      200 {object} GenericResponse "OAuth client deleted"
// @Failure      404 {object} ErrorResponse "Not Found"
// @Failure      500 {object} ErrorResponse "Internal Server Error"
// @Router       /v1/developer/oauth/clients/{client_id} [delete]
func (h *OAuthClientHandler) DeleteOAuthClientHandler(c echo.Context) error {
	userID, err := middlewares.AuthenticatedUserID(c)
	if err != nil {
		return &echo.HTTPError{Code: http.StatusUnauthorized, Message: err.Error()}
	}

	if err := h.Clients.DeleteClient(c.Request().Context(), userID, c.Param("client_id")); err != nil {
		return developerError(c, err)
	}
	return c.JSON(http.StatusOK, GenericResponse{
		Message: "OAuth client deleted successfully",
	})
}

// RevokeClientTokensHandler godoc
// @Summary      Revoke all tokens of a client
// @Description  Bulk-revokes every access and refresh token issued to the
// @Description  client. Returns the number of access tokens revoked.
// @Tags         oauth-clients
// @Produce      json
// @Param        Authorization  header  string  true  "Bearer {session_token}"
// @Param        client_id  path  string  true  "Client ID"
// @Success      200 {object} RevokeTokensResponse "Client tokens revoked"
// @Failure      404 {object} ErrorResponse "Not Found"
// @Failure      500 {object} ErrorResponse "Internal Server Error"
// @Router       /v1/developer/oauth/clients/{client_id}/revoke-tokens [post]
func (h *OAuthClientHandler) RevokeClientTokensHandler(c echo.Context) error {
	userID, err := middlewares.AuthenticatedUserID(c)
	if err != nil {
		return &echo.HTTPError{Code: http.StatusUnauthorized, Message: err.Error()}
	}

	revoked, err := h.Tokens.RevokeAllClientTokens(c.Request().Context(), userID, c.Param("client_id"))
	if err != nil {
		return developerError(c, err)
	}
	return c.JSON(http.StatusOK, RevokeTokensResponse{
		Revoked: revoked,
		Message: "Client tokens revoked successfully",
	})
}
