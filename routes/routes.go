// SPDX-License-Identifier: GPL-3.0-only

package routes

import (
	"devtrust-server/commons"
	"devtrust-server/handlers"
	"devtrust-server/middlewares"

	"github.com/labstack/echo/v4"
)

type Handlers struct {
	Auth         *handlers.AuthHandler
	APIKeys      *handlers.APIKeyHandler
	OAuthClients *handlers.OAuthClientHandler
	OAuth        *handlers.OAuthHandler
	Resource     *handlers.ResourceHandler
}

func RegisterRoutes(e *echo.Echo, h Handlers, mw *middlewares.Middleware) {
	commons.Logger.Debug("Registering v1 routes")
	api_v1 := e.Group("/v1")

	api_v1.POST("/auth/signup", h.Auth.SignupHandler)
	api_v1.POST("/auth/login", h.Auth.LoginHandler)
	api_v1.POST("/auth/logout", h.Auth.LogoutHandler, mw.RequireSession)

	api_v1.GET("/developer/api-keys", h.APIKeys.GetAllAPIKeysHandler, mw.RequireSession)
	api_v1.POST("/developer/api-keys", h.APIKeys.CreateAPIKeyHandler, mw.RequireSession)
	api_v1.PATCH("/developer/api-keys/:key_id", h.APIKeys.UpdateAPIKeyHandler, mw.RequireSession)
	api_v1.POST("/developer/api-keys/:key_id/rotate", h.APIKeys.RotateAPIKeyHandler, mw.RequireSession)
	api_v1.DELETE("/developer/api-keys/:key_id", h.APIKeys.RevokeAPIKeyHandler, mw.RequireSession)
	api_v1.GET("/developer/api-keys/:key_id/usage", h.APIKeys.GetAPIKeyUsageHandler, mw.RequireSession)

	api_v1.GET("/developer/oauth/clients", h.OAuthClients.GetAllOAuthClientsHandler, mw.RequireSession)
	api_v1.POST("/developer/oauth/clients", h.OAuthClients.CreateOAuthClientHandler, mw.RequireSession)
	api_v1.PATCH("/developer/oauth/clients/:client_id", h.OAuthClients.UpdateOAuthClientHandler, mw.RequireSession)
	api_v1.DELETE("/developer/oauth/clients/:client_id", h.OAuthClients.DeleteOAuthClientHandler, mw.RequireSession)
	api_v1.POST("/developer/oauth/clients/:client_id/revoke-tokens", h.OAuthClients.RevokeClientTokensHandler, mw.RequireSession)

	api_v1.GET("/oauth/authorize", h.OAuth.AuthorizeDetailsHandler, mw.RequireSession)
	api_v1.POST("/oauth/authorize", h.OAuth.AuthorizeDecisionHandler, mw.RequireSession)
	api_v1.POST("/oauth/token", h.OAuth.TokenHandler)
	api_v1.POST("/oauth/revoke", h.OAuth.RevokeTokenHandler)
	api_v1.GET("/oauth/userinfo", h.OAuth.UserInfoHandler)

	api_v1.GET("/api/whoami", h.Resource.WhoamiHandler, mw.RequireAPIKey)

	commons.Logger.Info("v1 routes registered successfully")
}
