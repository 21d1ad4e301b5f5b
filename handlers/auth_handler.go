// SPDX-License-Identifier: GPL-3.0-only

package handlers

import (
	"devtrust-server/commons"
	"devtrust-server/crypto"
	"devtrust-server/models"
	"devtrust-server/passwordcheck"
	"devtrust-server/store"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type AuthHandler struct {
	Store  *store.Store
	Crypto *crypto.Crypto
}

func (h *AuthHandler) issueSessionToken(c echo.Context, user *models.User) (string, error) {
	logger := c.Logger()

	jti, err := crypto.GenerateRandomString("st_", 16, "hex")
	if err != nil {
		logger.Errorf("Failed to generate session token: %v", err)
		return "", err
	}

	expiresAt := time.Now().Add(30 * 24 * time.Hour)
	session := &models.Session{
		Token:     jti,
		ExpiresAt: &expiresAt,
		UserID:    user.ID,
	}
	if err := h.Store.CreateSession(c.Request().Context(), session); err != nil {
		logger.Errorf("Failed to persist session: %v", err)
		return "", err
	}

	claims := jwt.MapClaims{
		"sid": session.ID,
		"uid": user.ID,
		"jti": jti,
		"exp": expiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(commons.GetEnv("JWT_SECRET", "default_very_secret_key")))
	if err != nil {
		logger.Errorf("Failed to sign session token: %v", err)
		return "", err
	}
	return signed, nil
}

// SignupHandler godoc
// @Summary      Create a developer account
// @Description  Registers a developer account for the trust dashboard.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  SignupRequest  true  "Signup payload"
// @Success      201 {object} GenericResponse "Account created"
// @Failure      400 {object} ErrorResponse "Validation error"
// @Failure      409 {object} ErrorResponse "Email already registered"
// @Failure      500 {object} ErrorResponse "Internal Server Error"
// @Router       /v1/auth/signup [post]
func (h *AuthHandler) SignupHandler(c echo.Context) error {
	logger := c.Logger()

	req := SignupRequest{}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
		})
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "A valid email address is required",
		})
	}
	if err := passwordcheck.ValidatePassword(c.Request().Context(), req.Password); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
	}

	if _, err := h.Store.UserByEmail(c.Request().Context(), email); err == nil {
		return c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "conflict",
			Message: "An account with this email already exists",
		})
	}

	passwordHash, err := h.Crypto.HashPassword(req.Password)
	if err != nil {
		logger.Error("Failed to hash password: ", err)
		return developerError(c, err)
	}
	accountID, err := crypto.GenerateRandomString("acc_", 8, "hex")
	if err != nil {
		return developerError(c, err)
	}

	user := &models.User{
		AccountID: accountID,
		Email:     email,
		Password:  passwordHash,
		FullName:  req.FullName,
	}
	if err := h.Store.CreateUser(c.Request().Context(), user); err != nil {
		logger.Error("Failed to create user: ", err)
		return developerError(c, err)
	}

	return c.JSON(http.StatusCreated, GenericResponse{
		Message: "Account created successfully",
	})
}

// LoginHandler godoc
// @Summary      Log in
// @Description  Authenticates a developer and returns a session token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  LoginRequest  true  "Login payload"
// @Success      200 {object} AuthResponse "Logged in"
// @Failure      401 {object} ErrorResponse "Invalid credentials"
// @Failure      500 {object} ErrorResponse "Internal Server Error"
// @Router       /v1/auth/login [post]
func (h *AuthHandler) LoginHandler(c echo.Context) error {
	logger := c.Logger()

	req := LoginRequest{}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
		})
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := h.Store.UserByEmail(c.Request().Context(), email)
	if err != nil {
		logger.Error("Login failed: user lookup")
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_credentials",
			Message: "Invalid email or password",
		})
	}
	if err := h.Crypto.VerifyPassword(req.Password, user.Password); err != nil {
		logger.Error("Login failed: password mismatch")
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_credentials",
			Message: "Invalid email or password",
		})
	}

	signed, err := h.issueSessionToken(c, user)
	if err != nil {
		return developerError(c, err)
	}

	return c.JSON(http.StatusOK, AuthResponse{
		SessionToken: signed,
		Message:      "Logged in successfully",
	})
}

// LogoutHandler godoc
// @Summary      Log out
// @Description  Destroys the current session.
// @Tags         auth
// @Produce      json
// @Param        Authorization  header  string  true  "Bearer {session_token}"
// @Success      200 {object} GenericResponse "Logged out"
// @Failure      401 {object} echo.HTTPError "Unauthorized"
// @Router       /v1/auth/logout [post]
func (h *AuthHandler) LogoutHandler(c echo.Context) error {
	session, ok := c.Get("session").(models.Session)
	if !ok {
		return &echo.HTTPError{
			Code:    http.StatusUnauthorized,
			Message: "No active session",
		}
	}
	if err := h.Store.DeleteSession(c.Request().Context(), session.ID); err != nil {
		c.Logger().Error("Failed to delete session: ", err)
		return developerError(c, err)
	}
	return c.JSON(http.StatusOK, GenericResponse{
		Message: "Logged out successfully",
	})
}
