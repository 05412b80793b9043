// SPDX-License-Identifier: GPL-3.0-only

package handlers

import (
	"fmt"
	"net/http"
	"net/mail"
	"newsdesk-server/commons"
	"newsdesk-server/crypto"
	"newsdesk-server/db"
	"newsdesk-server/middlewares"
	"newsdesk-server/models"
	"newsdesk-server/passwordcheck"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

func generateSessionToken(c echo.Context, user models.User) (string, error) {
	logger := c.Logger()

	sessionToken, err := crypto.GenerateRandomString("st_long_", 32, "hex")
	if err != nil {
		logger.Errorf("Failed to generate session token: %v", err)
		return "", err
	}

	sessionExp := time.Now().Add(30 * 24 * time.Hour)
	sessionLastUsed := time.Now()

	userAgent := c.Request().Header.Get("User-Agent")
	ipAddress := c.RealIP()

	session := models.Session{
		UserID:     user.ID,
		Token:      sessionToken,
		LastUsedAt: &sessionLastUsed,
		ExpiresAt:  &sessionExp,
		UserAgent:  &userAgent,
		IPAddress:  &ipAddress,
	}

	if err := db.Conn.Create(&session).Error; err != nil {
		logger.Errorf("Failed to create session: %v", err)
		return "", err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": "https://newsdesk.example.com",
		"iat": time.Now().Unix(),
		"sub": user.AccountID,
		"aud": "https://api.newsdesk.example.com",
		"jti": sessionToken,
		"sid": session.ID,
		"uid": user.ID,
		"exp": session.ExpiresAt.Unix(),
	})

	tokenString, err := token.SignedString([]byte(commons.GetEnv("JWT_SECRET", "default_very_secret_key")))
	if err != nil {
		logger.Errorf("Failed to sign token: %v", err)
		return "", err
	}

	return tokenString, nil
}

// SignupHandler godoc
// @Summary      Register a new user
// @Description  Creates a new user account.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        signupRequest  body  SignupRequest  true  "Signup request payload"
// @Success      201 {object} AuthResponse 	 "Signup successful"
// @Failure      400 {object} echo.HTTPError     "Bad request, missing required fields"
// @Failure      409 {object} echo.HTTPError     "Duplicate user"
// @Failure      500 {object} echo.HTTPError     "Internal server error"
// @Router       /v1/auth/signup [post]
func SignupHandler(c echo.Context) error {
	logger := c.Logger()

	var req SignupRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Invalid signup request payload:", err)
		return echo.ErrBadRequest
	}

	if req.Email == "" {
		logger.Error("Email is required.")
		return &echo.HTTPError{
			Code:    http.StatusBadRequest,
			Message: "email field is required",
		}
	}

	if _, err := mail.ParseAddress(req.Email); err != nil {
		logger.Error("Invalid email address.")
		return &echo.HTTPError{
			Code:    http.StatusBadRequest,
			Message: "email field must be a valid email address",
		}
	}

	if req.Password == "" {
		logger.Error("Password is required.")
		return &echo.HTTPError{
			Code:    http.StatusBadRequest,
			Message: "password field is required",
		}
	}

	if err := passwordcheck.ValidatePassword(c.Request().Context(), req.Password); err != nil {
		logger.Error("Password validation failed: ", err)
		return &echo.HTTPError{
			Code:    http.StatusBadRequest,
			Message: fmt.Sprintf("Invalid password: %v", err.Error()),
		}
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	count := db.Conn.Where("email = ?", email).First(&models.User{}).RowsAffected
	if count > 0 {
		logger.Errorf("This email is already registered.")
		return &echo.HTTPError{
			Code:    http.StatusConflict,
			Message: "This email is already registered, please try another one.",
		}
	}

	newCrypto := crypto.NewCrypto()

	hash, err := newCrypto.HashPassword(req.Password)
	if err != nil {
		logger.Errorf("Failed to hash password: %v", err)
		return echo.ErrInternalServerError
	}

	user := models.User{
		Email:    email,
		Password: hash,
		FullName: req.FullName,
	}

	if err := db.Conn.Create(&user).Error; err != nil {
		logger.Errorf("Failed to create user: %v", err)
		return echo.ErrInternalServerError
	}

	tokenString, err := generateSessionToken(c, user)
	if err != nil {
		return echo.ErrInternalServerError
	}

	logger.Debug("User signup successful.")
	return c.JSON(http.StatusCreated, AuthResponse{
		SessionToken: tokenString,
		Message:      "Signup successful",
	})
}

// LoginHandler godoc
// @Summary      Login a user
// @Description  Authenticates a user and returns a session token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        loginRequest  body  LoginRequest  true  "Login request payload"
// @Success      200 {object} AuthResponse 	 "Login successful"
// @Failure      400 {object} echo.HTTPError     "Bad request, missing required fields"
// @Failure      401 {object} echo.HTTPError     "Invalid credentials"
// @Failure      500 {object} echo.HTTPError     "Internal server error"
// @Router       /v1/auth/login [post]
func LoginHandler(c echo.Context) error {
	logger := c.Logger()

	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Invalid login request payload:", err)
		return echo.ErrBadRequest
	}

	if req.Email == "" || req.Password == "" {
		logger.Error("Email and password are required.")
		return &echo.HTTPError{
			Code:    http.StatusBadRequest,
			Message: "email and password fields are required",
		}
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	var user models.User
	if err := db.Conn.Where("email = ?", email).First(&user).Error; err != nil {
		logger.Error("User not found for login.")
		return &echo.HTTPError{
			Code:    http.StatusUnauthorized,
			Message: "Invalid email or password",
		}
	}

	newCrypto := crypto.NewCrypto()

	if err := newCrypto.VerifyPassword(req.Password, user.Password); err != nil {
		logger.Error("Password verification failed.")
		return &echo.HTTPError{
			Code:    http.StatusUnauthorized,
			Message: "Invalid email or password",
		}
	}

	tokenString, err := generateSessionToken(c, user)
	if err != nil {
		return echo.ErrInternalServerError
	}

	logger.Debug("User login successful.")
	return c.JSON(http.StatusOK, AuthResponse{
		SessionToken: tokenString,
		Message:      "Login successful",
	})
}

// LogoutHandler godoc
// @Summary      Logout a user
// @Description  Deletes the current session.
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} MessageResponse 	 "Logout successful"
// @Failure      401 {object} echo.HTTPError     "Unauthorized"
// @Failure      500 {object} echo.HTTPError     "Internal server error"
// @Router       /v1/auth/logout [post]
func LogoutHandler(c echo.Context) error {
	logger := c.Logger()

	session, ok := c.Get("session").(models.Session)
	if !ok {
		logger.Error("No session found for logout.")
		return echo.ErrUnauthorized
	}

	if err := db.Conn.Delete(&session).Error; err != nil {
		logger.Errorf("Failed to delete session: %v", err)
		return echo.ErrInternalServerError
	}

	logger.Debug("User logout successful.")
	return c.JSON(http.StatusOK, MessageResponse{
		Message: "Logout successful",
	})
}

// GetProfileHandler godoc
// @Summary      Get the authenticated user's profile
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} map[string]any    "Profile retrieved successfully"
// @Failure      401 {object} echo.HTTPError    "Unauthorized"
// @Router       /v1/auth/profile [get]
func GetProfileHandler(c echo.Context) error {
	logger := c.Logger()

	user, err := middlewares.GetAuthenticatedUser(c)
	if err != nil {
		logger.Error("Failed to get authenticated user:", err)
		return echo.ErrUnauthorized
	}

	return c.JSON(http.StatusOK, map[string]any{
		"account_id": user.AccountID,
		"email":      user.Email,
		"full_name":  user.FullName,
		"created_at": user.CreatedAt.UTC().Format(time.RFC3339),
		"message":    "Profile retrieved successfully",
	})
}
