// Package handler contains the HTTP handlers. Handlers bind request DTOs,
// call into the service or repository layer under a short timeout, and map
// sentinel errors to status codes.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/employee-management/internal/middleware"
	"github.com/iliyamo/employee-management/internal/repository"
	"github.com/iliyamo/employee-management/internal/service"
)

// dbTimeout bounds every handler's trip to the database.
const dbTimeout = 5 * time.Second

// AuthHandler exposes the authentication lifecycle over HTTP.
type AuthHandler struct {
	Svc *service.AuthService
}

func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{Svc: svc}
}

// ----- DTOs -----

type registerReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
type loginReq struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	DeviceType string `json:"device_type"`
	Location   string `json:"location"`
	RememberMe bool   `json:"remember_me"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}
type changePasswordReq struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}
type resetRequestReq struct {
	Username string `json:"username"`
}
type resetReq struct {
	ResetToken  string `json:"reset_token"`
	NewPassword string `json:"new_password"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type accountPart struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}
type authResp struct {
	Account      accountPart `json:"account"`
	Access       tokenPart   `json:"access"`
	Refresh      tokenPart   `json:"refresh"`
	SessionToken string      `json:"session_token"`
}

func loginInputFrom(c echo.Context, req loginReq) service.LoginInput {
	return service.LoginInput{
		Username:   req.Username,
		Password:   req.Password,
		IPAddress:  c.RealIP(),
		UserAgent:  c.Request().UserAgent(),
		DeviceType: req.DeviceType,
		Location:   req.Location,
		RememberMe: req.RememberMe,
	}
}

func authRespFrom(res *service.LoginResult) authResp {
	return authResp{
		Account: accountPart{
			ID:       res.Account.ID,
			Username: res.Account.Username,
			Email:    res.Account.Email,
			Role:     res.Role.Name,
		},
		Access:       tokenPart{Token: res.AccessToken, Expires: res.AccessExp},
		Refresh:      tokenPart{Token: res.RefreshToken, Expires: res.RefreshExp},
		SessionToken: res.SessionToken,
	}
}

// Register creates an account under the default role and logs it in.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	res, err := h.Svc.Register(ctx, req.Username, req.Email, req.Password, service.LoginInput{
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUsernameExists):
			return c.JSON(http.StatusConflict, echo.Map{"error": "username already exists"})
		case errors.Is(err, repository.ErrEmailExists):
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "register failed"})
	}
	return c.JSON(http.StatusCreated, authRespFrom(res))
}

// Login verifies credentials and returns a fresh pair plus session token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	res, err := h.Svc.Login(ctx, loginInputFrom(c, req))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		case errors.Is(err, service.ErrAccountLocked):
			return c.JSON(http.StatusLocked, echo.Map{"error": "account locked"})
		case errors.Is(err, service.ErrAccountInactive):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "account inactive"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}
	return c.JSON(http.StatusOK, authRespFrom(res))
}

// Refresh rotates the refresh token and returns a new access token. A pair
// whose access expiry has already passed cannot be rotated; the client must
// log in again.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	res, err := h.Svc.Refresh(ctx, strings.TrimSpace(req.RefreshToken))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRefresh):
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
		case errors.Is(err, repository.ErrInvalidState):
			return c.JSON(http.StatusConflict, echo.Map{"error": "pair expired, login again"})
		case errors.Is(err, service.ErrAccountInactive):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "account inactive"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refresh failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access":  tokenPart{Token: res.AccessToken, Expires: res.AccessExp},
		"refresh": tokenPart{Token: res.RefreshToken, Expires: res.RefreshExp},
	})
}

// Logout revokes the presented refresh token and ends the session named in
// the X-Session-Token header.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	sessionToken := c.Request().Header.Get(middleware.SessionHeader)
	err := h.Svc.Logout(ctx, strings.TrimSpace(req.RefreshToken), sessionToken, "logout")
	if err != nil {
		if errors.Is(err, service.ErrInvalidRefresh) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// LogoutAll revokes every active pair and terminates every session for the
// authenticated account, returning both counts.
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	accountID := middleware.AccountIDFrom(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	tokens, sessions, err := h.Svc.LogoutEverywhere(ctx, accountID, "logout all")
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"tokens_revoked":      tokens,
		"sessions_terminated": sessions,
	})
}

// Me returns the verified claims of the calling token.
func (h *AuthHandler) Me(c echo.Context) error {
	claims := middleware.ClaimsFrom(c)
	if claims == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":          claims.AccountID,
		"username":    claims.Username,
		"email":       claims.Email,
		"role":        claims.RoleName,
		"permissions": claims.Permissions,
	})
}

type sessionPart struct {
	ID           uint64    `json:"id"`
	IPAddress    string    `json:"ip_address"`
	UserAgent    string    `json:"user_agent"`
	DeviceType   string    `json:"device_type"`
	Location     string    `json:"location"`
	LoginAt      time.Time `json:"login_at"`
	LastActivity time.Time `json:"last_activity"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Sessions lists the caller's active sessions across devices.
func (h *AuthHandler) Sessions(c echo.Context) error {
	accountID := middleware.AccountIDFrom(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	sessions, err := h.Svc.Sessions.ListActiveForAccount(ctx, accountID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list sessions failed"})
	}
	out := make([]sessionPart, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionPart{
			ID:           s.ID,
			IPAddress:    s.IPAddress,
			UserAgent:    s.UserAgent,
			DeviceType:   s.DeviceType,
			Location:     s.Location,
			LoginAt:      s.LoginAt,
			LastActivity: s.LastActivity,
			ExpiresAt:    s.ExpiresAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"sessions": out})
}

// ExtendSession pushes the caller's session expiry out by one refresh
// lifetime (the "keep me signed in" action).
func (h *AuthHandler) ExtendSession(c echo.Context) error {
	sessionToken := c.Request().Header.Get(middleware.SessionHeader)
	if sessionToken == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "session token required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Svc.ExtendSession(ctx, sessionToken); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found or inactive"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "extend session failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "session extended"})
}

// ChangePassword verifies the current password, stores the new one and
// forces re-authentication everywhere.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	var req changePasswordReq
	if err := c.Bind(&req); err != nil || req.CurrentPassword == "" || req.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "current_password/new_password required"})
	}
	accountID := middleware.AccountIDFrom(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Svc.ChangePassword(ctx, accountID, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "change password failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password changed"})
}

// RequestPasswordReset issues a one-hour reset token. The response is the
// same whether or not the username exists.
func (h *AuthHandler) RequestPasswordReset(c echo.Context) error {
	var req resetRequestReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Username) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	token, err := h.Svc.RequestPasswordReset(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reset request failed"})
	}
	resp := echo.Map{"message": "if the account exists, a reset token has been issued"}
	// Without an email channel the token is returned in the response for
	// out-of-band delivery by the operator.
	if token != "" {
		resp["reset_token"] = token
	}
	return c.JSON(http.StatusOK, resp)
}

// ResetPassword consumes a reset token and sets the new password.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetReq
	if err := c.Bind(&req); err != nil || req.ResetToken == "" || req.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reset_token/new_password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Svc.ResetPassword(ctx, req.ResetToken, req.NewPassword); err != nil {
		if errors.Is(err, service.ErrInvalidReset) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid reset token"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reset failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password reset"})
}
