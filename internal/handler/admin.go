package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/employee-management/internal/model"
	"github.com/iliyamo/employee-management/internal/repository"
	"github.com/iliyamo/employee-management/internal/service"
)

// AdminHandler bundles account administration and token/session monitoring.
// Its routes sit behind the manage_users guard.
type AdminHandler struct {
	Svc      *service.AuthService
	Accounts *repository.AccountRepo
	Tokens   *repository.TokenRepo
	Sessions *repository.SessionRepo
}

func NewAdminHandler(svc *service.AuthService, a *repository.AccountRepo, t *repository.TokenRepo, s *repository.SessionRepo) *AdminHandler {
	return &AdminHandler{Svc: svc, Accounts: a, Tokens: t, Sessions: s}
}

type assignRoleReq struct {
	RoleID uint64 `json:"role_id"`
}
type revokeByIPReq struct {
	IPAddress string `json:"ip_address"`
	Reason    string `json:"reason"`
}

// AssignRole moves an account onto another role. Tokens already issued keep
// their old permission claims until they expire.
func (h *AdminHandler) AssignRole(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req assignRoleReq
	if err := c.Bind(&req); err != nil || req.RoleID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "role_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Accounts.AssignRole(ctx, id, req.RoleID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "account or role not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "assign role failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "role assigned"})
}

// DeactivateAccount disables authentication for the account and cuts its
// live access by revoking everything outstanding.
func (h *AdminHandler) DeactivateAccount(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Accounts.Deactivate(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "account not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "deactivate failed"})
	}
	tokens, sessions, err := h.Svc.LogoutEverywhere(ctx, id, "account deactivated")
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "revocation failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":             "account deactivated",
		"tokens_revoked":      tokens,
		"sessions_terminated": sessions,
	})
}

// DeleteAccount removes the account; the schema cascades its tokens and
// sessions away.
func (h *AdminHandler) DeleteAccount(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Accounts.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "account not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete account failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// RevokeByIP bulk-revokes every active pair issued from one address.
func (h *AdminHandler) RevokeByIP(c echo.Context) error {
	var req revokeByIPReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.IPAddress) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ip_address required"})
	}
	reason := req.Reason
	if reason == "" {
		reason = "revoked by administrator"
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	n, err := h.Svc.RevokeTokensByIP(ctx, strings.TrimSpace(req.IPAddress), reason)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "revoke failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"tokens_revoked": n})
}

type tokenPartAdmin struct {
	ID            uint64     `json:"id"`
	AccountID     uint64     `json:"account_id"`
	ExpiresAt     time.Time  `json:"expires_at"`
	RefreshExpiry time.Time  `json:"refresh_expires_at"`
	Revoked       bool       `json:"revoked"`
	RevokedReason *string    `json:"revoked_reason,omitempty"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
	IPAddress     string     `json:"ip_address"`
	UserAgent     string     `json:"user_agent"`
	CreatedAt     time.Time  `json:"created_at"`
}

func tokenPartAdminFrom(t model.Token) tokenPartAdmin {
	return tokenPartAdmin{
		ID:            t.ID,
		AccountID:     t.AccountID,
		ExpiresAt:     t.ExpiresAt,
		RefreshExpiry: t.RefreshExpiresAt,
		Revoked:       t.Revoked,
		RevokedReason: t.RevokedReason,
		RevokedAt:     t.RevokedAt,
		IPAddress:     t.IPAddress,
		UserAgent:     t.UserAgent,
		CreatedAt:     t.CreatedAt,
	}
}

// AccountTokens lists an account's token history. ?filter=active|expired|revoked
// narrows the listing; the token strings themselves are never returned.
func (h *AdminHandler) AccountTokens(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	var tokens []model.Token
	switch c.QueryParam("filter") {
	case "", "all":
		tokens, err = h.Tokens.ListHistory(ctx, id)
	case "active":
		tokens, err = h.Tokens.ListActive(ctx, id)
	case "expired":
		tokens, err = h.Tokens.ListExpired(ctx, id)
	case "revoked":
		tokens, err = h.Tokens.ListRevoked(ctx, id)
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "filter must be active, expired, revoked or all"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list tokens failed"})
	}
	out := make([]tokenPartAdmin, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, tokenPartAdminFrom(t))
	}
	return c.JSON(http.StatusOK, echo.Map{"tokens": out})
}

// AccountSessions lists an account's session history, narrowable with
// ?device_type= or ?location=, alongside the account's live session count.
func (h *AdminHandler) AccountSessions(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	var sessions []model.Session
	switch {
	case c.QueryParam("device_type") != "":
		sessions, err = h.Sessions.ListByDeviceType(ctx, id, c.QueryParam("device_type"))
	case c.QueryParam("location") != "":
		sessions, err = h.Sessions.ListByLocation(ctx, id, c.QueryParam("location"))
	default:
		sessions, err = h.Sessions.ListHistory(ctx, id)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list sessions failed"})
	}
	activeCount, err := h.Sessions.CountActiveForAccount(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "count sessions failed"})
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
	return c.JSON(http.StatusOK, echo.Map{"sessions": out, "active_count": activeCount})
}

// Introspect reports whether a presented token string is currently usable:
// the pair must exist, be unrevoked and be inside the relevant expiry.
// Gives support staff a revocation-aware check that plain JWT validation
// cannot answer.
func (h *AdminHandler) Introspect(c echo.Context) error {
	var req struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		SessionToken string `json:"session_token"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.AccessToken == "" && req.RefreshToken == "" && req.SessionToken == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "a token is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	resp := echo.Map{}
	if req.AccessToken != "" {
		ok, err := h.Tokens.IsAccessTokenValid(ctx, req.AccessToken)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "introspection failed"})
		}
		resp["access_token_valid"] = ok
	}
	if req.RefreshToken != "" {
		ok, err := h.Tokens.IsRefreshTokenValid(ctx, req.RefreshToken)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "introspection failed"})
		}
		resp["refresh_token_valid"] = ok
	}
	if req.SessionToken != "" {
		ok, err := h.Sessions.IsValid(ctx, req.SessionToken)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "introspection failed"})
		}
		resp["session_valid"] = ok
	}
	return c.JSON(http.StatusOK, resp)
}

// TokenStats reports live counters for the security dashboard: active pairs,
// active sessions and the per-IP breakdown of active pairs.
func (h *AdminHandler) TokenStats(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	activeTokens, err := h.Tokens.CountActive(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "count tokens failed"})
	}
	activeSessions, err := h.Sessions.CountActive(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "count sessions failed"})
	}
	byIP, err := h.Tokens.CountActiveByIP(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "count by ip failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"active_tokens":   activeTokens,
		"active_sessions": activeSessions,
		"tokens_by_ip":    byIP,
	})
}

// IdleSessions lists sessions with no activity for the given number of
// minutes (default 60). Feeds the idle-session report.
func (h *AdminHandler) IdleSessions(c echo.Context) error {
	idleFor := 60 * time.Minute
	if s := c.QueryParam("minutes"); s != "" {
		d, err := time.ParseDuration(s + "m")
		if err != nil || d <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "minutes must be a positive integer"})
		}
		idleFor = d
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	cutoff := time.Now().UTC().Add(-idleFor)
	sessions, err := h.Sessions.ListInactiveSince(ctx, cutoff)
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
