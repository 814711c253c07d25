package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/employee-management/internal/auth"
	"github.com/iliyamo/employee-management/internal/config"
	"github.com/iliyamo/employee-management/internal/model"
	"github.com/iliyamo/employee-management/internal/queue"
	"github.com/iliyamo/employee-management/internal/repository"
	"github.com/iliyamo/employee-management/internal/service"
)

// Store stubs embed the interface and override only what a test touches;
// anything else panics, which is exactly what an unexpected call should do.

type accountsStub struct {
	service.AccountStore
	acct model.Account
	err  error
}

func (s *accountsStub) GetByUsername(context.Context, string) (model.Account, error) {
	return s.acct, s.err
}
func (s *accountsStub) GetByID(context.Context, uint64) (model.Account, error) {
	return s.acct, s.err
}
func (s *accountsStub) RecordLoginFailure(context.Context, uint64, int, time.Duration) (int, error) {
	return 1, nil
}
func (s *accountsStub) ResetLoginFailures(context.Context, uint64) error { return nil }

type rolesStub struct {
	service.RoleStore
	role model.Role
}

func (s *rolesStub) GetByID(context.Context, uint64) (model.Role, error) { return s.role, nil }

type tokensStub struct {
	service.TokenStore
	tok       model.Token
	getErr    error
	rotateErr error
}

func (s *tokensStub) GetByRefreshToken(context.Context, string) (model.Token, error) {
	return s.tok, s.getErr
}
func (s *tokensStub) RotateRefresh(context.Context, string, string, time.Time) error {
	return s.rotateErr
}
func (s *tokensStub) Create(context.Context, *model.Token) error { return nil }

type sessionsStub struct {
	service.SessionStore
}

func (s *sessionsStub) Create(context.Context, *model.Session) error { return nil }

func newTestHandler(acc service.AccountStore, roles service.RoleStore, tokens service.TokenStore, sessions service.SessionStore) *AuthHandler {
	cfg := config.Config{
		JWTSecret:        "handler-test-secret-0123456789abcd",
		JWTIssuer:        "employee-api",
		JWTAudience:      "employee-clients",
		AccessTTLMin:     15,
		RefreshTTLDays:   7,
		BcryptCost:       4,
		MaxLoginFailures: 3,
		LockoutDuration:  15 * time.Minute,
	}
	svc := service.NewAuthService(cfg, acc, roles, tokens, sessions)
	svc.Publish = func(context.Context, queue.SecurityEvent) error { return nil }
	return NewAuthHandler(svc)
}

func postJSON(t *testing.T, h echo.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rec)))
	return rec
}

func TestLoginStatusMapping(t *testing.T) {
	hash, err := auth.HashPassword("password123", 4)
	require.NoError(t, err)
	locked := time.Now().UTC().Add(10 * time.Minute)

	cases := []struct {
		name string
		acct model.Account
		err  error
		body string
		want int
	}{
		{
			name: "unknown user",
			err:  repository.ErrNotFound,
			body: `{"username":"ghost","password":"x"}`,
			want: http.StatusUnauthorized,
		},
		{
			name: "wrong password",
			acct: model.Account{ID: 1, Username: "jdoe", PasswordHash: hash, IsActive: true},
			body: `{"username":"jdoe","password":"nope"}`,
			want: http.StatusUnauthorized,
		},
		{
			name: "locked account",
			acct: model.Account{ID: 1, Username: "jdoe", PasswordHash: hash, IsActive: true, LockedUntil: &locked},
			body: `{"username":"jdoe","password":"password123"}`,
			want: http.StatusLocked,
		},
		{
			name: "inactive account",
			acct: model.Account{ID: 1, Username: "jdoe", PasswordHash: hash},
			body: `{"username":"jdoe","password":"password123"}`,
			want: http.StatusForbidden,
		},
		{
			name: "missing fields",
			body: `{"username":"jdoe"}`,
			want: http.StatusBadRequest,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHandler(&accountsStub{acct: tc.acct, err: tc.err}, &rolesStub{}, &tokensStub{}, &sessionsStub{})
			rec := postJSON(t, h.Login, tc.body)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestLoginSuccessReturnsPair(t *testing.T) {
	hash, err := auth.HashPassword("password123", 4)
	require.NoError(t, err)
	acc := &accountsStub{acct: model.Account{ID: 7, Username: "jdoe", Email: "jdoe@example.com", PasswordHash: hash, RoleID: 2, IsActive: true}}
	roles := &rolesStub{role: model.Role{ID: 2, Name: "VIEWER", CanViewEmployees: true, IsActive: true}}

	h := newTestHandler(acc, roles, &tokensStub{}, &sessionsStub{})
	rec := postJSON(t, h.Login, `{"username":"jdoe","password":"password123","device_type":"web"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"access"`)
	assert.Contains(t, body, `"refresh"`)
	assert.Contains(t, body, `"session_token"`)
	assert.Contains(t, body, `"role":"VIEWER"`)
}

func TestRefreshStatusMapping(t *testing.T) {
	now := time.Now().UTC()
	live := model.Token{
		ID: 3, AccountID: 7,
		ExpiresAt:        now.Add(10 * time.Minute),
		RefreshExpiresAt: now.Add(6 * 24 * time.Hour),
	}
	acct := model.Account{ID: 7, Username: "jdoe", RoleID: 2, IsActive: true}
	role := model.Role{ID: 2, Name: "VIEWER", IsActive: true}

	t.Run("unknown refresh", func(t *testing.T) {
		h := newTestHandler(&accountsStub{}, &rolesStub{}, &tokensStub{getErr: repository.ErrNotFound}, &sessionsStub{})
		rec := postJSON(t, h.Refresh, `{"refresh_token":"never-issued"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rotation refused once access expiry passed", func(t *testing.T) {
		h := newTestHandler(&accountsStub{acct: acct}, &rolesStub{role: role},
			&tokensStub{tok: live, rotateErr: repository.ErrInvalidState}, &sessionsStub{})
		rec := postJSON(t, h.Refresh, `{"refresh_token":"old"}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("rotation succeeds", func(t *testing.T) {
		h := newTestHandler(&accountsStub{acct: acct}, &rolesStub{role: role},
			&tokensStub{tok: live}, &sessionsStub{})
		rec := postJSON(t, h.Refresh, `{"refresh_token":"old"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"access"`)
	})
}
