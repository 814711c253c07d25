package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/employee-management/internal/auth"
	"github.com/iliyamo/employee-management/internal/config"
	"github.com/iliyamo/employee-management/internal/model"
	"github.com/iliyamo/employee-management/internal/queue"
	"github.com/iliyamo/employee-management/internal/repository"
)

// ----- function-field mocks -----

var errNotImplemented = errors.New("not implemented")

type mockAccounts struct {
	createFunc             func(username, email, password string, roleID uint64) (uint64, error)
	getByIDFunc            func(id uint64) (model.Account, error)
	getByUsernameFunc      func(username string) (model.Account, error)
	getByResetTokenFunc    func(token string) (model.Account, error)
	recordLoginFailureFunc func(id uint64) (int, error)
	resetLoginFailuresFunc func(id uint64) error
	updatePasswordFunc     func(id uint64, password string) error
	setResetTokenFunc      func(id uint64, token string, exp time.Time) error
	clearResetTokenFunc    func(id uint64) error
}

func (m *mockAccounts) Create(_ context.Context, username, email, password string, roleID uint64, _ int) (uint64, error) {
	if m.createFunc == nil {
		return 0, errNotImplemented
	}
	return m.createFunc(username, email, password, roleID)
}
func (m *mockAccounts) GetByID(_ context.Context, id uint64) (model.Account, error) {
	if m.getByIDFunc == nil {
		return model.Account{}, errNotImplemented
	}
	return m.getByIDFunc(id)
}
func (m *mockAccounts) GetByUsername(_ context.Context, u string) (model.Account, error) {
	if m.getByUsernameFunc == nil {
		return model.Account{}, errNotImplemented
	}
	return m.getByUsernameFunc(u)
}
func (m *mockAccounts) GetByResetToken(_ context.Context, t string) (model.Account, error) {
	if m.getByResetTokenFunc == nil {
		return model.Account{}, errNotImplemented
	}
	return m.getByResetTokenFunc(t)
}
func (m *mockAccounts) RecordLoginFailure(_ context.Context, id uint64, _ int, _ time.Duration) (int, error) {
	if m.recordLoginFailureFunc == nil {
		return 0, errNotImplemented
	}
	return m.recordLoginFailureFunc(id)
}
func (m *mockAccounts) ResetLoginFailures(_ context.Context, id uint64) error {
	if m.resetLoginFailuresFunc == nil {
		return nil
	}
	return m.resetLoginFailuresFunc(id)
}
func (m *mockAccounts) UpdatePassword(_ context.Context, id uint64, password string, _ int) error {
	if m.updatePasswordFunc == nil {
		return errNotImplemented
	}
	return m.updatePasswordFunc(id, password)
}
func (m *mockAccounts) SetResetToken(_ context.Context, id uint64, token string, exp time.Time) error {
	if m.setResetTokenFunc == nil {
		return errNotImplemented
	}
	return m.setResetTokenFunc(id, token, exp)
}
func (m *mockAccounts) ClearResetToken(_ context.Context, id uint64) error {
	if m.clearResetTokenFunc == nil {
		return errNotImplemented
	}
	return m.clearResetTokenFunc(id)
}

type mockRoles struct {
	getByIDFunc   func(id uint64) (model.Role, error)
	getByNameFunc func(name string) (model.Role, error)
}

func (m *mockRoles) GetByID(_ context.Context, id uint64) (model.Role, error) {
	if m.getByIDFunc == nil {
		return model.Role{}, errNotImplemented
	}
	return m.getByIDFunc(id)
}
func (m *mockRoles) GetByName(_ context.Context, name string) (model.Role, error) {
	if m.getByNameFunc == nil {
		return model.Role{}, errNotImplemented
	}
	return m.getByNameFunc(name)
}

type mockTokens struct {
	createFunc              func(t *model.Token) error
	getByRefreshFunc        func(refresh string) (model.Token, error)
	revokeByIDFunc          func(id uint64, reason string) error
	revokeAllForAccountFunc func(accountID uint64, reason string) (int64, error)
	revokeByIPFunc          func(ip, reason string) (int64, error)
	rotateRefreshFunc       func(oldRefresh, newRefresh string, newExp time.Time) error
}

func (m *mockTokens) Create(_ context.Context, t *model.Token) error {
	if m.createFunc == nil {
		return errNotImplemented
	}
	return m.createFunc(t)
}
func (m *mockTokens) GetByRefreshToken(_ context.Context, r string) (model.Token, error) {
	if m.getByRefreshFunc == nil {
		return model.Token{}, errNotImplemented
	}
	return m.getByRefreshFunc(r)
}
func (m *mockTokens) RevokeByID(_ context.Context, id uint64, reason string) error {
	if m.revokeByIDFunc == nil {
		return errNotImplemented
	}
	return m.revokeByIDFunc(id, reason)
}
func (m *mockTokens) RevokeAllForAccount(_ context.Context, accountID uint64, reason string) (int64, error) {
	if m.revokeAllForAccountFunc == nil {
		return 0, errNotImplemented
	}
	return m.revokeAllForAccountFunc(accountID, reason)
}
func (m *mockTokens) RevokeByIP(_ context.Context, ip, reason string) (int64, error) {
	if m.revokeByIPFunc == nil {
		return 0, errNotImplemented
	}
	return m.revokeByIPFunc(ip, reason)
}
func (m *mockTokens) RotateRefresh(_ context.Context, oldRefresh, newRefresh string, newExp time.Time) error {
	if m.rotateRefreshFunc == nil {
		return errNotImplemented
	}
	return m.rotateRefreshFunc(oldRefresh, newRefresh, newExp)
}

type mockSessions struct {
	createFunc                 func(s *model.Session) error
	getByTokenFunc             func(token string) (model.Session, error)
	terminateByIDFunc          func(id uint64) error
	terminateAllForAccountFunc func(accountID uint64) (int64, error)
	updateLastActivityFunc     func(token string) error
	extendExpiryFunc           func(token string, until time.Time) error
	listActiveForAccountFunc   func(accountID uint64) ([]model.Session, error)
}

func (m *mockSessions) Create(_ context.Context, s *model.Session) error {
	if m.createFunc == nil {
		return errNotImplemented
	}
	return m.createFunc(s)
}
func (m *mockSessions) GetByToken(_ context.Context, t string) (model.Session, error) {
	if m.getByTokenFunc == nil {
		return model.Session{}, errNotImplemented
	}
	return m.getByTokenFunc(t)
}
func (m *mockSessions) TerminateByID(_ context.Context, id uint64) error {
	if m.terminateByIDFunc == nil {
		return errNotImplemented
	}
	return m.terminateByIDFunc(id)
}
func (m *mockSessions) TerminateAllForAccount(_ context.Context, accountID uint64) (int64, error) {
	if m.terminateAllForAccountFunc == nil {
		return 0, errNotImplemented
	}
	return m.terminateAllForAccountFunc(accountID)
}
func (m *mockSessions) UpdateLastActivity(_ context.Context, token string) error {
	if m.updateLastActivityFunc == nil {
		return errNotImplemented
	}
	return m.updateLastActivityFunc(token)
}
func (m *mockSessions) ExtendExpiry(_ context.Context, token string, until time.Time) error {
	if m.extendExpiryFunc == nil {
		return errNotImplemented
	}
	return m.extendExpiryFunc(token, until)
}
func (m *mockSessions) ListActiveForAccount(_ context.Context, accountID uint64) ([]model.Session, error) {
	if m.listActiveForAccountFunc == nil {
		return nil, errNotImplemented
	}
	return m.listActiveForAccountFunc(accountID)
}

// eventRecorder collects published events instead of dialing a broker.
type eventRecorder struct {
	mu     sync.Mutex
	events []queue.SecurityEvent
}

func (r *eventRecorder) publish(_ context.Context, ev queue.SecurityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *eventRecorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

// ----- fixtures -----

func testConfig() config.Config {
	return config.Config{
		JWTSecret:        "service-test-secret-0123456789abcdef",
		JWTIssuer:        "employee-api",
		JWTAudience:      "employee-clients",
		AccessTTLMin:     15,
		RefreshTTLDays:   7,
		BcryptCost:       4,
		MaxLoginFailures: 3,
		LockoutDuration:  15 * time.Minute,
		DefaultRole:      "EMPLOYEE",
	}
}

func viewerRole() model.Role {
	return model.Role{ID: 2, Name: "VIEWER", CanViewEmployees: true, IsActive: true}
}

func activeAccount(t *testing.T, password string) model.Account {
	t.Helper()
	hash, err := auth.HashPassword(password, 4)
	require.NoError(t, err)
	return model.Account{
		ID:           7,
		Username:     "jdoe",
		Email:        "jdoe@example.com",
		PasswordHash: hash,
		RoleID:       2,
		IsActive:     true,
	}
}

func newTestService(acc *mockAccounts, roles *mockRoles, tokens *mockTokens, sessions *mockSessions) (*AuthService, *eventRecorder) {
	rec := &eventRecorder{}
	svc := NewAuthService(testConfig(), acc, roles, tokens, sessions)
	svc.Publish = rec.publish
	return svc, rec
}

// ----- Login -----

func TestLoginSuccessIssuesPairAndSession(t *testing.T) {
	acct := activeAccount(t, "password123")
	var storedToken *model.Token
	var storedSession *model.Session

	acc := &mockAccounts{
		getByUsernameFunc:      func(string) (model.Account, error) { return acct, nil },
		resetLoginFailuresFunc: func(uint64) error { return nil },
	}
	roles := &mockRoles{getByIDFunc: func(uint64) (model.Role, error) { r := viewerRole(); return r, nil }}
	tokens := &mockTokens{createFunc: func(tok *model.Token) error { storedToken = tok; tok.ID = 1; return nil }}
	sessions := &mockSessions{createFunc: func(s *model.Session) error { storedSession = s; s.ID = 1; return nil }}
	svc, rec := newTestService(acc, roles, tokens, sessions)

	res, err := svc.Login(context.Background(), LoginInput{
		Username: "jdoe", Password: "password123",
		IPAddress: "10.0.0.1", UserAgent: "go-test", DeviceType: "web",
	})
	require.NoError(t, err)

	// The persisted pair mirrors what the client received.
	require.NotNil(t, storedToken)
	assert.Equal(t, res.AccessToken, storedToken.AccessToken)
	assert.Equal(t, res.RefreshToken, storedToken.RefreshToken)
	assert.Equal(t, acct.ID, storedToken.AccountID)
	assert.Equal(t, "10.0.0.1", storedToken.IPAddress)

	require.NotNil(t, storedSession)
	assert.Equal(t, acct.ID, storedSession.AccountID)
	assert.Equal(t, res.SessionToken, storedSession.SessionToken)
	assert.Equal(t, "web", storedSession.DeviceType)

	// Claims carry exactly the role's enabled permissions.
	claims, err := svc.Issuer.ValidateAccessToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, []string{auth.PermViewEmployees}, claims.Permissions)
	assert.Equal(t, acct.ID, claims.AccountID)
	assert.Equal(t, uint64(2), claims.RoleID)

	assert.Equal(t, []string{queue.EventLoginSucceeded}, rec.types())
}

func TestLoginUnknownUserCollapsesToInvalidCredentials(t *testing.T) {
	acc := &mockAccounts{
		getByUsernameFunc: func(string) (model.Account, error) { return model.Account{}, repository.ErrNotFound },
	}
	svc, _ := newTestService(acc, &mockRoles{}, &mockTokens{}, &mockSessions{})

	_, err := svc.Login(context.Background(), LoginInput{Username: "ghost", Password: "x"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginWrongPasswordRecordsFailure(t *testing.T) {
	acct := activeAccount(t, "password123")
	recorded := false
	acc := &mockAccounts{
		getByUsernameFunc:      func(string) (model.Account, error) { return acct, nil },
		recordLoginFailureFunc: func(uint64) (int, error) { recorded = true; return 1, nil },
	}
	svc, rec := newTestService(acc, &mockRoles{}, &mockTokens{}, &mockSessions{})

	_, err := svc.Login(context.Background(), LoginInput{Username: "jdoe", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.True(t, recorded)
	assert.Equal(t, []string{queue.EventLoginFailed}, rec.types())
}

func TestLoginFinalFailurePublishesLockEvent(t *testing.T) {
	acct := activeAccount(t, "password123")
	acc := &mockAccounts{
		getByUsernameFunc:      func(string) (model.Account, error) { return acct, nil },
		recordLoginFailureFunc: func(uint64) (int, error) { return 3, nil }, // limit reached
	}
	svc, rec := newTestService(acc, &mockRoles{}, &mockTokens{}, &mockSessions{})

	_, err := svc.Login(context.Background(), LoginInput{Username: "jdoe", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, []string{queue.EventAccountLocked}, rec.types())
}

func TestLoginLockedAccount(t *testing.T) {
	acct := activeAccount(t, "password123")
	until := time.Now().UTC().Add(10 * time.Minute)
	acct.LockedUntil = &until
	acc := &mockAccounts{getByUsernameFunc: func(string) (model.Account, error) { return acct, nil }}
	svc, _ := newTestService(acc, &mockRoles{}, &mockTokens{}, &mockSessions{})

	_, err := svc.Login(context.Background(), LoginInput{Username: "jdoe", Password: "password123"})
	assert.ErrorIs(t, err, ErrAccountLocked)
}

func TestLoginInactiveAccount(t *testing.T) {
	acct := activeAccount(t, "password123")
	acct.IsActive = false
	acc := &mockAccounts{getByUsernameFunc: func(string) (model.Account, error) { return acct, nil }}
	svc, _ := newTestService(acc, &mockRoles{}, &mockTokens{}, &mockSessions{})

	_, err := svc.Login(context.Background(), LoginInput{Username: "jdoe", Password: "password123"})
	assert.ErrorIs(t, err, ErrAccountInactive)
}

func TestLoginInactiveRoleStripsPermissions(t *testing.T) {
	acct := activeAccount(t, "password123")
	role := viewerRole()
	role.IsActive = false

	acc := &mockAccounts{
		getByUsernameFunc:      func(string) (model.Account, error) { return acct, nil },
		resetLoginFailuresFunc: func(uint64) error { return nil },
	}
	roles := &mockRoles{getByIDFunc: func(uint64) (model.Role, error) { return role, nil }}
	tokens := &mockTokens{createFunc: func(*model.Token) error { return nil }}
	sessions := &mockSessions{createFunc: func(*model.Session) error { return nil }}
	svc, _ := newTestService(acc, roles, tokens, sessions)

	res, err := svc.Login(context.Background(), LoginInput{Username: "jdoe", Password: "password123"})
	require.NoError(t, err)
	claims, err := svc.Issuer.ValidateAccessToken(res.AccessToken)
	require.NoError(t, err)
	assert.Empty(t, claims.Permissions)
}

// ----- Refresh -----

func refreshableToken(acct model.Account) model.Token {
	now := time.Now().UTC()
	return model.Token{
		ID:               11,
		AccountID:        acct.ID,
		RefreshToken:     "old-refresh",
		ExpiresAt:        now.Add(10 * time.Minute),
		RefreshExpiresAt: now.Add(6 * 24 * time.Hour),
	}
}

func TestRefreshRotatesPair(t *testing.T) {
	acct := activeAccount(t, "password123")
	tok := refreshableToken(acct)
	var rotatedTo string

	acc := &mockAccounts{getByIDFunc: func(uint64) (model.Account, error) { return acct, nil }}
	roles := &mockRoles{getByIDFunc: func(uint64) (model.Role, error) { r := viewerRole(); return r, nil }}
	tokens := &mockTokens{
		getByRefreshFunc: func(r string) (model.Token, error) {
			require.Equal(t, "old-refresh", r)
			return tok, nil
		},
		rotateRefreshFunc: func(oldRefresh, newRefresh string, _ time.Time) error {
			assert.Equal(t, "old-refresh", oldRefresh)
			rotatedTo = newRefresh
			return nil
		},
	}
	svc, _ := newTestService(acc, roles, tokens, &mockSessions{})

	res, err := svc.Refresh(context.Background(), "old-refresh")
	require.NoError(t, err)
	assert.Equal(t, rotatedTo, res.RefreshToken)
	assert.NotEqual(t, "old-refresh", res.RefreshToken)

	claims, err := svc.Issuer.ValidateAccessToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, acct.ID, claims.AccountID)
}

func TestRefreshRevokedPair(t *testing.T) {
	acct := activeAccount(t, "password123")
	tok := refreshableToken(acct)
	tok.Revoked = true
	tokens := &mockTokens{getByRefreshFunc: func(string) (model.Token, error) { return tok, nil }}
	svc, _ := newTestService(&mockAccounts{}, &mockRoles{}, tokens, &mockSessions{})

	_, err := svc.Refresh(context.Background(), "old-refresh")
	assert.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestRefreshExpiredRefreshToken(t *testing.T) {
	acct := activeAccount(t, "password123")
	tok := refreshableToken(acct)
	tok.RefreshExpiresAt = time.Now().UTC().Add(-time.Minute)
	tokens := &mockTokens{getByRefreshFunc: func(string) (model.Token, error) { return tok, nil }}
	svc, _ := newTestService(&mockAccounts{}, &mockRoles{}, tokens, &mockSessions{})

	_, err := svc.Refresh(context.Background(), "old-refresh")
	assert.ErrorIs(t, err, ErrInvalidRefresh)
}

// Rotation is refused once the pair's access expiry has passed even though
// the refresh token itself is still in date: the pair can only be replaced
// by a full re-login.
func TestRefreshAccessExpiredPairIsInvalidState(t *testing.T) {
	acct := activeAccount(t, "password123")
	tok := refreshableToken(acct)
	tok.ExpiresAt = time.Now().UTC().Add(-time.Minute)

	acc := &mockAccounts{getByIDFunc: func(uint64) (model.Account, error) { return acct, nil }}
	roles := &mockRoles{getByIDFunc: func(uint64) (model.Role, error) { r := viewerRole(); return r, nil }}
	tokens := &mockTokens{
		getByRefreshFunc: func(string) (model.Token, error) { return tok, nil },
		rotateRefreshFunc: func(string, string, time.Time) error {
			return repository.ErrInvalidState
		},
	}
	svc, _ := newTestService(acc, roles, tokens, &mockSessions{})

	_, err := svc.Refresh(context.Background(), "old-refresh")
	assert.ErrorIs(t, err, repository.ErrInvalidState)
}

func TestRefreshUnknownToken(t *testing.T) {
	tokens := &mockTokens{
		getByRefreshFunc: func(string) (model.Token, error) { return model.Token{}, repository.ErrNotFound },
	}
	svc, _ := newTestService(&mockAccounts{}, &mockRoles{}, tokens, &mockSessions{})

	_, err := svc.Refresh(context.Background(), "never-issued")
	assert.ErrorIs(t, err, ErrInvalidRefresh)
}

// ----- Logout / revocation -----

func TestLogoutEverywhereReportsCounts(t *testing.T) {
	tokens := &mockTokens{
		revokeAllForAccountFunc: func(accountID uint64, reason string) (int64, error) {
			assert.Equal(t, uint64(7), accountID)
			assert.Equal(t, "user request", reason)
			return 3, nil
		},
	}
	sessions := &mockSessions{
		terminateAllForAccountFunc: func(uint64) (int64, error) { return 2, nil },
	}
	svc, rec := newTestService(&mockAccounts{}, &mockRoles{}, tokens, sessions)

	nTok, nSess, err := svc.LogoutEverywhere(context.Background(), 7, "user request")
	require.NoError(t, err)
	assert.Equal(t, int64(3), nTok)
	assert.Equal(t, int64(2), nSess)
	assert.Equal(t, []string{queue.EventBulkRevocation, queue.EventSessionsEnded}, rec.types())
}

func TestRevokeTokensByIP(t *testing.T) {
	tokens := &mockTokens{
		revokeByIPFunc: func(ip, reason string) (int64, error) {
			assert.Equal(t, "203.0.113.9", ip)
			return 5, nil
		},
	}
	svc, rec := newTestService(&mockAccounts{}, &mockRoles{}, tokens, &mockSessions{})

	n, err := svc.RevokeTokensByIP(context.Background(), "203.0.113.9", "incident 42")
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	require.Len(t, rec.events, 1)
	assert.Equal(t, int64(5), rec.events[0].Count)
}

func TestLogoutRevokesPairAndSession(t *testing.T) {
	acct := activeAccount(t, "password123")
	tok := refreshableToken(acct)
	revoked := false
	terminated := false

	tokens := &mockTokens{
		getByRefreshFunc: func(string) (model.Token, error) { return tok, nil },
		revokeByIDFunc: func(id uint64, reason string) error {
			assert.Equal(t, tok.ID, id)
			revoked = true
			return nil
		},
	}
	sessions := &mockSessions{
		getByTokenFunc:    func(string) (model.Session, error) { return model.Session{ID: 21}, nil },
		terminateByIDFunc: func(id uint64) error { assert.Equal(t, uint64(21), id); terminated = true; return nil },
	}
	svc, _ := newTestService(&mockAccounts{}, &mockRoles{}, tokens, sessions)

	err := svc.Logout(context.Background(), "old-refresh", "session-token", "logout")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.True(t, terminated)
}

// ----- password management -----

func TestChangePasswordWrongCurrent(t *testing.T) {
	acct := activeAccount(t, "password123")
	acc := &mockAccounts{getByIDFunc: func(uint64) (model.Account, error) { return acct, nil }}
	svc, _ := newTestService(acc, &mockRoles{}, &mockTokens{}, &mockSessions{})

	err := svc.ChangePassword(context.Background(), acct.ID, "wrong", "newpass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestChangePasswordForcesReauthentication(t *testing.T) {
	acct := activeAccount(t, "password123")
	updated := false
	acc := &mockAccounts{
		getByIDFunc:        func(uint64) (model.Account, error) { return acct, nil },
		updatePasswordFunc: func(uint64, string) error { updated = true; return nil },
	}
	tokens := &mockTokens{revokeAllForAccountFunc: func(uint64, string) (int64, error) { return 1, nil }}
	sessions := &mockSessions{terminateAllForAccountFunc: func(uint64) (int64, error) { return 1, nil }}
	svc, _ := newTestService(acc, &mockRoles{}, tokens, sessions)

	err := svc.ChangePassword(context.Background(), acct.ID, "password123", "newpass")
	require.NoError(t, err)
	assert.True(t, updated)
}

func TestRequestPasswordResetUnknownUserIsSilent(t *testing.T) {
	acc := &mockAccounts{
		getByUsernameFunc: func(string) (model.Account, error) { return model.Account{}, repository.ErrNotFound },
	}
	svc, _ := newTestService(acc, &mockRoles{}, &mockTokens{}, &mockSessions{})

	token, err := svc.RequestPasswordReset(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Empty(t, token)
}
