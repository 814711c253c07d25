// Package service orchestrates the authentication lifecycle: credential
// checks with lockout, token pair issuance and persistence, session
// tracking, rotation, revocation and the security-event trail.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/employee-management/internal/auth"
	"github.com/iliyamo/employee-management/internal/config"
	"github.com/iliyamo/employee-management/internal/model"
	"github.com/iliyamo/employee-management/internal/queue"
	"github.com/iliyamo/employee-management/internal/repository"
)

// Sentinel failures surfaced to handlers. Invalid username and invalid
// password intentionally collapse into one value.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked")
	ErrAccountInactive    = errors.New("account inactive")
	ErrInvalidRefresh     = errors.New("invalid refresh token")
	ErrInvalidReset       = errors.New("invalid reset token")
)

// AccountStore is the slice of the credential store the service needs.
type AccountStore interface {
	Create(ctx context.Context, username, email, password string, roleID uint64, cost int) (uint64, error)
	GetByID(ctx context.Context, id uint64) (model.Account, error)
	GetByUsername(ctx context.Context, username string) (model.Account, error)
	GetByResetToken(ctx context.Context, token string) (model.Account, error)
	RecordLoginFailure(ctx context.Context, id uint64, maxFailures int, lockFor time.Duration) (int, error)
	ResetLoginFailures(ctx context.Context, id uint64) error
	UpdatePassword(ctx context.Context, id uint64, password string, cost int) error
	SetResetToken(ctx context.Context, id uint64, token string, exp time.Time) error
	ClearResetToken(ctx context.Context, id uint64) error
}

// RoleStore resolves permission bundles.
type RoleStore interface {
	GetByID(ctx context.Context, id uint64) (model.Role, error)
	GetByName(ctx context.Context, name string) (model.Role, error)
}

// TokenStore persists issued pairs.
type TokenStore interface {
	Create(ctx context.Context, t *model.Token) error
	GetByRefreshToken(ctx context.Context, refresh string) (model.Token, error)
	RevokeByID(ctx context.Context, id uint64, reason string) error
	RevokeAllForAccount(ctx context.Context, accountID uint64, reason string) (int64, error)
	RevokeByIP(ctx context.Context, ip, reason string) (int64, error)
	RotateRefresh(ctx context.Context, oldRefresh, newRefresh string, newExp time.Time) error
}

// SessionStore persists logical sessions.
type SessionStore interface {
	Create(ctx context.Context, s *model.Session) error
	GetByToken(ctx context.Context, token string) (model.Session, error)
	TerminateByID(ctx context.Context, id uint64) error
	TerminateAllForAccount(ctx context.Context, accountID uint64) (int64, error)
	UpdateLastActivity(ctx context.Context, token string) error
	ExtendExpiry(ctx context.Context, token string, until time.Time) error
	ListActiveForAccount(ctx context.Context, accountID uint64) ([]model.Session, error)
}

// AuthService bundles the stores with the token issuer. Publish defaults
// to the RabbitMQ publisher; broker failures are ignored because
// authentication must not depend on the event trail.
type AuthService struct {
	Cfg      config.Config
	Issuer   *auth.Issuer
	Accounts AccountStore
	Roles    RoleStore
	Tokens   TokenStore
	Sessions SessionStore
	Publish  func(ctx context.Context, ev queue.SecurityEvent) error
}

// NewAuthService wires the service from configuration and concrete stores.
func NewAuthService(cfg config.Config, accounts AccountStore, roles RoleStore, tokens TokenStore, sessions SessionStore) *AuthService {
	return &AuthService{
		Cfg:      cfg,
		Issuer:   auth.NewIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTLMin, cfg.RefreshTTLDays),
		Accounts: accounts,
		Roles:    roles,
		Tokens:   tokens,
		Sessions: sessions,
		Publish:  queue.PublishSecurityEvent,
	}
}

func (s *AuthService) publish(ctx context.Context, ev queue.SecurityEvent) {
	if s.Publish != nil {
		_ = s.Publish(ctx, ev)
	}
}

// LoginInput carries everything the login flow records about the client.
type LoginInput struct {
	Username   string
	Password   string
	IPAddress  string
	UserAgent  string
	DeviceType string
	Location   string
	RememberMe bool
}

// LoginResult is the issued credential set plus the session handle.
type LoginResult struct {
	Account      model.Account
	Role         model.Role
	AccessToken  string
	AccessExp    time.Time
	RefreshToken string
	RefreshExp   time.Time
	SessionToken string
}

// Login validates credentials and, on success, mints an access/refresh
// pair, persists it, and opens a session. Failed attempts bump the
// account's failure counter; reaching the limit locks the account for the
// configured window.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	acct, err := s.Accounts.GetByUsername(ctx, in.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	now := time.Now().UTC()
	if !acct.IsActive {
		return nil, ErrAccountInactive
	}
	if acct.Locked(now) {
		return nil, ErrAccountLocked
	}
	if !auth.VerifyPassword(acct.PasswordHash, in.Password) {
		count, ferr := s.Accounts.RecordLoginFailure(ctx, acct.ID, s.Cfg.MaxLoginFailures, s.Cfg.LockoutDuration)
		if ferr == nil && count >= s.Cfg.MaxLoginFailures {
			s.publish(ctx, queue.SecurityEvent{
				Type: queue.EventAccountLocked, AccountID: acct.ID,
				Username: acct.Username, IPAddress: in.IPAddress,
			})
		} else {
			s.publish(ctx, queue.SecurityEvent{
				Type: queue.EventLoginFailed, AccountID: acct.ID,
				Username: acct.Username, IPAddress: in.IPAddress, UserAgent: in.UserAgent,
			})
		}
		return nil, ErrInvalidCredentials
	}
	if err := s.Accounts.ResetLoginFailures(ctx, acct.ID); err != nil {
		return nil, err
	}

	role, err := s.Roles.GetByID(ctx, acct.RoleID)
	if err != nil {
		return nil, err
	}
	result, err := s.issuePair(ctx, &acct, &role, in)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, queue.SecurityEvent{
		Type: queue.EventLoginSucceeded, AccountID: acct.ID,
		Username: acct.Username, IPAddress: in.IPAddress, UserAgent: in.UserAgent,
	})
	return result, nil
}

// issuePair mints both tokens, persists the pair and opens a session.
func (s *AuthService) issuePair(ctx context.Context, acct *model.Account, role *model.Role, in LoginInput) (*LoginResult, error) {
	// An inactive role keeps the login but strips every capability.
	var perms []string
	if role.IsActive {
		perms = auth.PermissionsForRole(role)
	}
	access, err := s.Issuer.IssueAccessToken(auth.AccountClaims{
		AccountID: acct.ID,
		Username:  acct.Username,
		Email:     acct.Email,
		RoleID:    role.ID,
		RoleName:  role.Name,
	}, perms)
	if err != nil {
		return nil, err
	}
	refresh, err := s.Issuer.IssueRefreshToken()
	if err != nil {
		return nil, err
	}

	tok := &model.Token{
		AccountID:        acct.ID,
		AccessToken:      access.Token,
		RefreshToken:     refresh.Raw,
		ExpiresAt:        access.Exp,
		RefreshExpiresAt: refresh.Exp,
		IPAddress:        in.IPAddress,
		UserAgent:        in.UserAgent,
	}
	if err := s.Tokens.Create(ctx, tok); err != nil {
		return nil, err
	}

	sessionToken, err := auth.NewSessionToken()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	sessionExp := refresh.Exp
	if in.RememberMe {
		sessionExp = now.Add(2 * s.Issuer.RefreshTTL)
	}
	sess := &model.Session{
		AccountID:    acct.ID,
		SessionToken: sessionToken,
		IPAddress:    in.IPAddress,
		UserAgent:    in.UserAgent,
		DeviceType:   in.DeviceType,
		Location:     in.Location,
		LoginAt:      now,
		LastActivity: now,
		ExpiresAt:    sessionExp,
	}
	if err := s.Sessions.Create(ctx, sess); err != nil {
		return nil, err
	}

	return &LoginResult{
		Account:      *acct,
		Role:         *role,
		AccessToken:  access.Token,
		AccessExp:    access.Exp,
		RefreshToken: refresh.Raw,
		RefreshExp:   refresh.Exp,
		SessionToken: sessionToken,
	}, nil
}

// RefreshResult is the outcome of a refresh call: a new access token and
// the rotated refresh token.
type RefreshResult struct {
	AccessToken  string
	AccessExp    time.Time
	RefreshToken string
	RefreshExp   time.Time
}

// Refresh exchanges a refresh token for a new access token, rotating the
// refresh secret in place. Rotation follows the stored pair's lifecycle:
// a revoked or refresh-expired pair is ErrInvalidRefresh, and a pair whose
// access expiry has passed is repository.ErrInvalidState; that pair can
// only be replaced by a full re-login.
func (s *AuthService) Refresh(ctx context.Context, refreshRaw string) (*RefreshResult, error) {
	tok, err := s.Tokens.GetByRefreshToken(ctx, refreshRaw)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}
	now := time.Now().UTC()
	if tok.Revoked || !now.Before(tok.RefreshExpiresAt) {
		return nil, ErrInvalidRefresh
	}

	acct, err := s.Accounts.GetByID(ctx, tok.AccountID)
	if err != nil {
		return nil, err
	}
	if !acct.IsActive {
		return nil, ErrAccountInactive
	}
	role, err := s.Roles.GetByID(ctx, acct.RoleID)
	if err != nil {
		return nil, err
	}
	var perms []string
	if role.IsActive {
		perms = auth.PermissionsForRole(&role)
	}
	access, err := s.Issuer.IssueAccessToken(auth.AccountClaims{
		AccountID: acct.ID,
		Username:  acct.Username,
		Email:     acct.Email,
		RoleID:    role.ID,
		RoleName:  role.Name,
	}, perms)
	if err != nil {
		return nil, err
	}
	newRefresh, err := s.Issuer.IssueRefreshToken()
	if err != nil {
		return nil, err
	}
	// The store re-checks revocation and the access expiry atomically with
	// the rotation; the precondition may have flipped since the read above.
	if err := s.Tokens.RotateRefresh(ctx, refreshRaw, newRefresh.Raw, newRefresh.Exp); err != nil {
		return nil, err
	}
	return &RefreshResult{
		AccessToken:  access.Token,
		AccessExp:    access.Exp,
		RefreshToken: newRefresh.Raw,
		RefreshExp:   newRefresh.Exp,
	}, nil
}

// Logout revokes the pair holding the given refresh token and terminates
// the session, ending one device's presence.
func (s *AuthService) Logout(ctx context.Context, refreshRaw, sessionToken, reason string) error {
	tok, err := s.Tokens.GetByRefreshToken(ctx, refreshRaw)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidRefresh
		}
		return err
	}
	if err := s.Tokens.RevokeByID(ctx, tok.ID, reason); err != nil {
		return err
	}
	if sessionToken != "" {
		if sess, err := s.Sessions.GetByToken(ctx, sessionToken); err == nil {
			_ = s.Sessions.TerminateByID(ctx, sess.ID)
		}
	}
	s.publish(ctx, queue.SecurityEvent{
		Type: queue.EventTokenRevoked, AccountID: tok.AccountID, Reason: reason,
	})
	return nil
}

// LogoutEverywhere revokes all of the account's active pairs and
// terminates all of its sessions, returning both counts.
func (s *AuthService) LogoutEverywhere(ctx context.Context, accountID uint64, reason string) (tokens, sessions int64, err error) {
	tokens, err = s.Tokens.RevokeAllForAccount(ctx, accountID, reason)
	if err != nil {
		return 0, 0, err
	}
	sessions, err = s.Sessions.TerminateAllForAccount(ctx, accountID)
	if err != nil {
		return tokens, 0, err
	}
	s.publish(ctx, queue.SecurityEvent{
		Type: queue.EventBulkRevocation, AccountID: accountID, Reason: reason, Count: tokens,
	})
	s.publish(ctx, queue.SecurityEvent{
		Type: queue.EventSessionsEnded, AccountID: accountID, Reason: reason, Count: sessions,
	})
	return tokens, sessions, nil
}

// RevokeTokensByIP bulk-revokes every active pair issued from the given
// IP. Incident-response primitive for compromised origins.
func (s *AuthService) RevokeTokensByIP(ctx context.Context, ip, reason string) (int64, error) {
	n, err := s.Tokens.RevokeByIP(ctx, ip, reason)
	if err != nil {
		return 0, err
	}
	s.publish(ctx, queue.SecurityEvent{
		Type: queue.EventBulkRevocation, IPAddress: ip, Reason: reason, Count: n,
	})
	return n, nil
}

// TouchSession stamps activity on the session; missing or terminated
// sessions are ignored so the middleware stays cheap.
func (s *AuthService) TouchSession(ctx context.Context, sessionToken string) {
	if sessionToken == "" {
		return
	}
	_ = s.Sessions.UpdateLastActivity(ctx, sessionToken)
}

// ExtendSession pushes the session's expiry out by one refresh lifetime
// from now. Backed by the store's conditional update, so a terminated or
// already-expired session is not resurrected.
func (s *AuthService) ExtendSession(ctx context.Context, sessionToken string) error {
	until := time.Now().UTC().Add(s.Issuer.RefreshTTL)
	return s.Sessions.ExtendExpiry(ctx, sessionToken, until)
}

// ChangePassword verifies the current password, stores the new hash and
// forces re-authentication everywhere.
func (s *AuthService) ChangePassword(ctx context.Context, accountID uint64, current, next string) error {
	acct, err := s.Accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if !auth.VerifyPassword(acct.PasswordHash, current) {
		return ErrInvalidCredentials
	}
	if err := s.Accounts.UpdatePassword(ctx, accountID, next, s.Cfg.BcryptCost); err != nil {
		return err
	}
	_, _, err = s.LogoutEverywhere(ctx, accountID, "password changed")
	return err
}

// RequestPasswordReset attaches a one-hour reset token to the account and
// returns it for out-of-band delivery. Unknown usernames succeed silently
// with an empty token so the endpoint does not confirm account existence.
func (s *AuthService) RequestPasswordReset(ctx context.Context, username string) (string, error) {
	acct, err := s.Accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	token, err := auth.NewResetToken()
	if err != nil {
		return "", err
	}
	exp := time.Now().UTC().Add(time.Hour)
	if err := s.Accounts.SetResetToken(ctx, acct.ID, token, exp); err != nil {
		return "", err
	}
	return token, nil
}

// ResetPassword consumes a reset token, stores the new hash and forces
// re-authentication everywhere.
func (s *AuthService) ResetPassword(ctx context.Context, resetToken, next string) error {
	acct, err := s.Accounts.GetByResetToken(ctx, resetToken)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidReset
		}
		return err
	}
	if err := s.Accounts.UpdatePassword(ctx, acct.ID, next, s.Cfg.BcryptCost); err != nil {
		return err
	}
	if err := s.Accounts.ClearResetToken(ctx, acct.ID); err != nil {
		return err
	}
	_, _, err = s.LogoutEverywhere(ctx, acct.ID, "password reset")
	return err
}

// Register creates an account under the configured default role and logs
// it in immediately.
func (s *AuthService) Register(ctx context.Context, username, email, password string, in LoginInput) (*LoginResult, error) {
	role, err := s.Roles.GetByName(ctx, s.Cfg.DefaultRole)
	if err != nil {
		return nil, err
	}
	id, err := s.Accounts.Create(ctx, username, email, password, role.ID, s.Cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	acct, err := s.Accounts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	result, err := s.issuePair(ctx, &acct, &role, in)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, queue.SecurityEvent{
		Type: queue.EventLoginSucceeded, AccountID: acct.ID,
		Username: acct.Username, IPAddress: in.IPAddress, UserAgent: in.UserAgent,
	})
	return result, nil
}
