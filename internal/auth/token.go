package auth // package auth implements token issuance and verification

import (
	"crypto/rand"       // secure random number generation for opaque tokens
	"encoding/base64"   // url-safe encoding of opaque tokens
	"errors"            // sentinel error for failed verification
	"strconv"           // numeric claim conversion
	"time"              // expiry arithmetic

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens
	"github.com/google/uuid"       // uuid supplies the jti claim on every access token
)

// ErrInvalidToken is the single failure result of access-token verification.
// Signature, issuer, audience, algorithm and expiry failures all collapse to
// this value so that a caller cannot distinguish why verification failed.
var ErrInvalidToken = errors.New("invalid token")

// Permission claim vocabulary.  Authorization middleware matches against
// these exact strings.
const (
	PermViewEmployees   = "view_employees"
	PermEditEmployees   = "edit_employees"
	PermDeleteEmployees = "delete_employees"
	PermViewAttendance  = "view_attendance"
	PermEditAttendance  = "edit_attendance"
	PermGenerateReports = "generate_reports"
	PermManageUsers     = "manage_users"
	PermManageRoles     = "manage_roles"
	PermAdminAccess     = "admin_access"
)

// AccessToken represents a signed JWT access token along with its expiry.
// The Token field contains the JWT string.  Exp stores the expiration
// timestamp as a time.Time.  Access tokens are short‑lived and carried
// in the Authorization header when calling protected endpoints.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// RefreshToken represents a long‑lived opaque token used to obtain new
// access tokens.  It carries no claims and is meaningless without the
// token store row it is persisted into.
type RefreshToken struct {
	Raw string    // raw token string returned to the client
	Exp time.Time // UTC expiration time
}

// Claims is the verified claim set extracted from a valid access token.
type Claims struct {
	AccountID   uint64   // sub / user_id
	Username    string   // username claim
	Email       string   // email claim
	RoleID      uint64   // role_id claim
	RoleName    string   // role_name claim
	TokenID     string   // jti claim, unique per issued token
	Permissions []string // permission claims, subset of the vocabulary above
}

// HasPermission reports whether the claim set carries the given permission.
func (c *Claims) HasPermission(perm string) bool {
	for _, p := range c.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// Issuer mints and verifies tokens.  All fields are bound from
// configuration once at startup.
type Issuer struct {
	Secret     string        // HMAC signing secret
	Issuer     string        // iss claim
	Audience   string        // aud claim
	AccessTTL  time.Duration // access token lifetime
	RefreshTTL time.Duration // refresh token lifetime
}

// NewIssuer builds an Issuer from the configured lifetimes expressed the way
// the environment supplies them: minutes for access, days for refresh.
func NewIssuer(secret, issuer, audience string, accessTTLMin, refreshTTLDays int) *Issuer {
	return &Issuer{
		Secret:     secret,
		Issuer:     issuer,
		Audience:   audience,
		AccessTTL:  time.Duration(accessTTLMin) * time.Minute,
		RefreshTTL: time.Duration(refreshTTLDays) * 24 * time.Hour,
	}
}

// AccountClaims is the identity the issuer embeds.  It is a narrow input
// type so the issuer does not depend on the model package.
type AccountClaims struct {
	AccountID uint64
	Username  string
	Email     string
	RoleID    uint64
	RoleName  string
}

// IssueAccessToken builds and signs an HS256 JWT for an account.  The claim
// set contains the subject (account id), username, email, role identity, a
// fresh jti for anti-replay bookkeeping, and one permission string per
// enabled flag in the supplied permission set.  The function is pure with
// respect to stored state; persisting the issued pair is the caller's job.
func (i *Issuer) IssueAccessToken(acct AccountClaims, permissions []string) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(i.AccessTTL)
	claims := jwt.MapClaims{
		"sub":         strconv.FormatUint(acct.AccountID, 10),
		"user_id":     strconv.FormatUint(acct.AccountID, 10),
		"username":    acct.Username,
		"email":       acct.Email,
		"role_id":     strconv.FormatUint(acct.RoleID, 10),
		"role_name":   acct.RoleName,
		"jti":         uuid.NewString(),
		"permissions": permissions,
		"iss":         i.Issuer,
		"aud":         i.Audience,
		"iat":         now.Unix(),
		"exp":         exp.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(i.Secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// IssueRefreshToken returns a cryptographically secure opaque token and its
// expiration time.  32 bytes of entropy, url-safe base64 encoded; not a
// JWT; the server recognizes it only through the token store.
func (i *Issuer) IssueRefreshToken() (RefreshToken, error) {
	raw, err := randomToken(32)
	if err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{
		Raw: raw,
		Exp: time.Now().UTC().Add(i.RefreshTTL),
	}, nil
}

// ValidateAccessToken verifies signature, issuer, audience and expiry with
// zero clock-skew tolerance, then checks that the negotiated algorithm is
// exactly HS256.  The explicit post-parse algorithm check defends against
// algorithm-substitution: the keyfunc alone only restricts the method
// family, not the specific variant.  On any failure it returns
// ErrInvalidToken; on success it returns the embedded claim set.  It never
// consults the token store; callers needing revocation awareness must
// query that separately.
func (i *Issuer) ValidateAccessToken(tokenString string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.Issuer),
		jwt.WithAudience(i.Audience),
		jwt.WithExpirationRequired(),
	)
	tok, err := parser.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(i.Secret), nil
	})
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	if tok.Method.Alg() != jwt.SigningMethodHS256.Alg() {
		return nil, ErrInvalidToken
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claimsFromMap(mc)
}

// claimsFromMap converts raw map claims into the typed Claims structure.
// Malformed or missing identity claims are verification failures too.
func claimsFromMap(mc jwt.MapClaims) (*Claims, error) {
	c := &Claims{}
	var err error
	if c.AccountID, err = uintClaim(mc, "user_id"); err != nil {
		return nil, ErrInvalidToken
	}
	if c.RoleID, err = uintClaim(mc, "role_id"); err != nil {
		return nil, ErrInvalidToken
	}
	c.Username, _ = mc["username"].(string)
	c.Email, _ = mc["email"].(string)
	c.RoleName, _ = mc["role_name"].(string)
	c.TokenID, _ = mc["jti"].(string)
	if raw, ok := mc["permissions"].([]interface{}); ok {
		for _, v := range raw {
			if s, ok := v.(string); ok {
				c.Permissions = append(c.Permissions, s)
			}
		}
	}
	return c, nil
}

// uintClaim reads a claim that may have been decoded as a JSON string or
// number and converts it to uint64.
func uintClaim(mc jwt.MapClaims, key string) (uint64, error) {
	switch v := mc[key].(type) {
	case string:
		return strconv.ParseUint(v, 10, 64)
	case float64:
		return uint64(v), nil
	}
	return 0, ErrInvalidToken
}

// NewSessionToken returns an opaque identifier for a session row.  Same
// generator as refresh tokens; uniqueness is enforced by the database.
func NewSessionToken() (string, error) {
	return randomToken(32)
}

// NewResetToken returns an opaque password-reset token.
func NewResetToken() (string, error) {
	return randomToken(32)
}

// randomToken returns a url-safe base64 string generated from n bytes of
// cryptographically secure random data.
func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
