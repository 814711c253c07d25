package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/employee-management/internal/model"
)

const testSecret = "unit-test-secret-key-0123456789abcdef"

func testIssuer() *Issuer {
	return NewIssuer(testSecret, "employee-api", "employee-clients", 15, 7)
}

func testAccount() AccountClaims {
	return AccountClaims{
		AccountID: 42,
		Username:  "jdoe",
		Email:     "jdoe@example.com",
		RoleID:    3,
		RoleName:  "HR",
	}
}

func TestIssueAndValidateRoundTrip(t *testing.T) {
	iss := testIssuer()
	perms := []string{PermViewEmployees, PermEditAttendance}

	tok, err := iss.IssueAccessToken(testAccount(), perms)
	require.NoError(t, err)
	assert.NotEmpty(t, tok.Token)
	assert.WithinDuration(t, time.Now().UTC().Add(15*time.Minute), tok.Exp, 5*time.Second)

	claims, err := iss.ValidateAccessToken(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), claims.AccountID)
	assert.Equal(t, "jdoe", claims.Username)
	assert.Equal(t, "jdoe@example.com", claims.Email)
	assert.Equal(t, uint64(3), claims.RoleID)
	assert.Equal(t, "HR", claims.RoleName)
	assert.Equal(t, perms, claims.Permissions)
	assert.NotEmpty(t, claims.TokenID)
}

func TestIssuedTokensCarryUniqueTokenIDs(t *testing.T) {
	iss := testIssuer()
	a, err := iss.IssueAccessToken(testAccount(), nil)
	require.NoError(t, err)
	b, err := iss.IssueAccessToken(testAccount(), nil)
	require.NoError(t, err)

	ca, err := iss.ValidateAccessToken(a.Token)
	require.NoError(t, err)
	cb, err := iss.ValidateAccessToken(b.Token)
	require.NoError(t, err)
	assert.NotEqual(t, ca.TokenID, cb.TokenID)
}

func TestPermissionsMatchRoleFlagsExactly(t *testing.T) {
	role := &model.Role{Name: "VIEWER", CanViewEmployees: true, IsActive: true}
	perms := PermissionsForRole(role)
	assert.Equal(t, []string{PermViewEmployees}, perms)

	all := &model.Role{
		CanViewEmployees: true, CanEditEmployees: true, CanDeleteEmployees: true,
		CanViewAttendance: true, CanEditAttendance: true, CanGenerateReports: true,
		CanManageUsers: true, CanManageRoles: true, CanAccessAdmin: true,
	}
	assert.Len(t, PermissionsForRole(all), 9)

	none := &model.Role{Name: "NONE"}
	assert.Empty(t, PermissionsForRole(none))
}

func TestValidateRejectsWrongKey(t *testing.T) {
	iss := testIssuer()
	tok, err := iss.IssueAccessToken(testAccount(), nil)
	require.NoError(t, err)

	other := NewIssuer("a-completely-different-secret-value", iss.Issuer, iss.Audience, 15, 7)
	_, err = other.ValidateAccessToken(tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsExpired(t *testing.T) {
	iss := testIssuer()
	iss.AccessTTL = -time.Minute // already expired at issuance
	tok, err := iss.IssueAccessToken(testAccount(), nil)
	require.NoError(t, err)

	_, err = testIssuer().ValidateAccessToken(tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsIssuerAndAudienceMismatch(t *testing.T) {
	iss := testIssuer()
	tok, err := iss.IssueAccessToken(testAccount(), nil)
	require.NoError(t, err)

	wrongIss := NewIssuer(testSecret, "someone-else", iss.Audience, 15, 7)
	_, err = wrongIss.ValidateAccessToken(tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongAud := NewIssuer(testSecret, iss.Issuer, "other-clients", 15, 7)
	_, err = wrongAud.ValidateAccessToken(tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

// A token signed with HS384 under the same secret verifies fine as HMAC but
// must still be rejected: the accepted algorithm is exactly HS256.
func TestValidateRejectsAlgorithmSubstitution(t *testing.T) {
	iss := testIssuer()
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub": "42", "user_id": "42", "role_id": "3",
		"iss": iss.Issuer, "aud": iss.Audience,
		"iat": now.Unix(), "exp": now.Add(time.Hour).Unix(),
	}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS384, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = iss.ValidateAccessToken(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsGarbage(t *testing.T) {
	iss := testIssuer()
	for _, s := range []string{"", "not-a-jwt", "aaa.bbb.ccc"} {
		_, err := iss.ValidateAccessToken(s)
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
}

func TestRefreshTokenShape(t *testing.T) {
	iss := testIssuer()
	rt, err := iss.IssueRefreshToken()
	require.NoError(t, err)
	// 32 bytes of entropy, url-safe base64 without padding -> 43 chars.
	assert.Len(t, rt.Raw, 43)
	assert.WithinDuration(t, time.Now().UTC().Add(7*24*time.Hour), rt.Exp, 5*time.Second)

	other, err := iss.IssueRefreshToken()
	require.NoError(t, err)
	assert.NotEqual(t, rt.Raw, other.Raw)
}

func TestPasswordHashVerify(t *testing.T) {
	hash, err := HashPassword("s3cret!", 4)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "s3cret!"))
	assert.False(t, VerifyPassword(hash, "wrong"))
}
