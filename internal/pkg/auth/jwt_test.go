package auth

import (
	"testing"
	"time"

	"github.com/placeintern/backend/internal/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(now time.Time) *JWTService {
	s := NewJWTService(JWTConfig{
		SecretKey:       "test-secret",
		AccessTokenExp:  time.Hour,
		RefreshTokenExp: 24 * time.Hour,
		TokenIssuer:     "placeintern.test",
		SessionWarning:  5 * time.Minute,
	})
	s.now = func() time.Time { return now }
	return s
}

func TestGenerateAndValidateToken(t *testing.T) {
	now := time.Now()
	s := newTestService(now)
	institutionID := int64(7)
	user := &models.User{ID: 42, Email: "p@gpc.in", RoleType: models.RolePrincipal, InstitutionID: &institutionID}

	pair, err := s.GenerateTokenPair(user)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, 3600, pair.ExpiresIn)

	claims, err := s.ValidateAndExtractClaims(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, models.RolePrincipal, claims.Role())
	require.NotNil(t, claims.InstitutionID)
	assert.Equal(t, int64(7), *claims.InstitutionID)
}

func TestValidateTokenExpired(t *testing.T) {
	issued := time.Now().Add(-2 * time.Hour)
	s := newTestService(issued)
	pair, err := s.GenerateTokenPair(&models.User{ID: 1, Email: "a@b.in", RoleType: models.RoleStudent})
	require.NoError(t, err)

	s.now = time.Now
	_, err = s.ValidateToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	s := newTestService(time.Now())
	pair, err := s.GenerateTokenPair(&models.User{ID: 1, Email: "a@b.in", RoleType: models.RoleStudent})
	require.NoError(t, err)

	other := NewJWTService(JWTConfig{SecretKey: "other", AccessTokenExp: time.Hour})
	_, err = other.ValidateToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessionStatusWarning(t *testing.T) {
	issued := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s := newTestService(issued)
	pair, err := s.GenerateTokenPair(&models.User{ID: 1, Email: "a@b.in", RoleType: models.RoleStudent})
	require.NoError(t, err)
	claims, err := s.ValidateToken(pair.AccessToken)
	require.NoError(t, err)

	s.now = func() time.Time { return issued.Add(30 * time.Minute) }
	status := s.SessionStatus(claims)
	assert.Equal(t, int64(1800), status.RemainingSeconds)
	assert.False(t, status.Warning)

	s.now = func() time.Time { return issued.Add(55 * time.Minute) }
	status = s.SessionStatus(claims)
	assert.Equal(t, int64(300), status.RemainingSeconds)
	assert.True(t, status.Warning)

	s.now = func() time.Time { return issued.Add(54*time.Minute + 59*time.Second) }
	assert.False(t, s.SessionStatus(claims).Warning)
}

func TestExtractBearerToken(t *testing.T) {
	token, err := ExtractBearerToken("Bearer abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	_, err = ExtractBearerToken("")
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestTemporaryPassword(t *testing.T) {
	pw, err := GenerateTemporaryPassword(12)
	require.NoError(t, err)
	assert.Len(t, pw, 12)

	hash, err := HashPassword(pw)
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, pw))
	assert.False(t, CheckPassword(hash, pw+"x"))
}
