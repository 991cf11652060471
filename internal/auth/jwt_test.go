package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokens(t *testing.T) *TokenService {
	t.Helper()
	s, err := NewTokenService(GenerateSecureSecret(), time.Hour)
	require.NoError(t, err)
	return s
}

// TestIssueAndValidate выпуск и проверка токена
func TestIssueAndValidate(t *testing.T) {
	s := newTokens(t)

	token, expires, err := s.Issue("player-1", "Лис", "jti-1")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(token, "."), "неверный формат JWT")
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	claims, err := s.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "player-1", claims.PlayerID())
	assert.Equal(t, "Лис", claims.Username)
	assert.Equal(t, "jti-1", claims.ID)
}

// TestValidateRejects недействительные токены
func TestValidateRejects(t *testing.T) {
	s := newTokens(t)
	other := newTokens(t)
	foreign, _, err := other.Issue("p", "u", "j")
	require.NoError(t, err)

	expired := newTokens(t)
	expired.secret = s.secret
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, err := expired.Issue("p", "u", "j")
	require.NoError(t, err)

	noJTI, _, err := s.Issue("p", "u", "")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"пустой", ""},
		{"мусор", "not.a.jwt"},
		{"чужая подпись", foreign},
		{"просроченный", old},
		{"без jti", noJTI},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Validate(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestNewTokenServiceSecret(t *testing.T) {
	_, err := NewTokenService("c2hvcnQ=", time.Hour)
	assert.ErrorIs(t, err, ErrWeakSecret)

	_, err = NewTokenService("%%%", time.Hour)
	assert.Error(t, err)

	s, err := NewTokenService("", 0)
	require.NoError(t, err, "пустой секрет генерируется случайно")
	assert.Equal(t, 24*time.Hour, s.ttl)
}

// TestGenerateSecureSecret ключи уникальны и достаточной длины
func TestGenerateSecureSecret(t *testing.T) {
	a, b := GenerateSecureSecret(), GenerateSecureSecret()
	assert.NotEqual(t, a, b)
	_, err := NewTokenService(a, time.Hour)
	assert.NoError(t, err)
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "s3cret"))
	assert.False(t, CheckPassword(hash, "other"))
}
