package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T, accessTTL, refreshTTL time.Duration) *TokenCodec {
	t.Helper()
	codec, err := NewTokenCodec("access-secret-for-tests", "refresh-secret-for-tests", accessTTL, refreshTTL)
	require.NoError(t, err)
	return codec
}

func TestNewTokenCodecValidation(t *testing.T) {
	tests := []struct {
		name          string
		accessSecret  string
		refreshSecret string
		accessTTL     time.Duration
		refreshTTL    time.Duration
	}{
		{"empty access secret", "", "r", time.Minute, time.Hour},
		{"empty refresh secret", "a", "", time.Minute, time.Hour},
		{"identical secrets", "same", "same", time.Minute, time.Hour},
		{"zero access ttl", "a", "r", 0, time.Hour},
		{"negative refresh ttl", "a", "r", time.Minute, -time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTokenCodec(tt.accessSecret, tt.refreshSecret, tt.accessTTL, tt.refreshTTL)
			require.ErrorIs(t, err, ErrMisconfigured)
		})
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	codec := newTestCodec(t, 15*time.Minute, 168*time.Hour)

	token, err := codec.SignAccessToken("user-1", "Ada", "admin")
	require.NoError(t, err)

	user, err := codec.VerifyAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", user.ID)
	require.Equal(t, "Ada", user.Name)
	require.Equal(t, "admin", user.Role)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	codec := newTestCodec(t, 15*time.Minute, 168*time.Hour)

	token, err := codec.SignRefreshToken("user-2")
	require.NoError(t, err)

	userID, err := codec.VerifyRefreshToken(token)
	require.NoError(t, err)
	require.Equal(t, "user-2", userID)
}

func TestExpiredTokenReportsExpiry(t *testing.T) {
	codec := newTestCodec(t, time.Nanosecond, time.Nanosecond)

	token, err := codec.SignAccessToken("user-1", "Ada", "user")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	// Expiry is a distinct outcome from invalidity: clients refresh on the
	// former and re-login on the latter.
	_, err = codec.VerifyAccessToken(token)
	require.ErrorIs(t, err, ErrTokenExpired)
	require.False(t, errors.Is(err, ErrTokenInvalid))

	refreshToken, err := codec.SignRefreshToken("user-1")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	_, err = codec.VerifyRefreshToken(refreshToken)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestCrossKeyRejection(t *testing.T) {
	codec := newTestCodec(t, 15*time.Minute, 168*time.Hour)

	// A refresh token presented on the access path must not verify, and
	// vice versa: the two kinds are signed with distinct secrets.
	refreshToken, err := codec.SignRefreshToken("user-1")
	require.NoError(t, err)
	_, err = codec.VerifyAccessToken(refreshToken)
	require.ErrorIs(t, err, ErrTokenInvalid)

	accessToken, err := codec.SignAccessToken("user-1", "Ada", "user")
	require.NoError(t, err)
	_, err = codec.VerifyRefreshToken(accessToken)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestMalformedTokenRejection(t *testing.T) {
	codec := newTestCodec(t, 15*time.Minute, 168*time.Hour)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := codec.VerifyAccessToken(token)
		require.ErrorIs(t, err, ErrTokenInvalid)
	}
}
