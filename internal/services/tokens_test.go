package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/dudesk/dudesk-chat/internal/pkg/errors"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenIssuerRoundTrip(t *testing.T) {
	ti, err := NewTokenIssuer(testSecret, time.Hour)
	require.NoError(t, err)
	sid := uuid.New()
	tok, err := ti.Issue(sid)
	require.NoError(t, err)

	got, err := ti.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, sid, got)
}

func TestTokenIssuerRejects(t *testing.T) {
	ti, err := NewTokenIssuer(testSecret, time.Hour)
	require.NoError(t, err)
	other, err := NewTokenIssuer("another-secret-of-enough-length", time.Hour)
	require.NoError(t, err)

	foreign, err := other.Issue(uuid.New())
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, SessionClaims{SessionID: uuid.NewString()}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	ti.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := ti.Issue(uuid.New())
	require.NoError(t, err)
	ti.now = time.Now

	for name, tok := range map[string]string{
		"empty":    "",
		"foreign":  foreign,
		"unsigned": unsigned,
		"expired":  expired,
		"garbage":  "not.a.token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ti.Parse(tok)
			require.ErrorIs(t, err, pkgerrors.ErrUnauthorized)
		})
	}
}

func TestNewTokenIssuerShortSecret(t *testing.T) {
	_, err := NewTokenIssuer("short", time.Hour)
	require.Error(t, err)
}
