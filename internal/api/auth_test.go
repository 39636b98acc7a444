package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/npezzotti/roomchat/internal/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityContext(t *testing.T) {
	_, ok := IdentityFrom(context.Background())
	assert.False(t, ok, "expected no identity in empty context")

	want := chat.Identity{Id: 7, Username: "alice", Name: "Alice"}
	got, ok := IdentityFrom(WithIdentity(context.Background(), want))
	assert.True(t, ok)
	assert.Equal(t, want, got)
}

func Test_identityFromRequest(t *testing.T) {
	app := &ChatApp{signingKey: []byte("test-signing-key")}
	other := &ChatApp{signingKey: []byte("other-key")}
	want := chat.Identity{Id: 7, Username: "alice", Name: "Alice"}

	validToken, err := app.createJwtForSession(want, defaultJwtExpiration)
	require.NoError(t, err)
	expiredToken, err := app.createJwtForSession(want, -time.Minute)
	require.NoError(t, err)
	foreignToken, err := other.createJwtForSession(want, defaultJwtExpiration)
	require.NoError(t, err)
	noUsername, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		userIdClaim: 7,
		expClaim:    time.Now().Add(time.Hour).Unix(),
	}).SignedString(app.signingKey)
	require.NoError(t, err)

	tcases := []struct {
		name   string
		cookie *http.Cookie
		err    bool
	}{
		{name: "valid token", cookie: createJwtCookie(validToken, defaultJwtExpiration)},
		{name: "no cookie", err: true},
		{name: "expired token", cookie: createJwtCookie(expiredToken, defaultJwtExpiration), err: true},
		{name: "wrong signing key", cookie: createJwtCookie(foreignToken, defaultJwtExpiration), err: true},
		{name: "missing username", cookie: createJwtCookie(noUsername, defaultJwtExpiration), err: true},
		{name: "garbage", cookie: createJwtCookie("not-a-token", defaultJwtExpiration), err: true},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.cookie != nil {
				req.AddCookie(tc.cookie)
			}

			got, err := app.identityFromRequest(req)
			if tc.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func Test_createJwtCookie(t *testing.T) {
	cookie := createJwtCookie("token-value", defaultJwtExpiration)

	assert.Equal(t, tokenCookieKey, cookie.Name)
	assert.Equal(t, "token-value", cookie.Value)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, 86400, cookie.MaxAge, "expected cookie to live for a day")
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)

	expired := expiredJwtCookie()
	assert.Empty(t, expired.Value)
	assert.Negative(t, expired.MaxAge)
}
