package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/npezzotti/roomchat/internal/chat"
)

const (
	tokenCookieKey       = "token"
	defaultJwtExpiration = time.Hour * 24

	userIdClaim   = "user-id"
	usernameClaim = "username"
	nameClaim     = "name"
	expClaim      = "exp"
)

type contextKey string

const identityKey contextKey = "identity"

func WithIdentity(ctx context.Context, id chat.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func IdentityFrom(ctx context.Context) (chat.Identity, bool) {
	id, ok := ctx.Value(identityKey).(chat.Identity)

	return id, ok
}

func (s *ChatApp) createJwtForSession(id chat.Identity, exp time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		userIdClaim:   id.Id,
		usernameClaim: id.Username,
		nameClaim:     id.Name,
		expClaim:      time.Now().Add(exp).Unix(),
	})

	return token.SignedString(s.signingKey)
}

func (s *ChatApp) verifyToken(tokenString string) (*jwt.Token, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.signingKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return token, nil
}

// identityFromRequest resolves the session cookie into the caller's identity.
func (s *ChatApp) identityFromRequest(r *http.Request) (chat.Identity, error) {
	tokenCookie, err := r.Cookie(tokenCookieKey)
	if err != nil {
		return chat.Identity{}, fmt.Errorf("get cookie: %w", err)
	}

	token, err := s.verifyToken(tokenCookie.Value)
	if err != nil {
		return chat.Identity{}, fmt.Errorf("verify token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return chat.Identity{}, fmt.Errorf("invalid token claims")
	}

	userId, ok := claims[userIdClaim].(float64)
	if !ok {
		return chat.Identity{}, fmt.Errorf("invalid user id claim")
	}

	username, ok := claims[usernameClaim].(string)
	if !ok || username == "" {
		return chat.Identity{}, fmt.Errorf("invalid username claim")
	}

	name, _ := claims[nameClaim].(string)

	return chat.Identity{
		Id:       int(userId),
		Username: username,
		Name:     name,
	}, nil
}

func createJwtCookie(tokenString string, exp time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     tokenCookieKey,
		Value:    tokenString,
		Path:     "/",
		Expires:  time.Now().Add(exp),
		MaxAge:   int(exp.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}

func expiredJwtCookie() *http.Cookie {
	return &http.Cookie{
		Name:     tokenCookieKey,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}
