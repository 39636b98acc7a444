package chat

import (
	"context"
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/npezzotti/roomchat/internal/database"
	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize      = 32
	kdfIterations = 10000
	kdfKeyLen     = 64
	defaultName   = "Anonymous"
)

type RegisterParams struct {
	Name     string
	Username string
	Password string
	Admin    bool
}

// Register creates a user with a fresh salt. Admin is stored but grants
// nothing.
func (s *Service) Register(ctx context.Context, params RegisterParams) (database.User, error) {
	username := strings.TrimSpace(params.Username)
	if username == "" || params.Password == "" {
		return database.User{}, ErrInvalidCredentials
	}

	name := strings.TrimSpace(params.Name)
	if name == "" {
		name = defaultName
	}

	salt, err := generateSalt()
	if err != nil {
		return database.User{}, fmt.Errorf("generate salt: %w", err)
	}

	user, err := s.users.CreateUser(ctx, database.CreateUserParams{
		Name:         name,
		Username:     username,
		PasswordHash: hashPassword(params.Password, salt),
		Salt:         salt,
		Admin:        params.Admin,
	})
	if errors.Is(err, database.ErrDuplicate) {
		return database.User{}, ErrUsernameTaken
	}
	if err != nil {
		return database.User{}, fmt.Errorf("%w: create user: %w", ErrPersistence, err)
	}

	return user, nil
}

// Authenticate returns ErrAuthFailure for unknown users and bad passwords
// alike.
func (s *Service) Authenticate(ctx context.Context, username, password string) (database.User, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if errors.Is(err, database.ErrNotFound) {
		return database.User{}, ErrAuthFailure
	}
	if err != nil {
		return database.User{}, fmt.Errorf("%w: get user: %w", ErrPersistence, err)
	}

	if !verifyPassword(user.PasswordHash, user.Salt, password) {
		return database.User{}, ErrAuthFailure
	}

	return user, nil
}

func generateSalt() (string, error) {
	b := make([]byte, saltSize)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// hashPassword uses the hex encoded salt as the KDF salt, not its decoded
// bytes.
func hashPassword(password, salt string) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), kdfIterations, kdfKeyLen, sha512.New)
	return hex.EncodeToString(key)
}

func verifyPassword(hash, salt, password string) bool {
	return subtle.ConstantTimeCompare([]byte(hash), []byte(hashPassword(password, salt))) == 1
}
