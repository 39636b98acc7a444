package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/npezzotti/roomchat/internal/database"
	"github.com/npezzotti/roomchat/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, repo database.ChatRepository) *Service {
	return NewService(testutil.TestLogger(t), repo, nil)
}

func TestRegister(t *testing.T) {
	tcases := []struct {
		name     string
		params   RegisterParams
		wantName string
		err      error
	}{
		{
			name:     "registers user",
			params:   RegisterParams{Name: "Alice", Username: "alice", Password: "secret"},
			wantName: "Alice",
		},
		{
			name:     "defaults display name",
			params:   RegisterParams{Username: "alice", Password: "secret"},
			wantName: defaultName,
		},
		{
			name:   "missing username",
			params: RegisterParams{Name: "Alice", Password: "secret"},
			err:    ErrInvalidCredentials,
		},
		{
			name:   "missing password",
			params: RegisterParams{Name: "Alice", Username: "alice"},
			err:    ErrInvalidCredentials,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			repo := database.NewMemoryRepository()
			svc := newTestService(t, repo)

			user, err := svc.Register(context.Background(), tc.params)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantName, user.Name)

			stored, err := repo.GetUserByUsername(context.Background(), tc.params.Username)
			require.NoError(t, err)
			assert.Len(t, stored.Salt, saltSize*2, "expected hex encoded salt")
			assert.Len(t, stored.PasswordHash, kdfKeyLen*2, "expected hex encoded key")
			assert.NotEqual(t, tc.params.Password, stored.PasswordHash, "expected password not to be stored in clear")
		})
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	svc := newTestService(t, database.NewMemoryRepository())
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterParams{Name: "Alice", Username: "alice", Password: "secret"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterParams{Name: "Alice 2", Username: "alice", Password: "other"})
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestRegister_StorageError(t *testing.T) {
	repo := &database.MockChatRepository{}
	defer repo.AssertExpectations(t)
	repo.On("CreateUser", mock.Anything, mock.Anything).Return(database.User{}, errors.New("db error")).Once()

	_, err := newTestService(t, repo).Register(context.Background(), RegisterParams{Username: "alice", Password: "secret"})
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestAuthenticate(t *testing.T) {
	svc := newTestService(t, database.NewMemoryRepository())
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterParams{Name: "Alice", Username: "alice", Password: "secret"})
	require.NoError(t, err)

	tcases := []struct {
		name     string
		username string
		password string
		err      error
	}{
		{name: "valid credentials", username: "alice", password: "secret"},
		{name: "wrong password", username: "alice", password: "nope", err: ErrAuthFailure},
		{name: "unknown user", username: "bob", password: "secret", err: ErrAuthFailure},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			user, err := svc.Authenticate(ctx, tc.username, tc.password)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "alice", user.Username)
			assert.Equal(t, "Alice", user.Name)
		})
	}
}

func Test_hashPassword(t *testing.T) {
	salt, err := generateSalt()
	require.NoError(t, err)
	otherSalt, err := generateSalt()
	require.NoError(t, err)

	assert.Equal(t, hashPassword("secret", salt), hashPassword("secret", salt), "expected hashing to be deterministic")
	assert.NotEqual(t, hashPassword("secret", salt), hashPassword("secret", otherSalt), "expected salt to change the hash")
	assert.True(t, verifyPassword(hashPassword("secret", salt), salt, "secret"))
	assert.False(t, verifyPassword(hashPassword("secret", salt), salt, "Secret"))
}
