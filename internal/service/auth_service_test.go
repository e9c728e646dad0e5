package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkfeed.io/backend/internal/model"
	"linkfeed.io/backend/pkg/apperror"
	"linkfeed.io/backend/pkg/token"
)

func newAuthFixture() (AuthService, *fakeUserRepo, *token.Manager) {
	users := &fakeUserRepo{users: make(map[uuid.UUID]*model.User)}
	tokens := token.NewManager("test-secret", time.Hour)
	return NewAuthService(users, tokens, fakeSearch{}), users, tokens
}

func TestRegisterAndLogin(t *testing.T) {
	service, users, tokens := newAuthFixture()

	resp, err := service.Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "alice", resp.User.Username)
	assert.Equal(t, model.RoleUser, resp.User.Role)
	assert.Len(t, users.users, 1)

	// The issued token resolves back to the registered user.
	subject, err := tokens.Verify(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, subject)

	login, err := service.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, login.User.ID)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	service, _, _ := newAuthFixture()

	_, err := service.Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)

	_, err = service.Register(context.Background(), RegisterInput{
		Username: "alice2",
		Email:    "alice@example.com",
		Password: "correct horse",
	})
	assert.ErrorIs(t, err, apperror.ErrConflict)

	_, err = service.Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    "other@example.com",
		Password: "correct horse",
	})
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	service, _, _ := newAuthFixture()

	_, err := service.Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)

	_, err = service.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "wrong",
	})
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	_, err = service.Login(context.Background(), LoginInput{
		Email:    "nobody@example.com",
		Password: "correct horse",
	})
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}
