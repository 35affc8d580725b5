package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatserver/internal/domain"
	"chatserver/internal/security"
	"chatserver/internal/service"
	"chatserver/internal/store/memory"
)

func setupAuth(t *testing.T) (*service.AuthService, *memory.UserRepo, *security.TokenService) {
	t.Helper()
	users := memory.NewUserRepo()
	tokenSvc := security.NewTokenService("secret", time.Hour)
	hasher := security.NewPasswordHasher(4) // low cost for tests
	return service.NewAuthService(users, tokenSvc, hasher), users, tokenSvc
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupAuth(t)

	t.Run("Success", func(t *testing.T) {
		user, err := svc.Register(ctx, service.RegisterInput{
			Name:     "alice",
			Email:    "Alice@Example.com",
			Password: "Password1!",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, user.ID)
		assert.Equal(t, "alice", user.Name)
		assert.Equal(t, "alice@example.com", user.Email)
		assert.NotEqual(t, "Password1!", user.HashedPassword)
		assert.Empty(t, user.Friends)
	})

	t.Run("EmailTaken", func(t *testing.T) {
		_, err := svc.Register(ctx, service.RegisterInput{
			Name:     "other",
			Email:    "alice@example.com",
			Password: "Password1!",
		})
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("InvalidEmail", func(t *testing.T) {
		_, err := svc.Register(ctx, service.RegisterInput{
			Name:     "bob",
			Email:    "not-an-email",
			Password: "Password1!",
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("WeakPassword", func(t *testing.T) {
		for _, pw := range []string{"short1!", "alllowercase1!", "NoDigits!!", "NoSymbols11", "WayTooLongPassword1!"} {
			_, err := svc.Register(ctx, service.RegisterInput{
				Name:     "bob",
				Email:    "bob@example.com",
				Password: pw,
			})
			assert.ErrorIs(t, err, domain.ErrInvalidInput, "password %q", pw)
		}
	})

	t.Run("MissingFields", func(t *testing.T) {
		_, err := svc.Register(ctx, service.RegisterInput{Email: "x@y.com", Password: "Password1!"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc, _, tokenSvc := setupAuth(t)

	user, err := svc.Register(ctx, service.RegisterInput{
		Name:     "alice",
		Email:    "alice@example.com",
		Password: "Password1!",
	})
	require.NoError(t, err)

	t.Run("Success", func(t *testing.T) {
		resp, err := svc.Login(ctx, service.LoginInput{Email: "ALICE@example.com", Password: "Password1!"})
		require.NoError(t, err)
		assert.Equal(t, "bearer", resp.TokenType)
		assert.Equal(t, user.ID, resp.User.ID)

		id, err := tokenSvc.UserID(resp.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, user.ID, id)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		_, err := svc.Login(ctx, service.LoginInput{Email: "alice@example.com", Password: "Wrong1!aa"})
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("UnknownEmail", func(t *testing.T) {
		_, err := svc.Login(ctx, service.LoginInput{Email: "ghost@example.com", Password: "Password1!"})
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})
}
