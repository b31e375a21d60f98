package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/agoraplace/auth-service/internal/config"
	"github.com/agoraplace/auth-service/internal/lib/password"
	"github.com/agoraplace/auth-service/internal/models"
	"github.com/agoraplace/auth-service/internal/services/auth"
	"github.com/agoraplace/auth-service/internal/storage/repository"
)

func TestAuthService_ForgotPassword(t *testing.T) {
	t.Run("unknown email still answers 202", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())
		env.users.On("GetUserByEmail", mock.Anything, "ghost@example.com").
			Return(nil, repository.ErrNotFound).Once()

		notice := env.svc.ForgotPassword(context.Background(), "ghost@example.com")
		assert.Equal(t, 202, notice.Code)
		env.resets.AssertNotCalled(t, "CreateResetRequest", mock.Anything, mock.Anything)
		env.mailer.AssertNotCalled(t, "SendResetLinkEmail", mock.Anything, mock.Anything)
	})

	t.Run("known email creates request and sends link", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())
		env.users.On("GetUserByEmail", mock.Anything, "alice@example.com").
			Return(&models.User{UID: "uid-1", Email: "alice@example.com"}, nil).Once()

		var issuedToken string
		env.resets.On("CreateResetRequest", mock.Anything, mock.MatchedBy(func(req models.ResetRequest) bool {
			issuedToken = req.Token
			return req.Email == "alice@example.com" &&
				req.Token != "" &&
				time.Until(req.ExpiredAt) > 4*time.Hour
		})).Return(nil).Once()
		env.mailer.On("SendResetLinkEmail", "alice@example.com", mock.Anything).Return(nil).Once()
		env.resets.On("MarkResetSent", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

		notice := env.svc.ForgotPassword(context.Background(), "alice@example.com")
		assert.Equal(t, 200, notice.Code)
		// токен годится для URL без дополнительного экранирования
		assert.NotContains(t, issuedToken, "+")
		assert.NotContains(t, issuedToken, "/")
		env.resets.AssertExpectations(t)
	})

	t.Run("two requests never share a token", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())
		env.users.On("GetUserByEmail", mock.Anything, "alice@example.com").
			Return(&models.User{UID: "uid-1", Email: "alice@example.com"}, nil).Twice()

		var tokens []string
		env.resets.On("CreateResetRequest", mock.Anything, mock.MatchedBy(func(req models.ResetRequest) bool {
			tokens = append(tokens, req.Token)
			return true
		})).Return(nil).Twice()
		env.mailer.On("SendResetLinkEmail", "alice@example.com", mock.Anything).Return(nil).Twice()
		env.resets.On("MarkResetSent", mock.Anything, mock.Anything, mock.Anything).Return(nil).Twice()

		env.svc.ForgotPassword(context.Background(), "alice@example.com")
		env.svc.ForgotPassword(context.Background(), "alice@example.com")
		require.Len(t, tokens, 2)
		assert.NotEqual(t, tokens[0], tokens[1])
	})

	t.Run("mail failure is reported as 500", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())
		env.users.On("GetUserByEmail", mock.Anything, "alice@example.com").
			Return(&models.User{UID: "uid-1", Email: "alice@example.com"}, nil).Once()
		env.resets.On("CreateResetRequest", mock.Anything, mock.Anything).Return(nil).Once()
		env.mailer.On("SendResetLinkEmail", "alice@example.com", mock.Anything).
			Return(errors.New("smtp down")).Once()

		notice := env.svc.ForgotPassword(context.Background(), "alice@example.com")
		assert.Equal(t, 500, notice.Code)
	})
}

func TestAuthService_ValidateResetToken(t *testing.T) {
	validRecord := func() *models.ResetRequest {
		return &models.ResetRequest{
			ID:        "req-1",
			Email:     "alice@example.com",
			Token:     "tok",
			ExpiredAt: time.Now().Add(time.Hour),
		}
	}

	t.Run("empty token", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())
		notice := env.svc.ValidateResetToken(context.Background(), "")
		assert.Equal(t, 404, notice.Code)
	})

	t.Run("unknown token", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())
		env.resets.On("GetResetRequestByToken", mock.Anything, "tok").
			Return(nil, repository.ErrNotFound).Once()

		notice := env.svc.ValidateResetToken(context.Background(), "tok")
		assert.Equal(t, 404, notice.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())
		rec := validRecord()
		rec.ExpiredAt = time.Now().Add(-time.Minute)
		env.resets.On("GetResetRequestByToken", mock.Anything, "tok").Return(rec, nil).Once()

		notice := env.svc.ValidateResetToken(context.Background(), "tok")
		assert.Equal(t, 401, notice.Code)
	})

	t.Run("already used token", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())
		rec := validRecord()
		edited := time.Now().Add(-time.Minute)
		rec.EditedAt = &edited
		env.resets.On("GetResetRequestByToken", mock.Anything, "tok").Return(rec, nil).Once()

		notice := env.svc.ValidateResetToken(context.Background(), "tok")
		assert.Equal(t, 401, notice.Code)
	})

	t.Run("live token", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())
		env.resets.On("GetResetRequestByToken", mock.Anything, "tok").
			Return(validRecord(), nil).Once()

		notice := env.svc.ValidateResetToken(context.Background(), "tok")
		assert.Equal(t, 200, notice.Code)

		// проверка ничего не потребляет: повторный вызов снова валиден
		env.resets.On("GetResetRequestByToken", mock.Anything, "tok").
			Return(validRecord(), nil).Once()
		again := env.svc.ValidateResetToken(context.Background(), "tok")
		assert.Equal(t, 200, again.Code)
		env.resets.AssertNotCalled(t, "ConsumeResetRequest", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestAuthService_ResetPassword(t *testing.T) {
	oldHash, err := password.GetHash("Old!Passw0rd123")
	require.NoError(t, err)

	goodParams := func() auth.ResetParams {
		return auth.ResetParams{
			Token:           "tok",
			OldPassword:     "Old!Passw0rd123",
			NewPassword:     "New!Passw0rd456",
			ConfirmPassword: "New!Passw0rd456",
		}
	}
	validRecord := func() *models.ResetRequest {
		return &models.ResetRequest{
			ID:        "req-1",
			Email:     "alice@example.com",
			Token:     "tok",
			ExpiredAt: time.Now().Add(time.Hour),
		}
	}
	userWithHash := func() *models.User {
		return &models.User{
			UID:                "uid-1",
			Email:              "alice@example.com",
			IsEmailVerified:    true,
			LatestPasswordHash: oldHash,
		}
	}

	t.Run("validation order", func(t *testing.T) {
		cases := []struct {
			name     string
			mutate   func(*auth.ResetParams)
			wantCode int
		}{
			{"missing token", func(p *auth.ResetParams) { p.Token = "" }, 400},
			{"missing old password", func(p *auth.ResetParams) { p.OldPassword = "" }, 400},
			{"missing new password", func(p *auth.ResetParams) { p.NewPassword = "" }, 400},
			{"missing confirmation", func(p *auth.ResetParams) { p.ConfirmPassword = "" }, 400},
			{"old equals new", func(p *auth.ResetParams) {
				p.NewPassword = p.OldPassword
				p.ConfirmPassword = p.OldPassword
			}, 400},
			{"confirmation mismatch", func(p *auth.ResetParams) { p.ConfirmPassword = "Other!Passw0rd" }, 400},
			{"weak new password", func(p *auth.ResetParams) {
				p.NewPassword = "abc"
				p.ConfirmPassword = "abc"
			}, 400},
			{"new password without symbol", func(p *auth.ResetParams) {
				p.NewPassword = "LongPassword1234"
				p.ConfirmPassword = "LongPassword1234"
			}, 400},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				env := newTestEnv(t, defaultPolicy())
				params := goodParams()
				tc.mutate(&params)

				notice := env.svc.ResetPassword(context.Background(), params)
				assert.Equal(t, tc.wantCode, notice.Code)
				// до обращения к хранилищу дело не доходит
				env.resets.AssertNotCalled(t, "GetResetRequestByToken", mock.Anything, mock.Anything)
			})
		}
	})

	t.Run("unknown token", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())
		env.resets.On("GetResetRequestByToken", mock.Anything, "tok").
			Return(nil, repository.ErrNotFound).Once()

		notice := env.svc.ResetPassword(context.Background(), goodParams())
		assert.Equal(t, 404, notice.Code)
	})

	t.Run("wrong old password", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())
		env.resets.On("GetResetRequestByToken", mock.Anything, "tok").Return(validRecord(), nil).Once()
		env.users.On("GetUserByEmail", mock.Anything, "alice@example.com").
			Return(userWithHash(), nil).Once()

		params := goodParams()
		params.OldPassword = "Wrong!Passw0rd9"
		notice := env.svc.ResetPassword(context.Background(), params)
		assert.Equal(t, 409, notice.Code)
		env.users.AssertNotCalled(t, "AppendPasswordEntry", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("expired token is rejected after password checks", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())
		rec := validRecord()
		rec.ExpiredAt = time.Now().Add(-time.Minute)
		env.resets.On("GetResetRequestByToken", mock.Anything, "tok").Return(rec, nil).Once()
		env.users.On("GetUserByEmail", mock.Anything, "alice@example.com").
			Return(userWithHash(), nil).Once()

		notice := env.svc.ResetPassword(context.Background(), goodParams())
		assert.Equal(t, 401, notice.Code)
	})

	t.Run("user without password history", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())
		u := userWithHash()
		u.LatestPasswordHash = ""
		env.resets.On("GetResetRequestByToken", mock.Anything, "tok").Return(validRecord(), nil).Once()
		env.users.On("GetUserByEmail", mock.Anything, "alice@example.com").Return(u, nil).Once()

		notice := env.svc.ResetPassword(context.Background(), goodParams())
		assert.Equal(t, 404, notice.Code)
	})

	t.Run("successful reset appends history and consumes the token", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())
		env.resets.On("GetResetRequestByToken", mock.Anything, "tok").Return(validRecord(), nil).Once()
		env.users.On("GetUserByEmail", mock.Anything, "alice@example.com").
			Return(userWithHash(), nil).Once()
		env.users.On("AppendPasswordEntry", mock.Anything, "uid-1", mock.MatchedBy(func(hash string) bool {
			return password.CompareHash(hash, "New!Passw0rd456") == nil
		})).Return(nil).Once()
		env.users.On("TouchUser", mock.Anything, "uid-1").Return(nil).Once()
		env.resets.On("ConsumeResetRequest", mock.Anything, "tok", mock.Anything).Return(nil).Once()
		env.mailer.On("SendResetConfirmationEmail", "alice@example.com").Return(nil).Once()

		notice := env.svc.ResetPassword(context.Background(), goodParams())
		assert.Equal(t, 200, notice.Code)
		env.resets.AssertExpectations(t)
		env.users.AssertExpectations(t)
	})

	t.Run("best-effort confirmation email does not fail the reset", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())
		env.resets.On("GetResetRequestByToken", mock.Anything, "tok").Return(validRecord(), nil).Once()
		env.users.On("GetUserByEmail", mock.Anything, "alice@example.com").
			Return(userWithHash(), nil).Once()
		env.users.On("AppendPasswordEntry", mock.Anything, "uid-1", mock.Anything).Return(nil).Once()
		env.users.On("TouchUser", mock.Anything, "uid-1").Return(nil).Once()
		env.resets.On("ConsumeResetRequest", mock.Anything, "tok", mock.Anything).Return(nil).Once()
		env.mailer.On("SendResetConfirmationEmail", "alice@example.com").
			Return(errors.New("smtp down")).Once()

		notice := env.svc.ResetPassword(context.Background(), goodParams())
		assert.Equal(t, 200, notice.Code)
	})

	t.Run("strict confirmation policy surfaces the mail failure", func(t *testing.T) {
		policy := defaultPolicy()
		policy.ResetConfirmation = config.PolicyStrict
		env := newTestEnv(t, policy)
		env.resets.On("GetResetRequestByToken", mock.Anything, "tok").Return(validRecord(), nil).Once()
		env.users.On("GetUserByEmail", mock.Anything, "alice@example.com").
			Return(userWithHash(), nil).Once()
		env.users.On("AppendPasswordEntry", mock.Anything, "uid-1", mock.Anything).Return(nil).Once()
		env.users.On("TouchUser", mock.Anything, "uid-1").Return(nil).Once()
		env.resets.On("ConsumeResetRequest", mock.Anything, "tok", mock.Anything).Return(nil).Once()
		env.mailer.On("SendResetConfirmationEmail", "alice@example.com").
			Return(errors.New("smtp down")).Once()

		notice := env.svc.ResetPassword(context.Background(), goodParams())
		assert.Equal(t, 500, notice.Code)
	})
}
