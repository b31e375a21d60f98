package login

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/agoraplace/auth-service/internal/services/auth"
)

// Мок сервиса аутентификации
type AuthServiceMock struct {
	mock.Mock
}

func (m *AuthServiceMock) Login(ctx context.Context, email, password string) (*auth.TokenPair, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.TokenPair), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestLoginHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    interface{}
		mockPair       *auth.TokenPair
		mockErr        error
		wantMockCall   bool
		wantStatusCode int
		wantErrorMsg   string
	}{
		{
			name:           "valid login",
			requestBody:    Request{Email: "alice@example.com", Password: "Str0ng!Passw0rd"},
			mockPair:       &auth.TokenPair{AccessToken: "access", RefreshToken: "refresh"},
			wantMockCall:   true,
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "invalid json body",
			requestBody:    "not a json",
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "validation error - missing password",
			requestBody:    Request{Email: "alice@example.com"},
			wantStatusCode: http.StatusUnprocessableEntity,
		},
		{
			name:           "invalid credentials",
			requestBody:    Request{Email: "alice@example.com", Password: "wrong"},
			mockErr:        auth.ErrInvalidCredentials,
			wantMockCall:   true,
			wantStatusCode: http.StatusUnauthorized,
			wantErrorMsg:   "invalid credentials",
		},
		{
			name:           "email not verified",
			requestBody:    Request{Email: "alice@example.com", Password: "Str0ng!Passw0rd"},
			mockErr:        auth.ErrEmailNotVerified,
			wantMockCall:   true,
			wantStatusCode: http.StatusUnauthorized,
			wantErrorMsg:   "email is not verified",
		},
		{
			name:           "service failure",
			requestBody:    Request{Email: "alice@example.com", Password: "Str0ng!Passw0rd"},
			mockErr:        errors.New("storage down"),
			wantMockCall:   true,
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authMock := new(AuthServiceMock)
			if tt.wantMockCall {
				authMock.On("Login", mock.Anything, mock.Anything, mock.Anything).
					Return(tt.mockPair, tt.mockErr).Once()
			}

			handler := New(newNoopLogger(), authMock)

			body, err := json.Marshal(tt.requestBody)
			require.NoError(t, err)
			req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			if tt.wantStatusCode == http.StatusOK {
				var resp struct {
					Status string         `json:"status"`
					Data   auth.TokenPair `json:"data"`
				}
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, "access", resp.Data.AccessToken)
				assert.Equal(t, "refresh", resp.Data.RefreshToken)
			}
			if tt.wantErrorMsg != "" {
				assert.Contains(t, rec.Body.String(), tt.wantErrorMsg)
			}
			authMock.AssertExpectations(t)
		})
	}
}
