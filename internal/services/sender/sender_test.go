package sender

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/agoraplace/auth-service/internal/lib/smtp"
)

type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Connect() (smtp.Client, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(smtp.Client), args.Error(1)
}

func (m *MockTransport) GetSMTPFrom() string {
	args := m.Called()
	return args.String(0)
}

type MockSMTPClient struct {
	mock.Mock
}

func (m *MockSMTPClient) Mail(from string) error {
	args := m.Called(from)
	return args.Error(0)
}

func (m *MockSMTPClient) Rcpt(to string) error {
	args := m.Called(to)
	return args.Error(0)
}

func (m *MockSMTPClient) Data() (io.WriteCloser, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.WriteCloser), args.Error(1)
}

func (m *MockSMTPClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockSMTPClient) Quit() error {
	args := m.Called()
	return args.Error(0)
}

type MockSMTPWriter struct {
	mock.Mock
}

func (m *MockSMTPWriter) Write(p []byte) (n int, err error) {
	args := m.Called(p)
	return args.Int(0), args.Error(1)
}

func (m *MockSMTPWriter) Close() error {
	args := m.Called()
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func setupHappyPath(t *MockTransport, recipient string, capture *[]byte) {
	mockClient := new(MockSMTPClient)
	mockWriter := new(MockSMTPWriter)

	t.On("GetSMTPFrom").Return("noreply@example.com")
	t.On("Connect").Return(mockClient, nil).Once()
	mockClient.On("Mail", "noreply@example.com").Return(nil).Once()
	mockClient.On("Rcpt", recipient).Return(nil).Once()
	mockClient.On("Data").Return(mockWriter, nil).Once()
	mockWriter.On("Write", mock.AnythingOfType("[]uint8")).
		Run(func(args mock.Arguments) {
			*capture = append(*capture, args.Get(0).([]byte)...)
		}).
		Return(100, nil).Once()
	mockWriter.On("Close").Return(nil).Once()
	mockClient.On("Quit").Return(nil).Once()
	mockClient.On("Close").Return(nil).Once()
}

func TestSenderService_SendVerificationEmail(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		transport := new(MockTransport)
		var sent []byte
		setupHappyPath(transport, "alice@example.com", &sent)

		service := NewSenderService(transport, "https://app.example.com", newNoopLogger())

		err := service.SendVerificationEmail("alice@example.com", "tok123")
		assert.NoError(t, err)
		assert.Contains(t, string(sent), "https://app.example.com/verify-email?token=tok123")
		assert.Contains(t, string(sent), "Subject: Verify your email address")
		transport.AssertExpectations(t)
	})

	t.Run("connection error", func(t *testing.T) {
		transport := new(MockTransport)
		transport.On("GetSMTPFrom").Return("noreply@example.com")
		transport.On("Connect").Return(nil, errors.New("connection error")).Once()

		service := NewSenderService(transport, "https://app.example.com", newNoopLogger())

		err := service.SendVerificationEmail("alice@example.com", "tok123")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "connection error")
		transport.AssertExpectations(t)
	})
}

func TestSenderService_SendResetLinkEmail(t *testing.T) {
	transport := new(MockTransport)
	var sent []byte
	setupHappyPath(transport, "alice@example.com", &sent)

	service := NewSenderService(transport, "https://app.example.com", newNoopLogger())

	err := service.SendResetLinkEmail("alice@example.com", "reset-tok")
	assert.NoError(t, err)
	assert.Contains(t, string(sent), "https://app.example.com/reset-password?token=reset-tok")
	assert.Contains(t, string(sent), "Subject: Password reset request")
	transport.AssertExpectations(t)
}

func TestSenderService_SendResetConfirmationEmail(t *testing.T) {
	transport := new(MockTransport)
	var sent []byte
	setupHappyPath(transport, "alice@example.com", &sent)

	service := NewSenderService(transport, "https://app.example.com", newNoopLogger())

	err := service.SendResetConfirmationEmail("alice@example.com")
	assert.NoError(t, err)
	assert.Contains(t, string(sent), "Subject: Your password has been reset")
	transport.AssertExpectations(t)
}
