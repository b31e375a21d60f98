// Package sender реализует шлюз уведомлений: письма подтверждения почты,
// письма со ссылкой на сброс пароля и подтверждения смены пароля.
// Отправка синхронная, через SMTP транспорт; политику обработки ошибок
// (strict / best-effort) определяет вызывающий движок.
package sender

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/agoraplace/auth-service/internal/lib/sl"
	"github.com/agoraplace/auth-service/internal/lib/smtp"
)

// SenderService отправляет письма жизненного цикла учётных данных.
type SenderService struct {
	transport   smtp.TransportInterface
	frontendURL string
	log         *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(transport smtp.TransportInterface, frontendURL string, log *slog.Logger) *SenderService {
	return &SenderService{
		transport:   transport,
		frontendURL: frontendURL,
		log:         log,
	}
}

// SendVerificationEmail отправляет письмо со ссылкой подтверждения почты.
func (s *SenderService) SendVerificationEmail(email, token string) error {
	verificationURL := fmt.Sprintf("%s/verify-email?token=%s", s.frontendURL, token)
	subject := "Verify your email address"
	bodyText := fmt.Sprintf(`Welcome!

Please confirm your email address by following the link below:

%s

The link is valid for 24 hours. If you did not create an account, ignore this message.`,
		verificationURL)

	return s.sendEmail([]string{email}, subject, bodyText)
}

// SendResetLinkEmail отправляет письмо со ссылкой на форму сброса пароля.
func (s *SenderService) SendResetLinkEmail(email, token string) error {
	resetURL := fmt.Sprintf("%s/reset-password?token=%s", s.frontendURL, token)
	subject := "Password reset request"
	bodyText := fmt.Sprintf(`A password reset was requested for your account.

Follow the link below to choose a new password:

%s

The link is valid for 5 hours and can be used once. If you did not request
a reset, you can safely ignore this message.`,
		resetURL)

	return s.sendEmail([]string{email}, subject, bodyText)
}

// SendResetConfirmationEmail отправляет уведомление о том, что пароль изменён.
func (s *SenderService) SendResetConfirmationEmail(email string) error {
	forgotURL := fmt.Sprintf("%s/forgot-password", s.frontendURL)
	subject := "Your password has been reset"
	bodyText := fmt.Sprintf(`Your password has just been changed.

You can now sign in with your new password. If you did not perform this
change, request a new reset immediately: %s`,
		forgotURL)

	return s.sendEmail([]string{email}, subject, bodyText)
}

func (s *SenderService) sendEmail(to []string, subject, bodyText string) error {
	msg := strings.Join([]string{
		"From: " + s.transport.GetSMTPFrom(),
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Mail(s.transport.GetSMTPFrom()); err != nil {
		s.log.Error("failed to set MAIL FROM", "from", s.transport.GetSMTPFrom(), "error", sl.Err(err))
		return err
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", "recipient", addr, "error", sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get Data writer", sl.Err(err))
		return err
	}

	_, err = wc.Write([]byte(msg))
	if err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}

	if err = wc.Close(); err != nil {
		s.log.Error("failed to close Data writer", sl.Err(err))
		return err
	}

	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	s.log.Info("email sent successfully", "to", to, "subject", subject)
	return nil
}
