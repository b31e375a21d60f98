package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/agoraplace/auth-service/internal/config"
	"github.com/agoraplace/auth-service/internal/lib/password"
	"github.com/agoraplace/auth-service/internal/lib/sl"
	"github.com/agoraplace/auth-service/internal/models"
	"github.com/agoraplace/auth-service/internal/storage/repository"
)

const tokenEntropyBytes = 32

// Notice — кодированный результат потока восстановления пароля,
// сериализуемый границей как {code, title, description}.
type Notice struct {
	Code        int    `json:"code"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

var (
	noticeResetAccepted = Notice{
		Code:  202,
		Title: "Password reset",
		Description: "A reset link has been sent.\n" +
			"Follow the instructions in the email to change your password.",
	}
	noticeResetRequested = Notice{
		Code:  200,
		Title: "Password reset request",
		Description: "A reset link has been sent.\n" +
			"Follow the instructions in the email to change your password.",
	}
	noticeResetError = Notice{
		Code:  500,
		Title: "Error - password reset",
		Description: "Something went wrong!\n" +
			"Please try again later or contact an administrator.",
	}
	noticeUnknownToken = Notice{
		Code:        404,
		Title:       "Invalid link",
		Description: "Unknown token.",
	}
	noticeInvalidLink = Notice{
		Code:        404,
		Title:       "Invalid link",
		Description: "This reset link is invalid.",
	}
	noticeInvalidToken = Notice{
		Code:        401,
		Title:       "Invalid token",
		Description: "This reset token is invalid.",
	}
	noticeExpiredLink = Notice{
		Code:        401,
		Title:       "Expired link",
		Description: "This reset link has expired. Please request a new one.",
	}
	noticeLinkUsed = Notice{
		Code:        401,
		Title:       "Link already used",
		Description: "This link has already been used to reset the password.",
	}
	noticeValidLink = Notice{
		Code:        200,
		Title:       "Valid link",
		Description: "The reset link is valid.",
	}
	noticeMissingParams = Notice{
		Code:        400,
		Title:       "Missing parameters",
		Description: "Invalid parameters.",
	}
	noticeIdenticalPasswords = Notice{
		Code:        400,
		Title:       "Identical passwords",
		Description: "The old and the new passwords are identical.",
	}
	noticePasswordMismatch = Notice{
		Code:        400,
		Title:       "Passwords do not match",
		Description: "The new password and its confirmation do not match.",
	}
	noticeWeakPassword = Notice{
		Code:        400,
		Title:       "Weak password",
		Description: "The new password must be at least 12 characters and contain " +
			"a lowercase letter, an uppercase letter, a digit and a symbol.",
	}
	noticeUserNotFound = Notice{
		Code:        404,
		Title:       "User not found",
		Description: "No user found for this reset link.",
	}
	noticeNoPassword = Notice{
		Code:        404,
		Title:       "No password found",
		Description: "No password found for this user.",
	}
	noticeWrongOldPassword = Notice{
		Code:        409,
		Title:       "Incorrect password",
		Description: "The old password is incorrect.",
	}
	noticeResetDone = Notice{
		Code:        200,
		Title:       "Password reset",
		Description: "You can now sign in with your new password.",
	}
)

// ResetParams — входные данные операции сброса пароля.
type ResetParams struct {
	Token           string
	OldPassword     string
	NewPassword     string
	ConfirmPassword string
}

// ForgotPassword создает одноразовую заявку на сброс пароля и отправляет
// письмо со ссылкой.
//
// Для незарегистрированной почты возвращается ответ с кодом 202 и тем же
// текстом, что и для существующей: форма ответа не позволяет перечислять
// учётные записи. Заявка при этом не создается.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) Notice {
	const op = "auth.ForgotPassword"

	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return noticeResetAccepted
	}
	if err != nil {
		s.log.Error("failed to look up user", sl.Op(op), sl.Err(err))
		return noticeResetError
	}

	// Токен случайный (256 бит энтропии), а не выводимый из данных заявки.
	token, err := randomResetToken()
	if err != nil {
		s.log.Error("failed to generate reset token", sl.Op(op), sl.Err(err))
		return noticeResetError
	}

	req := models.ResetRequest{
		ID:        uuid.NewString(),
		Email:     user.Email,
		Token:     token,
		ExpiredAt: time.Now().Add(PasswordResetTTL),
	}
	if err := s.resets.CreateResetRequest(ctx, req); err != nil {
		s.log.Error("failed to persist reset request", sl.Op(op), sl.Err(err))
		return noticeResetError
	}

	if err := s.mailer.SendResetLinkEmail(user.Email, token); err != nil {
		s.log.Error("failed to send reset link email", sl.Op(op), sl.Err(err))
		return noticeResetError
	}
	if err := s.resets.MarkResetSent(ctx, req.ID, time.Now()); err != nil {
		s.log.Error("failed to stamp sent_at", sl.Op(op), sl.Err(err))
		return noticeResetError
	}

	return noticeResetRequested
}

// ValidateResetToken проверяет токен сброса, не изменяя состояния.
// Используется фронтендом для решения, показывать ли форму сброса.
func (s *AuthService) ValidateResetToken(ctx context.Context, token string) Notice {
	const op = "auth.ValidateResetToken"

	if token == "" {
		return noticeUnknownToken
	}

	record, err := s.resets.GetResetRequestByToken(ctx, token)
	if errors.Is(err, repository.ErrNotFound) {
		return noticeInvalidLink
	}
	if err != nil {
		s.log.Error("failed to load reset request", sl.Op(op), sl.Err(err))
		return noticeResetError
	}

	return checkResetRecord(token, record)
}

// ResetPassword потребляет одноразовый токен сброса: проверяет входные
// данные в строгом порядке, сверяет старый пароль с последним хэшем из
// истории, добавляет новый хэш в историю (не перезаписывая) и помечает
// заявку использованной.
//
// Письмо-подтверждение отправляется по политике best-effort (по умолчанию):
// его ошибка логируется, но не отменяет уже выполненный сброс.
func (s *AuthService) ResetPassword(ctx context.Context, params ResetParams) Notice {
	const op = "auth.ResetPassword"

	if params.Token == "" || params.OldPassword == "" ||
		params.NewPassword == "" || params.ConfirmPassword == "" {
		return noticeMissingParams
	}

	if params.OldPassword == params.NewPassword || params.OldPassword == params.ConfirmPassword {
		return noticeIdenticalPasswords
	}

	if params.NewPassword != params.ConfirmPassword {
		return noticePasswordMismatch
	}

	// Новый пароль проходит ту же политику сложности, что и при регистрации.
	if err := password.CheckPolicy(params.NewPassword); err != nil {
		return noticeWeakPassword
	}

	record, err := s.resets.GetResetRequestByToken(ctx, params.Token)
	if errors.Is(err, repository.ErrNotFound) {
		return noticeUserNotFound
	}
	if err != nil {
		s.log.Error("failed to load reset request", sl.Op(op), sl.Err(err))
		return noticeResetError
	}

	user, err := s.users.GetUserByEmail(ctx, record.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return noticeUserNotFound
	}
	if err != nil {
		s.log.Error("failed to load user", sl.Op(op), sl.Err(err))
		return noticeResetError
	}

	if user.LatestPasswordHash == "" {
		return noticeNoPassword
	}

	// Сверка старого пароля всегда через bcrypt, никогда через равенство строк.
	if err := password.CompareHash(user.LatestPasswordHash, params.OldPassword); err != nil {
		return noticeWrongOldPassword
	}

	if notice := checkResetRecord(params.Token, record); notice.Code != 200 {
		return notice
	}

	hash, err := password.GetHash(params.NewPassword)
	if err != nil {
		s.log.Error("failed to hash new password", sl.Op(op), sl.Err(err))
		return noticeResetError
	}
	if err := s.users.AppendPasswordEntry(ctx, user.UID, hash); err != nil {
		s.log.Error("failed to append password history", sl.Op(op), sl.Err(err))
		return noticeResetError
	}
	if err := s.users.TouchUser(ctx, user.UID); err != nil {
		s.log.Warn("failed to touch user", sl.Op(op), sl.Err(err))
	}
	if err := s.resets.ConsumeResetRequest(ctx, params.Token, time.Now()); err != nil {
		s.log.Error("failed to consume reset request", sl.Op(op), sl.Err(err))
		return noticeResetError
	}

	if err := s.mailer.SendResetConfirmationEmail(user.Email); err != nil {
		if s.policy.ResetConfirmation == config.PolicyStrict {
			s.log.Error("confirmation email failed under strict policy", sl.Op(op), sl.Err(err))
			return noticeResetError
		}
		s.log.Error("failed to send reset confirmation email", sl.Op(op), sl.Err(err))
	}

	return noticeResetDone
}

// checkResetRecord повторяет проверки целостности, срока действия и
// одноразовости токена; используется и GET-проверкой, и самим сбросом.
func checkResetRecord(token string, record *models.ResetRequest) Notice {
	if token != record.Token {
		return noticeInvalidToken
	}
	if !record.ExpiredAt.After(time.Now()) {
		return noticeExpiredLink
	}
	if record.EditedAt != nil {
		return noticeLinkUsed
	}
	return noticeValidLink
}

// randomHexToken возвращает криптографически случайный токен подтверждения
// почты: 32 байта энтропии в hex-кодировке.
func randomHexToken() (string, error) {
	buf := make([]byte, tokenEntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("token entropy: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// randomResetToken возвращает случайный URL-безопасный токен сброса пароля
// (32 байта энтропии, base64url без набивки).
func randomResetToken() (string, error) {
	buf := make([]byte, tokenEntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("token entropy: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
