// Package auth содержит движок жизненного цикла учётных данных:
// регистрацию с подтверждением почты, вход с проверкой по истории паролей,
// выпуск и обновление токенов, а также поток восстановления пароля с
// одноразовыми токенами.
//
// Все операции принимают проверенную личность вызывающего (если она нужна)
// явным аргументом; движок не читает глобального состояния запроса.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agoraplace/auth-service/internal/config"
	"github.com/agoraplace/auth-service/internal/lib/jwt"
	"github.com/agoraplace/auth-service/internal/lib/password"
	"github.com/agoraplace/auth-service/internal/lib/sl"
	"github.com/agoraplace/auth-service/internal/models"
	"github.com/agoraplace/auth-service/internal/storage/repository"
)

// Сроки действия токенов подтверждения почты и сброса пароля.
const (
	EmailVerificationTTL = 24 * time.Hour
	PasswordResetTTL     = 5 * time.Hour
)

// Ошибки движка, отображаемые HTTP-границей в статусы ответов.
var (
	// ErrEmailTaken — пользователь с такой почтой уже зарегистрирован.
	ErrEmailTaken = errors.New("email already in use")
	// ErrInvalidCredentials — неверная пара email/пароль. Сообщение намеренно
	// не уточняет, какое из полей неверно и существует ли такая почта.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailNotVerified — вход до подтверждения почты.
	ErrEmailNotVerified = errors.New("please verify your email before logging in")
	// ErrInvalidVerification — неизвестный или истёкший токен подтверждения почты.
	ErrInvalidVerification = errors.New("invalid or expired token")
	// ErrUnauthorized — недействительный refresh-токен или личность вызывающего.
	ErrUnauthorized = errors.New("unauthorized")
)

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	CreateUser(ctx context.Context, user models.User, passwordHash string) (string, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByUID(ctx context.Context, uid string) (*models.User, error)
	FindUserByVerificationToken(ctx context.Context, token string, now time.Time) (*models.User, error)
	MarkEmailVerified(ctx context.Context, uid string) error
	ListUserRoles(ctx context.Context, userUID string) ([]models.Role, error)
	AppendPasswordEntry(ctx context.Context, userUID, passwordHash string) error
	TouchUser(ctx context.Context, uid string) error
}

// ResetRepository описывает контракт для заявок на сброс пароля.
type ResetRepository interface {
	CreateResetRequest(ctx context.Context, req models.ResetRequest) error
	GetResetRequestByToken(ctx context.Context, token string) (*models.ResetRequest, error)
	MarkResetSent(ctx context.Context, id string, sentAt time.Time) error
	ConsumeResetRequest(ctx context.Context, token string, editedAt time.Time) error
}

// LoginJournal описывает контракт журнала входов.
type LoginJournal interface {
	RecordLogin(ctx context.Context, userUID string) error
	ListLoginEvents(ctx context.Context, userUID string) ([]*models.LoginEvent, error)
	ListAllLoginEvents(ctx context.Context) ([]*models.LoginEvent, error)
}

// Mailer описывает шлюз уведомлений. Ошибки отправки обрабатываются
// согласно политике уведомлений конкретного потока.
type Mailer interface {
	SendVerificationEmail(email, token string) error
	SendResetLinkEmail(email, token string) error
	SendResetConfirmationEmail(email string) error
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// TokenPair — пара выпущенных токенов.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RegisterParams — входные данные регистрации, уже прошедшие валидацию
// на HTTP-границе (включая политику сложности пароля).
type RegisterParams struct {
	Email          string
	Password       string
	Firstname      string
	Lastname       string
	PhoneNumber    string
	IsCguAccepted  bool
	IsVgclAccepted bool
	OrganizationID *string
}

// RegisterResult — результат успешной регистрации. Токены при регистрации
// не выпускаются.
type RegisterResult struct {
	UID   string `json:"id"`
	Email string `json:"email"`
}

const allLoginHistoryCacheKey = "login-history:all"

// AuthService отвечает за все операции жизненного цикла учётных данных.
type AuthService struct {
	users    UserRepository
	resets   ResetRepository
	journal  LoginJournal
	mailer   Mailer
	cache    Cache
	jwtMaker jwt.Maker
	policy   config.NotificationPolicy
	log      *slog.Logger
}

// NewAuthService создает новый экземпляр AuthService.
func NewAuthService(
	users UserRepository,
	resets ResetRepository,
	journal LoginJournal,
	mailer Mailer,
	cache Cache,
	jwtMaker jwt.Maker,
	policy config.NotificationPolicy,
	log *slog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		resets:   resets,
		journal:  journal,
		mailer:   mailer,
		cache:    cache,
		jwtMaker: jwtMaker,
		policy:   policy,
		log:      log,
	}
}

// Register создает нового неподтверждённого пользователя, сохраняет первый
// хэш в историю паролей и отправляет письмо подтверждения почты.
//
// При политике strict (по умолчанию) ошибка отправки письма приводит к
// ошибке всей операции: регистрация без отправленного письма не считается
// завершённой.
func (s *AuthService) Register(ctx context.Context, params RegisterParams) (*RegisterResult, error) {
	const op = "auth.Register"

	exists, err := s.users.ExistsByEmail(ctx, params.Email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if exists {
		return nil, ErrEmailTaken
	}

	hash, err := password.GetHash(params.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	verificationToken, err := randomHexToken()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	expiresAt := time.Now().Add(EmailVerificationTTL)

	user := models.User{
		Email:                 params.Email,
		Firstname:             params.Firstname,
		Lastname:              params.Lastname,
		PhoneNumber:           params.PhoneNumber,
		IsCguAccepted:         params.IsCguAccepted,
		IsVgclAccepted:        params.IsVgclAccepted,
		OrganizationID:        params.OrganizationID,
		VerificationToken:     &verificationToken,
		VerificationExpiresAt: &expiresAt,
	}

	uid, err := s.users.CreateUser(ctx, user, hash)
	// Гонка двух одновременных регистраций: проверку существования прошли
	// обе, вставку второй отклонило ограничение уникальности в базе.
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.mailer.SendVerificationEmail(params.Email, verificationToken); err != nil {
		if s.policy.Registration == config.PolicyBestEffort {
			s.log.Error("verification email failed, continuing per policy", sl.Op(op), sl.Err(err))
		} else {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	return &RegisterResult{UID: uid, Email: params.Email}, nil
}

// VerifyEmail подтверждает почту по токену. Токен одноразовый: после успеха
// он обнуляется, повторная попытка с тем же токеном детерминированно
// завершается ошибкой.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	const op = "auth.VerifyEmail"

	if token == "" {
		return ErrInvalidVerification
	}
	user, err := s.users.FindUserByVerificationToken(ctx, token, time.Now())
	if errors.Is(err, repository.ErrNotFound) {
		return ErrInvalidVerification
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.users.MarkEmailVerified(ctx, user.UID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Login проверяет пароль пользователя по последней записи истории паролей
// и выпускает пару access/refresh токенов.
func (s *AuthService) Login(ctx context.Context, email, rawPassword string) (*TokenPair, error) {
	const op = "auth.Login"

	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// Пользователь без единой записи в истории паролей аутентифицироваться не может.
	if user.LatestPasswordHash == "" {
		return nil, ErrInvalidCredentials
	}

	if !user.IsEmailVerified {
		return nil, ErrEmailNotVerified
	}

	if err := password.CompareHash(user.LatestPasswordHash, rawPassword); err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := s.journal.RecordLogin(ctx, user.UID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Invalidate(allLoginHistoryCacheKey); err != nil {
		s.log.Warn("failed to invalidate login history cache", sl.Op(op), sl.Err(err))
	}

	payload, err := s.buildPayload(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var pair TokenPair
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var genErr error
		pair.AccessToken, genErr = s.jwtMaker.GenerateAccessToken(payload)
		return genErr
	})
	g.Go(func() error {
		var genErr error
		pair.RefreshToken, genErr = s.jwtMaker.GenerateRefreshToken(payload)
		return genErr
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &pair, nil
}

// Refresh проверяет refresh-токен и выпускает новый access-токен.
//
// Claims пересобираются из актуального состояния пользователя, а не
// переподписываются из старого токена: изменения ролей отражаются при
// следующем refresh. Сам refresh-токен не ротируется и остаётся
// действительным до собственного истечения.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	const op = "auth.Refresh"

	claims, err := s.jwtMaker.ParseRefreshToken(refreshToken)
	if err != nil {
		return "", ErrUnauthorized
	}

	user, err := s.users.GetUserByUID(ctx, claims.Subject)
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrUnauthorized
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	payload, err := s.buildPayload(ctx, user)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	accessToken, err := s.jwtMaker.GenerateAccessToken(payload)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return accessToken, nil
}

// LoginHistory возвращает журнал входов. Вызывающие с рангом power >= 100
// получают журнал всех пользователей (с коротким кэшированием), остальные —
// только собственный.
func (s *AuthService) LoginHistory(ctx context.Context, caller models.Identity) ([]*models.LoginEvent, error) {
	const op = "auth.LoginHistory"

	if caller.UserUID == "" {
		return nil, ErrUnauthorized
	}

	if !caller.IsSuperAdmin() {
		events, err := s.journal.ListLoginEvents(ctx, caller.UserUID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return events, nil
	}

	var cached []*models.LoginEvent
	ok, err := s.cache.Get(allLoginHistoryCacheKey, &cached)
	if err != nil {
		s.log.Warn("login history cache read failed", sl.Op(op), sl.Err(err))
	}
	if ok {
		return cached, nil
	}

	events, err := s.journal.ListAllLoginEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Set(allLoginHistoryCacheKey, events, time.Minute); err != nil {
		s.log.Warn("failed to cache login history", sl.Op(op), sl.Err(err))
	}
	return events, nil
}

func (s *AuthService) buildPayload(ctx context.Context, user *models.User) (jwt.Payload, error) {
	roles, err := s.users.ListUserRoles(ctx, user.UID)
	if err != nil {
		return jwt.Payload{}, err
	}
	if len(roles) == 0 {
		roles = models.DefaultRoles()
	}
	return jwt.Payload{
		UserUID:   user.UID,
		Email:     user.Email,
		Firstname: user.Firstname,
		Lastname:  user.Lastname,
		Roles:     roles,
	}, nil
}
