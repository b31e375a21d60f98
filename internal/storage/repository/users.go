package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/agoraplace/auth-service/internal/models"
)

// CreateUser сохраняет нового неподтверждённого пользователя вместе с первой
// записью истории паролей в одной транзакции и возвращает его UID.
// Уникальность email дополнительно гарантируется ограничением в базе:
// проверка существования в движке — только предварительная.
func (s *Storage) CreateUser(ctx context.Context, user models.User, passwordHash string) (string, error) {
	const op = "storage.CreateUser"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var newUID string
	query := `INSERT INTO users (email, firstname, lastname, phone_number,
			      is_cgu_accepted, is_vgcl_accepted, organization_id,
			      email_verification_token, email_verification_token_expires)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			  RETURNING uid;`
	if err = tx.QueryRowContext(ctx, query,
		user.Email, user.Firstname, user.Lastname, nullString(user.PhoneNumber),
		user.IsCguAccepted, user.IsVgclAccepted, user.OrganizationID,
		user.VerificationToken, user.VerificationExpiresAt).Scan(&newUID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return "", fmt.Errorf("%s: %w", op, ErrDuplicate)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO password_history (user_uid, password_hash) VALUES ($1, $2)`,
		newUID, passwordHash); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newUID, nil
}

// ExistsByEmail сообщает, зарегистрирован ли пользователь с данной почтой.
func (s *Storage) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	const op = "storage.ExistsByEmail"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`
	if err := s.DB.QueryRowContext(ctx, query, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// GetUserByEmail возвращает пользователя по почте вместе с последним хэшем
// из истории паролей (по убыванию created_at, одна запись).
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"
	query := `SELECT u.uid, u.email, u.firstname, u.lastname, u.phone_number,
			      u.is_cgu_accepted, u.is_vgcl_accepted, u.is_email_verified,
			      u.organization_id, u.created_at, u.updated_at,
			      ph.password_hash, ph.created_at
			  FROM users u
			  LEFT JOIN LATERAL (
			      SELECT password_hash, created_at
			      FROM password_history
			      WHERE user_uid = u.uid
			      ORDER BY created_at DESC
			      LIMIT 1
			  ) ph ON true
			  WHERE u.email = $1`
	return s.scanUser(ctx, op, s.DB.QueryRowContext(ctx, query, email))
}

// GetUserByUID возвращает пользователя по его UID с последним хэшем пароля.
func (s *Storage) GetUserByUID(ctx context.Context, uid string) (*models.User, error) {
	const op = "storage.GetUserByUID"
	query := `SELECT u.uid, u.email, u.firstname, u.lastname, u.phone_number,
			      u.is_cgu_accepted, u.is_vgcl_accepted, u.is_email_verified,
			      u.organization_id, u.created_at, u.updated_at,
			      ph.password_hash, ph.created_at
			  FROM users u
			  LEFT JOIN LATERAL (
			      SELECT password_hash, created_at
			      FROM password_history
			      WHERE user_uid = u.uid
			      ORDER BY created_at DESC
			      LIMIT 1
			  ) ph ON true
			  WHERE u.uid = $1`
	return s.scanUser(ctx, op, s.DB.QueryRowContext(ctx, query, uid))
}

// FindUserByVerificationToken возвращает пользователя, чей токен подтверждения
// почты совпадает с данным и ещё не истёк.
func (s *Storage) FindUserByVerificationToken(ctx context.Context, token string, now time.Time) (*models.User, error) {
	const op = "storage.FindUserByVerificationToken"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, email, firstname, lastname
			  FROM users
			  WHERE email_verification_token = $1
			    AND email_verification_token_expires > $2`
	u := &models.User{}
	err := s.DB.QueryRowContext(ctx, query, token, now).
		Scan(&u.UID, &u.Email, &u.Firstname, &u.Lastname)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// MarkEmailVerified помечает почту подтверждённой и обнуляет токен
// подтверждения вместе со сроком действия (одноразовое использование).
func (s *Storage) MarkEmailVerified(ctx context.Context, uid string) error {
	const op = "storage.MarkEmailVerified"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET is_email_verified = true,
			      email_verification_token = NULL,
			      email_verification_token_expires = NULL,
			      updated_at = now()
			  WHERE uid = $1`
	if _, err := s.DB.ExecContext(ctx, query, uid); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// TouchUser обновляет updated_at пользователя.
func (s *Storage) TouchUser(ctx context.Context, uid string) error {
	const op = "storage.TouchUser"
	if _, err := s.DB.ExecContext(ctx,
		`UPDATE users SET updated_at = now() WHERE uid = $1`, uid); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Storage) scanUser(ctx context.Context, op string, row *sql.Row) (*models.User, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	u := &models.User{}
	var phoneNumber, organizationID sql.NullString
	var latestHash sql.NullString
	var latestAt sql.NullTime
	err := row.Scan(&u.UID, &u.Email, &u.Firstname, &u.Lastname, &phoneNumber,
		&u.IsCguAccepted, &u.IsVgclAccepted, &u.IsEmailVerified,
		&organizationID, &u.CreatedAt, &u.UpdatedAt,
		&latestHash, &latestAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if phoneNumber.Valid {
		u.PhoneNumber = phoneNumber.String
	}
	if organizationID.Valid {
		u.OrganizationID = &organizationID.String
	}
	if latestHash.Valid {
		u.LatestPasswordHash = latestHash.String
	}
	if latestAt.Valid {
		u.LatestPasswordAt = &latestAt.Time
	}
	return u, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
