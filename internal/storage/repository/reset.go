package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/agoraplace/auth-service/internal/models"
)

// CreateResetRequest сохраняет новую заявку на сброс пароля.
func (s *Storage) CreateResetRequest(ctx context.Context, req models.ResetRequest) error {
	const op = "storage.CreateResetRequest"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO forgot_password_requests (id, email, token, expired_at)
			  VALUES ($1, $2, $3, $4)`
	if _, err := s.DB.ExecContext(ctx, query,
		req.ID, req.Email, req.Token, req.ExpiredAt); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetResetRequestByToken возвращает заявку на сброс по её токену.
// Заявки не удаляются после использования, поэтому запись возвращается
// и для уже использованных токенов — признак использования в EditedAt.
func (s *Storage) GetResetRequestByToken(ctx context.Context, token string) (*models.ResetRequest, error) {
	const op = "storage.GetResetRequestByToken"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, email, token, expired_at, sent_at, edited_at, created_at
			  FROM forgot_password_requests
			  WHERE token = $1`
	req := &models.ResetRequest{}
	var sentAt, editedAt sql.NullTime
	err := s.DB.QueryRowContext(ctx, query, token).
		Scan(&req.ID, &req.Email, &req.Token, &req.ExpiredAt, &sentAt, &editedAt, &req.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if sentAt.Valid {
		req.SentAt = &sentAt.Time
	}
	if editedAt.Valid {
		req.EditedAt = &editedAt.Time
	}
	return req, nil
}

// MarkResetSent фиксирует момент успешной отправки письма со ссылкой.
func (s *Storage) MarkResetSent(ctx context.Context, id string, sentAt time.Time) error {
	const op = "storage.MarkResetSent"
	query := `UPDATE forgot_password_requests SET sent_at = $1 WHERE id = $2`
	if _, err := s.DB.ExecContext(ctx, query, sentAt, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ConsumeResetRequest помечает заявку использованной, проставляя edited_at.
// Запись не удаляется: повторное использование того же токена отклоняется
// проверкой edited_at.
func (s *Storage) ConsumeResetRequest(ctx context.Context, token string, editedAt time.Time) error {
	const op = "storage.ConsumeResetRequest"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE forgot_password_requests SET edited_at = $1 WHERE token = $2`
	if _, err := s.DB.ExecContext(ctx, query, editedAt, token); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
