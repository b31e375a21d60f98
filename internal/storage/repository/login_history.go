package repository

import (
	"context"
	"fmt"

	"github.com/agoraplace/auth-service/internal/models"
)

// RecordLogin добавляет запись в журнал входов, одна строка на успешный вход.
func (s *Storage) RecordLogin(ctx context.Context, userUID string) error {
	const op = "storage.RecordLogin"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO login_history (user_uid) VALUES ($1)`
	if _, err := s.DB.ExecContext(ctx, query, userUID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListLoginEvents возвращает журнал входов пользователя от новых к старым.
func (s *Storage) ListLoginEvents(ctx context.Context, userUID string) ([]*models.LoginEvent, error) {
	const op = "storage.ListLoginEvents"
	query := `SELECT id, user_uid, date
			  FROM login_history
			  WHERE user_uid = $1
			  ORDER BY date DESC`
	return s.queryLoginEvents(ctx, op, query, userUID)
}

// ListAllLoginEvents возвращает журнал входов всех пользователей.
// Доступно только вызывающим с административным рангом.
func (s *Storage) ListAllLoginEvents(ctx context.Context) ([]*models.LoginEvent, error) {
	const op = "storage.ListAllLoginEvents"
	query := `SELECT id, user_uid, date
			  FROM login_history
			  ORDER BY date DESC`
	return s.queryLoginEvents(ctx, op, query)
}

func (s *Storage) queryLoginEvents(ctx context.Context, op, query string, args ...any) ([]*models.LoginEvent, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.LoginEvent
	for rows.Next() {
		var e models.LoginEvent
		if err = rows.Scan(&e.ID, &e.UserUID, &e.Date); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
