package repository

import (
	"context"
	"fmt"

	"github.com/agoraplace/auth-service/internal/models"
)

// AppendPasswordEntry добавляет новый хэш в историю паролей пользователя.
// История только дополняется: предыдущие записи никогда не перезаписываются.
func (s *Storage) AppendPasswordEntry(ctx context.Context, userUID, passwordHash string) error {
	const op = "storage.AppendPasswordEntry"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO password_history (user_uid, password_hash)
			  VALUES ($1, $2)`
	if _, err := s.DB.ExecContext(ctx, query, userUID, passwordHash); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListPasswordEntries возвращает историю паролей пользователя,
// отсортированную от новых к старым.
func (s *Storage) ListPasswordEntries(ctx context.Context, userUID string) ([]*models.PasswordEntry, error) {
	const op = "storage.ListPasswordEntries"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, password_hash, created_at
			  FROM password_history
			  WHERE user_uid = $1
			  ORDER BY created_at DESC`
	rows, err := s.DB.QueryContext(ctx, query, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.PasswordEntry
	for rows.Next() {
		var e models.PasswordEntry
		if err = rows.Scan(&e.ID, &e.UserUID, &e.PasswordHash, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
