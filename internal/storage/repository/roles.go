package repository

import (
	"context"
	"fmt"

	"github.com/agoraplace/auth-service/internal/models"
)

// ListUserRoles возвращает роли, назначенные пользователю.
// Пустой результат не является ошибкой: пользователям без ролей движок
// подставляет синтетическую роль USER при сборке claims.
func (s *Storage) ListUserRoles(ctx context.Context, userUID string) ([]models.Role, error) {
	const op = "storage.ListUserRoles"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT r.id, r.name, r.power
			  FROM roles r
			  JOIN user_roles ur ON ur.role_id = r.id
			  WHERE ur.user_uid = $1
			  ORDER BY r.power DESC`
	rows, err := s.DB.QueryContext(ctx, query, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.Role
	for rows.Next() {
		var r models.Role
		if err = rows.Scan(&r.ID, &r.Name, &r.Power); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// AssignRole назначает пользователю роль.
func (s *Storage) AssignRole(ctx context.Context, userUID, roleID string) error {
	const op = "storage.AssignRole"
	query := `INSERT INTO user_roles (user_uid, role_id)
			  VALUES ($1, $2)
			  ON CONFLICT DO NOTHING`
	if _, err := s.DB.ExecContext(ctx, query, userUID, roleID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
