// Package repository реализует хранилище данных на основе PostgreSQL
// для управления учётными записями: пользователи, история паролей,
// заявки на сброс пароля, журнал входов и роли. Все изменения этих
// сущностей выполняются только через методы этого пакета.
package repository

import (
	"context"
	"errors"
	"fmt"

	"database/sql"

	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
)

// ErrNotFound возвращается, когда запрошенная запись отсутствует.
// Используется движком для различения "не найдено" от инфраструктурных ошибок.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate возвращается при нарушении ограничения уникальности,
// например при вставке пользователя с уже занятой почтой.
var ErrDuplicate = errors.New("record already exists")

// Storage инкапсулирует соединение с базой данных PostgreSQL
// и реализует методы работы с учётными данными.
type Storage struct {
	DB *sql.DB
}

// New создаёт подключение к PostgreSQL.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB: db,
	}, nil
}

// CheckDatabaseReady проверяет готовность базы данных.
func CheckDatabaseReady(storage *Storage) error {
	var exists bool
	err := storage.DB.QueryRow(`SELECT EXISTS (
        SELECT FROM information_schema.tables
        WHERE table_name = 'users'
    )`).Scan(&exists)
	if err != nil || !exists {
		return fmt.Errorf("required table users missing or query error: %w", err)
	}
	return nil
}
