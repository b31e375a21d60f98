// Package models содержит доменную модель пользователя системы:
// учётную запись, историю паролей, заявки на сброс пароля и журнал входов.
// Структуры используются в бизнес‑логике и при работе с хранилищем.
package models

import "time"

// User представляет зарегистрированного пользователя системы.
//
// Пароль никогда не хранится в самой записи пользователя: актуальный
// хэш — это последняя запись в истории паролей (см. PasswordEntry).
type User struct {
	UID                    string     // Уникальный идентификатор пользователя
	Email                  string     // Электронная почта (уникальная)
	Firstname              string     // Имя
	Lastname               string     // Фамилия
	PhoneNumber            string     // Телефон (опционально)
	IsCguAccepted          bool       // Принятие пользовательского соглашения
	IsVgclAccepted         bool       // Принятие политики конфиденциальности
	IsEmailVerified        bool       // Подтверждена ли почта
	VerificationToken      *string    // Токен подтверждения почты, nil после подтверждения
	VerificationExpiresAt  *time.Time // Срок действия токена подтверждения
	OrganizationID         *string    // Привязка к организации (опционально)
	Roles                  []Role     // Назначенные роли
	LatestPasswordHash     string     // Последний хэш из истории паролей (если загружен)
	LatestPasswordAt       *time.Time // Момент создания последнего хэша
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// PasswordEntry — одна запись в истории паролей пользователя.
// История паролей только дополняется: смена пароля добавляет новую
// запись, а не перезаписывает старую.
type PasswordEntry struct {
	ID           int64
	UserUID      string
	PasswordHash string
	CreatedAt    time.Time
}

// LoginEvent — запись журнала входов, одна строка на успешный вход.
type LoginEvent struct {
	ID      int64     `json:"id"`
	UserUID string    `json:"user_uid"`
	Date    time.Time `json:"date"`
}
