package models

import "time"

// ResetRequest — заявка на сброс пароля.
//
// Заявка одноразовая: использование фиксируется временем EditedAt,
// запись при этом не удаляется. Токен действителен, пока EditedAt == nil
// и ExpiredAt в будущем.
type ResetRequest struct {
	ID        string
	Email     string
	Token     string
	ExpiredAt time.Time
	SentAt    *time.Time // момент успешной отправки письма
	EditedAt  *time.Time // момент использования токена, nil — не использован
	CreatedAt time.Time
}

// Identity — проверенная личность вызывающего, извлечённая из access-токена.
// Передаётся в операции движка явным аргументом.
type Identity struct {
	UserUID   string
	Email     string
	Firstname string
	Lastname  string
	Roles     []Role
}

// IsSuperAdmin сообщает, имеет ли вызывающий административный доступ
// ко всем данным (power >= PowerSuperAdmin).
func (i Identity) IsSuperAdmin() bool {
	return MaxPower(i.Roles) >= PowerSuperAdmin
}
