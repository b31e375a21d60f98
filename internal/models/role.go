package models

// Пороговые уровни авторизации. Эффективный уровень пользователя —
// максимальный power среди назначенных ролей.
const (
	PowerUser        = 10  // обычный пользователь
	PowerEntityAdmin = 50  // администратор организации
	PowerSuperAdmin  = 100 // административный доступ ко всем данным
)

// DefaultRoleID — синтетический идентификатор роли USER,
// подставляемой пользователям без назначенных ролей.
const DefaultRoleID = "default-role-id"

// Role описывает роль с числовым рангом авторизации.
type Role struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Power int    `json:"power"`
}

// DefaultRoles возвращает набор ролей по умолчанию для пользователя,
// у которого нет ни одной назначенной роли.
func DefaultRoles() []Role {
	return []Role{{ID: DefaultRoleID, Name: "USER", Power: PowerUser}}
}

// MaxPower возвращает максимальный ранг среди ролей.
// Для пустого набора возвращает 0.
func MaxPower(roles []Role) int {
	var maxPower int
	for _, r := range roles {
		if r.Power > maxPower {
			maxPower = r.Power
		}
	}
	return maxPower
}
