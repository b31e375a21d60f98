// Package jwt реализует генерацию и парсинг JWT токенов с пользовательскими claim полями.
//
// Maker определяет интерфейс для выпуска пары access/refresh токенов и их проверки.
// MakerImpl — конкретная реализация с двумя раздельными секретами:
// access-токен подписывается одним ключом, refresh-токен — другим.
package jwt

import (
	"time"

	"github.com/agoraplace/auth-service/internal/models"
)

// Maker описывает интерфейс для выпуска и проверки JWT токенов.
type Maker interface {
	// GenerateAccessToken выпускает access-токен с claims пользователя.
	GenerateAccessToken(claims Payload) (string, error)
	// GenerateRefreshToken выпускает refresh-токен с теми же claims,
	// подписанный отдельным секретом.
	GenerateRefreshToken(claims Payload) (string, error)
	// ParseAccessToken проверяет подпись и срок действия access-токена.
	ParseAccessToken(tokenStr string) (*CustomClaims, error)
	// ParseRefreshToken проверяет подпись и срок действия refresh-токена.
	ParseRefreshToken(tokenStr string) (*CustomClaims, error)
}

// Payload — идентификационные данные, зашиваемые в токен на момент выпуска.
// Набор ролей — снимок состояния пользователя; до следующего логина или
// refresh он может устареть.
type Payload struct {
	UserUID   string
	Email     string
	Firstname string
	Lastname  string
	Roles     []models.Role
}

// MakerImpl реализует интерфейс Maker с использованием двух секретных
// ключей и раздельных сроков жизни access и refresh токенов.
type MakerImpl struct {
	accessSecret  string
	refreshSecret string
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewJWTMaker создаёт новый экземпляр MakerImpl.
func NewJWTMaker(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *MakerImpl {
	return &MakerImpl{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}
