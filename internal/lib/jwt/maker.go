package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/agoraplace/auth-service/internal/models"
)

// CustomClaims описывает пользовательские данные, хранящиеся в JWT.
type CustomClaims struct {
	Email                string        `json:"email"`     // Электронная почта
	Firstname            string        `json:"firstname"` // Имя
	Lastname             string        `json:"lastname"`  // Фамилия
	Roles                []models.Role `json:"roles"`     // Назначенные роли с рангом power
	jwt.RegisteredClaims               // Встроенные стандартные claims JWT (Subject, ExpiresAt, IssuedAt и пр.)
}

// GenerateAccessToken создает access-токен с заданными claims,
// подписывая его access-секретом. Время жизни токена — accessTTL.
func (j *MakerImpl) GenerateAccessToken(payload Payload) (string, error) {
	return j.generate(payload, j.accessSecret, j.accessTTL)
}

// GenerateRefreshToken создает refresh-токен с теми же claims,
// подписывая его отдельным refresh-секретом. Время жизни — refreshTTL.
func (j *MakerImpl) GenerateRefreshToken(payload Payload) (string, error) {
	return j.generate(payload, j.refreshSecret, j.refreshTTL)
}

func (j *MakerImpl) generate(payload Payload, secret string, ttl time.Duration) (string, error) {
	roles := payload.Roles
	if len(roles) == 0 {
		roles = models.DefaultRoles()
	}
	claims := CustomClaims{
		Email:     payload.Email,
		Firstname: payload.Firstname,
		Lastname:  payload.Lastname,
		Roles:     roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   payload.UserUID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseAccessToken парсит access-токен, проверяет его подпись и срок действия,
// возвращает CustomClaims с данными, если токен корректен.
func (j *MakerImpl) ParseAccessToken(tokenStr string) (*CustomClaims, error) {
	return j.parse(tokenStr, j.accessSecret)
}

// ParseRefreshToken парсит refresh-токен, проверяя его против refresh-секрета.
func (j *MakerImpl) ParseRefreshToken(tokenStr string) (*CustomClaims, error) {
	return j.parse(tokenStr, j.refreshSecret)
}

func (j *MakerImpl) parse(tokenStr, secret string) (*CustomClaims, error) {
	const op = "jwt.ParseToken"
	token, err := jwt.ParseWithClaims(tokenStr, &CustomClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: invalid token", op)
	}
	return claims, nil
}
