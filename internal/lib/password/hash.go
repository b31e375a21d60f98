// Package password реализует функции для безопасного хеширования и проверки паролей,
// а также проверку пароля на соответствие политике сложности.
//
// GetHash создает bcrypt-хеш пароля для безопасного хранения.
// CompareHash сравнивает исходный bcrypt-хеш с введённым паролем, проверяя их соответствие.
// CheckPolicy проверяет минимальную длину и обязательные классы символов.
package password

import (
	"errors"
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// HashCost — стоимость bcrypt-хеширования.
const HashCost = 12

// MinLength — минимальная длина пароля по политике сложности.
const MinLength = 12

// ErrWeakPassword возвращается, когда пароль не проходит политику сложности.
var ErrWeakPassword = errors.New(
	"password must be at least 12 characters and contain lowercase, uppercase, digit and symbol")

// GetHash принимает пароль пользователя и возвращает его bcrypt‑хэш.
//
// Используется для безопасного хранения паролей в истории паролей.
func GetHash(password string) (string, error) {
	const op = "password.GetHash"
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), HashCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashedPassword), nil
}

// CompareHash сравнивает bcrypt‑хэш с введённым паролем.
//
// Возвращает nil, если пароль соответствует хэшу, иначе — ошибку.
// Сравнение всегда выполняется через bcrypt, никогда через равенство строк.
func CompareHash(originalHash, externalPassword string) error {
	const op = "password.CompareHash"
	if err := bcrypt.CompareHashAndPassword([]byte(originalHash), []byte(externalPassword)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CheckPolicy проверяет пароль на соответствие политике сложности:
// не короче MinLength символов, хотя бы одна строчная и одна прописная
// буквы, хотя бы одна цифра и один спецсимвол.
func CheckPolicy(password string) error {
	var hasLower, hasUpper, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSymbol = true
		}
	}
	if len(password) < MinLength || !hasLower || !hasUpper || !hasDigit || !hasSymbol {
		return ErrWeakPassword
	}
	return nil
}
