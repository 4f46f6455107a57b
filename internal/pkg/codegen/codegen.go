// Package codegen генерирует одноразовые коды подтверждения вида ABC123
package codegen

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits  = "0123456789"
)

// Generate возвращает код из 3 заглавных латинских букв и 3 цифр
func Generate() (string, error) {
	code := make([]byte, 0, 6)

	for i := 0; i < 3; i++ {
		c, err := pick(letters)
		if err != nil {
			return "", err
		}
		code = append(code, c)
	}
	for i := 0; i < 3; i++ {
		c, err := pick(digits)
		if err != nil {
			return "", err
		}
		code = append(code, c)
	}

	return string(code), nil
}

func pick(alphabet string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
	if err != nil {
		return 0, fmt.Errorf("failed to read random: %w", err)
	}
	return alphabet[n.Int64()], nil
}
