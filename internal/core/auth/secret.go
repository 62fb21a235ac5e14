package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashSecret はクライアントシークレットの bcrypt ハッシュを生成します。
func HashSecret(secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("secret: %w", ErrInvalidRequest)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash secret: %w", err)
	}
	return string(hashed), nil
}

// VerifySecret は平文シークレットがハッシュと一致するかを検証します。
func VerifySecret(secret, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidClient
		}
		return fmt.Errorf("verify secret: %w", err)
	}
	return nil
}
