package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"natours/internal/models"
	"time"
)

// NewPasswordResetToken — 32 случайных байта в hex; в БД пойдёт только sha256 от них.
func NewPasswordResetToken(now time.Time, ttl time.Duration) (*models.PasswordResetToken, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}
	token := hex.EncodeToString(raw)

	return &models.PasswordResetToken{
		Raw:       token,
		Hash:      HashResetToken(token),
		ExpiresAt: now.Add(ttl),
	}, nil
}

func HashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
