package models

import "time"

// PasswordResetToken — одноразовый токен сброса пароля.
// Raw уходит только в письмо, в БД лежит Hash.
type PasswordResetToken struct {
	Raw       string
	Hash      string
	ExpiresAt time.Time
}
