package services

import (
	"fmt"
	"natours/internal/models"
	"natours/internal/utils"
	"time"
)

// applyNewPassword — общий хук смены пароля: bcrypt-хеш вместо открытого текста
// и сдвиг password_changed_at. Сохраняет вызывающий.
func applyNewPassword(u *models.User, plain string, now time.Time) error {
	hash, err := utils.HashPassword(plain)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.SetPasswordHash(hash, now)
	return nil
}

func humanizeDuration(d time.Duration) string {
	if d < time.Hour {
		return fmt.Sprintf("%d мин.", int(d.Minutes()))
	}
	return fmt.Sprintf("%d ч.", int(d.Hours()))
}
