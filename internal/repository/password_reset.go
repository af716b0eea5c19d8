package repository

import (
	"context"
	"errors"
	"natours/internal/logger"
	"natours/internal/models"
	"time"

	"go.uber.org/zap"
)

// Поля сброса пароля живут в строке users и всегда пишутся парой.

func (r *UserRepository) SetResetToken(ctx context.Context, userID string, tokenHash string, expiresAt time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET password_reset_token = $2, password_reset_expires = $3 WHERE id = $1 AND active = TRUE`,
		userID, tokenHash, expiresAt,
	)
	if err != nil {
		logger.WithCtx(ctx).Error("Ошибка сохранения токена сброса (repo)", zap.Error(err), zap.String("user_id", userID))
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) ClearResetToken(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE users SET password_reset_token = NULL, password_reset_expires = NULL WHERE id = $1`,
		userID,
	)
	if err != nil {
		logger.WithCtx(ctx).Error("Ошибка очистки токена сброса (repo)", zap.Error(err), zap.String("user_id", userID))
	}
	return err
}

// GetUserByResetToken ищет активный аккаунт с совпадающим хешем и неистёкшим сроком.
func (r *UserRepository) GetUserByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
	WHERE password_reset_token = $1
	  AND password_reset_expires > $2
	  AND active = TRUE`

	u, err := scanUser(r.db.QueryRow(ctx, query, tokenHash, now))
	if err != nil && !errors.Is(err, ErrNotFound) {
		logger.WithCtx(ctx).Error("Ошибка поиска по токену сброса (repo)", zap.Error(err))
	}
	return u, err
}

// ConsumeResetToken записывает новый пароль и гасит токен одним условным UPDATE:
// если токен уже использован или истёк, строк не будет и вернётся ErrNotFound.
func (r *UserRepository) ConsumeResetToken(ctx context.Context, u *models.User, tokenHash string, now time.Time) error {
	tag, err := r.db.Exec(ctx, `
	UPDATE users
	SET password_hash = $2,
	    password_changed_at = $3,
	    password_reset_token = NULL,
	    password_reset_expires = NULL
	WHERE id = $1
	  AND active = TRUE
	  AND password_reset_token = $4
	  AND password_reset_expires > $5`,
		u.ID, u.PasswordHash, u.PasswordChangedAt, tokenHash, now,
	)
	if err != nil {
		logger.WithCtx(ctx).Error("Ошибка применения токена сброса (repo)", zap.Error(err), zap.String("user_id", u.ID))
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
