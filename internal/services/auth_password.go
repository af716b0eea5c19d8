package services

import (
	"context"
	"errors"
	"fmt"
	"natours/internal/apperr"
	"natours/internal/logger"
	"natours/internal/models"
	"natours/internal/repository"
	"natours/internal/utils"
	"time"

	"go.uber.org/zap"
)

type PasswordService struct {
	repo           PasswordResetRepo
	mailer         ResetMailer
	tokens         *utils.TokenService
	resetTTL       time.Duration
	minPasswordLen int
	now            func() time.Time
}

type PasswordResetRepo interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	SetResetToken(ctx context.Context, userID string, tokenHash string, expiresAt time.Time) error
	ClearResetToken(ctx context.Context, userID string) error
	GetUserByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error)
	ConsumeResetToken(ctx context.Context, u *models.User, tokenHash string, now time.Time) error
}

// ResetMailer доставляет ссылку сброса. Ошибка означает, что письмо не ушло.
type ResetMailer interface {
	SendPasswordReset(ctx context.Context, u *models.User, resetURL string, validFor string) error
}

func NewPasswordService(repo PasswordResetRepo, mailer ResetMailer, tokens *utils.TokenService, resetTTL time.Duration, minPasswordLen int) *PasswordService {
	return &PasswordService{
		repo:           repo,
		mailer:         mailer,
		tokens:         tokens,
		resetTTL:       resetTTL,
		minPasswordLen: minPasswordLen,
		now:            time.Now,
	}
}

// IssueResetToken сохраняет хеш нового токена на пользователе и возвращает сырое значение.
func (s *PasswordService) IssueResetToken(ctx context.Context, u *models.User) (string, error) {
	tok, err := utils.NewPasswordResetToken(s.now(), s.resetTTL)
	if err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	if err := s.repo.SetResetToken(ctx, u.ID, tok.Hash, tok.ExpiresAt); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", apperr.ErrNoAccountForEmail
		}
		return "", fmt.Errorf("save reset token: %w", err)
	}
	u.SetResetToken(tok.Hash, tok.ExpiresAt)
	return tok.Raw, nil
}

// RequestReset выдаёт токен и отправляет ссылку linkFor(raw).
// Если письмо не ушло, токен гасится и возвращается ErrDeliveryFailed.
func (s *PasswordService) RequestReset(ctx context.Context, email string, linkFor func(raw string) string) error {
	log := logger.WithCtx(ctx)
	email = utils.NormalizeEmail(email)
	if email == "" {
		return apperr.Validation("Укажите email")
	}
	log.Info("Запрос на сброс пароля", zap.String("email", utils.MaskEmail(email)))

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Warn("Сброс пароля: активный пользователь не найден", zap.String("email", utils.MaskEmail(email)))
			return apperr.ErrNoAccountForEmail
		}
		return fmt.Errorf("get user by email: %w", err)
	}

	raw, err := s.IssueResetToken(ctx, user)
	if err != nil {
		return err
	}

	if err := s.mailer.SendPasswordReset(ctx, user, linkFor(raw), humanizeDuration(s.resetTTL)); err != nil {
		log.Error("Ошибка отправки письма сброса, токен отзывается", zap.String("user_id", user.ID), zap.Error(err))
		if cerr := s.repo.ClearResetToken(ctx, user.ID); cerr != nil {
			log.Error("Не удалось отозвать токен сброса", zap.String("user_id", user.ID), zap.Error(cerr))
		}
		user.ClearResetToken()
		return apperr.ErrDeliveryFailed
	}

	log.Info("Ссылка на сброс пароля отправлена",
		zap.String("user_id", user.ID),
		zap.Time("expires_at", *user.PasswordResetExpires),
	)
	return nil
}

// ResetPassword гасит токен, ставит новый пароль и выдаёт сессионный токен.
// Любая проблема с токеном (нет, истёк, уже использован) даёт ErrTokenInvalidOrExpired.
func (s *PasswordService) ResetPassword(ctx context.Context, raw string, in ResetPasswordInput) (string, *models.User, error) {
	log := logger.WithCtx(ctx)
	log.Info("Попытка сброса пароля по токену")

	if raw == "" {
		return "", nil, apperr.ErrTokenInvalidOrExpired
	}
	hash := utils.HashResetToken(raw)
	now := s.now()

	user, err := s.repo.GetUserByResetToken(ctx, hash, now)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Warn("Неверный или просроченный токен сброса")
			return "", nil, apperr.ErrTokenInvalidOrExpired
		}
		return "", nil, fmt.Errorf("find by reset token: %w", err)
	}

	if err := in.Validate(s.minPasswordLen); err != nil {
		return "", nil, err
	}

	if err := applyNewPassword(user, in.Password, now); err != nil {
		return "", nil, err
	}
	user.ClearResetToken()

	if err := s.repo.ConsumeResetToken(ctx, user, hash, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Warn("Токен сброса уже использован", zap.String("user_id", user.ID))
			return "", nil, apperr.ErrTokenInvalidOrExpired
		}
		return "", nil, fmt.Errorf("consume reset token: %w", err)
	}

	token, err := s.tokens.Sign(user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}

	log.Info("Пароль успешно сброшен", zap.String("user_id", user.ID))
	return token, user, nil
}
