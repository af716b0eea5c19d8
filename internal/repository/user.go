package repository

import (
	"context"
	"errors"
	"fmt"
	"natours/internal/logger"
	"natours/internal/models"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Колонки пользователя в порядке scanUser.
const userColumns = `id, name, email, photo, role, password_hash, password_changed_at, active,
	password_reset_token, password_reset_expires, created_at`

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	var role string
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Photo,
		&role,
		&u.PasswordHash,
		&u.PasswordChangedAt,
		&u.Active,
		&u.PasswordResetToken,
		&u.PasswordResetExpires,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if u.Role, err = models.ParseRole(role); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	logger.WithCtx(ctx).Info("Создание пользователя (repo)", zap.String("email", user.Email))
	query := `
	INSERT INTO users (id, name, email, photo, role, password_hash, password_changed_at, active)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING created_at`
	err := r.db.QueryRow(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.Photo,
		string(user.Role),
		user.PasswordHash,
		user.PasswordChangedAt,
		user.Active,
	).Scan(&user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		logger.WithCtx(ctx).Error("Ошибка создания пользователя (repo)", zap.Error(err))
		return err
	}
	return nil
}

// IsEmailTaken учитывает и деактивированные аккаунты: email уникален по всей таблице.
func (r *UserRepository) IsEmailTaken(ctx context.Context, email string) (bool, error) {
	logger.WithCtx(ctx).Debug("Проверка email на уникальность (repo)")
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE lower(email) = lower($1))`
	var exists bool
	err := r.db.QueryRow(ctx, query, email).Scan(&exists)
	if err != nil {
		logger.WithCtx(ctx).Error("Ошибка проверки email (repo)", zap.Error(err))
	}
	return exists, err
}

// GetUserByID — только активные аккаунты. Невалидный id считается ненайденным.
func (r *UserRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	logger.WithCtx(ctx).Debug("Получение пользователя по ID (repo)", zap.String("user_id", id))
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND active = TRUE`

	u, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		logger.WithCtx(ctx).Error("Ошибка получения пользователя по ID (repo)", zap.String("user_id", id), zap.Error(err))
	}
	return u, err
}

// GetUserByEmail — только активные аккаунты.
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	logger.WithCtx(ctx).Debug("Получение пользователя по email (repo)")
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1) AND active = TRUE`

	u, err := scanUser(r.db.QueryRow(ctx, query, email))
	if err != nil && !errors.Is(err, ErrNotFound) {
		logger.WithCtx(ctx).Error("Ошибка получения пользователя по email (repo)", zap.Error(err))
	}
	return u, err
}

// SaveCredentials перезаписывает всё изменяемое auth-состояние целиком
// (хеш, password_changed_at, поля сброса). Параллельные записи: последняя побеждает.
func (r *UserRepository) SaveCredentials(ctx context.Context, u *models.User) error {
	logger.WithCtx(ctx).Debug("Сохранение учётных данных (repo)", zap.String("user_id", u.ID))
	query := `
	UPDATE users
	SET password_hash = $2,
	    password_changed_at = $3,
	    password_reset_token = $4,
	    password_reset_expires = $5
	WHERE id = $1 AND active = TRUE`
	tag, err := r.db.Exec(ctx, query,
		u.ID,
		u.PasswordHash,
		u.PasswordChangedAt,
		u.PasswordResetToken,
		u.PasswordResetExpires,
	)
	if err != nil {
		logger.WithCtx(ctx).Error("Ошибка сохранения учётных данных (repo)", zap.String("user_id", u.ID), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) UpdateUserFields(ctx context.Context, id string, input *models.UpdateUserRequest) (*models.User, error) {
	logger.WithCtx(ctx).Info("Обновление пользователя (repo)", zap.String("user_id", id))
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	query := `UPDATE users SET`
	var args []interface{}
	argNum := 1

	if input.Name != nil {
		query += fmt.Sprintf(" name = $%d,", argNum)
		args = append(args, *input.Name)
		argNum++
	}
	if input.Email != nil {
		query += fmt.Sprintf(" email = $%d,", argNum)
		args = append(args, *input.Email)
		argNum++
	}
	if input.Role != nil {
		query += fmt.Sprintf(" role = $%d,", argNum)
		args = append(args, string(*input.Role))
		argNum++
	}

	if len(args) == 0 {
		logger.WithCtx(ctx).Warn("Нет полей для обновления пользователя (repo)", zap.String("user_id", id))
		return r.GetUserByID(ctx, id)
	}

	query = strings.TrimSuffix(query, ",") +
		fmt.Sprintf(" WHERE id = $%d AND active = TRUE RETURNING ", argNum) + userColumns
	args = append(args, id)

	u, err := scanUser(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		if !errors.Is(err, ErrNotFound) {
			logger.WithCtx(ctx).Error("Ошибка обновления пользователя (repo)", zap.Error(err), zap.String("user_id", id))
		}
		return nil, err
	}
	return u, nil
}

// Deactivate — мягкое удаление: после него аккаунт не находится обычными запросами.
func (r *UserRepository) Deactivate(ctx context.Context, id string) error {
	logger.WithCtx(ctx).Info("Деактивация пользователя (repo)", zap.String("user_id", id))
	tag, err := r.db.Exec(ctx, `UPDATE users SET active = FALSE WHERE id = $1 AND active = TRUE`, id)
	if err != nil {
		logger.WithCtx(ctx).Error("Ошибка деактивации пользователя (repo)", zap.Error(err), zap.String("user_id", id))
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) GetAllUsersPaginated(ctx context.Context, limit, offset int) ([]*models.User, int, error) {
	logger.WithCtx(ctx).Info("Получение пользователей (repo)", zap.Int("limit", limit), zap.Int("offset", offset))

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE active = TRUE`).Scan(&total); err != nil {
		logger.WithCtx(ctx).Error("Ошибка подсчёта пользователей (repo)", zap.Error(err))
		return nil, 0, err
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE active = TRUE ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		logger.WithCtx(ctx).Error("Ошибка получения пользователей (repo)", zap.Error(err))
		return nil, 0, err
	}
	defer rows.Close()

	users := make([]*models.User, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			logger.WithCtx(ctx).Error("Ошибка сканирования пользователя (repo)", zap.Error(err))
			return nil, 0, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// DeleteUserByID — физическое удаление (админка).
func (r *UserRepository) DeleteUserByID(ctx context.Context, id string) error {
	logger.WithCtx(ctx).Info("Удаление пользователя (repo)", zap.String("user_id", id))
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		logger.WithCtx(ctx).Error("Ошибка удаления пользователя (repo)", zap.Error(err), zap.String("user_id", id))
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
