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
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AuthService struct {
	repo           UserRepo
	tokens         *utils.TokenService
	minPasswordLen int
	now            func() time.Time
}

func NewAuthService(repo UserRepo, tokens *utils.TokenService, minPasswordLen int) *AuthService {
	return &AuthService{repo: repo, tokens: tokens, minPasswordLen: minPasswordLen, now: time.Now}
}

type UserRepo interface {
	IsEmailTaken(ctx context.Context, email string) (bool, error)
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	SaveCredentials(ctx context.Context, u *models.User) error
	UpdateUserFields(ctx context.Context, id string, input *models.UpdateUserRequest) (*models.User, error)
	Deactivate(ctx context.Context, id string) error
	GetAllUsersPaginated(ctx context.Context, limit, offset int) ([]*models.User, int, error)
	DeleteUserByID(ctx context.Context, id string) error
}

func (s *AuthService) Signup(ctx context.Context, in SignupInput) (string, *models.User, error) {
	log := logger.WithCtx(ctx)
	in.Email = utils.NormalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	log.Info("Регистрация пользователя (service)", zap.String("email", utils.MaskEmail(in.Email)))

	if err := in.Validate(s.minPasswordLen); err != nil {
		return "", nil, err
	}

	taken, err := s.repo.IsEmailTaken(ctx, in.Email)
	if err != nil {
		return "", nil, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return "", nil, apperr.ErrEmailTaken
	}

	// Роль при регистрации всегда user: повышение только через админку.
	user := &models.User{
		ID:     uuid.NewString(),
		Name:   in.Name,
		Email:  in.Email,
		Photo:  "default.jpg",
		Role:   models.RoleUser,
		Active: true,
	}
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return "", nil, fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = hash

	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return "", nil, apperr.ErrEmailTaken
		}
		return "", nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.tokens.Sign(user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}

	log.Info("Пользователь зарегистрирован (service)", zap.String("user_id", user.ID))
	return token, user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	log := logger.WithCtx(ctx)
	email = utils.NormalizeEmail(email)
	if email == "" || password == "" {
		return "", nil, apperr.Validation("Укажите email и пароль")
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Warn("Пользователь не найден (service)", zap.String("email", utils.MaskEmail(email)))
			return "", nil, apperr.ErrIncorrectCredentials
		}
		return "", nil, fmt.Errorf("get user by email: %w", err)
	}

	if !utils.CheckPasswordHash(password, user.PasswordHash) {
		log.Warn("Неверный пароль (service)", zap.String("user_id", user.ID))
		return "", nil, apperr.ErrIncorrectCredentials
	}

	token, err := s.tokens.Sign(user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}

	log.Info("Вход выполнен (service)", zap.String("user_id", user.ID))
	return token, user, nil
}

// Authenticate — проверка сессионного токена: подпись и срок, затем свежая запись из БД
// (существует, активна, пароль не менялся после выдачи токена).
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, apperr.ErrUnauthenticated
	}

	subject, issuedAt, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.GetUserByID(ctx, subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.ErrAccountNotFound
		}
		return nil, fmt.Errorf("load user %s: %w", subject, err)
	}

	if user.ChangedPasswordAfter(issuedAt) {
		return nil, apperr.ErrPasswordChangedSinceIssue
	}

	return user, nil
}

// ChangePassword — смена пароля залогиненным пользователем по текущему паролю.
// Возвращает новый токен: старые после смены пароля недействительны.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, in ChangePasswordInput) (string, *models.User, error) {
	log := logger.WithCtx(ctx)
	log.Info("Смена пароля (service)", zap.String("user_id", userID))

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, apperr.ErrAccountNotFound
		}
		return "", nil, fmt.Errorf("load user: %w", err)
	}

	if !utils.CheckPasswordHash(in.PasswordCurrent, user.PasswordHash) {
		log.Warn("Текущий пароль не совпадает (service)", zap.String("user_id", userID))
		return "", nil, apperr.ErrCurrentPasswordWrong
	}

	if err := in.Validate(s.minPasswordLen); err != nil {
		return "", nil, err
	}

	if err := applyNewPassword(user, in.Password, s.now()); err != nil {
		return "", nil, err
	}
	if err := s.repo.SaveCredentials(ctx, user); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, apperr.ErrAccountNotFound
		}
		return "", nil, fmt.Errorf("save credentials: %w", err)
	}

	token, err := s.tokens.Sign(user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}

	log.Info("Пароль изменён (service)", zap.String("user_id", userID))
	return token, user, nil
}

// UpdateMe — только имя и email. Пароль меняется через ChangePassword.
func (s *AuthService) UpdateMe(ctx context.Context, userID string, in *models.UpdateMeRequest) (*models.User, error) {
	if in.Password != nil || in.PasswordConfirm != nil {
		return nil, apperr.Validation("Этот маршрут не для смены пароля. Используйте /updatePassword.")
	}

	upd := &models.UpdateUserRequest{Name: in.Name}
	if in.Email != nil {
		email := utils.NormalizeEmail(*in.Email)
		upd.Email = &email
	}
	return s.updateUser(ctx, userID, upd)
}

func (s *AuthService) Deactivate(ctx context.Context, userID string) error {
	logger.WithCtx(ctx).Info("Деактивация аккаунта (service)", zap.String("user_id", userID))
	if err := s.repo.Deactivate(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.ErrAccountNotFound
		}
		return fmt.Errorf("deactivate: %w", err)
	}
	return nil
}

func (s *AuthService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (s *AuthService) GetUsersPaginated(ctx context.Context, limit, offset int) ([]*models.User, int, error) {
	return s.repo.GetAllUsersPaginated(ctx, limit, offset)
}

// UpdateUser — админское обновление, роль только из закрытого списка.
func (s *AuthService) UpdateUser(ctx context.Context, id string, in *models.UpdateUserRequest) (*models.User, error) {
	if in.Role != nil && !in.Role.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("Недопустимая роль %q", string(*in.Role)))
	}
	if in.Email != nil {
		email := utils.NormalizeEmail(*in.Email)
		in.Email = &email
	}
	return s.updateUser(ctx, id, in)
}

func (s *AuthService) updateUser(ctx context.Context, id string, in *models.UpdateUserRequest) (*models.User, error) {
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, apperr.Validation("Имя не может быть пустым")
	}
	if in.Email != nil {
		if err := validateEmail(*in.Email); err != nil {
			return nil, err
		}
	}

	user, err := s.repo.UpdateUserFields(ctx, id, in)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperr.ErrNotFound
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, apperr.ErrEmailTaken
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	logger.WithCtx(ctx).Info("Пользователь обновлён (service)", zap.String("user_id", id))
	return user, nil
}

func (s *AuthService) DeleteUser(ctx context.Context, id string) error {
	logger.WithCtx(ctx).Info("Удаление пользователя (service)", zap.String("user_id", id))
	if err := s.repo.DeleteUserByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.ErrNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
