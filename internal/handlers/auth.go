package handlers

import (
	"context"
	"encoding/json"
	"natours/internal/apperr"
	"natours/internal/config"
	"natours/internal/logger"
	"natours/internal/middleware"
	"natours/internal/models"
	"natours/internal/services"
	"natours/internal/utils/helpers"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type WelcomeMailer interface {
	SendWelcome(ctx context.Context, u *models.User, url string) error
}

type AuthHandler struct {
	authService   *services.AuthService
	mailer        WelcomeMailer
	cookieTTL     time.Duration
	secureCookies bool
	siteURL       string
}

func NewAuthHandler(authService *services.AuthService, mailer WelcomeMailer, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		mailer:        mailer,
		cookieTTL:     cfg.CookieTTL(),
		secureCookies: cfg.SecureCookies(),
		siteURL:       cfg.BaseURL(),
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type sessionResponse struct {
	LoggedIn bool         `json:"logged_in"`
	User     *models.User `json:"user,omitempty"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.WithCtx(r.Context()).Warn("Невалидный JSON", zap.String("path", r.URL.Path), zap.Error(err))
		helpers.Error(w, http.StatusBadRequest, "Невалидный JSON")
		return false
	}
	return true
}

func isSecureRequest(r *http.Request) bool {
	return r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
}

// sendToken кладёт токен в httpOnly cookie и отдаёт его вместе с пользователем.
func (h *AuthHandler) sendToken(w http.ResponseWriter, r *http.Request, status int, token string, user *models.User) {
	sendToken(w, r, status, token, user, h.cookieTTL, h.secureCookies)
}

func sendToken(w http.ResponseWriter, r *http.Request, status int, token string, user *models.User, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		Secure:   secure || isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	})
	helpers.JSON(w, status, authResponse{Token: token, User: user})
}

// Signup godoc
// @Summary Регистрация
// @Tags auth
// @Accept json
// @Produce json
// @Param input body services.SignupInput true "Данные регистрации"
// @Success 201 {object} authResponse
// @Failure 400 {string} string "Ошибка валидации"
// @Failure 409 {string} string "Email уже занят"
// @Router /api/v1/users/signup [post]
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req services.SignupInput
	if !decodeJSON(w, r, &req) {
		return
	}

	token, user, err := h.authService.Signup(r.Context(), req)
	if err != nil {
		helpers.WriteError(w, r, err)
		return
	}

	if err := h.mailer.SendWelcome(r.Context(), user, h.siteURL+"/me"); err != nil {
		logger.WithCtx(r.Context()).Warn("Не удалось поставить приветственное письмо", zap.Error(err))
	}

	h.sendToken(w, r, http.StatusCreated, token, user)
}

// Login godoc
// @Summary Вход по email и паролю
// @Tags auth
// @Accept json
// @Produce json
// @Param input body loginRequest true "Данные для входа"
// @Success 200 {object} authResponse
// @Failure 401 {string} string "Неверный email или пароль"
// @Router /api/v1/users/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	token, user, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		helpers.WriteError(w, r, err)
		return
	}
	h.sendToken(w, r, http.StatusOK, token, user)
}

// Logout godoc
// @Summary Выход: cookie перезаписывается уже истёкшим значением
// @Tags auth
// @Success 200 {string} string "ok"
// @Router /api/v1/users/logout [get]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.CookieName,
		Value:    "loggedout",
		Path:     "/",
		Expires:  time.Now().Add(-10 * time.Second),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies || isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	})
	helpers.JSON(w, http.StatusOK, "ok")
}

// Session godoc
// @Summary Кто я (без ошибки для анонима)
// @Tags auth
// @Produce json
// @Success 200 {object} sessionResponse
// @Router /api/v1/users/session [get]
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		helpers.JSON(w, http.StatusOK, sessionResponse{LoggedIn: false})
		return
	}
	user, err := h.authService.GetUserByID(r.Context(), id.UserID)
	if err != nil {
		logger.WithCtx(r.Context()).Debug("Session: пользователь не загружен", zap.Error(err))
		helpers.JSON(w, http.StatusOK, sessionResponse{LoggedIn: false})
		return
	}
	helpers.JSON(w, http.StatusOK, sessionResponse{LoggedIn: true, User: user})
}

// GetMe godoc
// @Summary Текущий пользователь
// @Tags users
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {string} string "Не авторизован"
// @Router /api/v1/users/me [get]
func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request, id models.Identity) {
	user, err := h.authService.GetUserByID(r.Context(), id.UserID)
	if err != nil {
		helpers.WriteError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, user)
}

// UpdateMe godoc
// @Summary Обновить своё имя или email
// @Tags users
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param input body models.UpdateMeRequest true "Что обновить"
// @Success 200 {object} models.User
// @Failure 400 {string} string "Ошибка валидации"
// @Router /api/v1/users/updateMe [patch]
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request, id models.Identity) {
	var req models.UpdateMeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.authService.UpdateMe(r.Context(), id.UserID, &req)
	if err != nil {
		helpers.WriteError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, user)
}

// DeleteMe godoc
// @Summary Деактивировать свой аккаунт
// @Tags users
// @Security ApiKeyAuth
// @Success 204
// @Router /api/v1/users/deleteMe [delete]
func (h *AuthHandler) DeleteMe(w http.ResponseWriter, r *http.Request, id models.Identity) {
	if err := h.authService.Deactivate(r.Context(), id.UserID); err != nil {
		helpers.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetUsers godoc
// @Summary Список активных пользователей
// @Tags admin-users
// @Security ApiKeyAuth
// @Produce json
// @Param page query int false "Номер страницы (начиная с 1)"
// @Param page_size query int false "Размер страницы"
// @Success 200 {array} models.User
// @Failure 403 {string} string "Доступ запрещён"
// @Router /api/v1/users [get]
func (h *AuthHandler) GetUsers(w http.ResponseWriter, r *http.Request, _ models.Identity) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}
	offset := (page - 1) * pageSize

	users, total, err := h.authService.GetUsersPaginated(r.Context(), pageSize, offset)
	if err != nil {
		helpers.WriteError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, map[string]interface{}{
		"users":     users,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetUserByID godoc
// @Summary Пользователь по ID
// @Tags admin-users
// @Security ApiKeyAuth
// @Produce json
// @Param id path string true "ID пользователя"
// @Success 200 {object} models.User
// @Failure 404 {string} string "Пользователь не найден"
// @Router /api/v1/users/{id} [get]
func (h *AuthHandler) GetUserByID(w http.ResponseWriter, r *http.Request, _ models.Identity) {
	user, err := h.authService.GetUserByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		helpers.WriteError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, user)
}

// UpdateUser godoc
// @Summary Частичное обновление пользователя (без пароля)
// @Tags admin-users
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param id path string true "ID пользователя"
// @Param input body models.UpdateUserRequest true "Что обновить"
// @Success 200 {object} models.User
// @Failure 400 {string} string "Ошибка валидации"
// @Failure 404 {string} string "Пользователь не найден"
// @Router /api/v1/users/{id} [patch]
func (h *AuthHandler) UpdateUser(w http.ResponseWriter, r *http.Request, admin models.Identity) {
	var input models.UpdateUserRequest
	if !decodeJSON(w, r, &input) {
		return
	}

	id := mux.Vars(r)["id"]
	user, err := h.authService.UpdateUser(r.Context(), id, &input)
	if err != nil {
		helpers.WriteError(w, r, err)
		return
	}
	logger.WithCtx(r.Context()).Info("Пользователь обновлён админом", zap.String("target_id", id), zap.String("admin_id", admin.UserID))
	helpers.JSON(w, http.StatusOK, user)
}

// DeleteUser godoc
// @Summary Удалить пользователя
// @Tags admin-users
// @Security ApiKeyAuth
// @Param id path string true "ID пользователя"
// @Success 204
// @Failure 404 {string} string "Пользователь не найден"
// @Router /api/v1/users/{id} [delete]
func (h *AuthHandler) DeleteUser(w http.ResponseWriter, r *http.Request, admin models.Identity) {
	id := mux.Vars(r)["id"]
	if id == admin.UserID {
		helpers.WriteError(w, r, apperr.Validation("Нельзя удалить самого себя. Используйте /deleteMe."))
		return
	}
	if err := h.authService.DeleteUser(r.Context(), id); err != nil {
		helpers.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
