package handlers

import (
	"natours/internal/config"
	"natours/internal/logger"
	"natours/internal/models"
	"natours/internal/services"
	"natours/internal/utils"
	"natours/internal/utils/helpers"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const resetPasswordPath = "/api/v1/users/resetPassword/"

type PasswordHandler struct {
	svc           *services.PasswordService
	authService   *services.AuthService
	cookieTTL     time.Duration
	secureCookies bool
	siteURL       string
}

func NewPasswordHandler(svc *services.PasswordService, authService *services.AuthService, cfg *config.Config) *PasswordHandler {
	return &PasswordHandler{
		svc:           svc,
		authService:   authService,
		cookieTTL:     cfg.CookieTTL(),
		secureCookies: cfg.SecureCookies(),
		siteURL:       cfg.BaseURL(),
	}
}

type forgotReq struct {
	Email string `json:"email"`
}

// ForgotPassword godoc
// @Summary Запрос сброса пароля
// @Description Отправляет письмо со ссылкой для сброса пароля. Ссылка одноразовая и живёт 10 минут.
// @Tags password
// @Accept json
// @Produce json
// @Param input body forgotReq true "Email пользователя"
// @Success 200 {object} map[string]string
// @Failure 404 {string} string "Нет активного пользователя с таким email"
// @Failure 500 {string} string "Не удалось отправить письмо"
// @Router /api/v1/users/forgotPassword [post]
func (h *PasswordHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotReq
	if !decodeJSON(w, r, &req) {
		return
	}

	// Только адрес из конфига: Host запроса задаёт клиент.
	base := h.siteURL
	linkFor := func(raw string) string {
		return base + resetPasswordPath + url.PathEscape(raw)
	}

	if err := h.svc.RequestReset(r.Context(), req.Email, linkFor); err != nil {
		helpers.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info("Запрошено восстановление пароля", zap.String("email_masked", utils.MaskEmail(req.Email)))
	helpers.JSON(w, http.StatusOK, map[string]string{"message": "Ссылка для сброса пароля отправлена на почту."})
}

// ResetPassword godoc
// @Summary Сброс пароля по токену из письма
// @Description Ставит новый пароль и сразу выполняет вход.
// @Tags password
// @Accept json
// @Produce json
// @Param token path string true "Токен из письма"
// @Param input body services.ResetPasswordInput true "Новый пароль"
// @Success 200 {object} authResponse
// @Failure 400 {string} string "Токен недействителен или истёк"
// @Router /api/v1/users/resetPassword/{token} [patch]
func (h *PasswordHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req services.ResetPasswordInput
	if !decodeJSON(w, r, &req) {
		return
	}

	token, user, err := h.svc.ResetPassword(r.Context(), mux.Vars(r)["token"], req)
	if err != nil {
		helpers.WriteError(w, r, err)
		return
	}
	sendToken(w, r, http.StatusOK, token, user, h.cookieTTL, h.secureCookies)
}

// UpdatePassword godoc
// @Summary Смена пароля по текущему паролю
// @Description Все ранее выданные токены перестают работать, в ответе новый.
// @Tags password
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param input body services.ChangePasswordInput true "Текущий и новый пароль"
// @Success 200 {object} authResponse
// @Failure 400 {string} string "Ошибка валидации"
// @Failure 401 {string} string "Текущий пароль указан неверно"
// @Router /api/v1/users/updatePassword [patch]
func (h *PasswordHandler) UpdatePassword(w http.ResponseWriter, r *http.Request, id models.Identity) {
	var req services.ChangePasswordInput
	if !decodeJSON(w, r, &req) {
		return
	}

	token, user, err := h.authService.ChangePassword(r.Context(), id.UserID, req)
	if err != nil {
		helpers.WriteError(w, r, err)
		return
	}
	sendToken(w, r, http.StatusOK, token, user, h.cookieTTL, h.secureCookies)
}
