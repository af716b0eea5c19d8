package middleware

import (
	"context"
	"natours/internal/logger"
	"natours/internal/models"
	"natours/internal/utils/helpers"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// CookieName — cookie с тем же токеном, что и в заголовке Authorization.
const CookieName = "jwt"

// AuthedHandler получает личность явным аргументом: без Protect его не вызвать.
type AuthedHandler func(w http.ResponseWriter, r *http.Request, id models.Identity)

type SessionVerifier interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

type Authenticator struct {
	verifier SessionVerifier
}

func NewAuthenticator(verifier SessionVerifier) *Authenticator {
	return &Authenticator{verifier: verifier}
}

// ExtractToken: сначала "Authorization: Bearer", потом cookie.
func ExtractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		if tok := strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")); tok != "" {
			return tok
		}
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

// Protect — обязательная аутентификация. Любой отказ отдаётся клиенту классифицированной ошибкой.
func (a *Authenticator) Protect(next AuthedHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := a.verifier.Authenticate(r.Context(), ExtractToken(r))
		if err != nil {
			logger.WithCtx(r.Context()).Warn("Protect: запрос отклонён", zap.String("path", r.URL.Path), zap.Error(err))
			helpers.WriteError(w, r, err)
			return
		}

		id := models.Identity{UserID: user.ID, Role: user.Role}
		ctx := WithIdentity(r.Context(), id)
		logger.WithCtx(ctx).Debug("Protect: токен валиден")

		next(w, r.WithContext(ctx), id)
	})
}

// IsLoggedIn никогда не отказывает: при любой ошибке запрос идёт дальше анонимным.
func (a *Authenticator) IsLoggedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ExtractToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, err := a.verifier.Authenticate(r.Context(), token)
		if err != nil {
			logger.WithCtx(r.Context()).Debug("IsLoggedIn: аноним", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}

		ctx := WithIdentity(r.Context(), models.Identity{UserID: user.ID, Role: user.Role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
