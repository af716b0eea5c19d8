package middleware

import (
	"natours/internal/apperr"
	"natours/internal/logger"
	"natours/internal/models"
	"natours/internal/utils/helpers"
	"net/http"

	"go.uber.org/zap"
)

// RestrictTo пропускает только перечисленные роли. Список фиксируется при сборке маршрутов.
func RestrictTo(allowedRoles ...models.Role) func(AuthedHandler) AuthedHandler {
	roleSet := make(map[models.Role]struct{}, len(allowedRoles))
	for _, role := range allowedRoles {
		roleSet[role] = struct{}{}
	}

	return func(next AuthedHandler) AuthedHandler {
		return func(w http.ResponseWriter, r *http.Request, id models.Identity) {
			if _, found := roleSet[id.Role]; !found {
				logger.WithCtx(r.Context()).Warn("RestrictTo: доступ запрещён",
					zap.String("path", r.URL.Path), zap.String("role", string(id.Role)))
				helpers.WriteError(w, r, apperr.ErrForbidden)
				return
			}
			next(w, r, id)
		}
	}
}
