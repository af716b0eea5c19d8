package middleware

import (
	"context"
	"natours/internal/models"
	"natours/internal/reqctx"
)

type ctxKey string

const contextIdentity ctxKey = "identity"

// WithIdentity кладёт проверенную личность в контекст и дублирует её в reqctx для логов.
func WithIdentity(ctx context.Context, id models.Identity) context.Context {
	if a, ok := reqctx.GetAccess(ctx); ok {
		a.UserID, a.Role = id.UserID, string(id.Role)
	}
	ctx = context.WithValue(ctx, contextIdentity, id)
	ctx = reqctx.WithUserID(ctx, id.UserID)
	return reqctx.WithRole(ctx, string(id.Role))
}

// IdentityFrom — для необязательных путей после IsLoggedIn. Нет личности = аноним.
func IdentityFrom(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(contextIdentity).(models.Identity)
	return id, ok
}
