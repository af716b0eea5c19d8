package middleware

import (
	"natours/internal/logger"
	"natours/internal/utils/helpers"
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"
)

func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.WithCtx(r.Context()).Error("panic recovered",
					zap.Any("panic", rec),
					zap.ByteString("stack", debug.Stack()),
					zap.String("path", r.URL.Path),
					zap.String("method", r.Method),
				)
				helpers.Error(w, http.StatusInternalServerError, "Что-то пошло не так. Попробуйте позже.")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
