package helpers

import (
	"natours/internal/apperr"
	"natours/internal/logger"
	"net/http"

	"go.uber.org/zap"
)

const internalErrorMessage = "Что-то пошло не так. Попробуйте позже."

// WriteError отвечает клиенту по ошибке из сервиса.
// *apperr.AppError уходит как есть, остальное логируется и превращается в безликую 500.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.WithCtx(r.Context()).With(zap.String("method", r.Method), zap.String("path", r.URL.Path))

	if appErr, ok := apperr.As(err); ok {
		if appErr.Status >= http.StatusInternalServerError {
			log.Error("Ошибка запроса", zap.String("code", appErr.Code), zap.Error(err))
		} else {
			log.Info("Отказ в запросе", zap.String("code", appErr.Code), zap.Int("status", appErr.Status))
		}
		Error(w, appErr.Status, appErr.Message)
		return
	}

	log.Error("Внутренняя ошибка", zap.Error(err))
	Error(w, http.StatusInternalServerError, internalErrorMessage)
}
