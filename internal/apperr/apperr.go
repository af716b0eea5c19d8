// Package apperr описывает ожидаемые (клиентские) ошибки сервиса.
// Всё, что не *AppError, считается внутренним сбоем и наружу не раскрывается.
package apperr

import (
	"errors"
	"net/http"
)

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string {
	return e.Message
}

// Is сравнивает по коду: Validation("...") совпадает с ErrValidationFailed.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func New(status int, code, message string) *AppError {
	return &AppError{Status: status, Code: code, Message: message}
}

var (
	ErrUnauthenticated           = New(http.StatusUnauthorized, "UNAUTHENTICATED", "Вы не авторизованы. Войдите, чтобы получить доступ.")
	ErrInvalidToken              = New(http.StatusUnauthorized, "INVALID_TOKEN", "Неверный токен. Войдите снова.")
	ErrTokenExpired              = New(http.StatusUnauthorized, "TOKEN_EXPIRED", "Срок действия токена истёк. Войдите снова.")
	ErrPasswordChangedSinceIssue = New(http.StatusUnauthorized, "PASSWORD_CHANGED", "Пароль был изменён. Войдите снова.")
	ErrAccountNotFound           = New(http.StatusUnauthorized, "ACCOUNT_NOT_FOUND", "Пользователь, которому принадлежит токен, больше не существует.")
	ErrForbidden                 = New(http.StatusForbidden, "FORBIDDEN", "У вас нет прав на это действие.")
	ErrTokenInvalidOrExpired     = New(http.StatusBadRequest, "RESET_TOKEN_INVALID", "Токен недействителен или истёк.")
	ErrDeliveryFailed            = New(http.StatusInternalServerError, "DELIVERY_FAILED", "Не удалось отправить письмо. Попробуйте позже.")
	ErrValidationFailed          = New(http.StatusBadRequest, "VALIDATION_FAILED", "Некорректные данные.")

	ErrIncorrectCredentials = New(http.StatusUnauthorized, "INCORRECT_CREDENTIALS", "Неверный email или пароль.")
	ErrCurrentPasswordWrong = New(http.StatusUnauthorized, "CURRENT_PASSWORD_WRONG", "Текущий пароль указан неверно.")
	ErrEmailTaken           = New(http.StatusConflict, "EMAIL_TAKEN", "Адрес электронной почты уже зарегистрирован.")
	ErrNotFound             = New(http.StatusNotFound, "NOT_FOUND", "Не найдено.")

	// Тот же код, что у ErrAccountNotFound: errors.Is совпадает, отличается только ответ клиенту.
	ErrNoAccountForEmail = New(http.StatusNotFound, "ACCOUNT_NOT_FOUND", "Нет активного пользователя с таким email.")
)

// Validation — ErrValidationFailed с конкретным сообщением для клиента.
func Validation(message string) *AppError {
	return New(ErrValidationFailed.Status, ErrValidationFailed.Code, message)
}

// As возвращает *AppError из цепочки ошибок.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
