package routes

import (
	"natours/internal/handlers"
	"natours/internal/middleware"
	"natours/internal/models"
	"net/http"

	"github.com/gorilla/mux"
)

func InitRoutes(
	router *mux.Router,
	auth *middleware.Authenticator,
	authHandler *handlers.AuthHandler,
	passwordHandler *handlers.PasswordHandler,
	logsHandler *handlers.AdminLogsHandler,
) {
	router.Use(middleware.RequestID, middleware.Recoverer, middleware.Logging)

	adminOnly := middleware.RestrictTo(models.RoleAdmin)
	admin := func(h middleware.AuthedHandler) http.Handler {
		return auth.Protect(adminOnly(h))
	}

	api := router.PathPrefix("/api/v1").Subrouter()

	// --- Админка: список пользователей ---
	api.Handle("/users", admin(authHandler.GetUsers)).Methods(http.MethodGet)

	users := api.PathPrefix("/users").Subrouter()

	// --- Публичные маршруты ---
	users.HandleFunc("/signup", authHandler.Signup).Methods(http.MethodPost)
	users.HandleFunc("/login", authHandler.Login).Methods(http.MethodPost)
	users.HandleFunc("/logout", authHandler.Logout).Methods(http.MethodGet)
	users.HandleFunc("/forgotPassword", passwordHandler.ForgotPassword).Methods(http.MethodPost)
	users.HandleFunc("/resetPassword/{token}", passwordHandler.ResetPassword).Methods(http.MethodPatch)

	// Анонимный запрос здесь не ошибка.
	users.Handle("/session", auth.IsLoggedIn(http.HandlerFunc(authHandler.Session))).Methods(http.MethodGet)

	// --- Защищённые JWT ---
	users.Handle("/updatePassword", auth.Protect(passwordHandler.UpdatePassword)).Methods(http.MethodPatch)
	users.Handle("/me", auth.Protect(authHandler.GetMe)).Methods(http.MethodGet)
	users.Handle("/updateMe", auth.Protect(authHandler.UpdateMe)).Methods(http.MethodPatch)
	users.Handle("/deleteMe", auth.Protect(authHandler.DeleteMe)).Methods(http.MethodDelete)

	// --- Только admin ---
	users.Handle("/", admin(authHandler.GetUsers)).Methods(http.MethodGet)
	users.Handle("/{id}", admin(authHandler.GetUserByID)).Methods(http.MethodGet)
	users.Handle("/{id}", admin(authHandler.UpdateUser)).Methods(http.MethodPatch)
	users.Handle("/{id}", admin(authHandler.DeleteUser)).Methods(http.MethodDelete)

	logs := api.PathPrefix("/admin/logs").Subrouter()
	logs.Handle("", admin(logsHandler.GetLogs)).Methods(http.MethodGet)
	logs.Handle("/days", admin(logsHandler.ListDays)).Methods(http.MethodGet)
}
