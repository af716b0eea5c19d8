package app

import (
	"context"
	"natours/internal/config"
	"natours/internal/db"
	"natours/internal/handlers"
	"natours/internal/logger"
	"natours/internal/middleware"
	"natours/internal/repository"
	"natours/internal/routes"
	"natours/internal/services"
	"natours/internal/utils"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const emailWorkers = 3

func InitApp(ctx context.Context, cfg *config.Config) (*mux.Router, func(), error) {
	conn, err := db.NewPostgresConnection(cfg)
	if err != nil {
		return nil, nil, err
	}
	logger.Log.Info("Подключение к БД установлено", zap.String("dsn", cfg.GetDSNSafe()))

	if err := db.Migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, nil, err
	}

	// Репозитории
	userRepo := repository.NewUserRepository(conn)

	// Сервисы
	tokens := utils.NewTokenService(cfg.JWTSecret, cfg.TokenTTL())
	emailService, err := services.NewEmailService(cfg)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	authService := services.NewAuthService(userRepo, tokens, cfg.MinPasswordLen())
	passwordService := services.NewPasswordService(userRepo, emailService, tokens, cfg.ResetTTL(), cfg.MinPasswordLen())

	// Хендлеры
	authenticator := middleware.NewAuthenticator(authService)
	authHandler := handlers.NewAuthHandler(authService, emailService, cfg)
	passwordHandler := handlers.NewPasswordHandler(passwordService, authService, cfg)
	logsHandler := handlers.NewAdminLogsHandler(logger.LogDir)

	for i := 0; i < emailWorkers; i++ {
		services.StartEmailWorker(emailService)
	}

	// Маршруты
	router := mux.NewRouter()
	routes.InitRoutes(router, authenticator, authHandler, passwordHandler, logsHandler)

	return router, conn.Close, nil
}
