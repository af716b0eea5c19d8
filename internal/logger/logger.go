package logger

import (
	"context"
	"natours/internal/config"
	"natours/internal/reqctx"
	"os"
	"path/filepath"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// До InitLogger пакеты пишут в no-op логгер (удобно в тестах).
var Log = zap.NewNop()

// LogDir — куда пишутся JSON-логи (их же читает админский просмотр логов).
const LogDir = "logs"

func InitLogger(cfg *config.Config) {
	logDir := LogDir
	if err := os.MkdirAll(logDir, os.ModePerm); err != nil {
		panic("не удалось создать папку для логов: " + err.Error())
	}

	logLevel := parseLevel(cfg.LogLevel)

	if cfg.Log == "dev" {
		devCfg := zap.NewDevelopmentConfig()
		devCfg.Level = zap.NewAtomicLevelAt(logLevel)
		logger, _ := devCfg.Build()
		Log = logger
		return
	}

	encoderCfg := zapcore.EncoderConfig{
		TimeKey:      "time",
		LevelKey:     "level",
		MessageKey:   "message",
		CallerKey:    "caller",
		EncodeTime:   zapcore.ISO8601TimeEncoder,
		EncodeLevel:  zapcore.CapitalLevelEncoder,
		EncodeCaller: zapcore.ShortCallerEncoder,
	}

	writer := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(logDir, "app.log"),
		MaxSize:    10,
		MaxBackups: 5,
		MaxAge:     7,
		Compress:   true,
	})

	console := zapcore.Lock(os.Stdout)

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), writer, logLevel),
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), console, logLevel),
	)

	Log = zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
}

// WithCtx — логгер с полями запроса (request_id, user_id, role), если они есть в контексте.
func WithCtx(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return Log
	}
	var fields []zap.Field
	if rid, ok := reqctx.GetRequestID(ctx); ok {
		fields = append(fields, zap.String("request_id", rid))
	}
	if uid, ok := reqctx.GetUserID(ctx); ok {
		fields = append(fields, zap.String("user_id", uid))
	}
	if role, ok := reqctx.GetRole(ctx); ok {
		fields = append(fields, zap.String("role", role))
	}
	if len(fields) == 0 {
		return Log
	}
	return Log.With(fields...)
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
