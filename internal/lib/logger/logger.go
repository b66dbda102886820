// Package logger создаёт slog-логгер в зависимости от окружения.
package logger

import (
	"io"
	"log/slog"
	"os"
)

const (
	envLocal       = "local"
	envDevelopment = "development"
	envProduction  = "production"
)

// New возвращает логгер, пишущий в stdout.
func New(env string) *slog.Logger {
	return NewWithWriter(env, os.Stdout)
}

// NewWithWriter возвращает логгер для окружения env, пишущий в w.
// Для local и development — текстовый вывод с уровнем debug,
// для production — JSON с уровнем info.
func NewWithWriter(env string, w io.Writer) *slog.Logger {
	switch env {
	case envProduction:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	case envLocal, envDevelopment:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
}

// Discard возвращает логгер, который ничего не пишет. Используется в тестах.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}
