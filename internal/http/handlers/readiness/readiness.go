// Package readiness реализует расширенные проверки готовности сервиса:
// наличие обязательных настроек и доступность базы данных.
package readiness

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subscription-sync/internal/config"
	"github.com/magabrotheeeer/subscription-sync/internal/http/response"
	"github.com/magabrotheeeer/subscription-sync/internal/lib/sl"
)

const pingTimeout = 2 * time.Second

// Pinger проверяет соединение с базой данных.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler обслуживает GET /api/health и GET /api/health/setup-status.
type Handler struct {
	log *slog.Logger
	cfg *config.Config
	db  Pinger
}

// New создает новый Handler.
func New(log *slog.Logger, cfg *config.Config, db Pinger) *Handler {
	return &Handler{
		log: log,
		cfg: cfg,
		db:  db,
	}
}

type report struct {
	env         map[string]bool
	envOK       bool
	dbConnected bool
}

func (h *Handler) check(ctx context.Context, log *slog.Logger) report {
	rep := report{
		env: map[string]bool{
			"BEAG_API_KEY": h.cfg.APIKey != "",
			"DATABASE_URL": h.cfg.StorageConnectionString != "",
		},
	}
	rep.envOK = true
	for _, ok := range rep.env {
		rep.envOK = rep.envOK && ok
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		log.Warn("database is not reachable", sl.Err(err))
	} else {
		rep.dbConnected = true
	}
	return rep
}

// Health отвечает 200, если сервис настроен и база доступна, иначе 503.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.readiness.Health"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	rep := h.check(r.Context(), log)
	healthy := rep.envOK && rep.dbConnected

	report := map[string]any{
		"status":   "healthy",
		"database": map[string]bool{"connected": rep.dbConnected},
		"environment": map[string]any{
			"configured": rep.envOK,
			"variables":  rep.env,
		},
		"setup_complete": healthy,
	}
	if !healthy {
		report["status"] = "unhealthy"
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, response.ErrorWithData("service is not ready", report))
		return
	}
	render.JSON(w, r, response.StatusOKWithData(report))
}

// SetupStatus отдаёт прогресс настройки в процентах для панели администратора.
func (h *Handler) SetupStatus(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.readiness.SetupStatus"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	rep := h.check(r.Context(), log)

	configured := 0
	for _, ok := range rep.env {
		if ok {
			configured++
		}
	}
	backendProgress := float64(configured) / float64(len(rep.env)) * 100
	databaseProgress := 0.0
	if rep.dbConnected {
		databaseProgress = 100
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"backend": map[string]any{
			"configured":            rep.envOK,
			"progress":              backendProgress,
			"environment_variables": rep.env,
		},
		"database": map[string]any{
			"connected": rep.dbConnected,
			"progress":  databaseProgress,
		},
		"overall_progress": (backendProgress + databaseProgress) / 2,
	}))
}
