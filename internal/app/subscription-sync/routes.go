// Package subscriptionsync собирает HTTP API сервиса синхронизации подписок.
package subscriptionsync

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/subscription-sync/internal/config"
	"github.com/magabrotheeeer/subscription-sync/internal/http/handlers/health"
	"github.com/magabrotheeeer/subscription-sync/internal/http/handlers/readiness"
	"github.com/magabrotheeeer/subscription-sync/internal/http/handlers/root"
	"github.com/magabrotheeeer/subscription-sync/internal/http/handlers/subscriptions/cached"
	"github.com/magabrotheeeer/subscription-sync/internal/http/handlers/subscriptions/check"
	"github.com/magabrotheeeer/subscription-sync/internal/http/handlers/subscriptions/syncall"
	runlatest "github.com/magabrotheeeer/subscription-sync/internal/http/handlers/syncruns/latest"
	runlist "github.com/magabrotheeeer/subscription-sync/internal/http/handlers/syncruns/list"
	runread "github.com/magabrotheeeer/subscription-sync/internal/http/handlers/syncruns/read"
	"github.com/magabrotheeeer/subscription-sync/internal/http/handlers/users/byemail"
	"github.com/magabrotheeeer/subscription-sync/internal/http/handlers/users/create"
	userlist "github.com/magabrotheeeer/subscription-sync/internal/http/handlers/users/list"
	"github.com/magabrotheeeer/subscription-sync/internal/http/handlers/users/syncuser"
	"github.com/magabrotheeeer/subscription-sync/internal/http/middlewarectx"
)

// Services — зависимости обработчиков.
type Services struct {
	Users    UserService
	Remote   check.Service
	Syncer   syncall.Syncer
	SyncRuns SyncRunStore
	DB       readiness.Pinger
	Worker   health.WorkerStatus
}

// UserService объединяет операции над пользователями, нужные обработчикам.
type UserService interface {
	create.Service
	userlist.Service
	byemail.Service
	syncuser.Service
	cached.Service
}

// SyncRunStore объединяет операции чтения журнала прогонов.
type SyncRunStore interface {
	runlist.Service
	runlatest.Service
	runread.Service
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, cfg *config.Config, s Services) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins(),
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
	)

	// Ручные запуски синхронизации ходят во внешний сервис, поэтому ограничены общим лимитом.
	syncLimit := middlewarectx.RateLimitMiddleware(logger, rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst))
	syncAll := syncall.New(logger, s.Syncer)
	ready := readiness.New(logger, cfg, s.DB)

	r.Get("/", root.Handler)
	r.Get("/health", health.New(logger, cfg.Env, s.Worker).ServeHTTP)
	r.With(syncLimit).Post("/sync-now", syncAll.ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Post("/", create.New(logger, s.Users).ServeHTTP)
			r.Get("/", userlist.New(logger, s.Users).ServeHTTP)
			r.Get("/by-email/{email}", byemail.New(logger, s.Users).ServeHTTP)
			r.With(syncLimit).Post("/sync/{id}", syncuser.New(logger, s.Users).ServeHTTP)
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Get("/check/{email}", check.New(logger, s.Remote).ServeHTTP)
			r.Get("/cached/{email}", cached.New(logger, s.Users).ServeHTTP)
			r.With(syncLimit).Post("/sync-all", syncAll.ServeHTTP)
		})

		r.Route("/sync-runs", func(r chi.Router) {
			r.Get("/", runlist.New(logger, s.SyncRuns).ServeHTTP)
			r.Get("/latest", runlatest.New(logger, s.SyncRuns).ServeHTTP)
			r.Get("/{id}", runread.New(logger, s.SyncRuns).ServeHTTP)
		})

		r.Get("/health", ready.Health)
		r.Get("/health/setup-status", ready.SetupStatus)
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
