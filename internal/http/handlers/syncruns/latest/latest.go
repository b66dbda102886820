// Package latest реализует HTTP-обработчик последнего прогона синхронизации.
package latest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subscription-sync/internal/http/response"
	"github.com/magabrotheeeer/subscription-sync/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-sync/internal/models"
	"github.com/magabrotheeeer/subscription-sync/internal/storage/repository"
)

// Handler возвращает последний начатый прогон.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает чтение последнего прогона.
type Service interface {
	LatestSyncRun(ctx context.Context) (*models.SyncRun, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP обрабатывает GET /api/sync-runs/latest.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.syncruns.latest"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	run, err := h.service.LatestSyncRun(r.Context())
	if errors.Is(err, repository.ErrSyncRunNotFound) {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("no sync runs yet"))
		return
	}
	if err != nil {
		log.Error("failed to read latest sync run", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not read sync run"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(run))
}
