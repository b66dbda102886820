// Package read реализует HTTP-обработчик получения прогона синхронизации по ID.
package read

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subscription-sync/internal/http/response"
	"github.com/magabrotheeeer/subscription-sync/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-sync/internal/models"
	"github.com/magabrotheeeer/subscription-sync/internal/storage/repository"
)

// Handler обрабатывает запросы на получение прогона по уникальному идентификатору.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает чтение прогона по ID.
type Service interface {
	GetSyncRun(ctx context.Context, id int64) (*models.SyncRun, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP обрабатывает GET /api/sync-runs/{id}.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.syncruns.read"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		log.Error("failed to decode id from url", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to decode id from url"))
		return
	}

	run, err := h.service.GetSyncRun(r.Context(), id)
	if errors.Is(err, repository.ErrSyncRunNotFound) {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("sync run not found"))
		return
	}
	if err != nil {
		log.Error("failed to read sync run", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not read sync run"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(run))
}
