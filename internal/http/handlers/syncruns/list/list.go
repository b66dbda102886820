// Package list реализует HTTP-обработчик журнала последних прогонов синхронизации.
package list

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/subscription-sync/internal/http/response"
	"github.com/magabrotheeeer/subscription-sync/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-sync/internal/models"
)

const defaultLimit = 20

// Handler обрабатывает запросы на получение журнала прогонов.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает чтение журнала прогонов.
type Service interface {
	ListSyncRuns(ctx context.Context, limit int) ([]*models.SyncRun, error)
}

type query struct {
	Limit int `validate:"gte=1,lte=100"`
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP обрабатывает GET /api/sync-runs?limit=.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.syncruns.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	q := query{Limit: defaultLimit}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			log.Error("failed to parse limit", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("limit must be an integer"))
			return
		}
		q.Limit = limit
	}
	if err := h.validate.Struct(q); err != nil {
		var validateErr validator.ValidationErrors
		errors.As(err, &validateErr)
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ValidationError(validateErr))
		return
	}

	runs, err := h.service.ListSyncRuns(r.Context(), q.Limit)
	if err != nil {
		log.Error("failed to list sync runs", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to list sync runs"))
		return
	}
	if runs == nil {
		runs = []*models.SyncRun{}
	}

	render.JSON(w, r, response.StatusOKWithData(runs))
}
