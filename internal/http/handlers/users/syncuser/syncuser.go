// Package syncuser реализует HTTP-обработчик ручной синхронизации одного пользователя.
package syncuser

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

// Handler обрабатывает запросы на синхронизацию пользователя по ID.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает синхронизацию пользователя по идентификатору.
type Service interface {
	SyncByID(ctx context.Context, id int64) (*models.User, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP обрабатывает POST /api/users/sync/{id}.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.syncuser"

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

	user, err := h.service.SyncByID(r.Context(), id)
	if errors.Is(err, repository.ErrUserNotFound) {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("User not found"))
		return
	}
	if err != nil {
		log.Error("failed to sync user", slog.Int64("id", id), sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("Failed to sync subscription"))
		return
	}

	log.Info("user synced", slog.Int64("id", id))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"message": "Subscription synced successfully",
		"user":    user,
	}))
}
