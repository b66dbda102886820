// Package cached реализует HTTP-обработчик чтения подписки из локальной копии.
// Данные могут отставать от внешнего сервиса на интервал синхронизации.
package cached

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subscription-sync/internal/http/response"
	"github.com/magabrotheeeer/subscription-sync/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-sync/internal/models"
	userservice "github.com/magabrotheeeer/subscription-sync/internal/services/user"
	"github.com/magabrotheeeer/subscription-sync/internal/storage/repository"
)

// Handler обрабатывает запросы на чтение локальной подписки.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает чтение локального представления подписки.
type Service interface {
	CachedSubscription(ctx context.Context, email string) (*models.CachedSubscription, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP обрабатывает GET /api/subscriptions/cached/{email}.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscriptions.cached"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	sub, err := h.service.CachedSubscription(r.Context(), chi.URLParam(r, "email"))
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("User not found"))
		return
	case errors.Is(err, userservice.ErrNoSubscription):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("No subscription data available"))
		return
	case err != nil:
		log.Error("failed to read cached subscription", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not read subscription"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(sub))
}
