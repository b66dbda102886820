// Package check реализует HTTP-обработчик проверки подписки напрямую во внешнем сервисе.
// Локальная копия и кэш не используются.
package check

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subscription-sync/internal/beag"
	"github.com/magabrotheeeer/subscription-sync/internal/http/response"
	"github.com/magabrotheeeer/subscription-sync/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-sync/internal/models"
)

// Handler обрабатывает запросы на проверку подписки.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает обращение к внешнему сервису подписок.
type Service interface {
	GetSubscriptionByEmail(ctx context.Context, email string) (*models.SubscriptionRecord, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP обрабатывает GET /api/subscriptions/check/{email}.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscriptions.check"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	email := chi.URLParam(r, "email")
	rec, err := h.service.GetSubscriptionByEmail(r.Context(), email)
	if errors.Is(err, beag.ErrNotFound) {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("No active subscription found"))
		return
	}
	if err != nil {
		log.Error("failed to check subscription", slog.String("email", email), sl.Err(err))
		render.Status(r, http.StatusBadGateway)
		render.JSON(w, r, response.Error("failed to check subscription"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(rec))
}
