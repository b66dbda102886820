// Package byemail реализует HTTP-обработчик получения пользователя по email.
package byemail

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
	"github.com/magabrotheeeer/subscription-sync/internal/storage/repository"
)

// Handler обрабатывает запросы на получение пользователя по email.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает бизнес-логику чтения пользователя.
type Service interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP обрабатывает GET /api/users/by-email/{email}.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.byemail"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	email := chi.URLParam(r, "email")
	user, err := h.service.GetByEmail(r.Context(), email)
	if errors.Is(err, repository.ErrUserNotFound) {
		log.Info("user not found", slog.String("email", email))
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("User not found"))
		return
	}
	if err != nil {
		log.Error("failed to read user", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not read user"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(user))
}
