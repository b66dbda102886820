// Package list реализует HTTP-обработчик постраничного списка пользователей.
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

const defaultLimit = 100

// Handler обрабатывает запросы на получение списка пользователей.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает бизнес-логику получения списка пользователей.
type Service interface {
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
}

type page struct {
	Skip  int `validate:"gte=0"`
	Limit int `validate:"gte=1,lte=1000"`
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP обрабатывает GET /api/users?skip=&limit=.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	p := page{Limit: defaultLimit}
	q := r.URL.Query()
	var err error
	if v := q.Get("skip"); v != "" {
		if p.Skip, err = strconv.Atoi(v); err != nil {
			log.Error("failed to parse skip", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("skip must be an integer"))
			return
		}
	}
	if v := q.Get("limit"); v != "" {
		if p.Limit, err = strconv.Atoi(v); err != nil {
			log.Error("failed to parse limit", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("limit must be an integer"))
			return
		}
	}

	if err := h.validate.Struct(p); err != nil {
		var validateErr validator.ValidationErrors
		errors.As(err, &validateErr)
		log.Error("invalid pagination", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ValidationError(validateErr))
		return
	}

	users, err := h.service.List(r.Context(), p.Limit, p.Skip)
	if err != nil {
		log.Error("failed to list users", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to list users"))
		return
	}
	if users == nil {
		users = []*models.User{}
	}

	log.Debug("listed users", slog.Int("count", len(users)))
	render.JSON(w, r, response.StatusOKWithData(users))
}
