// Package syncall реализует HTTP-обработчик ручного запуска полной синхронизации.
package syncall

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subscription-sync/internal/http/response"
	"github.com/magabrotheeeer/subscription-sync/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-sync/internal/models"
)

// Handler запускает синхронизацию всех пользователей и возвращает итог прогона.
type Handler struct {
	log    *slog.Logger
	syncer Syncer
}

// Syncer запускает полный прогон синхронизации.
type Syncer interface {
	SyncAll(ctx context.Context) models.SyncRunSummary
}

// New создает новый Handler.
func New(log *slog.Logger, syncer Syncer) *Handler {
	return &Handler{
		log:    log,
		syncer: syncer,
	}
}

// ServeHTTP обрабатывает POST /api/subscriptions/sync-all и POST /sync-now.
// Прогон не прерывается, если клиент отключился. Полный прогон может идти
// дольше WriteTimeout сервера, поэтому дедлайн записи для этого ответа снимается.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscriptions.syncall"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		log.Warn("failed to clear write deadline", sl.Err(err))
	}

	summary := h.syncer.SyncAll(context.WithoutCancel(r.Context()))
	log.Info("manual sync finished",
		slog.Int64("run_id", summary.RunID),
		slog.String("status", string(summary.Status)))

	if summary.Status == models.SyncFailed && summary.Error != "" && summary.TotalUsers == 0 {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.ErrorWithData("Sync failed: "+summary.Error, summary))
		return
	}
	render.JSON(w, r, response.StatusOKWithData(summary))
}
