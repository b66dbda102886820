// Package health реализует простую проверку живости процесса.
package health

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subscription-sync/internal/http/response"
)

// WorkerStatus сообщает, работает ли фоновый цикл синхронизации.
type WorkerStatus interface {
	Running() bool
}

type Handler struct {
	log    *slog.Logger
	env    string
	worker WorkerStatus
}

// New создает Handler. worker может быть nil, если цикл в процессе не запускается.
func New(log *slog.Logger, env string, worker WorkerStatus) *Handler {
	return &Handler{
		log:    log,
		env:    env,
		worker: worker,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	running := h.worker != nil && h.worker.Running()
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"status":         "healthy",
		"environment":    h.env,
		"worker_running": running,
	}))
}
