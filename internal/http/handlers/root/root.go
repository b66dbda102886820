// Package root отдаёт описание API по корневому пути.
package root

import (
	"net/http"

	"github.com/go-chi/render"
)

// Version — версия HTTP API.
const Version = "1.0.0"

// Handler отвечает на GET /.
func Handler(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{
		"message": "Subscription Sync API",
		"version": Version,
		"docs":    "/docs/index.html",
	})
}
