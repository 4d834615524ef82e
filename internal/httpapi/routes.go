package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ndtvumkp-dev/loto-mien-tay/internal/registry"
	"github.com/ndtvumkp-dev/loto-mien-tay/internal/ws"
)

func SetupRoutes(reg *registry.Registry, allowedOrigins []string, log *zap.SugaredLogger) http.Handler {
	r := chi.NewRouter()

	// Public routes
	r.Get("/rooms", ListRooms(reg))
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(reg, allowedOrigins, log))
	return r
}
