package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/ndtvumkp-dev/loto-mien-tay/internal/registry"
)

// ListRooms serves the same summaries the registry pushes over WebSocket,
// for clients that want to poll before connecting.
func ListRooms(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(reg.ListRooms())
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
