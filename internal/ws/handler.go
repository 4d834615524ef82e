package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ndtvumkp-dev/loto-mien-tay/internal/registry"
	"github.com/ndtvumkp-dev/loto-mien-tay/internal/types"
)

const writeTimeout = 3 * time.Second

// Handler upgrades the connection, registers it with the registry, and runs
// the reader loop. One goroutine drains the outbox; the reader goroutine is
// the only one that touches rooms on behalf of this connection.
func Handler(reg *registry.Registry, originPatterns []string, log *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// Same-origin only unless ALLOWED_ORIGINS names the frontend host.
			OriginPatterns: originPatterns,
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		connID := uuid.NewString()
		outbox := make(chan types.ServerMessage, 32)

		reg.RegisterClient(connID, outbox)
		defer reg.UnregisterClient(connID)

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for {
				select {
				case <-writeCtx.Done():
					return
				case msg := <-outbox:
					payload, err := json.Marshal(msg)
					if err != nil {
						continue
					}
					ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
					_ = conn.Write(ctx, websocket.MessageText, payload)
					cancel()
				}
			}
		}()

		s := &session{
			id:          connID,
			reg:         reg,
			outbox:      outbox,
			log:         log.With("conn", connID),
			chatLimiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 5),
		}
		// Disconnection counts as leaving whatever room we were in.
		defer s.leaveCurrent()

		// Reader loop
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				// Treat clean close/going-away as normal:
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				// Otherwise, just exit (leaveCurrent in defer):
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				s.notice("error", "invalid-input", "bad json")
				continue
			}
			s.dispatch(cm)
		}
	}
}
