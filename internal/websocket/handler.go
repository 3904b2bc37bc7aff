package websocket

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/praneethkvs/Memento/internal/auth"
)

// HandleWebSocket upgrades an authenticated request and runs it as a Hub
// client of the session's user. originPatterns lists extra allowed origins;
// same-origin requests are always accepted.
func HandleWebSocket(hub *Hub, logger *slog.Logger, originPatterns ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.UserID(r.Context())
		if userID == 0 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}
		defer conn.CloseNow()

		client := NewClient(hub, conn, userID)
		client.Run(r.Context())
	}
}
