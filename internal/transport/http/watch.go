package httptransport

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"credchain/pkg/requestcontext"
)

const (
	watchWriteWait  = 10 * time.Second
	watchPingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	// The bearer token already gates this route; browser clients on
	// other origins are expected.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWatch handles GET /v1/chain/watch requests. It upgrades the
// connection and streams every block appended while the socket stays
// open. Subscribers that fall behind miss blocks rather than stall
// mining, so the stream is a notification feed, not a replica.
func (h *Handler) HandleWatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the handshake failure.
		h.logger.WarnContext(ctx, "websocket upgrade failed",
			"request_id", requestID,
			"error", err,
		)
		return
	}
	defer conn.Close()

	blocks, cancel := h.vault.Subscribe()
	defer cancel()

	h.logger.InfoContext(ctx, "chain watch started",
		"request_id", requestID,
		"session_id", requestcontext.SessionID(ctx),
	)

	// The client never sends data frames, but reading is what surfaces
	// close frames and broken connections.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(watchPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(watchWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case block, ok := <-blocks:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(watchWriteWait))
			if err := conn.WriteJSON(block); err != nil {
				h.logger.WarnContext(ctx, "chain watch write failed",
					"request_id", requestID,
					"block_index", block.Index,
					"error", err,
				)
				return
			}
		}
	}
}
