package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultStreamInterval is the time between two snapshots pushed to a stream
// client unless the client asks for another one.
const DefaultStreamInterval = 100 * time.Millisecond

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// streamSnapshots upgrades the request to a websocket and keeps pushing
// snapshots until the client goes away or the server stops. The interval can
// be set in milliseconds with the interval_ms query parameter.
func (m *Monitor) streamSnapshots(w http.ResponseWriter, r *http.Request) {
	interval := DefaultStreamInterval
	if s := r.URL.Query().Get("interval_ms"); s != "" {
		ms, err := strconv.Atoi(s)
		if err != nil || ms <= 0 {
			http.Error(w, "invalid interval_ms", http.StatusBadRequest)
			return
		}
		interval = time.Duration(ms) * time.Millisecond
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := conn.WriteJSON(m.controller.Snapshot()); err != nil {
			return
		}

		select {
		case <-clientGone:
			return
		case <-m.stopping:
			msg := websocket.FormatCloseMessage(
				websocket.CloseGoingAway, "server stopping")
			_ = conn.WriteMessage(websocket.CloseMessage, msg)
			return
		case <-ticker.C:
		}
	}
}
