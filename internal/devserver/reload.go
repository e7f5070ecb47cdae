package devserver

import (
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/bundlr/internal/telemetry"
)

const (
	// ReloadPath is where browsers connect for live reload.
	ReloadPath = "/__bundlr/ws"

	reloadMessage = "reload"
	writeTimeout  = 5 * time.Second
)

// ClientScript is injected into every HTML entry in development. It reloads
// the page when the server announces a finished rebuild.
const ClientScript = `(function () {
  var proto = location.protocol === "https:" ? "wss:" : "ws:";
  var ws = new WebSocket(proto + "//" + location.host + "` + ReloadPath + `");
  ws.onmessage = function (event) {
    if (event.data === "` + reloadMessage + `") {
      location.reload();
    }
  };
})();`

// hub tracks live reload connections.
type hub struct {
	upgrader websocket.Upgrader
	logger   zerolog.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}

	// gorilla connections allow one concurrent writer
	writeMu sync.Mutex
}

func newHub(allowedOrigins []string, logger zerolog.Logger) *hub {
	h := &hub{
		logger:  logger,
		clients: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	// without configured origins the upgrader only accepts same origin requests
	if len(allowedOrigins) > 0 {
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
		}
	}

	return h
}

func (h *hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug().Err(err).Msg("Live reload upgrade failed")
		return
	}

	h.add(conn)
	telemetry.GetMetrics().ReloadClients.Add(r.Context(), 1)
	defer func() {
		h.remove(conn)
		telemetry.GetMetrics().ReloadClients.Add(r.Context(), -1)
	}()

	// browsers never send anything, reading detects the close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *hub) add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = struct{}{}
}

func (h *hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.clients[conn]
	delete(h.clients, conn)
	h.mu.Unlock()

	if ok {
		_ = conn.Close()
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// broadcast sends a reload to every client, dropping those that fail.
func (h *hub) broadcast() int {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	sent := 0
	for _, c := range conns {
		_ = c.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.WriteMessage(websocket.TextMessage, []byte(reloadMessage)); err != nil {
			h.logger.Debug().Err(err).Msg("Dropping live reload client")
			h.remove(c)
			continue
		}
		sent++
	}

	return sent
}

func (h *hub) close() {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		h.remove(c)
	}
}
