package admin

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/coactor/machine/pkg/echo"
	"github.com/coactor/machine/pkg/logging"
)

// DiagnosticStream bridges a Controller's ConnEvent feed to any number of
// WebSocket subscribers, read-only, for live debugging. Grounded on
// pkg/core/eventbus_ws.go's upgrader/client-registry shape, reduced to a
// one-way broadcast (no publish/subscribe protocol) since the admin
// surface has nothing for a client to send.
type DiagnosticStream struct {
	svc      *echo.Service
	upgrader websocket.Upgrader
	logger   logging.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewDiagnosticStream constructs a stream over svc's connection events.
// Call Run once, in its own goroutine, to start forwarding events.
func NewDiagnosticStream(svc *echo.Service, logger logging.Logger) *DiagnosticStream {
	if logger == nil {
		logger = logging.Default
	}
	return &DiagnosticStream{
		svc:      svc,
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		logger:   logger,
		clients:  make(map[*websocket.Conn]struct{}),
	}
}

// ServeHTTP upgrades the connection and registers it as a broadcast target.
func (d *DiagnosticStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := d.upgrader.Upgrade(w, r, nil)
	if err != nil {
		d.logger.Warnf("diagnostic stream upgrade failed: %v", err)
		return
	}

	d.mu.Lock()
	d.clients[conn] = struct{}{}
	d.mu.Unlock()

	go d.drainClient(conn)
}

// drainClient reads (and discards) incoming frames only to detect the
// client going away; nothing in this protocol flows from client to server.
func (d *DiagnosticStream) drainClient(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			d.mu.Lock()
			delete(d.clients, conn)
			d.mu.Unlock()
			conn.Close()
			return
		}
	}
}

// Run forwards svc.Events() to every connected client until events closes.
func (d *DiagnosticStream) Run() {
	for evt := range d.svc.Events() {
		d.broadcast(evt)
	}
}

func (d *DiagnosticStream) broadcast(evt echo.ConnEvent) {
	body, err := json.Marshal(evt)
	if err != nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for conn := range d.clients {
		if err := conn.WriteMessage(websocket.TextMessage, body); err != nil {
			delete(d.clients, conn)
			conn.Close()
		}
	}
}
