package realtime

import (
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// EventConnected is emitted once on a connection right after it is accepted.
	EventConnected = "connection:success"
	// EventNotification carries a freshly created notification payload.
	EventNotification = "notification:new"
)

// TokenVerifier validates a bearer token and returns the owner it belongs to.
// It is the same verification rule the REST API's auth middleware applies.
type TokenVerifier interface {
	Verify(tokenString string) (uuid.UUID, error)
}

// Emitter is the delivery surface exposed to the rest of the application.
type Emitter interface {
	EmitToUser(owner uuid.UUID, event string, payload any)
}

// Gateway bridges inbound websocket connections to the Registry. A connection
// is authenticated before the HTTP upgrade; a failed credential check is
// rejected with 401 and no session state is ever created for it.
type Gateway struct {
	registry *Registry
	verifier TokenVerifier
	upgrader websocket.Upgrader
}

func NewGateway(registry *Registry, verifier TokenVerifier) *Gateway {
	return &Gateway{
		registry: registry,
		verifier: verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// wsConn wraps a websocket connection with a write lock. gorilla/websocket
// does not allow concurrent writers, but the registry delivers from arbitrary
// request goroutines.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsConn) WriteJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteJSON(v)
}

func (w *wsConn) Close() error {
	return w.conn.Close()
}

// HandleWebSocket is the GET /api/ws endpoint.
func (g *Gateway) HandleWebSocket(c *gin.Context) {
	tokenString := extractToken(c.Request)
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "authentication token missing"})
		return
	}

	owner, err := g.verifier.Verify(tokenString)
	if err != nil {
		log.Printf("realtime: websocket authentication failed: %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid or expired token"})
		return
	}

	raw, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("realtime: failed to upgrade websocket: %v", err)
		return
	}

	conn := &wsConn{conn: raw}
	g.registry.Register(owner, conn)
	defer func() {
		g.registry.Unregister(conn)
		conn.Close()
	}()

	// Acknowledge on this connection only.
	if err := conn.WriteJSON(Event{
		Event: EventConnected,
		Data:  gin.H{"message": "realtime channel established"},
	}); err != nil {
		log.Printf("realtime: failed to ack connection of user %s: %v", owner, err)
		return
	}

	// No client-to-server application messages are defined; the read loop
	// only detects disconnects (client- or network-initiated).
	for {
		if _, _, err := raw.ReadMessage(); err != nil {
			return
		}
	}
}

// EmitToUser delegates delivery to the registry.
func (g *Gateway) EmitToUser(owner uuid.UUID, event string, payload any) {
	g.registry.Deliver(owner, event, payload)
}

// extractToken pulls the bearer credential out of the handshake. The
// Authorization header accepts both "Bearer" and the legacy "Token" scheme;
// browser websocket clients that cannot set headers fall back to the token
// query parameter.
func extractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && (parts[0] == "Bearer" || parts[0] == "Token") {
			return parts[1]
		}
	}
	return r.URL.Query().Get("token")
}
