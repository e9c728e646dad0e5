package realtime

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier struct {
	owner uuid.UUID
}

func (v stubVerifier) Verify(tokenString string) (uuid.UUID, error) {
	if tokenString == "valid-token" {
		return v.owner, nil
	}
	return uuid.Nil, errors.New("token is malformed")
}

func newGatewayServer(t *testing.T, owner uuid.UUID) (*httptest.Server, *Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := NewRegistry()
	gateway := NewGateway(registry, stubVerifier{owner: owner})

	router := gin.New()
	router.GET("/api/ws", gateway.HandleWebSocket)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	t.Cleanup(registry.Close)

	return server, registry
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/api/ws"
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	var event Event
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func waitForCount(t *testing.T, registry *Registry, owner uuid.UUID, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if registry.ConnectionCount(owner) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, want, registry.ConnectionCount(owner))
}

func TestGatewayRejectsMissingToken(t *testing.T) {
	owner := uuid.New()
	server, registry := newGatewayServer(t, owner)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(server), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, 0, registry.ConnectionCount(owner))
}

func TestGatewayRejectsInvalidToken(t *testing.T) {
	owner := uuid.New()
	server, registry := newGatewayServer(t, owner)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(server)+"?token=garbage", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, 0, registry.ConnectionCount(owner))
}

func TestGatewayAcceptsTokenQueryParam(t *testing.T) {
	owner := uuid.New()
	server, registry := newGatewayServer(t, owner)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server)+"?token=valid-token", nil)
	require.NoError(t, err)
	defer conn.Close()

	ack := readEvent(t, conn)
	assert.Equal(t, EventConnected, ack.Event)
	waitForCount(t, registry, owner, 1)
}

func TestGatewayAcceptsAuthorizationHeader(t *testing.T) {
	owner := uuid.New()
	server, _ := newGatewayServer(t, owner)

	for _, scheme := range []string{"Bearer", "Token"} {
		header := http.Header{"Authorization": []string{scheme + " valid-token"}}
		conn, _, err := websocket.DefaultDialer.Dial(wsURL(server), header)
		require.NoError(t, err, scheme)

		ack := readEvent(t, conn)
		assert.Equal(t, EventConnected, ack.Event, scheme)
		conn.Close()
	}
}

func TestGatewayDeliversToEveryDevice(t *testing.T) {
	owner := uuid.New()
	server, registry := newGatewayServer(t, owner)

	first, _, err := websocket.DefaultDialer.Dial(wsURL(server)+"?token=valid-token", nil)
	require.NoError(t, err)
	defer first.Close()
	readEvent(t, first)

	second, _, err := websocket.DefaultDialer.Dial(wsURL(server)+"?token=valid-token", nil)
	require.NoError(t, err)
	defer second.Close()
	readEvent(t, second)

	waitForCount(t, registry, owner, 2)

	registry.Deliver(owner, EventNotification, map[string]string{"id": "n1"})

	for _, conn := range []*websocket.Conn{first, second} {
		event := readEvent(t, conn)
		assert.Equal(t, EventNotification, event.Event)
		data, ok := event.Data.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "n1", data["id"])
	}
}

func TestGatewayAckGoesToNewConnectionOnly(t *testing.T) {
	owner := uuid.New()
	server, _ := newGatewayServer(t, owner)

	first, _, err := websocket.DefaultDialer.Dial(wsURL(server)+"?token=valid-token", nil)
	require.NoError(t, err)
	defer first.Close()
	readEvent(t, first)

	second, _, err := websocket.DefaultDialer.Dial(wsURL(server)+"?token=valid-token", nil)
	require.NoError(t, err)
	defer second.Close()
	readEvent(t, second)

	// The first connection must not see the second connection's ack.
	first.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var stray Event
	err = first.ReadJSON(&stray)
	assert.Error(t, err)
}

func TestGatewayUnregistersOnDisconnect(t *testing.T) {
	owner := uuid.New()
	server, registry := newGatewayServer(t, owner)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server)+"?token=valid-token", nil)
	require.NoError(t, err)
	readEvent(t, conn)
	waitForCount(t, registry, owner, 1)

	conn.Close()
	waitForCount(t, registry, owner, 0)
}
