package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://portal.punjab.gov.in/"})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.True(t, check(req), "no origin header")

	req.Header.Set("Origin", "https://portal.punjab.gov.in")
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, check(req))

	assert.True(t, originChecker(nil)(req))
}

func TestHubDeliversToUserConnections(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	handler := NewHandler(hub, nil, zerolog.Nop())
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		c.Set("userID", int64(7))
		handler.HandleConnection(c)
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ConnectionCount(7) == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.SendToUser(8, Message{Type: TypeNotification, Payload: "not for you"})
	hub.SendToUser(7, Message{Type: TypeNotification, Payload: map[string]string{"title": "Mentor assigned"}})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var got struct {
		Type    string            `json:"type"`
		Payload map[string]string `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, TypeNotification, got.Type)
	assert.Equal(t, "Mentor assigned", got.Payload["title"])
}

func TestHandlerRequiresUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewHandler(NewHub(zerolog.Nop()), nil, zerolog.Nop())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/ws", nil)
	handler.HandleConnection(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
