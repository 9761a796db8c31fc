package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"feedesk/config"
	"feedesk/internal/auth"
	"feedesk/internal/events"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishAndClose(t *testing.T) {
	hub := NewHub()
	c := NewClient("admin@example.com")
	hub.Register(c)
	require.Equal(t, 1, hub.ClientCount())

	require.NoError(t, hub.Publish(context.Background(), events.PaymentEvent{Type: events.PaymentRequested, PaymentID: 9}))
	var got events.PaymentEvent
	require.NoError(t, json.Unmarshal(<-c.Send, &got))
	assert.Equal(t, uint(9), got.PaymentID)

	c.Close()
	c.Close()
	assert.Equal(t, 0, hub.ClientCount())
}

func TestUpgradeAdminFeed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.JWTConfig{AccessSecret: "ws-secret", AccessExpiry: time.Hour, Issuer: "feedesk"}
	hub := NewHub()

	r := gin.New()
	r.GET("/ws/admin", UpgradeAdminFeed(cfg, hub))
	srv := httptest.NewServer(r)
	defer srv.Close()
	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/admin"

	studentToken, err := auth.GenerateAccessToken(cfg, auth.StudentIdentity(1, "s@example.com"))
	require.NoError(t, err)
	_, resp, err := websocket.DefaultDialer.Dial(base+"?token="+studentToken, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	adminToken, err := auth.GenerateAccessToken(cfg, auth.AdminIdentity("admin@example.com"))
	require.NoError(t, err)
	conn, _, err := websocket.DefaultDialer.Dial(base+"?token="+adminToken, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, hub.Publish(context.Background(), events.PaymentEvent{Type: events.PaymentApproved, PaymentID: 3}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got events.PaymentEvent
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, events.PaymentApproved, got.Type)
	assert.Equal(t, uint(3), got.PaymentID)
}
