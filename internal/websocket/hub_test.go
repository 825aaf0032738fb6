package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ranlab/bizdir-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// setupFeed serves the hub on an httptest server. The ?as= query picks the
// subscriber: "admin" or a manager of ?region=.
func setupFeed(t *testing.T) (*Hub, string) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		identity := model.Identity{UserAppID: r.URL.Query().Get("as")}
		identity.Admin = identity.UserAppID == "admin"
		NewClient(hub, &Conn{Conn: conn}, identity, r.URL.Query()["region"]).Serve()
	}))
	t.Cleanup(srv.Close)

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) (model.EditEvent, error) {
	conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	var event model.EditEvent
	_, data, err := conn.ReadMessage()
	if err != nil {
		return event, err
	}
	require.NoError(t, json.Unmarshal(data, &event))
	return event, nil
}

func TestHub_RoutesEventsByRegion(t *testing.T) {
	hub, url := setupFeed(t)

	admin := dial(t, url+"?as=admin")
	manager := dial(t, url+"?as=mgr1&region=R1")
	assert.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 10*time.Millisecond)

	hub.PublishEditEvent(model.EditEvent{Type: model.EditEventSubmitted, EditRequestID: "e2", RegionID: "R2"})
	hub.PublishEditEvent(model.EditEvent{Type: model.EditEventApplied, EditRequestID: "e1", RegionID: "R1", Status: model.StatusApproved})

	first, err := readEvent(t, admin)
	require.NoError(t, err)
	assert.Equal(t, "e2", first.EditRequestID)
	second, err := readEvent(t, admin)
	require.NoError(t, err)
	assert.Equal(t, "e1", second.EditRequestID)

	got, err := readEvent(t, manager)
	require.NoError(t, err)
	assert.Equal(t, "e1", got.EditRequestID)
	assert.Equal(t, model.StatusApproved, got.Status)

	_, err = readEvent(t, manager)
	assert.Error(t, err, "manager must not see other regions")
}

func TestHub_UnregistersOnClose(t *testing.T) {
	hub, url := setupFeed(t)

	conn := dial(t, url+"?as=mgr1&region=R1")
	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHub_PublishWithoutClientsDoesNotBlock(t *testing.T) {
	hub := NewHub()
	assert.NotPanics(t, func() {
		for i := 0; i < broadcastBufferSize+10; i++ {
			hub.PublishEditEvent(model.EditEvent{Type: model.EditEventUpdated, RegionID: "R1"})
		}
	})
}
