package hass

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexsears/tentOS/pkg/common"
	_ "github.com/alexsears/tentOS/pkg/testing"
)

const testToken = "secret-token"

type fakeHA struct {
	upgrader websocket.Upgrader
	states   []State

	mu         sync.Mutex
	conn       *websocket.Conn
	calls      []map[string]any
	subscribed chan int
}

func newFakeHA() (*fakeHA, *httptest.Server) {
	f := &fakeHA{subscribed: make(chan int, 8)}
	srv := httptest.NewServer(http.HandlerFunc(f.handle))
	return f, srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/websocket"
}

func (f *fakeHA) write(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn == nil {
		return errors.New("no connection")
	}
	return f.conn.WriteJSON(v)
}

func (f *fakeHA) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	_ = conn.WriteJSON(map[string]any{"type": "auth_required"})
	var auth map[string]any
	if err := conn.ReadJSON(&auth); err != nil {
		return
	}
	if auth["access_token"] != testToken {
		_ = conn.WriteJSON(map[string]any{"type": "auth_invalid", "message": "Invalid access token"})
		return
	}
	_ = conn.WriteJSON(map[string]any{"type": "auth_ok"})

	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()

	for {
		var cmd map[string]any
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}
		id := int(cmd["id"].(float64))

		switch cmd["type"] {
		case "subscribe_events":
			_ = f.write(map[string]any{"id": id, "type": "result", "success": true})
			f.subscribed <- id
		case "get_states":
			_ = f.write(map[string]any{"id": id, "type": "result", "success": true, "result": f.states})
		case "call_service":
			f.mu.Lock()
			f.calls = append(f.calls, cmd)
			f.mu.Unlock()
			if cmd["domain"] == "broken" {
				_ = f.write(map[string]any{
					"id": id, "type": "result", "success": false,
					"error": map[string]any{"code": "not_found", "message": "Service not found"},
				})
				continue
			}
			_ = f.write(map[string]any{"id": id, "type": "result", "success": true})
		case "ping":
			_ = f.write(map[string]any{"id": id, "type": "pong"})
		}
	}
}

func (f *fakeHA) pushState(subscriptionID int, entityID, state string) error {
	return f.write(map[string]any{
		"id":   subscriptionID,
		"type": "event",
		"event": map[string]any{
			"event_type": "state_changed",
			"data": map[string]any{
				"entity_id": entityID,
				"new_state": map[string]any{
					"entity_id":  entityID,
					"state":      state,
					"attributes": map[string]any{"unit_of_measurement": "°C"},
				},
				"old_state": nil,
			},
		},
	})
}

func (f *fakeHA) dropConnection() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn != nil {
		_ = f.conn.Close()
		f.conn = nil
	}
}

func (f *fakeHA) recordedCalls() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]any(nil), f.calls...)
}

func testOptions() Options {
	return Options{
		RequestTimeout: 2 * time.Second,
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     50 * time.Millisecond,
	}
}

func connectedClient(t *testing.T, srv *httptest.Server) *WSClient {
	client := NewWSClient(wsURL(srv), testToken, testOptions())
	require.NoError(t, client.Connect(context.Background()))
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func awaitSubscription(t *testing.T, f *fakeHA) int {
	select {
	case id := <-f.subscribed:
		return id
	case <-time.After(2 * time.Second):
		t.Fatal("subscription never arrived")
		return 0
	}
}

func TestConnectAuthenticates(t *testing.T) {
	common.SetTestLoggerNop()
	_, srv := newFakeHA()
	defer srv.Close()

	client := connectedClient(t, srv)

	assert.True(t, client.Connected())
	require.NoError(t, client.Close())
	assert.False(t, client.Connected())
}

func TestConnectRejectsBadToken(t *testing.T) {
	common.SetTestLoggerNop()
	_, srv := newFakeHA()
	defer srv.Close()

	client := NewWSClient(wsURL(srv), "wrong", testOptions())
	err := client.Connect(context.Background())

	assert.ErrorIs(t, err, ErrAuthFailed)
	assert.False(t, client.Connected())
}

func TestCommandsRequireConnection(t *testing.T) {
	common.SetTestLoggerNop()

	client := NewWSClient("ws://127.0.0.1:1/api/websocket", testToken, testOptions())

	_, err := client.GetStates(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)

	err = TurnOff(context.Background(), client, "switch.fan")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestGetStates(t *testing.T) {
	common.SetTestLoggerNop()
	f, srv := newFakeHA()
	defer srv.Close()
	f.states = []State{
		{EntityID: "sensor.tent_temp", State: "24.5", Attributes: map[string]any{"unit_of_measurement": "°C"}},
		{EntityID: "switch.light", State: "on"},
	}

	client := connectedClient(t, srv)
	states, err := client.GetStates(context.Background())

	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.Equal(t, "sensor.tent_temp", states[0].EntityID)
	assert.Equal(t, "°C", states[0].Unit())
	assert.Equal(t, "", states[1].Unit())
}

func TestSubscribeDeliversStateChanges(t *testing.T) {
	common.SetTestLoggerNop()
	f, srv := newFakeHA()
	defer srv.Close()

	client := connectedClient(t, srv)
	events := make(chan StateChangedEvent, 1)
	require.NoError(t, client.SubscribeStateChanges(context.Background(), func(e StateChangedEvent) {
		events <- e
	}))
	subID := awaitSubscription(t, f)

	require.NoError(t, f.pushState(subID, "sensor.tent_temp", "25.1"))

	select {
	case e := <-events:
		assert.Equal(t, "sensor.tent_temp", e.EntityID)
		require.NotNil(t, e.NewState)
		assert.Equal(t, "25.1", e.NewState.State)
		assert.Nil(t, e.OldState)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestServiceHelpers(t *testing.T) {
	common.SetTestLoggerNop()
	f, srv := newFakeHA()
	defer srv.Close()

	client := connectedClient(t, srv)
	ctx := context.Background()

	require.NoError(t, TurnOn(ctx, client, "switch.exhaust", nil))
	require.NoError(t, TurnOff(ctx, client, "light.main"))
	require.NoError(t, SetFanSpeed(ctx, client, "fan.inline", 40))

	calls := f.recordedCalls()
	require.Len(t, calls, 3)

	assert.Equal(t, "switch", calls[0]["domain"])
	assert.Equal(t, "turn_on", calls[0]["service"])
	assert.Equal(t, map[string]any{"entity_id": "switch.exhaust"}, calls[0]["target"])
	assert.NotContains(t, calls[0], "service_data")

	assert.Equal(t, "light", calls[1]["domain"])
	assert.Equal(t, "turn_off", calls[1]["service"])

	assert.Equal(t, "fan", calls[2]["domain"])
	assert.Equal(t, "set_percentage", calls[2]["service"])
	assert.Equal(t, map[string]any{"percentage": 40.0}, calls[2]["service_data"])
}

func TestCallServiceFailure(t *testing.T) {
	common.SetTestLoggerNop()
	_, srv := newFakeHA()
	defer srv.Close()

	client := connectedClient(t, srv)
	err := client.CallService(context.Background(), "broken", "turn_on", Target{EntityID: "broken.thing"}, nil)

	assert.ErrorIs(t, err, ErrCommandFailed)
	assert.Contains(t, err.Error(), "Service not found")

	err = TurnOn(context.Background(), client, "no_domain", nil)
	assert.ErrorIs(t, err, ErrInvalidEntityID)
}

func TestReconnectResubscribes(t *testing.T) {
	common.SetTestLoggerNop()
	f, srv := newFakeHA()
	defer srv.Close()

	client := connectedClient(t, srv)
	events := make(chan StateChangedEvent, 4)
	require.NoError(t, client.SubscribeStateChanges(context.Background(), func(e StateChangedEvent) {
		events <- e
	}))
	awaitSubscription(t, f)

	f.dropConnection()

	subID := awaitSubscription(t, f)
	require.Eventually(t, client.Connected, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, f.pushState(subID, "sensor.tent_rh", "61"))

	select {
	case e := <-events:
		assert.Equal(t, "sensor.tent_rh", e.EntityID)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered after reconnect")
	}
}
