package http

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/alexsears/tentOS/pkg/automation"
	"github.com/alexsears/tentOS/pkg/config"
	"github.com/alexsears/tentOS/pkg/db"
	"github.com/alexsears/tentOS/pkg/hass"
	"github.com/alexsears/tentOS/pkg/metrics"
	"github.com/alexsears/tentOS/pkg/state"
	"github.com/alexsears/tentOS/pkg/store"
)

const tentsYAML = `
tents:
  - id: %s
    name: Veg Tent
    sensors:
      temperature: [sensor.a, sensor.b]
      humidity: sensor.h
    actuators:
      exhaust_fan: fan.exhaust
      light: light.veg_main
    targets:
      temp_day_min: 20
      temp_day_max: 28
    schedules:
      lights_on: "06:00"
      lights_off: "00:00"
`

type testServer struct {
	rs      *RestfulServer
	manager *state.Manager
	engine  *automation.Engine
	store   *store.Store
	dataDir string
	tentID  string
}

func writeTents(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tents.yaml"), []byte(content), 0o644))
}

// setupTestServer runs the real manager and engine without a Home Assistant
// connection. Tests feed state changes through the manager directly.
func setupTestServer(t *testing.T, limiter *RateLimiterStore) *testServer {
	return newTestServer(t, limiter, nil)
}

// setupTestServerWithClient is setupTestServer over a given client. The
// manager subscribes and fetches states on start, so the client must expect
// both.
func setupTestServerWithClient(t *testing.T, client hass.Client) *testServer {
	return newTestServer(t, nil, client)
}

func newTestServer(t *testing.T, limiter *RateLimiterStore, client hass.Client) *testServer {
	gin.SetMode(gin.TestMode)

	dbInstance := db.GetInstance(db.UseMemorySqliteDialector()) // ensure migrations
	s := (&store.Store{Db: *dbInstance}).WithDefaultServices()

	tentID := uuid.NewString()
	dataDir := t.TempDir()
	writeTents(t, dataDir, fmt.Sprintf(tentsYAML, tentID))

	engine := automation.NewEngine(automation.Options{Rules: s.Rule, Events: s.Event})
	manager := state.NewManager(state.Options{
		Client:     client,
		Configs:    config.NewLoader(dataDir),
		Automation: engine,
		Alerts:     s.Alert,
		History:    s.History,
	})
	engine.SetResolver(manager)
	require.NoError(t, manager.Start(context.Background()))
	t.Cleanup(manager.Stop)

	rs := &RestfulServer{
		Server:     gin.New(),
		Tents:      manager,
		Automation: engine,
		Store:      s,
		Client:     client,
		Metrics:    metrics.New(),
		// default we use no limiter
		RateLimiterStore: limiter,
	}
	rs.Setup()

	return &testServer{rs: rs, manager: manager, engine: engine, store: s, dataDir: dataDir, tentID: tentID}
}
