package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/alexsears/tentOS/pkg/automation"
	"github.com/alexsears/tentOS/pkg/common"
	"github.com/alexsears/tentOS/pkg/config"
	"github.com/alexsears/tentOS/pkg/db"
	"github.com/alexsears/tentOS/pkg/hass"
	tentHttp "github.com/alexsears/tentOS/pkg/http"
	"github.com/alexsears/tentOS/pkg/metrics"
	"github.com/alexsears/tentOS/pkg/mqtt"
	"github.com/alexsears/tentOS/pkg/state"
	"github.com/alexsears/tentOS/pkg/store"
)

const (
	haRetryInterval = 5 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	settings, err := config.LoadSettings()
	if err != nil {
		log.Fatal(err)
	}

	if err := os.MkdirAll(settings.DataDir, 0o755); err != nil {
		log.Fatalf("Cannot create data dir %s: %v", settings.DataDir, err)
	}

	var dbInstance *db.DB
	switch settings.DBType {
	case "file":
		dbInstance = db.GetInstance(db.UseSqliteDialector(settings.DataDir))
	case "memory":
		dbInstance = db.GetInstance(db.UseMemorySqliteDialector())
	default:
		log.Fatal("Unknown TENTOS_DB_TYPE: " + settings.DBType)
	}

	logger := common.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := (&store.Store{Db: *dbInstance}).WithDefaultServices()
	m := metrics.New()

	client := hass.NewWSClient(settings.WebSocketURL(), settings.HAToken, hass.Options{Metrics: m})
	if err := connectHomeAssistant(ctx, client); err != nil {
		logger.Info("Shutting down before Home Assistant became reachable")
		return
	}
	defer client.Close()

	var states automation.StateStore
	if settings.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     settings.RedisAddr,
			Password: settings.RedisPassword,
			DB:       settings.RedisDB,
		})
		defer rdb.Close()
		states = automation.NewRedisStateStore(rdb)
		logger.Info("Rule runtime state kept in redis", zap.String("addr", settings.RedisAddr))
	}

	engine := automation.NewEngine(automation.Options{
		Client:           client,
		Rules:            s.Rule,
		Events:           s.Event,
		States:           states,
		Metrics:          m,
		ScheduleInterval: settings.ScheduleInterval,
	})
	if err := engine.LoadRules(ctx); err != nil {
		log.Fatalf("Failed to load automation rules: %v", err)
	}

	manager := state.NewManager(state.Options{
		Client:          client,
		Configs:         config.NewLoader(settings.DataDir),
		Automation:      engine,
		Alerts:          s.Alert,
		History:         s.History,
		Metrics:         m,
		AlertInterval:   settings.AlertInterval,
		HistoryInterval: settings.HistoryInterval,
	})
	engine.SetResolver(manager)

	if err := manager.Start(ctx); err != nil {
		log.Fatalf("Failed to start state manager: %v", err)
	}
	defer manager.Stop()
	engine.Start(ctx)
	defer engine.Stop()

	if settings.MQTTBroker != "" {
		mqttClient, err := mqtt.Connect(settings.MQTTBroker, "tentos-"+uuid.NewString()[:8])
		if err != nil {
			logger.Warn("MQTT broker unreachable, continuing without it",
				zap.String("broker", settings.MQTTBroker), zap.Error(err))
		} else {
			publisher := mqtt.NewPublisher(mqttClient, settings.MQTTTopicPrefix, m)
			defer publisher.Close()
			manager.AddSubscriber(publisher)
			logger.Info("Publishing tent snapshots to MQTT",
				zap.String("broker", settings.MQTTBroker), zap.String("prefix", settings.MQTTTopicPrefix))
		}
	}

	rs := &tentHttp.RestfulServer{
		Server:           gin.Default(),
		Tents:            manager,
		Automation:       engine,
		Store:            s,
		Client:           client,
		Metrics:          m,
		RateLimiterStore: tentHttp.NewRateLimiterStore(rate.Limit(settings.Rate), settings.Burst),
	}
	rs.Setup()

	logger.Info("http server created with:",
		zap.String("default_limiter",
			fmt.Sprintf("{\"default_rate\": %v, \"default_burst\": %v}", settings.Rate, settings.Burst)))

	srv := &http.Server{Addr: settings.HTTPHostPort, Handler: rs.Server}
	go func() {
		logger.Info("Starting HTTP server on: " + settings.HTTPHostPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server failed to serve: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown", zap.Error(err))
	}
}

// connectHomeAssistant retries the first connection until it succeeds or ctx
// ends. Later drops are handled by the client itself.
func connectHomeAssistant(ctx context.Context, client *hass.WSClient) error {
	logger := common.GetLoggerWith(
		common.LoggerNameHassClient,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryConnection),
	)

	for {
		err := client.Connect(ctx)
		if err == nil {
			logger.Info("Connected to Home Assistant")
			return nil
		}
		logger.Warn("Home Assistant not reachable, retrying",
			zap.Duration("retry_in", haRetryInterval), zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(haRetryInterval):
		}
	}
}
