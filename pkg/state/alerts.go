package state

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/alexsears/tentOS/pkg/common"
	"github.com/alexsears/tentOS/pkg/models"
	"github.com/alexsears/tentOS/pkg/tent"
)

const (
	reservoirLowPercent      = 20.0
	reservoirCriticalPercent = 10.0
	// degrees above the max at which a temperature alert turns critical
	tempCriticalMargin = 5.0
)

var leakStates = []string{"on", "wet", "detected", "true"}

// EvaluateAlerts computes the alert list of one tent from its current state.
// A tent with notifications disabled has no alerts.
func EvaluateAlerts(t *tent.Tent) []tent.Alert {
	n := t.Config.Notifications
	alerts := []tent.Alert{}
	if !n.Enabled {
		return alerts
	}

	lightsOn := t.LightsOn()

	if temp := t.Temperature(); n.AlertTempOutOfRange && temp != nil {
		r := t.Config.Targets.Temperature(lightsOn)
		switch {
		case *temp < r.Min:
			alerts = append(alerts, tent.Alert{
				Type:     models.AlertTypeTempOutOfRange,
				Severity: models.SeverityWarning,
				Message:  fmt.Sprintf("Temperature %.1f°C is below minimum (%g°C)", *temp, r.Min),
			})
		case *temp > r.Max:
			severity := models.SeverityWarning
			if *temp > r.Max+tempCriticalMargin {
				severity = models.SeverityCritical
			}
			alerts = append(alerts, tent.Alert{
				Type:     models.AlertTypeTempOutOfRange,
				Severity: severity,
				Message:  fmt.Sprintf("Temperature %.1f°C is above maximum (%g°C)", *temp, r.Max),
			})
		}
	}

	if humidity := t.Humidity(); n.AlertHumidityOutOfRange && humidity != nil {
		r := t.Config.Targets.Humidity(lightsOn)
		switch {
		case *humidity < r.Min:
			alerts = append(alerts, tent.Alert{
				Type:     models.AlertTypeHumidityOutOfRange,
				Severity: models.SeverityWarning,
				Message:  fmt.Sprintf("Humidity %.1f%% is below minimum (%g%%)", *humidity, r.Min),
			})
		case *humidity > r.Max:
			alerts = append(alerts, tent.Alert{
				Type:     models.AlertTypeHumidityOutOfRange,
				Severity: models.SeverityWarning,
				Message:  fmt.Sprintf("Humidity %.1f%% is above maximum (%g%%)", *humidity, r.Max),
			})
		}
	}

	if leak := t.Sensor(tent.FieldLeakSensor); n.AlertLeakDetected && leak != nil && leakDetected(leak) {
		alerts = append(alerts, tent.Alert{
			Type:     models.AlertTypeLeakDetected,
			Severity: models.SeverityCritical,
			Message:  "Water leak detected!",
		})
	}

	if reservoir := t.Sensor(tent.FieldReservoirLevel); n.AlertReservoirLow && reservoir != nil && reservoir.Value != nil {
		level := *reservoir.Value
		if level < reservoirLowPercent {
			severity := models.SeverityWarning
			if level < reservoirCriticalPercent {
				severity = models.SeverityCritical
			}
			alerts = append(alerts, tent.Alert{
				Type:     models.AlertTypeReservoirLow,
				Severity: severity,
				Message:  fmt.Sprintf("Reservoir level low (%g%%)", level),
			})
		}
	}

	return alerts
}

func leakDetected(field *tent.SensorField) bool {
	for _, raw := range field.RawStates() {
		if slices.Contains(leakStates, strings.ToLower(strings.TrimSpace(raw))) {
			return true
		}
	}
	return false
}

func toModelAlerts(alerts []tent.Alert) []models.Alert {
	return common.Mapper(alerts, func(a tent.Alert) models.Alert {
		return models.Alert{AlertType: a.Type, Severity: a.Severity, Message: a.Message}
	})
}

// SweepAlerts recomputes every tent's alerts, replacing the previous list.
// Persisting them is best effort; a failure is logged and the next sweep
// tries again.
func (m *Manager) SweepAlerts(ctx context.Context) {
	logger := common.GetLoggerWith(
		common.LoggerNameStateManager,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryAlert),
	)

	type sweep struct {
		tentID   string
		alerts   []tent.Alert
		snapshot *tent.Snapshot
	}

	m.mu.Lock()
	sweeps := make([]sweep, 0, len(m.order))
	for _, tentID := range m.order {
		t := m.tents[tentID]
		alerts := EvaluateAlerts(t)
		s := sweep{tentID: tentID, alerts: alerts}
		if !slices.Equal(t.Alerts(), alerts) {
			t.SetAlerts(alerts)
			snapshot := t.Snapshot()
			s.snapshot = &snapshot
		}
		sweeps = append(sweeps, s)
	}
	m.mu.Unlock()

	for _, s := range sweeps {
		m.metrics.SetActiveAlerts(s.tentID, len(s.alerts))

		if m.alertStore != nil {
			if err := m.alertStore.SyncAlerts(s.tentID, toModelAlerts(s.alerts)); err != nil {
				m.metrics.TickError("alerts")
				logger.Error("Failed to persist alerts", zap.String("tent_id", s.tentID), zap.Error(err))
			}
		}

		if s.snapshot != nil {
			logger.Info("Alerts changed", zap.String("tent_id", s.tentID), zap.Int("alerts", len(s.alerts)))
			m.hub.Broadcast(ctx, TentUpdate(*s.snapshot))
		}
	}

	if m.alertStore != nil {
		configured := common.Mapper(sweeps, func(s sweep) string { return s.tentID })
		m.resolveOrphanAlerts(configured, logger)
	}
}

// resolveOrphanAlerts closes persisted open alerts of tents that are no
// longer configured; no sweep visits them anymore.
func (m *Manager) resolveOrphanAlerts(configured []string, logger *zap.Logger) {
	open, err := m.alertStore.GetActiveAlerts("")
	if err != nil {
		m.metrics.TickError("alerts")
		logger.Error("Failed to list open alerts", zap.Error(err))
		return
	}

	var orphans []string
	for _, alert := range open {
		if !slices.Contains(configured, alert.TentID) && !slices.Contains(orphans, alert.TentID) {
			orphans = append(orphans, alert.TentID)
		}
	}

	for _, tentID := range orphans {
		if err := m.alertStore.SyncAlerts(tentID, nil); err != nil {
			m.metrics.TickError("alerts")
			logger.Error("Failed to resolve alerts of removed tent", zap.String("tent_id", tentID), zap.Error(err))
			continue
		}
		logger.Info("Resolved alerts of removed tent", zap.String("tent_id", tentID))
	}
}

func (m *Manager) alertLoop(ctx context.Context) {
	defer m.wg.Done()
	runEvery(ctx, m.alertInterval, m.SweepAlerts)
}

// runEvery calls fn on every tick until ctx is done. A panic inside one tick
// is logged and does not stop the loop.
func runEvery(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			safeTick(ctx, fn)
		}
	}
}

func safeTick(ctx context.Context, fn func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			common.GetLoggerWith(common.LoggerNameStateManager).
				Error("Periodic task panicked", zap.Any("panic", r))
		}
	}()
	fn(ctx)
}
