package state

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/alexsears/tentOS/pkg/common"
	"github.com/alexsears/tentOS/pkg/hass"
)

var (
	ErrActuatorNotConfigured = errors.New("actuator not configured")
	ErrInvalidPercentage     = errors.New("percentage must be between 0 and 100")
)

// states an actuator reports while it is running
var activeActuatorStates = []string{"on", "playing", "open"}

// target resolves the entity behind a tent's actuator slot together with
// the state last reported for that slot.
func (m *Manager) target(tentID, slot string) (entityID, current string, err error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tents[tentID]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrTentNotFound, tentID)
	}
	entities := t.Config.ActuatorEntities(slot)
	if len(entities) == 0 {
		return "", "", fmt.Errorf("%w: %s", ErrActuatorNotConfigured, slot)
	}

	return entities[0], t.ActuatorState(slot), nil
}

// ToggleActuator switches a slot off when it reports a running state and on
// otherwise. It returns the state that was requested.
func (m *Manager) ToggleActuator(ctx context.Context, tentID, slot string) (bool, error) {
	entityID, current, err := m.target(tentID, slot)
	if err != nil {
		return false, err
	}

	on := !slices.Contains(activeActuatorStates, current)
	return on, m.switchEntity(ctx, tentID, slot, entityID, on)
}

// SetActuator turns a slot on or off regardless of its current state.
func (m *Manager) SetActuator(ctx context.Context, tentID, slot string, on bool) error {
	entityID, _, err := m.target(tentID, slot)
	if err != nil {
		return err
	}
	return m.switchEntity(ctx, tentID, slot, entityID, on)
}

// SetActuatorSpeed sets a fan slot to a percentage; zero turns it off.
func (m *Manager) SetActuatorSpeed(ctx context.Context, tentID, slot string, percentage int) error {
	if percentage < 0 || percentage > 100 {
		return ErrInvalidPercentage
	}
	entityID, _, err := m.target(tentID, slot)
	if err != nil {
		return err
	}
	if percentage == 0 {
		return m.switchEntity(ctx, tentID, slot, entityID, false)
	}
	if m.client == nil {
		return hass.ErrNotConnected
	}

	err = hass.SetFanSpeed(ctx, m.client, entityID, percentage)
	m.logManualAction(tentID, slot, entityID, "set_percentage", err, zap.Int("percentage", percentage))
	return err
}

func (m *Manager) switchEntity(ctx context.Context, tentID, slot, entityID string, on bool) error {
	if m.client == nil {
		return hass.ErrNotConnected
	}

	service := "turn_off"
	var err error
	if on {
		service = "turn_on"
		err = hass.TurnOn(ctx, m.client, entityID, nil)
	} else {
		err = hass.TurnOff(ctx, m.client, entityID)
	}
	m.logManualAction(tentID, slot, entityID, service, err)
	return err
}

func (m *Manager) logManualAction(tentID, slot, entityID, service string, err error, fields ...zap.Field) {
	m.metrics.ActionExecuted("manual", err == nil)

	logger := common.GetLoggerWith(
		common.LoggerNameStateManager,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryAction),
	).With(
		zap.String("tent_id", tentID),
		zap.String("slot", slot),
		zap.String("entity_id", entityID),
		zap.String("service", service),
	)
	if err != nil {
		logger.Error("Manual actuator command failed", append(fields, zap.Error(err))...)
		return
	}
	logger.Info("Manual actuator command sent", fields...)
}
