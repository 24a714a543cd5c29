package hass

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrNotConnected      = errors.New("not connected to home assistant")
	ErrAuthFailed        = errors.New("home assistant authentication failed")
	ErrCommandFailed     = errors.New("home assistant command failed")
	ErrInvalidEntityID   = errors.New("invalid entity id")
	ErrClientClosed      = errors.New("home assistant client closed")
	ErrSubscribeRejected = errors.New("home assistant rejected subscription")
)

type State struct {
	EntityID    string         `json:"entity_id"`
	State       string         `json:"state"`
	Attributes  map[string]any `json:"attributes"`
	LastChanged time.Time      `json:"last_changed"`
	LastUpdated time.Time      `json:"last_updated"`
}

// Unit returns the unit_of_measurement attribute, empty if absent.
func (s *State) Unit() string {
	if s == nil {
		return ""
	}
	unit, _ := s.Attributes["unit_of_measurement"].(string)
	return unit
}

type StateChangedEvent struct {
	EntityID string `json:"entity_id"`
	NewState *State `json:"new_state"`
	OldState *State `json:"old_state"`
}

type Target struct {
	EntityID string `json:"entity_id"`
}

// StateChangeHandler is called once per state_changed event, one at a time.
type StateChangeHandler func(StateChangedEvent)

//go:generate mockgen -destination=mocks/mock_client.go -package=mocks github.com/alexsears/tentOS/pkg/hass Client
type Client interface {
	SubscribeStateChanges(ctx context.Context, handler StateChangeHandler) error
	GetStates(ctx context.Context) ([]State, error)
	CallService(ctx context.Context, domain, service string, target Target, data map[string]any) error
	Connected() bool
	Close() error
}

// Domain returns the part of an entity id before the first dot.
func Domain(entityID string) (string, error) {
	domain, _, ok := strings.Cut(entityID, ".")
	if !ok || domain == "" {
		return "", ErrInvalidEntityID
	}
	return domain, nil
}

func TurnOn(ctx context.Context, c Client, entityID string, data map[string]any) error {
	domain, err := Domain(entityID)
	if err != nil {
		return err
	}
	return c.CallService(ctx, domain, "turn_on", Target{EntityID: entityID}, data)
}

func TurnOff(ctx context.Context, c Client, entityID string) error {
	domain, err := Domain(entityID)
	if err != nil {
		return err
	}
	return c.CallService(ctx, domain, "turn_off", Target{EntityID: entityID}, nil)
}

func SetFanSpeed(ctx context.Context, c Client, entityID string, percentage int) error {
	return c.CallService(ctx, "fan", "set_percentage", Target{EntityID: entityID}, map[string]any{
		"percentage": percentage,
	})
}
