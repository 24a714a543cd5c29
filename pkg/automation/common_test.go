package automation

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/alexsears/tentOS/pkg/hass/mocks"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(hhmm string) *fakeClock {
	t, err := time.ParseInLocation("2006-01-02 15:04", "2026-05-04 "+hhmm, time.Local)
	if err != nil {
		panic(err)
	}
	return &fakeClock{now: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// staticResolver maps "tent/slot" to an entity id.
type staticResolver map[string]string

func (r staticResolver) ResolveActuator(tentID, slot string) (string, bool) {
	entityID, ok := r[tentID+"/"+slot]
	return entityID, ok
}

type memoryStateStore struct {
	mu     sync.Mutex
	states map[string]RuleState
}

func newMemoryStateStore() *memoryStateStore {
	return &memoryStateStore{states: make(map[string]RuleState)}
}

func (s *memoryStateStore) Load(_ context.Context, ruleID string) (RuleState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[ruleID], nil
}

func (s *memoryStateStore) Save(_ context.Context, ruleID string, state RuleState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[ruleID] = state
	return nil
}

func (s *memoryStateStore) Delete(_ context.Context, ruleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, ruleID)
	return nil
}

func GetTestEngine(t *testing.T, opts Options) (*gomock.Controller, *Engine, *mocks.MockClient, *fakeClock) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	clock := newFakeClock("12:00")

	if opts.Client == nil {
		opts.Client = client
	}
	opts.Now = clock.Now

	engine := NewEngine(opts)
	engine.SetResolver(staticResolver{
		"veg/exhaust_fan": "switch.exhaust",
		"veg/humidifier":  "switch.humidifier",
		"veg/heater":      "switch.heater",
		"veg/inline_fan":  "fan.inline",
		"veg/light":       "light.veg_main",
	})
	return ctrl, engine, client, clock
}

func floatPtr(v float64) *float64 {
	return &v
}

func intPtr(v int) *int {
	return &v
}

func aboveRule(threshold, hysteresis float64) Rule {
	return Rule{
		Name:           "Exhaust on heat",
		Enabled:        true,
		TentID:         "veg",
		TriggerType:    TriggerSensorAbove,
		TriggerSensor:  "temperature",
		TriggerValue:   floatPtr(threshold),
		ActionType:     ActionTurnOn,
		ActionActuator: "exhaust_fan",
		Hysteresis:     hysteresis,
	}
}
