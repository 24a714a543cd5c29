package state

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/alexsears/tentOS/pkg/config"
	"github.com/alexsears/tentOS/pkg/db"
	"github.com/alexsears/tentOS/pkg/hass/mocks"
	"github.com/alexsears/tentOS/pkg/store"
)

var errBrokenPipe = errors.New("broken pipe")

func noon() time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04", "2026-05-04 12:00", time.Local)
	if err != nil {
		panic(err)
	}
	return t
}

func vegTent(id string) config.TentConfig {
	return config.TentConfig{
		ID:   id,
		Name: "Veg Tent",
		Sensors: map[string][]string{
			"temperature":     {"sensor.a", "sensor.b"},
			"humidity":        {"sensor.h"},
			"leak_sensor":     {"binary_sensor.leak"},
			"reservoir_level": {"sensor.reservoir"},
		},
		Actuators: map[string][]string{
			"exhaust_fan": {"switch.exhaust"},
			"light":       {"light.veg_main"},
		},
		Targets: config.Targets{
			TempDay:     config.Range{Min: 20, Max: 28},
			HumidityDay: config.Range{Min: 40, Max: 70},
		},
		Schedule: config.Schedule{LightsOn: "06:00", LightsOff: "00:00"},
		Notifications: config.Notifications{
			Enabled:                 true,
			AlertTempOutOfRange:     true,
			AlertHumidityOutOfRange: true,
			AlertLeakDetected:       true,
			AlertReservoirLow:       true,
		},
	}
}

type stubLoader struct {
	mu      sync.Mutex
	configs []config.TentConfig
	err     error
}

func (l *stubLoader) LoadTentConfigs() ([]config.TentConfig, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	return l.configs, nil
}

func (l *stubLoader) set(configs []config.TentConfig, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.configs = configs
	l.err = err
}

type evaluationCall struct {
	TentID string
	Field  string
	Value  float64
}

type recordingEvaluator struct {
	mu    sync.Mutex
	calls []evaluationCall
}

func (r *recordingEvaluator) EvaluateSensor(_ context.Context, tentID, field string, value float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, evaluationCall{tentID, field, value})
}

func (r *recordingEvaluator) Calls() []evaluationCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]evaluationCall(nil), r.calls...)
}

type fakeSubscriber struct {
	id    string
	err   error
	block bool

	mu       sync.Mutex
	messages []Message
}

func (s *fakeSubscriber) ID() string {
	return s.id
}

func (s *fakeSubscriber) Send(ctx context.Context, msg Message) error {
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if s.err != nil {
		return s.err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return nil
}

func (s *fakeSubscriber) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

func GetMemoryStore() *store.Store {
	dbInstance := db.GetInstance(db.UseMemorySqliteDialector()) // ensure migrations
	return (&store.Store{Db: *dbInstance}).WithDefaultServices()
}

// GetTestManager builds a manager over a mocked client. Loops run hourly so
// tests drive sweeps and history explicitly.
func GetTestManager(t *testing.T, loader *stubLoader, opts Options) (*gomock.Controller, *Manager, *mocks.MockClient, *recordingEvaluator) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	evaluator := &recordingEvaluator{}

	opts.Client = client
	opts.Configs = loader
	opts.Automation = evaluator
	opts.AlertInterval = time.Hour
	opts.HistoryInterval = time.Hour
	opts.Now = noon

	return ctrl, NewManager(opts), client, evaluator
}

func ParseLogs(r io.Reader) []any {
	scanner := bufio.NewScanner(r)
	var logs []any

	for scanner.Scan() {
		line := scanner.Text()
		var j any
		if err := json.Unmarshal([]byte(line), &j); err == nil {
			logs = append(logs, j)
		}
	}
	return logs
}

func hasLog(logs []any, msg string) bool {
	for _, entry := range logs {
		if m, ok := entry.(map[string]any); ok && m["msg"] == msg {
			return true
		}
	}
	return false
}
