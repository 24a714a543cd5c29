package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/alexsears/tentOS/pkg/common"
	"github.com/alexsears/tentOS/pkg/config"
	"github.com/alexsears/tentOS/pkg/hass"
	"github.com/alexsears/tentOS/pkg/metrics"
	"github.com/alexsears/tentOS/pkg/store"
	"github.com/alexsears/tentOS/pkg/tent"
)

var ErrTentNotFound = errors.New("tent not found")

type ConfigLoader interface {
	LoadTentConfigs() ([]config.TentConfig, error)
}

// RuleEvaluator receives every numeric sensor update after it was applied.
type RuleEvaluator interface {
	EvaluateSensor(ctx context.Context, tentID, field string, value float64)
}

type Options struct {
	Client     hass.Client
	Configs    ConfigLoader
	Automation RuleEvaluator
	Alerts     store.IAlert
	History    store.IHistory
	Metrics    *metrics.Metrics

	AlertInterval   time.Duration
	HistoryInterval time.Duration
	SendTimeout     time.Duration
	Now             func() time.Time
}

// Manager owns the tent aggregates and the routing table. State changes are
// applied one at a time by a single worker; readers get snapshots.
type Manager struct {
	client       hass.Client
	loader       ConfigLoader
	automation   RuleEvaluator
	alertStore   store.IAlert
	historyStore store.IHistory
	metrics      *metrics.Metrics
	hub          *Hub
	now          func() time.Time

	alertInterval   time.Duration
	historyInterval time.Duration

	// procMu serializes whole update passes: event, initial snapshot, reload.
	procMu sync.Mutex

	mu      sync.RWMutex
	configs []config.TentConfig
	tents   map[string]*tent.Tent
	order   []string
	router  *Router

	queue   *eventQueue
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewManager(opts Options) *Manager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.AlertInterval <= 0 {
		opts.AlertInterval = 60 * time.Second
	}
	if opts.HistoryInterval <= 0 {
		opts.HistoryInterval = 5 * time.Minute
	}
	return &Manager{
		client:          opts.Client,
		loader:          opts.Configs,
		automation:      opts.Automation,
		alertStore:      opts.Alerts,
		historyStore:    opts.History,
		metrics:         opts.Metrics,
		hub:             NewHub(opts.SendTimeout, opts.Metrics),
		now:             opts.Now,
		alertInterval:   opts.AlertInterval,
		historyInterval: opts.HistoryInterval,
		tents:           make(map[string]*tent.Tent),
		router:          NewRouter(nil),
		queue:           newEventQueue(),
	}
}

// Start loads the tent config, subscribes to state changes, applies the
// current states of every known entity and starts the periodic loops. A
// config that cannot be loaded leaves the manager running with no tents.
func (m *Manager) Start(ctx context.Context) error {
	logger := common.GetLoggerWith(
		common.LoggerNameStateManager,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryEvent),
	)

	if configs, err := m.loader.LoadTentConfigs(); err != nil {
		logger.Error("Failed to load tent config, starting with none", zap.Error(err))
	} else {
		m.install(configs)
	}

	ctx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.running = true
	m.cancel = cancel
	m.mu.Unlock()

	if m.client != nil {
		if err := m.client.SubscribeStateChanges(ctx, m.enqueue); err != nil {
			cancel()
			m.mu.Lock()
			m.running = false
			m.mu.Unlock()
			return fmt.Errorf("subscribe to state changes: %w", err)
		}
	}

	m.syncStates(ctx)

	m.wg.Add(3)
	go m.worker(ctx)
	go m.alertLoop(ctx)
	go m.historyLoop(ctx)

	m.mu.RLock()
	logger.Info("State manager started", zap.Int("tents", len(m.order)), zap.Int("entities", m.router.Len()))
	m.mu.RUnlock()
	return nil
}

// Stop cancels the loops and waits for them. An event being applied when
// Stop is called is finished first.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.running = false
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
}

// install replaces the aggregates and routing table wholesale.
func (m *Manager) install(configs []config.TentConfig) {
	tents := make(map[string]*tent.Tent, len(configs))
	order := make([]string, 0, len(configs))
	for _, cfg := range configs {
		tents[cfg.ID] = tent.NewWithClock(cfg, m.now)
		order = append(order, cfg.ID)
	}
	router := NewRouter(configs)

	m.mu.Lock()
	m.configs = configs
	m.tents = tents
	m.order = order
	m.router = router
	m.mu.Unlock()
}

// ReloadConfig rebuilds every aggregate from a fresh config load, re-applies
// the current external states and broadcasts every tent. On a load error the
// previous config stays in place. Once the new config is installed the pass
// runs to completion even if ctx is cancelled.
func (m *Manager) ReloadConfig(ctx context.Context) error {
	logger := common.GetLoggerWith(
		common.LoggerNameStateManager,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryReload),
	)

	configs, err := m.loader.LoadTentConfigs()
	if err != nil {
		logger.Error("Reload failed, keeping previous config", zap.Error(err))
		return fmt.Errorf("reload tent config: %w", err)
	}

	m.procMu.Lock()
	m.install(configs)
	m.procMu.Unlock()

	m.syncStates(context.WithoutCancel(ctx))

	logger.Info("Tent config reloaded", zap.Int("tents", len(configs)))
	return nil
}

// syncStates applies the full external state snapshot through the normal
// update path, then broadcasts every tent once.
func (m *Manager) syncStates(ctx context.Context) {
	logger := common.GetLoggerWith(
		common.LoggerNameStateManager,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryEvent),
	)

	if m.client != nil {
		states, err := m.client.GetStates(ctx)
		if err != nil {
			logger.Warn("Could not fetch current states", zap.Error(err))
		}

		m.procMu.Lock()
		applied := 0
		for i := range states {
			if m.apply(ctx, states[i].EntityID, &states[i], false) {
				applied++
			}
		}
		m.procMu.Unlock()
		logger.Info("Applied current states", zap.Int("states", len(states)), zap.Int("applied", applied))
	}

	for _, snapshot := range m.GetAllTents() {
		m.hub.Broadcast(ctx, TentUpdate(snapshot))
	}
}

// enqueue is the subscription handler. It never blocks the client.
func (m *Manager) enqueue(ev hass.StateChangedEvent) {
	m.mu.RLock()
	running := m.running
	m.mu.RUnlock()
	if !running {
		return
	}
	m.metrics.SetQueueDepth(m.queue.push(ev))
}

func (m *Manager) worker(ctx context.Context) {
	defer m.wg.Done()

	// an event that started applying finishes even if ctx is cancelled
	applyCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.queue.ready():
		}

		for {
			ev, ok := m.queue.pop()
			if !ok {
				break
			}
			m.metrics.SetQueueDepth(m.queue.len())
			m.HandleStateChange(applyCtx, ev)
			if ctx.Err() != nil {
				return
			}
		}
	}
}

// HandleStateChange applies one event: aggregate update, automation for
// numeric sensor fields, then a broadcast of every touched tent.
func (m *Manager) HandleStateChange(ctx context.Context, ev hass.StateChangedEvent) {
	if ev.NewState == nil {
		return
	}
	entityID := ev.EntityID
	if entityID == "" {
		entityID = ev.NewState.EntityID
	}

	m.procMu.Lock()
	defer m.procMu.Unlock()

	if m.apply(ctx, entityID, ev.NewState, true) {
		m.metrics.EventProcessed("routed")
	} else {
		m.metrics.EventProcessed("ignored")
	}
}

type evaluation struct {
	tentID string
	field  string
	value  float64
}

// apply reports whether the entity was routed. Callers hold procMu.
func (m *Manager) apply(ctx context.Context, entityID string, st *hass.State, broadcast bool) bool {
	m.mu.Lock()
	routes := m.router.Lookup(entityID)
	if len(routes) == 0 {
		m.mu.Unlock()
		return false
	}

	var evaluations []evaluation
	var touched []string
	seen := make(map[string]bool, len(routes))

	for _, route := range routes {
		t, ok := m.tents[route.TentID]
		if !ok {
			continue
		}

		switch route.Category {
		case CategorySensor:
			value := t.UpdateSensor(route.Field, st.State, st.Unit(), entityID)
			if value != nil {
				evaluations = append(evaluations, evaluation{route.TentID, route.Field, *value})
				if vpd := t.VPD(); vpd != nil && (route.Field == tent.FieldTemperature || route.Field == tent.FieldHumidity) {
					evaluations = append(evaluations, evaluation{route.TentID, tent.FieldVPD, *vpd})
				}
			}
		case CategoryActuator:
			t.UpdateActuator(route.Field, st.State, st.Attributes)
		}

		if !seen[route.TentID] {
			seen[route.TentID] = true
			touched = append(touched, route.TentID)
		}
	}

	var snapshots []tent.Snapshot
	if broadcast {
		for _, tentID := range touched {
			snapshots = append(snapshots, m.tents[tentID].Snapshot())
		}
	}
	m.mu.Unlock()

	if m.automation != nil {
		for _, e := range evaluations {
			m.automation.EvaluateSensor(ctx, e.tentID, e.field, e.value)
		}
	}

	for _, snapshot := range snapshots {
		m.hub.Broadcast(ctx, TentUpdate(snapshot))
	}
	return true
}

// GetTent returns a snapshot of one tent.
func (m *Manager) GetTent(tentID string) (tent.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tents[tentID]
	if !ok {
		return tent.Snapshot{}, fmt.Errorf("%w: %s", ErrTentNotFound, tentID)
	}
	return t.Snapshot(), nil
}

// GetAllTents returns snapshots of every tent in config order.
func (m *Manager) GetAllTents() []tent.Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshots := make([]tent.Snapshot, 0, len(m.order))
	for _, tentID := range m.order {
		snapshots = append(snapshots, m.tents[tentID].Snapshot())
	}
	return snapshots
}

func (m *Manager) TentConfigs() []config.TentConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]config.TentConfig(nil), m.configs...)
}

func (m *Manager) AddSubscriber(sub Subscriber) {
	m.hub.Add(sub)
}

func (m *Manager) RemoveSubscriber(id string) {
	m.hub.Remove(id)
}

func (m *Manager) Subscribers() int {
	return m.hub.Len()
}

// ResolveActuator maps an actuator slot of a tent to its first entity.
func (m *Manager) ResolveActuator(tentID, slot string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tents[tentID]
	if !ok {
		return "", false
	}
	entities := t.Config.ActuatorEntities(slot)
	if len(entities) == 0 {
		return "", false
	}
	return entities[0], true
}
