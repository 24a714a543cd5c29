package automation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alexsears/tentOS/pkg/common"
	"github.com/alexsears/tentOS/pkg/hass"
	"github.com/alexsears/tentOS/pkg/metrics"
	"github.com/alexsears/tentOS/pkg/models"
	"github.com/alexsears/tentOS/pkg/store"
)

// ActuatorResolver maps a tent's actuator slot to a concrete entity id.
type ActuatorResolver interface {
	ResolveActuator(tentID, slot string) (string, bool)
}

type Options struct {
	Client           hass.Client
	Rules            store.IRule
	Events           store.IEvent
	States           StateStore
	Metrics          *metrics.Metrics
	ScheduleInterval time.Duration
	Now              func() time.Time
}

type Engine struct {
	client           hass.Client
	repo             store.IRule
	events           store.IEvent
	states           StateStore
	metrics          *metrics.Metrics
	scheduleInterval time.Duration
	now              func() time.Time

	mu       sync.Mutex
	resolver ActuatorResolver
	rules    map[string]*Rule
	runtime  map[string]*RuleState
	inFlight map[string]bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type decision struct {
	rule      Rule
	direction Direction
	triggered bool
	// state the decision was taken against; an edit replaces it
	state *RuleState
}

func NewEngine(opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ScheduleInterval <= 0 {
		opts.ScheduleInterval = time.Minute
	}
	return &Engine{
		client:           opts.Client,
		repo:             opts.Rules,
		events:           opts.Events,
		states:           opts.States,
		metrics:          opts.Metrics,
		scheduleInterval: opts.ScheduleInterval,
		now:              opts.Now,
		rules:            make(map[string]*Rule),
		runtime:          make(map[string]*RuleState),
		inFlight:         make(map[string]bool),
	}
}

func (e *Engine) SetResolver(resolver ActuatorResolver) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resolver = resolver
}

// LoadRules replaces the rule set from the repository. Runtime state already
// held for a surviving rule is kept.
func (e *Engine) LoadRules(ctx context.Context) error {
	logger := common.GetLoggerWith(
		common.LoggerNameAutomation,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryRule),
	)

	if e.repo == nil {
		return nil
	}
	stored, err := e.repo.ListRules()
	if err != nil {
		return fmt.Errorf("list rules: %w", err)
	}

	rules := make(map[string]*Rule, len(stored))
	for _, m := range stored {
		rule := FromModel(m)
		if err := rule.Validate(); err != nil {
			logger.Warn("Skipping invalid rule", zap.String("rule_id", rule.ID), zap.Error(err))
			continue
		}
		rules[rule.ID] = &rule
	}

	e.mu.Lock()
	existing := e.runtime
	e.mu.Unlock()

	runtime := make(map[string]*RuleState, len(rules))
	for id := range rules {
		if st, ok := existing[id]; ok {
			runtime[id] = st
			continue
		}
		runtime[id] = e.loadState(ctx, id)
	}

	e.mu.Lock()
	e.rules = rules
	e.runtime = runtime
	e.mu.Unlock()

	logger.Info("Loaded automation rules", zap.Int("rules", len(rules)))
	return nil
}

func (e *Engine) loadState(ctx context.Context, ruleID string) *RuleState {
	if e.states == nil {
		return &RuleState{}
	}
	st, err := e.states.Load(ctx, ruleID)
	if err != nil {
		common.GetLoggerWith(
			common.LoggerNameAutomation,
			zap.String(common.LoggerFieldCategory, common.LoggerCategoryRule),
		).Warn("Could not restore rule state", zap.String("rule_id", ruleID), zap.Error(err))
		return &RuleState{}
	}
	return &st
}

func (e *Engine) saveState(ctx context.Context, ruleID string, st RuleState) {
	if e.states == nil {
		return
	}
	if err := e.states.Save(ctx, ruleID, st); err != nil {
		common.GetLoggerWith(
			common.LoggerNameAutomation,
			zap.String(common.LoggerFieldCategory, common.LoggerCategoryRule),
		).Warn("Could not persist rule state", zap.String("rule_id", ruleID), zap.Error(err))
	}
}

func (e *Engine) resetState(ctx context.Context, ruleID string) {
	if e.states == nil {
		return
	}
	if err := e.states.Delete(ctx, ruleID); err != nil {
		common.GetLoggerWith(
			common.LoggerNameAutomation,
			zap.String(common.LoggerFieldCategory, common.LoggerCategoryRule),
		).Warn("Could not clear rule state", zap.String("rule_id", ruleID), zap.Error(err))
	}
}

// sortedRules returns the rules ordered by creation, oldest first. Callers
// hold e.mu.
func (e *Engine) sortedRules() []*Rule {
	rules := make([]*Rule, 0, len(e.rules))
	for _, rule := range e.rules {
		rules = append(rules, rule)
	}
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].CreatedAt.Equal(rules[j].CreatedAt) {
			return rules[i].ID < rules[j].ID
		}
		return rules[i].CreatedAt.Before(rules[j].CreatedAt)
	})
	return rules
}

func (e *Engine) Rules() []Rule {
	e.mu.Lock()
	defer e.mu.Unlock()

	sorted := e.sortedRules()
	rules := make([]Rule, 0, len(sorted))
	for _, rule := range sorted {
		rules = append(rules, *rule)
	}
	return rules
}

func (e *Engine) RulesForTent(tentID string) []Rule {
	return common.Filter(e.Rules(), func(r Rule) bool { return r.TentID == tentID })
}

func (e *Engine) Rule(ruleID string) (Rule, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rule, ok := e.rules[ruleID]
	if !ok {
		return Rule{}, ErrRuleNotFound
	}
	return *rule, nil
}

// AddRule stores a new rule with fresh runtime state.
func (e *Engine) AddRule(ctx context.Context, rule Rule) (Rule, error) {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	now := e.now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	return e.put(ctx, rule)
}

// UpdateRule replaces an existing rule. Editing resets its runtime state.
func (e *Engine) UpdateRule(ctx context.Context, ruleID string, rule Rule) (Rule, error) {
	existing, err := e.Rule(ruleID)
	if err != nil {
		return Rule{}, err
	}
	rule.ID = ruleID
	rule.CreatedAt = existing.CreatedAt
	rule.UpdatedAt = e.now().UTC()
	return e.put(ctx, rule)
}

func (e *Engine) put(ctx context.Context, rule Rule) (Rule, error) {
	if err := rule.Validate(); err != nil {
		return Rule{}, err
	}
	if e.repo != nil {
		if err := e.repo.SaveRule(rule.ToModel()); err != nil {
			return Rule{}, fmt.Errorf("save rule: %w", err)
		}
	}

	e.mu.Lock()
	stored := rule
	e.rules[rule.ID] = &stored
	e.runtime[rule.ID] = &RuleState{}
	e.mu.Unlock()

	e.resetState(ctx, rule.ID)

	common.GetLoggerWith(
		common.LoggerNameAutomation,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryRule),
	).Info("Rule saved", zap.String("rule_id", rule.ID), zap.String("name", rule.Name))
	return rule, nil
}

func (e *Engine) RemoveRule(ctx context.Context, ruleID string) error {
	if _, err := e.Rule(ruleID); err != nil {
		return err
	}
	if e.repo != nil {
		if err := e.repo.DeleteRule(ruleID); err != nil && !errors.Is(err, store.ErrRuleNotFound) {
			return fmt.Errorf("delete rule: %w", err)
		}
	}

	e.mu.Lock()
	delete(e.rules, ruleID)
	delete(e.runtime, ruleID)
	e.mu.Unlock()

	e.resetState(ctx, ruleID)
	return nil
}

func (e *Engine) RuleStatus(ruleID string) (RuleStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rule, ok := e.rules[ruleID]
	if !ok {
		return RuleStatus{}, ErrRuleNotFound
	}
	st := e.runtime[ruleID]
	return RuleStatus{
		RuleID:         ruleID,
		Enabled:        rule.Enabled,
		Triggered:      st.Triggered,
		LastAction:     st.LastAction,
		LastActionTime: st.LastActionTime,
		LastTriggered:  st.LastTriggered,
	}, nil
}

// EvaluateSensor runs every enabled rule of the tent watching field against
// value. Decisions are taken under the lock; actuator calls happen outside it.
func (e *Engine) EvaluateSensor(ctx context.Context, tentID, field string, value float64) {
	e.mu.Lock()
	now := e.now()
	var decisions []decision
	for _, rule := range e.sortedRules() {
		if !rule.Enabled || rule.IsSchedule() || rule.TentID != tentID || rule.TriggerSensor != field {
			continue
		}
		if e.inFlight[rule.ID] {
			continue
		}
		if d, ok := e.decide(rule, e.runtime[rule.ID], value, now); ok {
			e.inFlight[rule.ID] = true
			decisions = append(decisions, d)
		}
	}
	e.mu.Unlock()

	for _, d := range decisions {
		e.execute(ctx, d)
	}
}

// decide applies the guards and the state machine. Callers hold e.mu.
func (e *Engine) decide(rule *Rule, st *RuleState, value float64, now time.Time) (decision, bool) {
	if st.LastActionTime != nil && now.Sub(*st.LastActionTime) < seconds(rule.Cooldown) {
		e.metrics.ActionSuppressed("cooldown")
		return decision{}, false
	}

	dir, next, ok := transition(rule, st.Triggered, value)
	if !ok {
		return decision{}, false
	}
	triggeredAt := now
	st.LastTriggered = &triggeredAt

	if st.LastActionTime != nil && st.LastAction != "" && st.LastAction != dir {
		elapsed := now.Sub(*st.LastActionTime)
		if st.LastAction == DirectionOn && elapsed < seconds(rule.MinOnDuration) {
			e.metrics.ActionSuppressed("min_on_duration")
			return decision{}, false
		}
		if st.LastAction == DirectionOff && elapsed < seconds(rule.MinOffDuration) {
			e.metrics.ActionSuppressed("min_off_duration")
			return decision{}, false
		}
	}

	return decision{rule: *rule, direction: dir, triggered: next, state: st}, true
}

func (e *Engine) execute(ctx context.Context, d decision) {
	logger := common.GetLoggerWith(
		common.LoggerNameAutomation,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryAction),
		zap.String("rule_id", d.rule.ID),
		zap.String("actuator", d.rule.ActionActuator),
	)
	defer func() {
		e.mu.Lock()
		delete(e.inFlight, d.rule.ID)
		e.mu.Unlock()
	}()

	e.mu.Lock()
	resolver := e.resolver
	e.mu.Unlock()

	var entityID string
	var ok bool
	if resolver != nil {
		entityID, ok = resolver.ResolveActuator(d.rule.TentID, d.rule.ActionActuator)
	}
	if !ok {
		logger.Warn("No entity for actuator, action dropped")
		return
	}

	err := e.call(ctx, d, entityID)
	e.metrics.ActionExecuted(string(d.direction), err == nil)
	if err != nil {
		// no retry; the next qualifying reading re-evaluates
		logger.Error("Actuator call failed", zap.String("entity_id", entityID), zap.Error(err))
	} else {
		logger.Info("Rule executed",
			zap.String("name", d.rule.Name),
			zap.String("entity_id", entityID),
			zap.String("action", string(d.direction)),
		)
	}

	actedAt := e.now()
	e.mu.Lock()
	st, exists := e.runtime[d.rule.ID]
	// a rule edited or removed while the call was out keeps its fresh state
	current := exists && st == d.state
	var snapshot RuleState
	if current {
		st.Triggered = d.triggered
		st.LastAction = d.direction
		st.LastActionTime = &actedAt
		snapshot = *st
	}
	e.mu.Unlock()

	if current {
		e.saveState(ctx, d.rule.ID, snapshot)
	}
	e.recordEvent(d, entityID, actedAt, err)
}

func (e *Engine) call(ctx context.Context, d decision, entityID string) error {
	if e.client == nil {
		return hass.ErrNotConnected
	}
	if d.direction == DirectionOff {
		return hass.TurnOff(ctx, e.client, entityID)
	}
	if d.rule.ActionType == ActionSetSpeed && d.rule.ActionValue != nil {
		return hass.SetFanSpeed(ctx, e.client, entityID, *d.rule.ActionValue)
	}
	return hass.TurnOn(ctx, e.client, entityID, nil)
}

func (e *Engine) recordEvent(d decision, entityID string, at time.Time, callErr error) {
	if e.events == nil {
		return
	}

	data, _ := json.Marshal(map[string]any{
		"rule_id":   d.rule.ID,
		"actuator":  d.rule.ActionActuator,
		"entity_id": entityID,
		"action":    d.direction,
		"success":   callErr == nil,
	})
	event := &models.Event{
		TentID:    d.rule.TentID,
		EventType: models.EventTypeAutomation,
		Timestamp: at.UTC(),
		Notes:     fmt.Sprintf("Rule %q turned %s %s", d.rule.Name, d.rule.ActionActuator, d.direction),
		User:      "automation",
		Data:      string(data),
	}
	if err := e.events.RecordEvent(event); err != nil {
		common.GetLoggerWith(
			common.LoggerNameAutomation,
			zap.String(common.LoggerFieldCategory, common.LoggerCategoryAction),
		).Warn("Could not record automation event", zap.Error(err))
	}
}
