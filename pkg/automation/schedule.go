package automation

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/alexsears/tentOS/pkg/common"
	"github.com/alexsears/tentOS/pkg/config"
)

// Start runs the schedule tick until ctx is cancelled or Stop is called.
func (e *Engine) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()

	e.wg.Add(1)
	go e.scheduleLoop(ctx)

	common.GetLoggerWith(
		common.LoggerNameAutomation,
		zap.String(common.LoggerFieldCategory, common.LoggerCategorySchedule),
	).Info("Automation engine started", zap.Duration("schedule_interval", e.scheduleInterval))
}

func (e *Engine) Stop() {
	e.mu.Lock()
	cancel := e.cancel
	e.cancel = nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	e.wg.Wait()
}

func (e *Engine) scheduleLoop(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.scheduleInterval)
	defer ticker.Stop()

	e.CheckSchedules(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.CheckSchedules(ctx)
		}
	}
}

// CheckSchedules fires schedule rules whose on or off time is the current
// minute. A rule whose last action already matches is left alone, so several
// ticks inside the same minute fire once.
func (e *Engine) CheckSchedules(ctx context.Context) {
	e.mu.Lock()
	now := e.now()
	current := now.Hour()*60 + now.Minute()

	var decisions []decision
	for _, rule := range e.sortedRules() {
		if !rule.Enabled || !rule.IsSchedule() || e.inFlight[rule.ID] {
			continue
		}
		st := e.runtime[rule.ID]

		var dir Direction
		switch {
		case clockIs(rule.TriggerScheduleOn, current):
			dir = DirectionOn
		case clockIs(rule.TriggerScheduleOff, current):
			dir = DirectionOff
		default:
			continue
		}
		if st.LastAction == dir {
			continue
		}

		triggeredAt := now
		st.LastTriggered = &triggeredAt
		e.inFlight[rule.ID] = true
		decisions = append(decisions, decision{rule: *rule, direction: dir, triggered: dir == DirectionOn, state: st})
	}
	e.mu.Unlock()

	for _, d := range decisions {
		e.execute(ctx, d)
	}
}

// clockIs reports whether an HH:MM (or H:MM) time is minute-of-day m.
func clockIs(hhmm string, m int) bool {
	if hhmm == "" {
		return false
	}
	minute, err := config.ParseClock(hhmm)
	return err == nil && minute == m
}
