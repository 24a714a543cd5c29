package state

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/alexsears/tentOS/pkg/common"
	"github.com/alexsears/tentOS/pkg/models"
)

// RecordHistory writes one row per numeric field per tent. Non-numeric
// fields are skipped.
func (m *Manager) RecordHistory(_ context.Context) {
	if m.historyStore == nil {
		return
	}

	logger := common.GetLoggerWith(
		common.LoggerNameStateManager,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryHistory),
	)

	now := m.now().UTC()

	m.mu.RLock()
	var rows []models.SensorHistory
	for _, tentID := range m.order {
		values := m.tents[tentID].NumericValues()
		fields := make([]string, 0, len(values))
		for field := range values {
			fields = append(fields, field)
		}
		sort.Strings(fields)

		for _, field := range fields {
			rows = append(rows, models.SensorHistory{
				TentID:     tentID,
				SensorType: field,
				Value:      values[field],
				Timestamp:  now,
			})
		}
	}
	m.mu.RUnlock()

	if len(rows) == 0 {
		return
	}

	if err := m.historyStore.AppendHistory(rows); err != nil {
		m.metrics.TickError("history")
		logger.Error("Failed to record history", zap.Int("rows", len(rows)), zap.Error(err))
		return
	}

	m.metrics.HistoryRowsWritten(len(rows))
	logger.Debug("History recorded", zap.Int("rows", len(rows)))
}

func (m *Manager) historyLoop(ctx context.Context) {
	defer m.wg.Done()
	runEvery(ctx, m.historyInterval, m.RecordHistory)
}
