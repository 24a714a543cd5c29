package store

import (
	"time"

	"go.uber.org/zap"

	"github.com/alexsears/tentOS/pkg/common"
	"github.com/alexsears/tentOS/pkg/models"
)

const historyBatchSize = 200

func (s *Store) appendHistory(rows []models.SensorHistory) error {
	if len(rows) == 0 {
		return nil
	}

	logger := common.GetLoggerWith(
		common.LoggerNameStore,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryHistory),
	)

	// one transaction per batch, all or nothing
	if err := s.Db.Conn.CreateInBatches(&rows, historyBatchSize).Error; err != nil {
		return err
	}

	logger.Debug("History rows committed", zap.Int("rows", len(rows)))
	return nil
}

func (s *Store) getHistory(tentID, sensorType string, since time.Time) ([]models.SensorHistory, error) {
	var rows []models.SensorHistory
	query := s.Db.Conn.Where("tent_id = ? AND timestamp >= ?", tentID, since)
	if sensorType != "" {
		query = query.Where("sensor_type = ?", sensorType)
	}
	err := query.Order("timestamp asc").Find(&rows).Error
	return rows, err
}

type IHistoryImpl struct {
	store *Store
}

func (ih *IHistoryImpl) AppendHistory(rows []models.SensorHistory) error {
	return ih.store.appendHistory(rows)
}

func (ih *IHistoryImpl) GetHistory(tentID, sensorType string, since time.Time) ([]models.SensorHistory, error) {
	return ih.store.getHistory(tentID, sensorType, since)
}

func (s *Store) GetIHistory() IHistory {
	return &IHistoryImpl{store: s}
}
