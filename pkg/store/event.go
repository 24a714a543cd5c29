package store

import (
	"time"

	"go.uber.org/zap"

	"github.com/alexsears/tentOS/pkg/common"
	"github.com/alexsears/tentOS/pkg/models"
)

func (s *Store) recordEvent(event *models.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if err := s.Db.Conn.Create(event).Error; err != nil {
		return err
	}

	common.GetLoggerWith(common.LoggerNameStore).
		Info("Event recorded", zap.Reflect("event", event))
	return nil
}

func (s *Store) getTentEvents(tentID string, limit int) ([]models.Event, error) {
	var events []models.Event
	query := s.Db.Conn.Where("tent_id = ?", tentID).Order("timestamp desc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&events).Error
	return events, err
}

type IEventImpl struct {
	store *Store
}

func (ie *IEventImpl) RecordEvent(event *models.Event) error {
	return ie.store.recordEvent(event)
}

func (ie *IEventImpl) GetTentEvents(tentID string, limit int) ([]models.Event, error) {
	return ie.store.getTentEvents(tentID, limit)
}

func (s *Store) GetIEvent() IEvent {
	return &IEventImpl{store: s}
}
