package store

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/alexsears/tentOS/pkg/common"
	"github.com/alexsears/tentOS/pkg/models"
)

// syncAlerts reconciles the persisted open alerts of a tent with the alerts
// produced by the latest sweep: new types are created, vanished types resolved.
func (s *Store) syncAlerts(tentID string, current []models.Alert) error {
	logger := common.GetLoggerWith(
		common.LoggerNameStore,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryAlert),
	)

	now := time.Now().UTC()

	return s.Db.Conn.Transaction(func(tx *gorm.DB) error {
		var open []models.Alert
		if err := tx.Where("tent_id = ? AND resolved_at IS NULL", tentID).Find(&open).Error; err != nil {
			return err
		}

		openByType := make(map[models.AlertType]models.Alert, len(open))
		for _, alert := range open {
			openByType[alert.AlertType] = alert
		}

		seen := make(map[models.AlertType]bool, len(current))
		for _, candidate := range current {
			seen[candidate.AlertType] = true
			if _, exists := openByType[candidate.AlertType]; exists {
				continue
			}

			alert := models.Alert{
				TentID:    tentID,
				AlertType: candidate.AlertType,
				Severity:  candidate.Severity,
				Message:   candidate.Message,
				CreatedAt: now,
			}
			if err := tx.Create(&alert).Error; err != nil {
				return err
			}
			logger.Info("Alert opened", zap.Reflect("alert", alert))
		}

		for alertType, alert := range openByType {
			if seen[alertType] {
				continue
			}
			if err := tx.Model(&models.Alert{}).Where("id = ?", alert.ID).Update("resolved_at", now).Error; err != nil {
				return err
			}
			logger.Info("Alert resolved", zap.Uint("id", alert.ID), zap.String("alert_type", string(alertType)))
		}

		return nil
	})
}

func (s *Store) getActiveAlerts(tentID string) ([]models.Alert, error) {
	var alerts []models.Alert
	query := s.Db.Conn.Where("resolved_at IS NULL")
	if tentID != "" {
		query = query.Where("tent_id = ?", tentID)
	}
	err := query.Order("created_at desc").Find(&alerts).Error
	return alerts, err
}

func (s *Store) acknowledgeAlert(id uint, by string) error {
	now := time.Now().UTC()
	result := s.Db.Conn.Model(&models.Alert{}).
		Where("id = ?", id).
		Updates(map[string]any{"acknowledged_at": now, "acknowledged_by": by})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAlertNotFound
	}
	return nil
}

func (s *Store) resolveAlert(id uint) error {
	result := s.Db.Conn.Model(&models.Alert{}).
		Where("id = ? AND resolved_at IS NULL", id).
		Update("resolved_at", time.Now().UTC())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAlertNotFound
	}
	return nil
}

type IAlertImpl struct {
	store *Store
}

func (ia *IAlertImpl) SyncAlerts(tentID string, current []models.Alert) error {
	return ia.store.syncAlerts(tentID, current)
}

func (ia *IAlertImpl) GetActiveAlerts(tentID string) ([]models.Alert, error) {
	return ia.store.getActiveAlerts(tentID)
}

func (ia *IAlertImpl) AcknowledgeAlert(id uint, by string) error {
	return ia.store.acknowledgeAlert(id, by)
}

func (ia *IAlertImpl) ResolveAlert(id uint) error {
	return ia.store.resolveAlert(id)
}

func (s *Store) GetIAlert() IAlert {
	return &IAlertImpl{store: s}
}
