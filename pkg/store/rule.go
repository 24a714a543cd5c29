package store

import (
	"go.uber.org/zap"
	"gorm.io/gorm/clause"

	"github.com/alexsears/tentOS/pkg/common"
	"github.com/alexsears/tentOS/pkg/models"
)

func (s *Store) listRules() ([]models.AutomationRule, error) {
	var rules []models.AutomationRule
	err := s.Db.Conn.Order("created_at asc").Find(&rules).Error
	return rules, err
}

func (s *Store) saveRule(rule *models.AutomationRule) error {
	logger := common.GetLoggerWith(
		common.LoggerNameStore,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryRule),
	)

	err := s.Db.Conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(rule).Error

	if err == nil {
		logger.Info("Upserted automation rule", zap.Reflect("rule", rule))
	}

	return err
}

func (s *Store) deleteRule(ruleID string) error {
	result := s.Db.Conn.Delete(&models.AutomationRule{}, "id = ?", ruleID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRuleNotFound
	}
	return nil
}

type IRuleImpl struct {
	store *Store
}

func (ir *IRuleImpl) ListRules() ([]models.AutomationRule, error) {
	return ir.store.listRules()
}

func (ir *IRuleImpl) SaveRule(rule *models.AutomationRule) error {
	return ir.store.saveRule(rule)
}

func (ir *IRuleImpl) DeleteRule(ruleID string) error {
	return ir.store.deleteRule(ruleID)
}

func (s *Store) GetIRule() IRule {
	return &IRuleImpl{store: s}
}
