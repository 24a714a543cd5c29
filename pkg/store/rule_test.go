package store

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexsears/tentOS/pkg/common"
	"github.com/alexsears/tentOS/pkg/models"
	_ "github.com/alexsears/tentOS/pkg/testing"
)

func TestSaveListDeleteRule(t *testing.T) {
	common.SetTestLoggerNop()

	s := GetStoreWithMemorySqliteDialector()
	threshold := 28.0
	rule := &models.AutomationRule{
		ID:             uuid.NewString(),
		Name:           "exhaust on heat",
		Enabled:        true,
		TentID:         uuid.NewString(),
		TriggerType:    "sensor_above",
		TriggerSensor:  "temperature",
		TriggerValue:   &threshold,
		ActionType:     "turn_on",
		ActionActuator: "exhaust_fan",
		Hysteresis:     1,
	}
	require.NoError(t, s.Rule.SaveRule(rule))

	// upsert keeps a single row
	rule.Hysteresis = 2
	require.NoError(t, s.Rule.SaveRule(rule))

	rules, err := s.Rule.ListRules()
	require.NoError(t, err)

	var stored []models.AutomationRule
	for _, r := range rules {
		if r.ID == rule.ID {
			stored = append(stored, r)
		}
	}
	require.Len(t, stored, 1)
	assert.Equal(t, 2.0, stored[0].Hysteresis)
	require.NotNil(t, stored[0].TriggerValue)
	assert.Equal(t, 28.0, *stored[0].TriggerValue)
	assert.Nil(t, stored[0].TriggerValueMax)

	require.NoError(t, s.Rule.DeleteRule(rule.ID))
	assert.ErrorIs(t, s.Rule.DeleteRule(rule.ID), ErrRuleNotFound)
}
