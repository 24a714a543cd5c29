package automation

import (
	"errors"
	"fmt"
	"time"

	"github.com/alexsears/tentOS/pkg/config"
	"github.com/alexsears/tentOS/pkg/models"
)

type TriggerType string

const (
	TriggerSensorAbove TriggerType = "sensor_above"
	TriggerSensorBelow TriggerType = "sensor_below"
	TriggerSensorRange TriggerType = "sensor_range"
	TriggerSchedule    TriggerType = "schedule"
)

type ActionType string

const (
	ActionTurnOn   ActionType = "turn_on"
	ActionTurnOff  ActionType = "turn_off"
	ActionSetSpeed ActionType = "set_speed"
)

// Direction is what actually gets sent to the actuator.
type Direction string

const (
	DirectionOn  Direction = "on"
	DirectionOff Direction = "off"
)

func (d Direction) opposite() Direction {
	if d == DirectionOn {
		return DirectionOff
	}
	return DirectionOn
}

const (
	DefaultHysteresis     = 0.5
	DefaultMinOnDuration  = 60
	DefaultMinOffDuration = 60
	DefaultCooldown       = 30
)

var (
	ErrRuleNotFound = errors.New("automation rule not found")
	ErrInvalidRule  = errors.New("invalid automation rule")
)

type Rule struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	TentID  string `json:"tent_id"`

	TriggerType        TriggerType `json:"trigger_type"`
	TriggerSensor      string      `json:"trigger_sensor,omitempty"`
	TriggerValue       *float64    `json:"trigger_value,omitempty"`
	TriggerValueMax    *float64    `json:"trigger_value_max,omitempty"`
	TriggerScheduleOn  string      `json:"trigger_schedule_on,omitempty"`
	TriggerScheduleOff string      `json:"trigger_schedule_off,omitempty"`

	ActionType     ActionType `json:"action_type"`
	ActionActuator string     `json:"action_actuator"`
	ActionValue    *int       `json:"action_value,omitempty"`

	// durations in seconds
	Hysteresis     float64 `json:"hysteresis"`
	MinOnDuration  int     `json:"min_on_duration"`
	MinOffDuration int     `json:"min_off_duration"`
	Cooldown       int     `json:"cooldown"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *Rule) IsSchedule() bool {
	return r.TriggerType == TriggerSchedule
}

// primary is the direction asserted when the rule enters its triggered side.
func (r *Rule) primary() Direction {
	if r.ActionType == ActionTurnOff {
		return DirectionOff
	}
	return DirectionOn
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// Validate checks that the rule is executable.
func (r *Rule) Validate() error {
	if r.TentID == "" {
		return fmt.Errorf("%w: tent_id is required", ErrInvalidRule)
	}
	if r.ActionActuator == "" {
		return fmt.Errorf("%w: action_actuator is required", ErrInvalidRule)
	}

	switch r.ActionType {
	case ActionTurnOn, ActionTurnOff:
	case ActionSetSpeed:
		if r.ActionValue == nil || *r.ActionValue < 0 || *r.ActionValue > 100 {
			return fmt.Errorf("%w: set_speed needs an action_value between 0 and 100", ErrInvalidRule)
		}
	default:
		return fmt.Errorf("%w: unknown action_type %q", ErrInvalidRule, r.ActionType)
	}

	switch r.TriggerType {
	case TriggerSensorAbove, TriggerSensorBelow:
		if r.TriggerSensor == "" || r.TriggerValue == nil {
			return fmt.Errorf("%w: %s needs trigger_sensor and trigger_value", ErrInvalidRule, r.TriggerType)
		}
	case TriggerSensorRange:
		if r.TriggerSensor == "" || r.TriggerValue == nil || r.TriggerValueMax == nil {
			return fmt.Errorf("%w: sensor_range needs trigger_sensor, trigger_value and trigger_value_max", ErrInvalidRule)
		}
		if *r.TriggerValueMax < *r.TriggerValue {
			return fmt.Errorf("%w: trigger_value_max is below trigger_value", ErrInvalidRule)
		}
	case TriggerSchedule:
		if r.TriggerScheduleOn == "" && r.TriggerScheduleOff == "" {
			return fmt.Errorf("%w: schedule needs trigger_schedule_on or trigger_schedule_off", ErrInvalidRule)
		}
		for _, hhmm := range []string{r.TriggerScheduleOn, r.TriggerScheduleOff} {
			if hhmm == "" {
				continue
			}
			if _, err := config.ParseClock(hhmm); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidRule, err)
			}
		}
	default:
		return fmt.Errorf("%w: unknown trigger_type %q", ErrInvalidRule, r.TriggerType)
	}

	if r.Hysteresis < 0 || r.MinOnDuration < 0 || r.MinOffDuration < 0 || r.Cooldown < 0 {
		return fmt.Errorf("%w: hysteresis and durations must not be negative", ErrInvalidRule)
	}
	return nil
}

func FromModel(m models.AutomationRule) Rule {
	return Rule{
		ID:                 m.ID,
		Name:               m.Name,
		Enabled:            m.Enabled,
		TentID:             m.TentID,
		TriggerType:        TriggerType(m.TriggerType),
		TriggerSensor:      m.TriggerSensor,
		TriggerValue:       m.TriggerValue,
		TriggerValueMax:    m.TriggerValueMax,
		TriggerScheduleOn:  m.TriggerScheduleOn,
		TriggerScheduleOff: m.TriggerScheduleOff,
		ActionType:         ActionType(m.ActionType),
		ActionActuator:     m.ActionActuator,
		ActionValue:        m.ActionValue,
		Hysteresis:         m.Hysteresis,
		MinOnDuration:      m.MinOnDuration,
		MinOffDuration:     m.MinOffDuration,
		Cooldown:           m.Cooldown,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

func (r *Rule) ToModel() *models.AutomationRule {
	return &models.AutomationRule{
		ID:                 r.ID,
		Name:               r.Name,
		Enabled:            r.Enabled,
		TentID:             r.TentID,
		TriggerType:        string(r.TriggerType),
		TriggerSensor:      r.TriggerSensor,
		TriggerValue:       r.TriggerValue,
		TriggerValueMax:    r.TriggerValueMax,
		TriggerScheduleOn:  r.TriggerScheduleOn,
		TriggerScheduleOff: r.TriggerScheduleOff,
		ActionType:         string(r.ActionType),
		ActionActuator:     r.ActionActuator,
		ActionValue:        r.ActionValue,
		Hysteresis:         r.Hysteresis,
		MinOnDuration:      r.MinOnDuration,
		MinOffDuration:     r.MinOffDuration,
		Cooldown:           r.Cooldown,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

// RuleState is the runtime side of a rule. Triggered is true while the rule
// sits on the asserted side of its hysteresis band.
type RuleState struct {
	Triggered      bool       `json:"triggered"`
	LastAction     Direction  `json:"last_action,omitempty"`
	LastActionTime *time.Time `json:"last_action_time,omitempty"`
	LastTriggered  *time.Time `json:"last_triggered,omitempty"`
}

type RuleStatus struct {
	RuleID         string     `json:"rule_id"`
	Enabled        bool       `json:"enabled"`
	Triggered      bool       `json:"triggered"`
	LastAction     Direction  `json:"last_action,omitempty"`
	LastActionTime *time.Time `json:"last_action_time"`
	LastTriggered  *time.Time `json:"last_triggered"`
}

// transition runs the hysteresis state machine for one reading. ok is false
// when the reading does not cross a band edge.
func transition(rule *Rule, triggered bool, value float64) (dir Direction, next bool, ok bool) {
	primary := rule.primary()

	switch rule.TriggerType {
	case TriggerSensorAbove:
		threshold := *rule.TriggerValue
		if !triggered && value > threshold {
			return primary, true, true
		}
		if triggered && value < threshold-rule.Hysteresis {
			return primary.opposite(), false, true
		}

	case TriggerSensorBelow:
		threshold := *rule.TriggerValue
		if !triggered && value < threshold {
			return primary, true, true
		}
		if triggered && value > threshold+rule.Hysteresis {
			return primary.opposite(), false, true
		}

	case TriggerSensorRange:
		low, high := *rule.TriggerValue, *rule.TriggerValueMax
		inRange := value >= low && value <= high
		if !triggered && !inRange {
			return primary, true, true
		}
		if triggered && inRange {
			return primary.opposite(), false, true
		}
	}

	return "", triggered, false
}
