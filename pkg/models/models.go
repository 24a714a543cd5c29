package models

import "time"

type AlertType string

const (
	AlertTypeTempOutOfRange     AlertType = "temp_out_of_range"
	AlertTypeHumidityOutOfRange AlertType = "humidity_out_of_range"
	AlertTypeLeakDetected       AlertType = "leak_detected"
	AlertTypeReservoirLow       AlertType = "reservoir_low"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

type EventType string

const (
	EventTypeAutomation EventType = "automation"
	EventTypeNote       EventType = "note"
)

// SensorHistory is one sampled value of one tent field.
type SensorHistory struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	TentID     string    `gorm:"size:64;not null;index:ix_sensor_history_tent_sensor_time,priority:1" json:"tent_id"`
	SensorType string    `gorm:"size:32;not null;index:ix_sensor_history_tent_sensor_time,priority:2" json:"sensor_type"`
	Value      float64   `gorm:"not null" json:"value"`
	Timestamp  time.Time `gorm:"index;index:ix_sensor_history_tent_sensor_time,priority:3" json:"timestamp"`
}

type Event struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TentID    string    `gorm:"size:64;not null;index:ix_events_tent_time,priority:1" json:"tent_id"`
	EventType EventType `gorm:"size:32;not null;index" json:"event_type"`
	Timestamp time.Time `gorm:"index;index:ix_events_tent_time,priority:2" json:"timestamp"`
	Notes     string    `json:"notes,omitempty"`
	User      string    `gorm:"size:64" json:"user,omitempty"`
	Data      string    `json:"data,omitempty"`
}

// Alert is the persisted, acknowledgeable counterpart of a sweep alert.
type Alert struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	TentID         string     `gorm:"size:64;not null;index" json:"tent_id"`
	AlertType      AlertType  `gorm:"size:32;not null" json:"alert_type"`
	Severity       Severity   `gorm:"size:16;default:warning" json:"severity"`
	Message        string     `gorm:"not null" json:"message"`
	CreatedAt      time.Time  `json:"created_at"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	AcknowledgedBy string     `gorm:"size:64" json:"acknowledged_by,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
}

// AutomationRule is the stored form of an automation rule. Optional numeric
// fields are pointers so that "unset" survives a round trip.
type AutomationRule struct {
	ID      string `gorm:"primaryKey;size:64" json:"id"`
	Name    string `gorm:"size:128" json:"name"`
	Enabled bool   `json:"enabled"`
	TentID  string `gorm:"size:64;not null;index" json:"tent_id"`

	TriggerType        string   `gorm:"size:32;not null" json:"trigger_type"`
	TriggerSensor      string   `gorm:"size:32" json:"trigger_sensor,omitempty"`
	TriggerValue       *float64 `json:"trigger_value,omitempty"`
	TriggerValueMax    *float64 `json:"trigger_value_max,omitempty"`
	TriggerScheduleOn  string   `gorm:"size:5" json:"trigger_schedule_on,omitempty"`
	TriggerScheduleOff string   `gorm:"size:5" json:"trigger_schedule_off,omitempty"`

	ActionType     string `gorm:"size:32;not null" json:"action_type"`
	ActionActuator string `gorm:"size:64;not null" json:"action_actuator"`
	ActionValue    *int   `json:"action_value,omitempty"`

	Hysteresis     float64 `json:"hysteresis"`
	MinOnDuration  int     `json:"min_on_duration"`
	MinOffDuration int     `json:"min_off_duration"`
	Cooldown       int     `json:"cooldown"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
