package store

import (
	"time"

	"github.com/alexsears/tentOS/pkg/db"
	"github.com/alexsears/tentOS/pkg/models"
)

type IHistory interface {
	AppendHistory(rows []models.SensorHistory) error
	GetHistory(tentID, sensorType string, since time.Time) ([]models.SensorHistory, error)
}

type IEvent interface {
	RecordEvent(event *models.Event) error
	GetTentEvents(tentID string, limit int) ([]models.Event, error)
}

type IAlert interface {
	SyncAlerts(tentID string, current []models.Alert) error
	GetActiveAlerts(tentID string) ([]models.Alert, error)
	AcknowledgeAlert(id uint, by string) error
	ResolveAlert(id uint) error
}

type IRule interface {
	ListRules() ([]models.AutomationRule, error)
	SaveRule(rule *models.AutomationRule) error
	DeleteRule(ruleID string) error
}

type Store struct {
	Db      db.DB
	History IHistory
	Event   IEvent
	Alert   IAlert
	Rule    IRule
}

type ServiceOpts struct {
	History IHistory
	Event   IEvent
	Alert   IAlert
	Rule    IRule
}

func (s *Store) WithServices(opts ServiceOpts) *Store {
	if opts.History != nil {
		s.History = opts.History
	}
	if opts.Event != nil {
		s.Event = opts.Event
	}
	if opts.Alert != nil {
		s.Alert = opts.Alert
	}
	if opts.Rule != nil {
		s.Rule = opts.Rule
	}
	return s
}

// WithDefaultServices wires every service to its gorm-backed implementation.
func (s *Store) WithDefaultServices() *Store {
	return s.WithServices(ServiceOpts{
		History: s.GetIHistory(),
		Event:   s.GetIEvent(),
		Alert:   s.GetIAlert(),
		Rule:    s.GetIRule(),
	})
}
