package tent

import (
	"maps"
	"strconv"
	"strings"
	"time"

	"github.com/alexsears/tentOS/pkg/config"
	"github.com/alexsears/tentOS/pkg/models"
)

const (
	FieldTemperature    = "temperature"
	FieldHumidity       = "humidity"
	FieldVPD            = "vpd"
	FieldLeakSensor     = "leak_sensor"
	FieldReservoirLevel = "reservoir_level"

	celsiusUnit = "°C"
)

// EntityReading is the last state reported by one physical entity. Value is
// nil when the state was not numeric.
type EntityReading struct {
	Value *float64 `json:"value"`
	Raw   string   `json:"raw"`
}

type SensorField struct {
	Value    *float64                 `json:"value"`
	State    string                   `json:"state,omitempty"`
	Unit     string                   `json:"unit,omitempty"`
	Updated  time.Time                `json:"updated"`
	Entities map[string]EntityReading `json:"entities"`
}

// RawStates lists the raw state of every entity feeding the field.
func (f *SensorField) RawStates() []string {
	states := make([]string, 0, len(f.Entities))
	for _, reading := range f.Entities {
		states = append(states, reading.Raw)
	}
	return states
}

type ActuatorField struct {
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes"`
	Updated    time.Time      `json:"updated"`
}

type Alert struct {
	Type     models.AlertType `json:"type"`
	Severity models.Severity  `json:"severity"`
	Message  string           `json:"message"`
}

// Tent holds the live derived state of one tent. It is not safe for
// concurrent use; the owner serializes access.
type Tent struct {
	Config config.TentConfig

	sensors   map[string]*SensorField
	actuators map[string]*ActuatorField

	avgTemperature   *float64
	avgHumidity      *float64
	vpd              *float64
	environmentScore int
	scoreAvailable   bool
	alerts           []Alert
	lastUpdated      *time.Time

	now func() time.Time
}

func New(cfg config.TentConfig) *Tent {
	return NewWithClock(cfg, time.Now)
}

func NewWithClock(cfg config.TentConfig, now func() time.Time) *Tent {
	return &Tent{
		Config:    cfg,
		sensors:   make(map[string]*SensorField),
		actuators: make(map[string]*ActuatorField),
		alerts:    []Alert{},
		now:       now,
	}
}

func (t *Tent) ID() string {
	return t.Config.ID
}

// UpdateSensor stores one raw reading from one entity and recomputes the
// field average and every derived metric before returning. The returned value
// is the field's averaged value after the update, nil if it has none.
func (t *Tent) UpdateSensor(field, rawState, unit, entityID string) *float64 {
	now := t.now()

	sensor, ok := t.sensors[field]
	if !ok {
		sensor = &SensorField{Entities: make(map[string]EntityReading)}
		t.sensors[field] = sensor
	}

	reading := EntityReading{Raw: rawState}
	if value, err := strconv.ParseFloat(strings.TrimSpace(rawState), 64); err == nil {
		if field == FieldTemperature {
			value = NormalizeTemperature(value, unit)
			unit = celsiusUnit
		}
		reading.Value = &value
	}

	sensor.Entities[entityID] = reading
	sensor.Unit = unit
	sensor.Updated = now
	sensor.Value = averageEntities(sensor.Entities)
	if sensor.Value == nil {
		sensor.State = rawState
	} else {
		sensor.State = ""
	}

	t.lastUpdated = &now
	t.recalculate(now)

	return copyFloat(sensor.Value)
}

func (t *Tent) UpdateActuator(field, state string, attributes map[string]any) {
	now := t.now()
	if attributes == nil {
		attributes = map[string]any{}
	}
	t.actuators[field] = &ActuatorField{
		State:      state,
		Attributes: attributes,
		Updated:    now,
	}
	t.lastUpdated = &now
}

func averageEntities(entities map[string]EntityReading) *float64 {
	var sum float64
	var n int
	for _, reading := range entities {
		if reading.Value == nil {
			continue
		}
		sum += *reading.Value
		n++
	}
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}

func (t *Tent) recalculate(now time.Time) {
	t.avgTemperature = t.fieldValue(FieldTemperature)
	t.avgHumidity = t.fieldValue(FieldHumidity)

	// a momentarily missing input keeps the previous VPD
	if t.avgTemperature != nil && t.avgHumidity != nil {
		vpd := CalculateVPD(*t.avgTemperature, *t.avgHumidity)
		t.vpd = &vpd
	}

	lightsOn := IsLightPeriod(t.Config.Schedule, now)
	t.environmentScore, t.scoreAvailable = EnvironmentScore(
		ScoreInput{Temperature: t.avgTemperature, Humidity: t.avgHumidity, VPD: t.vpd},
		t.Config.Targets.Temperature(lightsOn),
		t.Config.Targets.Humidity(lightsOn),
	)
}

func (t *Tent) fieldValue(field string) *float64 {
	sensor, ok := t.sensors[field]
	if !ok {
		return nil
	}
	return copyFloat(sensor.Value)
}

// Sensor returns the named field, or nil when nothing has reported for it.
func (t *Tent) Sensor(field string) *SensorField {
	return t.sensors[field]
}

// ActuatorState returns the last state reported for a slot, "" if none.
func (t *Tent) ActuatorState(field string) string {
	if actuator, ok := t.actuators[field]; ok {
		return actuator.State
	}
	return ""
}

func (t *Tent) SensorFields() []string {
	fields := make([]string, 0, len(t.sensors))
	for field := range t.sensors {
		fields = append(fields, field)
	}
	return fields
}

func (t *Tent) Temperature() *float64 { return copyFloat(t.avgTemperature) }
func (t *Tent) Humidity() *float64    { return copyFloat(t.avgHumidity) }
func (t *Tent) VPD() *float64         { return copyFloat(t.vpd) }

func (t *Tent) EnvironmentScore() (int, bool) {
	return t.environmentScore, t.scoreAvailable
}

func (t *Tent) Growth() GrowthInfo {
	return InferGrowth(t.Config.Schedule, t.Config.Growth, t.now())
}

func (t *Tent) LightsOn() bool {
	return IsLightPeriod(t.Config.Schedule, t.now())
}

func (t *Tent) Alerts() []Alert {
	alerts := make([]Alert, len(t.alerts))
	copy(alerts, t.alerts)
	return alerts
}

// SetAlerts replaces the alert list wholesale.
func (t *Tent) SetAlerts(alerts []Alert) {
	if alerts == nil {
		alerts = []Alert{}
	}
	t.alerts = alerts
}

// NumericValues returns every numeric field value plus the VPD.
func (t *Tent) NumericValues() map[string]float64 {
	values := make(map[string]float64, len(t.sensors)+1)
	for field, sensor := range t.sensors {
		if sensor.Value != nil {
			values[field] = *sensor.Value
		}
	}
	if t.vpd != nil {
		values[FieldVPD] = *t.vpd
	}
	return values
}

type Snapshot struct {
	ID               string                   `json:"id"`
	Name             string                   `json:"name"`
	Description      string                   `json:"description,omitempty"`
	Sensors          map[string]SensorField   `json:"sensors"`
	Actuators        map[string]ActuatorField `json:"actuators"`
	AvgTemperature   *float64                 `json:"avg_temperature"`
	AvgHumidity      *float64                 `json:"avg_humidity"`
	VPD              *float64                 `json:"vpd"`
	EnvironmentScore int                      `json:"environment_score"`
	ScoreAvailable   bool                     `json:"score_available"`
	Growth           GrowthInfo               `json:"growth"`
	LightsOn         bool                     `json:"lights_on"`
	Alerts           []Alert                  `json:"alerts"`
	LastUpdated      *time.Time               `json:"last_updated"`
	Targets          config.Targets           `json:"targets"`
	Schedule         config.Schedule          `json:"schedule"`
}

// Snapshot returns a deep copy that stays valid after the tent mutates.
func (t *Tent) Snapshot() Snapshot {
	sensors := make(map[string]SensorField, len(t.sensors))
	for field, sensor := range t.sensors {
		copied := *sensor
		copied.Value = copyFloat(sensor.Value)
		copied.Entities = maps.Clone(sensor.Entities)
		sensors[field] = copied
	}

	actuators := make(map[string]ActuatorField, len(t.actuators))
	for field, actuator := range t.actuators {
		copied := *actuator
		copied.Attributes = maps.Clone(actuator.Attributes)
		actuators[field] = copied
	}

	var lastUpdated *time.Time
	if t.lastUpdated != nil {
		ts := *t.lastUpdated
		lastUpdated = &ts
	}

	return Snapshot{
		ID:               t.Config.ID,
		Name:             t.Config.Name,
		Description:      t.Config.Description,
		Sensors:          sensors,
		Actuators:        actuators,
		AvgTemperature:   copyFloat(t.avgTemperature),
		AvgHumidity:      copyFloat(t.avgHumidity),
		VPD:              copyFloat(t.vpd),
		EnvironmentScore: t.environmentScore,
		ScoreAvailable:   t.scoreAvailable,
		Growth:           t.Growth(),
		LightsOn:         t.LightsOn(),
		Alerts:           t.Alerts(),
		LastUpdated:      lastUpdated,
		Targets:          t.Config.Targets,
		Schedule:         t.Config.Schedule,
	}
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
