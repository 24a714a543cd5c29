package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/alexsears/tentOS/pkg/common"
)

const (
	builderConfigFile = "config.json"
	addonOptionsFile  = "options.json"
)

var yamlConfigFiles = []string{"tents.yaml", "tents.yml"}

var ErrInvalidTentConfig = errors.New("invalid tent config")

type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (r Range) IsSet() bool {
	return r.Min != 0 || r.Max != 0
}

func (r Range) Midpoint() float64 {
	return (r.Min + r.Max) / 2
}

type Targets struct {
	TempDay       Range `json:"temp_day"`
	TempNight     Range `json:"temp_night"`
	HumidityDay   Range `json:"humidity_day"`
	HumidityNight Range `json:"humidity_night"`
}

// Temperature returns the range that applies for the given light period. A
// night range that was never configured falls back to the day range.
func (t Targets) Temperature(lightsOn bool) Range {
	if !lightsOn && t.TempNight.IsSet() {
		return t.TempNight
	}
	return t.TempDay
}

func (t Targets) Humidity(lightsOn bool) Range {
	if !lightsOn && t.HumidityNight.IsSet() {
		return t.HumidityNight
	}
	return t.HumidityDay
}

// Schedule is the photoperiod, both times as HH:MM. Empty means no schedule.
type Schedule struct {
	LightsOn  string `json:"lights_on,omitempty"`
	LightsOff string `json:"lights_off,omitempty"`
}

func (s Schedule) IsSet() bool {
	return s.LightsOn != "" && s.LightsOff != ""
}

type GrowthOverride struct {
	Stage           string    `json:"stage"`
	FlowerStartDate time.Time `json:"flower_start_date"`
}

type Notifications struct {
	Enabled                 bool `json:"enabled"`
	AlertTempOutOfRange     bool `json:"alert_temp_out_of_range"`
	AlertHumidityOutOfRange bool `json:"alert_humidity_out_of_range"`
	AlertLeakDetected       bool `json:"alert_leak_detected"`
	AlertReservoirLow       bool `json:"alert_reservoir_low"`
}

// TentConfig is the single normalized tent representation used by the core.
// Every slot maps to a list of entity ids, whatever the source file used.
type TentConfig struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	Description   string              `json:"description,omitempty"`
	Sensors       map[string][]string `json:"sensors"`
	Actuators     map[string][]string `json:"actuators"`
	Targets       Targets             `json:"targets"`
	Schedule      Schedule            `json:"schedule"`
	Growth        *GrowthOverride     `json:"growth,omitempty"`
	Notifications Notifications       `json:"notifications"`
}

// ActuatorEntities returns the entity ids bound to an actuator slot.
func (tc *TentConfig) ActuatorEntities(slot string) []string {
	return tc.Actuators[slot]
}

// AllEntities returns every configured entity id, sorted.
func (tc *TentConfig) AllEntities() []string {
	var entities []string
	for _, ids := range tc.Sensors {
		entities = append(entities, ids...)
	}
	for _, ids := range tc.Actuators {
		entities = append(entities, ids...)
	}
	sort.Strings(entities)
	return entities
}

// entityList accepts either a single entity id or a list of them.
type entityList []string

func (e *entityList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*e = compactEntities([]string{single})
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("entity must be a string or a list of strings: %w", err)
	}
	*e = compactEntities(many)
	return nil
}

func (e *entityList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var single string
		if err := value.Decode(&single); err != nil {
			return err
		}
		*e = compactEntities([]string{single})
		return nil
	case yaml.SequenceNode:
		var many []string
		if err := value.Decode(&many); err != nil {
			return err
		}
		*e = compactEntities(many)
		return nil
	default:
		return fmt.Errorf("entity must be a string or a list of strings")
	}
}

func compactEntities(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}

type rawGrowth struct {
	Stage           string `json:"stage" yaml:"stage"`
	FlowerStartDate string `json:"flower_start_date" yaml:"flower_start_date"`
}

type rawTent struct {
	ID            string                `json:"id" yaml:"id"`
	Name          string                `json:"name" yaml:"name"`
	Description   string                `json:"description" yaml:"description"`
	Sensors       map[string]entityList `json:"sensors" yaml:"sensors"`
	Actuators     map[string]entityList `json:"actuators" yaml:"actuators"`
	Targets       map[string]float64    `json:"targets" yaml:"targets"`
	Schedules     map[string]string     `json:"schedules" yaml:"schedules"`
	Growth        *rawGrowth            `json:"growth_stage" yaml:"growth_stage"`
	Notifications map[string]bool       `json:"notifications" yaml:"notifications"`
}

type rawFile struct {
	Tents []rawTent `json:"tents" yaml:"tents"`
}

// Loader reads tent configs from the add-on data directory.
type Loader struct {
	DataDir string
}

func NewLoader(dataDir string) *Loader {
	return &Loader{DataDir: dataDir}
}

// LoadTentConfigs tries the builder config.json, then tents.yaml, then the
// add-on options.json. A file that exists but does not parse is an error, so
// the caller can keep its previous config. No file at all is an empty config.
func (l *Loader) LoadTentConfigs() ([]TentConfig, error) {
	logger := common.GetLoggerWith(common.LoggerNameConfig)

	candidates := []string{builderConfigFile}
	candidates = append(candidates, yamlConfigFiles...)
	candidates = append(candidates, addonOptionsFile)

	for _, name := range candidates {
		path := filepath.Join(l.DataDir, name)
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		raw, err := decodeFile(name, data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTentConfig, path, err)
		}
		// an empty builder file defers to the next source
		if len(raw.Tents) == 0 && name != addonOptionsFile {
			continue
		}

		tents, err := normalizeTents(raw.Tents)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTentConfig, path, err)
		}

		logger.Info("Loaded tent configs", zap.String("path", path), zap.Int("tents", len(tents)))
		return tents, nil
	}

	logger.Warn("No tent config found", zap.String("data_dir", l.DataDir))
	return []TentConfig{}, nil
}

func decodeFile(name string, data []byte) (*rawFile, error) {
	var raw rawFile
	ext := strings.ToLower(filepath.Ext(name))
	if ext == ".yaml" || ext == ".yml" {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		return &raw, nil
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return &raw, nil
}

func normalizeTents(raws []rawTent) ([]TentConfig, error) {
	tents := make([]TentConfig, 0, len(raws))
	seen := make(map[string]bool, len(raws))

	for _, raw := range raws {
		tent, err := normalizeTent(raw)
		if err != nil {
			return nil, err
		}
		if seen[tent.ID] {
			return nil, fmt.Errorf("duplicate tent id %q", tent.ID)
		}
		seen[tent.ID] = true
		tents = append(tents, tent)
	}
	return tents, nil
}

func normalizeTent(raw rawTent) (TentConfig, error) {
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		name = "Unnamed Tent"
	}
	id := strings.TrimSpace(raw.ID)
	if id == "" {
		id = strings.ReplaceAll(strings.ToLower(name), " ", "_")
	}

	tent := TentConfig{
		ID:          id,
		Name:        name,
		Description: raw.Description,
		Sensors:     normalizeSlots(raw.Sensors),
		Actuators:   normalizeSlots(raw.Actuators),
		Targets:     normalizeTargets(raw.Targets),
		Notifications: Notifications{
			Enabled:                 flag(raw.Notifications, "enabled"),
			AlertTempOutOfRange:     flag(raw.Notifications, "alert_temp_out_of_range"),
			AlertHumidityOutOfRange: flag(raw.Notifications, "alert_humidity_out_of_range"),
			AlertLeakDetected:       flag(raw.Notifications, "alert_leak_detected"),
			AlertReservoirLow:       flag(raw.Notifications, "alert_reservoir_low"),
		},
	}

	schedule, err := normalizeSchedule(raw.Schedules)
	if err != nil {
		return TentConfig{}, fmt.Errorf("tent %q: %w", id, err)
	}
	tent.Schedule = schedule

	if raw.Growth != nil && raw.Growth.Stage != "" {
		growth := &GrowthOverride{Stage: strings.ToLower(raw.Growth.Stage)}
		if raw.Growth.FlowerStartDate != "" {
			start, err := time.ParseInLocation(time.DateOnly, raw.Growth.FlowerStartDate, time.Local)
			if err != nil {
				return TentConfig{}, fmt.Errorf("tent %q: flower_start_date: %w", id, err)
			}
			growth.FlowerStartDate = start
		}
		tent.Growth = growth
	}

	return tent, nil
}

func normalizeSlots(raw map[string]entityList) map[string][]string {
	slots := make(map[string][]string, len(raw))
	for slot, ids := range raw {
		if len(ids) == 0 {
			continue
		}
		slots[slot] = []string(ids)
	}
	return slots
}

func normalizeTargets(raw map[string]float64) Targets {
	get := func(key string, fallback float64) float64 {
		if v, ok := raw[key]; ok {
			return v
		}
		return fallback
	}
	return Targets{
		TempDay:       Range{Min: get("temp_day_min", 18), Max: get("temp_day_max", 28)},
		TempNight:     Range{Min: get("temp_night_min", 0), Max: get("temp_night_max", 0)},
		HumidityDay:   Range{Min: get("humidity_day_min", 40), Max: get("humidity_day_max", 70)},
		HumidityNight: Range{Min: get("humidity_night_min", 0), Max: get("humidity_night_max", 0)},
	}
}

func normalizeSchedule(raw map[string]string) (Schedule, error) {
	pick := func(keys ...string) string {
		for _, key := range keys {
			if v := strings.TrimSpace(raw[key]); v != "" {
				return v
			}
		}
		return ""
	}

	schedule := Schedule{
		LightsOn:  pick("lights_on", "light_on", "photoperiod_on"),
		LightsOff: pick("lights_off", "light_off", "photoperiod_off"),
	}
	for _, hhmm := range []string{schedule.LightsOn, schedule.LightsOff} {
		if hhmm == "" {
			continue
		}
		if _, err := ParseClock(hhmm); err != nil {
			return Schedule{}, err
		}
	}
	return schedule, nil
}

// flag reads a notification toggle. Toggles default to on.
func flag(raw map[string]bool, key string) bool {
	if v, ok := raw[key]; ok {
		return v
	}
	return true
}

// ParseClock parses an HH:MM string into minutes after midnight.
func ParseClock(hhmm string) (int, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", hhmm)
	}
	return t.Hour()*60 + t.Minute(), nil
}
