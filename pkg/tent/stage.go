package tent

import (
	"time"

	"github.com/alexsears/tentOS/pkg/config"
)

type Stage string

const (
	StageUnknown    Stage = ""
	StageVeg        Stage = "veg"
	StageFlower     Stage = "flower"
	StageTransition Stage = "transition"
)

const (
	flowerMaxLightHours = 12.5
	vegMinLightHours    = 16.0
	maxFlowerWeek       = 12
)

var (
	vegVPDTarget     = config.Range{Min: 0.8, Max: 1.0}
	genericVPDTarget = config.Range{Min: 0.8, Max: 1.2}
)

type GrowthInfo struct {
	Stage      Stage        `json:"stage"`
	Manual     bool         `json:"manual"`
	LightHours *float64     `json:"light_hours,omitempty"`
	FlowerWeek int          `json:"flower_week,omitempty"`
	VPDTarget  config.Range `json:"vpd_target"`
}

// LightHours is the length of the photoperiod, wrapping past midnight.
// Equal on and off times mean lights never go off.
func LightHours(schedule config.Schedule) (float64, error) {
	on, err := config.ParseClock(schedule.LightsOn)
	if err != nil {
		return 0, err
	}
	off, err := config.ParseClock(schedule.LightsOff)
	if err != nil {
		return 0, err
	}

	minutes := off - on
	if minutes <= 0 {
		minutes += 24 * 60
	}
	return float64(minutes) / 60, nil
}

func StageForLightHours(hours float64) Stage {
	switch {
	case hours <= flowerMaxLightHours:
		return StageFlower
	case hours >= vegMinLightHours:
		return StageVeg
	default:
		return StageTransition
	}
}

// FlowerWeek counts weeks since the flip, starting at week 1, capped at 12.
func FlowerWeek(start, now time.Time) int {
	days := int(now.Sub(start).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return min(maxFlowerWeek, max(1, days/7+1))
}

func VPDTargetForWeek(week int) config.Range {
	switch {
	case week <= 2:
		return config.Range{Min: 0.8, Max: 1.0}
	case week <= 6:
		return config.Range{Min: 1.0, Max: 1.2}
	case week <= 10:
		return config.Range{Min: 1.2, Max: 1.5}
	default:
		return config.Range{Min: 1.0, Max: 1.2}
	}
}

// InferGrowth derives the growth stage. A manual override wins over the
// photoperiod.
func InferGrowth(schedule config.Schedule, override *config.GrowthOverride, now time.Time) GrowthInfo {
	info := GrowthInfo{Stage: StageUnknown, VPDTarget: genericVPDTarget}

	if schedule.IsSet() {
		if hours, err := LightHours(schedule); err == nil {
			info.LightHours = &hours
			info.Stage = StageForLightHours(hours)
		}
	}

	if override != nil && override.Stage != "" {
		info.Stage = Stage(override.Stage)
		info.Manual = true
		if info.Stage == StageFlower && !override.FlowerStartDate.IsZero() {
			info.FlowerWeek = FlowerWeek(override.FlowerStartDate, now)
		}
	}

	switch {
	case info.Stage == StageVeg:
		info.VPDTarget = vegVPDTarget
	case info.Stage == StageFlower && info.FlowerWeek > 0:
		info.VPDTarget = VPDTargetForWeek(info.FlowerWeek)
	case info.Stage == StageFlower:
		info.VPDTarget = VPDTargetForWeek(3)
	}

	return info
}

// IsLightPeriod reports whether the lights are scheduled on at now. Without a
// schedule the tent counts as lit.
func IsLightPeriod(schedule config.Schedule, now time.Time) bool {
	if !schedule.IsSet() {
		return true
	}
	on, err := config.ParseClock(schedule.LightsOn)
	if err != nil {
		return true
	}
	off, err := config.ParseClock(schedule.LightsOff)
	if err != nil {
		return true
	}

	current := now.Hour()*60 + now.Minute()
	if on < off {
		return current >= on && current < off
	}
	return current >= on || current < off
}
