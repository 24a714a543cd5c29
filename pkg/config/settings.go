package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	z "github.com/Oudwins/zog"
	"github.com/joho/godotenv"

	"github.com/alexsears/tentOS/pkg/common"
)

const addonDataDir = "/data"

type Settings struct {
	DataDir      string
	DBType       string
	HTTPHostPort string

	HAURL   string
	HAToken string

	AlertInterval    time.Duration
	HistoryInterval  time.Duration
	ScheduleInterval time.Duration

	Rate  float64
	Burst int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MQTTBroker      string
	MQTTTopicPrefix string
}

var settingsSchema = z.Struct(z.Shape{
	"DBType":          z.String().OneOf([]string{"file", "memory"}),
	"HTTPHostPort":    z.String().Required(),
	"HAURL":           z.String().Required(),
	"Rate":            z.Float64().GT(0),
	"Burst":           z.Int().GT(0),
	"RedisDB":         z.Int().GTE(0),
	"MQTTTopicPrefix": z.String().Required(),
})

// LoadSettings reads the process settings from the environment, after
// loading a .env file when one is present.
func LoadSettings() (*Settings, error) {
	_ = godotenv.Load()

	settings := &Settings{
		DataDir:      resolveDataDir(),
		DBType:       common.GetEnv(common.EnvKeyTentOSDBType, "file"),
		HTTPHostPort: common.GetEnv(common.EnvKeyTentOSHttpHostPort, ":8099"),

		HAURL:   common.GetEnv(common.EnvKeyHAURL, "http://supervisor/core"),
		HAToken: common.GetEnv(common.EnvKeySupervisorToken, os.Getenv(common.EnvKeyHassioToken)),

		AlertInterval:    common.GetEnvAsDuration(common.EnvKeyTentOSAlertInterval, 60*time.Second),
		HistoryInterval:  common.GetEnvAsDuration(common.EnvKeyTentOSHistoryInterval, 5*time.Minute),
		ScheduleInterval: common.GetEnvAsDuration(common.EnvKeyTentOSScheduleInterval, 60*time.Second),

		Rate:  common.GetEnvAsFloat(common.EnvKeyTentOSRate, 5),
		Burst: common.GetEnvAsInt(common.EnvKeyTentOSBurst, 10),

		RedisAddr:     common.GetEnv(common.EnvKeyTentOSRedisAddr, ""),
		RedisPassword: common.GetEnv(common.EnvKeyTentOSRedisPassword, ""),
		RedisDB:       common.GetEnvAsInt(common.EnvKeyTentOSRedisDB, 0),

		MQTTBroker:      common.GetEnv(common.EnvKeyTentOSMQTTBroker, ""),
		MQTTTopicPrefix: common.GetEnv(common.EnvKeyTentOSMQTTTopicPrefix, "tentos"),
	}

	if errs := settingsSchema.Validate(settings); errs != nil {
		return nil, fmt.Errorf("invalid settings: %v", errs)
	}

	return settings, nil
}

func resolveDataDir() string {
	if dir, found := os.LookupEnv(common.EnvKeyTentOSDataDir); found {
		return dir
	}
	if info, err := os.Stat(addonDataDir); err == nil && info.IsDir() {
		return addonDataDir
	}
	dir, err := os.Getwd()
	if err != nil {
		return "data"
	}
	return filepath.Join(dir, "data")
}

// WebSocketURL derives the Home Assistant websocket endpoint from HAURL.
func (s *Settings) WebSocketURL() string {
	url := strings.TrimSuffix(s.HAURL, "/")
	switch {
	case strings.HasPrefix(url, "https"):
		url = "wss" + strings.TrimPrefix(url, "https")
	case strings.HasPrefix(url, "http"):
		url = "ws" + strings.TrimPrefix(url, "http")
	}
	return url + "/api/websocket"
}
