package common

const (
	EnvKeyGoEnv string = "GO_ENV"

	EnvKeyRunIntegrationTests string = "RUN_INTEGRATION_TESTS"

	EnvKeyTentOSDataDir string = "TENTOS_DATA_DIR"
	EnvKeyTentOSLogDir  string = "TENTOS_LOG_DIR"

	EnvKeyTentOSDBType string = "TENTOS_DB_TYPE"
	EnvKeyTentOSDbPath string = "TENTOS_DB_PATH"

	EnvKeyTentOSHttpHostPort string = "TENTOS_HTTP_HOST_PORT"

	EnvKeyTentOSRate  string = "TENTOS_RATE"
	EnvKeyTentOSBurst string = "TENTOS_BURST"

	EnvKeyTentOSAlertInterval    string = "TENTOS_ALERT_INTERVAL"
	EnvKeyTentOSHistoryInterval  string = "TENTOS_HISTORY_INTERVAL"
	EnvKeyTentOSScheduleInterval string = "TENTOS_SCHEDULE_INTERVAL"

	EnvKeyTentOSRedisAddr     string = "TENTOS_REDIS_ADDR"
	EnvKeyTentOSRedisPassword string = "TENTOS_REDIS_PASSWORD"
	EnvKeyTentOSRedisDB       string = "TENTOS_REDIS_DB"

	EnvKeyTentOSMQTTBroker      string = "TENTOS_MQTT_BROKER"
	EnvKeyTentOSMQTTTopicPrefix string = "TENTOS_MQTT_TOPIC_PREFIX"

	EnvKeyHAURL           string = "HA_URL"
	EnvKeySupervisorToken string = "SUPERVISOR_TOKEN"
	EnvKeyHassioToken     string = "HASSIO_TOKEN"

	LoggerNameStateManager   string = "state_manager"
	LoggerNameAutomation     string = "automation"
	LoggerNameHassClient     string = "hass_client"
	LoggerNameStore          string = "store"
	LoggerNameConfig         string = "config"
	LoggerNameRestfulServer  string = "restful_server"
	LoggerNameMQTTPublisher  string = "mqtt_publisher"
	LoggerFieldCategory      string = "category"
	LoggerCategoryEvent      string = "event"
	LoggerCategoryAlert      string = "alert"
	LoggerCategoryHistory    string = "history"
	LoggerCategoryBroadcast  string = "broadcast"
	LoggerCategoryReload     string = "reload"
	LoggerCategorySchedule   string = "schedule"
	LoggerCategoryAction     string = "action"
	LoggerCategoryRule       string = "rule"
	LoggerCategoryConnection string = "connection"
)
