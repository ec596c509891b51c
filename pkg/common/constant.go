package common

const (
	EnvKeyGoEnv string = "GO_ENV"

	EnvKeyRunIntegrationTests string = "RUN_INTEGRATION_TESTS"

	EnvKeyFarmDBType string = "FARM_DB_TYPE"
	EnvKeyFarmDbPath string = "FARM_DB_PATH"
	EnvKeyFarmDbDSN  string = "FARM_DB_DSN"

	EnvKeyFarmHttpHostPort string = "FARM_HTTP_HOST_PORT"
	EnvKeyFarmGrpcHostPort string = "FARM_GRPC_HOST_PORT"

	EnvKeyFarmDefaultRate  string = "FARM_DEFAULT_RATE"
	EnvKeyFarmDefaultBurst string = "FARM_DEFAULT_BURST"

	EnvKeyFarmJwtSecret string = "FARM_JWT_SECRET"
	EnvKeyFarmJwtTTL    string = "FARM_JWT_TTL"

	EnvKeyFarmAllowExpertSignup string = "FARM_ALLOW_EXPERT_SIGNUP"

	EnvKeyFarmSimulatorEnabled      string = "FARM_SIMULATOR_ENABLED"
	EnvKeyFarmSimulatorStartupDelay string = "FARM_SIMULATOR_STARTUP_DELAY"
	EnvKeyFarmSimulatorInterval     string = "FARM_SIMULATOR_INTERVAL"

	EnvKeyFarmIrrigationEnabled           string = "FARM_IRRIGATION_ENABLED"
	EnvKeyFarmIrrigationSweepInterval     string = "FARM_IRRIGATION_SWEEP_INTERVAL"
	EnvKeyFarmIrrigationDuration          string = "FARM_IRRIGATION_DURATION"
	EnvKeyFarmIrrigationMoistureThreshold string = "FARM_IRRIGATION_MOISTURE_THRESHOLD"

	EnvKeyFarmAlertDedupWindow string = "FARM_ALERT_DEDUP_WINDOW"

	EnvKeyFarmSeedFile string = "FARM_SEED_FILE"

	EnvKeyFarmLogDir        string = "FARM_LOG_DIR"
	EnvKeyFarmLogMaxSizeMB  string = "FARM_LOG_MAX_SIZE_MB"
	EnvKeyFarmLogMaxBackups string = "FARM_LOG_MAX_BACKUPS"
	EnvKeyFarmLogMaxAgeDays string = "FARM_LOG_MAX_AGE_DAYS"

	LoggerNameFarmCore      string = "farm_core"
	LoggerNameRestfulServer string = "restful_server"
	LoggerNameGrpcServer    string = "grpc_server"
	LoggerFieldCategory     string = "category"

	LoggerCategoryReading    string = "reading"
	LoggerCategoryAlert      string = "alert"
	LoggerCategoryField      string = "field"
	LoggerCategorySensor     string = "sensor"
	LoggerCategoryUser       string = "user"
	LoggerCategorySimulator  string = "simulator"
	LoggerCategoryIrrigation string = "irrigation"
	LoggerCategorySeed       string = "seed"
)
