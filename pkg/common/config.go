package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DBType string
	DBPath string
	DBDSN  string

	HttpHostPort string
	GrpcHostPort string

	DefaultRate  float64
	DefaultBurst int

	JwtSecret string
	JwtTTL    time.Duration

	AllowExpertSignup bool

	SimulatorEnabled      bool
	SimulatorStartupDelay time.Duration
	SimulatorInterval     time.Duration

	IrrigationEnabled           bool
	IrrigationSweepInterval     time.Duration
	IrrigationDuration          time.Duration
	IrrigationMoistureThreshold float64

	AlertDedupWindow time.Duration

	SeedFile string
}

// LoadConfig reads the process environment (after godotenv has populated it).
func LoadConfig() (*Config, error) {
	cfg := &Config{
		DBType:       envOr(EnvKeyFarmDBType, "file"),
		DBPath:       envOr(EnvKeyFarmDbPath, "farm.db"),
		DBDSN:        strings.TrimSpace(os.Getenv(EnvKeyFarmDbDSN)),
		HttpHostPort: envOr(EnvKeyFarmHttpHostPort, ":5001"),
		GrpcHostPort: strings.TrimSpace(os.Getenv(EnvKeyFarmGrpcHostPort)),
		JwtSecret:    strings.TrimSpace(os.Getenv(EnvKeyFarmJwtSecret)),
		SeedFile:     strings.TrimSpace(os.Getenv(EnvKeyFarmSeedFile)),
	}

	var err error

	if cfg.DefaultRate, err = strconv.ParseFloat(envOr(EnvKeyFarmDefaultRate, "5"), 64); err != nil {
		return nil, fmt.Errorf("invalid %s, should be a float64 value: %w", EnvKeyFarmDefaultRate, err)
	}
	if cfg.DefaultBurst, err = strconv.Atoi(envOr(EnvKeyFarmDefaultBurst, "10")); err != nil {
		return nil, fmt.Errorf("invalid %s, should be an int value: %w", EnvKeyFarmDefaultBurst, err)
	}
	if cfg.IrrigationMoistureThreshold, err = strconv.ParseFloat(envOr(EnvKeyFarmIrrigationMoistureThreshold, "20"), 64); err != nil {
		return nil, fmt.Errorf("invalid %s, should be a float64 value: %w", EnvKeyFarmIrrigationMoistureThreshold, err)
	}

	if cfg.SimulatorEnabled, err = strconv.ParseBool(envOr(EnvKeyFarmSimulatorEnabled, "true")); err != nil {
		return nil, fmt.Errorf("invalid %s, should be a bool value: %w", EnvKeyFarmSimulatorEnabled, err)
	}
	if cfg.IrrigationEnabled, err = strconv.ParseBool(envOr(EnvKeyFarmIrrigationEnabled, "true")); err != nil {
		return nil, fmt.Errorf("invalid %s, should be a bool value: %w", EnvKeyFarmIrrigationEnabled, err)
	}
	if cfg.AllowExpertSignup, err = strconv.ParseBool(envOr(EnvKeyFarmAllowExpertSignup, "false")); err != nil {
		return nil, fmt.Errorf("invalid %s, should be a bool value: %w", EnvKeyFarmAllowExpertSignup, err)
	}

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{EnvKeyFarmJwtTTL, "24h", &cfg.JwtTTL},
		{EnvKeyFarmSimulatorStartupDelay, "5s", &cfg.SimulatorStartupDelay},
		{EnvKeyFarmSimulatorInterval, "30s", &cfg.SimulatorInterval},
		{EnvKeyFarmIrrigationSweepInterval, "1m", &cfg.IrrigationSweepInterval},
		{EnvKeyFarmIrrigationDuration, "2m", &cfg.IrrigationDuration},
		{EnvKeyFarmAlertDedupWindow, "5m", &cfg.AlertDedupWindow},
	}
	for _, d := range durations {
		if *d.dst, err = time.ParseDuration(envOr(d.key, d.def)); err != nil {
			return nil, fmt.Errorf("invalid %s, should be a duration like 30s: %w", d.key, err)
		}
	}

	if cfg.SimulatorInterval <= 0 || cfg.IrrigationSweepInterval <= 0 {
		return nil, fmt.Errorf("timer intervals must be positive")
	}

	switch cfg.DBType {
	case "file", "memory":
	case "postgres":
		if cfg.DBDSN == "" {
			return nil, fmt.Errorf("%s is required when %s=postgres", EnvKeyFarmDbDSN, EnvKeyFarmDBType)
		}
	default:
		return nil, fmt.Errorf("unknown %s: %s", EnvKeyFarmDBType, cfg.DBType)
	}

	if cfg.JwtSecret == "" {
		if IsProduction() {
			return nil, fmt.Errorf("%s must be set in production", EnvKeyFarmJwtSecret)
		}
		cfg.JwtSecret = "dev-secret"
	}

	return cfg, nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
