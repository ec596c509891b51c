package iot

import (
	"time"

	"liyu1981.xyz/smart-farm-service/pkg/common"
)

// Settings are the tunables of the farm core. The zero value is not usable, start from
// DefaultSettings.
type Settings struct {
	AlertDedupWindow time.Duration

	SimulatorStartupDelay time.Duration
	SimulatorInterval     time.Duration

	IrrigationSweepInterval     time.Duration
	IrrigationDuration          time.Duration
	IrrigationMoistureThreshold float64
}

func DefaultSettings() Settings {
	return Settings{
		AlertDedupWindow:            5 * time.Minute,
		SimulatorStartupDelay:       5 * time.Second,
		SimulatorInterval:           30 * time.Second,
		IrrigationSweepInterval:     time.Minute,
		IrrigationDuration:          2 * time.Minute,
		IrrigationMoistureThreshold: moistureCriticalBelow,
	}
}

func SettingsFromConfig(cfg *common.Config) Settings {
	return Settings{
		AlertDedupWindow:            cfg.AlertDedupWindow,
		SimulatorStartupDelay:       cfg.SimulatorStartupDelay,
		SimulatorInterval:           cfg.SimulatorInterval,
		IrrigationSweepInterval:     cfg.IrrigationSweepInterval,
		IrrigationDuration:          cfg.IrrigationDuration,
		IrrigationMoistureThreshold: cfg.IrrigationMoistureThreshold,
	}
}
