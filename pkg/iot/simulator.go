package iot

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
	"liyu1981.xyz/smart-farm-service/pkg/common"
	"liyu1981.xyz/smart-farm-service/pkg/metrics"
)

// Simulator feeds every registered sensor with a random-walk reading through the regular
// ingestion path, so simulated data raises alerts and moves field aggregates like real data.
type Simulator struct {
	iot *IOT
	rnd func() float64
}

func (i *IOT) NewSimulator() *Simulator {
	return &Simulator{iot: i, rnd: rand.Float64}
}

// WithRand replaces the step source, rnd must return values in [0, 1).
func (s *Simulator) WithRand(rnd func() float64) *Simulator {
	s.rnd = rnd
	return s
}

func simulatorLogger() *zap.Logger {
	return common.GetLoggerWith(
		common.LoggerNameFarmCore,
		zap.String(common.LoggerFieldCategory, common.LoggerCategorySimulator),
	)
}

// RunCycle produces one reading per sensor and returns how many were stored. A sensor that
// fails is logged and skipped, only failing to list sensors fails the cycle.
func (s *Simulator) RunCycle(ctx context.Context) (int, error) {
	logger := simulatorLogger()

	sensors, err := s.iot.Sensor.GetSensors(ctx)
	if err != nil {
		metrics.SimulatorCycle(metrics.ResultError)
		return 0, err
	}

	stored := 0
	for _, sensor := range sensors {
		if ctx.Err() != nil {
			break
		}
		if _, ok := KindOf(sensor.SensorType); !ok {
			logger.Warn("Skipping sensor of unknown type", zap.String("sensor_id", sensor.ID), zap.String("sensor_type", string(sensor.SensorType)))
			continue
		}

		value := NextValue(sensor.SensorType, sensor.LastValue, s.rnd)
		if _, err := s.iot.Reading.IngestReading(ctx, sensor.ID, value); err != nil {
			logger.Warn("Simulated reading failed", zap.String("sensor_id", sensor.ID), zap.Error(err))
			metrics.SimulatorReading(metrics.ResultError)
			continue
		}
		metrics.SimulatorReading(metrics.ResultSuccess)
		stored++
	}

	metrics.SimulatorCycle(metrics.ResultSuccess)
	logger.Info("Simulation cycle done", zap.Int("sensors", len(sensors)), zap.Int("stored", stored))
	return stored, nil
}

// Run runs a cycle once the startup delay has passed and then on every interval counted from
// the call, so with 5s/30s the cycles land at 5s, 30s, 60s and so on.
func (s *Simulator) Run(ctx context.Context) {
	logger := simulatorLogger()

	ticker := time.NewTicker(s.iot.Settings.SimulatorInterval)
	defer ticker.Stop()

	delay := time.NewTimer(s.iot.Settings.SimulatorStartupDelay)
	defer delay.Stop()

	select {
	case <-ctx.Done():
		return
	case <-delay.C:
	}

	cycle := func() {
		if _, err := s.RunCycle(ctx); err != nil {
			logger.Error("Simulation cycle failed", zap.Error(err))
		}
	}
	cycle()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cycle()
		}
	}
}
