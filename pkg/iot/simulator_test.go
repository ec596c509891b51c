package iot

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"liyu1981.xyz/smart-farm-service/pkg/common"
	"liyu1981.xyz/smart-farm-service/pkg/models"
	_ "liyu1981.xyz/smart-farm-service/pkg/testing"
)

func TestSimulator_RunCycle(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, iotObj, ms := GetMockIOTWithMemorySqliteDialector(t, true, false, true)
	defer ctrl.Finish()

	ctx := context.Background()
	sensors := []models.Sensor{
		{ID: "s-moisture", SensorType: models.SensorTypeMoisture, LastValue: 65},
		{ID: "s-temperature", SensorType: models.SensorTypeTemperature, LastValue: 0},
		{ID: "s-broken", SensorType: models.SensorTypeWaterLevel, LastValue: 50},
		{ID: "s-unknown", SensorType: "humidity", LastValue: 10},
	}

	ms.Sensor.EXPECT().GetSensors(gomock.Any()).Return(sensors, nil).Times(1)
	ms.Reading.EXPECT().IngestReading(gomock.Any(), "s-moisture", 64.0).Return(&models.Reading{}, nil).Times(1)
	ms.Reading.EXPECT().IngestReading(gomock.Any(), "s-temperature", 25.0).Return(&models.Reading{}, nil).Times(1)
	ms.Reading.EXPECT().IngestReading(gomock.Any(), "s-broken", 49.0).Return(nil, ErrNotFound).Times(1)

	stored, err := iotObj.NewSimulator().WithRand(fixed(0.5)).RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stored)
}

func TestSimulator_RunCycleListFails(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, iotObj, ms := GetMockIOTWithMemorySqliteDialector(t, true, false, true)
	defer ctrl.Finish()

	ms.Sensor.EXPECT().GetSensors(gomock.Any()).Return(nil, errors.New("db gone")).Times(1)

	_, err := iotObj.NewSimulator().RunCycle(context.Background())
	require.EqualError(t, err, "db gone")
}

func TestSimulator_RunCycleStoresReadings(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, iotObj, _ := GetMockIOTWithMemorySqliteDialector(t, false, false, false)
	defer ctrl.Finish()

	ctx := context.Background()
	field := newTestField(t, iotObj, 50)
	sensor := newTestSensor(t, iotObj, field.ID, models.SensorTypeMoisture, 65)

	stored, err := iotObj.NewSimulator().WithRand(fixed(0.5)).RunCycle(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stored, 1)

	readings, err := iotObj.Reading.GetSensorReadings(ctx, sensor.ID)
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, 64.0, readings[0].Value)

	saved, err := iotObj.Field.GetField(ctx, field.ID)
	require.NoError(t, err)
	assert.Equal(t, 64.0, saved.Moisture)
}

func TestSimulator_Run(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, iotObj, ms := GetMockIOTWithMemorySqliteDialector(t, true, false, true)
	defer ctrl.Finish()

	iotObj.Settings.SimulatorStartupDelay = 10 * time.Millisecond
	iotObj.Settings.SimulatorInterval = 20 * time.Millisecond

	var cycles atomic.Int32
	ms.Sensor.EXPECT().GetSensors(gomock.Any()).DoAndReturn(func(context.Context) ([]models.Sensor, error) {
		cycles.Add(1)
		return nil, nil
	}).AnyTimes()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		iotObj.NewSimulator().Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return cycles.Load() >= 3 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestSimulator_RunIntervalCountsFromStart(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, iotObj, ms := GetMockIOTWithMemorySqliteDialector(t, true, false, true)
	defer ctrl.Finish()

	iotObj.Settings.SimulatorStartupDelay = 100 * time.Millisecond
	iotObj.Settings.SimulatorInterval = 200 * time.Millisecond

	var cycles atomic.Int32
	ms.Sensor.EXPECT().GetSensors(gomock.Any()).DoAndReturn(func(context.Context) ([]models.Sensor, error) {
		cycles.Add(1)
		return nil, nil
	}).AnyTimes()

	// cycles at 100ms and 200ms; an interval counted from the first cycle would give only one
	ctx, cancel := context.WithTimeout(context.Background(), 280*time.Millisecond)
	defer cancel()
	iotObj.NewSimulator().Run(ctx)

	assert.Equal(t, int32(2), cycles.Load())
}

func TestSimulator_RunStopsBeforeStartup(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, iotObj, _ := GetMockIOTWithMemorySqliteDialector(t, true, false, true)
	defer ctrl.Finish()

	iotObj.Settings.SimulatorStartupDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// no GetSensors expectation, a cycle would fail the mock controller
	iotObj.NewSimulator().Run(ctx)
}
