package iot

import (
	"bufio"
	"encoding/json"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"liyu1981.xyz/smart-farm-service/pkg/db"
	"liyu1981.xyz/smart-farm-service/pkg/iot/mocks"
	"liyu1981.xyz/smart-farm-service/pkg/models"
)

type mockServices struct {
	Reading *mocks.MockIReading
	Alert   *mocks.MockIAlert
	Sensor  *mocks.MockISensor
}

func GetMockIOTWithMemorySqliteDialector(t *testing.T, useMockIReading, useMockIAlert, useMockISensor bool) (
	*gomock.Controller,
	*IOT,
	mockServices,
) {
	ctrl := gomock.NewController(t)

	ms := mockServices{
		Reading: mocks.NewMockIReading(ctrl),
		Alert:   mocks.NewMockIAlert(ctrl),
		Sensor:  mocks.NewMockISensor(ctrl),
	}

	dialector := db.UseMemorySqliteDialector()
	dbInstance := db.GetInstance(dialector) // ensure migrations
	iotInstance := &IOT{
		Db:       *dbInstance,
		Settings: DefaultSettings(),
		Broker:   NewAlertBroker(),
	}
	iotInstance.WithDefaultServices()

	opts := ServiceOpts{}
	if useMockIReading {
		opts.Reading = ms.Reading
	}
	if useMockIAlert {
		opts.Alert = ms.Alert
	}
	if useMockISensor {
		opts.Sensor = ms.Sensor
	}
	iotInstance.WithServices(opts)

	t.Cleanup(func() {
		if ir, ok := iotInstance.Irrigation.(*Irrigation); ok {
			ir.Close()
		}
	})

	return ctrl, iotInstance, ms
}

// newTestField stores a field with a unique farm id straight through gorm.
func newTestField(t *testing.T, iotObj *IOT, moisture float64) *models.Field {
	t.Helper()
	field := &models.Field{
		FarmID:      "TEST-" + uuid.NewString(),
		Name:        "Field " + uuid.NewString()[:8],
		Location:    "North Block",
		Moisture:    moisture,
		Temperature: 25,
		WaterLevel:  models.WaterLevelMedium,
	}
	require.NoError(t, iotObj.Db.Conn.Create(field).Error)
	return field
}

func newTestSensor(t *testing.T, iotObj *IOT, fieldID string, sensorType models.SensorType, lastValue float64) *models.Sensor {
	t.Helper()
	sensor := &models.Sensor{
		FieldID:    fieldID,
		SensorType: sensorType,
		Position:   "A1",
		LastValue:  lastValue,
	}
	require.NoError(t, iotObj.Db.Conn.Create(sensor).Error)
	return sensor
}

func ParseLogs(r io.Reader) []any {
	scanner := bufio.NewScanner(r)
	var logs []any

	for scanner.Scan() {
		line := scanner.Text()
		var j any
		if err := json.Unmarshal([]byte(line), &j); err == nil {
			logs = append(logs, j)
		}
	}
	return logs
}

func findLog(logs []any, match func(lobj map[string]any) bool) bool {
	for _, log := range logs {
		if lobj, ok := log.(map[string]any); ok && match(lobj) {
			return true
		}
	}
	return false
}
