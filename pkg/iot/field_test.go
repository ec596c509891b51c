package iot

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liyu1981.xyz/smart-farm-service/pkg/common"
	"liyu1981.xyz/smart-farm-service/pkg/models"
	_ "liyu1981.xyz/smart-farm-service/pkg/testing"
)

func TestGenerateFarmID(t *testing.T) {
	id := GenerateFarmID(time.UnixMilli(1718000123456))
	assert.Regexp(t, regexp.MustCompile(`^FARM123456\d{2}$`), id)
}

func TestCreateField_Defaults(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, iotObj, _ := GetMockIOTWithMemorySqliteDialector(t, false, false, false)
	defer ctrl.Finish()

	field, err := iotObj.Field.CreateField(context.Background(), &models.Field{
		Name:     "Green Valley",
		Location: "Pune",
		Moisture: 55,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, field.ID)
	assert.Regexp(t, `^FARM\d{8}$`, field.FarmID)
	assert.Equal(t, "1 acre", field.Area)
	assert.Equal(t, models.WaterLevelMedium, field.WaterLevel)
	assert.False(t, field.Irrigating)

	byFarm, err := iotObj.Field.GetFieldByFarmID(context.Background(), field.FarmID)
	require.NoError(t, err)
	assert.Equal(t, field.ID, byFarm.ID)
}

func TestCreateField_DuplicateFarmID(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, iotObj, _ := GetMockIOTWithMemorySqliteDialector(t, false, false, false)
	defer ctrl.Finish()

	farmID := "DUP-" + uuid.NewString()
	input := &models.Field{FarmID: farmID, Name: "One", Location: "Here", Moisture: 50}

	_, err := iotObj.Field.CreateField(context.Background(), input)
	require.NoError(t, err)

	_, err = iotObj.Field.CreateField(context.Background(), input)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestGetField_NotFound(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, iotObj, _ := GetMockIOTWithMemorySqliteDialector(t, false, false, false)
	defer ctrl.Finish()

	_, err := iotObj.Field.GetField(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = iotObj.Field.GetFieldByFarmID(context.Background(), "NOPE-"+uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateField(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, iotObj, _ := GetMockIOTWithMemorySqliteDialector(t, false, false, false)
	defer ctrl.Finish()

	ctx := context.Background()
	field := newTestField(t, iotObj, 50)

	location := "South Block"
	level := models.WaterLevelHigh
	updated, err := iotObj.Field.UpdateField(ctx, field.ID, models.FieldPatch{Location: &location, WaterLevel: &level})
	require.NoError(t, err)
	assert.Equal(t, location, updated.Location)
	assert.Equal(t, models.WaterLevelHigh, updated.WaterLevel)
	assert.Equal(t, field.Name, updated.Name)
	assert.Equal(t, 50.0, updated.Moisture)

	_, err = iotObj.Field.UpdateField(ctx, field.ID, models.FieldPatch{})
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = iotObj.Field.UpdateField(ctx, uuid.NewString(), models.FieldPatch{Location: &location})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetFields(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, iotObj, _ := GetMockIOTWithMemorySqliteDialector(t, false, false, false)
	defer ctrl.Finish()

	field := newTestField(t, iotObj, 50)

	fields, err := iotObj.Field.GetFields(context.Background())
	require.NoError(t, err)

	found := false
	for _, f := range fields {
		if f.ID == field.ID {
			found = true
		}
	}
	assert.True(t, found)
}

func TestDeleteField_Cascades(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, iotObj, _ := GetMockIOTWithMemorySqliteDialector(t, false, false, false)
	defer ctrl.Finish()

	ctx := context.Background()
	field := newTestField(t, iotObj, 50)
	sensor := newTestSensor(t, iotObj, field.ID, models.SensorTypeMoisture, 50)

	_, err := iotObj.Reading.IngestReading(ctx, sensor.ID, 10)
	require.NoError(t, err)

	// the reading left the field dry, so a sweep arms a pending stop
	ir := iotObj.Irrigation.(*Irrigation)
	_, err = ir.Sweep(ctx)
	require.NoError(t, err)
	require.True(t, ir.HasPendingStop(field.ID))

	require.NoError(t, iotObj.Field.DeleteField(ctx, field.ID))

	assert.False(t, ir.HasPendingStop(field.ID))

	_, err = iotObj.Field.GetField(ctx, field.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	var count int64
	require.NoError(t, iotObj.Db.Conn.Model(&models.Sensor{}).Where("field_id = ?", field.ID).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, iotObj.Db.Conn.Model(&models.Reading{}).Where("sensor_id = ?", sensor.ID).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, iotObj.Db.Conn.Model(&models.Alert{}).Where("field_id = ?", field.ID).Count(&count).Error)
	assert.Zero(t, count)

	assert.ErrorIs(t, iotObj.Field.DeleteField(ctx, field.ID), ErrNotFound)
}
