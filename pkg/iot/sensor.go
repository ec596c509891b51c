package iot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"liyu1981.xyz/smart-farm-service/pkg/common"
	"liyu1981.xyz/smart-farm-service/pkg/models"
)

func sensorLogger() *zap.Logger {
	return common.GetLoggerWith(
		common.LoggerNameFarmCore,
		zap.String(common.LoggerFieldCategory, common.LoggerCategorySensor),
	)
}

// createSensor attaches a sensor to an existing field. Unit and the starting LastValue come from
// the sensor kind, so callers only pick the type and position.
func (i *IOT) createSensor(ctx context.Context, input *models.Sensor) (*models.Sensor, error) {
	kind, ok := KindOf(input.SensorType)
	if !ok {
		return nil, fmt.Errorf("sensor type %q: %w", input.SensorType, ErrInvalid)
	}

	sensor := models.Sensor{
		FieldID:     input.FieldID,
		SensorType:  kind.Type(),
		Position:    input.Position,
		LastValue:   kind.InitialValue(),
		Unit:        kind.Unit(),
		LastUpdated: time.Now(),
		Lat:         input.Lat,
		Lng:         input.Lng,
	}
	if sensor.Position == "" {
		sensor.Position = "A1"
	}

	err := i.Db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Field{}).Where("id = ?", sensor.FieldID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("field %s: %w", sensor.FieldID, ErrNotFound)
		}
		return tx.Create(&sensor).Error
	})
	if err != nil {
		return nil, err
	}

	sensorLogger().Info("Created sensor",
		zap.String("id", sensor.ID),
		zap.String("field_id", sensor.FieldID),
		zap.String("sensor_type", string(sensor.SensorType)),
	)
	return &sensor, nil
}

func (i *IOT) getSensors(ctx context.Context) ([]models.Sensor, error) {
	var sensors []models.Sensor
	err := i.Db.Conn.WithContext(ctx).Order("created_at asc").Find(&sensors).Error
	return sensors, err
}

func (i *IOT) getFieldSensors(ctx context.Context, fieldID string) ([]models.Sensor, error) {
	var sensors []models.Sensor
	err := i.Db.Conn.WithContext(ctx).
		Where("field_id = ?", fieldID).
		Order("created_at asc").
		Find(&sensors).Error
	return sensors, err
}

func (i *IOT) getSensor(ctx context.Context, id string) (*models.Sensor, error) {
	var sensor models.Sensor
	err := i.Db.Conn.WithContext(ctx).First(&sensor, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("sensor %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &sensor, nil
}

func (i *IOT) deleteSensor(ctx context.Context, id string) error {
	err := i.Db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("sensor_id = ?", id).Delete(&models.Reading{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Sensor{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("sensor %s: %w", id, ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}

	sensorLogger().Info("Deleted sensor", zap.String("id", id))
	return nil
}

type ISensorImpl struct {
	iot *IOT
}

func (s *ISensorImpl) CreateSensor(ctx context.Context, input *models.Sensor) (*models.Sensor, error) {
	return s.iot.createSensor(ctx, input)
}

func (s *ISensorImpl) GetSensors(ctx context.Context) ([]models.Sensor, error) {
	return s.iot.getSensors(ctx)
}

func (s *ISensorImpl) GetFieldSensors(ctx context.Context, fieldID string) ([]models.Sensor, error) {
	return s.iot.getFieldSensors(ctx, fieldID)
}

func (s *ISensorImpl) GetSensor(ctx context.Context, id string) (*models.Sensor, error) {
	return s.iot.getSensor(ctx, id)
}

func (s *ISensorImpl) DeleteSensor(ctx context.Context, id string) error {
	return s.iot.deleteSensor(ctx, id)
}

func (i *IOT) GetISensor() ISensor {
	return &ISensorImpl{iot: i}
}
