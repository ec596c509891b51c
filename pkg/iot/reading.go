package iot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"liyu1981.xyz/smart-farm-service/pkg/common"
	"liyu1981.xyz/smart-farm-service/pkg/metrics"
	"liyu1981.xyz/smart-farm-service/pkg/models"
)

const sensorReadingsLimit = 50

// ingestReading stores the reading, the sensor's cached value, the field aggregate and the
// threshold alert in one transaction. The aggregate is a partial update computed from the
// value alone, so concurrent writers of other field columns are not overwritten.
func (i *IOT) ingestReading(ctx context.Context, sensorID string, value float64) (*models.Reading, error) {
	logger := common.GetLoggerWith(
		common.LoggerNameFarmCore,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryReading),
	)

	if i.Alert == nil {
		return nil, fmt.Errorf("alert service not available")
	}

	now := time.Now()
	reading := models.Reading{
		SensorID:  sensorID,
		Value:     value,
		Timestamp: now,
	}

	logger.Info("Received reading for sensor", zap.Reflect("reading", reading))

	var sensorType models.SensorType
	var alert *models.Alert

	err := i.Db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sensor models.Sensor
		if err := tx.First(&sensor, "id = ?", sensorID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("sensor %s: %w", sensorID, ErrNotFound)
			}
			return err
		}
		sensorType = sensor.SensorType

		kind, ok := KindOf(sensor.SensorType)
		if !ok {
			return fmt.Errorf("sensor %s has unknown type %q: %w", sensorID, sensor.SensorType, ErrInvalid)
		}

		if err := tx.Create(&reading).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Sensor{}).
			Where("id = ?", sensorID).
			UpdateColumns(map[string]any{"last_value": value, "last_updated": now}).Error; err != nil {
			return err
		}

		assessment := kind.Assess(sensor.FieldID, value)

		if err := tx.Model(&models.Field{}).
			Where("id = ?", sensor.FieldID).
			Updates(map[string]any{assessment.Column: assessment.Value}).Error; err != nil {
			return err
		}

		if assessment.Alert != nil {
			var err error
			if alert, err = i.Alert.EmitAlert(tx, *assessment.Alert); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		logger.Warn("Failed to ingest reading", zap.String("sensor_id", sensorID), zap.Error(err))
		return nil, err
	}

	logger.Info("Stored reading for sensor", zap.Reflect("reading", reading))
	metrics.ReadingIngested(string(sensorType))

	i.Broker.Publish(alert)

	return &reading, nil
}

func (i *IOT) getSensorReadings(ctx context.Context, sensorID string) ([]models.Reading, error) {
	var readings []models.Reading
	err := i.Db.Conn.WithContext(ctx).
		Where("sensor_id = ?", sensorID).
		Order("timestamp desc").
		Limit(sensorReadingsLimit).
		Find(&readings).Error
	return readings, err
}

type IReadingImpl struct {
	iot *IOT
}

func (ir *IReadingImpl) IngestReading(ctx context.Context, sensorID string, value float64) (*models.Reading, error) {
	return ir.iot.ingestReading(ctx, sensorID, value)
}

func (ir *IReadingImpl) GetSensorReadings(ctx context.Context, sensorID string) ([]models.Reading, error) {
	return ir.iot.getSensorReadings(ctx, sensorID)
}

func (i *IOT) GetIReading() IReading {
	return &IReadingImpl{iot: i}
}
