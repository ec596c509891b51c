package iot

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"liyu1981.xyz/smart-farm-service/pkg/common"
	"liyu1981.xyz/smart-farm-service/pkg/models"
)

// GenerateFarmID builds codes like FARM12345607 from the last six digits of the unix millis
// and two random digits.
func GenerateFarmID(now time.Time) string {
	ms := strconv.FormatInt(now.UnixMilli(), 10)
	if len(ms) > 6 {
		ms = ms[len(ms)-6:]
	}
	return fmt.Sprintf("FARM%s%02d", ms, rand.IntN(100))
}

func fieldLogger() *zap.Logger {
	return common.GetLoggerWith(
		common.LoggerNameFarmCore,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryField),
	)
}

func (i *IOT) getFields(ctx context.Context) ([]models.Field, error) {
	var fields []models.Field
	err := i.Db.Conn.WithContext(ctx).Order("created_at desc").Find(&fields).Error
	return fields, err
}

func (i *IOT) getField(ctx context.Context, column string, value string) (*models.Field, error) {
	var field models.Field
	err := i.Db.Conn.WithContext(ctx).First(&field, column+" = ?", value).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("field %s: %w", value, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &field, nil
}

func (i *IOT) createField(ctx context.Context, input *models.Field) (*models.Field, error) {
	logger := fieldLogger()

	field := models.Field{
		FarmID:      input.FarmID,
		Name:        input.Name,
		Location:    input.Location,
		Area:        input.Area,
		Moisture:    input.Moisture,
		Temperature: input.Temperature,
		WaterLevel:  input.WaterLevel,
	}
	if field.FarmID == "" {
		field.FarmID = GenerateFarmID(time.Now())
	}
	if field.WaterLevel == "" {
		field.WaterLevel = models.WaterLevelMedium
	}
	if field.Area == "" {
		field.Area = "1 acre"
	}

	logger.Info("Received field", zap.Reflect("field", field))

	if err := i.Db.Conn.WithContext(ctx).Create(&field).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("field with farmId %s: %w", field.FarmID, ErrConflict)
		}
		return nil, err
	}

	logger.Info("Created field", zap.String("id", field.ID), zap.String("farm_id", field.FarmID))
	return &field, nil
}

func (i *IOT) updateField(ctx context.Context, id string, patch models.FieldPatch) (*models.Field, error) {
	cols := patch.Columns()
	if len(cols) == 0 {
		return nil, fmt.Errorf("empty field update: %w", ErrInvalid)
	}

	res := i.Db.Conn.WithContext(ctx).Model(&models.Field{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("field %s: %w", id, ErrNotFound)
	}

	fieldLogger().Info("Updated field", zap.String("id", id), zap.Any("columns", cols))

	return i.getField(ctx, "id", id)
}

// deleteField removes the field with its sensors, their readings and its alerts, then drops a
// pending irrigation stop so it cannot write to the deleted row.
func (i *IOT) deleteField(ctx context.Context, id string) error {
	err := i.Db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sensorIDs := tx.Model(&models.Sensor{}).Select("id").Where("field_id = ?", id)
		if err := tx.Where("sensor_id IN (?)", sensorIDs).Delete(&models.Reading{}).Error; err != nil {
			return err
		}
		if err := tx.Where("field_id = ?", id).Delete(&models.Sensor{}).Error; err != nil {
			return err
		}
		if err := tx.Where("field_id = ?", id).Delete(&models.Alert{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Field{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("field %s: %w", id, ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if i.Irrigation != nil {
		i.Irrigation.Cancel(id)
	}

	fieldLogger().Info("Deleted field", zap.String("id", id))
	return nil
}

type IFieldImpl struct {
	iot *IOT
}

func (f *IFieldImpl) GetFields(ctx context.Context) ([]models.Field, error) {
	return f.iot.getFields(ctx)
}

func (f *IFieldImpl) GetField(ctx context.Context, id string) (*models.Field, error) {
	return f.iot.getField(ctx, "id", id)
}

func (f *IFieldImpl) GetFieldByFarmID(ctx context.Context, farmID string) (*models.Field, error) {
	return f.iot.getField(ctx, "farm_id", farmID)
}

func (f *IFieldImpl) CreateField(ctx context.Context, input *models.Field) (*models.Field, error) {
	return f.iot.createField(ctx, input)
}

func (f *IFieldImpl) UpdateField(ctx context.Context, id string, patch models.FieldPatch) (*models.Field, error) {
	return f.iot.updateField(ctx, id, patch)
}

func (f *IFieldImpl) DeleteField(ctx context.Context, id string) error {
	return f.iot.deleteField(ctx, id)
}

func (i *IOT) GetIField() IField {
	return &IFieldImpl{iot: i}
}
