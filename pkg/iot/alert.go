package iot

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"liyu1981.xyz/smart-farm-service/pkg/common"
	"liyu1981.xyz/smart-farm-service/pkg/metrics"
	"liyu1981.xyz/smart-farm-service/pkg/models"
)

const (
	fieldAlertsLimit  = 20
	globalAlertsLimit = 50
)

func (i *IOT) emitAlert(tx *gorm.DB, draft models.AlertDraft) (*models.Alert, error) {
	logger := common.GetLoggerWith(
		common.LoggerNameFarmCore,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryAlert),
	)

	now := time.Now()

	if draft.Dedup && i.Settings.AlertDedupWindow > 0 {
		var last models.Alert
		err := tx.
			Where("field_id = ? AND kind = ?", draft.FieldID, draft.Kind).
			Order("created_at desc").
			First(&last).Error

		switch {
		case err == nil:
			if now.Sub(last.CreatedAt) < i.Settings.AlertDedupWindow {
				logger.Info("Alert suppressed", zap.Reflect("draft", draft), zap.Time("last_alert_at", last.CreatedAt))
				metrics.AlertSuppressed(string(draft.Kind))
				return nil, nil
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, err
		}
	}

	alert := models.Alert{
		FieldID:   draft.FieldID,
		Kind:      draft.Kind,
		Message:   draft.Message,
		Severity:  draft.Severity,
		CreatedAt: now,
	}

	logger.Info("Alert found", zap.Reflect("alert", alert))

	if err := tx.Create(&alert).Error; err != nil {
		return nil, err
	}

	logger.Info("Alert saved", zap.Reflect("alert", alert))
	metrics.AlertEmitted(string(alert.Severity))

	return &alert, nil
}

func (i *IOT) getAlerts(ctx context.Context) ([]models.Alert, error) {
	var alerts []models.Alert
	err := i.Db.Conn.WithContext(ctx).
		Preload("Field").
		Order("created_at desc").
		Limit(globalAlertsLimit).
		Find(&alerts).Error
	return alerts, err
}

func (i *IOT) getFieldAlerts(ctx context.Context, fieldID string) ([]models.Alert, error) {
	var alerts []models.Alert
	err := i.Db.Conn.WithContext(ctx).
		Where("field_id = ?", fieldID).
		Order("created_at desc").
		Limit(fieldAlertsLimit).
		Find(&alerts).Error
	return alerts, err
}

type IAlertImpl struct {
	iot *IOT
}

func (ia *IAlertImpl) EmitAlert(tx *gorm.DB, draft models.AlertDraft) (*models.Alert, error) {
	return ia.iot.emitAlert(tx, draft)
}

func (ia *IAlertImpl) GetAlerts(ctx context.Context) ([]models.Alert, error) {
	return ia.iot.getAlerts(ctx)
}

func (ia *IAlertImpl) GetFieldAlerts(ctx context.Context, fieldID string) ([]models.Alert, error) {
	return ia.iot.getFieldAlerts(ctx, fieldID)
}

func (i *IOT) GetIAlert() IAlert {
	return &IAlertImpl{iot: i}
}
