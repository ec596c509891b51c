package iot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"liyu1981.xyz/smart-farm-service/pkg/common"
	"liyu1981.xyz/smart-farm-service/pkg/metrics"
	"liyu1981.xyz/smart-farm-service/pkg/models"
)

const irrigationStopTimeout = 10 * time.Second

type pendingStop struct {
	runID string
	timer *time.Timer
}

// Irrigation drives the IDLE -> IRRIGATING -> IDLE cycle of every field. The run id and stop
// time of the current cycle live on the field row, the in-process timers only decide when to
// act on them, so a restart can pick the cycle up again with Resume.
type Irrigation struct {
	iot *IOT

	sweepMu sync.Mutex

	mu      sync.Mutex
	pending map[string]*pendingStop
	closed  bool
}

func (i *IOT) NewIrrigation() *Irrigation {
	return &Irrigation{
		iot:     i,
		pending: make(map[string]*pendingStop),
	}
}

func irrigationLogger() *zap.Logger {
	return common.GetLoggerWith(
		common.LoggerNameFarmCore,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryIrrigation),
	)
}

// Run sweeps on every tick of the configured interval until ctx is done.
func (ir *Irrigation) Run(ctx context.Context) {
	logger := irrigationLogger()

	ticker := time.NewTicker(ir.iot.Settings.IrrigationSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := ir.Sweep(ctx); err != nil {
				logger.Error("Irrigation sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep starts irrigation on every idle field whose moisture is under the threshold and
// returns how many fields it started. Sweeps never overlap.
func (ir *Irrigation) Sweep(ctx context.Context) (int, error) {
	ir.sweepMu.Lock()
	defer ir.sweepMu.Unlock()

	logger := irrigationLogger()
	began := time.Now()
	defer func() { metrics.ObserveSweep(time.Since(began)) }()

	var candidates []models.Field
	err := ir.iot.Db.Conn.WithContext(ctx).
		Where("irrigating = ? AND moisture < ?", false, ir.iot.Settings.IrrigationMoistureThreshold).
		Find(&candidates).Error
	if err != nil {
		return 0, err
	}

	started := 0
	for _, field := range candidates {
		ok, err := ir.start(ctx, field)
		if err != nil {
			logger.Warn("Failed to start irrigation", zap.String("field_id", field.ID), zap.Error(err))
			continue
		}
		if ok {
			started++
		}
	}

	logger.Info("Irrigation sweep done", zap.Int("candidates", len(candidates)), zap.Int("started", started))
	return started, nil
}

// start flips the field to irrigating only if it is still idle and dry, so a field is started at
// most once no matter how many callers race on it.
func (ir *Irrigation) start(ctx context.Context, field models.Field) (bool, error) {
	if ir.iot.Alert == nil {
		return false, fmt.Errorf("alert service not available")
	}

	runID := uuid.NewString()
	now := time.Now()
	stopAt := now.Add(ir.iot.Settings.IrrigationDuration)

	var alert *models.Alert
	won := false

	err := ir.iot.Db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Field{}).
			Where("id = ? AND irrigating = ? AND moisture < ?", field.ID, false, ir.iot.Settings.IrrigationMoistureThreshold).
			Updates(map[string]any{
				"irrigating":            true,
				"irrigation_start_time": now,
				"irrigation_run_id":     runID,
				"irrigation_stop_at":    stopAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		won = true

		var err error
		alert, err = ir.iot.Alert.EmitAlert(tx, models.AlertDraft{
			FieldID:  field.ID,
			Kind:     models.AlertKindIrrigationStarted,
			Severity: models.SeverityInfo,
			Message:  fmt.Sprintf("Auto irrigation started for %s", field.Name),
		})
		return err
	})
	if err != nil || !won {
		return false, err
	}

	irrigationLogger().Info("Irrigation started",
		zap.String("field_id", field.ID),
		zap.String("run_id", runID),
		zap.Time("stop_at", stopAt),
	)
	metrics.IrrigationTransition(metrics.TransitionStart)
	ir.iot.Broker.Publish(alert)

	ir.arm(field.ID, runID, ir.iot.Settings.IrrigationDuration)
	return true, nil
}

// stop ends the run of fieldID. An empty runID ends whatever run is active. It reports false
// when there was no matching run to end.
func (ir *Irrigation) stop(ctx context.Context, fieldID string, runID string) (bool, error) {
	if ir.iot.Alert == nil {
		return false, fmt.Errorf("alert service not available")
	}

	now := time.Now()
	var alert *models.Alert
	stopped := false

	err := ir.iot.Db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var field models.Field
		if err := tx.First(&field, "id = ?", fieldID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("field %s: %w", fieldID, ErrNotFound)
			}
			return err
		}

		q := tx.Model(&models.Field{}).Where("id = ? AND irrigating = ?", fieldID, true)
		if runID != "" {
			q = q.Where("irrigation_run_id = ?", runID)
		}
		res := q.Updates(map[string]any{
			"irrigating":         false,
			"irrigation_run_id":  "",
			"irrigation_stop_at": nil,
			"last_watered":       now,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		stopped = true

		var err error
		alert, err = ir.iot.Alert.EmitAlert(tx, models.AlertDraft{
			FieldID:  fieldID,
			Kind:     models.AlertKindIrrigationStopped,
			Severity: models.SeverityInfo,
			Message:  fmt.Sprintf("Irrigation stopped for %s", field.Name),
		})
		return err
	})
	if err != nil || !stopped {
		return false, err
	}

	irrigationLogger().Info("Irrigation stopped", zap.String("field_id", fieldID), zap.String("run_id", runID))
	metrics.IrrigationTransition(metrics.TransitionStop)
	ir.iot.Broker.Publish(alert)
	return true, nil
}

func (ir *Irrigation) arm(fieldID string, runID string, after time.Duration) {
	ir.mu.Lock()
	defer ir.mu.Unlock()

	if ir.closed {
		return
	}
	if prev, ok := ir.pending[fieldID]; ok {
		prev.timer.Stop()
	}

	ps := &pendingStop{runID: runID}
	ps.timer = time.AfterFunc(after, func() { ir.fire(fieldID, runID) })
	ir.pending[fieldID] = ps
	metrics.SetPendingStops(len(ir.pending))
}

func (ir *Irrigation) fire(fieldID string, runID string) {
	ir.mu.Lock()
	ps, ok := ir.pending[fieldID]
	if !ok || ps.runID != runID {
		ir.mu.Unlock()
		return
	}
	delete(ir.pending, fieldID)
	metrics.SetPendingStops(len(ir.pending))
	ir.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), irrigationStopTimeout)
	defer cancel()

	if _, err := ir.stop(ctx, fieldID, runID); err != nil {
		irrigationLogger().Warn("Scheduled irrigation stop failed",
			zap.String("field_id", fieldID),
			zap.String("run_id", runID),
			zap.Error(err),
		)
	}
}

// Cancel drops the pending stop of fieldID, if any. The field row is left as it is.
func (ir *Irrigation) Cancel(fieldID string) {
	ir.mu.Lock()
	defer ir.mu.Unlock()

	if ps, ok := ir.pending[fieldID]; ok {
		ps.timer.Stop()
		delete(ir.pending, fieldID)
		metrics.SetPendingStops(len(ir.pending))
	}
}

// StopNow ends the active run of fieldID right away and drops its pending stop.
func (ir *Irrigation) StopNow(ctx context.Context, fieldID string) (bool, error) {
	ir.Cancel(fieldID)
	return ir.stop(ctx, fieldID, "")
}

// Resume re-arms the stop of every field left irrigating by a previous process. Runs already
// past their stop time are ended immediately. It returns how many stops were re-armed.
func (ir *Irrigation) Resume(ctx context.Context) (int, error) {
	logger := irrigationLogger()

	var fields []models.Field
	if err := ir.iot.Db.Conn.WithContext(ctx).Where("irrigating = ?", true).Find(&fields).Error; err != nil {
		return 0, err
	}

	now := time.Now()
	armed := 0
	for _, field := range fields {
		if field.IrrigationStopAt == nil || !field.IrrigationStopAt.After(now) {
			if _, err := ir.stop(ctx, field.ID, field.IrrigationRunID); err != nil {
				logger.Warn("Failed to end overdue irrigation", zap.String("field_id", field.ID), zap.Error(err))
			}
			continue
		}
		ir.arm(field.ID, field.IrrigationRunID, field.IrrigationStopAt.Sub(now))
		armed++
	}

	logger.Info("Irrigation resumed", zap.Int("irrigating", len(fields)), zap.Int("armed", armed))
	return armed, nil
}

func (ir *Irrigation) PendingStops() int {
	ir.mu.Lock()
	defer ir.mu.Unlock()
	return len(ir.pending)
}

func (ir *Irrigation) HasPendingStop(fieldID string) bool {
	ir.mu.Lock()
	defer ir.mu.Unlock()
	_, ok := ir.pending[fieldID]
	return ok
}

// Close stops all timers. Fields keep their irrigating state for the next Resume.
func (ir *Irrigation) Close() {
	ir.mu.Lock()
	defer ir.mu.Unlock()

	ir.closed = true
	for id, ps := range ir.pending {
		ps.timer.Stop()
		delete(ir.pending, id)
	}
	metrics.SetPendingStops(0)
}
