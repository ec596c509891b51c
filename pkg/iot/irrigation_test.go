package iot

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liyu1981.xyz/smart-farm-service/pkg/common"
	"liyu1981.xyz/smart-farm-service/pkg/models"
	_ "liyu1981.xyz/smart-farm-service/pkg/testing"
)

func countAlerts(t *testing.T, iotObj *IOT, fieldID string, kind models.AlertKind) int64 {
	t.Helper()
	var n int64
	require.NoError(t, iotObj.Db.Conn.Model(&models.Alert{}).
		Where("field_id = ? AND kind = ?", fieldID, kind).
		Count(&n).Error)
	return n
}

func TestSweep_StartsDryFields(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, iotObj, _ := GetMockIOTWithMemorySqliteDialector(t, false, false, false)
	defer ctrl.Finish()

	ctx := context.Background()
	ir := iotObj.Irrigation.(*Irrigation)

	dry := newTestField(t, iotObj, 12)
	wet := newTestField(t, iotObj, 20)

	before := time.Now()
	started, err := ir.Sweep(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, started, 1)

	saved, err := iotObj.Field.GetField(ctx, dry.ID)
	require.NoError(t, err)
	assert.True(t, saved.Irrigating)
	require.NotNil(t, saved.IrrigationStartTime)
	assert.False(t, saved.IrrigationStartTime.Before(before.Truncate(time.Second)))
	assert.NotEmpty(t, saved.IrrigationRunID)
	require.NotNil(t, saved.IrrigationStopAt)
	assert.WithinDuration(t, saved.IrrigationStartTime.Add(iotObj.Settings.IrrigationDuration), *saved.IrrigationStopAt, time.Second)
	assert.True(t, ir.HasPendingStop(dry.ID))

	alerts, err := iotObj.Alert.GetFieldAlerts(ctx, dry.ID)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.SeverityInfo, alerts[0].Severity)
	assert.Equal(t, "Auto irrigation started for "+dry.Name, alerts[0].Message)

	notStarted, err := iotObj.Field.GetField(ctx, wet.ID)
	require.NoError(t, err)
	assert.False(t, notStarted.Irrigating)
	assert.False(t, ir.HasPendingStop(wet.ID))
}

func TestSweep_StartsOnce(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, iotObj, _ := GetMockIOTWithMemorySqliteDialector(t, false, false, false)
	defer ctrl.Finish()

	ctx := context.Background()
	ir := iotObj.Irrigation.(*Irrigation)
	field := newTestField(t, iotObj, 5)

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ir.Sweep(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	_, err := ir.Sweep(ctx)
	require.NoError(t, err)

	assert.EqualValues(t, 1, countAlerts(t, iotObj, field.ID, models.AlertKindIrrigationStarted))
}

func TestSweep_CompetingSchedulers(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, iotObj, _ := GetMockIOTWithMemorySqliteDialector(t, false, false, false)
	defer ctrl.Finish()

	ctx := context.Background()
	field := newTestField(t, iotObj, 5)

	first := iotObj.NewIrrigation()
	second := iotObj.NewIrrigation()
	defer first.Close()
	defer second.Close()

	var wg sync.WaitGroup
	for _, ir := range []*Irrigation{first, second} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ir.Sweep(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, countAlerts(t, iotObj, field.ID, models.AlertKindIrrigationStarted))
	assert.NotEqual(t, first.HasPendingStop(field.ID), second.HasPendingStop(field.ID))
}

func TestIrrigation_StopsAfterDuration(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, iotObj, _ := GetMockIOTWithMemorySqliteDialector(t, false, false, false)
	defer ctrl.Finish()

	iotObj.Settings.IrrigationDuration = 100 * time.Millisecond

	ctx := context.Background()
	ir := iotObj.Irrigation.(*Irrigation)
	field := newTestField(t, iotObj, 8)

	ch := iotObj.Broker.Subscribe()
	defer iotObj.Broker.Unsubscribe(ch)

	_, err := ir.Sweep(ctx)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		saved, err := iotObj.Field.GetField(ctx, field.ID)
		return err == nil && !saved.Irrigating && saved.LastWatered != nil
	}, 2*time.Second, 20*time.Millisecond)

	saved, err := iotObj.Field.GetField(ctx, field.ID)
	require.NoError(t, err)
	assert.Empty(t, saved.IrrigationRunID)
	assert.Nil(t, saved.IrrigationStopAt)
	assert.False(t, ir.HasPendingStop(field.ID))

	alerts, err := iotObj.Alert.GetFieldAlerts(ctx, field.ID)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, "Irrigation stopped for "+field.Name, alerts[0].Message)
	assert.Equal(t, "Auto irrigation started for "+field.Name, alerts[1].Message)

	var messages []string
	for len(messages) < 2 {
		select {
		case alert := <-ch:
			if alert.FieldID == field.ID {
				messages = append(messages, alert.Message)
			}
		case <-time.After(time.Second):
			t.Fatalf("expected two published alerts, got %v", messages)
		}
	}
	assert.Equal(t, []string{"Auto irrigation started for " + field.Name, "Irrigation stopped for " + field.Name}, messages)
}

func TestIrrigation_CancelKeepsIrrigating(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, iotObj, _ := GetMockIOTWithMemorySqliteDialector(t, false, false, false)
	defer ctrl.Finish()

	iotObj.Settings.IrrigationDuration = 50 * time.Millisecond

	ctx := context.Background()
	ir := iotObj.Irrigation.(*Irrigation)
	field := newTestField(t, iotObj, 8)

	_, err := ir.Sweep(ctx)
	require.NoError(t, err)
	ir.Cancel(field.ID)
	assert.False(t, ir.HasPendingStop(field.ID))

	time.Sleep(200 * time.Millisecond)

	saved, err := iotObj.Field.GetField(ctx, field.ID)
	require.NoError(t, err)
	assert.True(t, saved.Irrigating)
	assert.EqualValues(t, 0, countAlerts(t, iotObj, field.ID, models.AlertKindIrrigationStopped))

	// cancelling twice or an unknown field is a no-op
	ir.Cancel(field.ID)
	ir.Cancel(uuid.NewString())
}

func TestIrrigation_StopNow(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, iotObj, _ := GetMockIOTWithMemorySqliteDialector(t, false, false, false)
	defer ctrl.Finish()

	ctx := context.Background()
	ir := iotObj.Irrigation.(*Irrigation)
	field := newTestField(t, iotObj, 8)

	_, err := ir.Sweep(ctx)
	require.NoError(t, err)

	stopped, err := iotObj.Irrigation.StopNow(ctx, field.ID)
	require.NoError(t, err)
	assert.True(t, stopped)
	assert.False(t, ir.HasPendingStop(field.ID))

	saved, err := iotObj.Field.GetField(ctx, field.ID)
	require.NoError(t, err)
	assert.False(t, saved.Irrigating)
	assert.NotNil(t, saved.LastWatered)

	stopped, err = iotObj.Irrigation.StopNow(ctx, field.ID)
	require.NoError(t, err)
	assert.False(t, stopped)
	assert.EqualValues(t, 1, countAlerts(t, iotObj, field.ID, models.AlertKindIrrigationStopped))

	_, err = iotObj.Irrigation.StopNow(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIrrigation_StaleRunIgnored(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, iotObj, _ := GetMockIOTWithMemorySqliteDialector(t, false, false, false)
	defer ctrl.Finish()

	ctx := context.Background()
	ir := iotObj.Irrigation.(*Irrigation)
	field := newTestField(t, iotObj, 8)

	_, err := ir.Sweep(ctx)
	require.NoError(t, err)

	stopped, err := ir.stop(ctx, field.ID, uuid.NewString())
	require.NoError(t, err)
	assert.False(t, stopped)

	saved, err := iotObj.Field.GetField(ctx, field.ID)
	require.NoError(t, err)
	assert.True(t, saved.Irrigating)

	// a timer of an older run must not touch the pending stop of the current one
	ir.fire(field.ID, uuid.NewString())
	assert.True(t, ir.HasPendingStop(field.ID))
}

func TestIrrigation_Resume(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, iotObj, _ := GetMockIOTWithMemorySqliteDialector(t, false, false, false)
	defer ctrl.Finish()

	ctx := context.Background()
	ir := iotObj.Irrigation.(*Irrigation)

	pending := newTestField(t, iotObj, 50)
	overdue := newTestField(t, iotObj, 50)

	now := time.Now()
	for _, tc := range []struct {
		id     string
		stopAt time.Time
	}{
		{pending.ID, now.Add(150 * time.Millisecond)},
		{overdue.ID, now.Add(-time.Minute)},
	} {
		require.NoError(t, iotObj.Db.Conn.Model(&models.Field{}).Where("id = ?", tc.id).Updates(map[string]any{
			"irrigating":            true,
			"irrigation_start_time": now.Add(-time.Minute),
			"irrigation_run_id":     uuid.NewString(),
			"irrigation_stop_at":    tc.stopAt,
		}).Error)
	}

	armed, err := ir.Resume(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, armed, 1)
	assert.True(t, ir.HasPendingStop(pending.ID))
	assert.False(t, ir.HasPendingStop(overdue.ID))

	saved, err := iotObj.Field.GetField(ctx, overdue.ID)
	require.NoError(t, err)
	assert.False(t, saved.Irrigating)

	assert.Eventually(t, func() bool {
		saved, err := iotObj.Field.GetField(ctx, pending.ID)
		return err == nil && !saved.Irrigating
	}, 2*time.Second, 20*time.Millisecond)
}

func TestIrrigation_Close(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, iotObj, _ := GetMockIOTWithMemorySqliteDialector(t, false, false, false)
	defer ctrl.Finish()

	ctx := context.Background()
	ir := iotObj.NewIrrigation()
	field := newTestField(t, iotObj, 8)

	_, err := ir.Sweep(ctx)
	require.NoError(t, err)
	require.True(t, ir.HasPendingStop(field.ID))

	ir.Close()
	assert.Equal(t, 0, ir.PendingStops())

	// closed schedulers no longer arm timers
	ir.arm(field.ID, uuid.NewString(), time.Minute)
	assert.Equal(t, 0, ir.PendingStops())
}

func TestIrrigation_Run(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, iotObj, _ := GetMockIOTWithMemorySqliteDialector(t, false, false, false)
	defer ctrl.Finish()

	iotObj.Settings.IrrigationSweepInterval = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	ir := iotObj.Irrigation.(*Irrigation)
	field := newTestField(t, iotObj, 8)

	done := make(chan struct{})
	go func() {
		ir.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return ir.HasPendingStop(field.ID) }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestSweep_ConcurrentWithScheduledStops(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, iotObj, _ := GetMockIOTWithMemorySqliteDialector(t, false, false, false)
	defer ctrl.Finish()

	iotObj.Settings.IrrigationDuration = 5 * time.Millisecond

	ctx := context.Background()
	ir := iotObj.Irrigation.(*Irrigation)

	fields := make([]*models.Field, 3)
	for i := range fields {
		fields[i] = newTestField(t, iotObj, 8)
	}

	// stop timers fire while other sweeps are starting the same fields again
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 5 {
				_, err := ir.Sweep(ctx)
				assert.NoError(t, err)
				time.Sleep(3 * time.Millisecond)
			}
		}()
	}
	wg.Wait()

	for _, f := range fields {
		require.Eventually(t, func() bool {
			saved, err := iotObj.Field.GetField(ctx, f.ID)
			return err == nil && !saved.Irrigating
		}, 2*time.Second, 10*time.Millisecond)

		started := countAlerts(t, iotObj, f.ID, models.AlertKindIrrigationStarted)
		stopped := countAlerts(t, iotObj, f.ID, models.AlertKindIrrigationStopped)
		assert.GreaterOrEqual(t, started, int64(1))
		assert.Equal(t, started, stopped)
	}
}
