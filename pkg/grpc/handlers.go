package grpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	z "github.com/Oudwins/zog"
	"golang.org/x/time/rate"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/structpb"
	"liyu1981.xyz/smart-farm-service/pkg/common"
	"liyu1981.xyz/smart-farm-service/pkg/iot"
	"liyu1981.xyz/smart-farm-service/pkg/models"
)

func validateID(id *string) z.ZogIssueList {
	var idValidator = z.String().Min(1).Required()
	return idValidator.Validate(id)
}

func stringField(s *structpb.Struct, key string) string {
	if s == nil {
		return ""
	}
	return s.GetFields()[key].GetStringValue()
}

func numberField(s *structpb.Struct, key string) (float64, bool) {
	if s == nil {
		return 0, false
	}
	v, ok := s.GetFields()[key]
	if !ok {
		return 0, false
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, false
	}
	return n.NumberValue, true
}

func respond(success bool, message string, payload map[string]any) (*structpb.Struct, error) {
	body := map[string]any{
		"status": map[string]any{"success": success, "message": message},
	}
	for k, v := range payload {
		body[k] = v
	}
	out, err := structpb.NewStruct(body)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

func failure(message string) (*structpb.Struct, error) {
	return respond(false, message, nil)
}

// failureFrom reports domain errors as they are. Anything else is a store failure, which is
// logged and answered with a generic message.
func failureFrom(method string, err error) (*structpb.Struct, error) {
	for _, known := range []error{iot.ErrInvalid, iot.ErrUnauthorized, iot.ErrNotFound, iot.ErrConflict} {
		if errors.Is(err, known) {
			return failure(err.Error())
		}
	}
	common.GetLoggerWith(common.LoggerNameGrpcServer).Error("Request failed",
		zap.String("method", method),
		zap.Error(err),
	)
	return failure("internal server error")
}

func readingToMap(r models.Reading) map[string]any {
	return map[string]any{
		"id":        r.ID,
		"sensorId":  r.SensorID,
		"value":     r.Value,
		"timestamp": r.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

func alertToMap(a models.Alert) any {
	return map[string]any{
		"id":        a.ID,
		"fieldId":   a.FieldID,
		"kind":      string(a.Kind),
		"severity":  string(a.Severity),
		"message":   a.Message,
		"createdAt": a.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func (s *FarmServer) IngestReading(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sensorID := stringField(req, "sensorId")
	if err := validateID(&sensorID); err != nil {
		return failure(fmt.Sprintf("validation error: %v", err))
	}

	value, ok := numberField(req, "value")
	if !ok {
		return failure("validation error: value must be a number")
	}

	reading, err := s.Iot.Reading.IngestReading(ctx, sensorID, value)
	if err != nil {
		return failureFrom(FarmService_IngestReading_FullMethodName, err)
	}

	return respond(true, "OK", map[string]any{"reading": readingToMap(*reading)})
}

// ListAlerts returns the latest alerts of "fieldId", or the latest alerts of all fields when
// no field is given.
func (s *FarmServer) ListAlerts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var alerts []models.Alert
	var err error

	if fieldID := stringField(req, "fieldId"); fieldID != "" {
		alerts, err = s.Iot.Alert.GetFieldAlerts(ctx, fieldID)
	} else {
		alerts, err = s.Iot.Alert.GetAlerts(ctx)
	}
	if err != nil {
		return failureFrom(FarmService_ListAlerts_FullMethodName, err)
	}

	return respond(true, "OK", map[string]any{"alerts": common.Mapper(alerts, alertToMap)})
}

func (s *FarmServer) PostLimiter(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sensorID := stringField(req, "sensorId")
	if err := validateID(&sensorID); err != nil {
		return failure(fmt.Sprintf("validation error: %v", err))
	}

	sensorRate, ok := numberField(req, "rate")
	if !ok {
		return failure("validation error: rate must be a number")
	}
	var rateValidator = z.Float64().GT(0).Required()
	if err := rateValidator.Validate(&sensorRate); err != nil {
		return failure(fmt.Sprintf("validation error: %v", err))
	}

	burst, ok := numberField(req, "burst")
	if !ok {
		return failure("validation error: burst must be a number")
	}
	sensorBurst := int(burst)
	var burstValidator = z.Int().GT(0).Required()
	if err := burstValidator.Validate(&sensorBurst); err != nil {
		return failure(fmt.Sprintf("validation error: %v", err))
	}

	if s.RateLimiterStore == nil {
		return failure("RateLimiterStore is not used. No effect.")
	}

	s.RateLimiterStore.SetLimiter(sensorID, rate.Limit(sensorRate), sensorBurst)
	return respond(true, "OK", nil)
}
