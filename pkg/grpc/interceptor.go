package grpc

import (
	"context"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"liyu1981.xyz/smart-farm-service/pkg/common"
)

// CreateRateLimitInterceptor throttles the listed methods per "sensorId" of the request.
// Requests without a sensor id pass through and are rejected by validation instead.
func (s *FarmServer) CreateRateLimitInterceptor(targetMethods []string) grpc.UnaryServerInterceptor {
	targets := common.Reducer(targetMethods,
		func(m map[string]bool, method string) map[string]bool {
			m[method] = true
			return m
		},
		map[string]bool{},
	)

	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if targets[info.FullMethod] {
			if r, ok := req.(*structpb.Struct); ok {
				if sensorID := stringField(r, "sensorId"); sensorID != "" && !s.CheckSensorLimiter(sensorID) {
					common.GetLoggerWith(common.LoggerNameGrpcServer).
						Warn("Rate limit exceeded", zap.String("method", info.FullMethod), zap.String("sensor_id", sensorID))
					return nil, status.Errorf(codes.ResourceExhausted, "rate limit exceeded")
				}
			}
		}

		return handler(ctx, req)
	}
}
