package grpc

import (
	"golang.org/x/time/rate"

	"liyu1981.xyz/smart-farm-service/pkg/iot"
)

type FarmServer struct {
	Iot              *iot.IOT
	RateLimiterStore *iot.RateLimiterStore
	UnimplementedFarmServiceServer
}

func (s *FarmServer) GetLimiter(sensorID string) *rate.Limiter {
	if s.RateLimiterStore == nil {
		return nil
	}
	return s.RateLimiterStore.GetLimiter(sensorID)
}

func (s *FarmServer) CheckSensorLimiter(sensorID string) bool {
	limiter := s.GetLimiter(sensorID)
	if limiter == nil {
		return true
	}
	return limiter.Allow()
}
