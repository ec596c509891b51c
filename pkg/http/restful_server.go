package http

import (
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
	"liyu1981.xyz/smart-farm-service/pkg/auth"
	"liyu1981.xyz/smart-farm-service/pkg/iot"
	"liyu1981.xyz/smart-farm-service/pkg/models"
)

type RestfulServer struct {
	Server           *gin.Engine
	Iot              *iot.IOT
	Auth             *auth.Authenticator
	RateLimiterStore *iot.RateLimiterStore
	Upgrader         websocket.Upgrader

	AllowExpertSignup bool
}

func (rs *RestfulServer) GetLimiter(sensorID string) *rate.Limiter {
	if rs.RateLimiterStore == nil {
		return nil
	}
	return rs.RateLimiterStore.GetLimiter(sensorID)
}

func (rs *RestfulServer) CheckSensorLimiter(sensorID string) bool {
	limiter := rs.GetLimiter(sensorID)
	if limiter == nil {
		return true
	}
	return limiter.Allow()
}

func (rs *RestfulServer) SetLimiter(sensorID string, sensorRate float64, sensorBurst int) {
	if rs.RateLimiterStore == nil {
		return
	}
	rs.RateLimiterStore.SetLimiter(sensorID, rate.Limit(sensorRate), sensorBurst)
}

func (rs *RestfulServer) Setup() {
	rs.Server.GET("/healthz", rs.HealthCheck)
	rs.Server.GET("/metrics", gin.WrapH(promhttp.Handler()))

	expert := rs.Auth.RequireRole(models.RoleExpert)

	api := rs.Server.Group("/api")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", rs.Register)
		authGroup.POST("/login", rs.Login)
	}

	readings := api.Group("/readings")
	{
		readings.POST("", rs.PostReading)
		readings.GET("/:sensorId", rs.GetSensorReadings)
		readings.GET("/:sensorId/export.xlsx", rs.ExportSensorReadings)
	}

	fields := api.Group("/fields")
	{
		fields.GET("", rs.GetFields)
		fields.GET("/farm/:farmId", rs.GetFieldByFarmID)
		fields.POST("", expert, rs.CreateField)
		fields.PUT("/:id", expert, rs.UpdateField)
		fields.DELETE("/:id", expert, rs.DeleteField)
		fields.POST("/:id/irrigation/stop", expert, rs.StopIrrigation)
	}

	sensors := api.Group("/sensors")
	{
		sensors.POST("", expert, rs.CreateSensor)
		sensors.GET("/:fieldId", rs.GetFieldSensors)
		sensors.DELETE("/:id", expert, rs.DeleteSensor)
		sensors.POST("/:id/limiter", expert, rs.PostLimiter)
	}

	alerts := api.Group("/alerts")
	{
		alerts.GET("", rs.GetAlerts)
		alerts.GET("/stream", rs.StreamAlerts)
		alerts.GET("/:fieldId", rs.GetFieldAlerts)
	}
}
