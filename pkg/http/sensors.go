package http

import (
	"net/http"

	z "github.com/Oudwins/zog"
	"github.com/Oudwins/zog/zhttp"
	"github.com/gin-gonic/gin"
	"liyu1981.xyz/smart-farm-service/pkg/common"
	"liyu1981.xyz/smart-farm-service/pkg/iot"
	"liyu1981.xyz/smart-farm-service/pkg/models"
)

type CreateSensorRequest struct {
	FieldID    string   `json:"fieldId" zog:"fieldId"`
	SensorType string   `json:"sensorType" zog:"sensorType"`
	Position   string   `json:"position" zog:"position"`
	Lat        *float64 `json:"lat" zog:"lat"`
	Lng        *float64 `json:"lng" zog:"lng"`
}

var createSensorRequestSchema = z.Struct(z.Shape{
	"FieldID":    z.String().Trim().Min(1).Required(),
	"SensorType": z.String().OneOf(common.Mapper(iot.SensorTypes(), func(t models.SensorType) string { return string(t) })).Required(),
	"Position":   z.String().Trim(),
	"Lat":        z.Ptr(z.Float64().GTE(-90).LTE(90)),
	"Lng":        z.Ptr(z.Float64().GTE(-180).LTE(180)),
})

func (rs *RestfulServer) CreateSensor(c *gin.Context) {
	var req CreateSensorRequest
	if err := createSensorRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	sensor, err := rs.Iot.Sensor.CreateSensor(c.Request.Context(), &models.Sensor{
		FieldID:    req.FieldID,
		SensorType: models.SensorType(req.SensorType),
		Position:   req.Position,
		Lat:        req.Lat,
		Lng:        req.Lng,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, sensor)
}

func (rs *RestfulServer) GetFieldSensors(c *gin.Context) {
	sensors, err := rs.Iot.Sensor.GetFieldSensors(c.Request.Context(), c.Param("fieldId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sensors)
}

func (rs *RestfulServer) DeleteSensor(c *gin.Context) {
	if err := rs.Iot.Sensor.DeleteSensor(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type LimiterRequest struct {
	Rate  float64 `json:"rate" zog:"rate"`
	Burst int     `json:"burst" zog:"burst"`
}

var limiterRequestSchema = z.Struct(z.Shape{
	"Rate":  z.Float64().GT(0).Required(),
	"Burst": z.Int().GT(0).Required(),
})

// PostLimiter overrides the ingestion rate limit of one sensor. Without a limiter store it is
// accepted and has no effect.
func (rs *RestfulServer) PostLimiter(c *gin.Context) {
	var req LimiterRequest
	if err := limiterRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	rs.SetLimiter(c.Param("id"), req.Rate, req.Burst)

	c.Status(http.StatusOK)
}
