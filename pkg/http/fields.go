package http

import (
	"net/http"

	z "github.com/Oudwins/zog"
	"github.com/Oudwins/zog/zhttp"
	"github.com/gin-gonic/gin"
	"liyu1981.xyz/smart-farm-service/pkg/models"
)

var waterLevels = []string{
	string(models.WaterLevelLow),
	string(models.WaterLevelMedium),
	string(models.WaterLevelHigh),
}

type CreateFieldRequest struct {
	FarmID      string  `json:"farmId" zog:"farmId"`
	Name        string  `json:"name" zog:"name"`
	Location    string  `json:"location" zog:"location"`
	Area        string  `json:"area" zog:"area"`
	Moisture    float64 `json:"moisture" zog:"moisture"`
	Temperature float64 `json:"temperature" zog:"temperature"`
	WaterLevel  string  `json:"waterLevel" zog:"waterLevel"`
}

var createFieldRequestSchema = z.Struct(z.Shape{
	"FarmID":      z.String().Trim(),
	"Name":        z.String().Trim().Min(1).Required(),
	"Location":    z.String().Trim().Min(1).Required(),
	"Area":        z.String().Trim(),
	"Moisture":    z.Float64().GTE(0).LTE(100),
	"Temperature": z.Float64(),
	"WaterLevel":  z.String().OneOf(waterLevels),
})

type UpdateFieldRequest struct {
	Name        *string  `json:"name" zog:"name"`
	Location    *string  `json:"location" zog:"location"`
	Area        *string  `json:"area" zog:"area"`
	Moisture    *float64 `json:"moisture" zog:"moisture"`
	Temperature *float64 `json:"temperature" zog:"temperature"`
	WaterLevel  *string  `json:"waterLevel" zog:"waterLevel"`
}

var updateFieldRequestSchema = z.Struct(z.Shape{
	"Name":        z.Ptr(z.String().Trim().Min(1)),
	"Location":    z.Ptr(z.String().Trim().Min(1)),
	"Area":        z.Ptr(z.String().Trim()),
	"Moisture":    z.Ptr(z.Float64().GTE(0).LTE(100)),
	"Temperature": z.Ptr(z.Float64()),
	"WaterLevel":  z.Ptr(z.String().OneOf(waterLevels)),
})

func (req UpdateFieldRequest) patch() models.FieldPatch {
	p := models.FieldPatch{
		Name:        req.Name,
		Location:    req.Location,
		Area:        req.Area,
		Moisture:    req.Moisture,
		Temperature: req.Temperature,
	}
	if req.WaterLevel != nil {
		level := models.WaterLevel(*req.WaterLevel)
		p.WaterLevel = &level
	}
	return p
}

func (rs *RestfulServer) GetFields(c *gin.Context) {
	fields, err := rs.Iot.Field.GetFields(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fields)
}

func (rs *RestfulServer) GetFieldByFarmID(c *gin.Context) {
	field, err := rs.Iot.Field.GetFieldByFarmID(c.Request.Context(), c.Param("farmId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, field)
}

func (rs *RestfulServer) CreateField(c *gin.Context) {
	var req CreateFieldRequest
	if err := createFieldRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	field, err := rs.Iot.Field.CreateField(c.Request.Context(), &models.Field{
		FarmID:      req.FarmID,
		Name:        req.Name,
		Location:    req.Location,
		Area:        req.Area,
		Moisture:    req.Moisture,
		Temperature: req.Temperature,
		WaterLevel:  models.WaterLevel(req.WaterLevel),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, field)
}

func (rs *RestfulServer) UpdateField(c *gin.Context) {
	var req UpdateFieldRequest
	if !bindAndValidate(c, updateFieldRequestSchema, &req) {
		return
	}

	field, err := rs.Iot.Field.UpdateField(c.Request.Context(), c.Param("id"), req.patch())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, field)
}

func (rs *RestfulServer) DeleteField(c *gin.Context) {
	if err := rs.Iot.Field.DeleteField(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (rs *RestfulServer) StopIrrigation(c *gin.Context) {
	stopped, err := rs.Iot.Irrigation.StopNow(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stopped": stopped})
}
