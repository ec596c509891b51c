package http

import (
	"bytes"
	"fmt"
	"net/http"

	z "github.com/Oudwins/zog"
	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"liyu1981.xyz/smart-farm-service/pkg/models"
)

type ReadingRequest struct {
	SensorID string   `json:"sensorId" zog:"sensorId"`
	Value    *float64 `json:"value" zog:"value"`
}

var readingRequestSchema = z.Struct(z.Shape{
	"SensorID": z.String().Trim().Min(1).Required(),
	"Value":    z.Ptr(z.Float64()).NotNil(),
})

func (rs *RestfulServer) PostReading(c *gin.Context) {
	var req ReadingRequest
	if !bindAndValidate(c, readingRequestSchema, &req) {
		return
	}

	if !rs.CheckSensorLimiter(req.SensorID) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
		return
	}

	reading, err := rs.Iot.Reading.IngestReading(c.Request.Context(), req.SensorID, *req.Value)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, reading)
}

func (rs *RestfulServer) GetSensorReadings(c *gin.Context) {
	readings, err := rs.Iot.Reading.GetSensorReadings(c.Request.Context(), c.Param("sensorId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, readings)
}

func (rs *RestfulServer) ExportSensorReadings(c *gin.Context) {
	ctx := c.Request.Context()
	sensorID := c.Param("sensorId")

	sensor, err := rs.Iot.Sensor.GetSensor(ctx, sensorID)
	if err != nil {
		respondError(c, err)
		return
	}

	readings, err := rs.Iot.Reading.GetSensorReadings(ctx, sensorID)
	if err != nil {
		respondError(c, err)
		return
	}

	data, err := BuildReadingsXLSX(sensor, readings)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="readings-%s.xlsx"`, sensorID))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// BuildReadingsXLSX renders a sensor summary sheet and a readings sheet, newest first.
func BuildReadingsXLSX(sensor *models.Sensor, readings []models.Reading) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	summarySheet := "sensor"
	readingsSheet := "readings"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(readingsSheet); err != nil {
		return nil, err
	}

	summary := []sheetCell{
		{"A1", "Sensor"}, {"B1", sensor.ID},
		{"A2", "Field"}, {"B2", sensor.FieldID},
		{"A3", "Type"}, {"B3", string(sensor.SensorType)},
		{"A4", "Position"}, {"B4", sensor.Position},
		{"A5", "Last Value"}, {"B5", sensor.LastValue},
		{"A6", "Unit"}, {"B6", sensor.Unit},
	}
	if err := setCells(f, summarySheet, summary); err != nil {
		return nil, err
	}

	rows := make([]sheetCell, 0, 2*len(readings)+2)
	rows = append(rows, sheetCell{"A1", "Timestamp"}, sheetCell{"B1", fmt.Sprintf("Value (%s)", sensor.Unit)})
	for i, reading := range readings {
		row := i + 2
		rows = append(rows,
			sheetCell{fmt.Sprintf("A%d", row), reading.Timestamp.UTC().Format("2006-01-02 15:04:05")},
			sheetCell{fmt.Sprintf("B%d", row), reading.Value},
		)
	}
	if err := setCells(f, readingsSheet, rows); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type sheetCell struct {
	ref   string
	value any
}

// setCells stops at the first cell excelize rejects.
func setCells(f *excelize.File, sheet string, cells []sheetCell) error {
	for _, c := range cells {
		if err := f.SetCellValue(sheet, c.ref, c.value); err != nil {
			return fmt.Errorf("set %s!%s: %w", sheet, c.ref, err)
		}
	}
	return nil
}
