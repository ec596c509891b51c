package iot

import (
	"fmt"
	"math"
	"strconv"

	"liyu1981.xyz/smart-farm-service/pkg/models"
)

const (
	moistureCriticalBelow  = 20.0
	temperatureWarnAbove   = 35.0
	waterLevelLowBelow     = 30.0
	waterLevelMediumBelow  = 70.0
	temperatureDefaultBase = 25.0
)

// SensorKind holds everything that differs between sensor types. Adding a type means adding
// one implementation to sensorKinds.
type SensorKind interface {
	Type() models.SensorType
	Unit() string
	InitialValue() float64
	// Bounds is the clamp range of simulated values.
	Bounds() (lo, hi float64)
	// Step is the range of one simulated random-walk step.
	Step() (lo, hi float64)
	// Base is the value a simulated step starts from.
	Base(last float64) float64
	// Assess maps a reading to the field aggregate it updates and the alert it raises, if any.
	Assess(fieldID string, value float64) Assessment
}

type Assessment struct {
	Column string
	Value  any
	Alert  *models.AlertDraft
}

var sensorKinds = map[models.SensorType]SensorKind{
	models.SensorTypeMoisture:    moistureKind{},
	models.SensorTypeTemperature: temperatureKind{},
	models.SensorTypeWaterLevel:  waterLevelKind{},
}

func KindOf(t models.SensorType) (SensorKind, bool) {
	k, ok := sensorKinds[t]
	return k, ok
}

func SensorTypes() []models.SensorType {
	return []models.SensorType{
		models.SensorTypeMoisture,
		models.SensorTypeTemperature,
		models.SensorTypeWaterLevel,
	}
}

type moistureKind struct{}

func (moistureKind) Type() models.SensorType { return models.SensorTypeMoisture }
func (moistureKind) Unit() string { return "%" }
func (moistureKind) InitialValue() float64 { return 60 }
func (moistureKind) Bounds() (float64, float64) { return 0, 100 }
func (moistureKind) Step() (float64, float64) { return -6, 4 }
func (moistureKind) Base(last float64) float64 { return last }

func (moistureKind) Assess(fieldID string, value float64) Assessment {
	a := Assessment{Column: "moisture", Value: value}
	if value < moistureCriticalBelow {
		a.Alert = &models.AlertDraft{
			FieldID:  fieldID,
			Kind:     models.AlertKindMoistureLow,
			Severity: models.SeverityCritical,
			Message:  fmt.Sprintf("Critical: Moisture level is %s%%", formatValue(value)),
			Dedup:    true,
		}
	}
	return a
}

type temperatureKind struct{}

func (temperatureKind) Type() models.SensorType { return models.SensorTypeTemperature }
func (temperatureKind) Unit() string { return "°C" }
func (temperatureKind) InitialValue() float64 { return 25 }
func (temperatureKind) Bounds() (float64, float64) { return 15, 40 }
func (temperatureKind) Step() (float64, float64) { return -2, 2 }

func (temperatureKind) Base(last float64) float64 {
	if last == 0 {
		return temperatureDefaultBase
	}
	return last
}

func (temperatureKind) Assess(fieldID string, value float64) Assessment {
	a := Assessment{Column: "temperature", Value: value}
	if value > temperatureWarnAbove {
		a.Alert = &models.AlertDraft{
			FieldID:  fieldID,
			Kind:     models.AlertKindTemperatureHigh,
			Severity: models.SeverityWarning,
			Message:  fmt.Sprintf("Warning: High temperature %s°C", formatValue(value)),
			Dedup:    true,
		}
	}
	return a
}

type waterLevelKind struct{}

func (waterLevelKind) Type() models.SensorType { return models.SensorTypeWaterLevel }
func (waterLevelKind) Unit() string { return "%" }
func (waterLevelKind) InitialValue() float64 { return 70 }
func (waterLevelKind) Bounds() (float64, float64) { return 0, 100 }
func (waterLevelKind) Step() (float64, float64) { return -5, 3 }
func (waterLevelKind) Base(last float64) float64 { return last }

func (waterLevelKind) Assess(fieldID string, value float64) Assessment {
	level := WaterLevelBucket(value)
	a := Assessment{Column: "water_level", Value: level}
	if level == models.WaterLevelLow {
		a.Alert = &models.AlertDraft{
			FieldID:  fieldID,
			Kind:     models.AlertKindWaterLevelLow,
			Severity: models.SeverityWarning,
			Message:  "Warning: Water level is low",
			Dedup:    true,
		}
	}
	return a
}

func WaterLevelBucket(value float64) models.WaterLevel {
	switch {
	case value < waterLevelLowBelow:
		return models.WaterLevelLow
	case value < waterLevelMediumBelow:
		return models.WaterLevelMedium
	default:
		return models.WaterLevelHigh
	}
}

// NextValue is one bounded random-walk step, rounded to one decimal. rnd returns values in
// [0, 1). Unknown types yield 0.
func NextValue(t models.SensorType, last float64, rnd func() float64) float64 {
	kind, ok := KindOf(t)
	if !ok {
		return 0
	}

	stepLo, stepHi := kind.Step()
	delta := stepLo + rnd()*(stepHi-stepLo)

	lo, hi := kind.Bounds()
	return math.Round(clamp(kind.Base(last)+delta, lo, hi)*10) / 10
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
