package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SensorType string

const (
	SensorTypeMoisture    SensorType = "moisture"
	SensorTypeTemperature SensorType = "temperature"
	SensorTypeWaterLevel  SensorType = "waterLevel"
)

type WaterLevel string

const (
	WaterLevelLow    WaterLevel = "low"
	WaterLevelMedium WaterLevel = "medium"
	WaterLevelHigh   WaterLevel = "high"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

type AlertKind string

const (
	AlertKindMoistureLow       AlertKind = "moisture_low"
	AlertKindTemperatureHigh   AlertKind = "temperature_high"
	AlertKindWaterLevelLow     AlertKind = "water_level_low"
	AlertKindIrrigationStarted AlertKind = "irrigation_started"
	AlertKindIrrigationStopped AlertKind = "irrigation_stopped"
)

type Role string

const (
	RoleFarmer Role = "farmer"
	RoleExpert Role = "expert"
)

// Field is a monitored plot. Moisture, Temperature and WaterLevel are aggregates cached from
// the latest readings; the Irrigation* columns are owned by the irrigation scheduler and
// IrrigationRunID/IrrigationStopAt form the pending stop task of the current run.
type Field struct {
	ID       string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	FarmID   string `gorm:"type:varchar(64);uniqueIndex;not null" json:"farmId"`
	Name     string `gorm:"not null" json:"name"`
	Location string `gorm:"not null" json:"location"`
	Area     string `gorm:"default:'1 acre'" json:"area"`

	Moisture    float64    `json:"moisture"`
	Temperature float64    `json:"temperature"`
	WaterLevel  WaterLevel `gorm:"type:varchar(10);default:'medium';check:water_level IN ('low','medium','high')" json:"waterLevel"`

	Irrigating          bool       `gorm:"index" json:"irrigating"`
	IrrigationStartTime *time.Time `json:"irrigationStartTime,omitempty"`
	LastWatered         *time.Time `json:"lastWatered,omitempty"`
	IrrigationRunID     string     `gorm:"type:varchar(36)" json:"-"`
	IrrigationStopAt    *time.Time `json:"irrigationStopAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Sensors []Sensor `gorm:"foreignKey:FieldID;references:ID" json:"-"`
}

type Sensor struct {
	ID          string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	FieldID     string     `gorm:"type:varchar(36);index;not null" json:"fieldId"`
	SensorType  SensorType `gorm:"type:varchar(20);not null;check:sensor_type IN ('moisture','temperature','waterLevel')" json:"sensorType"`
	Position    string     `gorm:"default:'A1'" json:"position"`
	LastValue   float64    `json:"lastValue"`
	Unit        string     `json:"unit"`
	LastUpdated time.Time  `json:"lastUpdated"`
	Lat         *float64   `json:"lat,omitempty"`
	Lng         *float64   `json:"lng,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Readings []Reading `gorm:"foreignKey:SensorID;references:ID" json:"-"`
}

type Reading struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	SensorID  string    `gorm:"type:varchar(36);index;not null" json:"sensorId"`
	Value     float64   `json:"value"`
	Timestamp time.Time `gorm:"index" json:"timestamp"`
}

type Alert struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	FieldID   string    `gorm:"type:varchar(36);index;not null" json:"fieldId"`
	Kind      AlertKind `gorm:"type:varchar(32);index" json:"kind"`
	Message   string    `gorm:"not null" json:"message"`
	Severity  Severity  `gorm:"type:varchar(10);check:severity IN ('info','warning','critical')" json:"severity"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`

	Field *Field `gorm:"foreignKey:FieldID;references:ID" json:"field,omitempty"`
}

type User struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name         string    `gorm:"not null" json:"name"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Role         Role      `gorm:"type:varchar(10);default:'farmer';check:role IN ('farmer','expert')" json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (f *Field) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}

func (s *Sensor) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

func (r *Reading) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

func (a *Alert) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// AlertDraft is an alert not yet stored.
type AlertDraft struct {
	FieldID  string
	Kind     AlertKind
	Severity Severity
	Message  string
	// Dedup drops the alert when one of the same kind was stored for the field recently.
	Dedup bool
}

// FieldPatch is a partial field update, nil members are left untouched. Irrigation state is
// not patchable, it belongs to the irrigation scheduler.
type FieldPatch struct {
	Name        *string
	Location    *string
	Area        *string
	Moisture    *float64
	Temperature *float64
	WaterLevel  *WaterLevel
}

func (p FieldPatch) Columns() map[string]any {
	cols := map[string]any{}
	if p.Name != nil {
		cols["name"] = *p.Name
	}
	if p.Location != nil {
		cols["location"] = *p.Location
	}
	if p.Area != nil {
		cols["area"] = *p.Area
	}
	if p.Moisture != nil {
		cols["moisture"] = *p.Moisture
	}
	if p.Temperature != nil {
		cols["temperature"] = *p.Temperature
	}
	if p.WaterLevel != nil {
		cols["water_level"] = *p.WaterLevel
	}
	return cols
}
