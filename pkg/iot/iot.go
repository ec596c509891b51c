package iot

//go:generate mockgen -source=iot.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"gorm.io/gorm"
	"liyu1981.xyz/smart-farm-service/pkg/db"
	"liyu1981.xyz/smart-farm-service/pkg/models"
)

type IReading interface {
	IngestReading(ctx context.Context, sensorID string, value float64) (*models.Reading, error)
	GetSensorReadings(ctx context.Context, sensorID string) ([]models.Reading, error)
}

type IAlert interface {
	// EmitAlert stores the alert inside tx and returns nil when it was suppressed as a duplicate.
	EmitAlert(tx *gorm.DB, draft models.AlertDraft) (*models.Alert, error)
	GetAlerts(ctx context.Context) ([]models.Alert, error)
	GetFieldAlerts(ctx context.Context, fieldID string) ([]models.Alert, error)
}

type IField interface {
	GetFields(ctx context.Context) ([]models.Field, error)
	GetField(ctx context.Context, id string) (*models.Field, error)
	GetFieldByFarmID(ctx context.Context, farmID string) (*models.Field, error)
	CreateField(ctx context.Context, input *models.Field) (*models.Field, error)
	UpdateField(ctx context.Context, id string, patch models.FieldPatch) (*models.Field, error)
	DeleteField(ctx context.Context, id string) error
}

type ISensor interface {
	CreateSensor(ctx context.Context, input *models.Sensor) (*models.Sensor, error)
	GetSensors(ctx context.Context) ([]models.Sensor, error)
	GetFieldSensors(ctx context.Context, fieldID string) ([]models.Sensor, error)
	GetSensor(ctx context.Context, id string) (*models.Sensor, error)
	DeleteSensor(ctx context.Context, id string) error
}

type IUser interface {
	Register(ctx context.Context, input *models.User, password string) (*models.User, error)
	Authenticate(ctx context.Context, email string, password string) (*models.User, error)
}

type IIrrigation interface {
	Sweep(ctx context.Context) (int, error)
	StopNow(ctx context.Context, fieldID string) (bool, error)
	Cancel(fieldID string)
}

type IOT struct {
	Db         db.DB
	Settings   Settings
	Broker     *AlertBroker
	Reading    IReading
	Alert      IAlert
	Field      IField
	Sensor     ISensor
	User       IUser
	Irrigation IIrrigation
}

type ServiceOpts struct {
	Reading    IReading
	Alert      IAlert
	Field      IField
	Sensor     ISensor
	User       IUser
	Irrigation IIrrigation
}

func (i *IOT) WithServices(opts ServiceOpts) *IOT {
	if opts.Reading != nil {
		i.Reading = opts.Reading
	}
	if opts.Alert != nil {
		i.Alert = opts.Alert
	}
	if opts.Field != nil {
		i.Field = opts.Field
	}
	if opts.Sensor != nil {
		i.Sensor = opts.Sensor
	}
	if opts.User != nil {
		i.User = opts.User
	}
	if opts.Irrigation != nil {
		i.Irrigation = opts.Irrigation
	}
	return i
}

// WithDefaultServices wires the database backed implementation of every service.
func (i *IOT) WithDefaultServices() *IOT {
	return i.WithServices(ServiceOpts{
		Reading:    i.GetIReading(),
		Alert:      i.GetIAlert(),
		Field:      i.GetIField(),
		Sensor:     i.GetISensor(),
		User:       i.GetIUser(),
		Irrigation: i.NewIrrigation(),
	})
}
