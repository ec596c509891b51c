package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"liyu1981.xyz/smart-farm-service/pkg/common"
	"liyu1981.xyz/smart-farm-service/pkg/iot"
	"liyu1981.xyz/smart-farm-service/pkg/models"
)

type Sensor struct {
	Type      models.SensorType `yaml:"type"`
	Position  string            `yaml:"position"`
	LastValue *float64          `yaml:"last_value"`
}

type Farm struct {
	FarmID      string            `yaml:"farm_id"`
	Name        string            `yaml:"name"`
	Location    string            `yaml:"location"`
	Area        string            `yaml:"area"`
	Moisture    float64           `yaml:"moisture"`
	Temperature float64           `yaml:"temperature"`
	WaterLevel  models.WaterLevel `yaml:"water_level"`
	Sensors     []Sensor          `yaml:"sensors"`
}

type File struct {
	Farms []Farm `yaml:"farms"`
}

type Result struct {
	Skipped bool
	Fields  int
	Sensors int
}

// Load reads and validates a seed file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) validate() error {
	if len(f.Farms) == 0 {
		return errors.New("seed file has no farms")
	}

	seen := map[string]bool{}
	for idx, farm := range f.Farms {
		switch {
		case farm.FarmID == "":
			return fmt.Errorf("farm #%d: farm_id is required", idx+1)
		case seen[farm.FarmID]:
			return fmt.Errorf("farm %s: duplicated farm_id", farm.FarmID)
		case farm.Name == "" || farm.Location == "":
			return fmt.Errorf("farm %s: name and location are required", farm.FarmID)
		}
		seen[farm.FarmID] = true

		switch farm.WaterLevel {
		case "", models.WaterLevelLow, models.WaterLevelMedium, models.WaterLevelHigh:
		default:
			return fmt.Errorf("farm %s: unknown water_level %q", farm.FarmID, farm.WaterLevel)
		}

		for _, s := range farm.Sensors {
			if _, ok := iot.KindOf(s.Type); !ok {
				return fmt.Errorf("farm %s: unknown sensor type %q", farm.FarmID, s.Type)
			}
		}
	}
	return nil
}

// Apply inserts the farms and their sensors in one transaction. A store that already holds
// fields is left untouched.
func Apply(ctx context.Context, conn *gorm.DB, f *File) (Result, error) {
	logger := common.GetLoggerWith(
		common.LoggerNameFarmCore,
		zap.String(common.LoggerFieldCategory, common.LoggerCategorySeed),
	)

	var result Result

	err := conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Field{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			result.Skipped = true
			return nil
		}

		now := time.Now()
		for _, farm := range f.Farms {
			field := models.Field{
				FarmID:      farm.FarmID,
				Name:        farm.Name,
				Location:    farm.Location,
				Area:        farm.Area,
				Moisture:    farm.Moisture,
				Temperature: farm.Temperature,
				WaterLevel:  farm.WaterLevel,
			}
			if field.Area == "" {
				field.Area = "1 acre"
			}
			if field.WaterLevel == "" {
				field.WaterLevel = models.WaterLevelMedium
			}
			if err := tx.Create(&field).Error; err != nil {
				return fmt.Errorf("create farm %s: %w", farm.FarmID, err)
			}
			result.Fields++

			for _, s := range farm.Sensors {
				kind, _ := iot.KindOf(s.Type)
				sensor := models.Sensor{
					FieldID:     field.ID,
					SensorType:  kind.Type(),
					Position:    s.Position,
					LastValue:   kind.InitialValue(),
					Unit:        kind.Unit(),
					LastUpdated: now,
				}
				if s.LastValue != nil {
					sensor.LastValue = *s.LastValue
				}
				if sensor.Position == "" {
					sensor.Position = "A1"
				}
				if err := tx.Create(&sensor).Error; err != nil {
					return fmt.Errorf("create sensor %s of farm %s: %w", sensor.Position, farm.FarmID, err)
				}
				result.Sensors++
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	if result.Skipped {
		logger.Info("Store is not empty, seed skipped")
	} else {
		logger.Info("Seeded store", zap.Int("fields", result.Fields), zap.Int("sensors", result.Sensors))
	}
	return result, nil
}
