package db

import (
	"context"
	"log"
	"os"
	"sync"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	constant "liyu1981.xyz/smart-farm-service/pkg/common"
	"liyu1981.xyz/smart-farm-service/pkg/models"
)

type DB struct {
	Conn *gorm.DB
}

var (
	instance *DB
	once     sync.Once
)

func GetInstance(dialector gorm.Dialector) *DB {
	var logger = constant.GetLogger()
	once.Do(func() {
		conn, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
		if err != nil {
			log.Fatal("Failed to connect to database:", err)
		}

		logger.Info("Connected to database with dialector:", zap.String("dialector", dialector.Name()))

		instance = &DB{Conn: conn}

		if dialector.Name() == "sqlite" {
			// one connection: sqlite has a single writer, and the PRAGMAs below are per connection
			sqlDB, err := conn.DB()
			if err != nil {
				log.Fatal("Failed to get sqlite connection pool:", err)
			}
			sqlDB.SetMaxOpenConns(1)
		}

		err = instance.Conn.AutoMigrate(
			&models.Field{},
			&models.Sensor{},
			&models.Reading{},
			&models.Alert{},
			&models.User{},
		)
		if err != nil {
			log.Fatal("Failed to migrate database:", err)
		}

		logger.Info("Database migration completed")

		if dialector.Name() == "sqlite" {
			if err := instance.Conn.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
				log.Fatal("Failed to enable sqlite foreign key support", err)
			}

			if err := instance.Conn.Exec("PRAGMA journal_mode = WAL").Error; err != nil {
				log.Fatal("Failed to set sqlite journal mode", err)
			}
		}
	})
	return instance
}

// Ping is used by the health check.
func (d *DB) Ping(ctx context.Context) error {
	sqlDB, err := d.Conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func UseSqliteDialector() gorm.Dialector {
	var dbPath string
	var found bool
	if dbPath, found = os.LookupEnv(constant.EnvKeyFarmDbPath); !found {
		dbPath = "farm.db"
	}
	return sqlite.Open(dbPath)
}

func UseMemorySqliteDialector() gorm.Dialector {
	return sqlite.Open("file::memory:?cache=shared")
}

func UsePostgresDialector(dsn string) gorm.Dialector {
	return postgres.Open(dsn)
}

// DialectorFromConfig picks the dialector named by FARM_DB_TYPE.
func DialectorFromConfig(cfg *constant.Config) gorm.Dialector {
	switch cfg.DBType {
	case "memory":
		return UseMemorySqliteDialector()
	case "postgres":
		return UsePostgresDialector(cfg.DBDSN)
	default:
		return sqlite.Open(cfg.DBPath)
	}
}
