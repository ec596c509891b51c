package db

import (
	"context"
	"sync"
	"testing"

	"liyu1981.xyz/smart-farm-service/pkg/common"
	_ "liyu1981.xyz/smart-farm-service/pkg/testing"

	"gorm.io/gorm"
)

func tableExists(db *gorm.DB, tableName string) bool {
	var count int64
	err := db.Raw(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name=?`, tableName,
	).Scan(&count).Error
	return err == nil && count > 0
}

func TestWithMemorySqlite(t *testing.T) {
	common.SetTestLoggerNop()

	dialector := UseMemorySqliteDialector()

	instance := GetInstance(dialector)
	if instance == nil {
		t.Fatal("Expected non-nil DB instance")
	}

	var tables = []string{"fields", "sensors", "readings", "alerts", "users"}
	for _, table := range tables {
		if !tableExists(instance.Conn, table) {
			t.Errorf("Expected table %q to exist after migration", table)
		}
	}

	if err := instance.Ping(context.Background()); err != nil {
		t.Errorf("Expected ping to succeed, got %v", err)
	}
}

func TestForeignKeysEnabled(t *testing.T) {
	common.SetTestLoggerNop()

	instance := GetInstance(UseMemorySqliteDialector())

	var enabled int
	if err := instance.Conn.Raw("PRAGMA foreign_keys").Scan(&enabled).Error; err != nil {
		t.Fatalf("Failed to read pragma: %v", err)
	}
	if enabled != 1 {
		t.Errorf("Expected foreign keys to be enforced, got %d", enabled)
	}
}

func TestSingletonConcurrency(t *testing.T) {
	common.SetTestLoggerNop()

	const goroutineCount = 20

	var wg sync.WaitGroup
	instances := make(chan *DB, goroutineCount)

	for range goroutineCount {
		wg.Add(1)
		go func() {
			defer wg.Done()
			instance := GetInstance(UseMemorySqliteDialector())
			instances <- instance
		}()
	}

	wg.Wait()
	close(instances)

	var first *DB
	for inst := range instances {
		if first == nil {
			first = inst
			continue
		}
		if inst != first {
			t.Error("Expected all instances to be the same (singleton), but found different ones")
		}
	}
}

func TestDialectorFromConfig(t *testing.T) {
	cases := []struct {
		cfg  common.Config
		name string
	}{
		{common.Config{DBType: "memory"}, "sqlite"},
		{common.Config{DBType: "file", DBPath: "farm-test.db"}, "sqlite"},
		{common.Config{DBType: "postgres", DBDSN: "host=localhost user=farm dbname=farm"}, "postgres"},
	}
	for _, c := range cases {
		if got := DialectorFromConfig(&c.cfg).Name(); got != c.name {
			t.Errorf("DBType %s: expected dialector %s, got %s", c.cfg.DBType, c.name, got)
		}
	}
}
