package main

import (
	"context"
	"flag"
	"log"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"liyu1981.xyz/smart-farm-service/pkg/common"
	"liyu1981.xyz/smart-farm-service/pkg/db"
	"liyu1981.xyz/smart-farm-service/pkg/seed"
)

func main() {
	path := flag.String("file", "seed.yaml", "seed file to load")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using process environment")
	}

	cfg, err := common.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := common.GetLogger()

	f, err := seed.Load(*path)
	if err != nil {
		log.Fatalf("failed to load seed file %s: %v", *path, err)
	}

	dbInstance := db.GetInstance(db.DialectorFromConfig(cfg))
	result, err := seed.Apply(context.Background(), dbInstance.Conn, f)
	if err != nil {
		log.Fatalf("seeding failed: %v", err)
	}

	if result.Skipped {
		logger.Info("Store already has fields, nothing seeded")
		return
	}

	logger.Info("Seeding complete",
		zap.Int("fields", result.Fields),
		zap.Int("sensors", result.Sensors),
		zap.Strings("farm_ids", farmIDs(f)))
}

func farmIDs(f *seed.File) []string {
	ids := make([]string, 0, len(f.Farms))
	for _, farm := range f.Farms {
		ids = append(ids, farm.FarmID)
	}
	return ids
}
