// vcseed fills an empty database with demo visit history.
package main

import (
	"context"
	"log"

	"visitcounter/internal/config"
	"visitcounter/internal/database"
	"visitcounter/internal/logging"
	"visitcounter/internal/persistence"
	"visitcounter/internal/seeder"
)

func main() {
	cfg := config.GetConfig()
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed demo data in production")
	}

	logger := logging.NewLogger(cfg, nil)

	dbManager := database.NewDBManager(cfg, logger)
	if err := dbManager.Init(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer dbManager.Close()

	if err := dbManager.MigrateDatabase(&persistence.Visit{}); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	s := seeder.NewSeeder(dbManager, logger, cfg.PrivateKey, cfg.GetLocation())
	if err := s.Run(context.Background()); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("Demo data seeded")
}
