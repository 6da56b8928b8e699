package main

import (
	"chatwave/config"
	"chatwave/logutils"
	"chatwave/seed"
	"chatwave/tenancy"
)

// Populates the two demo tenants. Safe to run repeatedly; see the
// seed package for the find-or-create rules.
func main() {
	logger := logutils.Component("seed")

	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	tenancyService := tenancy.NewService(config.DB, logutils.Component("tenancy"))
	seeder := seed.NewSeeder(config.DB, tenancyService, logger)

	if err := seeder.Run(); err != nil {
		logger.Fatalf("Seed aborted: %v", err)
	}
	logger.Info("Seed completed")
}
