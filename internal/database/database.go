package database

import (
	"fmt"
	"log"

	"daily-flip/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Connect establishes a connection to the PostgreSQL database
func Connect(dsn string) error {
	var err error

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Error),
		DisableForeignKeyConstraintWhenMigrating: true,
	})

	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("Database connection established successfully")
	return nil
}

// AutoMigrate runs automatic migrations for all models
func AutoMigrate() error {
	return Migrate(DB)
}

// Migrate runs migrations against a specific gorm handle (used by tests
// and the migrate command).
func Migrate(db *gorm.DB) error {
	flipModels := []interface{}{
		&models.FlipRecord{},
		&models.PlayerBalance{},
		&models.BonusSpinGrant{},
		&models.TierAssignment{},
	}

	for _, model := range flipModels {
		if err := db.AutoMigrate(model); err != nil {
			log.Printf("Warning: migration issue for %T: %v", model, err)
		}
	}

	sweepstakesModels := []interface{}{
		&models.MonthlyEntry{},
		&models.MonthlyPrize{},
		&models.WinnerRecord{},
	}

	for _, model := range sweepstakesModels {
		if err := db.AutoMigrate(model); err != nil {
			log.Printf("Warning: migration issue for %T: %v", model, err)
		}
	}

	if err := db.AutoMigrate(&models.Withdrawal{}); err != nil {
		log.Printf("Warning: migration issue for %T: %v", &models.Withdrawal{}, err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}
