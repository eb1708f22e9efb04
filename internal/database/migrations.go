package database

import (
	"fmt"

	"gorm.io/gorm"

	"ofie/server/internal/models"
)

// MigrateSchema creates or updates every table the stores read from.
func MigrateSchema(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Listing{},
		&models.User{},
		&models.Application{},
		&models.Favorite{},
		&models.ViewingEvent{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	// Coordinates are looked up together by the proximity filter.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_listings_coordinates
		ON listings(latitude, longitude);
	`).Error; err != nil {
		return fmt.Errorf("failed to create coordinates index: %w", err)
	}

	return nil
}

func (d *Database) RunMigrations() error {
	return MigrateSchema(d.db)
}
