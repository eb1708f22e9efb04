package database

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ofie/server/internal/models"
)

// SeedData is a snapshot of listings, users and activity used to populate a
// fresh database for local runs and tests.
type SeedData struct {
	Listings      []models.Listing      `json:"listings"`
	Users         []models.User         `json:"users"`
	Applications  []models.Application  `json:"applications"`
	Favorites     []models.Favorite     `json:"favorites"`
	ViewingEvents []models.ViewingEvent `json:"viewing_events"`
}

// LoadSeedFile reads SeedData from a JSON file.
func LoadSeedFile(path string) (*SeedData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	var data SeedData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return &data, nil
}

// Seed writes the snapshot in a single transaction. Listings and users are
// upserted by ID; activity rows are appended.
func (d *Database) Seed(ctx context.Context, data *SeedData) error {
	if data == nil {
		return nil
	}
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := UpsertListings(tx, data.Listings); err != nil {
			return err
		}
		if len(data.Users) > 0 {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&data.Users).Error; err != nil {
				return fmt.Errorf("failed to upsert users: %w", err)
			}
		}
		if len(data.Applications) > 0 {
			if err := tx.Create(&data.Applications).Error; err != nil {
				return fmt.Errorf("failed to insert applications: %w", err)
			}
		}
		if len(data.Favorites) > 0 {
			if err := tx.Create(&data.Favorites).Error; err != nil {
				return fmt.Errorf("failed to insert favorites: %w", err)
			}
		}
		if len(data.ViewingEvents) > 0 {
			if err := tx.Create(&data.ViewingEvents).Error; err != nil {
				return fmt.Errorf("failed to insert viewing events: %w", err)
			}
		}
		return nil
	})
}

// UpsertListings inserts listings, replacing any existing row with the same ID.
func UpsertListings(tx *gorm.DB, listings []models.Listing) error {
	if len(listings) == 0 {
		return nil
	}
	if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).CreateInBatches(&listings, 100).Error; err != nil {
		return fmt.Errorf("failed to upsert listings: %w", err)
	}
	return nil
}
