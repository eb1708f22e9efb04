package database

import (
	"context"
	"fmt"

	"ofie/server/internal/models"
)

// ListingsMissingCoordinates returns listings with an address but no
// coordinates, ordered by ID.
func (d *Database) ListingsMissingCoordinates(ctx context.Context) ([]models.Listing, error) {
	var listings []models.Listing
	err := d.db.WithContext(ctx).
		Where("(latitude IS NULL OR longitude IS NULL) AND address <> ''").
		Order("id").
		Find(&listings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query listings without coordinates: %w", err)
	}
	return listings, nil
}

// UpdateListingCoordinates stores geocoded coordinates without touching updated_at.
func (d *Database) UpdateListingCoordinates(ctx context.Context, id int64, lat, lng float64) error {
	result := d.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{"latitude": lat, "longitude": lng})
	if result.Error != nil {
		return fmt.Errorf("failed to update coordinates for listing %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("listing %d: %w", id, ErrNotFound)
	}
	return nil
}
