package database

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ofie/server/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Database is the SQLite-backed listing, user and activity store.
type Database struct {
	db *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath+"?_foreign_keys=on&_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &Database{db: db}, nil
}

// NewTestDB opens a private in-memory database with the schema applied.
func NewTestDB() (*Database, error) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// Every connection to :memory: is a separate database.
	sqlDB.SetMaxOpenConns(1)

	if err := MigrateSchema(db); err != nil {
		return nil, err
	}
	return &Database{db: db}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *Database) GetDB() *gorm.DB {
	return d.db
}

// Ping verifies the database connection is alive.
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// ActiveListings returns every active and available listing ordered by ID.
func (d *Database) ActiveListings(ctx context.Context) ([]models.Listing, error) {
	var listings []models.Listing
	err := d.db.WithContext(ctx).
		Where("LOWER(status) = ? AND LOWER(availability) = ?", models.StatusActive, models.AvailabilityAvailable).
		Order("id").
		Find(&listings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query active listings: %w", err)
	}
	return listings, nil
}

func (d *Database) GetListing(ctx context.Context, id int64) (*models.Listing, error) {
	var listing models.Listing
	if err := d.db.WithContext(ctx).First(&listing, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("listing %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query listing %d: %w", id, err)
	}
	return &listing, nil
}

func (d *Database) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := d.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query user %d: %w", id, err)
	}
	return &user, nil
}

// UserHistory loads one user's activity with the referenced listings resolved.
func (d *Database) UserHistory(ctx context.Context, userID int64) (*models.ActivityHistory, error) {
	db := d.db.WithContext(ctx)
	history := &models.ActivityHistory{UserID: userID}

	if err := db.Where("user_id = ?", userID).Order("created_at, id").Find(&history.Applications).Error; err != nil {
		return nil, fmt.Errorf("failed to query applications: %w", err)
	}
	if err := db.Where("user_id = ?", userID).Order("created_at, id").Find(&history.Favorites).Error; err != nil {
		return nil, fmt.Errorf("failed to query favorites: %w", err)
	}
	if err := db.Where("user_id = ?", userID).Order("created_at, id").Find(&history.Viewings).Error; err != nil {
		return nil, fmt.Errorf("failed to query viewing events: %w", err)
	}

	ids := make([]int64, 0, len(history.Applications)+len(history.Favorites)+len(history.Viewings))
	for _, a := range history.Applications {
		ids = append(ids, a.ListingID)
	}
	for _, f := range history.Favorites {
		ids = append(ids, f.ListingID)
	}
	for _, v := range history.Viewings {
		ids = append(ids, v.ListingID)
	}
	listings, err := d.listingsByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	history.Listings = listings
	return history, nil
}

// PeerHistories loads the applications and favorites of every other user who
// has any. Viewings are not loaded for peers.
func (d *Database) PeerHistories(ctx context.Context, excludeUserID int64) ([]models.ActivityHistory, error) {
	db := d.db.WithContext(ctx)

	var apps []models.Application
	if err := db.Where("user_id <> ?", excludeUserID).Order("user_id, created_at, id").Find(&apps).Error; err != nil {
		return nil, fmt.Errorf("failed to query peer applications: %w", err)
	}
	var favs []models.Favorite
	if err := db.Where("user_id <> ?", excludeUserID).Order("user_id, created_at, id").Find(&favs).Error; err != nil {
		return nil, fmt.Errorf("failed to query peer favorites: %w", err)
	}

	byUser := make(map[int64]*models.ActivityHistory)
	peer := func(userID int64) *models.ActivityHistory {
		h, ok := byUser[userID]
		if !ok {
			h = &models.ActivityHistory{UserID: userID}
			byUser[userID] = h
		}
		return h
	}
	ids := make([]int64, 0, len(apps)+len(favs))
	for _, a := range apps {
		h := peer(a.UserID)
		h.Applications = append(h.Applications, a)
		ids = append(ids, a.ListingID)
	}
	for _, f := range favs {
		h := peer(f.UserID)
		h.Favorites = append(h.Favorites, f)
		ids = append(ids, f.ListingID)
	}

	listings, err := d.listingsByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	histories := make([]models.ActivityHistory, 0, len(byUser))
	for _, h := range byUser {
		h.Listings = listings
		histories = append(histories, *h)
	}
	sort.Slice(histories, func(i, j int) bool {
		return histories[i].UserID < histories[j].UserID
	})
	return histories, nil
}

func (d *Database) ViewingEventsSince(ctx context.Context, since time.Time) ([]models.ViewingEvent, error) {
	var events []models.ViewingEvent
	err := d.db.WithContext(ctx).
		Where("created_at >= ?", since).
		Order("created_at, id").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query viewing events: %w", err)
	}
	return events, nil
}

func (d *Database) listingsByID(ctx context.Context, ids []int64) (map[int64]models.Listing, error) {
	out := make(map[int64]models.Listing)
	if len(ids) == 0 {
		return out, nil
	}
	unique := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			unique = append(unique, id)
		}
	}

	var listings []models.Listing
	if err := d.db.WithContext(ctx).Where("id IN ?", unique).Find(&listings).Error; err != nil {
		return nil, fmt.Errorf("failed to resolve listings: %w", err)
	}
	for _, l := range listings {
		out[l.ID] = l
	}
	return out, nil
}
