package models

import "time"

// Application is a rental application. Price, type and city are captured at the
// time of applying so later listing edits do not rewrite history.
type Application struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	UserID       int64     `json:"user_id" gorm:"index"`
	ListingID    int64     `json:"listing_id" gorm:"index"`
	Price        float64   `json:"price"`
	PropertyType string    `json:"property_type"`
	City         string    `json:"city"`
	CreatedAt    time.Time `json:"created_at"`
}

type Favorite struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	UserID    int64     `json:"user_id" gorm:"index"`
	ListingID int64     `json:"listing_id" gorm:"index"`
	CreatedAt time.Time `json:"created_at"`
}

type ViewingEvent struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	UserID    int64     `json:"user_id" gorm:"index"`
	ListingID int64     `json:"listing_id" gorm:"index"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

// ActivityHistory is everything one user has done, with the referenced listings
// resolved. Listings may be missing entries for deleted records.
type ActivityHistory struct {
	UserID       int64             `json:"user_id"`
	Applications []Application     `json:"applications"`
	Favorites    []Favorite        `json:"favorites"`
	Viewings     []ViewingEvent    `json:"viewings"`
	Listings     map[int64]Listing `json:"-"`
}

// Listing looks up a referenced listing.
func (h *ActivityHistory) Listing(id int64) (Listing, bool) {
	if h == nil || h.Listings == nil {
		return Listing{}, false
	}
	l, ok := h.Listings[id]
	return l, ok
}

// IsEmpty reports whether the user has no recorded activity.
func (h *ActivityHistory) IsEmpty() bool {
	return h == nil || len(h.Applications)+len(h.Favorites)+len(h.Viewings) == 0
}

// AppliedTo reports whether the user has applied to the listing.
func (h *ActivityHistory) AppliedTo(listingID int64) bool {
	if h == nil {
		return false
	}
	for _, a := range h.Applications {
		if a.ListingID == listingID {
			return true
		}
	}
	return false
}
