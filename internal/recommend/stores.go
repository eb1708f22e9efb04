package recommend

import (
	"context"
	"time"

	"ofie/server/internal/models"
)

// ListingStore is the read side of the listing data store.
type ListingStore interface {
	// ActiveListings returns listings that are active and available. The core
	// re-checks the invariant, so stores may over-fetch.
	ActiveListings(ctx context.Context) ([]models.Listing, error)

	GetListing(ctx context.Context, id int64) (*models.Listing, error)
}

// ActivityStore is the read side of the user-activity store.
type ActivityStore interface {
	// UserHistory returns one user's applications, favorites and viewings with
	// the referenced listings resolved.
	UserHistory(ctx context.Context, userID int64) (*models.ActivityHistory, error)

	// PeerHistories returns the histories of every other user with at least one
	// application or favorite.
	PeerHistories(ctx context.Context, excludeUserID int64) ([]models.ActivityHistory, error)

	ViewingEventsSince(ctx context.Context, since time.Time) ([]models.ViewingEvent, error)
}
