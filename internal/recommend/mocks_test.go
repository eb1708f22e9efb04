package recommend

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"ofie/server/internal/models"
)

// MockListingStore is a mock implementation of the ListingStore interface
type MockListingStore struct {
	mock.Mock
}

func (m *MockListingStore) ActiveListings(ctx context.Context) ([]models.Listing, error) {
	args := m.Called(ctx)
	listings, _ := args.Get(0).([]models.Listing)
	return listings, args.Error(1)
}

func (m *MockListingStore) GetListing(ctx context.Context, id int64) (*models.Listing, error) {
	args := m.Called(ctx, id)
	listing, _ := args.Get(0).(*models.Listing)
	return listing, args.Error(1)
}

// MockActivityStore is a mock implementation of the ActivityStore interface
type MockActivityStore struct {
	mock.Mock
}

func (m *MockActivityStore) UserHistory(ctx context.Context, userID int64) (*models.ActivityHistory, error) {
	args := m.Called(ctx, userID)
	history, _ := args.Get(0).(*models.ActivityHistory)
	return history, args.Error(1)
}

func (m *MockActivityStore) PeerHistories(ctx context.Context, excludeUserID int64) ([]models.ActivityHistory, error) {
	args := m.Called(ctx, excludeUserID)
	histories, _ := args.Get(0).([]models.ActivityHistory)
	return histories, args.Error(1)
}

func (m *MockActivityStore) ViewingEventsSince(ctx context.Context, since time.Time) ([]models.ViewingEvent, error) {
	args := m.Called(ctx, since)
	events, _ := args.Get(0).([]models.ViewingEvent)
	return events, args.Error(1)
}

var testNow = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

func boolPtr(b bool) *bool { return &b }

func intPtr(i int) *int { return &i }

func floatPtr(f float64) *float64 { return &f }

func fixedClock() func() time.Time { return func() time.Time { return testNow } }

// newListing builds an active, available listing.
func newListing(id int64, propertyType, city string, price float64, bedrooms int) models.Listing {
	return models.Listing{
		ID:           id,
		Title:        propertyType + " in " + city,
		PropertyType: propertyType,
		City:         city,
		Price:        price,
		Bedrooms:     bedrooms,
		Bathrooms:    1,
		Status:       models.StatusActive,
		Availability: models.AvailabilityAvailable,
		CreatedAt:    testNow.Add(-30 * 24 * time.Hour),
		UpdatedAt:    testNow.Add(-24 * time.Hour),
	}
}

func viewEvents(listingID int64, n int, at time.Time) []models.ViewingEvent {
	out := make([]models.ViewingEvent, n)
	for i := range out {
		out[i] = models.ViewingEvent{UserID: int64(100 + i), ListingID: listingID, CreatedAt: at}
	}
	return out
}

// newTestRecommender wires mocks that accept any call. Pass nil to get empty
// defaults for activity.
func newTestRecommender(listings []models.Listing, history *models.ActivityHistory, peers []models.ActivityHistory, events []models.ViewingEvent) (*Recommender, *MockListingStore, *MockActivityStore) {
	ls := new(MockListingStore)
	ls.On("ActiveListings", mock.Anything).Return(listings, nil).Maybe()

	as := new(MockActivityStore)
	if history == nil {
		history = &models.ActivityHistory{}
	}
	as.On("UserHistory", mock.Anything, mock.Anything).Return(history, nil).Maybe()
	as.On("PeerHistories", mock.Anything, mock.Anything).Return(peers, nil).Maybe()
	as.On("ViewingEventsSince", mock.Anything, mock.Anything).Return(events, nil).Maybe()

	r, err := NewRecommender(ls, as, nil, nil, WithClock(fixedClock()))
	if err != nil {
		panic(err)
	}
	return r, ls, as
}
