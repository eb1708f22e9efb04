package recommend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ofie/server/internal/models"
)

func daysAgo(d int) time.Time {
	return testNow.Add(-time.Duration(d) * 24 * time.Hour)
}

func TestExtract_NoUserNoHistory(t *testing.T) {
	e := NewPreferenceExtractor(nil)
	profile := e.Extract(nil, nil)

	assert.Empty(t, profile.PreferredLocations)
	assert.Empty(t, profile.PreferredPropertyTypes)
	assert.Nil(t, profile.PriceRange)
	assert.Nil(t, profile.BudgetMax)
	assert.Nil(t, profile.PriceCenter)
	assert.Equal(t, models.SensitivityUnknown, profile.PriceSensitivity)
}

func TestExtract_ExplicitPreferences(t *testing.T) {
	e := NewPreferenceExtractor(nil)
	user := &models.User{
		ID: 1,
		Preferences: models.Preferences{
			Locations:     []string{"Seattle"},
			PropertyTypes: []string{"apartment"},
			Amenities:     []string{"Parking", "pets", "unicorn", "parking_available"},
			BudgetMax:     floatPtr(2500),
			Bedrooms:      intPtr(2),
		},
	}

	profile := e.Extract(user, nil)

	assert.Equal(t, []string{"Seattle"}, profile.PreferredLocations)
	assert.Equal(t, []string{"apartment"}, profile.PreferredPropertyTypes)
	assert.Equal(t, []string{models.AmenityParking, models.AmenityPetsAllowed}, profile.PreferredAmenities)
	require.NotNil(t, profile.BudgetMax)
	assert.Equal(t, 2500.0, *profile.BudgetMax)
	require.NotNil(t, profile.PreferredBedrooms)
	assert.Equal(t, 2, *profile.PreferredBedrooms)
	assert.Nil(t, profile.PriceRange, "no applications means no inferred price range")
}

func TestExtract_InferredLocationsRankedByFrequencyThenRecency(t *testing.T) {
	e := NewPreferenceExtractor(nil)
	history := &models.ActivityHistory{
		UserID: 1,
		Applications: []models.Application{
			{ListingID: 1, City: "Seattle", PropertyType: "apartment", Price: 2000, CreatedAt: daysAgo(10)},
			{ListingID: 2, City: "Portland", PropertyType: "apartment", Price: 2000, CreatedAt: daysAgo(1)},
			{ListingID: 3, City: "Seattle", PropertyType: "house", Price: 2000, CreatedAt: daysAgo(20)},
			{ListingID: 4, City: "portland", PropertyType: "condo", Price: 2000, CreatedAt: daysAgo(5)},
			{ListingID: 5, City: "Tacoma", PropertyType: "condo", Price: 2000, CreatedAt: daysAgo(2)},
			{ListingID: 6, City: "Boise", PropertyType: "studio", Price: 2000, CreatedAt: daysAgo(3)},
		},
	}

	profile := e.Extract(nil, history)

	assert.Equal(t, []string{"Portland", "Seattle", "Tacoma"}, profile.PreferredLocations)
	assert.Equal(t, []string{"apartment", "condo", "studio"}, profile.PreferredPropertyTypes)
}

func TestExtract_ExplicitMergedAheadOfInferred(t *testing.T) {
	e := NewPreferenceExtractor(nil)
	user := &models.User{Preferences: models.Preferences{Locations: []string{"Tacoma", "seattle"}}}
	history := &models.ActivityHistory{
		Applications: []models.Application{
			{ListingID: 1, City: "Seattle", PropertyType: "apartment", Price: 2000, CreatedAt: daysAgo(1)},
			{ListingID: 2, City: "Bellevue", PropertyType: "apartment", Price: 2100, CreatedAt: daysAgo(2)},
		},
	}

	profile := e.Extract(user, history)

	assert.Equal(t, []string{"Tacoma", "seattle", "Bellevue"}, profile.PreferredLocations)
	require.NotNil(t, profile.PriceRange)
	assert.Equal(t, models.PriceRange{Min: 2000, Max: 2100}, *profile.PriceRange)
}

func TestExtract_ApplicationFallsBackToListingSnapshot(t *testing.T) {
	e := NewPreferenceExtractor(nil)
	history := &models.ActivityHistory{
		Applications: []models.Application{{ListingID: 7, Price: 1500, CreatedAt: daysAgo(1)}},
		Listings: map[int64]models.Listing{
			7: newListing(7, "townhouse", "Spokane", 1500, 3),
		},
	}

	profile := e.Extract(nil, history)

	assert.Equal(t, []string{"Spokane"}, profile.PreferredLocations)
	assert.Equal(t, []string{"townhouse"}, profile.PreferredPropertyTypes)
}

func TestExtract_PriceSensitivity(t *testing.T) {
	tests := []struct {
		name        string
		prices      []float64
		expected    models.PriceSensitivity
		expectedMid float64
		hasCenter   bool
	}{
		{name: "No applications", prices: nil, expected: models.SensitivityUnknown},
		{name: "Single application", prices: []float64{1800}, expected: models.SensitivityUnknown, expectedMid: 1800, hasCenter: true},
		{name: "Identical prices", prices: []float64{2000, 2000, 2000}, expected: models.SensitivityLow, expectedMid: 2000, hasCenter: true},
		{name: "Some spread", prices: []float64{1700, 2000, 2300}, expected: models.SensitivityModerate, expectedMid: 2000, hasCenter: true},
		{name: "Wide spread", prices: []float64{1000, 2000, 3000}, expected: models.SensitivityHigh, expectedMid: 2000, hasCenter: true},
		{name: "Zero prices are ignored", prices: []float64{0, 2000, 2000}, expected: models.SensitivityLow, expectedMid: 2000, hasCenter: true},
	}

	e := NewPreferenceExtractor(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			history := &models.ActivityHistory{}
			for i, p := range tt.prices {
				history.Applications = append(history.Applications, models.Application{
					ListingID: int64(i + 1), City: "Seattle", PropertyType: "apartment", Price: p, CreatedAt: daysAgo(i),
				})
			}

			profile := e.Extract(nil, history)

			assert.Equal(t, tt.expected, profile.PriceSensitivity)
			if !tt.hasCenter {
				assert.Nil(t, profile.PriceCenter)
				return
			}
			require.NotNil(t, profile.PriceCenter)
			assert.InDelta(t, tt.expectedMid, *profile.PriceCenter, 0.001)
		})
	}
}

func TestExtract_AmenityImportance(t *testing.T) {
	withParkingAndGym := newListing(1, "apartment", "Seattle", 2000, 2)
	withParkingAndGym.Amenities.Parking = boolPtr(true)
	withParkingAndGym.Amenities.Gym = boolPtr(true)

	withParking := newListing(2, "apartment", "Seattle", 2100, 2)
	withParking.Amenities.Parking = boolPtr(true)

	bare := newListing(3, "apartment", "Seattle", 1900, 2)
	bare.Amenities.Gym = boolPtr(false)

	history := &models.ActivityHistory{
		Favorites: []models.Favorite{
			{ListingID: 1, CreatedAt: daysAgo(3)},
			{ListingID: 3, CreatedAt: daysAgo(2)},
		},
		Applications: []models.Application{
			{ListingID: 2, Price: 2100, CreatedAt: daysAgo(1)},
			// Applying to an already favorited listing does not count it twice.
			{ListingID: 1, Price: 2000, CreatedAt: daysAgo(1)},
		},
		Listings: map[int64]models.Listing{1: withParkingAndGym, 2: withParking, 3: bare},
	}

	profile := NewPreferenceExtractor(nil).Extract(nil, history)

	assert.Equal(t, []string{models.AmenityParking}, profile.AmenityImportance.HighImportance)
}

func TestExtract_ViewingAndFavoritePatterns(t *testing.T) {
	history := &models.ActivityHistory{
		Viewings: []models.ViewingEvent{
			{ListingID: 1, CreatedAt: daysAgo(1)},
			{ListingID: 1, CreatedAt: daysAgo(2)},
			{ListingID: 1, CreatedAt: daysAgo(3)},
			{ListingID: 2, CreatedAt: daysAgo(1)},
		},
		Favorites: []models.Favorite{
			{ListingID: 1, CreatedAt: daysAgo(2)},
			{ListingID: 2, CreatedAt: daysAgo(1)},
			{ListingID: 99, CreatedAt: daysAgo(1)},
		},
		Listings: map[int64]models.Listing{
			1: newListing(1, "house", "Tacoma", 2500, 3),
			2: newListing(2, "house", "Olympia", 2300, 3),
		},
	}

	profile := NewPreferenceExtractor(nil).Extract(nil, history)

	assert.Equal(t, 4, profile.ViewingPatterns.TotalViews)
	assert.Equal(t, 2, profile.ViewingPatterns.DistinctListings)
	assert.InDelta(t, 2.0, profile.ViewingPatterns.AverageViewsPerListing, 0.001)
	assert.Equal(t, []string{"house"}, profile.FavoritePatterns.PropertyTypes)
	assert.Equal(t, []string{"Olympia", "Tacoma"}, profile.FavoritePatterns.Locations)
}

func TestRankByFrequency_LexicalTieBreak(t *testing.T) {
	at := daysAgo(1)
	items := []occurrence{
		{value: "Renton", at: at},
		{value: "Kent", at: at},
		{value: " ", at: at},
		{value: "Auburn", at: at},
	}

	assert.Equal(t, []string{"Auburn", "Kent"}, rankByFrequency(items, 2))
	assert.Equal(t, []string{"Auburn", "Kent", "Renton"}, rankByFrequency(items, 0))
}
