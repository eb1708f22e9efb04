package recommend

import (
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"ofie/server/internal/models"
)

// PreferenceExtractor derives a PreferenceProfile from a user's stated
// preferences and activity history. It keeps no state between calls.
type PreferenceExtractor struct {
	cfg *Config
}

func NewPreferenceExtractor(cfg *Config) *PreferenceExtractor {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &PreferenceExtractor{cfg: cfg}
}

// Extract builds the profile. Both arguments may be nil; missing or malformed
// data yields neutral (empty/unknown) fields.
func (e *PreferenceExtractor) Extract(user *models.User, history *models.ActivityHistory) models.PreferenceProfile {
	profile := models.PreferenceProfile{
		PriceSensitivity: models.SensitivityUnknown,
	}

	var explicit models.Preferences
	if user != nil {
		explicit = user.Preferences
	}
	if explicit.BudgetMax != nil && *explicit.BudgetMax > 0 {
		budget := *explicit.BudgetMax
		profile.BudgetMax = &budget
	}
	if explicit.Bedrooms != nil && *explicit.Bedrooms >= 0 {
		bedrooms := *explicit.Bedrooms
		profile.PreferredBedrooms = &bedrooms
	}
	profile.PreferredAmenities = canonicalAmenities(explicit.Amenities)

	limit := e.cfg.Extraction.MaxInferredPreferences
	var cities, types []occurrence
	if history != nil {
		for _, app := range history.Applications {
			city, propertyType := app.City, app.PropertyType
			if l, ok := history.Listing(app.ListingID); ok {
				if strings.TrimSpace(city) == "" {
					city = l.City
				}
				if strings.TrimSpace(propertyType) == "" {
					propertyType = l.PropertyType
				}
			}
			cities = append(cities, occurrence{value: city, at: app.CreatedAt})
			types = append(types, occurrence{value: propertyType, at: app.CreatedAt})
		}
	}
	profile.PreferredLocations = mergeUnique(explicit.Locations, rankByFrequency(cities, limit))
	profile.PreferredPropertyTypes = mergeUnique(explicit.PropertyTypes, rankByFrequency(types, limit))

	if history == nil {
		return profile
	}

	prices := appliedPrices(history.Applications)
	if len(prices) > 0 {
		r := models.PriceRange{Min: prices[0], Max: prices[0]}
		for _, p := range prices[1:] {
			if p < r.Min {
				r.Min = p
			}
			if p > r.Max {
				r.Max = p
			}
		}
		profile.PriceRange = &r
	}
	profile.PriceSensitivity, profile.PriceCenter = e.priceSensitivity(prices)
	profile.AmenityImportance = e.amenityImportance(history)
	profile.ViewingPatterns = viewingPatterns(history.Viewings)
	profile.FavoritePatterns = favoritePatterns(history, limit)

	return profile
}

// priceSensitivity buckets the coefficient of variation of applied-to prices.
func (e *PreferenceExtractor) priceSensitivity(prices []float64) (models.PriceSensitivity, *float64) {
	if len(prices) == 0 {
		return models.SensitivityUnknown, nil
	}
	mean, std := stat.MeanStdDev(prices, nil)
	center := mean
	if len(prices) < 2 || mean <= 0 {
		return models.SensitivityUnknown, &center
	}

	cv := std / mean
	switch {
	case cv < e.cfg.Extraction.LowVariation:
		return models.SensitivityLow, &center
	case cv <= e.cfg.Extraction.ModerateVariation:
		return models.SensitivityModerate, &center
	default:
		return models.SensitivityHigh, &center
	}
}

// amenityImportance marks amenities present on at least the configured share of
// the distinct listings a user favorited or applied to.
func (e *PreferenceExtractor) amenityImportance(history *models.ActivityHistory) models.AmenityImportance {
	seen := make(map[int64]struct{})
	counts := make(map[string]int)
	total := 0

	visit := func(listingID int64) {
		if _, dup := seen[listingID]; dup {
			return
		}
		seen[listingID] = struct{}{}
		l, ok := history.Listing(listingID)
		if !ok {
			return
		}
		total++
		for _, name := range l.Amenities.Present() {
			counts[name]++
		}
	}
	for _, f := range history.Favorites {
		visit(f.ListingID)
	}
	for _, a := range history.Applications {
		visit(a.ListingID)
	}

	importance := models.AmenityImportance{HighImportance: []string{}}
	if total == 0 {
		return importance
	}
	for _, name := range models.AmenityNames {
		if float64(counts[name])/float64(total) >= e.cfg.Extraction.HighImportanceShare {
			importance.HighImportance = append(importance.HighImportance, name)
		}
	}
	return importance
}

func viewingPatterns(viewings []models.ViewingEvent) models.ViewingPatterns {
	distinct := make(map[int64]struct{}, len(viewings))
	for _, v := range viewings {
		distinct[v.ListingID] = struct{}{}
	}
	patterns := models.ViewingPatterns{
		TotalViews:       len(viewings),
		DistinctListings: len(distinct),
	}
	if len(distinct) > 0 {
		patterns.AverageViewsPerListing = float64(len(viewings)) / float64(len(distinct))
	}
	return patterns
}

func favoritePatterns(history *models.ActivityHistory, limit int) models.FavoritePatterns {
	var cities, types []occurrence
	for _, f := range history.Favorites {
		l, ok := history.Listing(f.ListingID)
		if !ok {
			continue
		}
		cities = append(cities, occurrence{value: l.City, at: f.CreatedAt})
		types = append(types, occurrence{value: l.PropertyType, at: f.CreatedAt})
	}
	return models.FavoritePatterns{
		PropertyTypes: rankByFrequency(types, limit),
		Locations:     rankByFrequency(cities, limit),
	}
}

func appliedPrices(apps []models.Application) []float64 {
	prices := make([]float64, 0, len(apps))
	for _, a := range apps {
		if a.Price > 0 {
			prices = append(prices, a.Price)
		}
	}
	return prices
}

type occurrence struct {
	value string
	at    time.Time
}

// rankByFrequency orders distinct values (case-insensitive) by count, breaking
// ties by the most recent occurrence and then lexically. The first spelling seen
// is kept.
func rankByFrequency(items []occurrence, limit int) []string {
	type tally struct {
		value  string
		count  int
		latest time.Time
	}
	byKey := make(map[string]*tally)
	for _, it := range items {
		v := strings.TrimSpace(it.value)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		t, ok := byKey[key]
		if !ok {
			t = &tally{value: v}
			byKey[key] = t
		}
		t.count++
		if it.at.After(t.latest) {
			t.latest = it.at
		}
	}

	tallies := make([]*tally, 0, len(byKey))
	for _, t := range byKey {
		tallies = append(tallies, t)
	}
	sort.Slice(tallies, func(i, j int) bool {
		a, b := tallies[i], tallies[j]
		if a.count != b.count {
			return a.count > b.count
		}
		if !a.latest.Equal(b.latest) {
			return a.latest.After(b.latest)
		}
		return strings.ToLower(a.value) < strings.ToLower(b.value)
	})

	if limit > 0 && len(tallies) > limit {
		tallies = tallies[:limit]
	}
	out := make([]string, len(tallies))
	for i, t := range tallies {
		out[i] = t.value
	}
	return out
}

// mergeUnique concatenates lists, dropping blanks and case-insensitive duplicates.
func mergeUnique(lists ...[]string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, list := range lists {
		for _, v := range list {
			v = strings.TrimSpace(v)
			key := strings.ToLower(v)
			if v == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

func canonicalAmenities(names []string) []string {
	out := []string{}
	seen := make(map[string]struct{})
	for _, name := range names {
		canonical, ok := models.CanonicalAmenity(name)
		if !ok {
			continue
		}
		if _, dup := seen[canonical]; dup {
			continue
		}
		seen[canonical] = struct{}{}
		out = append(out, canonical)
	}
	return out
}
