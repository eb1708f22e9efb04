package models

import "strings"

// PriceSensitivity buckets how tightly a user's applied-to prices cluster.
type PriceSensitivity string

const (
	SensitivityLow      PriceSensitivity = "low"
	SensitivityModerate PriceSensitivity = "moderate"
	SensitivityHigh     PriceSensitivity = "high"
	SensitivityUnknown  PriceSensitivity = "unknown"
)

type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Center returns the midpoint of the range.
func (r PriceRange) Center() float64 {
	return (r.Min + r.Max) / 2
}

// Contains reports whether price lies inside the inclusive range.
func (r PriceRange) Contains(price float64) bool {
	return price >= r.Min && price <= r.Max
}

type ViewingPatterns struct {
	TotalViews             int     `json:"total_views"`
	DistinctListings       int     `json:"distinct_listings"`
	AverageViewsPerListing float64 `json:"average_views_per_listing"`
}

type FavoritePatterns struct {
	PropertyTypes []string `json:"property_types"`
	Locations     []string `json:"locations"`
}

type AmenityImportance struct {
	HighImportance []string `json:"high_importance"`
}

// PreferenceProfile is the derived summary of a user's explicit and implicit
// housing preferences. It is rebuilt for every request.
type PreferenceProfile struct {
	PreferredLocations     []string          `json:"preferred_locations"`
	PreferredPropertyTypes []string          `json:"preferred_property_types"`
	PriceRange             *PriceRange       `json:"preferred_price_range,omitempty"`
	BudgetMax              *float64          `json:"budget_max,omitempty"`
	PreferredBedrooms      *int              `json:"preferred_bedrooms,omitempty"`
	PreferredAmenities     []string          `json:"preferred_amenities"`
	ViewingPatterns        ViewingPatterns   `json:"viewing_patterns"`
	FavoritePatterns       FavoritePatterns  `json:"favorite_patterns"`
	PriceSensitivity       PriceSensitivity  `json:"price_sensitivity"`
	PriceCenter            *float64          `json:"price_center,omitempty"`
	AmenityImportance      AmenityImportance `json:"amenity_importance"`
}

// PrefersLocation reports a case-insensitive match against preferred locations.
func (p *PreferenceProfile) PrefersLocation(city string) bool {
	return p != nil && containsFold(p.PreferredLocations, city)
}

// PrefersPropertyType reports a case-insensitive match against preferred types.
func (p *PreferenceProfile) PrefersPropertyType(propertyType string) bool {
	return p != nil && containsFold(p.PreferredPropertyTypes, propertyType)
}

func containsFold(values []string, v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	for _, candidate := range values {
		if strings.EqualFold(strings.TrimSpace(candidate), v) {
			return true
		}
	}
	return false
}

// ScoredListing is a listing decorated with its score breakdown for a single
// ranking request. The embedded Listing is a copy.
type ScoredListing struct {
	Listing            Listing  `json:"listing"`
	PreferenceScore    float64  `json:"preference_score"`
	CollaborativeScore float64  `json:"collaborative_score"`
	BehavioralScore    float64  `json:"behavioral_score"`
	MarketScore        float64  `json:"market_score"`
	TotalScore         float64  `json:"total_score"`
	RelevanceScore     float64  `json:"relevance_score"`
	MatchReasons       []string `json:"match_reasons"`
	RecommendationTags []string `json:"recommendation_tags"`
}
