package recommend

import (
	"math"
	"strings"
	"time"

	"github.com/paulmach/orb/geo"

	"ofie/server/internal/models"
)

// SimilarityCalculator scores listing-to-listing and user-to-user similarity.
type SimilarityCalculator struct {
	cfg *Config
}

func NewSimilarityCalculator(cfg *Config) *SimilarityCalculator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &SimilarityCalculator{cfg: cfg}
}

// Listings returns a similarity in [0, Cap]. Listings of a different property
// type are never similar.
func (s *SimilarityCalculator) Listings(source, candidate *models.Listing) float64 {
	pts := s.cfg.Similarity
	if !sameFold(source.PropertyType, candidate.PropertyType) {
		return 0
	}

	score := pts.SameType
	if sameFold(source.City, candidate.City) {
		score += pts.SameCity
	}

	switch absInt(source.Bedrooms - candidate.Bedrooms) {
	case 0:
		score += pts.BedroomsExact
	case 1:
		score += pts.BedroomsNear
	}

	if source.Price > 0 {
		delta := math.Abs(candidate.Price-source.Price) / source.Price
		if delta <= pts.PriceBand {
			score += pts.PriceBandMax * (1 - delta/pts.PriceBand)
		}
	}

	shared := sharedAmenities(source, candidate)
	score += float64(len(shared)) * pts.SharedAmenity

	if a, ok := source.Point(); ok {
		if b, ok := candidate.Point(); ok && pts.ProximityRadiusKm > 0 {
			km := geo.DistanceHaversine(a, b) / 1000
			if km <= pts.ProximityRadiusKm {
				score += pts.ProximityMax * (1 - km/pts.ProximityRadiusKm)
			}
		}
	}

	return math.Min(score, pts.Cap)
}

// Footprint is the recency-weighted set of (property type, city) pairs a user
// applied to or favorited.
type Footprint map[footprintKey]float64

type footprintKey struct {
	propertyType string
	city         string
}

func newFootprintKey(propertyType, city string) (footprintKey, bool) {
	k := footprintKey{
		propertyType: strings.ToLower(strings.TrimSpace(propertyType)),
		city:         strings.ToLower(strings.TrimSpace(city)),
	}
	return k, k.propertyType != "" && k.city != ""
}

// Footprint builds the weighted pair set for one history. Each occurrence
// contributes 0.5^(age/half-life).
func (s *SimilarityCalculator) Footprint(history *models.ActivityHistory, now time.Time) Footprint {
	fp := make(Footprint)
	if history == nil {
		return fp
	}

	add := func(propertyType, city string, at time.Time) {
		key, ok := newFootprintKey(propertyType, city)
		if !ok {
			return
		}
		fp[key] += s.recencyWeight(at, now)
	}

	for _, app := range history.Applications {
		propertyType, city := app.PropertyType, app.City
		if l, ok := history.Listing(app.ListingID); ok {
			if strings.TrimSpace(propertyType) == "" {
				propertyType = l.PropertyType
			}
			if strings.TrimSpace(city) == "" {
				city = l.City
			}
		}
		add(propertyType, city, app.CreatedAt)
	}
	for _, fav := range history.Favorites {
		if l, ok := history.Listing(fav.ListingID); ok {
			add(l.PropertyType, l.City, fav.CreatedAt)
		}
	}
	return fp
}

func (s *SimilarityCalculator) recencyWeight(at, now time.Time) float64 {
	ageDays := now.Sub(at).Hours() / 24
	if ageDays < 0 || at.IsZero() {
		ageDays = 0
	}
	return math.Pow(0.5, ageDays/s.cfg.Collaborative.RecencyHalfLifeDays)
}

// Users returns the overlap between two footprints. Zero overlap is zero.
func (s *SimilarityCalculator) Users(a, b Footprint) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var sim float64
	for key, wa := range a {
		if wb, ok := b[key]; ok {
			sim += math.Min(wa, wb)
		}
	}
	return sim
}

func sharedAmenities(a, b *models.Listing) []string {
	var shared []string
	for _, name := range a.Amenities.Present() {
		if b.Amenities.Has(name) {
			shared = append(shared, name)
		}
	}
	return shared
}

func sameFold(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a != "" && strings.EqualFold(a, b)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
