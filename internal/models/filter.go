package models

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// RecentlyUpdatedWindow is how far back the recently_updated flag looks.
const RecentlyUpdatedWindow = 7 * 24 * time.Hour

// GeoRadius restricts listings to a great-circle radius around a point.
type GeoRadius struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	RadiusKm  float64 `json:"radius_km"`
}

// FilterSpec holds the structural filters for a recommendation request.
// Nil pointers and empty slices are no-ops.
type FilterSpec struct {
	Location        string     `json:"location"`
	MinPrice        *float64   `json:"min_price"`
	MaxPrice        *float64   `json:"max_price"`
	Budget          *float64   `json:"budget"`
	Bedrooms        *int       `json:"bedrooms"`
	MinBedrooms     *int       `json:"min_bedrooms"`
	Bathrooms       *float64   `json:"bathrooms"`
	MinBathrooms    *float64   `json:"min_bathrooms"`
	MinSquareFeet   *int       `json:"min_square_feet"`
	MaxSquareFeet   *int       `json:"max_square_feet"`
	PropertyTypes   []string   `json:"property_types"`
	Amenities       []string   `json:"amenities"`
	RecentlyUpdated bool       `json:"recently_updated"`
	UpdatedSince    *time.Time `json:"updated_since"`
	Near            *GeoRadius `json:"near"`
}

// LocationTerms splits the location filter into its OR terms.
func (f *FilterSpec) LocationTerms() []string {
	if f == nil {
		return nil
	}
	return splitList([]string{f.Location})
}

// EffectiveMaxPrice folds the budget shorthand into max_price, keeping the tighter bound.
func (f *FilterSpec) EffectiveMaxPrice() *float64 {
	if f == nil {
		return nil
	}
	switch {
	case f.MaxPrice == nil:
		return f.Budget
	case f.Budget == nil:
		return f.MaxPrice
	case *f.Budget < *f.MaxPrice:
		return f.Budget
	default:
		return f.MaxPrice
	}
}

// IsListingAllowed checks a listing against the structural filters. Location
// terms must equal the city, ignoring case. Availability is not checked here.
func (f *FilterSpec) IsListingAllowed(listing *Listing, now time.Time) bool {
	if f == nil {
		return true // No filters means allow all
	}

	if terms := f.LocationTerms(); len(terms) > 0 {
		if !containsFold(terms, listing.City) {
			return false
		}
	}

	// Price
	if f.MinPrice != nil && listing.Price < *f.MinPrice {
		return false
	}
	if maxPrice := f.EffectiveMaxPrice(); maxPrice != nil && listing.Price > *maxPrice {
		return false
	}

	// Rooms
	if f.Bedrooms != nil && listing.Bedrooms != *f.Bedrooms {
		return false
	}
	if f.MinBedrooms != nil && listing.Bedrooms < *f.MinBedrooms {
		return false
	}
	if f.Bathrooms != nil && listing.Bathrooms != *f.Bathrooms {
		return false
	}
	if f.MinBathrooms != nil && listing.Bathrooms < *f.MinBathrooms {
		return false
	}

	// Square footage
	if listing.SquareFeet != nil {
		if f.MinSquareFeet != nil && *listing.SquareFeet < *f.MinSquareFeet {
			return false
		}
		if f.MaxSquareFeet != nil && *listing.SquareFeet > *f.MaxSquareFeet {
			return false
		}
	} else if f.MinSquareFeet != nil || f.MaxSquareFeet != nil {
		return false // Filter requires square footage but listing has none
	}

	if types := splitList(f.PropertyTypes); len(types) > 0 && !containsFold(types, listing.PropertyType) {
		return false
	}

	// All requested amenities must be present; unknown names are ignored.
	for _, name := range f.Amenities {
		canonical, ok := CanonicalAmenity(name)
		if !ok {
			continue
		}
		if !listing.Amenities.Has(canonical) {
			return false
		}
	}

	if f.RecentlyUpdated && listing.UpdatedAt.Before(now.Add(-RecentlyUpdatedWindow)) {
		return false
	}
	if f.UpdatedSince != nil && listing.UpdatedAt.Before(*f.UpdatedSince) {
		return false
	}

	if f.Near != nil {
		point, ok := listing.Point()
		if !ok {
			return false
		}
		center := orb.Point{f.Near.Longitude, f.Near.Latitude}
		if geo.DistanceHaversine(center, point)/1000 > f.Near.RadiusKm {
			return false
		}
	}

	return true
}

// splitList flattens comma separated values, trimming blanks.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// ParseFilterSpec builds a FilterSpec from request parameters. Blank and
// unrecognized parameters are ignored. A malformed value skips only that filter
// and is reported in the returned slice.
func ParseFilterSpec(q url.Values) (FilterSpec, []error) {
	var (
		f    FilterSpec
		errs []error
	)

	f.Location = strings.TrimSpace(q.Get("location"))
	if f.Location == "" {
		f.Location = strings.TrimSpace(q.Get("city"))
	}

	parseSigned := func(key string, allowNegative bool) *float64 {
		raw := strings.TrimSpace(q.Get(key))
		if raw == "" {
			return nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || (v < 0 && !allowNegative) {
			errs = append(errs, fmt.Errorf("invalid %s %q", key, raw))
			return nil
		}
		return &v
	}
	parseFloat := func(key string) *float64 { return parseSigned(key, false) }
	parseInt := func(key string) *int {
		raw := strings.TrimSpace(q.Get(key))
		if raw == "" {
			return nil
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			errs = append(errs, fmt.Errorf("invalid %s %q", key, raw))
			return nil
		}
		return &v
	}

	f.MinPrice = parseFloat("min_price")
	f.MaxPrice = parseFloat("max_price")
	f.Budget = parseFloat("budget")
	f.Bedrooms = parseInt("bedrooms")
	f.MinBedrooms = parseInt("min_bedrooms")
	f.Bathrooms = parseFloat("bathrooms")
	f.MinBathrooms = parseFloat("min_bathrooms")
	f.MinSquareFeet = parseInt("min_square_feet")
	f.MaxSquareFeet = parseInt("max_square_feet")

	f.PropertyTypes = splitList(q["property_type"])
	f.Amenities = splitList(q["amenities"])

	if raw := strings.TrimSpace(q.Get("recently_updated")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid recently_updated %q", raw))
		} else {
			f.RecentlyUpdated = v
		}
	}

	if raw := strings.TrimSpace(q.Get("updated_since")); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid updated_since %q", raw))
		} else {
			f.UpdatedSince = &t
		}
	}

	lat, lng, radius := parseSigned("lat", true), parseSigned("lng", true), parseFloat("radius_km")
	if lat != nil && lng != nil && radius != nil {
		f.Near = &GeoRadius{Latitude: *lat, Longitude: *lng, RadiusKm: *radius}
	}

	return f, errs
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
