package models

import (
	"strings"
	"time"

	"github.com/paulmach/orb"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"

	AvailabilityAvailable = "available"
)

// Canonical amenity names, in display order.
const (
	AmenityParking           = "parking_available"
	AmenityPetsAllowed       = "pets_allowed"
	AmenityFurnished         = "furnished"
	AmenityUtilitiesIncluded = "utilities_included"
	AmenityLaundry           = "laundry"
	AmenityGym               = "gym"
	AmenityPool              = "pool"
	AmenityBalcony           = "balcony"
	AmenityAirConditioning   = "air_conditioning"
	AmenityHeating           = "heating"
	AmenityInternetIncluded  = "internet_included"
)

// AmenityNames lists every amenity flag a listing can carry.
var AmenityNames = []string{
	AmenityParking,
	AmenityPetsAllowed,
	AmenityFurnished,
	AmenityUtilitiesIncluded,
	AmenityLaundry,
	AmenityGym,
	AmenityPool,
	AmenityBalcony,
	AmenityAirConditioning,
	AmenityHeating,
	AmenityInternetIncluded,
}

// amenityAliases maps squashed (lowercase, separators removed) names to canonical ones.
var amenityAliases = map[string]string{
	"parking":           AmenityParking,
	"parkingavailable":  AmenityParking,
	"pets":              AmenityPetsAllowed,
	"petsallowed":       AmenityPetsAllowed,
	"petfriendly":       AmenityPetsAllowed,
	"furnished":         AmenityFurnished,
	"utilities":         AmenityUtilitiesIncluded,
	"utilitiesincluded": AmenityUtilitiesIncluded,
	"laundry":           AmenityLaundry,
	"gym":               AmenityGym,
	"pool":              AmenityPool,
	"balcony":           AmenityBalcony,
	"ac":                AmenityAirConditioning,
	"airconditioning":   AmenityAirConditioning,
	"heating":           AmenityHeating,
	"internet":          AmenityInternetIncluded,
	"internetincluded":  AmenityInternetIncluded,
	"wifi":              AmenityInternetIncluded,
}

// CanonicalAmenity resolves a user supplied amenity name, ignoring case,
// underscores, hyphens and spaces. The second result is false for unknown names.
func CanonicalAmenity(name string) (string, bool) {
	squashed := strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', ' ', '\t':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(name)))
	if squashed == "" {
		return "", false
	}
	canonical, ok := amenityAliases[squashed]
	return canonical, ok
}

// Amenities holds the optional amenity flags of a listing. A nil flag means unknown
// and is treated as absent.
type Amenities struct {
	Parking           *bool `json:"parking_available" gorm:"column:parking_available"`
	PetsAllowed       *bool `json:"pets_allowed" gorm:"column:pets_allowed"`
	Furnished         *bool `json:"furnished" gorm:"column:furnished"`
	UtilitiesIncluded *bool `json:"utilities_included" gorm:"column:utilities_included"`
	Laundry           *bool `json:"laundry" gorm:"column:laundry"`
	Gym               *bool `json:"gym" gorm:"column:gym"`
	Pool              *bool `json:"pool" gorm:"column:pool"`
	Balcony           *bool `json:"balcony" gorm:"column:balcony"`
	AirConditioning   *bool `json:"air_conditioning" gorm:"column:air_conditioning"`
	Heating           *bool `json:"heating" gorm:"column:heating"`
	InternetIncluded  *bool `json:"internet_included" gorm:"column:internet_included"`
}

func (a Amenities) flag(name string) *bool {
	switch name {
	case AmenityParking:
		return a.Parking
	case AmenityPetsAllowed:
		return a.PetsAllowed
	case AmenityFurnished:
		return a.Furnished
	case AmenityUtilitiesIncluded:
		return a.UtilitiesIncluded
	case AmenityLaundry:
		return a.Laundry
	case AmenityGym:
		return a.Gym
	case AmenityPool:
		return a.Pool
	case AmenityBalcony:
		return a.Balcony
	case AmenityAirConditioning:
		return a.AirConditioning
	case AmenityHeating:
		return a.Heating
	case AmenityInternetIncluded:
		return a.InternetIncluded
	default:
		return nil
	}
}

// Has reports whether the amenity is known to be present. Aliases are accepted.
func (a Amenities) Has(name string) bool {
	canonical, ok := CanonicalAmenity(name)
	if !ok {
		return false
	}
	f := a.flag(canonical)
	return f != nil && *f
}

// Present returns the canonical names of all amenities flagged true.
func (a Amenities) Present() []string {
	var names []string
	for _, name := range AmenityNames {
		if f := a.flag(name); f != nil && *f {
			names = append(names, name)
		}
	}
	return names
}

// Listing is a rental property record. The recommendation core only reads it.
type Listing struct {
	ID                int64     `json:"id" gorm:"primaryKey"`
	Title             string    `json:"title"`
	Address           string    `json:"address"`
	PropertyType      string    `json:"property_type" gorm:"index"`
	City              string    `json:"city" gorm:"index"`
	Price             float64   `json:"price"`
	Bedrooms          int       `json:"bedrooms"`
	Bathrooms         float64   `json:"bathrooms"`
	SquareFeet        *int      `json:"square_footage"`
	Amenities         Amenities `json:"amenities" gorm:"embedded"`
	Status            string    `json:"status" gorm:"index"`
	Availability      string    `json:"availability_status"`
	ViewsCount        int       `json:"views_count"`
	FavoritesCount    int       `json:"favorites_count"`
	ApplicationsCount int       `json:"applications_count"`
	PhotoCount        int       `json:"photo_count"`
	DescriptionLength int       `json:"description_length"`
	AverageRating     *float64  `json:"average_rating"`
	Latitude          *float64  `json:"latitude"`
	Longitude         *float64  `json:"longitude"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// IsAvailable reports whether the listing is active and available for rent.
func (l *Listing) IsAvailable() bool {
	return strings.EqualFold(strings.TrimSpace(l.Status), StatusActive) &&
		strings.EqualFold(strings.TrimSpace(l.Availability), AvailabilityAvailable)
}

// Point returns the listing coordinates as an orb point (lon, lat).
func (l *Listing) Point() (orb.Point, bool) {
	if l.Latitude == nil || l.Longitude == nil {
		return orb.Point{}, false
	}
	return orb.Point{*l.Longitude, *l.Latitude}, true
}
