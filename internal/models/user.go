package models

import (
	"strings"
	"time"
)

const (
	RoleTenant   = "tenant"
	RoleLandlord = "landlord"
)

// Preferences are the explicit housing preferences a user has stated.
type Preferences struct {
	PropertyTypes []string `json:"property_types" gorm:"serializer:json"`
	Locations     []string `json:"locations" gorm:"serializer:json"`
	Amenities     []string `json:"amenities" gorm:"serializer:json"`
	BudgetMax     *float64 `json:"budget_max"`
	Bedrooms      *int     `json:"bedrooms"`
}

type User struct {
	ID          int64       `json:"id" gorm:"primaryKey"`
	Name        string      `json:"name"`
	Role        string      `json:"role"`
	Preferences Preferences `json:"preferences" gorm:"embedded;embeddedPrefix:pref_"`
	CreatedAt   time.Time   `json:"created_at"`
}

// IsLandlord reports whether the user manages listings rather than renting them.
func (u *User) IsLandlord() bool {
	return strings.EqualFold(strings.TrimSpace(u.Role), RoleLandlord)
}
