package recommend

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"ofie/server/internal/models"
)

// CandidateFilter narrows a listing pool to the candidates a request may see.
type CandidateFilter struct {
	metros map[string][]string
	logger *logrus.Logger
}

// NewCandidateFilter creates a filter. metros maps a metropolitan area name to
// the cities it covers; a location term naming an area matches all of them.
func NewCandidateFilter(metros map[string][]string, logger *logrus.Logger) *CandidateFilter {
	if logger == nil {
		logger = newDefaultLogger()
	}
	index := make(map[string][]string, len(metros))
	for name, cities := range metros {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		index[key] = append(index[key], cities...)
	}
	return &CandidateFilter{metros: index, logger: logger}
}

// Apply returns the listings that are active, available and satisfy every
// structural filter. The result is never nil.
func (f *CandidateFilter) Apply(listings []models.Listing, filters *models.FilterSpec, now time.Time) []models.Listing {
	spec := f.expand(filters)
	out := make([]models.Listing, 0, len(listings))
	for i := range listings {
		if !listings[i].IsAvailable() {
			continue
		}
		if !spec.IsListingAllowed(&listings[i], now) {
			continue
		}
		out = append(out, listings[i])
	}
	return out
}

// expand resolves metropolitan area names and reports unknown amenity names.
// The caller's FilterSpec is left untouched.
func (f *CandidateFilter) expand(filters *models.FilterSpec) *models.FilterSpec {
	if filters == nil {
		return nil
	}
	spec := *filters

	for _, name := range filters.Amenities {
		if strings.TrimSpace(name) == "" {
			continue
		}
		if _, ok := models.CanonicalAmenity(name); !ok {
			f.logger.WithField("amenity", name).Warn("Ignoring unknown amenity filter")
		}
	}

	terms := filters.LocationTerms()
	if len(terms) == 0 || len(f.metros) == 0 {
		return &spec
	}
	expanded := make([]string, 0, len(terms))
	for _, term := range terms {
		if cities, ok := f.metros[strings.ToLower(term)]; ok {
			f.logger.WithFields(logrus.Fields{
				"metro_area": term,
				"cities":     len(cities),
			}).Debug("Expanding metropolitan area filter")
			expanded = append(expanded, cities...)
			continue
		}
		expanded = append(expanded, term)
	}
	spec.Location = strings.Join(expanded, ",")
	return &spec
}

func newDefaultLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	return logger
}
