package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"ofie/server/internal/models"
)

const DefaultEndpoint = "https://nominatim.openstreetmap.org/search"

// CoordinateStore is the listing storage the backfill reads and updates.
type CoordinateStore interface {
	ListingsMissingCoordinates(ctx context.Context) ([]models.Listing, error)
	UpdateListingCoordinates(ctx context.Context, id int64, lat, lng float64) error
}

type Geocoder struct {
	logger    *logrus.Logger
	cacheDir  string
	cache     map[string][]float64
	cacheLock sync.RWMutex
	client    *http.Client
	endpoint  string

	// Delay between upstream requests, Nominatim allows one per second.
	delay time.Duration
}

func NewGeocoder(logger *logrus.Logger, cacheDir, endpoint string) *Geocoder {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if cacheDir != "" {
		if err := os.MkdirAll(cacheDir, 0755); err != nil {
			logger.WithError(err).Warn("Could not create geocode cache directory")
		}
	}

	g := &Geocoder{
		logger:   logger,
		cacheDir: cacheDir,
		cache:    make(map[string][]float64),
		client:   &http.Client{Timeout: 10 * time.Second},
		endpoint: endpoint,
		delay:    time.Second,
	}

	g.loadCache()

	return g
}

func (g *Geocoder) cacheFile() string {
	return filepath.Join(g.cacheDir, "geocode_cache.json")
}

func (g *Geocoder) loadCache() {
	if g.cacheDir == "" {
		return
	}
	data, err := os.ReadFile(g.cacheFile())
	if err != nil {
		g.logger.Debugf("Could not load geocode cache: %v", err)
		return
	}

	if err := json.Unmarshal(data, &g.cache); err != nil {
		g.logger.Errorf("Failed to parse geocode cache: %v", err)
		return
	}

	g.logger.Infof("Loaded %d cached addresses", len(g.cache))
}

func (g *Geocoder) saveCache() {
	if g.cacheDir == "" {
		return
	}
	g.cacheLock.RLock()
	data, err := json.Marshal(g.cache)
	g.cacheLock.RUnlock()
	if err != nil {
		g.logger.Errorf("Failed to marshal geocode cache: %v", err)
		return
	}

	if err := os.WriteFile(g.cacheFile(), data, 0644); err != nil {
		g.logger.Errorf("Failed to save geocode cache: %v", err)
	}
}

type nominatimResponse []struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode resolves an address to latitude and longitude, consulting the cache first.
func (g *Geocoder) Geocode(ctx context.Context, address, city string) (float64, float64, error) {
	cacheKey := strings.ToLower(address + "|" + city)
	fullAddress := address
	if city != "" {
		fullAddress = address + ", " + city
	}

	g.cacheLock.RLock()
	coords, ok := g.cache[cacheKey]
	g.cacheLock.RUnlock()
	if ok {
		if len(coords) == 2 {
			return coords[0], coords[1], nil
		}
		return 0, 0, fmt.Errorf("invalid cached coordinates for %s", fullAddress)
	}

	params := url.Values{
		"q":      []string{fullAddress},
		"format": []string{"json"},
		"limit":  []string{"1"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Ofie Listing Recommender/1.0")

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("geocoding request failed with status %d", resp.StatusCode)
	}

	var result nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, 0, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(result) == 0 {
		return 0, 0, fmt.Errorf("no results found for address: %s", fullAddress)
	}

	lat, err := strconv.ParseFloat(result[0].Lat, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude %q: %w", result[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(result[0].Lon, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude %q: %w", result[0].Lon, err)
	}

	g.cacheLock.Lock()
	g.cache[cacheKey] = []float64{lat, lon}
	g.cacheLock.Unlock()

	return lat, lon, nil
}

// Backfill geocodes every listing that has an address but no coordinates and
// returns how many were updated. Individual failures are logged and skipped.
func (g *Geocoder) Backfill(ctx context.Context, store CoordinateStore) (int, error) {
	listings, err := store.ListingsMissingCoordinates(ctx)
	if err != nil {
		return 0, err
	}
	if len(listings) == 0 {
		return 0, nil
	}

	g.logger.WithField("count", len(listings)).Info("Geocoding listings without coordinates")

	updated := 0
	for i, l := range listings {
		if i > 0 && g.delay > 0 {
			select {
			case <-ctx.Done():
				return updated, ctx.Err()
			case <-time.After(g.delay):
			}
		}

		lat, lng, err := g.Geocode(ctx, l.Address, l.City)
		if err != nil {
			g.logger.WithError(err).WithField("listing_id", l.ID).Warn("Failed to geocode listing")
			continue
		}
		if err := store.UpdateListingCoordinates(ctx, l.ID, lat, lng); err != nil {
			g.logger.WithError(err).WithField("listing_id", l.ID).Error("Failed to store coordinates")
			continue
		}
		updated++
	}

	g.saveCache()
	g.logger.WithFields(logrus.Fields{
		"updated": updated,
		"total":   len(listings),
	}).Info("Finished geocoding listings")
	return updated, nil
}
