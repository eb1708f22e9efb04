package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// MetropolitanArea represents a metropolitan area configuration
type MetropolitanArea struct {
	Name   string   `json:"name"`
	Cities []string `json:"cities"`
}

// MetropolitanConfig represents the full metropolitan areas configuration
type MetropolitanConfig struct {
	MetropolitanAreas []MetropolitanArea `json:"metropolitan_areas"`
}

// LoadMetroAreas reads the metropolitan areas file and returns the cities of
// each area keyed by area name. A missing file yields no areas.
func LoadMetroAreas(path string) (map[string][]string, error) {
	if path == "" {
		return map[string][]string{}, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string][]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config MetropolitanConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	areas := make(map[string][]string, len(config.MetropolitanAreas))
	for _, area := range config.MetropolitanAreas {
		name := strings.TrimSpace(area.Name)
		if name == "" {
			return nil, fmt.Errorf("metropolitan area without a name")
		}
		if _, dup := areas[name]; dup {
			return nil, fmt.Errorf("duplicate metropolitan area: %s", name)
		}
		cities := make([]string, 0, len(area.Cities))
		for _, city := range area.Cities {
			if city = strings.TrimSpace(city); city != "" {
				cities = append(cities, city)
			}
		}
		areas[name] = cities
	}
	return areas, nil
}
