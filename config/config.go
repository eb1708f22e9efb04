package config

import (
	"fmt"

	"github.com/caarlos0/env/v6"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Server struct {
		Port string `env:"PORT" envDefault:"5250" validate:"required,numeric"`

		// Comma separated list of origins allowed by CORS, "*" for any
		AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

		// Graceful shutdown timeout in seconds
		ShutdownTimeout int `env:"SHUTDOWN_TIMEOUT" envDefault:"10" validate:"gte=1"`
	}

	Database struct {
		Path string `env:"DB_PATH" envDefault:"./data/listings.db" validate:"required"`

		// Optional JSON file with listings, users and activity loaded at startup
		SeedPath string `env:"SEED_DATA_PATH"`
	}

	Geocoding struct {
		// Fill in coordinates for listings that only have an address at startup
		Enabled  bool   `env:"GEOCODE_MISSING" envDefault:"false"`
		Endpoint string `env:"GEOCODE_ENDPOINT" envDefault:"https://nominatim.openstreetmap.org/search" validate:"omitempty,url"`
		CacheDir string `env:"GEOCODE_CACHE_DIR"`
	}

	Log struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=trace debug info warn warning error fatal panic"`
		Format string `env:"LOG_FORMAT" envDefault:"json" validate:"oneof=json text"`
	}

	Recommendation struct {
		// Optional YAML file overriding the default scoring constants
		ScoringPath string `env:"SCORING_CONFIG_PATH"`

		// Optional JSON file with metropolitan areas used to expand location filters
		MetroAreasPath string `env:"METRO_AREAS_PATH" envDefault:"config/metropolitan_areas.json"`
	}
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
