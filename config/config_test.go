package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "5250", cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "./data/listings.db", cfg.Database.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Empty(t, cfg.Recommendation.ScoringPath)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:3000,https://ofie.example")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:3000", "https://ofie.example"}, cfg.Server.AllowedOrigins)

	logger := cfg.NewLogger()
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "non numeric port", key: "PORT", value: "http"},
		{name: "unknown log level", key: "LOG_LEVEL", value: "verbose"},
		{name: "unknown log format", key: "LOG_FORMAT", value: "xml"},
		{name: "zero shutdown timeout", key: "SHUTDOWN_TIMEOUT", value: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScoring(t *testing.T) {
	t.Run("defaults without file", func(t *testing.T) {
		cfg, err := LoadScoring("")
		require.NoError(t, err)
		assert.Equal(t, 50.0, cfg.BaseScore)
	})

	t.Run("partial override keeps other defaults", func(t *testing.T) {
		path := writeFile(t, "scoring.yaml", `
limits:
  max_results: 30
  activity_window: 72h
market:
  competitive_pricing: 12
`)
		cfg, err := LoadScoring(path)
		require.NoError(t, err)

		assert.Equal(t, 30, cfg.Limits.MaxResults)
		assert.Equal(t, 72*time.Hour, cfg.Limits.ActivityWindow)
		assert.Equal(t, 12.0, cfg.Market.CompetitivePricing)
		assert.Equal(t, 0.40, cfg.Weights.Preference)
		assert.Equal(t, 10, cfg.Limits.DefaultTrending)
	})

	t.Run("invalid weights rejected", func(t *testing.T) {
		path := writeFile(t, "scoring.yaml", "weights:\n  preference: 0.1\n")
		_, err := LoadScoring(path)
		assert.ErrorContains(t, err, "invalid scoring config")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeFile(t, "scoring.yaml", "weights: [")
		_, err := LoadScoring(path)
		assert.ErrorContains(t, err, "failed to parse scoring config")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadScoring(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})
}

func TestLoadMetroAreas(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		expected    map[string][]string
		expectError bool
	}{
		{
			name: "Basic areas",
			content: `{"metropolitan_areas": [
				{"name": "Seattle Metro", "cities": ["Seattle", " Bellevue ", ""]},
				{"name": "Portland Metro", "cities": ["Portland", "Beaverton"]}
			]}`,
			expected: map[string][]string{
				"Seattle Metro":  {"Seattle", "Bellevue"},
				"Portland Metro": {"Portland", "Beaverton"},
			},
		},
		{
			name:     "Empty list",
			content:  `{"metropolitan_areas": []}`,
			expected: map[string][]string{},
		},
		{
			name:        "Duplicate area",
			content:     `{"metropolitan_areas": [{"name": "A", "cities": []}, {"name": "A", "cities": []}]}`,
			expectError: true,
		},
		{
			name:        "Unnamed area",
			content:     `{"metropolitan_areas": [{"name": " ", "cities": ["Seattle"]}]}`,
			expectError: true,
		},
		{
			name:        "Invalid JSON",
			content:     `{"metropolitan_areas": `,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			areas, err := LoadMetroAreas(writeFile(t, "metropolitan_areas.json", tt.content))
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, areas)
		})
	}

	t.Run("Missing file", func(t *testing.T) {
		areas, err := LoadMetroAreas(filepath.Join(t.TempDir(), "nope.json"))
		require.NoError(t, err)
		assert.Empty(t, areas)
	})
}
