package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_SearchConfig(t *testing.T) {
	// Setup environment variables
	os.Setenv("SEARCH_WEIGHT_TEXT", "0.7")
	os.Setenv("SEARCH_MAX_PAGE_DEPTH", "50")
	defer func() {
		os.Unsetenv("SEARCH_WEIGHT_TEXT")
		os.Unsetenv("SEARCH_MAX_PAGE_DEPTH")
	}()

	// Load config
	cfg, err := Load()
	assert.NoError(t, err)

	// Verify search config
	assert.Equal(t, 0.7, cfg.Search.WeightText)
	assert.Equal(t, 50, cfg.Search.MaxPageDepth)
}

func TestLoad_Defaults(t *testing.T) {
	// Ensure env vars are cleared
	os.Unsetenv("SEARCH_WEIGHT_TEXT")
	os.Unsetenv("SEARCH_MAX_PAGE_DEPTH")
	os.Unsetenv("TRENDS_VELOCITY_THRESHOLD")
	os.Unsetenv("SESSION_INACTIVITY_TIMEOUT")

	cfg, err := Load()
	assert.NoError(t, err)

	// Verify defaults
	assert.Equal(t, 20, cfg.Search.DefaultPageSize)
	assert.Equal(t, 100, cfg.Search.MaxPageDepth)
	assert.Equal(t, 2, cfg.Search.FacetMinDistinct)
	assert.Equal(t, 2.0, cfg.Trends.VelocityThreshold)
	assert.Equal(t, 30*time.Minute, cfg.Session.InactivityTimeout)
	assert.Equal(t, 3, cfg.Recommendation.VendorCap)
	assert.True(t, cfg.Recommendation.ExcludePurchased)
	assert.Equal(t, 90, cfg.Retention.EventLogRetentionDays)
}

func TestLoad_Durations(t *testing.T) {
	os.Setenv("SESSION_INACTIVITY_TIMEOUT", "45m")
	os.Setenv("TRENDS_REFRESH_INTERVAL", "5m")
	defer func() {
		os.Unsetenv("SESSION_INACTIVITY_TIMEOUT")
		os.Unsetenv("TRENDS_REFRESH_INTERVAL")
	}()

	cfg, err := Load()
	assert.NoError(t, err)

	assert.Equal(t, 45*time.Minute, cfg.Session.InactivityTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Trends.RefreshInterval)
}

func TestDatabaseDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db",
		Port:     5432,
		User:     "app",
		Password: "secret",
		Database: "market_discovery",
		SSLMode:  "disable",
	}
	assert.Equal(t, "host=db port=5432 user=app password=secret dbname=market_discovery sslmode=disable", cfg.DatabaseDSN())
}
