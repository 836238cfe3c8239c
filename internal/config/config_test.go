package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testUser     = "florascope"
	testPassword = "s3cret"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "data/valleCentralData.json", cfg.DatasetPath)
	assert.Equal(t, "data/mapa_floracion.html", cfg.MapOutputPath)
	assert.Equal(t, 8, cfg.MapZoom)

	assert.False(t, cfg.ClimateEnabled)
	assert.Empty(t, cfg.MeteomaticsUser)
	assert.Equal(t, "https://api.meteomatics.com", cfg.MeteomaticsBaseURL)
	assert.Equal(t, 40.1999, cfg.ClimateLat)
	assert.Equal(t, -122.2011, cfg.ClimateLon)
	assert.Equal(t, time.Date(2013, 1, 1, 0, 0, 0, 0, time.UTC), cfg.ClimateStart)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), cfg.ClimateEnd)
	assert.Equal(t, "P1M", cfg.ClimateInterval)
	assert.Equal(t, 30*time.Second, cfg.ClimateTimeout)
	assert.Equal(t, 3, cfg.ClimateMaxRetries)
	assert.Equal(t, 16, cfg.ClimateCacheSize)

	assert.True(t, cfg.MonthlyProbsEnabled)
	assert.Equal(t, "seasonal", cfg.MonthlyProbsStrategy)
	assert.Equal(t, 100, cfg.ForestTrees)
	assert.Equal(t, uint64(42), cfg.ModelSeed)
	assert.Equal(t, 0.3, cfg.TestFraction)

	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "flowering-predictions", cfg.KafkaPredictionsTopic)
	assert.Equal(t, "data/runs.db", cfg.RunHistoryPath)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("DATASET_PATH", "/srv/obs.json")
	t.Setenv("MAP_OUTPUT_PATH", "/srv/map.html")
	t.Setenv("MAP_ZOOM", "10")
	t.Setenv("METEOMATICS_USER", testUser)
	t.Setenv("METEOMATICS_PASSWORD", testPassword)
	t.Setenv("METEOMATICS_BASE_URL", "http://localhost:9999")
	t.Setenv("CLIMATE_LAT", "9.93")
	t.Setenv("CLIMATE_LON", "-84.08")
	t.Setenv("CLIMATE_START", "2015-01-01")
	t.Setenv("CLIMATE_END", "2020-01-01")
	t.Setenv("CLIMATE_INTERVAL", "P1D")
	t.Setenv("CLIMATE_TIMEOUT", "5s")
	t.Setenv("CLIMATE_MAX_RETRIES", "0")
	t.Setenv("CLIMATE_CACHE_SIZE", "4")
	t.Setenv("MONTHLY_PROBS_ENABLED", "false")
	t.Setenv("MONTHLY_PROBS_STRATEGY", "observed")
	t.Setenv("FOREST_TREES", "200")
	t.Setenv("MODEL_SEED", "7")
	t.Setenv("TEST_FRACTION", "0.25")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_PREDICTIONS_TOPIC", "preds")
	t.Setenv("RUN_HISTORY_PATH", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "/srv/obs.json", cfg.DatasetPath)
	assert.Equal(t, "/srv/map.html", cfg.MapOutputPath)
	assert.Equal(t, 10, cfg.MapZoom)
	assert.True(t, cfg.ClimateEnabled, "credentials enable climate by default")
	assert.Equal(t, testUser, cfg.MeteomaticsUser)
	assert.Equal(t, testPassword, cfg.MeteomaticsPassword)
	assert.Equal(t, "http://localhost:9999", cfg.MeteomaticsBaseURL)
	assert.Equal(t, 9.93, cfg.ClimateLat)
	assert.Equal(t, -84.08, cfg.ClimateLon)
	assert.Equal(t, 2015, cfg.ClimateStart.Year())
	assert.Equal(t, 2020, cfg.ClimateEnd.Year())
	assert.Equal(t, "P1D", cfg.ClimateInterval)
	assert.Equal(t, 5*time.Second, cfg.ClimateTimeout)
	assert.Equal(t, 0, cfg.ClimateMaxRetries)
	assert.Equal(t, 4, cfg.ClimateCacheSize)
	assert.False(t, cfg.MonthlyProbsEnabled)
	assert.Equal(t, "observed", cfg.MonthlyProbsStrategy)
	assert.Equal(t, 200, cfg.ForestTrees)
	assert.Equal(t, uint64(7), cfg.ModelSeed)
	assert.Equal(t, 0.25, cfg.TestFraction)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "preds", cfg.KafkaPredictionsTopic)
	assert.Empty(t, cfg.RunHistoryPath, "explicit empty path disables run history")
}

func TestLoad_ClimateExplicitlyDisabled(t *testing.T) {
	t.Setenv("METEOMATICS_USER", testUser)
	t.Setenv("METEOMATICS_PASSWORD", testPassword)
	t.Setenv("CLIMATE_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.ClimateEnabled)
}

func TestLoad_ClimateEnabledWithoutCredentials(t *testing.T) {
	t.Setenv("CLIMATE_ENABLED", "true")
	t.Setenv("METEOMATICS_USER", testUser)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CLIMATE_ENABLED")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"shutdown timeout", "SHUTDOWN_TIMEOUT", "soon"},
		{"map zoom", "MAP_ZOOM", "42"},
		{"latitude", "CLIMATE_LAT", "91"},
		{"longitude", "CLIMATE_LON", "east"},
		{"start date", "CLIMATE_START", "01/01/2013"},
		{"climate timeout", "CLIMATE_TIMEOUT", "-1s"},
		{"retries", "CLIMATE_MAX_RETRIES", "many"},
		{"cache size", "CLIMATE_CACHE_SIZE", "0"},
		{"monthly flag", "MONTHLY_PROBS_ENABLED", "sometimes"},
		{"strategy", "MONTHLY_PROBS_STRATEGY", "merged"},
		{"trees", "FOREST_TREES", "0"},
		{"too few trees", "FOREST_TREES", "99"},
		{"too many trees", "FOREST_TREES", "201"},
		{"seed", "MODEL_SEED", "-1"},
		{"test fraction", "TEST_FRACTION", "1"},
		{"climate flag", "CLIMATE_ENABLED", "maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_ClimateWindowOrder(t *testing.T) {
	t.Setenv("CLIMATE_START", "2023-01-01")
	t.Setenv("CLIMATE_END", "2013-01-01")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CLIMATE_END")
}

func TestValidate_ChecksOverrides(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	cfg.ForestTrees = 1000
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FOREST_TREES")

	cfg.ForestTrees = MaxForestTrees
	cfg.MonthlyProbsStrategy = "merged"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MONTHLY_PROBS_STRATEGY")
}
