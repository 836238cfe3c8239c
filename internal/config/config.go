package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

const dateLayout = "2006-01-02"

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	DatasetPath   string
	MapOutputPath string
	MapZoom       int

	// Meteomatics climate configuration.
	MeteomaticsUser     string
	MeteomaticsPassword string
	MeteomaticsBaseURL  string
	ClimateEnabled      bool
	ClimateLat          float64
	ClimateLon          float64
	ClimateStart        time.Time
	ClimateEnd          time.Time
	ClimateInterval     string
	ClimateTimeout      time.Duration
	ClimateMaxRetries   int
	ClimateCacheSize    int

	MonthlyProbsEnabled  bool
	MonthlyProbsStrategy string

	ForestTrees  int
	ModelSeed    uint64
	TestFraction float64

	// Optional sinks. Empty values disable them.
	KafkaBrokers          []string
	KafkaPredictionsTopic string
	RunHistoryPath        string
}

// Ensemble size bounds for the flowering-risk forest.
const (
	MinForestTrees = 100
	MaxForestTrees = 200
)

// Load reads configuration from environment variables, applying defaults where
// unset. A .env file in the working directory is loaded first if present;
// variables already set in the environment win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DatasetPath:   sharedcfg.EnvOrDefault("DATASET_PATH", "data/valleCentralData.json"),
		MapOutputPath: sharedcfg.EnvOrDefault("MAP_OUTPUT_PATH", "data/mapa_floracion.html"),

		MeteomaticsUser:     os.Getenv("METEOMATICS_USER"),
		MeteomaticsPassword: os.Getenv("METEOMATICS_PASSWORD"),
		MeteomaticsBaseURL:  sharedcfg.EnvOrDefault("METEOMATICS_BASE_URL", "https://api.meteomatics.com"),
		ClimateInterval:     sharedcfg.EnvOrDefault("CLIMATE_INTERVAL", "P1M"),

		MonthlyProbsStrategy: sharedcfg.EnvOrDefault("MONTHLY_PROBS_STRATEGY", "seasonal"),

		KafkaBrokers:          sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaPredictionsTopic: sharedcfg.EnvOrDefault("KAFKA_PREDICTIONS_TOPIC", "flowering-predictions"),
		RunHistoryPath:        runHistoryPath(),
	}

	if cfg.MapZoom, err = parseInt("MAP_ZOOM", 8, 0, 20); err != nil {
		return nil, err
	}
	if cfg.ClimateLat, err = parseFloat("CLIMATE_LAT", 40.1999, -90, 90); err != nil {
		return nil, err
	}
	if cfg.ClimateLon, err = parseFloat("CLIMATE_LON", -122.2011, -180, 180); err != nil {
		return nil, err
	}
	if cfg.ClimateStart, err = parseDate("CLIMATE_START", "2013-01-01"); err != nil {
		return nil, err
	}
	if cfg.ClimateEnd, err = parseDate("CLIMATE_END", "2023-01-01"); err != nil {
		return nil, err
	}
	if cfg.ClimateTimeout, err = parseDuration("CLIMATE_TIMEOUT", "30s"); err != nil {
		return nil, err
	}
	if cfg.ClimateMaxRetries, err = parseInt("CLIMATE_MAX_RETRIES", 3, 0, 10); err != nil {
		return nil, err
	}
	if cfg.ClimateCacheSize, err = parseInt("CLIMATE_CACHE_SIZE", 16, 1, 10000); err != nil {
		return nil, err
	}
	if cfg.MonthlyProbsEnabled, err = parseBool("MONTHLY_PROBS_ENABLED", true); err != nil {
		return nil, err
	}
	if cfg.ForestTrees, err = parseInt("FOREST_TREES", 100, MinForestTrees, MaxForestTrees); err != nil {
		return nil, err
	}
	if cfg.ModelSeed, err = parseSeed(); err != nil {
		return nil, err
	}
	if cfg.TestFraction, err = parseFloat("TEST_FRACTION", 0.3, 0, 1); err != nil {
		return nil, err
	}

	if cfg.ClimateEnabled, err = parseBool("CLIMATE_ENABLED", cfg.hasCredentials()); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) hasCredentials() bool {
	return c.MeteomaticsUser != "" && c.MeteomaticsPassword != ""
}

// Validate checks cross-field constraints and ranges. Load calls it; callers
// that override fields afterwards should call it again.
func (c *Config) Validate() error {
	if c.DatasetPath == "" {
		return errors.New("DATASET_PATH is required")
	}
	if c.ClimateEnabled && !c.hasCredentials() {
		return errors.New("CLIMATE_ENABLED is true but METEOMATICS_USER or METEOMATICS_PASSWORD is not set")
	}
	if !c.ClimateEnd.After(c.ClimateStart) {
		return errors.New("CLIMATE_END must be after CLIMATE_START")
	}
	if c.ForestTrees < MinForestTrees || c.ForestTrees > MaxForestTrees {
		return fmt.Errorf("invalid FOREST_TREES: must be an integer between %d and %d", MinForestTrees, MaxForestTrees)
	}
	if c.TestFraction <= 0 || c.TestFraction >= 1 {
		return errors.New("invalid TEST_FRACTION: must be between 0 and 1 exclusive")
	}
	if c.MonthlyProbsStrategy != "seasonal" && c.MonthlyProbsStrategy != "observed" {
		return fmt.Errorf("invalid MONTHLY_PROBS_STRATEGY %q: want seasonal or observed", c.MonthlyProbsStrategy)
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaPredictionsTopic == "" {
		return errors.New("KAFKA_PREDICTIONS_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

// runHistoryPath distinguishes an explicitly empty RUN_HISTORY_PATH, which
// disables the store, from an unset one.
func runHistoryPath() string {
	if v, ok := os.LookupEnv("RUN_HISTORY_PATH"); ok {
		return v
	}
	return "data/runs.db"
}

func parseInt(key string, fallback, lo, hi int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s: must be an integer between %d and %d", key, lo, hi)
	}
	return n, nil
}

func parseFloat(key string, fallback, lo, hi float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < lo || f > hi {
		return 0, fmt.Errorf("invalid %s: must be a number between %v and %v", key, lo, hi)
	}
	return f, nil
}

func parseBool(key string, fallback bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s", key)
	}
	return b, nil
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseDate(key, fallback string) (time.Time, error) {
	t, err := time.Parse(dateLayout, sharedcfg.EnvOrDefault(key, fallback))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: want YYYY-MM-DD", key)
	}
	return t, nil
}

func parseSeed() (uint64, error) {
	s := sharedcfg.EnvOrDefault("MODEL_SEED", "42")
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errors.New("invalid MODEL_SEED")
	}
	return n, nil
}
