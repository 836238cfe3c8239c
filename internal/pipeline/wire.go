package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/florascope-service/internal/adapter/dataset"
	kafkaadapter "github.com/couchcryptid/florascope-service/internal/adapter/kafka"
	"github.com/couchcryptid/florascope-service/internal/adapter/meteomatics"
	"github.com/couchcryptid/florascope-service/internal/adapter/sqlite"
	"github.com/couchcryptid/florascope-service/internal/config"
	"github.com/couchcryptid/florascope-service/internal/domain"
	"github.com/couchcryptid/florascope-service/internal/observability"
	"github.com/couchcryptid/florascope-service/internal/risk"
	"github.com/prometheus/client_golang/prometheus"
)

// Service is a Pipeline together with the adapters built for it.
type Service struct {
	Pipeline *Pipeline
	// History is nil when run history is disabled.
	History *sqlite.Store

	closers []io.Closer
}

// Close releases every adapter.
func (s *Service) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OptionsFromConfig translates configuration into pipeline options.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	strategy, err := risk.ParseStrategy(cfg.MonthlyProbsStrategy)
	if err != nil {
		return Options{}, err
	}
	return Options{
		ClimateEnabled: cfg.ClimateEnabled,
		ClimateQuery: domain.ClimateQuery{
			Lat:       cfg.ClimateLat,
			Lon:       cfg.ClimateLon,
			Start:     cfg.ClimateStart,
			End:       cfg.ClimateEnd,
			Interval:  cfg.ClimateInterval,
			Variables: domain.ClimateVariables,
		},
		Model: risk.Options{
			Trees:        cfg.ForestTrees,
			Seed:         cfg.ModelSeed,
			TestFraction: cfg.TestFraction,
		},
		MonthlyEnabled: cfg.MonthlyProbsEnabled,
		Strategy:       strategy,
		MapPath:        cfg.MapOutputPath,
		MapZoom:        cfg.MapZoom,
	}, nil
}

// Build wires the pipeline and its adapters from configuration. The caller
// owns the returned Service and must Close it.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*Service, error) {
	opts, err := OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	svc := &Service{}
	var options []Option

	if cfg.RunHistoryPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.RunHistoryPath), 0o755); err != nil {
			return nil, fmt.Errorf("create run history directory: %w", err)
		}
		store, err := sqlite.Open(ctx, cfg.RunHistoryPath, logger)
		if err != nil {
			return nil, fmt.Errorf("open run history: %w", err)
		}
		svc.History = store
		svc.closers = append(svc.closers, store)
		options = append(options, WithRecorder(store))
		logger.Info("run history enabled", "path", cfg.RunHistoryPath)
	}

	var climate domain.ClimateSource
	if cfg.ClimateEnabled {
		client := meteomatics.NewClient(meteomatics.ClientConfig{
			BaseURL:    cfg.MeteomaticsBaseURL,
			User:       cfg.MeteomaticsUser,
			Password:   cfg.MeteomaticsPassword,
			Timeout:    cfg.ClimateTimeout,
			MaxRetries: cfg.ClimateMaxRetries,
		}, logger, metrics)
		if svc.History != nil {
			client.SetArchive(svc.History)
		}
		climate = meteomatics.NewCachedSource(client, cfg.ClimateCacheSize, metrics)
		logger.Info("climate join enabled", "cache_size", cfg.ClimateCacheSize, "timeout", cfg.ClimateTimeout)
	} else {
		logger.Info("climate join disabled")
	}

	if len(cfg.KafkaBrokers) > 0 {
		writer := kafkaadapter.NewWriter(cfg, logger)
		svc.closers = append(svc.closers, writer)
		options = append(options, WithSink(writer))
		logger.Info("kafka prediction sink enabled", "topic", cfg.KafkaPredictionsTopic)
	}

	source := dataset.NewFileSource(cfg.DatasetPath)
	svc.Pipeline = New(source, climate, opts, logger, metrics, options...)
	return svc, nil
}

// Run builds a pipeline from cfg, executes a single run and releases the
// adapters. Metrics go to a private registry.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Result, error) {
	metrics := observability.NewMetricsWithRegistry(prometheus.NewRegistry())
	svc, err := Build(ctx, cfg, logger, metrics)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Warn("release adapters failed", "error", err)
		}
	}()
	return svc.Pipeline.Run(ctx)
}
