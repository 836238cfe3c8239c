// Command predict runs the flowering-risk pipeline once and prints a summary.
//
// Configuration comes from the same environment variables as the service;
// flags override individual values.
//
// Usage:
//
//	go run ./cmd/predict --dataset data/valleCentralData.json --no-climate
//	go run ./cmd/predict --strategy observed --json
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/couchcryptid/florascope-service/internal/config"
	"github.com/couchcryptid/florascope-service/internal/domain"
	"github.com/couchcryptid/florascope-service/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

type cli struct {
	Dataset   string `help:"Observation dataset to read." type:"path"`
	Map       string `help:"Where to write the HTML map." type:"path"`
	NoMap     bool   `help:"Skip map rendering."`
	NoClimate bool   `help:"Skip the climatology join."`
	Strategy  string `help:"Monthly probability strategy (seasonal or observed)."`
	Trees     int    `help:"Number of trees in the forest (100 to 200)."`
	Seed      uint64 `help:"Model seed."`
	JSON      bool   `name:"json" help:"Print the predictions as JSON instead of a summary."`
}

func (c *cli) Run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	c.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := pipeline.Run(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if c.JSON {
		return printJSON(os.Stdout, res)
	}
	printSummary(os.Stdout, res)
	return nil
}

// apply overrides cfg with the flags that were set.
func (c *cli) apply(cfg *config.Config) {
	if c.Dataset != "" {
		cfg.DatasetPath = c.Dataset
	}
	if c.Map != "" {
		cfg.MapOutputPath = c.Map
	}
	if c.NoMap {
		cfg.MapOutputPath = ""
	}
	if c.NoClimate {
		cfg.ClimateEnabled = false
	}
	if c.Strategy != "" {
		cfg.MonthlyProbsEnabled = true
		cfg.MonthlyProbsStrategy = c.Strategy
	}
	if c.Trees > 0 {
		cfg.ForestTrees = c.Trees
	}
	if c.Seed != 0 {
		cfg.ModelSeed = c.Seed
	}
	// The one-shot command never publishes.
	cfg.KafkaBrokers = nil
}

func printJSON(w io.Writer, res *pipeline.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		RunID       string                    `json:"run_id"`
		Predictions []domain.PredictionRecord `json:"predictions"`
		Peak        *domain.PeakMonth         `json:"peak,omitempty"`
		Evaluation  domain.Evaluation         `json:"evaluation"`
	}{res.RunID, domain.Records(res.Predictions), res.Peak, res.Evaluation})
}

func printSummary(w io.Writer, res *pipeline.Result) {
	fmt.Fprintf(w, "run %s: %d observations, %d flagged, accuracy %.3f (%d/%d split)\n",
		res.RunID, len(res.Predictions), res.Flagged(),
		res.Evaluation.Accuracy, res.Evaluation.TrainSize, res.Evaluation.TestSize)
	for _, m := range res.MonthlyProbabilities {
		fmt.Fprintf(w, "  %-9s %.3f\n", domain.MonthName(m.Month), m.Probability)
	}
	if res.Peak != nil {
		fmt.Fprintf(w, "peak month: %s (%.3f)\n", res.Peak.Name, res.Peak.Probability)
	}
	if res.MapPath != "" {
		fmt.Fprintf(w, "map: %s\n", res.MapPath)
	}
}

func main() {
	var c cli
	ctx := kong.Parse(&c,
		kong.Name("predict"),
		kong.Description("Run the flowering-risk pipeline once."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run())
}
