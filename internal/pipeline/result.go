package pipeline

import (
	"time"

	"github.com/couchcryptid/florascope-service/internal/domain"
	"github.com/couchcryptid/florascope-service/internal/render"
	"github.com/couchcryptid/florascope-service/internal/risk"
)

// Run statuses stored in the run history.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Result is the outcome of a successful run.
type Result struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration

	Predictions []domain.Prediction
	Climate     []domain.ClimateSample
	Evaluation  domain.Evaluation

	ClimateEnabled       bool
	MonthlyEnabled       bool
	Strategy             risk.MonthlyStrategy
	MonthlyProbabilities []domain.MonthlyProbability
	Peak                 *domain.PeakMonth

	// MapPath is set when the map was rendered.
	MapPath string
}

// Flagged counts predictions labeled as probable flowering.
func (r *Result) Flagged() int {
	n := 0
	for _, p := range r.Predictions {
		n += p.PredictedLabel
	}
	return n
}

// PeakMonthNumber returns the peak month, or 0 when none was selected.
func (r *Result) PeakMonthNumber() int {
	if r.Peak == nil {
		return 0
	}
	return r.Peak.Month
}

// Report converts the result into the export document.
func (r *Result) Report() render.Report {
	return render.Report{
		RunID:       r.RunID,
		Predictions: r.Predictions,
		Monthly:     r.MonthlyProbabilities,
		Strategy:    string(r.Strategy),
		Peak:        r.Peak,
		Evaluation:  r.Evaluation,
	}
}

// record summarizes the run for the history store. A failed run reports no
// observations, flags or peak month, since none of its results were kept.
func (r *Result) record(err error) domain.RunRecord {
	rec := domain.RunRecord{
		ID:             r.RunID,
		StartedAt:      r.StartedAt,
		Duration:       r.Duration,
		Observations:   len(r.Predictions),
		Flagged:        r.Flagged(),
		PeakMonth:      r.PeakMonthNumber(),
		ClimateEnabled: r.ClimateEnabled,
		Status:         StatusOK,
	}
	if r.MonthlyEnabled {
		rec.Strategy = string(r.Strategy)
	}
	if err != nil {
		rec.Status = StatusError
		rec.Error = err.Error()
		rec.Observations = 0
		rec.Flagged = 0
		rec.PeakMonth = 0
	}
	return rec
}
