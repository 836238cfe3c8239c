// Package risk trains the flowering-risk classifier on the joined feature
// table and derives per-row predictions and monthly probabilities from it.
package risk

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/florascope-service/internal/domain"
	"github.com/couchcryptid/florascope-service/internal/forest"
	"gonum.org/v1/gonum/stat"
)

// Base feature columns, in matrix order. Climate variables follow when enabled.
var baseColumns = []string{"lon", "lat", "elev", "dry", "leaves", "water"}

// Options configures training.
type Options struct {
	Trees        int
	Seed         uint64
	TestFraction float64
	// UseClimate adds the climate variables to the feature matrix.
	UseClimate bool
}

// DefaultOptions mirrors the service defaults: 100 trees, seed 42, 30% held out.
func DefaultOptions() Options {
	return Options{Trees: 100, Seed: 42, TestFraction: 0.3}
}

// Model is a trained classifier plus what it needs to score new rows.
type Model struct {
	forest     *forest.Forest
	useClimate bool
	// climateMeans imputes unset climate values.
	climateMeans map[domain.ClimateVariable]float64
	centroid     centroid
	evaluation   domain.Evaluation
}

type centroid struct {
	lat, lon, elev float64
}

// Train fits the classifier. It tries a stratified split first and falls
// back to an unstratified one when class support is too thin.
func Train(rows []domain.JoinedRow, opts Options, logger *slog.Logger) (*Model, error) {
	if len(rows) == 0 {
		return nil, &domain.InsufficientDataError{Reason: "no rows to train on"}
	}

	m := &Model{
		useClimate:   opts.UseClimate,
		climateMeans: climateMeans(rows),
		centroid:     centroidOf(rows),
	}

	x := make([][]float64, len(rows))
	y := make([]int, len(rows))
	for i, r := range rows {
		x[i] = m.vector(r)
		y[i] = r.FloweringRisk
	}

	stratified := true
	train, test, err := forest.Split(y, opts.TestFraction, opts.Seed, true)
	var insufficient *domain.InsufficientDataError
	if errors.As(err, &insufficient) {
		logger.Warn("stratified split not possible, falling back to random split", "reason", insufficient.Reason, "rows", len(rows))
		stratified = false
		train, test, err = forest.Split(y, opts.TestFraction, opts.Seed, false)
	}
	if err != nil {
		return nil, fmt.Errorf("split training data: %w", err)
	}

	trainX, trainY := subset(x, y, train)
	f, err := forest.Fit(trainX, trainY, forest.Config{Trees: opts.Trees, Seed: opts.Seed})
	if err != nil {
		return nil, fmt.Errorf("train classifier: %w", err)
	}
	m.forest = f

	testX, testY := subset(x, y, test)
	predicted := make([]int, len(testX))
	for i, row := range testX {
		predicted[i] = f.Predict(row)
	}
	m.evaluation = Evaluate(testY, predicted)
	m.evaluation.TrainSize = len(train)
	m.evaluation.TestSize = len(test)
	m.evaluation.Stratified = stratified

	logger.Info("classifier trained",
		"rows", len(rows),
		"train", len(train),
		"test", len(test),
		"stratified", stratified,
		"features", len(m.Columns()),
		"accuracy", m.evaluation.Accuracy,
	)
	return m, nil
}

// Columns returns the feature names in matrix order.
func (m *Model) Columns() []string {
	cols := append([]string{}, baseColumns...)
	if m.useClimate {
		for _, v := range domain.ClimateVariables {
			cols = append(cols, string(v))
		}
	}
	return cols
}

// Evaluation returns the held-out scores computed during training.
func (m *Model) Evaluation() domain.Evaluation { return m.evaluation }

// PredictAll scores every row, training rows included.
func (m *Model) PredictAll(rows []domain.JoinedRow) []domain.Prediction {
	out := make([]domain.Prediction, len(rows))
	for i, r := range rows {
		p := m.forest.PredictProba(m.vector(r))
		label := 0
		if p > 0.5 {
			label = 1
		}
		out[i] = domain.Prediction{JoinedRow: r, PredictedLabel: label, Probability: p}
	}
	return out
}

func (m *Model) vector(r domain.JoinedRow) []float64 {
	v := []float64{
		r.Longitude,
		r.Latitude,
		r.Elevation,
		float64(r.DryGround),
		float64(r.LeavesOnTrees),
		float64(r.StandingWater),
	}
	if !m.useClimate {
		return v
	}
	for _, cv := range domain.ClimateVariables {
		val, ok := r.ClimateValue(cv)
		if !ok {
			val = m.climateMeans[cv]
		}
		v = append(v, val)
	}
	return v
}

// climateMeans is the mean of each climate variable over the rows where it is
// set, or 0 when it is set nowhere.
func climateMeans(rows []domain.JoinedRow) map[domain.ClimateVariable]float64 {
	means := make(map[domain.ClimateVariable]float64, len(domain.ClimateVariables))
	for _, cv := range domain.ClimateVariables {
		var xs []float64
		for _, r := range rows {
			if val, ok := r.ClimateValue(cv); ok {
				xs = append(xs, val)
			}
		}
		if len(xs) > 0 {
			means[cv] = stat.Mean(xs, nil)
		}
	}
	return means
}

func centroidOf(rows []domain.JoinedRow) centroid {
	lat := make([]float64, len(rows))
	lon := make([]float64, len(rows))
	elev := make([]float64, len(rows))
	for i, r := range rows {
		lat[i], lon[i], elev[i] = r.Latitude, r.Longitude, r.Elevation
	}
	return centroid{
		lat:  stat.Mean(lat, nil),
		lon:  stat.Mean(lon, nil),
		elev: stat.Mean(elev, nil),
	}
}

func subset(x [][]float64, y []int, idx []int) ([][]float64, []int) {
	sx := make([][]float64, len(idx))
	sy := make([]int, len(idx))
	for i, j := range idx {
		sx[i] = x[j]
		sy[i] = y[j]
	}
	return sx, sy
}
