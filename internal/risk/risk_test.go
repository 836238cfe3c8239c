package risk

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/couchcryptid/florascope-service/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// threeObservations is the canonical small scenario: risks [1, 0, 1].
func threeObservations(t *testing.T) []domain.JoinedRow {
	t.Helper()
	obs := []domain.Observation{
		{Latitude: 40.1, Longitude: -122.2, Elevation: 100, LeavesOnTrees: 1, MeasuredDate: "2020-04-01"},
		{Latitude: 40.1, Longitude: -122.2, Elevation: 100, DryGround: 1, StandingWater: 1, MeasuredDate: "2020-08-01"},
		{Latitude: 40.1, Longitude: -122.2, Elevation: 100, LeavesOnTrees: 1, MeasuredDate: "2020-05-01"},
	}
	rows, err := domain.BuildFeatures(obs)
	require.NoError(t, err)
	joined, err := domain.JoinClimate(rows, nil)
	require.NoError(t, err)
	return joined
}

// syntheticRows builds n rows at one site cycling through the four indicator
// combinations, so only the indicators carry signal.
func syntheticRows(n int) []domain.JoinedRow {
	rows := make([]domain.JoinedRow, n)
	for i := range rows {
		dry := i % 2
		leaves := (i / 2) % 2
		month := i%12 + 1
		rows[i] = domain.JoinedRow{
			FeatureRow: domain.FeatureRow{
				Observation: domain.Observation{
					Latitude:      9.93,
					Longitude:     -84.08,
					Elevation:     1150,
					DryGround:     dry,
					LeavesOnTrees: leaves,
					MeasuredDate:  fmt.Sprintf("2022-%02d-01", month),
				},
				Month:         month,
				FloweringRisk: domain.FloweringRisk(leaves, dry),
			},
		}
	}
	return rows
}

func labels(preds []domain.Prediction) []int {
	out := make([]int, len(preds))
	for i, p := range preds {
		out[i] = p.PredictedLabel
	}
	return out
}

func TestTrain_ThreeObservationsReproducible(t *testing.T) {
	rows := threeObservations(t)

	risks := []int{rows[0].FloweringRisk, rows[1].FloweringRisk, rows[2].FloweringRisk}
	assert.Equal(t, []int{1, 0, 1}, risks)

	first, err := Train(rows, DefaultOptions(), discardLogger())
	require.NoError(t, err)
	second, err := Train(rows, DefaultOptions(), discardLogger())
	require.NoError(t, err)

	a := first.PredictAll(rows)
	b := second.PredictAll(rows)
	require.Len(t, a, 3)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("predictions differ between runs (-first +second):\n%s", diff)
	}

	ev := first.Evaluation()
	assert.False(t, ev.Stratified, "class 0 has a single member")
	assert.Equal(t, 2, ev.TrainSize)
	assert.Equal(t, 1, ev.TestSize)
}

func TestTrain_PredictsEveryRow(t *testing.T) {
	rows := syntheticRows(60)
	m, err := Train(rows, DefaultOptions(), discardLogger())
	require.NoError(t, err)

	preds := m.PredictAll(rows)
	require.Len(t, preds, len(rows))
	for i, p := range preds {
		assert.Equal(t, rows[i], p.JoinedRow, "row %d preserved", i)
		assert.Contains(t, []int{0, 1}, p.PredictedLabel)
		assert.GreaterOrEqual(t, p.Probability, 0.0)
		assert.LessOrEqual(t, p.Probability, 1.0)
		assert.Equal(t, p.Probability > 0.5, p.PredictedLabel == 1)
	}

	var want []int
	for _, r := range rows {
		want = append(want, r.FloweringRisk)
	}
	assert.Equal(t, want, labels(preds))

	ev := m.Evaluation()
	assert.True(t, ev.Stratified)
	assert.Equal(t, 18, ev.TestSize)
	assert.Equal(t, 42, ev.TrainSize)
	assert.InDelta(t, 1.0, ev.Accuracy, 1e-9)
}

func TestTrain_NoRows(t *testing.T) {
	_, err := Train(nil, DefaultOptions(), discardLogger())
	var insufficient *domain.InsufficientDataError
	assert.ErrorAs(t, err, &insufficient)
}

func TestTrain_SingleRow(t *testing.T) {
	_, err := Train(syntheticRows(1), DefaultOptions(), discardLogger())
	var insufficient *domain.InsufficientDataError
	assert.ErrorAs(t, err, &insufficient)
}

func TestModel_ClimateColumnsAndImputation(t *testing.T) {
	rows := syntheticRows(24)
	for i := range rows {
		if rows[i].Month <= 6 {
			rows[i].Climate = map[domain.ClimateVariable]float64{
				domain.TempMax: 20 + float64(rows[i].Month),
				domain.TempMin: 10,
			}
		}
	}

	opts := DefaultOptions()
	opts.UseClimate = true
	m, err := Train(rows, opts, discardLogger())
	require.NoError(t, err)

	assert.Len(t, m.Columns(), 11)
	assert.Equal(t, "lon", m.Columns()[0])
	assert.Equal(t, string(domain.RelativeHumidity), m.Columns()[10])

	assert.InDelta(t, 23.5, m.climateMeans[domain.TempMax], 1e-9)
	_, ok := m.climateMeans[domain.Precipitation]
	assert.False(t, ok, "never-set variables impute to zero")

	v := m.vector(rows[len(rows)-1])
	assert.InDelta(t, 23.5, v[6], 1e-9)
	assert.Equal(t, 0.0, v[8])
}

func TestSeasonalProbabilities(t *testing.T) {
	rows := syntheticRows(48)

	t.Run("without climate covers all months", func(t *testing.T) {
		m, err := Train(rows, DefaultOptions(), discardLogger())
		require.NoError(t, err)

		probs := m.SeasonalProbabilities(nil)
		require.Len(t, probs, 12)
		for i, p := range probs {
			assert.Equal(t, i+1, p.Month)
			assert.GreaterOrEqual(t, p.Probability, 0.0)
			assert.LessOrEqual(t, p.Probability, 1.0)
		}
		// Leaves without dry ground only in March and April.
		assert.Greater(t, probs[2].Probability, 0.5)
		assert.Greater(t, probs[3].Probability, 0.5)
		assert.Less(t, probs[6].Probability, 0.5)
		assert.Less(t, probs[11].Probability, 0.5)
	})

	t.Run("with climate covers climatology months only", func(t *testing.T) {
		opts := DefaultOptions()
		opts.UseClimate = true
		m, err := Train(rows, opts, discardLogger())
		require.NoError(t, err)

		climatology := []domain.ClimateSample{
			{Month: 7, Values: map[domain.ClimateVariable]float64{domain.TempMax: 30}},
			{Month: 3, Values: map[domain.ClimateVariable]float64{domain.TempMax: 22}},
		}
		probs := m.SeasonalProbabilities(climatology)
		require.Len(t, probs, 2)
		assert.Equal(t, 3, probs[0].Month)
		assert.Equal(t, 7, probs[1].Month)
	})
}

func TestObservedProbabilities(t *testing.T) {
	preds := []domain.Prediction{
		{JoinedRow: domain.JoinedRow{FeatureRow: domain.FeatureRow{Month: 6}}, PredictedLabel: 1},
		{JoinedRow: domain.JoinedRow{FeatureRow: domain.FeatureRow{Month: 6}}, PredictedLabel: 0},
		{JoinedRow: domain.JoinedRow{FeatureRow: domain.FeatureRow{Month: 2}}, PredictedLabel: 1},
		{JoinedRow: domain.JoinedRow{FeatureRow: domain.FeatureRow{Month: 6}}, PredictedLabel: 1},
	}

	got := ObservedProbabilities(preds)
	require.Len(t, got, 2)
	assert.Equal(t, domain.MonthlyProbability{Month: 2, Probability: 1}, got[0])
	assert.Equal(t, 6, got[1].Month)
	assert.InDelta(t, 2.0/3.0, got[1].Probability, 1e-9)
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("seasonal")
	require.NoError(t, err)
	assert.Equal(t, StrategySeasonal, s)

	s, err = ParseStrategy("observed")
	require.NoError(t, err)
	assert.Equal(t, StrategyObserved, s)

	_, err = ParseStrategy("merged")
	assert.Error(t, err)
}

func TestEvaluate(t *testing.T) {
	actual := []int{1, 1, 0, 0, 1}
	predicted := []int{1, 0, 0, 1, 1}

	ev := Evaluate(actual, predicted)
	assert.InDelta(t, 0.6, ev.Accuracy, 1e-9)

	pos := ev.Classes[1]
	assert.InDelta(t, 2.0/3.0, pos.Precision, 1e-9)
	assert.InDelta(t, 2.0/3.0, pos.Recall, 1e-9)
	assert.InDelta(t, 2.0/3.0, pos.F1, 1e-9)
	assert.Equal(t, 3, pos.Support)

	neg := ev.Classes[0]
	assert.InDelta(t, 0.5, neg.Precision, 1e-9)
	assert.InDelta(t, 0.5, neg.Recall, 1e-9)
	assert.Equal(t, 2, neg.Support)
}

func TestEvaluate_ZeroDivision(t *testing.T) {
	ev := Evaluate([]int{0, 0}, []int{0, 0})
	assert.Equal(t, 1.0, ev.Accuracy)
	assert.Equal(t, domain.ClassReport{}, ev.Classes[1])
}
