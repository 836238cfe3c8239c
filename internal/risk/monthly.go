package risk

import (
	"fmt"
	"sort"

	"github.com/couchcryptid/florascope-service/internal/domain"
)

// MonthlyStrategy selects how per-month probabilities are derived. The two
// strategies answer different questions and are never combined.
type MonthlyStrategy string

const (
	// StrategySeasonal scores one synthesized "typical" observation per month.
	StrategySeasonal MonthlyStrategy = "seasonal"
	// StrategyObserved averages predicted labels of real observations per month.
	StrategyObserved MonthlyStrategy = "observed"
)

// ParseStrategy validates a strategy name.
func ParseStrategy(s string) (MonthlyStrategy, error) {
	switch MonthlyStrategy(s) {
	case StrategySeasonal, StrategyObserved:
		return MonthlyStrategy(s), nil
	}
	return "", fmt.Errorf("unknown monthly strategy %q", s)
}

var (
	dryMonths    = monthSet(5, 6, 7, 8)
	leavesMonths = monthSet(3, 4, 5, 6, 7, 8)
	waterMonths  = monthSet(11, 12, 1, 2)
)

func monthSet(months ...int) map[int]bool {
	s := make(map[int]bool, len(months))
	for _, m := range months {
		s[m] = true
	}
	return s
}

// SeasonalProbabilities scores a synthesized observation for each month: the
// centroid of the training rows, seasonal indicators, and the month's
// climatology. With climate features only months present in the climatology
// are scored; otherwise all twelve.
func (m *Model) SeasonalProbabilities(climatology []domain.ClimateSample) []domain.MonthlyProbability {
	var samples []domain.ClimateSample
	if m.useClimate {
		samples = append(samples, climatology...)
		sort.Slice(samples, func(i, j int) bool { return samples[i].Month < samples[j].Month })
	} else {
		for month := 1; month <= 12; month++ {
			samples = append(samples, domain.ClimateSample{Month: month})
		}
	}

	out := make([]domain.MonthlyProbability, 0, len(samples))
	for _, s := range samples {
		row := domain.JoinedRow{
			FeatureRow: domain.FeatureRow{
				Observation: domain.Observation{
					Latitude:      m.centroid.lat,
					Longitude:     m.centroid.lon,
					Elevation:     m.centroid.elev,
					DryGround:     indicator(dryMonths[s.Month]),
					LeavesOnTrees: indicator(leavesMonths[s.Month]),
					StandingWater: indicator(waterMonths[s.Month]),
				},
				Month: s.Month,
			},
			Climate: s.Values,
		}
		out = append(out, domain.MonthlyProbability{
			Month:       s.Month,
			Probability: m.forest.PredictProba(m.vector(row)),
		})
	}
	return out
}

// ObservedProbabilities is the mean predicted label per month, over the
// months that have observations.
func ObservedProbabilities(preds []domain.Prediction) []domain.MonthlyProbability {
	sum := make(map[int]int)
	count := make(map[int]int)
	for _, p := range preds {
		sum[p.Month] += p.PredictedLabel
		count[p.Month]++
	}

	out := make([]domain.MonthlyProbability, 0, len(count))
	for month, n := range count {
		out = append(out, domain.MonthlyProbability{
			Month:       month,
			Probability: float64(sum[month]) / float64(n),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// MonthlyProbabilities dispatches to the chosen strategy.
func (m *Model) MonthlyProbabilities(strategy MonthlyStrategy, preds []domain.Prediction, climatology []domain.ClimateSample) ([]domain.MonthlyProbability, error) {
	switch strategy {
	case StrategySeasonal:
		return m.SeasonalProbabilities(climatology), nil
	case StrategyObserved:
		return ObservedProbabilities(preds), nil
	}
	return nil, fmt.Errorf("unknown monthly strategy %q", strategy)
}

func indicator(b bool) int {
	if b {
		return 1
	}
	return 0
}
