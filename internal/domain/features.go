package domain

import (
	"strings"
	"time"
)

// measuredDateLayouts lists the accepted date encodings, most specific first.
var measuredDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseMeasuredDate parses a measurement date. Values without a zone are UTC.
func ParseMeasuredDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var firstErr error
	for _, layout := range measuredDateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// FloweringRisk is 1 when leaves are present and the ground is not dry.
func FloweringRisk(leavesOnTrees, dryGround int) int {
	if leavesOnTrees == 1 && dryGround == 0 {
		return 1
	}
	return 0
}

// BuildFeatures derives the month and target label of every observation,
// preserving order. A malformed date fails the whole build.
func BuildFeatures(observations []Observation) ([]FeatureRow, error) {
	rows := make([]FeatureRow, 0, len(observations))
	for i, obs := range observations {
		date, err := ParseMeasuredDate(obs.MeasuredDate)
		if err != nil {
			return nil, &DateParseError{Value: obs.MeasuredDate, Index: i, Err: err}
		}
		rows = append(rows, FeatureRow{
			Observation:   obs,
			Date:          date,
			Month:         int(date.Month()),
			FloweringRisk: FloweringRisk(obs.LeavesOnTrees, obs.DryGround),
		})
	}
	return rows, nil
}
