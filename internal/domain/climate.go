package domain

import (
	"context"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// ClimateVariable names a provider parameter, including its unit suffix.
type ClimateVariable string

const (
	TempMax          ClimateVariable = "t_max_2m_24h:C"
	TempMin          ClimateVariable = "t_min_2m_24h:C"
	Precipitation    ClimateVariable = "precip_24h:mm"
	GlobalRadiation  ClimateVariable = "global_rad:W"
	RelativeHumidity ClimateVariable = "relative_humidity_2m:p"
)

// ClimateVariables is the fixed, ordered set of variables used as features.
var ClimateVariables = []ClimateVariable{
	TempMax,
	TempMin,
	Precipitation,
	GlobalRadiation,
	RelativeHumidity,
}

// ClimateQuery describes a time series request for a single point.
type ClimateQuery struct {
	Lat       float64
	Lon       float64
	Start     time.Time
	End       time.Time
	Interval  string
	Variables []ClimateVariable
}

// ClimateRecord is one raw provider sample. NaN marks a missing value.
type ClimateRecord struct {
	Date      time.Time
	Parameter ClimateVariable
	Value     float64
}

// ClimateSample is the climatological mean of each variable for one calendar
// month. A variable without samples is absent from Values.
type ClimateSample struct {
	Month  int                         `json:"month"`
	Values map[ClimateVariable]float64 `json:"values"`
}

// ClimateSource fetches a monthly climatology.
type ClimateSource interface {
	FetchClimatology(ctx context.Context, q ClimateQuery) ([]ClimateSample, error)
}

// Climatology collapses raw samples into one row per calendar month by
// averaging every value of a variable that falls in that month, across all
// years. Output is sorted by month.
func Climatology(records []ClimateRecord) []ClimateSample {
	values := make(map[int]map[ClimateVariable][]float64)
	for _, r := range records {
		if math.IsNaN(r.Value) {
			continue
		}
		m := int(r.Date.Month())
		if values[m] == nil {
			values[m] = make(map[ClimateVariable][]float64)
		}
		values[m][r.Parameter] = append(values[m][r.Parameter], r.Value)
	}

	out := make([]ClimateSample, 0, len(values))
	for month, byVar := range values {
		s := ClimateSample{Month: month, Values: make(map[ClimateVariable]float64, len(byVar))}
		for v, xs := range byVar {
			s.Values[v] = stat.Mean(xs, nil)
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}
