package domain

import (
	"fmt"
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

const (
	rowColumn   = "row"
	monthColumn = "month"
)

// JoinClimate left-joins rows with the climatology on month. Rows whose month
// has no coverage keep a nil Climate; no row is dropped and order is kept.
func JoinClimate(rows []FeatureRow, samples []ClimateSample) ([]JoinedRow, error) {
	out := make([]JoinedRow, len(rows))
	for i, r := range rows {
		out[i] = JoinedRow{FeatureRow: r}
	}
	if len(rows) == 0 || len(samples) == 0 {
		return out, nil
	}

	joined := observationFrame(rows).LeftJoin(climateFrame(samples), monthColumn)
	if joined.Err != nil {
		return nil, fmt.Errorf("join climate: %w", joined.Err)
	}

	idx, err := joined.Col(rowColumn).Int()
	if err != nil {
		return nil, fmt.Errorf("join climate: row index: %w", err)
	}
	columns := make(map[ClimateVariable][]float64, len(ClimateVariables))
	for _, v := range ClimateVariables {
		columns[v] = joined.Col(string(v)).Float()
	}

	for j, i := range idx {
		for _, v := range ClimateVariables {
			val := columns[v][j]
			if math.IsNaN(val) {
				continue
			}
			if out[i].Climate == nil {
				out[i].Climate = make(map[ClimateVariable]float64, len(ClimateVariables))
			}
			out[i].Climate[v] = val
		}
	}
	return out, nil
}

func observationFrame(rows []FeatureRow) dataframe.DataFrame {
	idx := make([]int, len(rows))
	months := make([]int, len(rows))
	for i, r := range rows {
		idx[i] = i
		months[i] = r.Month
	}
	return dataframe.New(
		series.New(idx, series.Int, rowColumn),
		series.New(months, series.Int, monthColumn),
	)
}

// climateFrame lays samples out one row per month; absent variables are NaN.
func climateFrame(samples []ClimateSample) dataframe.DataFrame {
	months := make([]int, len(samples))
	cols := make([][]float64, len(ClimateVariables))
	for k := range cols {
		cols[k] = make([]float64, len(samples))
	}
	for i, s := range samples {
		months[i] = s.Month
		for k, v := range ClimateVariables {
			val, ok := s.Values[v]
			if !ok {
				val = math.NaN()
			}
			cols[k][i] = val
		}
	}

	frame := []series.Series{series.New(months, series.Int, monthColumn)}
	for k, v := range ClimateVariables {
		frame = append(frame, series.New(cols[k], series.Float, string(v)))
	}
	return dataframe.New(frame...)
}
