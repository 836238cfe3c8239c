package domain

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestClimatology(t *testing.T) {
	records := []ClimateRecord{
		{Date: day(2013, time.March, 1), Parameter: TempMax, Value: 20},
		{Date: day(2014, time.March, 1), Parameter: TempMax, Value: 22},
		{Date: day(2015, time.March, 1), Parameter: TempMax, Value: math.NaN()},
		{Date: day(2013, time.March, 1), Parameter: Precipitation, Value: 3},
		{Date: day(2013, time.January, 1), Parameter: TempMax, Value: 10},
		{Date: day(2013, time.January, 1), Parameter: RelativeHumidity, Value: 80},
		{Date: day(2014, time.January, 1), Parameter: RelativeHumidity, Value: 90},
	}

	got := Climatology(records)
	want := []ClimateSample{
		{Month: 1, Values: map[ClimateVariable]float64{TempMax: 10, RelativeHumidity: 85}},
		{Month: 3, Values: map[ClimateVariable]float64{TempMax: 21, Precipitation: 3}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Climatology mismatch (-want +got):\n%s", diff)
	}
}

func TestClimatology_AllMissing(t *testing.T) {
	got := Climatology([]ClimateRecord{
		{Date: day(2013, time.May, 1), Parameter: TempMin, Value: math.NaN()},
	})
	assert.Empty(t, got)
}

func TestJoinClimate(t *testing.T) {
	rows := []FeatureRow{
		{Month: 6, FloweringRisk: 1},
		{Month: 1},
		{Month: 3},
		{Month: 1, FloweringRisk: 1},
	}
	samples := []ClimateSample{
		{Month: 1, Values: map[ClimateVariable]float64{TempMax: 10, TempMin: 2}},
		{Month: 3, Values: map[ClimateVariable]float64{TempMax: 21}},
	}

	joined, err := JoinClimate(rows, samples)
	require.NoError(t, err)
	require.Len(t, joined, len(rows))

	for i := range rows {
		assert.Equal(t, rows[i], joined[i].FeatureRow, "row %d order", i)
	}

	assert.Nil(t, joined[0].Climate, "month 6 has no coverage")
	_, ok := joined[0].ClimateValue(TempMax)
	assert.False(t, ok)

	assert.Equal(t, map[ClimateVariable]float64{TempMax: 10, TempMin: 2}, joined[1].Climate)
	assert.Equal(t, map[ClimateVariable]float64{TempMax: 21}, joined[2].Climate)
	assert.Equal(t, joined[1].Climate, joined[3].Climate)
}

func TestJoinClimate_NoSamples(t *testing.T) {
	rows := []FeatureRow{{Month: 6}, {Month: 7}}

	joined, err := JoinClimate(rows, nil)
	require.NoError(t, err)
	require.Len(t, joined, 2)
	for _, r := range joined {
		assert.Nil(t, r.Climate)
	}
}

func TestJoinClimate_NoRows(t *testing.T) {
	joined, err := JoinClimate(nil, []ClimateSample{{Month: 1, Values: map[ClimateVariable]float64{TempMax: 1}}})
	require.NoError(t, err)
	assert.Empty(t, joined)
}
