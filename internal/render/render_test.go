package render

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/florascope-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func prediction(lat, lon float64, label int) domain.Prediction {
	return domain.Prediction{
		JoinedRow: domain.JoinedRow{FeatureRow: domain.FeatureRow{
			Observation: domain.Observation{Latitude: lat, Longitude: lon, Elevation: 1100},
			Date:        time.Date(2021, 4, 12, 0, 0, 0, 0, time.UTC),
			Month:       4,
		}},
		PredictedLabel: label,
		Probability:    float64(label),
	}
}

func samplePredictions() []domain.Prediction {
	return []domain.Prediction{
		prediction(10, -84, 1),
		prediction(12, -86, 0),
		prediction(11, -85, 1),
	}
}

func april() *domain.PeakMonth {
	return &domain.PeakMonth{Month: 4, Probability: 0.8, Name: domain.MonthName(4)}
}

func TestRenderMap_Markers(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderMap(&buf, MapData{Predictions: samplePredictions(), Peak: april()}))
	doc := buf.String()

	assert.Equal(t, 3, strings.Count(doc, `"kind":"observation"`))
	assert.Equal(t, 1, strings.Count(doc, `"kind":"peak"`))
	assert.Equal(t, 2, strings.Count(doc, `"color":"green"`))
	assert.Equal(t, 1, strings.Count(doc, `"color":"gray"`))
	assert.Contains(t, doc, "basemaps.cartocdn.com/light_all")
	assert.Contains(t, doc, "markerClusterGroup")
	assert.Contains(t, doc, "Estimated flowering month: <b>April</b>")
	assert.Regexp(t, `setView\(center,\s*8\s*\)`, doc)
}

func TestRenderMap_NoPeak(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderMap(&buf, MapData{Predictions: samplePredictions(), Zoom: 11}))
	doc := buf.String()

	assert.Zero(t, strings.Count(doc, `"kind":"peak"`))
	assert.NotContains(t, doc, "Estimated flowering month")
	assert.Regexp(t, `setView\(center,\s*11\s*\)`, doc)
}

func TestBuildView_CenterIsMeanCoordinate(t *testing.T) {
	v := buildView(MapData{Predictions: samplePredictions(), Peak: april()})
	assert.InDelta(t, 11.0, v.Center[0], 1e-9)
	assert.InDelta(t, -85.0, v.Center[1], 1e-9)

	peak := v.Markers[len(v.Markers)-1]
	assert.Equal(t, markerPeak, peak.Kind)
	assert.InDelta(t, 11.0, peak.Lat, 1e-9)
	assert.Contains(t, peak.Label, "April")
}

func TestTooltip(t *testing.T) {
	tip := tooltip(prediction(9.93456, -84.08123, 1))
	assert.Contains(t, tip, "9.9346, -84.0812")
	assert.Contains(t, tip, "1100 m")
	assert.Contains(t, tip, "2021-04-12")
	assert.Contains(t, tip, "Flowering likely")
}

func TestWriteMap_ReplacesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "map.html")

	require.NoError(t, WriteMap(path, MapData{Predictions: samplePredictions()[:1]}))
	first, err := os.Stat(path)
	require.NoError(t, err)

	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))

	require.NoError(t, WriteMap(path, MapData{Predictions: samplePredictions()}))
	second, err := os.Stat(path)
	require.NoError(t, err)

	assert.True(t, second.ModTime().After(old), "mtime is refreshed on every render")
	assert.NotEqual(t, first.Size(), second.Size())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(data), `"kind":"observation"`))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files are left behind")
}

func TestWriteChart_PNG(t *testing.T) {
	probs := []domain.MonthlyProbability{{Month: 3, Probability: 0.6}, {Month: 4, Probability: 0.8}, {Month: 7, Probability: 0.1}}

	var buf bytes.Buffer
	require.NoError(t, WriteChart(&buf, probs, april()))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))
}

func TestWriteChart_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteChart(&buf, nil, nil))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))
}

func TestWriteWorkbook(t *testing.T) {
	report := Report{
		RunID:       "run-1",
		Predictions: samplePredictions(),
		Monthly:     []domain.MonthlyProbability{{Month: 4, Probability: 0.8}, {Month: 7, Probability: 0.1}},
		Strategy:    "seasonal",
		Peak:        april(),
		Evaluation: domain.Evaluation{
			Accuracy: 1, TrainSize: 2, TestSize: 1,
			Classes: map[int]domain.ClassReport{0: {Support: 0}, 1: {Precision: 1, Recall: 1, F1: 1, Support: 1}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, report))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{sheetPredictions, sheetMonthly, sheetEvaluation}, f.GetSheetList())

	rows, err := f.GetRows(sheetPredictions)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "lat", rows[0][0])
	assert.Equal(t, "2021-04-12", rows[1][3])

	monthly, err := f.GetRows(sheetMonthly)
	require.NoError(t, err)
	assert.Equal(t, []string{"4", "April", "0.8"}, monthly[1])
	assert.Equal(t, []string{"peak_month", "4", "April", "0.8"}, monthly[len(monthly)-1])

	eval, err := f.GetRows(sheetEvaluation)
	require.NoError(t, err)
	assert.Equal(t, []string{"run_id", "run-1"}, eval[0])
	assert.Equal(t, "class", eval[6][0])
	assert.Len(t, eval, 9)
}
