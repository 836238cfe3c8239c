// Package render produces the artifacts of a run: the interactive map, the
// monthly probability chart and the spreadsheet export.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"

	"github.com/couchcryptid/florascope-service/internal/domain"
	"gonum.org/v1/gonum/stat"
)

//go:embed templates/*
var templateFS embed.FS

var mapTemplate = template.Must(template.ParseFS(templateFS, "templates/map.html.tmpl"))

const (
	// DefaultZoom is the initial zoom level of the map.
	DefaultZoom = 8

	floweringColor = "green"
	quietColor     = "gray"

	markerObservation = "observation"
	markerPeak        = "peak"
)

// MapData is the input of the map document.
type MapData struct {
	Predictions []domain.Prediction
	Peak        *domain.PeakMonth
	Zoom        int
}

// marker is the JSON shape consumed by the map script.
type marker struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Color string  `json:"color,omitempty"`
	Label string  `json:"label"`
	Kind  string  `json:"kind"`
}

type mapView struct {
	Title          string
	Center         []float64
	Zoom           int
	Markers        []marker
	Peak           *domain.PeakMonth
	FloweringColor string
	QuietColor     string
}

// RenderMap writes the map document for data to w.
func RenderMap(w io.Writer, data MapData) error {
	if err := mapTemplate.Execute(w, buildView(data)); err != nil {
		return fmt.Errorf("render map: %w", err)
	}
	return nil
}

// WriteMap renders the map and atomically replaces the file at path.
func WriteMap(path string, data MapData) error {
	var buf bytes.Buffer
	if err := RenderMap(&buf, data); err != nil {
		return err
	}
	return writeFileAtomic(path, buf.Bytes())
}

func buildView(data MapData) mapView {
	zoom := data.Zoom
	if zoom <= 0 {
		zoom = DefaultZoom
	}
	lat, lon := center(data.Predictions)

	markers := make([]marker, 0, len(data.Predictions)+1)
	for _, p := range data.Predictions {
		color := quietColor
		if p.PredictedLabel == 1 {
			color = floweringColor
		}
		markers = append(markers, marker{
			Lat:   p.Latitude,
			Lon:   p.Longitude,
			Color: color,
			Label: tooltip(p),
			Kind:  markerObservation,
		})
	}
	if data.Peak != nil {
		markers = append(markers, marker{
			Lat:   lat,
			Lon:   lon,
			Label: fmt.Sprintf("<b>Most likely flowering month:</b> %s", data.Peak.Name),
			Kind:  markerPeak,
		})
	}

	return mapView{
		Title:          "Flowering risk map",
		Center:         []float64{lat, lon},
		Zoom:           zoom,
		Markers:        markers,
		Peak:           data.Peak,
		FloweringColor: floweringColor,
		QuietColor:     quietColor,
	}
}

func tooltip(p domain.Prediction) string {
	verdict := "No flowering"
	if p.PredictedLabel == 1 {
		verdict = "Flowering likely"
	}
	return fmt.Sprintf("<b>Coordinates:</b> %.4f, %.4f<br><b>Elevation:</b> %g m<br><b>Measured:</b> %s<br><b>Prediction:</b> %s",
		p.Latitude, p.Longitude, p.Elevation, p.Date.Format("2006-01-02"), verdict)
}

// center returns the mean coordinates of the predictions, or the origin
// when there are none.
func center(preds []domain.Prediction) (lat, lon float64) {
	if len(preds) == 0 {
		return 0, 0
	}
	lats := make([]float64, len(preds))
	lons := make([]float64, len(preds))
	for i, p := range preds {
		lats[i] = p.Latitude
		lons[i] = p.Longitude
	}
	return stat.Mean(lats, nil), stat.Mean(lons, nil)
}

// writeFileAtomic writes data to a temporary file next to path and renames
// it over path, so readers never observe a partial document.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
