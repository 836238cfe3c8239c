package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Keys of the nested data block in a raw observation record.
const (
	dataLatitudeKey  = "landcoversMeasurementLatitude"
	dataLongitudeKey = "landcoversMeasurementLongitude"
	dataElevationKey = "landcoversMeasurementElevation"
	dataDryGroundKey = "landcoversDryGround"
	dataLeavesKey    = "landcoversLeavesOnTrees"
	dataWaterKey     = "landcoversStandingWater"

	measuredDateField = "measuredDate"
)

// RawDataset is the on-disk observation document.
type RawDataset struct {
	Count   int              `json:"count"`
	Results []map[string]any `json:"results"`
}

// NormalizeDataset decodes an observation document and normalizes every
// record. Both the {count, results} envelope and a bare array are accepted.
func NormalizeDataset(data []byte) ([]Observation, error) {
	records, err := DecodeRecords(data)
	if err != nil {
		return nil, err
	}
	return NormalizeRecords(records)
}

// DecodeRecords extracts the raw record maps from an observation document.
func DecodeRecords(data []byte) ([]map[string]any, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var records []map[string]any
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("decode observations: %w", err)
		}
		return records, nil
	}

	var doc RawDataset
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("decode observations: %w", err)
	}
	return doc.Results, nil
}

// NormalizeRecords maps raw records to Observations, preserving order. The
// first record without a measurement date fails the whole batch.
func NormalizeRecords(records []map[string]any) ([]Observation, error) {
	out := make([]Observation, 0, len(records))
	for i, rec := range records {
		obs, err := NormalizeRecord(i, rec)
		if err != nil {
			return nil, err
		}
		out = append(out, obs)
	}
	return out, nil
}

// NormalizeRecord maps a single raw record. Top-level coordinates take
// precedence over the ones in the data block.
func NormalizeRecord(index int, rec map[string]any) (Observation, error) {
	data, _ := rec["data"].(map[string]any)

	date, err := measuredDate(index, rec)
	if err != nil {
		return Observation{}, err
	}

	return Observation{
		Latitude:      coordinate(rec, "latitude", data, dataLatitudeKey),
		Longitude:     coordinate(rec, "longitude", data, dataLongitudeKey),
		Elevation:     coordinate(rec, "elevation", data, dataElevationKey),
		DryGround:     CoerceFlag(data[dataDryGroundKey]),
		LeavesOnTrees: CoerceFlag(data[dataLeavesKey]),
		StandingWater: CoerceFlag(data[dataWaterKey]),
		MeasuredDate:  date,
	}, nil
}

// CoerceFlag maps a boolean-like value to 0 or 1. Only true and the string
// "true" (any case) yield 1.
func CoerceFlag(v any) int {
	switch t := v.(type) {
	case bool:
		if t {
			return 1
		}
	case string:
		if strings.EqualFold(t, "true") {
			return 1
		}
	}
	return 0
}

func measuredDate(index int, rec map[string]any) (string, error) {
	v, ok := rec[measuredDateField]
	if !ok || v == nil {
		return "", &MissingFieldError{Field: measuredDateField, Index: index}
	}
	s, ok := v.(string)
	if !ok {
		return "", &DateParseError{Value: fmt.Sprint(v), Index: index}
	}
	if strings.TrimSpace(s) == "" {
		return "", &MissingFieldError{Field: measuredDateField, Index: index}
	}
	return s, nil
}

// coordinate reads key from the record, falling back to fallbackKey in the
// data block. Absent or unparseable values yield 0.
func coordinate(rec map[string]any, key string, data map[string]any, fallbackKey string) float64 {
	if v, ok := toFloat(rec[key]); ok {
		return v
	}
	if v, ok := toFloat(data[fallbackKey]); ok {
		return v
	}
	return 0
}

// toFloat reads a numeric value. Non-finite values such as "NaN" or "Inf"
// count as absent.
func toFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
