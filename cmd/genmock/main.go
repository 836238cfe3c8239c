// Command genmock generates a synthetic GLOBE land-cover observation dataset
// for local runs and test fixtures. Records mimic the quirks of real exports:
// mixed date layouts, flags encoded as booleans or strings, coordinates that
// only appear in the nested data block and missing elevations. The output is
// normalized with the domain package before it is written, so every file it
// produces is accepted by the pipeline.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -n 400 -seed 7 \
//	  -out data/valleCentralData.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/florascope-service/internal/domain"
)

// Default bounding box around the Central Valley of Costa Rica.
const (
	defaultMinLat = 9.80
	defaultMaxLat = 10.10
	defaultMinLon = -84.30
	defaultMaxLon = -83.90
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

type bounds struct {
	minLat, maxLat, minLon, maxLon float64
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	n := flag.Int("n", 400, "number of observations to generate")
	seed := flag.Uint64("seed", 42, "random seed")
	out := flag.String("out", "data/valleCentralData.json", "output path for the observation JSON")
	fromYear := flag.Int("from-year", 2018, "first year of measurements")
	toYear := flag.Int("to-year", 2023, "last year of measurements")
	minLat := flag.Float64("min-lat", defaultMinLat, "southern bound")
	maxLat := flag.Float64("max-lat", defaultMaxLat, "northern bound")
	minLon := flag.Float64("min-lon", defaultMinLon, "western bound")
	maxLon := flag.Float64("max-lon", defaultMaxLon, "eastern bound")
	flag.Parse()

	if *n <= 0 {
		flag.Usage()
		return fmt.Errorf("-n must be positive")
	}
	if *toYear < *fromYear {
		return fmt.Errorf("-to-year must not be before -from-year")
	}
	box := bounds{*minLat, *maxLat, *minLon, *maxLon}
	if box.maxLat <= box.minLat || box.maxLon <= box.minLon {
		return fmt.Errorf("invalid bounding box")
	}

	rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
	records := make([]map[string]any, *n)
	for i := range records {
		records[i] = generateRecord(rng, i, box, *fromYear, *toYear)
	}

	// Round-trip through the real normalization so the fixture cannot drift
	// from what the pipeline accepts.
	observations, err := domain.NormalizeRecords(records)
	if err != nil {
		return fmt.Errorf("generated dataset does not normalize: %w", err)
	}
	rows, err := domain.BuildFeatures(observations)
	if err != nil {
		return fmt.Errorf("generated dataset has bad dates: %w", err)
	}

	if err := writeJSON(*out, domain.RawDataset{Count: len(records), Results: records}); err != nil {
		return err
	}
	fmt.Printf("Wrote %d observations to %s\n", len(records), *out)
	printStats(rows)
	return nil
}

// generateRecord builds one raw observation. Leaves are more likely in the
// wet season (May to November) and dry ground in the dry season.
func generateRecord(rng *rand.Rand, i int, box bounds, fromYear, toYear int) map[string]any {
	year := fromYear + rng.IntN(toYear-fromYear+1)
	month := time.Month(1 + rng.IntN(12))
	day := 1 + rng.IntN(28)
	measured := time.Date(year, month, day, rng.IntN(24), rng.IntN(60), 0, 0, time.UTC)

	wet := month >= time.May && month <= time.November
	leaves := rng.Float64() < pick(wet, 0.75, 0.35)
	dry := rng.Float64() < pick(wet, 0.20, 0.70)
	water := rng.Float64() < pick(wet, 0.30, 0.05)

	lat := round(box.minLat+rng.Float64()*(box.maxLat-box.minLat), 5)
	lon := round(box.minLon+rng.Float64()*(box.maxLon-box.minLon), 5)
	elev := round(900+rng.Float64()*700, 1)

	data := map[string]any{
		"landcoversDryGround":     encodeFlag(rng, dry),
		"landcoversLeavesOnTrees": encodeFlag(rng, leaves),
		"landcoversStandingWater": encodeFlag(rng, water),
	}
	rec := map[string]any{
		"measuredDate": measured.Format(dateLayouts[rng.IntN(len(dateLayouts))]),
		"data":         data,
	}

	switch {
	case i%5 == 4:
		data["landcoversMeasurementLatitude"] = lat
		data["landcoversMeasurementLongitude"] = lon
		data["landcoversMeasurementElevation"] = elev
	default:
		rec["latitude"] = lat
		rec["longitude"] = lon
		if rng.Float64() >= 0.1 {
			rec["elevation"] = elev
		}
	}
	return rec
}

// encodeFlag renders a boolean in one of the encodings seen in exports.
func encodeFlag(rng *rand.Rand, v bool) any {
	switch rng.IntN(4) {
	case 0:
		if v {
			return "true"
		}
		return "false"
	case 1:
		if v {
			return "True"
		}
		return "no"
	default:
		return v
	}
}

func pick(cond bool, a, b float64) float64 {
	if cond {
		return a
	}
	return b
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", " ")
	if err := enc.Encode(v); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

func printStats(rows []domain.FeatureRow) {
	var byMonth [13]int
	var positives [13]int
	total := 0
	for _, r := range rows {
		byMonth[r.Month]++
		positives[r.Month] += r.FloweringRisk
		total += r.FloweringRisk
	}
	fmt.Printf("Flowering risk: %d positive, %d negative\n", total, len(rows)-total)
	for m := 1; m <= 12; m++ {
		fmt.Printf("  %-9s %4d obs %4d positive\n", domain.MonthName(m), byMonth[m], positives[m])
	}
}
