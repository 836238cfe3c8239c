// Command validate checks an observation dataset before it is fed to the
// pipeline. Unlike the pipeline, which stops at the first bad record, it
// reports every problem it finds: envelope count mismatches, missing or
// malformed measurement dates, out-of-range coordinates and label balance.
//
// Usage:
//
//	go run ./cmd/validate -dataset data/valleCentralData.json
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/couchcryptid/florascope-service/internal/domain"
)

// minPerClass is the smallest class size a stratified split can use.
const minPerClass = 2

// phase tracks pass/fail for a validation phase.
type phase struct {
	name     string
	errors   []string
	warnings []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) warnf(format string, args ...any) {
	p.warnings = append(p.warnings, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	path := flag.String("dataset", "data/valleCentralData.json", "path to the observation JSON")
	maxErrors := flag.Int("max-errors", 50, "maximum errors printed per phase")
	flag.Parse()

	if *path == "" {
		flag.Usage()
		os.Exit(1)
	}
	os.Exit(run(*path, *maxErrors))
}

func run(path string, maxErrors int) int {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read dataset: %v\n", err)
		return 1
	}

	records, err := domain.DecodeRecords(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	envelope := validateEnvelope(data, len(records))
	recordsPhase, rows := validateRecords(records)
	coords := validateCoordinates(rows)
	labels := validateLabels(rows)
	phases := []*phase{envelope, recordsPhase, coords, labels}

	fmt.Printf("Dataset: %s\n", path)
	fmt.Printf("Records: %d decoded, %d usable\n\n", len(records), len(rows))

	allPassed := true
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = "FAIL"
			allPassed = false
		}
		fmt.Printf("  %-12s %s (%d errors, %d warnings)\n", p.name, status, len(p.errors), len(p.warnings))
	}

	for _, p := range phases {
		if p.passed() && len(p.warnings) == 0 {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		printLimited("error", p.errors, maxErrors)
		printLimited("warning", p.warnings, maxErrors)
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func printLimited(kind string, msgs []string, limit int) {
	for i, m := range msgs {
		if i == limit {
			fmt.Printf("  ... %d more\n", len(msgs)-limit)
			return
		}
		fmt.Printf("  [%s %d] %s\n", kind, i+1, m)
	}
}

// ── Phases ──

func validateEnvelope(data []byte, decoded int) *phase {
	p := &phase{name: "envelope"}
	if decoded == 0 {
		p.errorf("no observations")
	}
	doc, err := decodeEnvelope(data)
	if err != nil {
		p.warnf("bare array document, no count to compare")
		return p
	}
	if doc.Count != decoded {
		p.warnf("count field says %d, results holds %d", doc.Count, decoded)
	}
	return p
}

// validateRecords normalizes every record independently and returns the
// feature rows of the ones that survive.
func validateRecords(records []map[string]any) (*phase, []domain.FeatureRow) {
	p := &phase{name: "records"}
	rows := make([]domain.FeatureRow, 0, len(records))
	for i, rec := range records {
		obs, err := domain.NormalizeRecord(i, rec)
		if err != nil {
			p.errorf("%s", describe(err))
			continue
		}
		date, err := domain.ParseMeasuredDate(obs.MeasuredDate)
		if err != nil {
			p.errorf("record %d: cannot parse measuredDate %q", i, obs.MeasuredDate)
			continue
		}
		rows = append(rows, domain.FeatureRow{
			Observation:   obs,
			Date:          date,
			Month:         int(date.Month()),
			FloweringRisk: domain.FloweringRisk(obs.LeavesOnTrees, obs.DryGround),
		})
	}
	return p, rows
}

func validateCoordinates(rows []domain.FeatureRow) *phase {
	p := &phase{name: "coordinates"}
	for i, r := range rows {
		switch {
		case r.Latitude == 0 && r.Longitude == 0:
			p.warnf("row %d: no coordinates, defaults to 0,0", i)
		case r.Latitude < -90 || r.Latitude > 90:
			p.errorf("row %d: latitude %v out of range", i, r.Latitude)
		case r.Longitude < -180 || r.Longitude > 180:
			p.errorf("row %d: longitude %v out of range", i, r.Longitude)
		}
		if r.Elevation == 0 {
			p.warnf("row %d: no elevation", i)
		}
	}
	return p
}

func validateLabels(rows []domain.FeatureRow) *phase {
	p := &phase{name: "labels"}
	positives := 0
	var months [13]int
	for _, r := range rows {
		positives += r.FloweringRisk
		months[r.Month]++
	}
	negatives := len(rows) - positives

	if positives == 0 || negatives == 0 {
		p.errorf("single class: %d positive, %d negative", positives, negatives)
	} else if positives < minPerClass || negatives < minPerClass {
		p.warnf("class too small to stratify: %d positive, %d negative", positives, negatives)
	}
	for m := 1; m <= 12; m++ {
		if months[m] == 0 {
			p.warnf("no observations in %s", domain.MonthName(m))
		}
	}
	return p
}

func decodeEnvelope(data []byte) (domain.RawDataset, error) {
	var doc domain.RawDataset
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		return doc, errors.New("bare array")
	}
	err := json.Unmarshal(data, &doc)
	return doc, err
}

func describe(err error) string {
	var missing *domain.MissingFieldError
	var parse *domain.DateParseError
	switch {
	case errors.As(err, &missing):
		return fmt.Sprintf("record %d: missing %s", missing.Index, missing.Field)
	case errors.As(err, &parse):
		return fmt.Sprintf("record %d: measuredDate %s is not a string", parse.Index, parse.Value)
	default:
		return err.Error()
	}
}
