package render

import (
	"fmt"
	"io"
	"sort"

	"github.com/couchcryptid/florascope-service/internal/domain"
	"github.com/xuri/excelize/v2"
)

const (
	sheetPredictions = "Predictions"
	sheetMonthly     = "Monthly"
	sheetEvaluation  = "Evaluation"
)

// Report is the content of a run export.
type Report struct {
	RunID       string
	Predictions []domain.Prediction
	Monthly     []domain.MonthlyProbability
	Strategy    string
	Peak        *domain.PeakMonth
	Evaluation  domain.Evaluation
}

var predictionHeader = []any{
	"lat", "lon", "elev", "date", "month", "dry_ground", "leaves_on_trees",
	"standing_water", "flowering_risk", "pred_flowering", "probability",
}

// WriteWorkbook writes the report as an xlsx workbook with one sheet for
// predictions, one for monthly probabilities and one for the evaluation.
func WriteWorkbook(w io.Writer, r Report) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetPredictions); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{sheetMonthly, sheetEvaluation} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	if err := writePredictions(f, r.Predictions, header); err != nil {
		return err
	}
	if err := writeMonthly(f, r, header); err != nil {
		return err
	}
	if err := writeEvaluation(f, r, header); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writePredictions(f *excelize.File, preds []domain.Prediction, header int) error {
	if err := writeHeader(f, sheetPredictions, predictionHeader, header); err != nil {
		return err
	}
	for i, p := range preds {
		row := []any{
			p.Latitude, p.Longitude, p.Elevation, p.Date.Format("2006-01-02"), p.Month,
			p.DryGround, p.LeavesOnTrees, p.StandingWater, p.FloweringRisk, p.PredictedLabel, p.Probability,
		}
		if err := setRow(f, sheetPredictions, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeMonthly(f *excelize.File, r Report, header int) error {
	if err := writeHeader(f, sheetMonthly, []any{"month", "name", "probability"}, header); err != nil {
		return err
	}
	for i, mp := range r.Monthly {
		if err := setRow(f, sheetMonthly, i+2, []any{mp.Month, domain.MonthName(mp.Month), mp.Probability}); err != nil {
			return err
		}
	}
	next := len(r.Monthly) + 3
	if err := setRow(f, sheetMonthly, next, []any{"strategy", r.Strategy}); err != nil {
		return err
	}
	if r.Peak != nil {
		return setRow(f, sheetMonthly, next+1, []any{"peak_month", r.Peak.Month, r.Peak.Name, r.Peak.Probability})
	}
	return nil
}

func writeEvaluation(f *excelize.File, r Report, header int) error {
	ev := r.Evaluation
	summary := [][]any{
		{"run_id", r.RunID},
		{"accuracy", ev.Accuracy},
		{"train_size", ev.TrainSize},
		{"test_size", ev.TestSize},
		{"stratified", ev.Stratified},
	}
	for i, row := range summary {
		if err := setRow(f, sheetEvaluation, i+1, row); err != nil {
			return err
		}
	}

	start := len(summary) + 2
	if err := writeHeaderAt(f, sheetEvaluation, start, []any{"class", "precision", "recall", "f1", "support"}, header); err != nil {
		return err
	}
	classes := make([]int, 0, len(ev.Classes))
	for c := range ev.Classes {
		classes = append(classes, c)
	}
	sort.Ints(classes)
	for i, c := range classes {
		cr := ev.Classes[c]
		if err := setRow(f, sheetEvaluation, start+1+i, []any{c, cr.Precision, cr.Recall, cr.F1, cr.Support}); err != nil {
			return err
		}
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, cols []any, style int) error {
	return writeHeaderAt(f, sheet, 1, cols, style)
}

func writeHeaderAt(f *excelize.File, sheet string, row int, cols []any, style int) error {
	if err := setRow(f, sheet, row, cols); err != nil {
		return err
	}
	first, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(cols), row)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, first, last, style); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}
