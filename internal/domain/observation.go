package domain

import "time"

// Observation is one ground report after normalization. Indicator fields are
// always 0 or 1.
type Observation struct {
	Latitude      float64 `json:"lat"`
	Longitude     float64 `json:"lon"`
	Elevation     float64 `json:"elev"`
	DryGround     int     `json:"dry_ground"`
	LeavesOnTrees int     `json:"leaves_on_trees"`
	StandingWater int     `json:"standing_water"`
	MeasuredDate  string  `json:"measured_date"`
}

// FeatureRow is an Observation with its parsed date, calendar month and
// target label.
type FeatureRow struct {
	Observation
	Date          time.Time `json:"date"`
	Month         int       `json:"month"`
	FloweringRisk int       `json:"flowering_risk"`
}

// JoinedRow is a FeatureRow with the climatology of its month attached.
// A nil Climate map, or a missing key, means the value is unset.
type JoinedRow struct {
	FeatureRow
	Climate map[ClimateVariable]float64 `json:"climate,omitempty"`
}

// ClimateValue returns the climate value for v and whether it is set.
func (r JoinedRow) ClimateValue(v ClimateVariable) (float64, bool) {
	if r.Climate == nil {
		return 0, false
	}
	val, ok := r.Climate[v]
	return val, ok
}

// Prediction is a JoinedRow scored by the classifier.
type Prediction struct {
	JoinedRow
	PredictedLabel int     `json:"pred_flowering"`
	Probability    float64 `json:"probability"`
}

// MonthlyProbability is the flowering probability attributed to a calendar month.
type MonthlyProbability struct {
	Month       int     `json:"month"`
	Probability float64 `json:"prob"`
}

// PeakMonth is the month with the highest flowering probability.
type PeakMonth struct {
	Month       int     `json:"month"`
	Probability float64 `json:"probability"`
	Name        string  `json:"name"`
}

// ClassReport holds per-class scores of a held-out evaluation.
type ClassReport struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Evaluation summarizes classifier quality on the held-out partition.
type Evaluation struct {
	Accuracy   float64             `json:"accuracy"`
	TrainSize  int                 `json:"train_size"`
	TestSize   int                 `json:"test_size"`
	Stratified bool                `json:"stratified"`
	Classes    map[int]ClassReport `json:"classes"`
}

// RunRecord is the persisted summary of one pipeline run.
type RunRecord struct {
	ID             string        `json:"id"`
	StartedAt      time.Time     `json:"started_at"`
	Duration       time.Duration `json:"duration_ns"`
	Observations   int           `json:"observations"`
	Flagged        int           `json:"flagged"`
	PeakMonth      int           `json:"peak_month,omitempty"`
	ClimateEnabled bool          `json:"climate_enabled"`
	Strategy       string        `json:"strategy,omitempty"`
	Status         string        `json:"status"`
	Error          string        `json:"error,omitempty"`
}

// PredictionRecord is the flat wire form of a Prediction shared by the API
// and the prediction topic.
type PredictionRecord struct {
	Lat           float64                     `json:"lat"`
	Lon           float64                     `json:"lon"`
	Elev          float64                     `json:"elev"`
	Date          string                      `json:"date"`
	Month         int                         `json:"month"`
	DryGround     int                         `json:"dry_ground"`
	LeavesOnTrees int                         `json:"leaves_on_trees"`
	StandingWater int                         `json:"standing_water"`
	FloweringRisk int                         `json:"flowering_risk"`
	PredFlowering int                         `json:"pred_flowering"`
	Probability   float64                     `json:"probability"`
	Climate       map[ClimateVariable]float64 `json:"climate,omitempty"`
}

// Record flattens p into its wire form.
func (p Prediction) Record() PredictionRecord {
	return PredictionRecord{
		Lat:           p.Latitude,
		Lon:           p.Longitude,
		Elev:          p.Elevation,
		Date:          p.Date.Format("2006-01-02"),
		Month:         p.Month,
		DryGround:     p.DryGround,
		LeavesOnTrees: p.LeavesOnTrees,
		StandingWater: p.StandingWater,
		FloweringRisk: p.FloweringRisk,
		PredFlowering: p.PredictedLabel,
		Probability:   p.Probability,
		Climate:       p.Climate,
	}
}

// Records flattens every prediction, preserving order.
func Records(preds []Prediction) []PredictionRecord {
	out := make([]PredictionRecord, len(preds))
	for i, p := range preds {
		out[i] = p.Record()
	}
	return out
}
