package client

import (
	"fmt"
	"math"

	"github.com/physickd/platform/pkg/ckd"
)

type RiskLevel string

const (
	RiskHigh   RiskLevel = "high"
	RiskMedium RiskLevel = "medium"
	RiskLow    RiskLevel = "low"
)

const (
	LabelPositive = "CKD Positive"
	LabelNegative = "CKD Negative"
)

// Prediction is a prediction response as received from the service. Class and
// Confidence are pointers so an absent field can be told apart from zero.
type Prediction struct {
	Class          *int                      `json:"class"`
	Confidence     *float64                  `json:"confidence"`
	PredictionText string                    `json:"prediction_text"`
	PatientValues  map[string]float64        `json:"patient_values"`
	ComparisonData map[string]ckd.Comparison `json:"comparison_data"`
}

// DisplayResult is what a dashboard shows for one prediction.
type DisplayResult struct {
	RiskScore       float64   `json:"risk_score"`
	RiskLevel       RiskLevel `json:"risk_level"`
	PredictionLabel string    `json:"prediction_label"`
}

// MalformedResultError reports a prediction response missing a usable field.
type MalformedResultError struct {
	Field  string
	Reason string
}

func (e MalformedResultError) Error() string {
	return fmt.Sprintf("malformed prediction result: %s %s", e.Field, e.Reason)
}

// Derive turns a prediction into its display form. Confidence is the
// probability of the predicted class, so a negative prediction's CKD risk is
// its complement.
func Derive(p Prediction) (DisplayResult, error) {
	if p.Class == nil {
		return DisplayResult{}, MalformedResultError{Field: "class", Reason: "is missing"}
	}
	if *p.Class != ckd.ClassCKD && *p.Class != ckd.ClassNotCKD {
		return DisplayResult{}, MalformedResultError{Field: "class", Reason: fmt.Sprintf("must be 0 or 1, got %d", *p.Class)}
	}
	if p.Confidence == nil {
		return DisplayResult{}, MalformedResultError{Field: "confidence", Reason: "is missing"}
	}
	confidence := *p.Confidence
	if !(confidence >= 0 && confidence <= 1) {
		return DisplayResult{}, MalformedResultError{Field: "confidence", Reason: fmt.Sprintf("must be within [0, 1], got %v", confidence)}
	}

	score := (1 - confidence) * 100
	label := LabelNegative
	if *p.Class == ckd.ClassCKD {
		score = confidence * 100
		label = LabelPositive
	}
	score = math.Round(score*10) / 10

	return DisplayResult{
		RiskScore:       score,
		RiskLevel:       LevelFor(score),
		PredictionLabel: label,
	}, nil
}

// LevelFor bands a one-decimal risk score. Both thresholds are exclusive.
func LevelFor(score float64) RiskLevel {
	switch {
	case score > 70:
		return RiskHigh
	case score > 40:
		return RiskMedium
	default:
		return RiskLow
	}
}
