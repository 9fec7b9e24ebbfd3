package ckd

const (
	ClassNotCKD = 0
	ClassCKD    = 1
)

// PredictionText values as returned by the service.
const (
	TextCKD    = "CKD"
	TextNotCKD = "NO CKD"
)

// Result is the prediction-and-comparison payload.
//
// Confidence is always the probability of the predicted class, not of
// ClassCKD.
type Result struct {
	Class          int                   `json:"class"`
	Confidence     float64               `json:"confidence"`
	PredictionText string                `json:"prediction_text"`
	PatientValues  Vector                `json:"patient_values"`
	ComparisonData map[string]Comparison `json:"comparison_data"`
}

// Comparison sets a patient's value against both cohorts. Numeric features
// carry mean/std/median; categorical features carry only a mode.
type Comparison struct {
	PatientValue float64  `json:"patient_value"`
	CKDMean      *float64 `json:"ckd_mean,omitempty"`
	CKDStd       *float64 `json:"ckd_std,omitempty"`
	CKDMedian    *float64 `json:"ckd_median,omitempty"`
	CKDMode      *float64 `json:"ckd_mode,omitempty"`
	NotCKDMean   *float64 `json:"notckd_mean,omitempty"`
	NotCKDStd    *float64 `json:"notckd_std,omitempty"`
	NotCKDMedian *float64 `json:"notckd_median,omitempty"`
	NotCKDMode   *float64 `json:"notckd_mode,omitempty"`
}

func PredictionText(class int) string {
	if class == ClassCKD {
		return TextCKD
	}
	return TextNotCKD
}
