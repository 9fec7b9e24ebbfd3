package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func prediction(class int, confidence float64) Prediction {
	return Prediction{Class: &class, Confidence: &confidence}
}

func TestLevelForBoundaries(t *testing.T) {
	cases := []struct {
		score float64
		want  RiskLevel
	}{
		{70.0, RiskMedium},
		{70.1, RiskHigh},
		{40.0, RiskLow},
		{40.1, RiskMedium},
		{0, RiskLow},
		{100, RiskHigh},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, LevelFor(tc.score), "score %v", tc.score)
	}
}

func TestDeriveRoundTrip(t *testing.T) {
	got, err := Derive(prediction(1, 0.95))
	require.NoError(t, err)
	assert.Equal(t, DisplayResult{RiskScore: 95.0, RiskLevel: RiskHigh, PredictionLabel: "CKD Positive"}, got)

	got, err = Derive(prediction(0, 0.80))
	require.NoError(t, err)
	assert.Equal(t, DisplayResult{RiskScore: 20.0, RiskLevel: RiskLow, PredictionLabel: "CKD Negative"}, got)
}

func TestDeriveRoundsBeforeBanding(t *testing.T) {
	// 0.70004 rounds to 70.0 and stays medium.
	got, err := Derive(prediction(1, 0.70004))
	require.NoError(t, err)
	assert.Equal(t, 70.0, got.RiskScore)
	assert.Equal(t, RiskMedium, got.RiskLevel)

	got, err = Derive(prediction(0, 0.599))
	require.NoError(t, err)
	assert.Equal(t, 40.1, got.RiskScore)
	assert.Equal(t, RiskMedium, got.RiskLevel)
}

func TestDeriveIsIdempotent(t *testing.T) {
	p := prediction(0, 0.3)
	first, err := Derive(p)
	require.NoError(t, err)
	second, err := Derive(p)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 0.3, *p.Confidence)
}

func TestDeriveMalformed(t *testing.T) {
	one, two := 1, 2
	half := 0.5
	cases := map[string]struct {
		p     Prediction
		field string
	}{
		"missing class":      {Prediction{Confidence: &half}, "class"},
		"unknown class":      {Prediction{Class: &two, Confidence: &half}, "class"},
		"missing confidence": {Prediction{Class: &one}, "confidence"},
		"confidence above 1": {prediction(1, 1.2), "confidence"},
		"negative":           {prediction(0, -0.1), "confidence"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Derive(tc.p)
			var me MalformedResultError
			require.ErrorAs(t, err, &me)
			assert.Equal(t, tc.field, me.Field)
		})
	}
}

func TestDeriveAcceptsZeroConfidence(t *testing.T) {
	got, err := Derive(prediction(0, 0))
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.RiskScore)
	assert.Equal(t, RiskHigh, got.RiskLevel)
	assert.Equal(t, LabelNegative, got.PredictionLabel)
}
