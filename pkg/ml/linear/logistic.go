package linear

import (
	"fmt"
	"math"
)

// Weights of a binary logistic regression. Coefficients follow the feature
// order of the artifact that carries them.
type Weights struct {
	Bias         float64   `json:"bias"`
	Coefficients []float64 `json:"coefficients"`
}

// Validate checks the weights against the expected feature count.
func (w Weights) Validate(featureCount int) error {
	if len(w.Coefficients) != featureCount {
		return fmt.Errorf("logistic model has %d coefficients for %d features", len(w.Coefficients), featureCount)
	}
	return nil
}

// Decision returns the log-odds of the positive class.
func Decision(weights Weights, sample []float64) float64 {
	return dot(weights.Coefficients, sample) + weights.Bias
}

func dot(weights []float64, sample []float64) float64 {
	var sum float64
	for i := 0; i < len(weights); i++ {
		sum += weights[i] * sample[i]
	}
	return sum
}

func Sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
