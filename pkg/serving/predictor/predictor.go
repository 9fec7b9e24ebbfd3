package predictor

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/physickd/platform/pkg/ml/linear"
	"github.com/physickd/platform/pkg/ml/tree"
)

const (
	TypeLogistic         = "logistic"
	TypeGradientBoosting = "gradient_boosting"
)

// Artifact is the on-disk form of a trained binary classifier.
type Artifact struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Model   struct {
		Type         string          `json:"type"`
		FeatureNames []string        `json:"feature_names"`
		Weights      *linear.Weights `json:"weights,omitempty"`
		Ensemble     *tree.Ensemble  `json:"ensemble,omitempty"`
	} `json:"model"`
}

// Info describes a loaded classifier.
type Info struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Type         string   `json:"type"`
	FeatureNames []string `json:"feature_names"`
}

// Output of one inference. Probabilities holds P(class=0) and P(class=1).
type Output struct {
	Class         int
	Probabilities [2]float64
}

// Predictor evaluates one artifact. It is immutable after Load and safe for
// concurrent use.
type Predictor struct {
	info     Info
	decision func([]float64) float64
}

// Load reads and parses the artifact at path.
func Load(path string) (*Predictor, error) {
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("reading classifier artifact: %w", err)
	}
	return Parse(content)
}

func Parse(content []byte) (*Predictor, error) {
	var artifact Artifact
	if err := json.Unmarshal(content, &artifact); err != nil {
		return nil, fmt.Errorf("decoding classifier artifact: %w", err)
	}
	return New(artifact)
}

// New validates an artifact and builds its predictor.
func New(artifact Artifact) (*Predictor, error) {
	names := artifact.Model.FeatureNames
	if len(names) == 0 {
		return nil, errors.New("artifact missing feature names")
	}
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("artifact lists feature %s twice", name)
		}
		seen[name] = struct{}{}
	}

	p := &Predictor{info: Info{
		Name:         artifact.Name,
		Version:      artifact.Version,
		Type:         artifact.Model.Type,
		FeatureNames: append([]string(nil), names...),
	}}

	switch artifact.Model.Type {
	case TypeLogistic:
		if artifact.Model.Weights == nil {
			return nil, errors.New("logistic artifact missing weights")
		}
		weights := *artifact.Model.Weights
		if err := weights.Validate(len(names)); err != nil {
			return nil, err
		}
		p.decision = func(sample []float64) float64 {
			return linear.Decision(weights, sample)
		}
	case TypeGradientBoosting:
		if artifact.Model.Ensemble == nil {
			return nil, errors.New("gradient boosting artifact missing ensemble")
		}
		ensemble := *artifact.Model.Ensemble
		if err := ensemble.Validate(len(names)); err != nil {
			return nil, err
		}
		p.decision = ensemble.Decision
	default:
		return nil, fmt.Errorf("unsupported model type %q", artifact.Model.Type)
	}
	return p, nil
}

// FeatureNames is the vector order the model expects.
func (p *Predictor) FeatureNames() []string {
	return append([]string(nil), p.info.FeatureNames...)
}

func (p *Predictor) Info() Info {
	info := p.info
	info.FeatureNames = p.FeatureNames()
	return info
}

// Predict classifies one ordered sample. Class 1 is predicted only when its
// probability is strictly above one half.
func (p *Predictor) Predict(sample []float64) (Output, error) {
	if len(sample) != len(p.info.FeatureNames) {
		return Output{}, fmt.Errorf("expected %d features, got %d", len(p.info.FeatureNames), len(sample))
	}
	positive := linear.Sigmoid(p.decision(sample))
	if math.IsNaN(positive) || positive < 0 || positive > 1 {
		return Output{}, fmt.Errorf("classifier produced invalid probability %v", positive)
	}
	out := Output{Probabilities: [2]float64{1 - positive, positive}}
	if positive > 0.5 {
		out.Class = 1
	}
	return out, nil
}
