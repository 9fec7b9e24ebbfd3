package serving

import (
	"context"
	"errors"
	"fmt"

	"github.com/physickd/platform/pkg/ckd"
	"github.com/physickd/platform/pkg/ckd/feature"
	"github.com/physickd/platform/pkg/ckd/stats"
	"github.com/physickd/platform/pkg/serving/predictor"
)

// MaxBatchSize bounds PredictBatch.
const MaxBatchSize = 100

var errNotLoaded = errors.New("classifier not loaded")

// Classifier is the trained model behind the service.
type Classifier interface {
	FeatureNames() []string
	Predict(sample []float64) (predictor.Output, error)
	Info() predictor.Info
}

// Service answers predictions from an immutable catalog, statistics table and
// classifier. It holds no per-request state and is safe for concurrent use.
type Service struct {
	catalog    *feature.Catalog
	table      *stats.Table
	classifier Classifier
	loadErr    error
}

func NewService(catalog *feature.Catalog, table *stats.Table, classifier Classifier) (*Service, error) {
	if catalog == nil || table == nil || classifier == nil {
		return nil, errors.New("service requires catalog, statistics table and classifier")
	}

	names := classifier.FeatureNames()
	if len(names) != catalog.Len() {
		return nil, fmt.Errorf("classifier expects %d features, catalog has %d", len(names), catalog.Len())
	}
	for _, name := range names {
		if _, ok := catalog.Lookup(name); !ok {
			return nil, fmt.Errorf("classifier feature %s not in catalog", name)
		}
	}
	for _, name := range catalog.Names() {
		if _, ok := table.Lookup(name); !ok {
			return nil, fmt.Errorf("statistics table missing feature %s", name)
		}
	}

	return &Service{catalog: catalog, table: table, classifier: classifier}, nil
}

// Unavailable returns a service that still validates input but fails every
// inference with err, so a missing artifact surfaces per request instead of
// as a fabricated prediction.
func Unavailable(catalog *feature.Catalog, err error) *Service {
	if err == nil {
		err = errNotLoaded
	}
	return &Service{catalog: catalog, loadErr: err}
}

func (s *Service) Catalog() *feature.Catalog {
	return s.catalog
}

// Ready returns the artifact load error, if any.
func (s *Service) Ready() error {
	return s.loadErr
}

func (s *Service) ModelInfo() (predictor.Info, error) {
	if s.loadErr != nil {
		return predictor.Info{}, ckd.InferenceError{Err: s.loadErr}
	}
	return s.classifier.Info(), nil
}

// Statistics returns the cohort table, nil when artifacts failed to load.
func (s *Service) Statistics() *stats.Table {
	return s.table
}

// Predict validates presence and encoding of every field, runs the classifier
// and assembles the cohort comparison.
func (s *Service) Predict(ctx context.Context, in ckd.PatientInput) (ckd.Result, error) {
	v, err := in.Vector(s.catalog)
	if err != nil {
		return ckd.Result{}, err
	}
	return s.predict(ctx, v)
}

// BatchError locates the failing patient of a batch.
type BatchError struct {
	Index int
	Err   error
}

func (e BatchError) Error() string {
	return fmt.Sprintf("patient %d: %v", e.Index, e.Err)
}

func (e BatchError) Unwrap() error {
	return e.Err
}

// PredictBatch predicts every input in order. Any invalid patient rejects the
// whole batch before inference runs.
func (s *Service) PredictBatch(ctx context.Context, inputs []ckd.PatientInput) ([]ckd.Result, error) {
	if len(inputs) == 0 {
		return nil, ckd.InvalidField("patients", "must contain at least one patient")
	}
	if len(inputs) > MaxBatchSize {
		return nil, ckd.InvalidField("patients", fmt.Sprintf("must contain at most %d patients", MaxBatchSize))
	}

	vectors := make([]ckd.Vector, len(inputs))
	for i, in := range inputs {
		v, err := in.Vector(s.catalog)
		if err != nil {
			return nil, BatchError{Index: i, Err: err}
		}
		vectors[i] = v
	}

	results := make([]ckd.Result, len(vectors))
	for i, v := range vectors {
		res, err := s.predict(ctx, v)
		if err != nil {
			return nil, BatchError{Index: i, Err: err}
		}
		results[i] = res
	}
	return results, nil
}

// ExampleVector is a fixed sample patient.
func ExampleVector() ckd.Vector {
	return ckd.Vector{Hemo: 15.4, SG: 4, SC: 1.2, RBCC: 5.2, PCV: 44, HTN: 1, DM: 1, BP: 80, Age: 48}
}

func (s *Service) predict(ctx context.Context, v ckd.Vector) (ckd.Result, error) {
	if err := ctx.Err(); err != nil {
		return ckd.Result{}, err
	}
	if s.loadErr != nil {
		return ckd.Result{}, ckd.InferenceError{Err: s.loadErr}
	}

	sample, err := v.Ordered(s.classifier.FeatureNames())
	if err != nil {
		return ckd.Result{}, ckd.InferenceError{Err: err}
	}
	out, err := s.classifier.Predict(sample)
	if err != nil {
		return ckd.Result{}, ckd.InferenceError{Err: err}
	}
	if out.Class != ckd.ClassNotCKD && out.Class != ckd.ClassCKD {
		return ckd.Result{}, ckd.InferenceError{Err: fmt.Errorf("classifier returned class %d", out.Class)}
	}
	confidence := out.Probabilities[out.Class]
	if !(confidence >= 0 && confidence <= 1) {
		return ckd.Result{}, ckd.InferenceError{Err: fmt.Errorf("classifier returned probability %v", confidence)}
	}

	return ckd.Result{
		Class:          out.Class,
		Confidence:     confidence,
		PredictionText: ckd.PredictionText(out.Class),
		PatientValues:  v,
		ComparisonData: s.compare(v),
	}, nil
}

func (s *Service) compare(v ckd.Vector) map[string]ckd.Comparison {
	data := make(map[string]ckd.Comparison, s.catalog.Len())
	for _, d := range s.catalog.Descriptors() {
		value, _ := v.Value(d.Name)
		cohorts, _ := s.table.Lookup(d.Name)

		entry := ckd.Comparison{PatientValue: value}
		if d.IsCategorical() {
			entry.CKDMode = clone(cohorts.CKD.Mode)
			entry.NotCKDMode = clone(cohorts.NotCKD.Mode)
		} else {
			entry.CKDMean = clone(cohorts.CKD.Mean)
			entry.CKDStd = clone(cohorts.CKD.Std)
			entry.CKDMedian = clone(cohorts.CKD.Median)
			entry.NotCKDMean = clone(cohorts.NotCKD.Mean)
			entry.NotCKDStd = clone(cohorts.NotCKD.Std)
			entry.NotCKDMedian = clone(cohorts.NotCKD.Median)
		}
		data[d.Name] = entry
	}
	return data
}

func clone(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
