// Package stats holds the per-cohort population statistics the prediction
// service compares patients against.
package stats

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/physickd/platform/pkg/ckd/feature"
)

// Summary describes one feature within one cohort. Numeric features fill
// Mean, Std and Median; categorical features fill Mode.
type Summary struct {
	Count  int      `json:"count"`
	Mean   *float64 `json:"mean"`
	Std    *float64 `json:"std"`
	Median *float64 `json:"median"`
	Mode   *float64 `json:"mode"`
	Min    float64  `json:"min"`
	Max    float64  `json:"max"`
}

// Cohorts pairs the CKD and non-CKD summaries of a feature.
type Cohorts struct {
	CKD    Summary `json:"ckd"`
	NotCKD Summary `json:"notckd"`
}

// Table is immutable once built or loaded.
type Table struct {
	source      string
	generatedAt time.Time
	features    map[string]Cohorts
}

type tableFile struct {
	Source      string             `json:"source,omitempty"`
	GeneratedAt time.Time          `json:"generated_at"`
	Features    map[string]Cohorts `json:"features"`
}

// Load reads a JSON table from path and validates it against catalog.
func Load(path string, catalog *feature.Catalog) (*Table, error) {
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("reading statistics table %s: %w", path, err)
	}
	return Parse(content, catalog)
}

// Parse decodes a JSON table and validates it against catalog.
func Parse(content []byte, catalog *feature.Catalog) (*Table, error) {
	var file tableFile
	if err := json.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("parsing statistics table: %w", err)
	}
	t := &Table{
		source:      file.Source,
		generatedAt: file.GeneratedAt,
		features:    file.Features,
	}
	if err := t.validate(catalog); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table) validate(catalog *feature.Catalog) error {
	if len(t.features) == 0 {
		return errors.New("statistics table has no features")
	}
	for _, d := range catalog.Descriptors() {
		cohorts, ok := t.features[d.Name]
		if !ok {
			return fmt.Errorf("statistics table missing feature %s", d.Name)
		}
		for cohort, s := range map[string]Summary{"ckd": cohorts.CKD, "notckd": cohorts.NotCKD} {
			if d.IsCategorical() {
				if s.Mode == nil {
					return fmt.Errorf("statistics table: %s/%s needs a mode", d.Name, cohort)
				}
				continue
			}
			if s.Mean == nil || s.Std == nil {
				return fmt.Errorf("statistics table: %s/%s needs mean and std", d.Name, cohort)
			}
		}
	}
	return nil
}

// Lookup returns the cohort statistics of a feature.
func (t *Table) Lookup(name string) (Cohorts, bool) {
	c, ok := t.features[name]
	return c, ok
}

func (t *Table) Source() string {
	return t.source
}

func (t *Table) GeneratedAt() time.Time {
	return t.generatedAt
}

func (t *Table) MarshalJSON() ([]byte, error) {
	return json.Marshal(tableFile{
		Source:      t.source,
		GeneratedAt: t.generatedAt,
		Features:    t.features,
	})
}
