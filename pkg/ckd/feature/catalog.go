// Package feature describes the nine clinical inputs of the CKD classifier.
//
// A Descriptor carries a field's kind and valid domain. The same catalog is
// used by form validation, by the prediction service when it checks the
// categorical encoding, and when picking mean/std or mode for the cohort
// comparison.
package feature

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Kind string

const (
	Numeric     Kind = "numeric"
	Categorical Kind = "categorical"
)

// Feature names as they appear on the wire and in the statistics table.
const (
	Age  = "age"
	BP   = "bp"
	Hemo = "hemo"
	PCV  = "pcv"
	RBCC = "rbcc"
	SC   = "sc"
	SG   = "sg"
	HTN  = "htn"
	DM   = "dm"
)

// Level is one accepted code of a categorical feature.
type Level struct {
	Code  float64 `yaml:"code" json:"code"`
	Label string  `yaml:"label" json:"label"`
}

type Descriptor struct {
	Name   string  `yaml:"name" json:"name"`
	Label  string  `yaml:"label" json:"label"`
	Unit   string  `yaml:"unit,omitempty" json:"unit,omitempty"`
	Kind   Kind    `yaml:"kind" json:"kind"`
	Min    float64 `yaml:"min" json:"min"`
	Max    float64 `yaml:"max" json:"max"`
	Levels []Level `yaml:"levels,omitempty" json:"levels,omitempty"`

	// Clinical terminology codes, informational only.
	LOINC  string `yaml:"loinc,omitempty" json:"loinc,omitempty"`
	SNOMED string `yaml:"snomed,omitempty" json:"snomed,omitempty"`
}

// IsCategorical reports whether the cohort comparison uses a mode.
func (d Descriptor) IsCategorical() bool {
	return d.Kind == Categorical
}

// Accepts reports whether v lies in the descriptor's domain.
func (d Descriptor) Accepts(v float64) bool {
	if d.IsCategorical() {
		_, ok := d.Level(v)
		return ok
	}
	return v >= d.Min && v <= d.Max
}

// Level returns the categorical level with the given code.
func (d Descriptor) Level(code float64) (Level, bool) {
	for _, l := range d.Levels {
		if l.Code == code {
			return l, true
		}
	}
	return Level{}, false
}

// Catalog is an ordered, read-only set of descriptors.
type Catalog struct {
	descriptors []Descriptor
	index       map[string]int
}

func newCatalog(descriptors []Descriptor) *Catalog {
	c := &Catalog{
		descriptors: descriptors,
		index:       make(map[string]int, len(descriptors)),
	}
	for i, d := range descriptors {
		c.index[d.Name] = i
	}
	return c
}

// Default returns the built-in catalog.
func Default() *Catalog {
	yesNo := []Level{{Code: 0, Label: "No"}, {Code: 1, Label: "Yes"}}
	return newCatalog([]Descriptor{
		{Name: Age, Label: "Age", Unit: "years", Kind: Numeric, Min: 0, Max: 120, LOINC: "30525-0"},
		{Name: BP, Label: "Blood Pressure", Unit: "mmHg", Kind: Numeric, Min: 40, Max: 250, LOINC: "85354-9", SNOMED: "75367002"},
		{Name: Hemo, Label: "Hemoglobin", Unit: "g/dL", Kind: Numeric, Min: 3, Max: 20, LOINC: "718-7"},
		{Name: PCV, Label: "Packed Cell Volume", Unit: "%", Kind: Numeric, Min: 10, Max: 60, LOINC: "4544-3"},
		{Name: RBCC, Label: "Red Blood Cell Count", Unit: "million/µL", Kind: Numeric, Min: 1, Max: 8, LOINC: "789-8"},
		{Name: SC, Label: "Serum Creatinine", Unit: "mg/dL", Kind: Numeric, Min: 0.2, Max: 30, LOINC: "2160-0"},
		{Name: SG, Label: "Specific Gravity", Kind: Categorical, Min: 1, Max: 5, LOINC: "5811-5", Levels: []Level{
			{Code: 1, Label: "1.005"},
			{Code: 2, Label: "1.010"},
			{Code: 3, Label: "1.015"},
			{Code: 4, Label: "1.020"},
			{Code: 5, Label: "1.025"},
		}},
		{Name: HTN, Label: "Hypertension", Kind: Categorical, Min: 0, Max: 1, Levels: yesNo, SNOMED: "38341003"},
		{Name: DM, Label: "Diabetes Mellitus", Kind: Categorical, Min: 0, Max: 1, Levels: yesNo, SNOMED: "73211009"},
	})
}

// Names returns feature names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.descriptors))
	for i, d := range c.descriptors {
		names[i] = d.Name
	}
	return names
}

func (c *Catalog) Descriptors() []Descriptor {
	out := make([]Descriptor, len(c.descriptors))
	copy(out, c.descriptors)
	return out
}

func (c *Catalog) Lookup(name string) (Descriptor, bool) {
	i, ok := c.index[name]
	if !ok {
		return Descriptor{}, false
	}
	return c.descriptors[i], true
}

func (c *Catalog) Len() int {
	return len(c.descriptors)
}

type override struct {
	Name   string   `yaml:"name"`
	Label  string   `yaml:"label"`
	Unit   string   `yaml:"unit"`
	Kind   Kind     `yaml:"kind"`
	Min    *float64 `yaml:"min"`
	Max    *float64 `yaml:"max"`
	LOINC  string   `yaml:"loinc"`
	SNOMED string   `yaml:"snomed"`
}

type overrideFile struct {
	Features []override `yaml:"features"`
}

// Load returns the default catalog with the overrides found in the YAML file
// at path applied. An empty path returns Default().
//
// Overrides may change labels, units, terminology codes and numeric ranges.
// They cannot add or remove features or change a feature's kind.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("reading feature catalog %s: %w", path, err)
	}
	return Parse(content)
}

// Parse applies YAML overrides to the default catalog.
func Parse(content []byte) (*Catalog, error) {
	var file overrideFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("parsing feature catalog: %w", err)
	}
	if len(file.Features) == 0 {
		return nil, errors.New("feature catalog has no features")
	}

	base := Default()
	descriptors := base.Descriptors()
	for _, o := range file.Features {
		i, ok := base.index[o.Name]
		if !ok {
			return nil, fmt.Errorf("unknown feature %q in catalog", o.Name)
		}
		d := &descriptors[i]
		if o.Kind != "" && o.Kind != d.Kind {
			return nil, fmt.Errorf("feature %s: kind cannot change from %s to %s", d.Name, d.Kind, o.Kind)
		}
		if o.Label != "" {
			d.Label = o.Label
		}
		if o.Unit != "" {
			d.Unit = o.Unit
		}
		if o.LOINC != "" {
			d.LOINC = o.LOINC
		}
		if o.SNOMED != "" {
			d.SNOMED = o.SNOMED
		}
		if d.IsCategorical() {
			if o.Min != nil || o.Max != nil {
				return nil, fmt.Errorf("feature %s: categorical range is fixed by its levels", d.Name)
			}
			continue
		}
		if o.Min != nil {
			d.Min = *o.Min
		}
		if o.Max != nil {
			d.Max = *o.Max
		}
		if d.Min > d.Max {
			return nil, fmt.Errorf("feature %s: min %v greater than max %v", d.Name, d.Min, d.Max)
		}
	}
	return newCatalog(descriptors), nil
}
