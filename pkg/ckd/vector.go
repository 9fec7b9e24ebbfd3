// Package ckd holds the wire records exchanged with the prediction service
// and the error taxonomy shared by the service and its clients.
package ckd

import (
	"fmt"
	"math"

	"github.com/physickd/platform/pkg/ckd/feature"
)

// Vector is one patient's complete, encoded feature values.
type Vector struct {
	Age  float64 `json:"age"`
	BP   float64 `json:"bp"`
	Hemo float64 `json:"hemo"`
	PCV  float64 `json:"pcv"`
	RBCC float64 `json:"rbcc"`
	SC   float64 `json:"sc"`
	SG   float64 `json:"sg"`
	HTN  float64 `json:"htn"`
	DM   float64 `json:"dm"`
}

// Value returns the field with the given wire name.
func (v Vector) Value(name string) (float64, bool) {
	p := v.field(name)
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Ordered returns the values in the given name order, as a classifier expects
// them.
func (v Vector) Ordered(names []string) ([]float64, error) {
	out := make([]float64, len(names))
	for i, name := range names {
		value, ok := v.Value(name)
		if !ok {
			return nil, fmt.Errorf("unknown feature %s", name)
		}
		out[i] = value
	}
	return out, nil
}

func (v *Vector) field(name string) *float64 {
	switch name {
	case feature.Age:
		return &v.Age
	case feature.BP:
		return &v.BP
	case feature.Hemo:
		return &v.Hemo
	case feature.PCV:
		return &v.PCV
	case feature.RBCC:
		return &v.RBCC
	case feature.SC:
		return &v.SC
	case feature.SG:
		return &v.SG
	case feature.HTN:
		return &v.HTN
	case feature.DM:
		return &v.DM
	}
	return nil
}

// PatientInput is the request body of a prediction. Pointer fields tell a
// missing field apart from a zero value.
type PatientInput struct {
	Age  *float64 `json:"age"`
	BP   *float64 `json:"bp"`
	Hemo *float64 `json:"hemo"`
	PCV  *float64 `json:"pcv"`
	RBCC *float64 `json:"rbcc"`
	SC   *float64 `json:"sc"`
	SG   *float64 `json:"sg"`
	HTN  *float64 `json:"htn"`
	DM   *float64 `json:"dm"`
}

// InputFromVector builds a fully populated input.
func InputFromVector(v Vector) PatientInput {
	return PatientInput{
		Age: &v.Age, BP: &v.BP, Hemo: &v.Hemo, PCV: &v.PCV, RBCC: &v.RBCC,
		SC: &v.SC, SG: &v.SG, HTN: &v.HTN, DM: &v.DM,
	}
}

func (in PatientInput) value(name string) *float64 {
	switch name {
	case feature.Age:
		return in.Age
	case feature.BP:
		return in.BP
	case feature.Hemo:
		return in.Hemo
	case feature.PCV:
		return in.PCV
	case feature.RBCC:
		return in.RBCC
	case feature.SC:
		return in.SC
	case feature.SG:
		return in.SG
	case feature.HTN:
		return in.HTN
	case feature.DM:
		return in.DM
	}
	return nil
}

// Vector checks that every catalog field is present and that categorical
// fields carry one of their codes. Numeric ranges are left to the form.
func (in PatientInput) Vector(catalog *feature.Catalog) (Vector, error) {
	var v Vector
	for _, d := range catalog.Descriptors() {
		raw := in.value(d.Name)
		if raw == nil {
			return Vector{}, MissingField(d.Name)
		}
		if math.IsNaN(*raw) || math.IsInf(*raw, 0) {
			return Vector{}, InvalidField(d.Name, "must be a finite number")
		}
		if d.IsCategorical() && !d.Accepts(*raw) {
			return Vector{}, InvalidField(d.Name, "must be "+d.RangeText())
		}
		dst := v.field(d.Name)
		if dst == nil {
			return Vector{}, InvalidField(d.Name, "is not a known feature")
		}
		*dst = *raw
	}
	return v, nil
}
