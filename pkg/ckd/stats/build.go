package stats

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/physickd/platform/pkg/ckd/feature"
)

// StatusColumn holds the cohort label of each training row.
const StatusColumn = "status"

const (
	statusCKD    = "ckd"
	statusNotCKD = "notckd"
)

// Build computes a table from an imputed training CSV. The header must name
// every catalog feature plus the status column; other columns are ignored.
// Rows are assigned to the CKD cohort when status is "ckd" and to the non-CKD
// cohort when it is "notckd".
func Build(r io.Reader, catalog *feature.Catalog, source string) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(strings.ToLower(name))] = i
	}
	statusIdx, ok := columns[StatusColumn]
	if !ok {
		return nil, fmt.Errorf("csv has no %s column", StatusColumn)
	}
	names := catalog.Names()
	for _, name := range names {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("csv has no %s column", name)
		}
	}

	ckd := make(map[string][]float64, len(names))
	notCKD := make(map[string][]float64, len(names))
	row := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row++
		if err != nil {
			return nil, fmt.Errorf("reading csv row %d: %w", row, err)
		}

		var cohort map[string][]float64
		switch status := strings.TrimSpace(strings.ToLower(record[statusIdx])); status {
		case statusCKD:
			cohort = ckd
		case statusNotCKD:
			cohort = notCKD
		default:
			return nil, fmt.Errorf("row %d: unknown status %q", row, status)
		}
		for _, name := range names {
			raw := strings.TrimSpace(record[columns[name]])
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: column %s: %q is not a number", row, name, raw)
			}
			cohort[name] = append(cohort[name], v)
		}
	}

	features := make(map[string]Cohorts, len(names))
	for _, d := range catalog.Descriptors() {
		if len(ckd[d.Name]) == 0 || len(notCKD[d.Name]) == 0 {
			return nil, errors.New("csv needs at least one row per cohort")
		}
		features[d.Name] = Cohorts{
			CKD:    summarize(ckd[d.Name], d.IsCategorical()),
			NotCKD: summarize(notCKD[d.Name], d.IsCategorical()),
		}
	}

	return &Table{
		source:      source,
		generatedAt: time.Now().UTC(),
		features:    features,
	}, nil
}

func summarize(values []float64, categorical bool) Summary {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	s := Summary{
		Count: len(sorted),
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
	}
	if categorical {
		mode := modeOf(sorted)
		s.Mode = &mode
		return s
	}
	mean, std := meanStd(sorted)
	median := medianOf(sorted)
	s.Mean, s.Std, s.Median = &mean, &std, &median
	return s
}

// meanStd returns the mean and the sample (n-1) standard deviation. A single
// observation has a deviation of 0.
func meanStd(values []float64) (float64, float64) {
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	if len(values) < 2 {
		return mean, 0
	}
	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(sq / float64(len(values)-1))
}

func medianOf(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// modeOf returns the most frequent value of a sorted slice; ties go to the
// smallest value.
func modeOf(sorted []float64) float64 {
	best, bestCount := sorted[0], 0
	for i := 0; i < len(sorted); {
		j := i
		for j < len(sorted) && sorted[j] == sorted[i] {
			j++
		}
		if j-i > bestCount {
			best, bestCount = sorted[i], j-i
		}
		i = j
	}
	return best
}
