package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/physickd/platform/pkg/ckd/feature"
	"github.com/physickd/platform/pkg/client"
)

// render prints the display values followed by the cohort comparison, one row
// per feature in catalog order.
func render(out io.Writer, catalog *feature.Catalog, p client.Prediction, display client.DisplayResult) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Prediction:\t%s\n", display.PredictionLabel)
	fmt.Fprintf(tw, "Risk score:\t%.1f%% (%s)\n", display.RiskScore, display.RiskLevel)
	if p.Confidence != nil {
		fmt.Fprintf(tw, "Confidence:\t%.1f%%\n", *p.Confidence*100)
	}
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "FEATURE\tPATIENT\tCKD\tNOT CKD")
	for _, d := range catalog.Descriptors() {
		entry, ok := p.ComparisonData[d.Name]
		if !ok {
			continue
		}
		label := d.Label
		if d.Unit != "" {
			label = fmt.Sprintf("%s (%s)", d.Label, d.Unit)
		}
		if d.IsCategorical() {
			fmt.Fprintf(tw, "%s\t%s\tmode %s\tmode %s\n", label,
				levelText(d, &entry.PatientValue), levelText(d, entry.CKDMode), levelText(d, entry.NotCKDMode))
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", label,
			number(&entry.PatientValue), meanStd(entry.CKDMean, entry.CKDStd), meanStd(entry.NotCKDMean, entry.NotCKDStd))
	}
	return tw.Flush()
}

func levelText(d feature.Descriptor, code *float64) string {
	if code == nil {
		return "-"
	}
	if level, ok := d.Level(*code); ok {
		return level.Label
	}
	return number(code)
}

func meanStd(mean, std *float64) string {
	if mean == nil {
		return "-"
	}
	if std == nil {
		return number(mean)
	}
	return fmt.Sprintf("%s ± %s", number(mean), number(std))
}

func number(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
