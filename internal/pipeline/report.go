package pipeline

import (
	"fmt"
	"strings"
)

// Report renders the batch as a plain-text summary for operators: totals
// first, then each failed record with its errors, then warnings.
func (b *BatchResult) Report() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Normalization report: %s\n", b.SupplierID)
	fmt.Fprintf(&sb, "Started: %s  Duration: %s\n", b.StartedAt.Format("2006-01-02 15:04:05 MST"), b.Duration)
	sb.WriteString(strings.Repeat("=", 60) + "\n")
	fmt.Fprintf(&sb, "Total:      %d\n", b.Summary.Total)
	fmt.Fprintf(&sb, "Successful: %d\n", b.Summary.Successful)
	fmt.Fprintf(&sb, "Failed:     %d\n", b.Summary.Failed)
	fmt.Fprintf(&sb, "Warnings:   %d\n", b.Summary.Warnings)
	if b.Summary.Total > 0 {
		fmt.Fprintf(&sb, "Success rate: %.1f%%\n", 100*float64(b.Summary.Successful)/float64(b.Summary.Total))
	}

	if b.Summary.Failed > 0 {
		sb.WriteString("\nFailures\n")
		sb.WriteString(strings.Repeat("-", 60) + "\n")
		for i, r := range b.Results {
			if r.OK() {
				continue
			}
			fmt.Fprintf(&sb, "Record %d:\n", i+1)
			for _, e := range r.Errors {
				fmt.Fprintf(&sb, "  - %s\n", e)
			}
		}
	}

	if b.Summary.Warnings > 0 {
		sb.WriteString("\nWarnings\n")
		sb.WriteString(strings.Repeat("-", 60) + "\n")
		for i, r := range b.Results {
			if len(r.Warnings) == 0 {
				continue
			}
			label := fmt.Sprintf("Record %d", i+1)
			if r.Product != nil {
				label += " (" + r.Product.SKU + ")"
			}
			fmt.Fprintf(&sb, "%s:\n", label)
			for _, w := range r.Warnings {
				fmt.Fprintf(&sb, "  - %s\n", w)
			}
		}
	}

	return sb.String()
}
