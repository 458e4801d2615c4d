package quote

import (
	"strings"

	"github.com/wolfman30/bridal-quote-platform/internal/pricing"
)

// SplitServices separates itemized rows from the four trailing summary rows.
// Matching is by label prefix only, so amount formatting does not matter.
func SplitServices(services []string) (itemized, summary []string) {
	for _, row := range services {
		if IsSummaryRow(row) {
			summary = append(summary, row)
		} else {
			itemized = append(itemized, row)
		}
	}
	return itemized, summary
}

// IsSummaryRow reports whether row is one of Subtotal, HST, Total or Deposit.
func IsSummaryRow(row string) bool {
	trimmed := strings.TrimSpace(row)
	for _, prefix := range pricing.SummaryPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}
