package cart

import (
	"math"
	"strings"

	"github.com/agnivade/levenshtein"

	"storefront/internal/domain"
)

// maxSuggestionDistance bounds how far a catalog name may be from a missing
// cart line before it stops being offered as a replacement.
const maxSuggestionDistance = 3

// Reconcile prices cart lines against the live catalog. The catalog price
// always wins over the captured price. Every input line is returned, in
// order; lines whose product is gone are flagged and contribute nothing
// to the total. Blocking checkout on missing lines is the caller's job.
// Line totals and the grand total saturate at math.MaxInt64 rather than
// wrapping negative.
func Reconcile(lines []domain.CartLine, catalog []domain.CatalogEntry) domain.Reconciliation {
	prices := make(map[string]int64, len(catalog))
	for _, entry := range catalog {
		prices[entry.Name] = entry.Price
	}

	out := domain.Reconciliation{Lines: make([]domain.ReconciledLine, 0, len(lines))}
	for _, line := range lines {
		price, ok := prices[line.ProductName]
		if !ok {
			out.HasMissingLines = true
			out.Lines = append(out.Lines, domain.ReconciledLine{
				ProductName: line.ProductName,
				Quantity:    line.Quantity,
				IsMissing:   true,
				Suggestion:  suggest(line.ProductName, catalog),
			})
			continue
		}
		p := price
		total := mulSat(price, int64(line.Quantity))
		out.Total = addSat(out.Total, total)
		out.Lines = append(out.Lines, domain.ReconciledLine{
			ProductName:  line.ProductName,
			Quantity:     line.Quantity,
			CurrentPrice: &p,
			LineTotal:    total,
		})
	}
	return out
}

func mulSat(a, b int64) int64 {
	if a <= 0 || b <= 0 {
		return 0
	}
	if a > math.MaxInt64/b {
		return math.MaxInt64
	}
	return a * b
}

func addSat(a, b int64) int64 {
	if b > math.MaxInt64-a {
		return math.MaxInt64
	}
	return a + b
}

// suggest returns the catalog name closest to name, ignoring case, or ""
// when nothing is close enough. Ties go to the earlier catalog entry.
func suggest(name string, catalog []domain.CatalogEntry) string {
	target := strings.ToLower(strings.TrimSpace(name))
	if target == "" {
		return ""
	}
	best, bestDist := "", maxSuggestionDistance+1
	for _, entry := range catalog {
		d := levenshtein.ComputeDistance(target, strings.ToLower(entry.Name))
		if d < bestDist {
			best, bestDist = entry.Name, d
		}
	}
	return best
}
