package workflow

import (
	"context"
	"sort"
	"strings"

	"github.com/mmdatafocus/regflow/models"
	"gorm.io/gorm"
)

type fundKeyRow struct {
	FundId int
	Isin   string
}

// LoadFundKeys reads the full fund catalog and returns natural key -> surrogate key.
// isin is fixed width in the store, so trailing padding is trimmed before matching.
func LoadFundKeys(ctx context.Context, db *gorm.DB) (map[string]int, error) {
	var rows []fundKeyRow
	if err := db.WithContext(ctx).Model(&models.Fund{}).Select("fund_id", "isin").Scan(&rows).Error; err != nil {
		return nil, newLoadError("read dim_funds", 0, err)
	}
	keys := make(map[string]int, len(rows))
	var ambiguous []string
	for _, r := range rows {
		isin := strings.TrimSpace(r.Isin)
		if prev, ok := keys[isin]; ok && prev != r.FundId {
			ambiguous = append(ambiguous, isin)
			continue
		}
		keys[isin] = r.FundId
	}
	if len(ambiguous) > 0 {
		sort.Strings(ambiguous)
		return nil, &ResolutionError{Ambiguous: ambiguous}
	}
	return keys, nil
}

// ResolveFundKeys loads the catalog and checks that every requested natural key resolved.
func ResolveFundKeys(ctx context.Context, db *gorm.DB, isins []string) (map[string]int, error) {
	keys, err := LoadFundKeys(ctx, db)
	if err != nil {
		return nil, err
	}
	if missing := missingKeys(isins, keys); len(missing) > 0 {
		return nil, &ResolutionError{Missing: missing, Facts: len(isins)}
	}
	return keys, nil
}

// SortedIsins returns the catalog's natural keys in order.
func SortedIsins(keys map[string]int) []string {
	out := make([]string, 0, len(keys))
	for isin := range keys {
		out = append(out, isin)
	}
	sort.Strings(out)
	return out
}

func missingKeys(isins []string, keys map[string]int) []string {
	seen := map[string]bool{}
	var missing []string
	for _, isin := range isins {
		isin = strings.TrimSpace(isin)
		if _, ok := keys[isin]; ok || seen[isin] {
			continue
		}
		seen[isin] = true
		missing = append(missing, isin)
	}
	sort.Strings(missing)
	return missing
}
