package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmdatafocus/regflow/generator"
	"github.com/mmdatafocus/regflow/models"
	"gorm.io/gorm"
)

const defaultBatchSize = 500

// MergeCosts swaps each record's natural key for its surrogate key.
// It is an inner join with validation: one unresolved key rejects the whole batch.
func MergeCosts(costs []generator.CostRecord, keys map[string]int, loadRunId string) ([]models.FactCost, error) {
	isins := make([]string, len(costs))
	for i, c := range costs {
		isins[i] = c.Isin
	}
	if missing := missingKeys(isins, keys); len(missing) > 0 {
		return nil, &ResolutionError{Missing: missing, Facts: len(costs)}
	}

	rows := make([]models.FactCost, 0, len(costs))
	for _, c := range costs {
		rows = append(rows, models.FactCost{
			FundId:      keys[strings.TrimSpace(c.Isin)],
			ValDate:     c.ValDate,
			VendorTerBp: c.VendorTerBp,
			CalcTerBp:   c.CalcTerBp,
			MgmtFeeBp:   c.MgmtFeeBp,
			TxCostBp:    c.TxCostBp,
			PerfFeeBp:   c.PerfFeeBp,
			LoadRunId:   loadRunId,
		})
	}
	return rows, nil
}

// AppendCosts inserts rows in one transaction and returns the number appended.
// The transaction has committed when this returns without error.
func AppendCosts(ctx context.Context, db *gorm.DB, rows []models.FactCost, batchSize int) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	var appended int64
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.CreateInBatches(&rows, batchSize)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != int64(len(rows)) {
			return fmt.Errorf("short append: %d of %d rows", res.RowsAffected, len(rows))
		}
		appended = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, newLoadError("append fact_costs", len(rows), err)
	}
	return appended, nil
}

// MergeAndLoad merges then appends. On a resolution failure nothing is written.
func MergeAndLoad(ctx context.Context, db *gorm.DB, costs []generator.CostRecord, keys map[string]int, loadRunId string, batchSize int) (int64, error) {
	rows, err := MergeCosts(costs, keys, loadRunId)
	if err != nil {
		return 0, err
	}
	return AppendCosts(ctx, db, rows, batchSize)
}

// LoadFunds appends the fund catalog rows in one transaction. Surrogate keys are assigned by the store.
func LoadFunds(ctx context.Context, db *gorm.DB, funds []models.Fund, batchSize int) (int64, error) {
	if len(funds) == 0 {
		return 0, nil
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	var appended int64
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.CreateInBatches(&funds, batchSize)
		if res.Error != nil {
			return res.Error
		}
		appended = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, newLoadError("append dim_funds", len(funds), err)
	}
	return appended, nil
}
