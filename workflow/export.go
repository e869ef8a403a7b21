package workflow

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mmdatafocus/regflow/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const ledgerSheet = "CostLedger"

var ledgerHeader = []any{
	"ISIN", "Fund", "ValDate", "VendorTER_bp", "CalcTER_bp", "MgmtFee_bp", "TxCost_bp", "PerfFee_bp", "Divergence_bp", "Flagged",
}

type ledgerRow struct {
	Isin        string
	FundName    string
	ValDate     time.Time
	VendorTerBp decimal.Decimal
	CalcTerBp   decimal.Decimal
	MgmtFeeBp   decimal.Decimal
	TxCostBp    decimal.Decimal
	PerfFeeBp   decimal.Decimal
}

// ExportCostLedger writes the facts for months [from, to] joined to the fund catalog as an xlsx workbook.
// Rows whose vendor/calculated divergence exceeds thresholdBp are marked flagged, mirroring the QC rule.
func ExportCostLedger(ctx context.Context, db *gorm.DB, from, to time.Time, thresholdBp decimal.Decimal, w io.Writer) (int, error) {
	start := utils.MonthStart(from)
	end := utils.MonthStart(to).AddDate(0, 1, 0)
	if !end.After(start) {
		return 0, fmt.Errorf("export: empty range %s..%s", utils.FormatPeriod(from), utils.FormatPeriod(to))
	}

	var rows []ledgerRow
	err := db.WithContext(ctx).Raw(`
		SELECT
			f.isin AS isin,
			f.fund_name AS fund_name,
			c.val_date AS val_date,
			c.vendor_ter_bp AS vendor_ter_bp,
			c.calc_ter_bp AS calc_ter_bp,
			c.mgmt_fee_bp AS mgmt_fee_bp,
			c.tx_cost_bp AS tx_cost_bp,
			c.perf_fee_bp AS perf_fee_bp
		FROM fact_costs c
		JOIN dim_funds f ON f.fund_id = c.fund_id
		WHERE c.val_date >= ? AND c.val_date < ?
		ORDER BY c.val_date, f.isin, c.id
	`, start, end).Scan(&rows).Error
	if err != nil {
		return 0, newLoadError("read cost ledger", 0, err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName("Sheet1", ledgerSheet); err != nil {
		return 0, err
	}
	if err := f.SetSheetRow(ledgerSheet, "A1", &ledgerHeader); err != nil {
		return 0, err
	}
	for i, r := range rows {
		divergence := r.VendorTerBp.Sub(r.CalcTerBp).Abs()
		flagged := ""
		if divergence.GreaterThan(thresholdBp) {
			flagged = "Y"
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return 0, err
		}
		values := []any{
			strings.TrimSpace(r.Isin),
			r.FundName,
			r.ValDate.UTC().Format("2006-01-02"),
			r.VendorTerBp.StringFixed(2),
			r.CalcTerBp.StringFixed(2),
			r.MgmtFeeBp.StringFixed(2),
			r.TxCostBp.StringFixed(2),
			r.PerfFeeBp.StringFixed(2),
			divergence.StringFixed(2),
			flagged,
		}
		if err := f.SetSheetRow(ledgerSheet, cell, &values); err != nil {
			return 0, err
		}
	}
	if err := f.Write(w); err != nil {
		return 0, fmt.Errorf("export: write workbook: %w", err)
	}
	return len(rows), nil
}
