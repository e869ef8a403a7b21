package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FactCost is one cost ledger row: a fund's TER split for one month.
// It references the fund by surrogate key only and is append-only.
//
// Grain is (fund_id, val_date) but no uniqueness is declared; a repeated tick for
// the same month appends a second row.
type FactCost struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	FundId      int             `gorm:"not null;index:idx_fact_costs_fund_date,priority:1" json:"fund_id"`
	ValDate     time.Time       `gorm:"type:date;not null;index:idx_fact_costs_fund_date,priority:2;index" json:"val_date"`
	VendorTerBp decimal.Decimal `gorm:"column:vendor_ter_bp;type:decimal(10,2);not null" json:"vendor_ter_bp"`
	CalcTerBp   decimal.Decimal `gorm:"column:calc_ter_bp;type:decimal(10,2);not null" json:"calc_ter_bp"`
	MgmtFeeBp   decimal.Decimal `gorm:"column:mgmt_fee_bp;type:decimal(10,2);not null" json:"mgmt_fee_bp"`
	TxCostBp    decimal.Decimal `gorm:"column:tx_cost_bp;type:decimal(10,2);not null" json:"tx_cost_bp"`
	PerfFeeBp   decimal.Decimal `gorm:"column:perf_fee_bp;type:decimal(10,2);not null" json:"perf_fee_bp"`
	LoadRunId   string          `gorm:"size:36;index" json:"load_run_id"`
}

func (FactCost) TableName() string { return "fact_costs" }

// Divergence is |vendor - calculated|, the measure the QC pass compares to its threshold.
func (f FactCost) Divergence() decimal.Decimal {
	return f.VendorTerBp.Sub(f.CalcTerBp).Abs()
}
