package workflow

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/mmdatafocus/regflow/generator"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func TestExportCostLedgerFlagsDivergence(t *testing.T) {
	db := newTestDB(t)
	seedCatalog(t, db, 2, 3, []generator.Anomaly{{Position: 4, OffsetBp: decimal.RequireFromString("0.30")}})

	var buf bytes.Buffer
	// months 2023-02..2023-03 only: four of the six facts
	n, err := ExportCostLedger(context.Background(), db,
		time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC), time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC),
		decimal.RequireFromString("0.10"), &buf)
	if err != nil {
		t.Fatalf("ExportCostLedger: %v", err)
	}
	if n != 4 {
		t.Fatalf("expected 4 ledger rows, got %d", n)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows("CostLedger")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 5 || rows[0][0] != "ISIN" || rows[0][9] != "Flagged" {
		t.Fatalf("unexpected sheet layout %v", rows)
	}

	var flagged [][]string
	for _, r := range rows[1:] {
		if len(r) == 10 && r[9] == "Y" {
			flagged = append(flagged, r)
		}
	}
	// position 4 is fund 1, second month
	if len(flagged) != 1 {
		t.Fatalf("expected 1 flagged row, got %v", flagged)
	}
	if flagged[0][0] != "CH10000001" || flagged[0][2] != "2023-02-01" || flagged[0][8] != "0.30" {
		t.Fatalf("unexpected flagged row %v", flagged[0])
	}
}

func TestExportCostLedgerRejectsEmptyRange(t *testing.T) {
	db := newTestDB(t)
	var buf bytes.Buffer
	_, err := ExportCostLedger(context.Background(), db,
		time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC), time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC),
		decimal.Zero, &buf)
	if err == nil {
		t.Fatalf("expected an error for an inverted range")
	}
}
