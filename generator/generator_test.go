package generator

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var isinPattern = regexp.MustCompile(`^CH\d{8}$`)

func inRange(d decimal.Decimal, lo, hi string) bool {
	return d.GreaterThanOrEqual(decimal.RequireFromString(lo)) && d.LessThanOrEqual(decimal.RequireFromString(hi))
}

func TestFeeSplitRangesAndRounding(t *testing.T) {
	g := New(7)
	for i := 0; i < 2000; i++ {
		s := g.FeeSplit()
		if !inRange(s.MgmtFeeBp, "1.00", "1.40") {
			t.Fatalf("mgmt fee out of range: %s", s.MgmtFeeBp)
		}
		if !inRange(s.TxCostBp, "0.10", "0.30") {
			t.Fatalf("tx cost out of range: %s", s.TxCostBp)
		}
		if !inRange(s.PerfFeeBp, "0.00", "0.50") {
			t.Fatalf("perf fee out of range: %s", s.PerfFeeBp)
		}
		for _, d := range []decimal.Decimal{s.MgmtFeeBp, s.TxCostBp, s.PerfFeeBp, s.Total()} {
			if !d.Equal(d.Round(2)) {
				t.Fatalf("value %s has more than 2 decimals", d)
			}
		}
	}
}

func TestRecordVendorEqualsCalculated(t *testing.T) {
	g := New(11)
	period := time.Date(2025, 7, 19, 13, 0, 0, 0, time.UTC)
	r := g.Record("CH10000003", period)
	if !r.VendorTerBp.Equal(r.CalcTerBp) {
		t.Fatalf("vendor %s != calculated %s", r.VendorTerBp, r.CalcTerBp)
	}
	want := r.MgmtFeeBp.Add(r.TxCostBp).Add(r.PerfFeeBp).Round(2)
	if !r.CalcTerBp.Equal(want) {
		t.Fatalf("calculated %s != split total %s", r.CalcTerBp, want)
	}
	if r.ValDate.Format("2006-01-02") != "2025-07-01" {
		t.Fatalf("expected month start, got %s", r.ValDate)
	}
	if r.Anomalous {
		t.Fatalf("plain record must not be tagged anomalous")
	}
}

func TestBulkTenFundsTwentyFourMonths(t *testing.T) {
	g := New(2023)
	batch, err := g.Bulk(BulkParams{
		Funds:      10,
		Months:     24,
		StartMonth: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		Anomalies:  DefaultAnomalies(),
	})
	if err != nil {
		t.Fatalf("Bulk: %v", err)
	}
	if len(batch.Funds) != 10 {
		t.Fatalf("expected 10 funds, got %d", len(batch.Funds))
	}
	if len(batch.Costs) != 240 {
		t.Fatalf("expected 240 cost records, got %d", len(batch.Costs))
	}

	seen := map[string]bool{}
	for i, f := range batch.Funds {
		if !isinPattern.MatchString(f.Isin) {
			t.Fatalf("fund %d has malformed isin %q", i, f.Isin)
		}
		if seen[f.Isin] {
			t.Fatalf("duplicate isin %q", f.Isin)
		}
		seen[f.Isin] = true
		if f.FundName == "" {
			t.Fatalf("fund %d has no name", i)
		}
		if !f.InceptionDate.Equal(DefaultInceptionDate) {
			t.Fatalf("fund %d inception %v", i, f.InceptionDate)
		}
		if f.ID != 0 {
			t.Fatalf("surrogate key must be left to the store, got %d", f.ID)
		}
	}
	if batch.Funds[0].Isin != "CH10000000" || batch.Funds[9].Isin != "CH10000009" {
		t.Fatalf("unexpected isin sequence %s..%s", batch.Funds[0].Isin, batch.Funds[9].Isin)
	}

	// fund-major, month-minor
	if batch.Costs[24].Isin != "CH10000001" || batch.Costs[24].ValDate.Format("2006-01") != "2023-01" {
		t.Fatalf("unexpected ordering at 24: %s %s", batch.Costs[24].Isin, batch.Costs[24].ValDate)
	}
	if batch.Costs[23].ValDate.Format("2006-01") != "2024-12" {
		t.Fatalf("expected last month 2024-12, got %s", batch.Costs[23].ValDate.Format("2006-01"))
	}

	offsets := map[int]string{5: "0.2", 40: "-0.25"}
	for i, c := range batch.Costs {
		want := c.MgmtFeeBp.Add(c.TxCostBp).Add(c.PerfFeeBp).Round(2)
		if !c.CalcTerBp.Equal(want) {
			t.Fatalf("record %d calculated %s != %s", i, c.CalcTerBp, want)
		}
		off, anomalous := offsets[i]
		if anomalous != c.Anomalous {
			t.Fatalf("record %d anomalous=%v, expected %v", i, c.Anomalous, anomalous)
		}
		diff := c.VendorTerBp.Sub(c.CalcTerBp)
		if anomalous {
			if !diff.Equal(decimal.RequireFromString(off)) {
				t.Fatalf("record %d vendor-calc = %s, expected %s", i, diff, off)
			}
		} else if !diff.IsZero() {
			t.Fatalf("record %d vendor %s != calculated %s", i, c.VendorTerBp, c.CalcTerBp)
		}
	}
	if got := batch.AnomalyPositions(); len(got) != 2 || got[0] != 5 || got[1] != 40 {
		t.Fatalf("unexpected anomaly positions %v", got)
	}
}

func TestBulkIsReproducibleWithSeed(t *testing.T) {
	p := BulkParams{Funds: 2, Months: 3, StartMonth: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)}
	a, err := New(99).Bulk(p)
	if err != nil {
		t.Fatalf("Bulk: %v", err)
	}
	b, err := New(99).Bulk(p)
	if err != nil {
		t.Fatalf("Bulk: %v", err)
	}
	for i := range a.Costs {
		if !a.Costs[i].VendorTerBp.Equal(b.Costs[i].VendorTerBp) {
			t.Fatalf("record %d differs between equal seeds", i)
		}
	}
	if a.Funds[0].FundName != b.Funds[0].FundName {
		t.Fatalf("fund names differ between equal seeds")
	}
}

func TestBulkRejectsMalformedParams(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		p    BulkParams
	}{
		{"zero funds", BulkParams{Funds: 0, Months: 24, StartMonth: start}},
		{"negative months", BulkParams{Funds: 10, Months: -1, StartMonth: start}},
		{"missing start", BulkParams{Funds: 10, Months: 24}},
		{"anomaly out of range", BulkParams{Funds: 2, Months: 2, StartMonth: start, Anomalies: DefaultAnomalies()}},
		{"negative anomaly position", BulkParams{Funds: 2, Months: 2, StartMonth: start, Anomalies: []Anomaly{{Position: -1, OffsetBp: decimal.NewFromInt(1)}}}},
		{"duplicate anomaly", BulkParams{Funds: 2, Months: 2, StartMonth: start, Anomalies: []Anomaly{
			{Position: 1, OffsetBp: decimal.NewFromInt(1)}, {Position: 1, OffsetBp: decimal.NewFromInt(2)},
		}}},
		{"zero offset", BulkParams{Funds: 2, Months: 2, StartMonth: start, Anomalies: []Anomaly{{Position: 1}}}},
	}
	for _, tc := range cases {
		_, err := New(1).Bulk(tc.p)
		var genErr *GenerationError
		if !errors.As(err, &genErr) {
			t.Fatalf("%s: expected GenerationError, got %v", tc.name, err)
		}
	}
}

func TestMonthOneRecordPerFund(t *testing.T) {
	isins := []string{"CH10000000", "CH10000001", "CH10000002"}
	period := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	recs, err := New(5).Month(isins, period)
	if err != nil {
		t.Fatalf("Month: %v", err)
	}
	if len(recs) != len(isins) {
		t.Fatalf("expected %d records, got %d", len(isins), len(recs))
	}
	for i, r := range recs {
		if r.Isin != isins[i] || !r.ValDate.Equal(period) {
			t.Fatalf("record %d: %s %s", i, r.Isin, r.ValDate)
		}
	}

	var genErr *GenerationError
	if _, err := New(5).Month(nil, period); !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError for empty catalog, got %v", err)
	}
}
