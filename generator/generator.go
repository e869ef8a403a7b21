// Package generator fabricates synthetic fund identities and TER fee splits.
//
// All values are basis points carried as decimals rounded to 2 places. The only
// impurity is the random source, which is seedable for reproducible runs.
package generator

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/mmdatafocus/regflow/models"
	"github.com/mmdatafocus/regflow/utils"
	"github.com/shopspring/decimal"
)

const (
	// IsinPrefix and IsinBase define the natural key format CH10000000, CH10000001, ...
	IsinPrefix = "CH"
	IsinBase   = 10000000
)

// DefaultInceptionDate is stamped on every seeded fund.
var DefaultInceptionDate = time.Date(2022, 1, 15, 0, 0, 0, 0, time.UTC)

type feeRange struct {
	min, max float64
}

var (
	mgmtRange = feeRange{1.00, 1.40}
	txRange   = feeRange{0.10, 0.30}
	perfRange = feeRange{0.00, 0.50}
)

// FeeSplit is one month's component fees.
type FeeSplit struct {
	MgmtFeeBp decimal.Decimal
	TxCostBp  decimal.Decimal
	PerfFeeBp decimal.Decimal
}

// Total is round(mgmt + tx + perf, 2).
func (f FeeSplit) Total() decimal.Decimal {
	return f.MgmtFeeBp.Add(f.TxCostBp).Add(f.PerfFeeBp).Round(2)
}

// CostRecord is a generated fact still keyed by the fund's natural key.
type CostRecord struct {
	Isin        string
	ValDate     time.Time
	VendorTerBp decimal.Decimal
	CalcTerBp   decimal.Decimal
	FeeSplit
	// Anomalous marks records whose vendor TER was deliberately shifted away from the calculated TER.
	Anomalous bool
}

type Generator struct {
	faker *gofakeit.Faker
}

// New returns a generator over a seeded source; seed 0 picks a random seed.
func New(seed uint64) *Generator {
	return &Generator{faker: gofakeit.New(seed)}
}

func (g *Generator) draw(r feeRange) decimal.Decimal {
	return decimal.NewFromFloat(g.faker.Float64Range(r.min, r.max)).Round(2)
}

func (g *Generator) FeeSplit() FeeSplit {
	return FeeSplit{
		MgmtFeeBp: g.draw(mgmtRange),
		TxCostBp:  g.draw(txRange),
		PerfFeeBp: g.draw(perfRange),
	}
}

// Record builds one consistent record: vendor TER == calculated TER == split total.
func (g *Generator) Record(isin string, period time.Time) CostRecord {
	split := g.FeeSplit()
	total := split.Total()
	return CostRecord{
		Isin:        isin,
		ValDate:     utils.MonthStart(period),
		VendorTerBp: total,
		CalcTerBp:   total,
		FeeSplit:    split,
	}
}

// Month produces one record per natural key for period, in the order given.
func (g *Generator) Month(isins []string, period time.Time) ([]CostRecord, error) {
	if len(isins) == 0 {
		return nil, &GenerationError{Reason: "no funds to generate for (run initialize first)"}
	}
	if period.IsZero() {
		return nil, &GenerationError{Reason: "period is required"}
	}
	out := make([]CostRecord, 0, len(isins))
	for _, isin := range isins {
		out = append(out, g.Record(isin, period))
	}
	return out, nil
}

// FundIsin formats the n-th (0-based) natural key.
func FundIsin(n int) string {
	return fmt.Sprintf("%s%08d", IsinPrefix, IsinBase+n)
}

// Fund fabricates the n-th fund identity. The surrogate key is left for the store.
func (g *Generator) Fund(n int) models.Fund {
	return models.Fund{
		Isin:          FundIsin(n),
		FundName:      g.faker.Company(),
		InceptionDate: DefaultInceptionDate,
	}
}
