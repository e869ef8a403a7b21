package generator

import (
	"fmt"
	"time"

	"github.com/mmdatafocus/regflow/models"
	"github.com/mmdatafocus/regflow/utils"
	"github.com/shopspring/decimal"
)

// Anomaly shifts the vendor TER of the record at Position (0-based, generation order) by OffsetBp.
type Anomaly struct {
	Position int             `validate:"gte=0"`
	OffsetBp decimal.Decimal `validate:"-"`
}

// DefaultAnomalies are the two vendor/calculated divergences seeded for QC testing.
func DefaultAnomalies() []Anomaly {
	return []Anomaly{
		{Position: 5, OffsetBp: decimal.RequireFromString("0.20")},
		{Position: 40, OffsetBp: decimal.RequireFromString("-0.25")},
	}
}

type BulkParams struct {
	Funds      int       `validate:"gt=0"`
	Months     int       `validate:"gt=0"`
	StartMonth time.Time `validate:"required"`
	Anomalies  []Anomaly `validate:"dive"`
}

// BulkBatch is the initialize payload. Costs are ordered fund-major, month-minor.
type BulkBatch struct {
	Funds []models.Fund
	Costs []CostRecord
}

// AnomalyPositions lists the indexes of Costs tagged anomalous.
func (b BulkBatch) AnomalyPositions() []int {
	var out []int
	for i, c := range b.Costs {
		if c.Anomalous {
			out = append(out, i)
		}
	}
	return out
}

func (p BulkParams) validate() error {
	if err := utils.Validate(p); err != nil {
		return &GenerationError{Reason: "invalid bulk parameters", Fields: utils.ProcessValidationErrors(err)}
	}
	total := p.Funds * p.Months
	seen := make(map[int]bool, len(p.Anomalies))
	for _, a := range p.Anomalies {
		if a.Position >= total {
			return &GenerationError{Reason: fmt.Sprintf("anomaly position %d out of range (records=%d)", a.Position, total)}
		}
		if seen[a.Position] {
			return &GenerationError{Reason: fmt.Sprintf("anomaly position %d listed twice", a.Position)}
		}
		if a.OffsetBp.IsZero() {
			return &GenerationError{Reason: fmt.Sprintf("anomaly position %d has zero offset", a.Position)}
		}
		seen[a.Position] = true
	}
	return nil
}

// Bulk fabricates Funds identities and Funds x Months cost records, then applies the anomalies.
// Validation happens before anything is generated.
func (g *Generator) Bulk(p BulkParams) (BulkBatch, error) {
	if err := p.validate(); err != nil {
		return BulkBatch{}, err
	}
	periods := utils.PeriodRange(p.StartMonth, p.Months)

	batch := BulkBatch{
		Funds: make([]models.Fund, 0, p.Funds),
		Costs: make([]CostRecord, 0, p.Funds*p.Months),
	}
	for n := 0; n < p.Funds; n++ {
		fund := g.Fund(n)
		batch.Funds = append(batch.Funds, fund)
		for _, period := range periods {
			batch.Costs = append(batch.Costs, g.Record(fund.Isin, period))
		}
	}

	for _, a := range p.Anomalies {
		c := &batch.Costs[a.Position]
		c.VendorTerBp = c.VendorTerBp.Add(a.OffsetBp)
		c.Anomalous = true
	}
	return batch, nil
}
