// Package benefit holds the per-rank commission and purchase quantity benefits.
package benefit

import (
	"fmt"

	"github.com/mlmcommerce/supplychain/internal/model"
	"github.com/shopspring/decimal"
)

// Benefit is what a rank is entitled to.
type Benefit struct {
	BaseRate           decimal.Decimal
	DefaultMaxQuantity int
}

// Table maps every rank to its benefit. Build it with New or Default so that
// coverage of all ranks is checked once at startup.
type Table struct {
	entries map[model.Rank]Benefit
}

// Default returns the platform benefit table.
func Default() *Table {
	t, err := New(map[model.Rank]Benefit{
		model.RankNormal:   {BaseRate: decimal.Zero, DefaultMaxQuantity: 5},
		model.RankVIP:      {BaseRate: decimal.RequireFromString("0.05"), DefaultMaxQuantity: 10},
		model.RankStar1:    {BaseRate: decimal.RequireFromString("0.08"), DefaultMaxQuantity: 20},
		model.RankStar2:    {BaseRate: decimal.RequireFromString("0.10"), DefaultMaxQuantity: 20},
		model.RankStar3:    {BaseRate: decimal.RequireFromString("0.12"), DefaultMaxQuantity: 20},
		model.RankStar4:    {BaseRate: decimal.RequireFromString("0.15"), DefaultMaxQuantity: 20},
		model.RankStar5:    {BaseRate: decimal.RequireFromString("0.18"), DefaultMaxQuantity: 20},
		model.RankDirector: {BaseRate: decimal.RequireFromString("0.20"), DefaultMaxQuantity: 20},
	})
	if err != nil {
		panic(err)
	}
	return t
}

// New validates entries and returns a table. Every rank must be present, rates
// must lie in [0, 1) and must not decrease as rank increases.
func New(entries map[model.Rank]Benefit) (*Table, error) {
	one := decimal.NewFromInt(1)
	prev := decimal.Zero
	for _, r := range model.Ranks {
		b, ok := entries[r]
		if !ok {
			return nil, fmt.Errorf("benefit table: missing rank %s", r)
		}
		if b.BaseRate.IsNegative() || b.BaseRate.GreaterThanOrEqual(one) {
			return nil, fmt.Errorf("benefit table: rate %s for %s out of range", b.BaseRate, r)
		}
		if b.BaseRate.LessThan(prev) {
			return nil, fmt.Errorf("benefit table: rate for %s lower than the rank below", r)
		}
		if b.DefaultMaxQuantity <= 0 {
			return nil, fmt.Errorf("benefit table: max quantity for %s must be positive", r)
		}
		prev = b.BaseRate
	}
	for r := range entries {
		if !r.Valid() {
			return nil, fmt.Errorf("benefit table: unknown rank %q", r)
		}
	}
	copied := make(map[model.Rank]Benefit, len(entries))
	for r, b := range entries {
		copied[r] = b
	}
	return &Table{entries: copied}, nil
}

// BaseCommissionRate returns zero for unknown ranks.
func (t *Table) BaseCommissionRate(r model.Rank) decimal.Decimal {
	return t.entries[r].BaseRate
}

// DefaultMaxQuantity returns the NORMAL limit for unknown ranks.
func (t *Table) DefaultMaxQuantity(r model.Rank) int {
	if b, ok := t.entries[r]; ok {
		return b.DefaultMaxQuantity
	}
	return t.entries[model.RankNormal].DefaultMaxQuantity
}
