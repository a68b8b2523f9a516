package benefit

import (
	"testing"

	"github.com/mlmcommerce/supplychain/internal/model"
	"github.com/shopspring/decimal"
)

func TestDefaultTable(t *testing.T) {
	tbl := Default()
	tests := []struct {
		rank   model.Rank
		rate   string
		maxQty int
	}{
		{model.RankNormal, "0", 5},
		{model.RankVIP, "0.05", 10},
		{model.RankStar1, "0.08", 20},
		{model.RankStar4, "0.15", 20},
		{model.RankDirector, "0.2", 20},
	}
	for _, tt := range tests {
		if got := tbl.BaseCommissionRate(tt.rank); !got.Equal(decimal.RequireFromString(tt.rate)) {
			t.Fatalf("rate(%s)=%s want %s", tt.rank, got, tt.rate)
		}
		if got := tbl.DefaultMaxQuantity(tt.rank); got != tt.maxQty {
			t.Fatalf("maxQty(%s)=%d want %d", tt.rank, got, tt.maxQty)
		}
	}
	if got := tbl.DefaultMaxQuantity(model.Rank("GOLD")); got != 5 {
		t.Fatalf("unknown rank max qty=%d", got)
	}
	if !tbl.BaseCommissionRate(model.Rank("GOLD")).IsZero() {
		t.Fatal("unknown rank should have zero rate")
	}
}

func TestNewValidates(t *testing.T) {
	full := func() map[model.Rank]Benefit {
		m := make(map[model.Rank]Benefit)
		for i, r := range model.Ranks {
			m[r] = Benefit{BaseRate: decimal.NewFromFloat(float64(i) / 100), DefaultMaxQuantity: 10}
		}
		return m
	}
	if _, err := New(full()); err != nil {
		t.Fatalf("valid table rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(m map[model.Rank]Benefit)
	}{
		{"missing rank", func(m map[model.Rank]Benefit) { delete(m, model.RankStar3) }},
		{"rate too high", func(m map[model.Rank]Benefit) {
			m[model.RankDirector] = Benefit{BaseRate: decimal.NewFromInt(1), DefaultMaxQuantity: 1}
		}},
		{"negative rate", func(m map[model.Rank]Benefit) {
			m[model.RankNormal] = Benefit{BaseRate: decimal.NewFromFloat(-0.01), DefaultMaxQuantity: 1}
		}},
		{"decreasing rate", func(m map[model.Rank]Benefit) {
			m[model.RankStar5] = Benefit{BaseRate: decimal.Zero, DefaultMaxQuantity: 1}
		}},
		{"zero quantity", func(m map[model.Rank]Benefit) {
			b := m[model.RankVIP]
			b.DefaultMaxQuantity = 0
			m[model.RankVIP] = b
		}},
		{"unknown rank", func(m map[model.Rank]Benefit) {
			m[model.Rank("GOLD")] = Benefit{DefaultMaxQuantity: 1}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := full()
			tt.mutate(m)
			if _, err := New(m); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
