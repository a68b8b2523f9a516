package service

import (
	"context"
	"errors"
	"testing"

	"github.com/mlmcommerce/supplychain/internal/model"
	"github.com/mlmcommerce/supplychain/internal/obs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

func seriesCount(t *testing.T, g prometheus.Gatherer, name string) int {
	t.Helper()
	families, err := g.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() == name {
			return len(f.GetMetric())
		}
	}
	return 0
}

func TestEngineDiagnostics(t *testing.T) {
	db := teamFixture()
	e := newTestEngine(t, db)
	ctx := context.Background()

	req := AuthorizeRequest{BuyerID: "vip", SellerID: "s1", ProductID: "tea", Quantity: 1}
	for i := 0; i < 3; i++ {
		if _, err := e.Authorize(ctx, req); err != nil {
			t.Fatalf("Authorize: %v", err)
		}
	}
	if _, err := e.Authorize(ctx, AuthorizeRequest{}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}

	stats := e.CacheStats()
	if stats.Backend != "memory" || stats.Hits == 0 || stats.Size == 0 {
		t.Fatalf("unexpected cache stats %+v", stats)
	}

	perf := e.PerformanceStats()
	if len(perf) != 1 || perf[0].Op != "authorize" || perf[0].Calls != 4 || perf[0].Errors != 1 {
		t.Fatalf("unexpected performance stats %+v", perf)
	}

	if err := e.ClearCache(ctx); err != nil {
		t.Fatalf("ClearCache: %v", err)
	}
	if e.CacheStats().Size != 0 {
		t.Fatal("cache not cleared")
	}
}

func TestEngineWithoutCache(t *testing.T) {
	db := teamFixture()
	e := NewEngine(memParticipants{db}, memProducts{db}, memCommissions{db}, nil, Options{})
	ctx := context.Background()

	auth, err := e.Authorize(ctx, AuthorizeRequest{BuyerID: "vip", SellerID: "s1", ProductID: "tea", Quantity: 1})
	if err != nil || !auth.Approved {
		t.Fatalf("Authorize: %+v %v", auth, err)
	}
	if e.CacheStats().Backend != "none" || e.ClearCache(ctx) != nil {
		t.Fatal("cacheless engine diagnostics")
	}
	e.InvalidateProduct(ctx, "tea")
}

func TestEngineMetrics(t *testing.T) {
	db := teamFixture()
	reg := prometheus.NewRegistry()
	m := obs.NewMetrics(reg)
	e := NewEngine(memParticipants{db}, memProducts{db}, memCommissions{db}, nil, Options{Metrics: m})
	ctx := context.Background()

	if _, err := e.Authorize(ctx, AuthorizeRequest{BuyerID: "vip", SellerID: "s1", ProductID: "tea", Quantity: 1}); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Authorize(ctx, AuthorizeRequest{BuyerID: "stranger", SellerID: "s1", ProductID: "tea", Quantity: 1}); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Distribute(ctx, DistributeInput{OrderID: "o", SellerID: "vip", SellerRank: model.RankVIP, TotalAmount: decimal.NewFromInt(100)}); err != nil {
		t.Fatal(err)
	}

	if got := seriesCount(t, reg, "mlm_purchase_authorizations_total"); got != 2 {
		t.Fatalf("authorization series=%d", got)
	}
	if got := seriesCount(t, reg, "mlm_commission_records_created_total"); got != 1 {
		t.Fatalf("commission series=%d", got)
	}
}
