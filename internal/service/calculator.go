package service

import (
	"context"
	"fmt"

	"github.com/mlmcommerce/supplychain/internal/benefit"
	"github.com/mlmcommerce/supplychain/internal/ids"
	"github.com/mlmcommerce/supplychain/internal/model"
	"github.com/mlmcommerce/supplychain/internal/obs"
	"github.com/mlmcommerce/supplychain/internal/repository"
	"github.com/shopspring/decimal"
)

var (
	levelDecay       = decimal.RequireFromString("0.8")
	minPayableAmount = decimal.RequireFromString("0.01")
)

const rateScale = 8

type DistributeInput struct {
	OrderID     string          `json:"orderId"`
	SellerID    string          `json:"sellerId"`
	SellerRank  model.Rank      `json:"sellerRank"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	MaxDepth    int             `json:"maxDepth,omitempty"`
}

// CommissionLevel is one upline's share in a preview.
type CommissionLevel struct {
	Level  int             `json:"level"`
	UserID string          `json:"userId"`
	Rate   decimal.Decimal `json:"rate"`
	Amount decimal.Decimal `json:"amount"`
}

type CommissionPreview struct {
	SellerID    string            `json:"sellerId"`
	SellerRank  model.Rank        `json:"sellerRank"`
	TotalAmount decimal.Decimal   `json:"totalAmount"`
	BaseRate    decimal.Decimal   `json:"baseRate"`
	Levels      []CommissionLevel `json:"levels"`
	Total       decimal.Decimal   `json:"total"`
}

// Calculator computes the degressive commission paid up the seller's
// commission path: level i+1 receives baseRate * 0.8^i of the order total.
// It does not deduplicate; callers invoke Distribute once per order.
//
// Previews walk the commission path through the cache. Distribute reads every
// upline from the participant repository so payouts never follow a stale rank
// or status.
type Calculator struct {
	resolver     *Resolver
	benefits     *benefit.Table
	participants repository.ParticipantRepository
	commissions  repository.CommissionRepository
	metrics      *obs.Metrics
	maxDepth     int
}

// WithRepositories returns a copy of c that reads uplines and persists records
// through repos, typically the repositories of an open transaction.
func (c *Calculator) WithRepositories(repos repository.Repositories) *Calculator {
	cp := *c
	if repos.Participants != nil {
		cp.participants = repos.Participants
	}
	if repos.Commissions != nil {
		cp.commissions = repos.Commissions
	}
	return &cp
}

// Distribute computes and persists the commission records for an order.
func (c *Calculator) Distribute(ctx context.Context, in DistributeInput) ([]model.CommissionRecord, error) {
	if in.OrderID == "" || in.SellerID == "" {
		return nil, fmt.Errorf("%w: order id and seller id are required", ErrInvalidRequest)
	}
	if in.TotalAmount.IsNegative() {
		return nil, fmt.Errorf("%w: total amount must not be negative", ErrInvalidRequest)
	}
	levels, _, err := c.levels(ctx, c.resolver.direct(c.participants), in.SellerID, in.SellerRank, in.TotalAmount, in.MaxDepth)
	if err != nil {
		return nil, err
	}

	records := make([]model.CommissionRecord, 0, len(levels))
	for _, l := range levels {
		records = append(records, model.CommissionRecord{
			ID:           ids.New(),
			UserID:       l.UserID,
			OrderID:      in.OrderID,
			Amount:       l.Amount,
			Rate:         l.Rate,
			Level:        l.Level,
			SourceUserID: in.SellerID,
			Status:       model.CommissionStatusPending,
		})
	}
	if err := c.commissions.CreateMany(ctx, records); err != nil {
		return nil, systemError(ctx, "distribute", err, map[string]any{
			"order_id":  in.OrderID,
			"seller_id": in.SellerID,
			"records":   len(records),
		})
	}
	c.metrics.CommissionRecords(len(records))
	obs.Info(ctx, "commission.distributed", map[string]any{
		"order_id":     in.OrderID,
		"seller_id":    in.SellerID,
		"total_amount": in.TotalAmount.StringFixed(2),
		"records":      len(records),
	})
	return records, nil
}

// PreviewCommission runs the same computation as Distribute without writing
// anything. Equal inputs over equal data give equal output.
func (c *Calculator) PreviewCommission(ctx context.Context, sellerID string, sellerRank model.Rank, totalAmount decimal.Decimal, maxDepth int) (CommissionPreview, error) {
	if sellerID == "" || totalAmount.IsNegative() {
		return CommissionPreview{}, fmt.Errorf("%w: seller id and a non-negative amount are required", ErrInvalidRequest)
	}
	levels, base, err := c.levels(ctx, c.resolver, sellerID, sellerRank, totalAmount, maxDepth)
	if err != nil {
		return CommissionPreview{}, err
	}
	total := decimal.Zero
	for _, l := range levels {
		total = total.Add(l.Amount)
	}
	return CommissionPreview{
		SellerID:    sellerID,
		SellerRank:  sellerRank,
		TotalAmount: totalAmount,
		BaseRate:    base,
		Levels:      levels,
		Total:       total,
	}, nil
}

func (c *Calculator) levels(ctx context.Context, resolver *Resolver, sellerID string, sellerRank model.Rank, totalAmount decimal.Decimal, maxDepth int) ([]CommissionLevel, decimal.Decimal, error) {
	if maxDepth <= 0 {
		maxDepth = c.maxDepth
	}
	base := c.benefits.BaseCommissionRate(sellerRank)
	levels := []CommissionLevel{}
	if !base.IsPositive() || !totalAmount.IsPositive() {
		return levels, base, nil
	}

	path, err := resolver.CommissionPath(ctx, sellerID, maxDepth)
	if err != nil {
		return nil, base, err
	}
	rate := base
	for i, upline := range path {
		raw := totalAmount.Mul(rate)
		// amounts only shrink from here on
		if raw.LessThanOrEqual(minPayableAmount) {
			break
		}
		levels = append(levels, CommissionLevel{
			Level:  i + 1,
			UserID: upline.ID,
			Rate:   rate.Round(rateScale),
			Amount: raw.Round(2),
		})
		rate = rate.Mul(levelDecay)
	}
	return levels, base, nil
}
