package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mlmcommerce/supplychain/internal/benefit"
	"github.com/mlmcommerce/supplychain/internal/model"
	"github.com/mlmcommerce/supplychain/internal/obs"
	"golang.org/x/sync/errgroup"
)

// Rejection reasons. Stock and restriction reasons carry numbers and are
// formatted where they are produced.
const (
	ReasonBuyerNotFound     = "buyer not found"
	ReasonSellerNotFound    = "seller not found"
	ReasonProductNotFound   = "product not found"
	ReasonBuyerInactive     = "buyer is not active"
	ReasonSellerInactive    = "seller is not active"
	ReasonNoTeamRelation    = "no valid team relationship"
	ReasonNoHigherAncestor  = "seller rank too low and no higher ancestor found"
	ReasonProductInactive   = "product is not active"
	ReasonNoActiveSpecs     = "product has no active specs"
	ReasonSpecNotFound      = "spec not found"
	ReasonSpecInactive      = "spec is not active"
	reasonInsufficientStock = "insufficient stock: requested %d, available %d"
	reasonQuantityLimit     = "quantity %d exceeds limit %d"
	reasonRankBelowMinimum  = "buyer rank %s below minimum %s"
)

type AuthorizeRequest struct {
	BuyerID   string `json:"buyerId" validate:"required"`
	SellerID  string `json:"sellerId" validate:"required"`
	ProductID string `json:"productId" validate:"required"`
	SpecID    string `json:"specId,omitempty"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
}

// PurchaseRestrictions are the limits that applied to the buyer for the product.
type PurchaseRestrictions struct {
	MaxQuantity int        `json:"maxQuantity"`
	MinLevel    model.Rank `json:"minLevel,omitempty"`
}

type Authorization struct {
	Approved         bool                 `json:"approved"`
	Reasons          []string             `json:"reasons"`
	ResolvedSellerID string               `json:"resolvedSellerId,omitempty"`
	NominalSellerID  string               `json:"nominalSellerId"`
	SkippedLevels    int                  `json:"skippedLevels"`
	Restrictions     PurchaseRestrictions `json:"restrictions"`
	SupplyPath       []string             `json:"supplyPath,omitempty"`
}

// Validator decides whether a restock purchase may go ahead. It only reads.
type Validator struct {
	lookups  *lookups
	resolver *Resolver
	finder   *PathFinder
	benefits *benefit.Table
	validate *validator.Validate
	metrics  *obs.Metrics
	maxDepth int
}

// Authorize runs every check in a fixed order and reports all violated rules
// at once. A missing buyer, seller or product fails immediately with an error
// wrapping ErrNotFound.
func (v *Validator) Authorize(ctx context.Context, req AuthorizeRequest) (Authorization, error) {
	auth := Authorization{Reasons: []string{}, NominalSellerID: req.SellerID}
	if err := v.validate.StructCtx(ctx, req); err != nil {
		return auth, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	fields := map[string]any{
		"buyer_id":   req.BuyerID,
		"seller_id":  req.SellerID,
		"product_id": req.ProductID,
		"quantity":   req.Quantity,
	}

	var (
		buyer, seller *model.Participant
		product       *model.Product
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		buyer, err = v.lookups.participant(gctx, req.BuyerID)
		return err
	})
	g.Go(func() error {
		var err error
		seller, err = v.lookups.participant(gctx, req.SellerID)
		return err
	})
	g.Go(func() error {
		var err error
		product, err = v.lookups.product(gctx, req.ProductID)
		return err
	})
	if err := g.Wait(); err != nil {
		return auth, systemError(ctx, "authorize", err, fields)
	}

	if buyer == nil {
		auth.Reasons = append(auth.Reasons, ReasonBuyerNotFound)
	}
	if seller == nil {
		auth.Reasons = append(auth.Reasons, ReasonSellerNotFound)
	}
	if product == nil {
		auth.Reasons = append(auth.Reasons, ReasonProductNotFound)
	}
	if len(auth.Reasons) > 0 {
		v.metrics.Authorization(false)
		return auth, fmt.Errorf("%w: %s", ErrNotFound, strings.Join(auth.Reasons, ", "))
	}

	if !buyer.IsActive() {
		auth.Reasons = append(auth.Reasons, ReasonBuyerInactive)
	}
	if !seller.IsActive() {
		auth.Reasons = append(auth.Reasons, ReasonSellerInactive)
	}

	distance, err := v.resolver.Distance(ctx, buyer.ID, seller.ID, v.maxDepth)
	if err != nil {
		return auth, systemError(ctx, "authorize", err, fields)
	}
	if distance == 0 {
		auth.Reasons = append(auth.Reasons, ReasonNoTeamRelation)
	}

	if seller.Rank.Outranks(buyer.Rank) {
		auth.ResolvedSellerID = seller.ID
		auth.SupplyPath = []string{seller.ID}
	} else {
		found, err := v.finder.FindHigherRankAncestor(ctx, seller.ID, buyer.Rank.Index(), v.maxDepth)
		if err != nil {
			return auth, systemError(ctx, "authorize", err, fields)
		}
		if found == nil {
			auth.Reasons = append(auth.Reasons, ReasonNoHigherAncestor)
		} else {
			auth.ResolvedSellerID = found.Participant.ID
			auth.SkippedLevels = len(found.Path) - 1
			auth.SupplyPath = found.Path
		}
	}

	auth.Reasons = append(auth.Reasons, stockReasons(product, req)...)

	auth.Restrictions = v.restrictions(buyer, product)
	if req.Quantity > auth.Restrictions.MaxQuantity {
		auth.Reasons = append(auth.Reasons, fmt.Sprintf(reasonQuantityLimit, req.Quantity, auth.Restrictions.MaxQuantity))
	}
	if auth.Restrictions.MinLevel != "" && buyer.Rank.Index() < auth.Restrictions.MinLevel.Index() {
		auth.Reasons = append(auth.Reasons, fmt.Sprintf(reasonRankBelowMinimum, buyer.Rank, auth.Restrictions.MinLevel))
	}

	auth.Approved = len(auth.Reasons) == 0
	v.metrics.Authorization(auth.Approved)

	fields["approved"] = auth.Approved
	fields["resolved_seller_id"] = auth.ResolvedSellerID
	if !auth.Approved {
		fields["reasons"] = auth.Reasons
	}
	obs.Info(ctx, "purchase.authorize", fields)
	return auth, nil
}

func stockReasons(product *model.Product, req AuthorizeRequest) []string {
	var reasons []string
	if !product.IsActive() {
		reasons = append(reasons, ReasonProductInactive)
	}
	if len(product.ActiveSpecs()) == 0 {
		reasons = append(reasons, ReasonNoActiveSpecs)
	}
	if req.SpecID == "" {
		if available := product.AvailableStock(); available < req.Quantity {
			reasons = append(reasons, insufficientStock(req.Quantity, available))
		}
		return reasons
	}
	spec, ok := product.Spec(req.SpecID)
	switch {
	case !ok:
		reasons = append(reasons, ReasonSpecNotFound)
	case !spec.IsActive:
		reasons = append(reasons, ReasonSpecInactive)
	case spec.Stock < req.Quantity:
		reasons = append(reasons, insufficientStock(req.Quantity, spec.Stock))
	}
	return reasons
}

func insufficientStock(requested, available int) string {
	return fmt.Sprintf(reasonInsufficientStock, requested, max(available, 0))
}

// restrictions starts from the buyer's rank default and tightens it with the
// product's own limits.
func (v *Validator) restrictions(buyer *model.Participant, product *model.Product) PurchaseRestrictions {
	r := PurchaseRestrictions{
		MaxQuantity: v.benefits.DefaultMaxQuantity(buyer.Rank),
		MinLevel:    product.MinRank,
	}
	if product.PurchaseLimit > 0 && product.PurchaseLimit < r.MaxQuantity {
		r.MaxQuantity = product.PurchaseLimit
	}
	return r
}
