package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mlmcommerce/supplychain/internal/ids"
	"github.com/mlmcommerce/supplychain/internal/model"
	"github.com/mlmcommerce/supplychain/internal/obs"
	"github.com/mlmcommerce/supplychain/internal/repository"
	"github.com/shopspring/decimal"
)

type PlaceOrderRequest struct {
	BuyerID   string `json:"buyerId" validate:"required"`
	SellerID  string `json:"sellerId" validate:"required"`
	ProductID string `json:"productId" validate:"required"`
	SpecID    string `json:"specId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
}

// OrderService turns approved authorizations into orders and drives them
// through their lifecycle. Every state change runs in one transaction; the
// conditional status update is what makes Complete pay commission once.
type OrderService struct {
	engine      *Engine
	orders      repository.OrderRepository
	commissions repository.CommissionRepository
	tx          repository.TxRunner
	validate    *validator.Validate
	now         func() time.Time
}

func NewOrderService(engine *Engine, orders repository.OrderRepository, commissions repository.CommissionRepository, tx repository.TxRunner) *OrderService {
	return &OrderService{
		engine:      engine,
		orders:      orders,
		commissions: commissions,
		tx:          tx,
		validate:    engine.validate,
		now:         time.Now,
	}
}

// Place authorizes the purchase and, when approved, takes the stock and
// creates the order atomically. The order is sold by the resolved seller.
func (s *OrderService) Place(ctx context.Context, req PlaceOrderRequest) (*model.PurchaseOrder, error) {
	done := s.engine.tracker.Start("place_order")
	order, err := s.place(ctx, req)
	done(err)
	return order, err
}

func (s *OrderService) place(ctx context.Context, req PlaceOrderRequest) (*model.PurchaseOrder, error) {
	if err := s.validate.StructCtx(ctx, req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	auth, err := s.engine.validator.Authorize(ctx, AuthorizeRequest{
		BuyerID:   req.BuyerID,
		SellerID:  req.SellerID,
		ProductID: req.ProductID,
		SpecID:    req.SpecID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		return nil, err
	}
	if !auth.Approved {
		return nil, &RejectionError{Reasons: auth.Reasons}
	}

	order := &model.PurchaseOrder{
		ID:              ids.New(),
		OrderNo:         ids.OrderNo(),
		BuyerID:         req.BuyerID,
		SellerID:        auth.ResolvedSellerID,
		NominalSellerID: req.SellerID,
		ProductID:       req.ProductID,
		SpecID:          req.SpecID,
		Quantity:        req.Quantity,
		Status:          model.OrderStatusPending,
		PaymentStatus:   model.PaymentStatusUnpaid,
	}
	// Price and stock come from the transaction, never from the cache.
	available := 0
	err = s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		product, err := repos.Products.FindByID(ctx, req.ProductID)
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: product %s", ErrNotFound, req.ProductID)
		}
		if err != nil {
			return err
		}
		spec, ok := product.Spec(req.SpecID)
		if !ok {
			return &RejectionError{Reasons: []string{ReasonSpecNotFound}}
		}
		available = spec.Stock
		if err := repos.Orders.DecrementStock(ctx, req.SpecID, req.Quantity); err != nil {
			return err
		}
		order.UnitPrice = spec.Price
		order.TotalAmount = spec.Price.Mul(decimal.NewFromInt(int64(req.Quantity))).Round(2)
		return repos.Orders.Create(ctx, order)
	})
	if errors.Is(err, repository.ErrInsufficientStock) {
		return nil, &RejectionError{
			Reasons: []string{insufficientStock(req.Quantity, available)},
			Err:     err,
		}
	}
	if passthrough(err) {
		return nil, err
	}
	if err != nil {
		return nil, systemError(ctx, "place_order", err, map[string]any{
			"buyer_id": req.BuyerID,
			"spec_id":  req.SpecID,
			"quantity": req.Quantity,
		})
	}
	s.engine.lookups.forget(ctx, productKey(req.ProductID))

	obs.Info(ctx, "order.placed", map[string]any{
		"order_id":          order.ID,
		"order_no":          order.OrderNo,
		"seller_id":         order.SellerID,
		"nominal_seller_id": order.NominalSellerID,
		"total_amount":      order.TotalAmount.StringFixed(2),
	})
	return order, nil
}

func (s *OrderService) Get(ctx context.Context, id string) (*model.PurchaseOrder, error) {
	o, err := s.orders.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: order %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, systemError(ctx, "get_order", err, map[string]any{"order_id": id})
	}
	return o, nil
}

func (s *OrderService) Commissions(ctx context.Context, orderID string) ([]model.CommissionRecord, error) {
	if _, err := s.Get(ctx, orderID); err != nil {
		return nil, err
	}
	list, err := s.commissions.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, systemError(ctx, "list_commissions", err, map[string]any{"order_id": orderID})
	}
	return list, nil
}

// Confirm records payment.
func (s *OrderService) Confirm(ctx context.Context, id string) (*model.PurchaseOrder, error) {
	return s.transition(ctx, "confirm_order", id, model.OrderStatusConfirmed, map[string]any{
		"payment_status": model.PaymentStatusPaid,
		"confirmed_at":   s.now(),
	}, nil)
}

func (s *OrderService) StartProcessing(ctx context.Context, id string) (*model.PurchaseOrder, error) {
	return s.transition(ctx, "start_processing", id, model.OrderStatusProcessing, nil, nil)
}

// Complete finishes the order and distributes its commission in the same
// transaction, reading the seller and uplines through it rather than the
// cache. A second call finds the order already COMPLETED and fails with
// ErrInvalidTransition, so commission is never paid twice.
func (s *OrderService) Complete(ctx context.Context, id string) (*model.PurchaseOrder, error) {
	return s.transition(ctx, "complete_order", id, model.OrderStatusCompleted, map[string]any{
		"completed_at": s.now(),
	}, func(ctx context.Context, repos repository.Repositories, o *model.PurchaseOrder) error {
		seller, err := repos.Participants.FindByID(ctx, o.SellerID)
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: seller %s", ErrNotFound, o.SellerID)
		}
		if err != nil {
			return err
		}
		_, err = s.engine.calculator.WithRepositories(repos).Distribute(ctx, DistributeInput{
			OrderID:     o.ID,
			SellerID:    o.SellerID,
			SellerRank:  seller.Rank,
			TotalAmount: o.TotalAmount,
		})
		return err
	})
}

// Cancel releases the order's stock.
func (s *OrderService) Cancel(ctx context.Context, id string) (*model.PurchaseOrder, error) {
	o, err := s.transition(ctx, "cancel_order", id, model.OrderStatusCancelled, map[string]any{
		"cancelled_at": s.now(),
	}, func(ctx context.Context, repos repository.Repositories, o *model.PurchaseOrder) error {
		return repos.Orders.RestoreStock(ctx, o.SpecID, o.Quantity)
	})
	if err == nil {
		s.engine.lookups.forget(ctx, productKey(o.ProductID))
	}
	return o, err
}

// Refund marks a completed order refunded. Commission records are kept.
func (s *OrderService) Refund(ctx context.Context, id string) (*model.PurchaseOrder, error) {
	return s.transition(ctx, "refund_order", id, model.OrderStatusRefunded, map[string]any{
		"payment_status": model.PaymentStatusRefunded,
	}, nil)
}

type txStep func(ctx context.Context, repos repository.Repositories, o *model.PurchaseOrder) error

// transition moves the order from its current status to `to` and runs step in
// the same transaction. Losing a race against another transition is reported
// as ErrInvalidTransition.
func (s *OrderService) transition(ctx context.Context, op, id string, to model.OrderStatus, fields map[string]any, step txStep) (*model.PurchaseOrder, error) {
	done := s.engine.tracker.Start(op)
	o, err := s.doTransition(ctx, op, id, to, fields, step)
	done(err)
	return o, err
}

func (s *OrderService) doTransition(ctx context.Context, op, id string, to model.OrderStatus, fields map[string]any, step txStep) (*model.PurchaseOrder, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	from := order.Status
	if !model.CanTransition(from, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		changed, err := repos.Orders.Transition(ctx, id, []model.OrderStatus{from}, to, fields)
		if err != nil {
			return err
		}
		if !changed {
			return fmt.Errorf("%w: order %s is no longer %s", ErrInvalidTransition, id, from)
		}
		if step != nil {
			return step(ctx, repos, order)
		}
		return nil
	})
	if err != nil {
		if passthrough(err) {
			return nil, err
		}
		return nil, systemError(ctx, op, err, map[string]any{"order_id": id, "from": from, "to": to})
	}

	obs.Info(ctx, "order.transition", map[string]any{"order_id": id, "from": from, "to": to})
	return s.Get(ctx, id)
}
