package repository

import (
	"context"

	"github.com/mlmcommerce/supplychain/internal/model"
	"gorm.io/gorm"
)

type OrderRepository interface {
	Create(ctx context.Context, o *model.PurchaseOrder) error
	FindByID(ctx context.Context, id string) (*model.PurchaseOrder, error)
	// DecrementStock atomically takes qty from an active spec and its product.
	// It returns ErrInsufficientStock when current stock cannot cover qty.
	DecrementStock(ctx context.Context, specID string, qty int) error
	RestoreStock(ctx context.Context, specID string, qty int) error
	// Transition moves the order to `to` only if its current status is one of
	// from. It reports whether the row changed.
	Transition(ctx context.Context, id string, from []model.OrderStatus, to model.OrderStatus, fields map[string]any) (bool, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]model.PurchaseOrder, error)
	ListBySeller(ctx context.Context, sellerID string) ([]model.PurchaseOrder, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, o *model.PurchaseOrder) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *orderRepository) FindByID(ctx context.Context, id string) (*model.PurchaseOrder, error) {
	var o model.PurchaseOrder
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&o).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &o, nil
}

func (r *orderRepository) DecrementStock(ctx context.Context, specID string, qty int) error {
	res := r.db.WithContext(ctx).
		Model(&model.ProductSpec{}).
		Where("id = ? AND is_active = ? AND stock >= ?", specID, true, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientStock
	}

	owner := r.db.Model(&model.ProductSpec{}).Select("product_id").Where("id = ?", specID)
	res = r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = (?) AND total_stock >= ?", owner, qty).
		Update("total_stock", gorm.Expr("total_stock - ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientStock
	}
	return nil
}

func (r *orderRepository) RestoreStock(ctx context.Context, specID string, qty int) error {
	res := r.db.WithContext(ctx).
		Model(&model.ProductSpec{}).
		Where("id = ?", specID).
		Update("stock", gorm.Expr("stock + ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	owner := r.db.Model(&model.ProductSpec{}).Select("product_id").Where("id = ?", specID)
	return r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = (?)", owner).
		Update("total_stock", gorm.Expr("total_stock + ?", qty)).Error
}

func (r *orderRepository) Transition(ctx context.Context, id string, from []model.OrderStatus, to model.OrderStatus, fields map[string]any) (bool, error) {
	updates := map[string]any{"status": to}
	for k, v := range fields {
		updates[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&model.PurchaseOrder{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *orderRepository) ListByBuyer(ctx context.Context, buyerID string) ([]model.PurchaseOrder, error) {
	var list []model.PurchaseOrder
	if err := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *orderRepository) ListBySeller(ctx context.Context, sellerID string) ([]model.PurchaseOrder, error) {
	var list []model.PurchaseOrder
	if err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
