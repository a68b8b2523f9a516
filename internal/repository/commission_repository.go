package repository

import (
	"context"

	"github.com/mlmcommerce/supplychain/internal/model"
	"gorm.io/gorm"
)

const commissionBatchSize = 100

type CommissionRepository interface {
	Create(ctx context.Context, rec *model.CommissionRecord) error
	CreateMany(ctx context.Context, recs []model.CommissionRecord) error
	ListByOrder(ctx context.Context, orderID string) ([]model.CommissionRecord, error)
	ListByUser(ctx context.Context, userID string) ([]model.CommissionRecord, error)
}

type commissionRepository struct {
	db *gorm.DB
}

func NewCommissionRepository(db *gorm.DB) CommissionRepository {
	return &commissionRepository{db: db}
}

func (r *commissionRepository) Create(ctx context.Context, rec *model.CommissionRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *commissionRepository) CreateMany(ctx context.Context, recs []model.CommissionRecord) error {
	if len(recs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(&recs, commissionBatchSize).Error
}

func (r *commissionRepository) ListByOrder(ctx context.Context, orderID string) ([]model.CommissionRecord, error) {
	var list []model.CommissionRecord
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("level ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *commissionRepository) ListByUser(ctx context.Context, userID string) ([]model.CommissionRecord, error) {
	var list []model.CommissionRecord
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
