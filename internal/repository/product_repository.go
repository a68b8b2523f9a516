package repository

import (
	"context"

	"github.com/mlmcommerce/supplychain/internal/model"
	"gorm.io/gorm"
)

type ProductRepository interface {
	// FindByID returns the product with its specs.
	FindByID(ctx context.Context, id string) (*model.Product, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) FindByID(ctx context.Context, id string) (*model.Product, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var p model.Product
	if err := r.db.WithContext(ctx).
		Preload("Specs", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("id = ?", id).
		First(&p).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &p, nil
}
