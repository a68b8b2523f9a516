package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "ACTIVE"
	ProductStatusInactive ProductStatus = "INACTIVE"
)

// Product is a restockable good. PurchaseLimit (0 = none) and MinRank ("" = none)
// tighten the rank based purchase restrictions.
type Product struct {
	ID            string        `gorm:"primaryKey;size:64" json:"id"`
	Name          string        `gorm:"size:120;not null" json:"name"`
	Status        ProductStatus `gorm:"size:16;not null;index" json:"status"`
	TotalStock    int           `gorm:"column:total_stock;not null;default:0" json:"totalStock"`
	PurchaseLimit int           `gorm:"column:purchase_limit;not null;default:0" json:"purchaseLimit"`
	MinRank       Rank          `gorm:"column:min_rank;size:16" json:"minRank,omitempty"`
	Specs         []ProductSpec `gorm:"foreignKey:ProductID" json:"specs"`
	CreatedAt     time.Time     `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time     `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Product) TableName() string {
	return "products"
}

func (p *Product) IsActive() bool {
	return p.Status == ProductStatusActive
}

// ActiveSpecs returns the specs that can currently be sold.
func (p *Product) ActiveSpecs() []ProductSpec {
	out := make([]ProductSpec, 0, len(p.Specs))
	for _, s := range p.Specs {
		if s.IsActive {
			out = append(out, s)
		}
	}
	return out
}

// AvailableStock is the aggregate stock across active specs.
func (p *Product) AvailableStock() int {
	total := 0
	for _, s := range p.Specs {
		if s.IsActive && s.Stock > 0 {
			total += s.Stock
		}
	}
	return total
}

func (p *Product) Spec(id string) (ProductSpec, bool) {
	for _, s := range p.Specs {
		if s.ID == id {
			return s, true
		}
	}
	return ProductSpec{}, false
}

type ProductSpec struct {
	ID        string          `gorm:"primaryKey;size:64" json:"id"`
	ProductID string          `gorm:"column:product_id;size:64;not null;index" json:"productId"`
	Name      string          `gorm:"size:120" json:"name"`
	Stock     int             `gorm:"not null;default:0" json:"stock"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	IsActive  bool            `gorm:"column:is_active;not null;default:true" json:"isActive"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (ProductSpec) TableName() string {
	return "product_specs"
}
