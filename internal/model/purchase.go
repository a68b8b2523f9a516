package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusConfirmed  OrderStatus = "CONFIRMED"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
	OrderStatusRefunded   OrderStatus = "REFUNDED"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "UNPAID"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusCompleted},
	OrderStatusCompleted:  {OrderStatusRefunded},
}

// CanTransition reports whether the order state machine allows from -> to.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// SourcesOf returns every status that may move into to.
func SourcesOf(to OrderStatus) []OrderStatus {
	var out []OrderStatus
	for _, from := range []OrderStatus{OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing, OrderStatusCompleted} {
		if CanTransition(from, to) {
			out = append(out, from)
		}
	}
	return out
}

// PurchaseOrder is a restock order. SellerID is the actual seller after skip-level
// resolution; NominalSellerID keeps the seller the buyer originally asked for.
type PurchaseOrder struct {
	ID              string          `gorm:"primaryKey;size:64" json:"id"`
	OrderNo         string          `gorm:"column:order_no;size:40;uniqueIndex;not null" json:"orderNo"`
	BuyerID         string          `gorm:"column:buyer_id;size:64;index;not null" json:"buyerId"`
	SellerID        string          `gorm:"column:seller_id;size:64;index;not null" json:"sellerId"`
	NominalSellerID string          `gorm:"column:nominal_seller_id;size:64" json:"nominalSellerId"`
	ProductID       string          `gorm:"column:product_id;size:64;index;not null" json:"productId"`
	SpecID          string          `gorm:"column:spec_id;size:64;index;not null" json:"specId"`
	Quantity        int             `gorm:"not null" json:"quantity"`
	UnitPrice       decimal.Decimal `gorm:"column:unit_price;type:decimal(12,2);not null" json:"unitPrice"`
	TotalAmount     decimal.Decimal `gorm:"column:total_amount;type:decimal(14,2);not null" json:"totalAmount"`
	Status          OrderStatus     `gorm:"column:status;size:16;index;not null" json:"status"`
	PaymentStatus   PaymentStatus   `gorm:"column:payment_status;size:16;not null" json:"paymentStatus"`
	ConfirmedAt     *time.Time      `gorm:"column:confirmed_at" json:"confirmedAt,omitempty"`
	CompletedAt     *time.Time      `gorm:"column:completed_at" json:"completedAt,omitempty"`
	CancelledAt     *time.Time      `gorm:"column:cancelled_at" json:"cancelledAt,omitempty"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (PurchaseOrder) TableName() string {
	return "purchase_orders"
}
