package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type CommissionStatus string

const (
	CommissionStatusPending CommissionStatus = "PENDING"
	CommissionStatusPaid    CommissionStatus = "PAID"
)

// CommissionRecord is one level of a degressive payout. Level is the 1-based
// distance from the seller (SourceUserID).
type CommissionRecord struct {
	ID           string           `gorm:"primaryKey;size:64" json:"id,omitempty"`
	UserID       string           `gorm:"column:user_id;size:64;index;not null" json:"userId"`
	OrderID      string           `gorm:"column:order_id;size:64;index" json:"orderId,omitempty"`
	Amount       decimal.Decimal  `gorm:"type:decimal(14,2);not null" json:"amount"`
	Rate         decimal.Decimal  `gorm:"type:decimal(12,8);not null" json:"rate"`
	Level        int              `gorm:"not null" json:"level"`
	SourceUserID string           `gorm:"column:source_user_id;size:64;index;not null" json:"sourceUserId"`
	Status       CommissionStatus `gorm:"size:16;not null" json:"status"`
	CreatedAt    time.Time        `gorm:"autoCreateTime" json:"createdAt"`
}

func (CommissionRecord) TableName() string {
	return "commission_records"
}
