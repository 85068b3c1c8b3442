package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentHeld     PaymentStatus = "Held"
	PaymentReleased PaymentStatus = "Released"
	PaymentRefunded PaymentStatus = "Refunded"
)

// EscrowPayment holds the task price until release or refund. Exactly one per task.
type EscrowPayment struct {
	ID            string          `json:"id" gorm:"primaryKey"`
	TaskID        string          `json:"taskId" gorm:"not null;uniqueIndex"`
	AmountHeld    decimal.Decimal `json:"amountHeld" gorm:"type:decimal(12,2);not null"`
	PaymentStatus PaymentStatus   `json:"paymentStatus" gorm:"not null;default:'Held'"`
	IsReleased    bool            `json:"isReleased" gorm:"not null;default:false"`
	ReleasedAt    *time.Time      `json:"releasedAt"`
	GatewayRef    string          `json:"-"`
	CreatedAt     time.Time       `json:"createdAt"`
	ModifiedAt    *time.Time      `json:"modifiedAt"`
}

func (EscrowPayment) TableName() string {
	return "escrow_payments"
}
