package models

import "time"

// Payment is one immutable row per unique provider charge id. The primary key
// is the idempotency boundary: the same invoice id is never credited twice.
type Payment struct {
	InvoiceID string    `gorm:"column:invoice_id;primaryKey"`
	UserID    int64     `gorm:"column:user_id;not null"`
	Amount    int64     `gorm:"column:amount;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Payment) TableName() string {
	return "payments"
}
