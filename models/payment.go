// SPDX-License-Identifier: GPL-3.0-only

package models

import (
	"time"

	"newsdesk-server/crypto"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PaymentStatus string

const (
	PendingPayment    PaymentStatus = "pending"
	ProcessingPayment PaymentStatus = "processing"
	SucceededPayment  PaymentStatus = "succeeded"
	FailedPayment     PaymentStatus = "failed"
	CancelledPayment  PaymentStatus = "cancelled"
	RefundedPayment   PaymentStatus = "refunded"
)

type PaymentMethod string

const (
	StripePayment PaymentMethod = "stripe"
	ManualPayment PaymentMethod = "manual"
)

type Payment struct {
	ID                    uint            `gorm:"primaryKey"`
	PaymentID             string          `gorm:"size:64;uniqueIndex"`
	Amount                decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Currency              string          `gorm:"size:3;not null;default:'USD'"`
	Status                PaymentStatus   `gorm:"size:20;not null;default:'pending';index"`
	Method                PaymentMethod   `gorm:"size:20;not null;default:'stripe'"`
	StripePaymentIntentID *string         `gorm:"size:255;default:null;index"`
	StripeSessionID       *string         `gorm:"size:255;default:null;index"`
	StripeCustomerID      *string         `gorm:"size:255;default:null"`
	Description           string          `gorm:"type:text"`
	Metadata              datatypes.JSON  `gorm:"default:null"`
	ProcessedAt           *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
	DeletedAt             gorm.DeletedAt `gorm:"index"`
	UserID                uint           `gorm:"index"`
	User                  User           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	SubscriptionID        *uint
	Subscription          *Subscription `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
}

func (payment *Payment) BeforeCreate(tx *gorm.DB) (err error) {
	if payment.PaymentID == "" {
		payment.PaymentID, err = crypto.GenerateRandomString("pay_", 16, "hex")
		if err != nil {
			return err
		}
	}
	return
}

func init() {
	AllModels = append(AllModels, &Payment{})
}

type RefundStatus string

const (
	PendingRefund   RefundStatus = "pending"
	SucceededRefund RefundStatus = "succeeded"
	FailedRefund    RefundStatus = "failed"
	CancelledRefund RefundStatus = "cancelled"
)

type Refund struct {
	ID             uint            `gorm:"primaryKey"`
	Amount         decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Reason         string          `gorm:"type:text"`
	Status         RefundStatus    `gorm:"size:20;not null;default:'pending'"`
	StripeRefundID *string         `gorm:"size:255;default:null"`
	ProcessedAt    *time.Time
	CreatedAt      time.Time
	PaymentID      uint    `gorm:"not null;index"`
	Payment        Payment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	CreatedByID    *uint
	CreatedBy      *User `gorm:"foreignKey:CreatedByID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
}

func init() {
	AllModels = append(AllModels, &Refund{})
}

type WebhookEventStatus string

const (
	PendingWebhookEvent   WebhookEventStatus = "pending"
	ProcessedWebhookEvent WebhookEventStatus = "processed"
	FailedWebhookEvent    WebhookEventStatus = "failed"
	IgnoredWebhookEvent   WebhookEventStatus = "ignored"
)

// WebhookEvent deduplicates provider callbacks; EventID is unique so a
// redelivered event is recorded exactly once.
type WebhookEvent struct {
	ID           uint               `gorm:"primaryKey"`
	Provider     string             `gorm:"size:20;not null;index:idx_webhook_provider_type"`
	EventID      string             `gorm:"size:255;not null;uniqueIndex"`
	EventType    string             `gorm:"size:100;not null;index:idx_webhook_provider_type"`
	Status       WebhookEventStatus `gorm:"size:20;not null;default:'pending';index"`
	Data         datatypes.JSON     `gorm:"not null"`
	ErrorMessage *string            `gorm:"type:text;default:null"`
	ProcessedAt  *time.Time
	CreatedAt    time.Time
}

func init() {
	AllModels = append(AllModels, &WebhookEvent{})
}
