// SPDX-License-Identifier: GPL-3.0-only

package models

import (
	"time"

	"newsdesk-server/crypto"

	"gorm.io/gorm"
)

type SubscriptionStatus string

const (
	ActiveSubscription    SubscriptionStatus = "active"
	CancelledSubscription SubscriptionStatus = "cancelled"
	ExpiredSubscription   SubscriptionStatus = "expired"
)

// IsTerminal reports whether no further transition is allowed out of
// the status. Expired rows are retained for auditability rather than
// deleted, so a terminal row may still exist for a user.
func (s SubscriptionStatus) IsTerminal() bool {
	return s == CancelledSubscription || s == ExpiredSubscription
}

type Subscription struct {
	ID             uint               `gorm:"primaryKey"`
	SubscriptionID string             `gorm:"size:64;uniqueIndex"`
	Status         SubscriptionStatus `gorm:"size:20;not null;default:'active';index"`
	AutoRenew      bool               `gorm:"not null;default:false"`
	StartDate      time.Time          `gorm:"not null"`
	EndDate        time.Time          `gorm:"not null;index"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      gorm.DeletedAt `gorm:"index"`
	UserID         uint           `gorm:"not null;uniqueIndex"`
	User           User           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	PlanID         uint
	Plan           SubscriptionPlan `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
}

// IsActive requires both the active status and an end date in the
// future; a row the sweeper has not visited yet does not grant
// entitlements past its end date.
func (subscription *Subscription) IsActive(now time.Time) bool {
	return subscription.Status == ActiveSubscription && subscription.EndDate.After(now)
}

func (subscription *Subscription) BeforeCreate(tx *gorm.DB) (err error) {
	if subscription.SubscriptionID == "" {
		subscription.SubscriptionID, err = crypto.GenerateRandomString("sub_", 16, "hex")
		if err != nil {
			return err
		}
	}
	return
}

func init() {
	AllModels = append(AllModels, &Subscription{})
}
