// SPDX-License-Identifier: GPL-3.0-only

package models

import (
	"time"

	"newsdesk-server/crypto"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SubscriptionPlan rows are never deleted while a live subscription
// references them; deactivate with IsActive=false instead.
type SubscriptionPlan struct {
	ID              uint            `gorm:"primaryKey"`
	PlanID          string          `gorm:"size:64;uniqueIndex"`
	Name            string          `gorm:"size:255;not null;uniqueIndex"`
	Price           decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Currency        string          `gorm:"size:10;not null;default:'USD'"`
	DurationDays    uint            `gorm:"not null;default:30"`
	StripePriceID   *string         `gorm:"size:255;default:null"`
	PinPosts        bool            `gorm:"not null;default:false"`
	PrioritySupport bool            `gorm:"not null;default:false"`
	Analytics       bool            `gorm:"not null;default:false"`
	IsActive        bool            `gorm:"not null;default:true;index"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       gorm.DeletedAt `gorm:"index"`
}

func (plan *SubscriptionPlan) BeforeCreate(tx *gorm.DB) (err error) {
	if plan.PlanID == "" {
		plan.PlanID, err = crypto.GenerateRandomString("plan_", 16, "hex")
		if err != nil {
			return err
		}
	}
	return
}

func init() {
	AllModels = append(AllModels, &SubscriptionPlan{})
}
