// SPDX-License-Identifier: GPL-3.0-only

package migrations

import (
	"errors"

	"newsdesk-server/models"

	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func List() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		{
			ID: "001_seed_default_plan",
			Migrate: func(tx *gorm.DB) error {
				var existing models.SubscriptionPlan
				err := tx.Where("name = ?", "Premium Monthly").First(&existing).Error
				if err == nil {
					return nil
				}
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					return err
				}
				plan := models.SubscriptionPlan{
					Name:            "Premium Monthly",
					Price:           decimal.NewFromFloat(12.00),
					Currency:        "USD",
					DurationDays:    30,
					PinPosts:        true,
					PrioritySupport: true,
					Analytics:       true,
					IsActive:        true,
				}
				return tx.Create(&plan).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Unscoped().Where("name = ?", "Premium Monthly").Delete(&models.SubscriptionPlan{}).Error
			},
		},
	}
}
