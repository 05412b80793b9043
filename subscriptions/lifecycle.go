// SPDX-License-Identifier: GPL-3.0-only

package subscriptions

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"newsdesk-server/commons"
	"newsdesk-server/events"
	"newsdesk-server/models"

	"gorm.io/gorm"
)

// Create activates a subscription for the user on the given plan. The
// unique index on subscriptions.user_id is the serialization point:
// when two creates race for the same user, exactly one insert wins and
// the loser surfaces a ConflictError. A terminal (cancelled/expired)
// row is replaced; its audit trail survives in SubscriptionHistory,
// which carries user and plan context denormalized.
func Create(conn *gorm.DB, user *models.User, plan *models.SubscriptionPlan, autoRenew bool) (*models.Subscription, error) {
	now := time.Now().UTC()
	subscription := models.Subscription{
		UserID:    user.ID,
		PlanID:    plan.ID,
		Status:    models.ActiveSubscription,
		AutoRenew: autoRenew,
		StartDate: now,
		EndDate:   now.Add(time.Duration(plan.DurationDays) * 24 * time.Hour),
	}

	err := conn.Transaction(func(tx *gorm.DB) error {
		var existing models.Subscription
		err := tx.Where("user_id = ?", user.ID).First(&existing).Error
		switch {
		case err == nil:
			if !existing.Status.IsTerminal() {
				return &ConflictError{Message: "user already has a subscription"}
			}
			if err := tx.Unscoped().Delete(&existing).Error; err != nil {
				return err
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		if err := tx.Create(&subscription).Error; err != nil {
			if isDuplicateKeyError(err) {
				return &ConflictError{Message: "user already has a subscription"}
			}
			return err
		}

		return appendHistory(tx, &subscription, plan.Name, models.SubscriptionCreated,
			fmt.Sprintf("Subscription created for plan %s", plan.Name), nil)
	})
	if err != nil {
		return nil, err
	}

	events.Publish(events.SubscriptionCreated, map[string]any{
		"subscription_id": subscription.SubscriptionID,
		"user_id":         user.AccountID,
		"plan":            plan.Name,
		"end_date":        subscription.EndDate,
	})
	return &subscription, nil
}

// Cancel transitions an active subscription to cancelled and tears
// down the user's pinned post in the same transaction. The guarded
// update keeps a concurrent cancel or sweep from firing the history
// event twice.
func Cancel(conn *gorm.DB, subscription *models.Subscription) error {
	err := conn.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Subscription{}).
			Where("id = ? AND status = ?", subscription.ID, models.ActiveSubscription).
			Update("status", models.CancelledSubscription)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return &InvalidStateError{Message: "subscription is not active"}
		}
		subscription.Status = models.CancelledSubscription

		planName := planNameFor(tx, subscription)
		if err := appendHistory(tx, subscription, planName, models.SubscriptionCancelled,
			"Subscription cancelled by user", nil); err != nil {
			return err
		}

		return removePin(tx, subscription, planName)
	})
	if err != nil {
		return err
	}

	events.Publish(events.SubscriptionCancelled, map[string]any{
		"subscription_id": subscription.SubscriptionID,
	})
	return nil
}

type ExpiryFailure struct {
	SubscriptionID string
	Reason         string
}

type ExpiryResult struct {
	ExpiredSubscriptions int
	PinnedPostsRemoved   int
	Failed               []ExpiryFailure
}

// ExpireDue sweeps subscriptions whose end date passed. Each row is
// resolved in its own transaction; one bad row is recorded in the
// result and the sweep moves on. Running two sweeps concurrently is
// safe: the status-guarded update makes each row expire exactly once.
func ExpireDue(conn *gorm.DB, now time.Time) (ExpiryResult, error) {
	result := ExpiryResult{}

	var due []models.Subscription
	err := conn.Where("status = ? AND end_date < ?", models.ActiveSubscription, now).Find(&due).Error
	if err != nil {
		return result, err
	}

	for i := range due {
		subscription := &due[i]
		pinRemoved := false

		err := conn.Transaction(func(tx *gorm.DB) error {
			guard := tx.Model(&models.Subscription{}).
				Where("id = ? AND status = ?", subscription.ID, models.ActiveSubscription).
				Update("status", models.ExpiredSubscription)
			if guard.Error != nil {
				return guard.Error
			}
			if guard.RowsAffected == 0 {
				// Another sweep or a user cancel got here first.
				return nil
			}
			subscription.Status = models.ExpiredSubscription

			planName := planNameFor(tx, subscription)
			if err := appendHistory(tx, subscription, planName, models.SubscriptionExpired,
				"Subscription expired automatically", nil); err != nil {
				return err
			}

			removed, err := removePinCounted(tx, subscription, planName)
			if err != nil {
				return err
			}
			pinRemoved = removed
			return nil
		})
		if err != nil {
			commons.Logger.Errorf("Failed to expire subscription %s: %v", subscription.SubscriptionID, err)
			result.Failed = append(result.Failed, ExpiryFailure{
				SubscriptionID: subscription.SubscriptionID,
				Reason:         err.Error(),
			})
			continue
		}
		if subscription.Status != models.ExpiredSubscription {
			continue
		}

		result.ExpiredSubscriptions++
		if pinRemoved {
			result.PinnedPostsRemoved++
		}
		events.Publish(events.SubscriptionExpired, map[string]any{
			"subscription_id": subscription.SubscriptionID,
		})
	}

	return result, nil
}

func appendHistory(tx *gorm.DB, subscription *models.Subscription, planName string, action models.HistoryAction, description string, metadata map[string]any) error {
	history := models.SubscriptionHistory{
		Action:         action,
		Description:    description,
		PlanName:       planName,
		SubscriptionID: subscription.ID,
		UserID:         subscription.UserID,
	}
	if metadata != nil {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return err
		}
		history.Metadata = raw
	}
	return tx.Create(&history).Error
}

func planNameFor(tx *gorm.DB, subscription *models.Subscription) string {
	if subscription.Plan.Name != "" {
		return subscription.Plan.Name
	}
	var plan models.SubscriptionPlan
	if err := tx.Where("id = ?", subscription.PlanID).First(&plan).Error; err != nil {
		return ""
	}
	subscription.Plan = plan
	return plan.Name
}

func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
