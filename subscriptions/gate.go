// SPDX-License-Identifier: GPL-3.0-only

package subscriptions

import (
	"errors"
	"time"

	"newsdesk-server/models"

	"gorm.io/gorm"
)

// PinReasons itemizes every check behind a pin decision so callers can
// tell "no subscription" apart from "subscription expired" or "not
// your post". All fields are populated even when one check fails.
type PinReasons struct {
	PostExists         bool `json:"post_exists"`
	IsOwnPost          bool `json:"is_own_post"`
	HasSubscription    bool `json:"has_subscription"`
	SubscriptionActive bool `json:"subscription_active"`
}

type PinDecision struct {
	Allowed bool       `json:"can_pin"`
	Reasons PinReasons `json:"checks"`
}

// CanPin decides whether a user may pin the post identified by its
// public post ID. Pure read, no mutation; used by the decision
// endpoint and re-run by Pin inside its write transaction.
func CanPin(conn *gorm.DB, user *models.User, postID string, now time.Time) (PinDecision, error) {
	decision := PinDecision{}

	var post models.Post
	err := conn.Where("post_id = ? AND status = ?", postID, models.PublishedPost).First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decision, nil
		}
		return decision, err
	}
	decision.Reasons.PostExists = true
	decision.Reasons.IsOwnPost = post.AuthorID == user.ID

	var subscription models.Subscription
	err = conn.Preload("Plan").Where("user_id = ?", user.ID).First(&subscription).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decision, nil
		}
		return decision, err
	}
	decision.Reasons.HasSubscription = true
	decision.Reasons.SubscriptionActive = subscription.IsActive(now)

	decision.Allowed = decision.Reasons.PostExists &&
		decision.Reasons.IsOwnPost &&
		decision.Reasons.HasSubscription &&
		decision.Reasons.SubscriptionActive &&
		subscription.Plan.PinPosts

	return decision, nil
}
