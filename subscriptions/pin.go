// SPDX-License-Identifier: GPL-3.0-only

package subscriptions

import (
	"errors"
	"fmt"
	"time"

	"newsdesk-server/events"
	"newsdesk-server/models"

	"gorm.io/gorm"
)

// Pin features one of the user's own published posts. Authorization is
// re-checked inside the write transaction, so a cancel or expiry that
// lands between a prior CanPin call and this write cannot slip a pin
// past the gate. An existing pin on a different post is replaced, not
// rejected.
func Pin(conn *gorm.DB, user *models.User, postID string, now time.Time) (*models.PinnedPost, error) {
	var pinned models.PinnedPost

	err := conn.Transaction(func(tx *gorm.DB) error {
		var post models.Post
		err := tx.Where("post_id = ? AND status = ?", postID, models.PublishedPost).First(&post).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Message: "post not found or not published"}
			}
			return err
		}

		decision, err := CanPin(tx, user, postID, now)
		if err != nil {
			return err
		}
		if !decision.Allowed {
			return &ForbiddenError{
				Message: "active subscription with pinning required to pin your own posts",
				Reasons: decision.Reasons,
			}
		}

		var subscription models.Subscription
		if err := tx.Preload("Plan").Where("user_id = ?", user.ID).First(&subscription).Error; err != nil {
			return err
		}

		// Replacement policy: drop whatever was pinned before.
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.PinnedPost{}).Error; err != nil {
			return err
		}

		pinned = models.PinnedPost{
			UserID:   user.ID,
			PostID:   post.ID,
			PinnedAt: now,
		}
		if err := tx.Create(&pinned).Error; err != nil {
			return err
		}
		pinned.Post = post

		return appendHistory(tx, &subscription, subscription.Plan.Name, models.PostPinned,
			fmt.Sprintf("Post %q pinned", post.Title), map[string]any{
				"post_id":    post.PostID,
				"post_title": post.Title,
			})
	})
	if err != nil {
		return nil, err
	}

	events.Publish(events.PostPinned, map[string]any{
		"user_id": user.AccountID,
		"post_id": pinned.Post.PostID,
	})
	return &pinned, nil
}

// Unpin removes the user's pinned post. Calling it with nothing pinned
// surfaces a NotFoundError rather than silently succeeding.
func Unpin(conn *gorm.DB, user *models.User) error {
	var postID string

	err := conn.Transaction(func(tx *gorm.DB) error {
		var pinned models.PinnedPost
		err := tx.Preload("Post").Where("user_id = ?", user.ID).First(&pinned).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Message: "no pinned post found"}
			}
			return err
		}
		postID = pinned.Post.PostID

		if err := tx.Delete(&pinned).Error; err != nil {
			return err
		}

		var subscription models.Subscription
		err = tx.Preload("Plan").Where("user_id = ?", user.ID).First(&subscription).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// No subscription left to audit against; the pin
				// itself is already gone.
				return nil
			}
			return err
		}

		return appendHistory(tx, &subscription, subscription.Plan.Name, models.PostUnpinned,
			fmt.Sprintf("Post %q unpinned", pinned.Post.Title), map[string]any{
				"post_id":    pinned.Post.PostID,
				"post_title": pinned.Post.Title,
			})
	})
	if err != nil {
		return err
	}

	events.Publish(events.PostUnpinned, map[string]any{
		"user_id": user.AccountID,
		"post_id": postID,
	})
	return nil
}

// removePin tears down the user's pinned post as part of a lifecycle
// transition. Shared by Cancel and ExpireDue so interactive and swept
// teardown cannot drift apart.
func removePin(tx *gorm.DB, subscription *models.Subscription, planName string) error {
	_, err := removePinCounted(tx, subscription, planName)
	return err
}

func removePinCounted(tx *gorm.DB, subscription *models.Subscription, planName string) (bool, error) {
	var pinned models.PinnedPost
	err := tx.Preload("Post").Where("user_id = ?", subscription.UserID).First(&pinned).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	if err := tx.Delete(&pinned).Error; err != nil {
		return false, err
	}

	err = appendHistory(tx, subscription, planName, models.PostUnpinned,
		fmt.Sprintf("Post %q unpinned", pinned.Post.Title), map[string]any{
			"post_id":    pinned.Post.PostID,
			"post_title": pinned.Post.Title,
		})
	if err != nil {
		return false, err
	}
	return true, nil
}
