// SPDX-License-Identifier: GPL-3.0-only

package models

import (
	"time"
)

// PinnedPost rows are hard-deleted on unpin and on subscription
// teardown; the audit trail lives in SubscriptionHistory, not here.
// The unique index on UserID enforces at most one pin per user.
type PinnedPost struct {
	ID       uint      `gorm:"primaryKey"`
	PinnedAt time.Time `gorm:"not null"`
	UserID   uint      `gorm:"not null;uniqueIndex"`
	User     User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	PostID   uint      `gorm:"not null;index"`
	Post     Post      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func init() {
	AllModels = append(AllModels, &PinnedPost{})
}
