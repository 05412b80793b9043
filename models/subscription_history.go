// SPDX-License-Identifier: GPL-3.0-only

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type HistoryAction string

const (
	SubscriptionCreated   HistoryAction = "created"
	SubscriptionCancelled HistoryAction = "cancelled"
	SubscriptionExpired   HistoryAction = "expired"
	PostPinned            HistoryAction = "post_pinned"
	PostUnpinned          HistoryAction = "post_unpinned"
)

// SubscriptionHistory is an append-only audit log. UserID and PlanName
// are denormalized so an entry stays meaningful even after the
// subscription row it references is soft-deleted or replaced.
type SubscriptionHistory struct {
	ID             uint           `gorm:"primaryKey"`
	EID            uuid.UUID      `gorm:"type:uuid;not null"`
	Action         HistoryAction  `gorm:"size:30;not null;index"`
	Description    string         `gorm:"type:text"`
	Metadata       datatypes.JSON `gorm:"default:null"`
	PlanName       string         `gorm:"size:255"`
	CreatedAt      time.Time
	SubscriptionID uint `gorm:"not null;index"`
	UserID         uint `gorm:"not null;index"`
}

func (history *SubscriptionHistory) BeforeCreate(tx *gorm.DB) (err error) {
	history.EID = uuid.New()
	return
}

func init() {
	AllModels = append(AllModels, &SubscriptionHistory{})
}
