// SPDX-License-Identifier: GPL-3.0-only

package models

import (
	"time"

	"newsdesk-server/crypto"

	"gorm.io/gorm"
)

type PostStatus string

const (
	DraftPost     PostStatus = "draft"
	PublishedPost PostStatus = "published"
)

type Post struct {
	ID         uint       `gorm:"primaryKey"`
	PostID     string     `gorm:"size:64;uniqueIndex"`
	Title      string     `gorm:"size:255;not null"`
	Slug       string     `gorm:"size:280;not null;uniqueIndex"`
	Content    string     `gorm:"type:text;not null"`
	Status     PostStatus `gorm:"size:20;not null;default:'draft';index"`
	ViewsCount uint       `gorm:"not null;default:0"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  gorm.DeletedAt `gorm:"index"`
	AuthorID   uint           `gorm:"index"`
	Author     User           `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	CategoryID *uint
	Category   *Category `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
}

func (post *Post) BeforeCreate(tx *gorm.DB) (err error) {
	if post.PostID == "" {
		post.PostID, err = crypto.GenerateRandomString("post_", 16, "hex")
		if err != nil {
			return err
		}
	}
	return
}

func init() {
	AllModels = append(AllModels, &Post{})
}
