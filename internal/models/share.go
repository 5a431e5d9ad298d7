package models

import "gorm.io/gorm"

// Share represents a repost of someone else's micropost
type Share struct {
	gorm.Model
	MicropostID string `json:"micropost_id" gorm:"index;uniqueIndex:idx_user_share"` // MongoDB ObjectID as string
	UserID      uint   `json:"user_id" gorm:"index;uniqueIndex:idx_user_share"`
	Comment     string `json:"comment,omitempty" gorm:"size:280"`
}

// CreateShareRequest defines the request body for sharing a micropost
type CreateShareRequest struct {
	Comment string `json:"comment,omitempty" validate:"omitempty,max=280"`
}
