package models

import "gorm.io/gorm"

// Comment represents a comment on a micropost
type Comment struct {
	gorm.Model
	MicropostID string `json:"micropost_id" gorm:"index"` // MongoDB ObjectID as string
	UserID      uint   `json:"user_id" gorm:"index"`
	Content     string `json:"content"`
}

// CreateCommentRequest defines the request body for creating a new comment
type CreateCommentRequest struct {
	Content string `json:"content" validate:"required,min=1,max=500"`
}
