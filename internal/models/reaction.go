package models

import "gorm.io/gorm"

// Reaction represents a typed reaction (like, love, laugh, ...) on a micropost.
// A user has at most one reaction per micropost; changing the kind updates the
// row in place.
type Reaction struct {
	gorm.Model
	MicropostID string `json:"micropost_id" gorm:"index;uniqueIndex:idx_user_micropost"` // MongoDB ObjectID as string
	UserID      uint   `json:"user_id" gorm:"index;uniqueIndex:idx_user_micropost"`
	Kind        string `json:"kind" gorm:"size:20"`
}

// CreateReactionRequest defines the request body for reacting to a micropost
type CreateReactionRequest struct {
	Kind string `json:"kind" validate:"required,oneof=like love laugh wow sad angry"`
}
