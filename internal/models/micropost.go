package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Micropost represents a short post stored in MongoDB
type Micropost struct {
	ID             primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	AuthorID       uint               `json:"author_id" bson:"author_id"`
	Content        string             `json:"content" bson:"content"`
	Hashtags       []string           `json:"hashtags,omitempty" bson:"hashtags,omitempty"`
	ImageURLs      []string           `json:"image_urls,omitempty" bson:"image_urls,omitempty"`
	ReactionsCount int                `json:"reactions_count" bson:"reactions_count"`
	CommentsCount  int                `json:"comments_count" bson:"comments_count"`
	SharesCount    int                `json:"shares_count" bson:"shares_count"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at" bson:"updated_at"`
}

// CreateMicropostRequest defines the request body for creating a new micropost
type CreateMicropostRequest struct {
	Content   string   `json:"content" validate:"required,min=1,max=280"`
	ImageURLs []string `json:"image_urls,omitempty" validate:"omitempty,dive,url"`
}
