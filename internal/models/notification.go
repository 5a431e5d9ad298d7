package models

import "time"

// Notification represents a durable per-recipient notification (PostgreSQL).
// The notifiable columns are a tagged reference to the subject of the action
// (a micropost, comment, reaction, follow or share).
type Notification struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	RecipientID    uint      `json:"recipient_id" gorm:"index"`
	ActorID        uint      `json:"actor_id" gorm:"index"`
	Action         string    `json:"action" gorm:"size:30;index"` // liked, commented, mentioned, followed, unfollowed, share, reacted
	NotifiableType string    `json:"notifiable_type" gorm:"size:20"`
	NotifiableID   string    `json:"notifiable_id"`
	Read           bool      `json:"read" gorm:"default:false;index"`
	CreatedAt      time.Time `json:"created_at" gorm:"index"`
}
