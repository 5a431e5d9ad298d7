package repositories

import (
	"errors"
	"fmt"

	"github.com/driftlinehq/driftline/backend/internal/models"
	"gorm.io/gorm"
)

// ReadFilter narrows a notification listing by read state.
type ReadFilter string

const (
	FilterAll    ReadFilter = "all"
	FilterRead   ReadFilter = "read"
	FilterUnread ReadFilter = "unread"
)

// NotificationRepository defines the interface for notification operations.
// Creation is always synchronous with the triggering write; realtime delivery
// happens elsewhere and never feeds back into this layer.
type NotificationRepository interface {
	CreateNotification(notification *models.Notification) error
	ListByRecipient(recipientID uint, page, limit int, filter ReadFilter) ([]models.Notification, error)
	GetUnreadCount(recipientID uint) (int64, error)
	MarkAsRead(notificationID, recipientID uint) (*models.Notification, error)
	MarkAllAsRead(recipientID uint) (int64, error)
}

type postgresNotificationRepository struct {
	db *gorm.DB
}

// NewPostgresNotificationRepository creates a new NotificationRepository backed by PostgreSQL
func NewPostgresNotificationRepository(db *gorm.DB) NotificationRepository {
	return &postgresNotificationRepository{db: db}
}

func (r *postgresNotificationRepository) CreateNotification(notification *models.Notification) error {
	if notification.Action == "" {
		return fmt.Errorf("action is blank: %w", ErrValidation)
	}
	if notification.RecipientID == 0 {
		return fmt.Errorf("recipient is missing: %w", ErrValidation)
	}
	if notification.ActorID == 0 {
		return fmt.Errorf("actor is missing: %w", ErrValidation)
	}
	return r.db.Create(notification).Error
}

func (r *postgresNotificationRepository) ListByRecipient(recipientID uint, page, limit int, filter ReadFilter) ([]models.Notification, error) {
	var notifications []models.Notification

	q := r.db.Where("recipient_id = ?", recipientID)
	switch filter {
	case FilterRead:
		q = q.Where("read = ?", true)
	case FilterUnread:
		q = q.Where("read = ?", false)
	}

	offset := (page - 1) * limit
	err := q.Order("created_at DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&notifications).Error
	return notifications, err
}

func (r *postgresNotificationRepository) GetUnreadCount(recipientID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Notification{}).
		Where("recipient_id = ? AND read = ?", recipientID, false).
		Count(&count).Error
	return count, err
}

// MarkAsRead flips the read flag on a single notification. The lookup is
// scoped to the recipient so a caller can never mutate another user's row;
// a foreign id reports ErrNotFound, not a permission error. Re-reading an
// already-read notification is a no-op success.
func (r *postgresNotificationRepository) MarkAsRead(notificationID, recipientID uint) (*models.Notification, error) {
	var notification models.Notification
	err := r.db.Where("id = ? AND recipient_id = ?", notificationID, recipientID).First(&notification).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("notification %d: %w", notificationID, ErrNotFound)
		}
		return nil, err
	}

	if !notification.Read {
		if err := r.db.Model(&notification).Update("read", true).Error; err != nil {
			return nil, err
		}
		notification.Read = true
	}
	return &notification, nil
}

func (r *postgresNotificationRepository) MarkAllAsRead(recipientID uint) (int64, error) {
	res := r.db.Model(&models.Notification{}).
		Where("recipient_id = ? AND read = ?", recipientID, false).
		Update("read", true)
	return res.RowsAffected, res.Error
}
