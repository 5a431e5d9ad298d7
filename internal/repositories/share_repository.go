package repositories

import (
	"github.com/driftlinehq/driftline/backend/internal/models"
	"gorm.io/gorm"
)

// ShareRepository defines the interface for share data operations
type ShareRepository interface {
	CreateShare(share *models.Share) error
	HasUserShared(userID uint, micropostID string) (bool, error)
	CountByMicropost(micropostID string) (int64, error)
}

type postgresShareRepository struct {
	db *gorm.DB
}

// NewPostgresShareRepository creates a new ShareRepository backed by PostgreSQL
func NewPostgresShareRepository(db *gorm.DB) ShareRepository {
	return &postgresShareRepository{db: db}
}

func (r *postgresShareRepository) CreateShare(share *models.Share) error {
	return r.db.Create(share).Error
}

func (r *postgresShareRepository) HasUserShared(userID uint, micropostID string) (bool, error) {
	var count int64
	if err := r.db.Model(&models.Share{}).Where("user_id = ? AND micropost_id = ?", userID, micropostID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *postgresShareRepository) CountByMicropost(micropostID string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Share{}).Where("micropost_id = ?", micropostID).Count(&count).Error
	return count, err
}
