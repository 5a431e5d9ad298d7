package repositories

import (
	"errors"
	"fmt"

	"github.com/driftlinehq/driftline/backend/internal/models"
	"gorm.io/gorm"
)

// ReactionRepository defines the interface for reaction data operations
type ReactionRepository interface {
	CreateReaction(reaction *models.Reaction) error
	GetByUserAndMicropost(userID uint, micropostID string) (*models.Reaction, error)
	UpdateReactionKind(id uint, kind string) error
	DeleteReaction(userID uint, micropostID string) error
	CountByMicropost(micropostID string) (int64, error)
}

type postgresReactionRepository struct {
	db *gorm.DB
}

// NewPostgresReactionRepository creates a new ReactionRepository backed by PostgreSQL
func NewPostgresReactionRepository(db *gorm.DB) ReactionRepository {
	return &postgresReactionRepository{db: db}
}

func (r *postgresReactionRepository) CreateReaction(reaction *models.Reaction) error {
	return r.db.Create(reaction).Error
}

func (r *postgresReactionRepository) GetByUserAndMicropost(userID uint, micropostID string) (*models.Reaction, error) {
	var reaction models.Reaction
	err := r.db.Where("user_id = ? AND micropost_id = ?", userID, micropostID).First(&reaction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("reaction: %w", ErrNotFound)
		}
		return nil, err
	}
	return &reaction, nil
}

func (r *postgresReactionRepository) UpdateReactionKind(id uint, kind string) error {
	return r.db.Model(&models.Reaction{}).Where("id = ?", id).Update("kind", kind).Error
}

func (r *postgresReactionRepository) DeleteReaction(userID uint, micropostID string) error {
	res := r.db.Where("user_id = ? AND micropost_id = ?", userID, micropostID).Delete(&models.Reaction{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("reaction: %w", ErrNotFound)
	}
	return nil
}

func (r *postgresReactionRepository) CountByMicropost(micropostID string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Reaction{}).Where("micropost_id = ?", micropostID).Count(&count).Error
	return count, err
}
