package repositories

import (
	"fmt"
	"time"

	"forum/internal/apperrors"
	"forum/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMLikeRepository is a GORM implementation of LikeRepository.
type GORMLikeRepository struct {
	db *gorm.DB
}

// NewGORMLikeRepository creates a new instance of GORMLikeRepository.
func NewGORMLikeRepository(db *gorm.DB) *GORMLikeRepository {
	return &GORMLikeRepository{
		db: db,
	}
}

// GetByTuple retrieves the relation for a (user, targetType, targetID)
// tuple, or apperrors.ErrNotFound when the user has not liked the target.
func (r *GORMLikeRepository) GetByTuple(userID, targetType, targetID string) (*models.LikeRelation, error) {
	var relation models.LikeRelation
	err := r.db.First(&relation, "user_id = ? AND target_type = ? AND target_id = ?", userID, targetType, targetID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("like by %s on %s %s: %w", userID, targetType, targetID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get like relation: %w", err)
	}
	return &relation, nil
}

// GetByTarget retrieves all relations for one target.
func (r *GORMLikeRepository) GetByTarget(targetType, targetID string) ([]models.LikeRelation, error) {
	var relations []models.LikeRelation
	if err := r.db.Where("target_type = ? AND target_id = ?", targetType, targetID).Find(&relations).Error; err != nil {
		return nil, fmt.Errorf("failed to get likes for %s %s: %w", targetType, targetID, err)
	}
	return relations, nil
}

// GetByType retrieves all relations of one target type.
func (r *GORMLikeRepository) GetByType(targetType string) ([]models.LikeRelation, error) {
	var relations []models.LikeRelation
	if err := r.db.Where("target_type = ?", targetType).Find(&relations).Error; err != nil {
		return nil, fmt.Errorf("failed to get likes of type %s: %w", targetType, err)
	}
	return relations, nil
}

// GetByUserAndType retrieves all of a user's relations of one target type.
func (r *GORMLikeRepository) GetByUserAndType(userID, targetType string) ([]models.LikeRelation, error) {
	var relations []models.LikeRelation
	if err := r.db.Where("user_id = ? AND target_type = ?", userID, targetType).Find(&relations).Error; err != nil {
		return nil, fmt.Errorf("failed to get likes by user %s: %w", userID, err)
	}
	return relations, nil
}

// Create creates a new like relation in the database.
func (r *GORMLikeRepository) Create(relation *models.LikeRelation) error {
	if relation.ID == "" {
		relation.ID = uuid.New().String()
	}
	if relation.CreatedAt.IsZero() {
		relation.CreatedAt = time.Now()
	}
	if err := r.db.Create(relation).Error; err != nil {
		return fmt.Errorf("failed to create like relation: %w", err)
	}
	return nil
}

// Delete removes a like relation by its ID.
func (r *GORMLikeRepository) Delete(id string) error {
	result := r.db.Delete(&models.LikeRelation{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete like relation %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("like relation %s not found for deletion: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

// DeleteByTarget removes all relations for one target. Used when the
// target itself is deleted.
func (r *GORMLikeRepository) DeleteByTarget(targetType, targetID string) error {
	if err := r.db.Where("target_type = ? AND target_id = ?", targetType, targetID).Delete(&models.LikeRelation{}).Error; err != nil {
		return fmt.Errorf("failed to delete likes for %s %s: %w", targetType, targetID, err)
	}
	return nil
}
