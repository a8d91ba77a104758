package repositories

import (
	"fmt"
	"time"

	"forum/internal/apperrors"
	"forum/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMCommentRepository is a GORM implementation of CommentRepository.
type GORMCommentRepository struct {
	db *gorm.DB
}

// NewGORMCommentRepository creates a new instance of GORMCommentRepository.
func NewGORMCommentRepository(db *gorm.DB) *GORMCommentRepository {
	return &GORMCommentRepository{
		db: db,
	}
}

// GetAll retrieves all comments. The feed aggregator folds comment
// counts out of this set.
func (r *GORMCommentRepository) GetAll() ([]models.Comment, error) {
	var comments []models.Comment
	if err := r.db.Find(&comments).Error; err != nil {
		return nil, fmt.Errorf("failed to get all comments: %w", err)
	}
	return comments, nil
}

// GetByPostID retrieves a post's comments, oldest first.
func (r *GORMCommentRepository) GetByPostID(postID string) ([]models.Comment, error) {
	var comments []models.Comment
	if err := r.db.Where("post_id = ?", postID).Order("created_at ASC").Find(&comments).Error; err != nil {
		return nil, fmt.Errorf("failed to get comments for post %s: %w", postID, err)
	}
	return comments, nil
}

// GetByID retrieves a single comment by its ID.
func (r *GORMCommentRepository) GetByID(id string) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.First(&comment, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("comment with ID %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get comment by ID %s: %w", id, err)
	}
	return &comment, nil
}

// Create creates a new comment in the database.
func (r *GORMCommentRepository) Create(comment *models.Comment) error {
	if comment.ID == "" {
		comment.ID = uuid.New().String()
	}
	now := time.Now()
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = now
		comment.UpdatedAt = now
	}
	if err := r.db.Create(comment).Error; err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}
	return nil
}

// Update saves the full comment record.
func (r *GORMCommentRepository) Update(comment *models.Comment) error {
	comment.UpdatedAt = time.Now()
	if err := r.db.Save(comment).Error; err != nil {
		return fmt.Errorf("failed to update comment %s: %w", comment.ID, err)
	}
	return nil
}

// Delete removes a comment by its ID.
func (r *GORMCommentRepository) Delete(id string) error {
	result := r.db.Delete(&models.Comment{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete comment %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("comment with ID %s not found for deletion: %w", id, apperrors.ErrNotFound)
	}
	return nil
}
