package repositories

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"forum/internal/apperrors"
	"forum/internal/models"

	"github.com/google/uuid"
)

// MockCommentRepository is an in-memory implementation of CommentRepository.
type MockCommentRepository struct {
	comments map[string]models.Comment
	mu       sync.RWMutex
}

// NewMockCommentRepository creates a new instance of MockCommentRepository.
func NewMockCommentRepository() *MockCommentRepository {
	return &MockCommentRepository{
		comments: make(map[string]models.Comment),
	}
}

// GetAll returns all comments.
func (r *MockCommentRepository) GetAll() ([]models.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	commentList := make([]models.Comment, 0, len(r.comments))
	for _, c := range r.comments {
		commentList = append(commentList, c)
	}
	return commentList, nil
}

// GetByPostID returns a post's comments, oldest first.
func (r *MockCommentRepository) GetByPostID(postID string) ([]models.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var commentList []models.Comment
	for _, c := range r.comments {
		if c.PostID == postID {
			commentList = append(commentList, c)
		}
	}
	sort.Slice(commentList, func(i, j int) bool {
		return commentList[i].CreatedAt.Before(commentList[j].CreatedAt)
	})
	return commentList, nil
}

// GetByID returns a comment by its ID.
func (r *MockCommentRepository) GetByID(id string) (*models.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	comment, ok := r.comments[id]
	if !ok {
		return nil, fmt.Errorf("comment with ID %s: %w", id, apperrors.ErrNotFound)
	}
	return &comment, nil
}

// Create adds a new comment.
func (r *MockCommentRepository) Create(comment *models.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if comment.ID == "" {
		comment.ID = uuid.New().String()
	}
	now := time.Now()
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = now
		comment.UpdatedAt = now
	}
	r.comments[comment.ID] = *comment
	return nil
}

// Update modifies an existing comment.
func (r *MockCommentRepository) Update(comment *models.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.comments[comment.ID]; !ok {
		return fmt.Errorf("comment with ID %s not found for update: %w", comment.ID, apperrors.ErrNotFound)
	}
	comment.UpdatedAt = time.Now()
	r.comments[comment.ID] = *comment
	return nil
}

// Delete removes a comment by its ID.
func (r *MockCommentRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.comments[id]; !ok {
		return fmt.Errorf("comment with ID %s not found for deletion: %w", id, apperrors.ErrNotFound)
	}
	delete(r.comments, id)
	return nil
}
