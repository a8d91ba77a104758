package repositories

import (
	"fmt"
	"sync"
	"time"

	"forum/internal/apperrors"
	"forum/internal/models"

	"github.com/google/uuid"
)

// MockLikeRepository is an in-memory implementation of LikeRepository.
type MockLikeRepository struct {
	relations map[string]models.LikeRelation
	mu        sync.RWMutex
}

// NewMockLikeRepository creates a new instance of MockLikeRepository.
func NewMockLikeRepository() *MockLikeRepository {
	return &MockLikeRepository{
		relations: make(map[string]models.LikeRelation),
	}
}

// GetByTuple returns the relation for a (user, targetType, targetID)
// tuple, or apperrors.ErrNotFound when the user has not liked the target.
func (r *MockLikeRepository) GetByTuple(userID, targetType, targetID string) (*models.LikeRelation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rel := range r.relations {
		if rel.UserID == userID && rel.TargetType == targetType && rel.TargetID == targetID {
			relation := rel
			return &relation, nil
		}
	}
	return nil, fmt.Errorf("like by %s on %s %s: %w", userID, targetType, targetID, apperrors.ErrNotFound)
}

// GetByTarget returns all relations for one target.
func (r *MockLikeRepository) GetByTarget(targetType, targetID string) ([]models.LikeRelation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var relationList []models.LikeRelation
	for _, rel := range r.relations {
		if rel.TargetType == targetType && rel.TargetID == targetID {
			relationList = append(relationList, rel)
		}
	}
	return relationList, nil
}

// GetByType returns all relations of one target type.
func (r *MockLikeRepository) GetByType(targetType string) ([]models.LikeRelation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var relationList []models.LikeRelation
	for _, rel := range r.relations {
		if rel.TargetType == targetType {
			relationList = append(relationList, rel)
		}
	}
	return relationList, nil
}

// GetByUserAndType returns all of a user's relations of one target type.
func (r *MockLikeRepository) GetByUserAndType(userID, targetType string) ([]models.LikeRelation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var relationList []models.LikeRelation
	for _, rel := range r.relations {
		if rel.UserID == userID && rel.TargetType == targetType {
			relationList = append(relationList, rel)
		}
	}
	return relationList, nil
}

// Create adds a new like relation.
func (r *MockLikeRepository) Create(relation *models.LikeRelation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if relation.ID == "" {
		relation.ID = uuid.New().String()
	}
	if relation.CreatedAt.IsZero() {
		relation.CreatedAt = time.Now()
	}
	r.relations[relation.ID] = *relation
	return nil
}

// Delete removes a like relation by its ID.
func (r *MockLikeRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.relations[id]; !ok {
		return fmt.Errorf("like relation %s not found for deletion: %w", id, apperrors.ErrNotFound)
	}
	delete(r.relations, id)
	return nil
}

// DeleteByTarget removes all relations for one target.
func (r *MockLikeRepository) DeleteByTarget(targetType, targetID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, rel := range r.relations {
		if rel.TargetType == targetType && rel.TargetID == targetID {
			delete(r.relations, id)
		}
	}
	return nil
}
