package repositories

import "forum/internal/models"

// LikeRepository defines the interface for like relation data access.
// Lookups are keyed on the (userID, targetType, targetID) tuple; counts
// are always derived from the returned relation sets, never stored.
type LikeRepository interface {
	GetByTuple(userID, targetType, targetID string) (*models.LikeRelation, error)
	GetByTarget(targetType, targetID string) ([]models.LikeRelation, error)
	GetByType(targetType string) ([]models.LikeRelation, error)
	GetByUserAndType(userID, targetType string) ([]models.LikeRelation, error)
	Create(relation *models.LikeRelation) error
	Delete(id string) error
	DeleteByTarget(targetType, targetID string) error
}
