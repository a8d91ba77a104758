package repositories

import "forum/internal/models"

// PostRepository defines the interface for post data access.
// GetAll returns posts newest-first; the feed pipeline relies on that
// fetch order for its tie-breaking.
type PostRepository interface {
	GetAll() ([]models.Post, error)
	GetByID(id string) (*models.Post, error)
	Create(post *models.Post) error
	Update(post *models.Post) error
	Delete(id string) error
}
