package repositories

import "forum/internal/models"

// AccountRepository defines the interface for account data access.
type AccountRepository interface {
	Create(account *models.Account) error
	GetByID(id string) (*models.Account, error)
	GetByEmail(email string) (*models.Account, error)
	GetByUsername(username string) (*models.Account, error)
	Update(account *models.Account) error
}
