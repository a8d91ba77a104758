package repositories

import (
	"fmt"
	"sync"
	"time"

	"forum/internal/apperrors"
	"forum/internal/models"

	"github.com/google/uuid"
)

// MockAccountRepository is an in-memory implementation of AccountRepository.
// It stands in for the document store in tests and local development.
type MockAccountRepository struct {
	accounts map[string]models.Account
	mu       sync.RWMutex
}

// NewMockAccountRepository creates a new instance of MockAccountRepository.
func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{
		accounts: make(map[string]models.Account),
	}
}

// Create adds a new account.
func (r *MockAccountRepository) Create(account *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	now := time.Now()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
		account.UpdatedAt = now
	}
	r.accounts[account.ID] = *account
	return nil
}

// GetByID returns an account by its ID.
func (r *MockAccountRepository) GetByID(id string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account with ID %s: %w", id, apperrors.ErrNotFound)
	}
	return &account, nil
}

// GetByEmail returns an account by its email.
func (r *MockAccountRepository) GetByEmail(email string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.accounts {
		if a.Email == email {
			account := a
			return &account, nil
		}
	}
	return nil, fmt.Errorf("account with email %s: %w", email, apperrors.ErrNotFound)
}

// GetByUsername returns an account by its username. Empty usernames
// (accounts still pending onboarding) never match.
func (r *MockAccountRepository) GetByUsername(username string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if username == "" {
		return nil, fmt.Errorf("empty username: %w", apperrors.ErrNotFound)
	}
	for _, a := range r.accounts {
		if a.Username == username {
			account := a
			return &account, nil
		}
	}
	return nil, fmt.Errorf("account with username %s: %w", username, apperrors.ErrNotFound)
}

// Update modifies an existing account.
func (r *MockAccountRepository) Update(account *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[account.ID]; !ok {
		return fmt.Errorf("account with ID %s not found for update: %w", account.ID, apperrors.ErrNotFound)
	}
	account.UpdatedAt = time.Now()
	r.accounts[account.ID] = *account
	return nil
}
