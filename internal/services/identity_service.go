package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
	"unicode"

	"forum/internal/apperrors"
	"forum/internal/models"
	"forum/internal/provider"
	"forum/internal/repositories"

	"github.com/dgrijalva/jwt-go"
)

// SessionState is the auth session's position in its state machine.
type SessionState int

const (
	StateAnonymous SessionState = iota
	StatePendingOnboarding
	StateAuthenticated
)

func (s SessionState) String() string {
	switch s {
	case StatePendingOnboarding:
		return "pendingOnboarding"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// IdentityService owns the username registry and the auth session state
// machine. Every transition broadcasts the current principal (nil when
// anonymous) to all subscribers.
type IdentityService struct {
	accountRepo repositories.AccountRepository
	provider    provider.AuthProvider
	mqClient    EventPublisher
	jwtSecret   []byte
	tokenDurat  time.Duration

	mu          sync.RWMutex
	state       SessionState
	principal   *models.Account
	subscribers []func(*models.Account)
}

// NewIdentityService creates a new IdentityService.
func NewIdentityService(accountRepo repositories.AccountRepository, authProvider provider.AuthProvider, mqClient EventPublisher, jwtSecret string) *IdentityService {
	return &IdentityService{
		accountRepo: accountRepo,
		provider:    authProvider,
		mqClient:    mqClient,
		jwtSecret:   []byte(jwtSecret),
		tokenDurat:  24 * time.Hour,
		state:       StateAnonymous,
	}
}

// Subscribe registers fn to be called with the current principal on
// every session transition.
func (s *IdentityService) Subscribe(fn func(*models.Account)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// State returns the current session state.
func (s *IdentityService) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Principal returns the current principal, or nil when anonymous.
func (s *IdentityService) Principal() *models.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.principal == nil {
		return nil
	}
	account := *s.principal
	return &account
}

// transition moves the session and notifies every subscriber. Callers
// must not hold s.mu.
func (s *IdentityService) transition(state SessionState, principal *models.Account) {
	s.mu.Lock()
	s.state = state
	s.principal = principal
	subscribers := make([]func(*models.Account), len(s.subscribers))
	copy(subscribers, s.subscribers)
	s.mu.Unlock()

	for _, fn := range subscribers {
		var copyForSub *models.Account
		if principal != nil {
			a := *principal
			copyForSub = &a
		}
		fn(copyForSub)
	}
}

// IsUsernameTaken reports whether candidate is already held by any
// account. Advisory only: the answer can go stale before a write.
func (s *IdentityService) IsUsernameTaken(candidate string) bool {
	_, err := s.accountRepo.GetByUsername(strings.TrimSpace(candidate))
	return err == nil
}

// LookupUsernameByEmail returns the username recorded for email, if any.
func (s *IdentityService) LookupUsernameByEmail(email string) (string, bool) {
	account, err := s.accountRepo.GetByEmail(email)
	if err != nil || account.Username == "" {
		return "", false
	}
	return account.Username, true
}

// ReserveUsername assigns candidate to ownerID's account after checking
// no other account holds it. The store offers no unique constraint, so
// two concurrent reservations can both pass the check; every write path
// re-runs this instead of trusting an earlier answer, and the residual
// race is accepted.
func (s *IdentityService) ReserveUsername(candidate, ownerID string) error {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return fmt.Errorf("username is required: %w", apperrors.ErrValidation)
	}

	existing, err := s.accountRepo.GetByUsername(candidate)
	if err == nil && existing.ID != ownerID {
		return fmt.Errorf("username %q: %w", candidate, apperrors.ErrUsernameTaken)
	}
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("failed to check username %q: %w", candidate, err)
	}

	owner, err := s.accountRepo.GetByID(ownerID)
	if err != nil {
		return fmt.Errorf("failed to load account %s: %w", ownerID, err)
	}
	owner.Username = candidate
	if err := s.accountRepo.Update(owner); err != nil {
		return fmt.Errorf("failed to reserve username %q: %w", candidate, err)
	}
	return nil
}

// validatePassword enforces the signup password policy.
func validatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters: %w", apperrors.ErrValidation)
	}
	for _, r := range password {
		if unicode.IsDigit(r) {
			return nil
		}
	}
	return fmt.Errorf("password must contain a digit: %w", apperrors.ErrValidation)
}

// SignUp registers an email/password account. The username is reserved
// in the same step as account creation, so this path never lands in
// pendingOnboarding. The session stays anonymous until the email is
// verified and the user signs in.
func (s *IdentityService) SignUp(email, password, username string) (*models.Account, error) {
	email = strings.TrimSpace(email)
	username = strings.TrimSpace(username)
	if email == "" {
		return nil, fmt.Errorf("email is required: %w", apperrors.ErrValidation)
	}
	if username == "" {
		return nil, fmt.Errorf("username is required: %w", apperrors.ErrValidation)
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	// Check-then-write; re-checked below against the freshly created
	// account like every other username write path.
	if s.IsUsernameTaken(username) {
		return nil, fmt.Errorf("username %q: %w", username, apperrors.ErrUsernameTaken)
	}

	if _, err := s.provider.SignUp(email, password); err != nil {
		return nil, mapProviderError(err)
	}

	account := &models.Account{
		Email:         email,
		Username:      username,
		EmailVerified: false,
	}
	if err := s.accountRepo.Create(account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	if err := s.provider.SendEmailVerification(email); err != nil {
		log.Printf("Warning: failed to send verification email to %s: %v", email, err)
	}
	s.publish(EventUserRegistered, map[string]interface{}{
		"accountID": account.ID,
		"username":  account.Username,
	})

	return account, nil
}

// SignIn authenticates with email/password. Accounts with an unverified
// email are signed out of the provider again and reported with
// ErrEmailNotVerified, distinct from bad credentials.
func (s *IdentityService) SignIn(email, password string) (*models.Account, error) {
	identity, err := s.provider.SignIn(email, password)
	if err != nil {
		return nil, mapProviderError(err)
	}

	account, err := s.accountRepo.GetByEmail(identity.Email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("no account for %s: %w", email, apperrors.ErrInvalidCredentials)
		}
		return nil, fmt.Errorf("failed to load account for %s: %w", email, err)
	}

	if !account.EmailVerified {
		if signOutErr := s.provider.SignOut(); signOutErr != nil {
			log.Printf("Warning: provider sign-out after unverified login failed: %v", signOutErr)
		}
		s.transition(StateAnonymous, nil)
		return nil, fmt.Errorf("account %s: %w", email, apperrors.ErrEmailNotVerified)
	}

	s.transition(StateAuthenticated, account)
	return account, nil
}

// SignInWithProvider authenticates through a federated provider
// (github.com or google.com). A first login creates the account with a
// verified email and no username; accounts without a username land in
// pendingOnboarding instead of authenticated.
func (s *IdentityService) SignInWithProvider(providerID string) (*models.Account, error) {
	if providerID != provider.GitHub && providerID != provider.Google {
		return nil, fmt.Errorf("unsupported provider %q: %w", providerID, apperrors.ErrValidation)
	}

	identity, err := s.provider.SignInWithProvider(providerID)
	if err != nil {
		return nil, mapProviderError(err)
	}

	account, err := s.accountRepo.GetByEmail(identity.Email)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("failed to load account for %s: %w", identity.Email, err)
		}
		account = &models.Account{
			Email:         identity.Email,
			EmailVerified: true,
		}
		if createErr := s.accountRepo.Create(account); createErr != nil {
			return nil, fmt.Errorf("failed to create account: %w", createErr)
		}
	}

	if account.Username == "" {
		s.transition(StatePendingOnboarding, account)
	} else {
		s.transition(StateAuthenticated, account)
	}
	return account, nil
}

// CompleteOnboarding reserves the username chosen after a social
// sign-in and promotes the session to authenticated.
func (s *IdentityService) CompleteOnboarding(username string) (*models.Account, error) {
	s.mu.RLock()
	state := s.state
	principal := s.principal
	s.mu.RUnlock()

	if state == StateAnonymous || principal == nil {
		return nil, fmt.Errorf("onboarding requires a signed-in account: %w", apperrors.ErrNotAuthenticated)
	}
	if state != StatePendingOnboarding {
		return nil, fmt.Errorf("no onboarding pending: %w", apperrors.ErrValidation)
	}

	if err := s.ReserveUsername(username, principal.ID); err != nil {
		return nil, err
	}

	account, err := s.accountRepo.GetByID(principal.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload account %s: %w", principal.ID, err)
	}
	s.transition(StateAuthenticated, account)
	return account, nil
}

// SignOut returns the session to anonymous from any state.
func (s *IdentityService) SignOut() error {
	if err := s.provider.SignOut(); err != nil {
		log.Printf("Warning: provider sign-out failed: %v", err)
	}
	s.transition(StateAnonymous, nil)
	return nil
}

// RequestPasswordReset asks the provider to send a reset email.
func (s *IdentityService) RequestPasswordReset(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email is required: %w", apperrors.ErrValidation)
	}
	if err := s.provider.SendPasswordReset(email); err != nil {
		return mapProviderError(err)
	}
	return nil
}

// ConfirmPasswordReset redeems a reset code and sets a new password.
func (s *IdentityService) ConfirmPasswordReset(code, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	if _, err := s.provider.ConfirmPasswordReset(code, newPassword); err != nil {
		return mapProviderError(err)
	}
	return nil
}

// ConfirmEmailVerification redeems a verification code and marks the
// account's email verified.
func (s *IdentityService) ConfirmEmailVerification(code string) error {
	email, err := s.provider.ConfirmEmailVerification(code)
	if err != nil {
		return mapProviderError(err)
	}

	account, err := s.accountRepo.GetByEmail(email)
	if err != nil {
		return fmt.Errorf("failed to load account for %s: %w", email, err)
	}
	account.EmailVerified = true
	if err := s.accountRepo.Update(account); err != nil {
		return fmt.Errorf("failed to mark %s verified: %w", email, err)
	}
	return nil
}

// IssueToken signs a JWT for account, used by the HTTP adapter to carry
// the acting principal across requests.
func (s *IdentityService) IssueToken(account *models.Account) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  account.ID,
		"username": account.Username,
		"exp":      time.Now().Add(s.tokenDurat).Unix(),
		"iat":      time.Now().Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates a JWT, returning the claims if valid.
func (s *IdentityService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}

func (s *IdentityService) publish(routingKey string, payload map[string]interface{}) {
	if s.mqClient == nil {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to marshal %s event: %v", routingKey, err)
		return
	}
	if err := s.mqClient.Publish("forum", routingKey, body); err != nil {
		log.Printf("Warning: failed to publish %s event: %v", routingKey, err)
	}
}

// mapProviderError translates provider error codes into the application
// error taxonomy. Non-provider errors pass through unchanged.
func mapProviderError(err error) error {
	if err == nil {
		return nil
	}
	var perr *provider.Error
	if errors.As(err, &perr) {
		return apperrors.MapProviderError(perr.Code, perr.Message)
	}
	return err
}
