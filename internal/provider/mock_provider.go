package provider

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// MockAuthProvider is an in-memory implementation of AuthProvider. It
// stands in for a hosted identity service: it owns credentials and the
// verification/reset code lifecycle. Federated identities are seeded
// with RegisterFederatedIdentity.
type MockAuthProvider struct {
	credentials map[string]string   // email -> bcrypt hash
	uids        map[string]string   // email -> provider uid
	federated   map[string]Identity // providerID -> next identity it returns
	verifyCodes map[string]string   // code -> email
	resetCodes  map[string]string   // code -> email
	mu          sync.Mutex
}

// NewMockAuthProvider creates a new instance of MockAuthProvider.
func NewMockAuthProvider() *MockAuthProvider {
	return &MockAuthProvider{
		credentials: make(map[string]string),
		uids:        make(map[string]string),
		federated:   make(map[string]Identity),
		verifyCodes: make(map[string]string),
		resetCodes:  make(map[string]string),
	}
}

// RegisterFederatedIdentity seeds the identity a federated sign-in with
// providerID will return.
func (p *MockAuthProvider) RegisterFederatedIdentity(providerID string, identity Identity) {
	p.mu.Lock()
	defer p.mu.Unlock()
	identity.ProviderID = providerID
	p.federated[providerID] = identity
}

// SignUp registers email/password credentials.
func (p *MockAuthProvider) SignUp(email, password string) (*Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !strings.Contains(email, "@") {
		return nil, &Error{Code: "auth/invalid-email", Message: "malformed email address"}
	}
	if _, exists := p.credentials[email]; exists {
		return nil, &Error{Code: "auth/email-already-in-use", Message: "email already registered"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, &Error{Code: "auth/internal-error", Message: err.Error()}
	}
	uid := uuid.New().String()
	p.credentials[email] = string(hash)
	p.uids[email] = uid

	return &Identity{UID: uid, Email: email, ProviderID: "password"}, nil
}

// SignIn checks email/password credentials.
func (p *MockAuthProvider) SignIn(email, password string) (*Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	hash, exists := p.credentials[email]
	if !exists {
		return nil, &Error{Code: "auth/user-not-found", Message: "no user for email"}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, &Error{Code: "auth/wrong-password", Message: "wrong password"}
	}
	return &Identity{UID: p.uids[email], Email: email, ProviderID: "password"}, nil
}

// SignInWithProvider completes a federated sign-in for the seeded
// identity of providerID.
func (p *MockAuthProvider) SignInWithProvider(providerID string) (*Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	identity, ok := p.federated[providerID]
	if !ok {
		return nil, &Error{Code: "auth/popup-closed-by-user", Message: "no identity for provider " + providerID}
	}
	if identity.UID == "" {
		identity.UID = uuid.New().String()
	}
	return &identity, nil
}

// SignOut tears down the provider-side session. Nothing to do in memory.
func (p *MockAuthProvider) SignOut() error {
	return nil
}

// SendEmailVerification issues a verification code for email.
func (p *MockAuthProvider) SendEmailVerification(email string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.verifyCodes["verify-"+email] = email
	return nil
}

// ConfirmEmailVerification redeems a verification code.
func (p *MockAuthProvider) ConfirmEmailVerification(code string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	email, ok := p.verifyCodes[code]
	if !ok {
		return "", &Error{Code: "auth/invalid-action-code", Message: "unknown or used verification code"}
	}
	delete(p.verifyCodes, code)
	return email, nil
}

// SendPasswordReset issues a reset code for email.
func (p *MockAuthProvider) SendPasswordReset(email string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.credentials[email]; !exists {
		return &Error{Code: "auth/user-not-found", Message: "no user for email"}
	}
	p.resetCodes["reset-"+email] = email
	return nil
}

// ConfirmPasswordReset redeems a reset code and replaces the password.
func (p *MockAuthProvider) ConfirmPasswordReset(code, newPassword string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	email, ok := p.resetCodes[code]
	if !ok {
		return "", &Error{Code: "auth/expired-action-code", Message: "unknown or expired reset code"}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", &Error{Code: "auth/internal-error", Message: err.Error()}
	}
	p.credentials[email] = string(hash)
	delete(p.resetCodes, code)
	return email, nil
}
