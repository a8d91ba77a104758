package provider

import "fmt"

// Federated provider IDs accepted by SignInWithProvider.
const (
	GitHub = "github.com"
	Google = "google.com"
)

// Identity is what a provider reports about a signed-in principal.
type Identity struct {
	UID         string
	Email       string
	DisplayName string
	ProviderID  string
}

// Error is a provider-specific failure. Code uses the provider's own
// code strings (e.g. "auth/user-not-found"); the identity service maps
// them into the application error taxonomy.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// AuthProvider is the external authentication collaborator. All
// operations are request/response; session change notification is the
// identity service's own concern, not the provider's.
type AuthProvider interface {
	SignUp(email, password string) (*Identity, error)
	SignIn(email, password string) (*Identity, error)
	SignInWithProvider(providerID string) (*Identity, error)
	SignOut() error
	SendEmailVerification(email string) error
	ConfirmEmailVerification(code string) (email string, err error)
	SendPasswordReset(email string) error
	ConfirmPasswordReset(code, newPassword string) (email string, err error)
}
