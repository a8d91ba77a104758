package handlers

import (
	"fmt"
	"log"

	"forum/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles HTTP requests for authentication and onboarding.
type AuthHandler struct {
	identityService *services.IdentityService
	validate        *validator.Validate
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(identityService *services.IdentityService) *AuthHandler {
	return &AuthHandler{
		identityService: identityService,
		validate:        validator.New(),
	}
}

// RegisterRoutes registers the authentication routes with the Fiber app.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/register", h.HandleRegister)
	authRoutes.Post("/login", h.HandleLogin)
	authRoutes.Post("/social", h.HandleSocialLogin)
	authRoutes.Post("/onboarding", h.HandleOnboarding)
	authRoutes.Post("/logout", h.HandleLogout)
	authRoutes.Post("/reset", h.HandleResetRequest)
	authRoutes.Post("/reset/confirm", h.HandleResetConfirm)
	authRoutes.Post("/verify/confirm", h.HandleVerifyConfirm)
	authRoutes.Get("/username-check", h.HandleUsernameCheck)
}

// RegisterRequest represents the request body for sign-up.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Username string `json:"username" validate:"required"`
}

// HandleRegister handles email/password sign-up. The username is
// assigned together with account creation.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing register request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.validate.Struct(req); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		errorMessages := make(map[string]string)
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  errorMessages,
		})
	}

	account, err := h.identityService.SignUp(req.Email, req.Password, req.Username)
	if err != nil {
		log.Printf("Error registering %s: %v", req.Email, err)
		return failWith(c, "Registration failed", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Account registered, verify your email before logging in",
		"account": account,
	})
}

// LoginRequest represents the request body for email/password login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin handles email/password sign-in and issues a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing login request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.validate.Struct(req); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		errorMessages := make(map[string]string)
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  errorMessages,
		})
	}

	account, err := h.identityService.SignIn(req.Email, req.Password)
	if err != nil {
		log.Printf("Error during login for %s: %v", req.Email, err)
		return failWith(c, "Authentication failed", err)
	}

	token, err := h.identityService.IssueToken(account)
	if err != nil {
		log.Printf("Error issuing token for %s: %v", req.Email, err)
		return failWith(c, "Authentication failed", err)
	}

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   token,
		"account": account,
	})
}

// SocialLoginRequest represents the request body for federated login.
type SocialLoginRequest struct {
	Provider string `json:"provider" validate:"required"`
}

// HandleSocialLogin handles GitHub/Google sign-in. Accounts without a
// username get a pending_onboarding response instead of a token.
func (h *AuthHandler) HandleSocialLogin(c *fiber.Ctx) error {
	var req SocialLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"error":   err.Error(),
		})
	}

	account, err := h.identityService.SignInWithProvider(req.Provider)
	if err != nil {
		log.Printf("Error during %s login: %v", req.Provider, err)
		return failWith(c, "Authentication failed", err)
	}

	if h.identityService.State() == services.StatePendingOnboarding {
		return c.JSON(fiber.Map{
			"message": "Username required to finish sign-in",
			"state":   services.StatePendingOnboarding.String(),
			"account": account,
		})
	}

	token, err := h.identityService.IssueToken(account)
	if err != nil {
		return failWith(c, "Authentication failed", err)
	}
	return c.JSON(fiber.Map{
		"message": "Login successful",
		"state":   services.StateAuthenticated.String(),
		"token":   token,
		"account": account,
	})
}

// OnboardingRequest represents the request body for username onboarding.
type OnboardingRequest struct {
	Username string `json:"username" validate:"required"`
}

// HandleOnboarding completes the username step after a social login.
func (h *AuthHandler) HandleOnboarding(c *fiber.Ctx) error {
	var req OnboardingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"error":   err.Error(),
		})
	}

	account, err := h.identityService.CompleteOnboarding(req.Username)
	if err != nil {
		log.Printf("Error completing onboarding: %v", err)
		return failWith(c, "Onboarding failed", err)
	}

	token, err := h.identityService.IssueToken(account)
	if err != nil {
		return failWith(c, "Onboarding failed", err)
	}
	return c.JSON(fiber.Map{
		"message": "Username saved",
		"token":   token,
		"account": account,
	})
}

// HandleLogout ends the session.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	if err := h.identityService.SignOut(); err != nil {
		return failWith(c, "Logout failed", err)
	}
	return c.JSON(fiber.Map{
		"message": "Logged out",
	})
}

// ResetRequest represents the request body for a password reset email.
type ResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// HandleResetRequest asks the provider to send a reset email.
func (h *AuthHandler) HandleResetRequest(c *fiber.Ctx) error {
	var req ResetRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"error":   err.Error(),
		})
	}

	if err := h.identityService.RequestPasswordReset(req.Email); err != nil {
		log.Printf("Error requesting password reset for %s: %v", req.Email, err)
		return failWith(c, "Password reset failed", err)
	}
	return c.JSON(fiber.Map{
		"message": "Reset email sent",
	})
}

// ResetConfirmRequest represents the request body for confirming a reset.
type ResetConfirmRequest struct {
	Code     string `json:"code" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// HandleResetConfirm redeems a reset code and sets the new password.
func (h *AuthHandler) HandleResetConfirm(c *fiber.Ctx) error {
	var req ResetConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"error":   err.Error(),
		})
	}

	if err := h.identityService.ConfirmPasswordReset(req.Code, req.Password); err != nil {
		log.Printf("Error confirming password reset: %v", err)
		return failWith(c, "Password reset failed", err)
	}
	return c.JSON(fiber.Map{
		"message": "Password updated",
	})
}

// VerifyConfirmRequest represents the request body for email verification.
type VerifyConfirmRequest struct {
	Code string `json:"code" validate:"required"`
}

// HandleVerifyConfirm redeems an email verification code.
func (h *AuthHandler) HandleVerifyConfirm(c *fiber.Ctx) error {
	var req VerifyConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"error":   err.Error(),
		})
	}

	if err := h.identityService.ConfirmEmailVerification(req.Code); err != nil {
		log.Printf("Error confirming email verification: %v", err)
		return failWith(c, "Email verification failed", err)
	}
	return c.JSON(fiber.Map{
		"message": "Email verified",
	})
}

// HandleUsernameCheck answers live-typing availability checks. The
// answer is advisory; the write path re-validates.
func (h *AuthHandler) HandleUsernameCheck(c *fiber.Ctx) error {
	username := c.Query("username")
	if username == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "username query parameter is required",
		})
	}
	return c.JSON(fiber.Map{
		"username": username,
		"taken":    h.identityService.IsUsernameTaken(username),
	})
}
