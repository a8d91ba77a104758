package handlers

import (
	"errors"

	"forum/internal/apperrors"

	"github.com/gofiber/fiber/v2"
)

// failWith maps an application error onto an HTTP status and a JSON
// body. Every service error funnels through here so the taxonomy maps
// to statuses in exactly one place.
func failWith(c *fiber.Ctx, message string, err error) error {
	status := fiber.StatusInternalServerError
	body := fiber.Map{
		"message": message,
		"error":   err.Error(),
	}

	switch {
	case errors.Is(err, apperrors.ErrValidation):
		status = fiber.StatusBadRequest
	case errors.Is(err, apperrors.ErrNotAuthenticated):
		status = fiber.StatusUnauthorized
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		status = fiber.StatusUnauthorized
	case errors.Is(err, apperrors.ErrNotOwner):
		status = fiber.StatusForbidden
	case errors.Is(err, apperrors.ErrEmailNotVerified):
		status = fiber.StatusForbidden
		body["code"] = "email_not_verified"
	case errors.Is(err, apperrors.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, apperrors.ErrUsernameTaken):
		status = fiber.StatusConflict
	case errors.Is(err, apperrors.ErrProvider):
		var perr *apperrors.ProviderError
		if errors.As(err, &perr) {
			body["code"] = perr.Code
			switch perr.Code {
			case apperrors.CodeTooManyRequests:
				status = fiber.StatusTooManyRequests
			case apperrors.CodeInvalidEmail, apperrors.CodeExpiredActionCode, apperrors.CodeInvalidActionCode:
				status = fiber.StatusBadRequest
			case apperrors.CodeEmailInUse:
				status = fiber.StatusConflict
			default:
				status = fiber.StatusBadGateway
			}
		} else {
			status = fiber.StatusBadGateway
		}
	}

	return c.Status(status).JSON(body)
}
