package handlers

import (
	"log"

	"forum/internal/middleware"
	"forum/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// LikeHandler handles HTTP requests for like toggles.
type LikeHandler struct {
	engagementService *services.EngagementService
	validate          *validator.Validate
}

// NewLikeHandler creates a new LikeHandler.
func NewLikeHandler(engagementService *services.EngagementService) *LikeHandler {
	return &LikeHandler{
		engagementService: engagementService,
		validate:          validator.New(),
	}
}

// RegisterRoutes registers the like routes with the Fiber app.
func (h *LikeHandler) RegisterRoutes(router fiber.Router, requireAuth fiber.Handler) {
	likeRoutes := router.Group("/likes")
	likeRoutes.Post("/", requireAuth, h.HandleToggleLike)
	likeRoutes.Get("/count", h.HandleLikeCount)
}

// ToggleLikeRequest represents the request body for toggling a like.
type ToggleLikeRequest struct {
	TargetType string `json:"target_type" validate:"required,oneof=post comment"`
	TargetID   string `json:"target_id" validate:"required"`
}

// HandleToggleLike inverts the acting principal's like of the target
// and returns the new liked state with the recomputed count.
func (h *LikeHandler) HandleToggleLike(c *fiber.Ctx) error {
	var req ToggleLikeRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing like request body: %v", err)
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

	result, err := h.engagementService.ToggleLike(middleware.UserID(c), req.TargetType, req.TargetID)
	if err != nil {
		log.Printf("Error toggling like on %s %s: %v", req.TargetType, req.TargetID, err)
		return failWith(c, "Could not toggle like", err)
	}
	return c.JSON(result)
}

// HandleLikeCount returns the live like count for a target.
func (h *LikeHandler) HandleLikeCount(c *fiber.Ctx) error {
	targetType := c.Query("target_type")
	targetID := c.Query("target_id")
	if targetType == "" || targetID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "target_type and target_id query parameters are required",
		})
	}

	count, err := h.engagementService.LikeCount(targetType, targetID)
	if err != nil {
		log.Printf("Error counting likes on %s %s: %v", targetType, targetID, err)
		return failWith(c, "Could not count likes", err)
	}
	return c.JSON(fiber.Map{
		"count": count,
	})
}
