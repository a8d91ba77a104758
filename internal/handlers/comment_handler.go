package handlers

import (
	"log"

	"forum/internal/middleware"
	"forum/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// CommentHandler handles HTTP requests for comment threads.
type CommentHandler struct {
	commentService *services.CommentService
	validate       *validator.Validate
}

// NewCommentHandler creates a new CommentHandler.
func NewCommentHandler(commentService *services.CommentService) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
		validate:       validator.New(),
	}
}

// RegisterRoutes registers the comment routes with the Fiber app.
func (h *CommentHandler) RegisterRoutes(router fiber.Router, requireAuth fiber.Handler) {
	router.Get("/posts/:id/comments", h.HandleGetComments)
	router.Post("/posts/:id/comments", requireAuth, h.HandleAddComment)
	commentRoutes := router.Group("/comments")
	commentRoutes.Put("/:id", requireAuth, h.HandleEditComment)
	commentRoutes.Delete("/:id", requireAuth, h.HandleDeleteComment)
}

// HandleGetComments lists a post's comments, oldest first.
func (h *CommentHandler) HandleGetComments(c *fiber.Ctx) error {
	postID := c.Params("id")
	comments, err := h.commentService.CommentsForPost(postID)
	if err != nil {
		log.Printf("Error getting comments for post %s: %v", postID, err)
		return failWith(c, "Could not retrieve comments", err)
	}
	return c.JSON(comments)
}

// CommentRequest represents the request body for adding or editing a comment.
type CommentRequest struct {
	Text string `json:"text" validate:"required"`
}

// HandleAddComment adds a comment to a post by the acting principal.
func (h *CommentHandler) HandleAddComment(c *fiber.Ctx) error {
	postID := c.Params("id")
	var req CommentRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing comment request body: %v", err)
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

	comment, err := h.commentService.AddComment(postID, middleware.UserID(c), req.Text)
	if err != nil {
		log.Printf("Error adding comment to post %s: %v", postID, err)
		return failWith(c, "Could not add comment", err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// HandleEditComment replaces a comment's text. Only the author may edit.
func (h *CommentHandler) HandleEditComment(c *fiber.Ctx) error {
	commentID := c.Params("id")
	var req CommentRequest
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

	if err := h.commentService.EditComment(commentID, middleware.UserID(c), req.Text); err != nil {
		log.Printf("Error editing comment %s: %v", commentID, err)
		return failWith(c, "Could not edit comment", err)
	}
	return c.JSON(fiber.Map{
		"message": "Comment updated",
	})
}

// HandleDeleteComment removes a comment. Only the author may delete.
func (h *CommentHandler) HandleDeleteComment(c *fiber.Ctx) error {
	commentID := c.Params("id")
	if err := h.commentService.DeleteComment(commentID, middleware.UserID(c)); err != nil {
		log.Printf("Error deleting comment %s: %v", commentID, err)
		return failWith(c, "Could not delete comment", err)
	}
	return c.JSON(fiber.Map{
		"message": "Comment deleted",
	})
}
