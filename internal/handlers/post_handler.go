package handlers

import (
	"log"
	"strings"

	"forum/internal/middleware"
	"forum/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// PostHandler handles HTTP requests for the feed and post writes.
type PostHandler struct {
	feedService *services.FeedService
	validate    *validator.Validate
}

// NewPostHandler creates a new PostHandler.
func NewPostHandler(feedService *services.FeedService) *PostHandler {
	return &PostHandler{
		feedService: feedService,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers the post routes with the Fiber app. Reads
// resolve the viewer when a token is present; writes require one.
func (h *PostHandler) RegisterRoutes(router fiber.Router, requireAuth, optionalAuth fiber.Handler) {
	postRoutes := router.Group("/posts")
	postRoutes.Get("/tags/suggest", h.HandleSuggestTags)
	postRoutes.Get("/", optionalAuth, h.HandleFeed)
	postRoutes.Get("/:id", h.HandleGetPost)
	postRoutes.Post("/", requireAuth, h.HandleCreatePost)
	postRoutes.Put("/:id", requireAuth, h.HandleUpdatePost)
	postRoutes.Delete("/:id", requireAuth, h.HandleDeletePost)
}

// HandleFeed builds the filtered, sorted, paginated feed view.
// Query parameters: filter=all|liked, recent=true, tags=a,b (comma
// separated), search=..., sort=newest|liked|commented, page=N.
func (h *PostHandler) HandleFeed(c *fiber.Ctx) error {
	query := services.FeedQuery{
		Filter:     c.Query("filter", services.FilterAll),
		RecentOnly: c.QueryBool("recent"),
		Search:     c.Query("search"),
		SortBy:     c.Query("sort", services.SortNewest),
		Page:       c.QueryInt("page", 1),
	}
	if tags := c.Query("tags"); tags != "" {
		query.Tags = strings.Split(tags, ",")
	}

	view, err := h.feedService.BuildFeed(c.UserContext(), middleware.UserID(c), query)
	if err != nil {
		log.Printf("Error building feed: %v", err)
		return failWith(c, "Could not build feed", err)
	}
	return c.JSON(view)
}

// HandleSuggestTags answers tag typeahead queries.
func (h *PostHandler) HandleSuggestTags(c *fiber.Ctx) error {
	var selected []string
	if raw := c.Query("selected"); raw != "" {
		selected = strings.Split(raw, ",")
	}
	suggestions, err := h.feedService.SuggestTags(c.Query("q"), selected)
	if err != nil {
		log.Printf("Error suggesting tags: %v", err)
		return failWith(c, "Could not suggest tags", err)
	}
	return c.JSON(fiber.Map{
		"suggestions": suggestions,
	})
}

// HandleGetPost retrieves a single post by its ID.
func (h *PostHandler) HandleGetPost(c *fiber.Ctx) error {
	postID := c.Params("id")
	post, err := h.feedService.GetPost(postID)
	if err != nil {
		log.Printf("Error getting post %s: %v", postID, err)
		return failWith(c, "Could not retrieve post", err)
	}
	return c.JSON(post)
}

// PostRequest represents the request body for creating or updating a post.
type PostRequest struct {
	Title string   `json:"title" validate:"required"`
	Body  string   `json:"body" validate:"required"`
	Tags  []string `json:"tags"`
}

// HandleCreatePost creates a new post authored by the acting principal.
func (h *PostHandler) HandleCreatePost(c *fiber.Ctx) error {
	var req PostRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing post request body: %v", err)
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

	post, err := h.feedService.CreatePost(middleware.UserID(c), req.Title, req.Body, req.Tags)
	if err != nil {
		log.Printf("Error creating post: %v", err)
		return failWith(c, "Could not create post", err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// HandleUpdatePost updates a post. Only the author may update.
func (h *PostHandler) HandleUpdatePost(c *fiber.Ctx) error {
	postID := c.Params("id")
	var req PostRequest
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

	post, err := h.feedService.UpdatePost(postID, middleware.UserID(c), req.Title, req.Body, req.Tags)
	if err != nil {
		log.Printf("Error updating post %s: %v", postID, err)
		return failWith(c, "Could not update post", err)
	}
	return c.JSON(post)
}

// HandleDeletePost deletes a post with its comments and likes. Only the
// author may delete.
func (h *PostHandler) HandleDeletePost(c *fiber.Ctx) error {
	postID := c.Params("id")
	if err := h.feedService.DeletePost(postID, middleware.UserID(c)); err != nil {
		log.Printf("Error deleting post %s: %v", postID, err)
		return failWith(c, "Could not delete post", err)
	}
	return c.JSON(fiber.Map{
		"message": "Post deleted",
	})
}
