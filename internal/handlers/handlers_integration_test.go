package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"forum/internal/handlers"
	"forum/internal/middleware"
	"forum/internal/models"
	"forum/internal/provider"
	"forum/internal/repositories"
	"forum/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupApp sets up a Fiber app for testing with in-memory SQLite and all
// handlers/services wired like the real server.
func setupApp() (*fiber.App, *services.IdentityService, *provider.MockAuthProvider, error) {
	viper.SetDefault("JWT_SECRET", "test_jwt_secret")
	viper.AutomaticEnv()
	jwtSecret := viper.GetString("JWT_SECRET")

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to in-memory database: %w", err)
	}

	err = db.AutoMigrate(&models.Account{}, &models.Post{}, &models.Comment{}, &models.LikeRelation{})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	accountRepo := repositories.NewGORMAccountRepository(db)
	postRepo := repositories.NewGORMPostRepository(db)
	commentRepo := repositories.NewGORMCommentRepository(db)
	likeRepo := repositories.NewGORMLikeRepository(db)

	authProvider := provider.NewMockAuthProvider()
	identityService := services.NewIdentityService(accountRepo, authProvider, nil, jwtSecret)
	feedService := services.NewFeedService(postRepo, accountRepo, commentRepo, likeRepo, nil, 10)
	engagementService := services.NewEngagementService(likeRepo, nil)
	commentService := services.NewCommentService(commentRepo, postRepo, accountRepo, likeRepo, nil)

	authHandler := handlers.NewAuthHandler(identityService)
	postHandler := handlers.NewPostHandler(feedService)
	commentHandler := handlers.NewCommentHandler(commentService)
	likeHandler := handlers.NewLikeHandler(engagementService)

	app := fiber.New()
	apiV1 := app.Group("/api/v1")
	requireAuth := middleware.AuthRequired(identityService)
	optionalAuth := middleware.OptionalAuth(identityService)

	authHandler.RegisterRoutes(apiV1)
	postHandler.RegisterRoutes(apiV1, requireAuth, optionalAuth)
	commentHandler.RegisterRoutes(apiV1, requireAuth)
	likeHandler.RegisterRoutes(apiV1, requireAuth)

	return app, identityService, authProvider, nil
}

// TestMain runs setup and teardown for all tests
func TestMain(m *testing.M) {
	// Suppress logging during tests for cleaner output
	log.SetOutput(io.Discard)
	code := m.Run()
	os.Exit(code)
}

func postJSON(t *testing.T, app *fiber.App, path, token string, payload interface{}) *http.Response {
	t.Helper()
	jsonBody, err := json.Marshal(payload)
	assert.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	return resp
}

func getJSON(t *testing.T, app *fiber.App, path, token string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	err := json.NewDecoder(resp.Body).Decode(out)
	assert.NoError(t, err)
	resp.Body.Close()
}

// registerAndLogin walks the full email flow: register, confirm the
// verification code, log in, and return the JWT.
func registerAndLogin(t *testing.T, app *fiber.App, email, password, username string) string {
	t.Helper()

	resp := postJSON(t, app, "/api/v1/auth/register", "", map[string]string{
		"email":    email,
		"password": password,
		"username": username,
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, app, "/api/v1/auth/verify/confirm", "", map[string]string{
		"code": "verify-" + email,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, app, "/api/v1/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var loginResp map[string]interface{}
	decodeBody(t, resp, &loginResp)
	token, _ := loginResp["token"].(string)
	assert.NotEmpty(t, token)
	return token
}

func TestAuthRegisterVerifyLogin(t *testing.T) {
	app, identityService, _, err := setupApp()
	assert.NoError(t, err)

	resp := postJSON(t, app, "/api/v1/auth/register", "", map[string]string{
		"email":    "reg@example.com",
		"password": "password123",
		"username": "reguser",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// Login before verification is refused with a dedicated code.
	resp = postJSON(t, app, "/api/v1/auth/login", "", map[string]string{
		"email":    "reg@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	var failResp map[string]interface{}
	decodeBody(t, resp, &failResp)
	assert.Equal(t, "email_not_verified", failResp["code"])

	resp = postJSON(t, app, "/api/v1/auth/verify/confirm", "", map[string]string{
		"code": "verify-reg@example.com",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, app, "/api/v1/auth/login", "", map[string]string{
		"email":    "reg@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var loginResp map[string]interface{}
	decodeBody(t, resp, &loginResp)
	token, _ := loginResp["token"].(string)
	assert.NotEmpty(t, token)

	claims, err := identityService.ValidateToken(token)
	assert.NoError(t, err)
	assert.Equal(t, "reguser", claims["username"])
	assert.Contains(t, claims, "user_id")

	// Duplicate username registration conflicts.
	resp = postJSON(t, app, "/api/v1/auth/register", "", map[string]string{
		"email":    "other@example.com",
		"password": "password123",
		"username": "reguser",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Weak password is rejected up front.
	resp = postJSON(t, app, "/api/v1/auth/register", "", map[string]string{
		"email":    "weak@example.com",
		"password": "nodigits",
		"username": "weakuser",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestSocialLoginOnboarding(t *testing.T) {
	app, _, authProvider, err := setupApp()
	assert.NoError(t, err)
	authProvider.RegisterFederatedIdentity(provider.GitHub, provider.Identity{
		Email:       "social@example.com",
		DisplayName: "Social User",
	})

	// First federated login has no username on record: no token yet.
	resp := postJSON(t, app, "/api/v1/auth/social", "", map[string]string{
		"provider": provider.GitHub,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var socialResp map[string]interface{}
	decodeBody(t, resp, &socialResp)
	assert.Equal(t, "pendingOnboarding", socialResp["state"])
	assert.NotContains(t, socialResp, "token")

	resp = postJSON(t, app, "/api/v1/auth/onboarding", "", map[string]string{
		"username": "socialuser",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var onboardResp map[string]interface{}
	decodeBody(t, resp, &onboardResp)
	assert.NotEmpty(t, onboardResp["token"])

	resp = getJSON(t, app, "/api/v1/auth/username-check?username=socialuser", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var checkResp map[string]interface{}
	decodeBody(t, resp, &checkResp)
	assert.Equal(t, true, checkResp["taken"])

	// The next login skips onboarding.
	resp = postJSON(t, app, "/api/v1/auth/social", "", map[string]string{
		"provider": provider.GitHub,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &socialResp)
	assert.Equal(t, "authenticated", socialResp["state"])
	assert.NotEmpty(t, socialResp["token"])
}

func TestPostCommentLikeFlow(t *testing.T) {
	app, _, _, err := setupApp()
	assert.NoError(t, err)
	authorToken := registerAndLogin(t, app, "author@example.com", "password123", "flowauthor")

	resp := postJSON(t, app, "/api/v1/posts/", authorToken, map[string]interface{}{
		"title": "Hello forum",
		"body":  "First post body",
		"tags":  []string{"#intro", "#Forum1"},
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var createdPost models.Post
	decodeBody(t, resp, &createdPost)
	assert.NotEmpty(t, createdPost.ID)

	// The feed joins the author name and starts with zero engagement.
	resp = getJSON(t, app, "/api/v1/posts/?search=hello", authorToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var view services.FeedView
	decodeBody(t, resp, &view)
	assert.Equal(t, 1, view.TotalItems)
	assert.Equal(t, "flowauthor", view.Items[0].AuthorUsername)
	assert.Equal(t, 0, view.Items[0].LikeCount)
	assert.False(t, view.Items[0].LikedByViewer)

	resp = postJSON(t, app, "/api/v1/likes/", authorToken, map[string]string{
		"target_type": "post",
		"target_id":   createdPost.ID,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var likeResult services.LikeResult
	decodeBody(t, resp, &likeResult)
	assert.True(t, likeResult.Liked)
	assert.Equal(t, 1, likeResult.Count)

	resp = postJSON(t, app, "/api/v1/posts/"+createdPost.ID+"/comments", authorToken, map[string]string{
		"text": "First comment",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var createdComment models.Comment
	decodeBody(t, resp, &createdComment)
	assert.Equal(t, "flowauthor", createdComment.Author)

	resp = getJSON(t, app, "/api/v1/posts/?search=hello&filter=liked", authorToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &view)
	assert.Equal(t, 1, view.TotalItems)
	assert.Equal(t, 1, view.Items[0].LikeCount)
	assert.Equal(t, 1, view.Items[0].CommentCount)
	assert.True(t, view.Items[0].LikedByViewer)

	// A second user cannot edit someone else's comment.
	intruderToken := registerAndLogin(t, app, "intruder@example.com", "password123", "flowintruder")
	jsonBody, _ := json.Marshal(map[string]string{"text": "hijacked"})
	req := httptest.NewRequest(http.MethodPut, "/api/v1/comments/"+createdComment.ID, bytes.NewReader(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+intruderToken)
	editResp, err := app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, editResp.StatusCode)
	editResp.Body.Close()

	// Deleting the post takes its thread with it.
	req = httptest.NewRequest(http.MethodDelete, "/api/v1/posts/"+createdPost.ID, nil)
	req.Header.Set("Authorization", "Bearer "+authorToken)
	deleteResp, err := app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, deleteResp.StatusCode)
	deleteResp.Body.Close()

	resp = getJSON(t, app, "/api/v1/posts/"+createdPost.ID+"/comments", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var remaining []models.Comment
	decodeBody(t, resp, &remaining)
	assert.Empty(t, remaining)

	resp = getJSON(t, app, "/api/v1/posts/"+createdPost.ID, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestTagSuggestEndpoint(t *testing.T) {
	app, _, _, err := setupApp()
	assert.NoError(t, err)
	token := registerAndLogin(t, app, "tagger@example.com", "password123", "tagger")

	resp := postJSON(t, app, "/api/v1/posts/", token, map[string]interface{}{
		"title": "Tagged post",
		"body":  "body",
		"tags":  []string{"#golang", "#gopher"},
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = getJSON(t, app, "/api/v1/posts/tags/suggest?q=go&selected=%23gopher", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var suggestResp struct {
		Suggestions []string `json:"suggestions"`
	}
	decodeBody(t, resp, &suggestResp)
	assert.Contains(t, suggestResp.Suggestions, "#golang")
	assert.NotContains(t, suggestResp.Suggestions, "#gopher")

	// Malformed tags reject the post as a whole.
	resp = postJSON(t, app, "/api/v1/posts/", token, map[string]interface{}{
		"title": "Bad tags",
		"body":  "body",
		"tags":  []string{"plain", "#ok"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestProtectedRoutesWithoutToken(t *testing.T) {
	app, _, _, err := setupApp()
	assert.NoError(t, err)

	resp := postJSON(t, app, "/api/v1/posts/", "", map[string]interface{}{
		"title": "Unauthorized post",
		"body":  "body",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, app, "/api/v1/likes/", "", map[string]string{
		"target_type": "post",
		"target_id":   "p1",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// Reads stay open to anonymous viewers.
	resp = getJSON(t, app, "/api/v1/posts/", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}
