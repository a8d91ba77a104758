package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"forum/internal/apperrors"
	"forum/internal/models"
	"forum/internal/repositories"
	"forum/internal/services"

	"github.com/stretchr/testify/assert"
)

type feedFixture struct {
	posts    *repositories.MockPostRepository
	accounts *repositories.MockAccountRepository
	comments *repositories.MockCommentRepository
	likes    *repositories.MockLikeRepository
	service  *services.FeedService
}

func newFeedFixture(pageSize int) *feedFixture {
	f := &feedFixture{
		posts:    repositories.NewMockPostRepository(),
		accounts: repositories.NewMockAccountRepository(),
		comments: repositories.NewMockCommentRepository(),
		likes:    repositories.NewMockLikeRepository(),
	}
	f.service = services.NewFeedService(f.posts, f.accounts, f.comments, f.likes, nil, pageSize)
	return f
}

func (f *feedFixture) addPost(id string, age time.Duration, tags ...string) {
	created := time.Now().Add(-age)
	_ = f.posts.Create(&models.Post{
		ID:        id,
		Title:     "Post " + id,
		Body:      "Body of " + id,
		Tags:      tags,
		AuthorID:  "author-1",
		CreatedAt: created,
		UpdatedAt: created,
	})
}

func (f *feedFixture) like(userID, postID string) {
	_ = f.likes.Create(&models.LikeRelation{
		UserID:     userID,
		TargetType: models.TargetPost,
		TargetID:   postID,
	})
}

func TestBuildFeed_ConjunctiveTagFilter(t *testing.T) {
	f := newFeedFixture(10)
	f.addPost("p1", time.Hour, "#go", "#web")
	f.addPost("p2", 2*time.Hour, "#go")
	f.addPost("p3", 3*time.Hour, "#web", "#go", "#db")

	view, err := f.service.BuildFeed(context.Background(), "", services.FeedQuery{
		Tags: []string{"#go", "#web"},
		Page: 1,
	})

	assert.NoError(t, err)
	assert.Len(t, view.Items, 2)
	for _, item := range view.Items {
		assert.Contains(t, item.Tags, "#go")
		assert.Contains(t, item.Tags, "#web")
	}
}

func TestBuildFeed_PaginationClamping(t *testing.T) {
	f := newFeedFixture(10)
	for i := 0; i < 25; i++ {
		f.addPost(fmt.Sprintf("p%02d", i), time.Duration(i)*time.Minute)
	}

	view, err := f.service.BuildFeed(context.Background(), "", services.FeedQuery{Page: 3})
	assert.NoError(t, err)
	assert.Len(t, view.Items, 5)
	assert.Equal(t, 3, view.Page)
	assert.Equal(t, 3, view.TotalPages)
	assert.Equal(t, 25, view.TotalItems)

	// Out-of-range pages clamp to the last valid page.
	view, err = f.service.BuildFeed(context.Background(), "", services.FeedQuery{Page: 4})
	assert.NoError(t, err)
	assert.Equal(t, 3, view.Page)
	assert.Len(t, view.Items, 5)

	view, err = f.service.BuildFeed(context.Background(), "", services.FeedQuery{Page: 0})
	assert.NoError(t, err)
	assert.Equal(t, 1, view.Page)
	assert.Len(t, view.Items, 10)
}

func TestBuildFeed_EmptyFeedHasOnePage(t *testing.T) {
	f := newFeedFixture(10)

	view, err := f.service.BuildFeed(context.Background(), "", services.FeedQuery{Page: 5})
	assert.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Equal(t, 1, view.Page)
	assert.Equal(t, 1, view.TotalPages)
}

func TestBuildFeed_MostLikedSortIsStable(t *testing.T) {
	f := newFeedFixture(10)
	f.addPost("old", 3*time.Hour)
	f.addPost("mid", 2*time.Hour)
	f.addPost("new", time.Hour)
	// "old" and "new" tie on likes; "mid" wins outright.
	f.like("u1", "old")
	f.like("u1", "mid")
	f.like("u2", "mid")
	f.like("u2", "new")

	view, err := f.service.BuildFeed(context.Background(), "", services.FeedQuery{
		SortBy: services.SortMostLiked,
		Page:   1,
	})

	assert.NoError(t, err)
	assert.Len(t, view.Items, 3)
	assert.Equal(t, "mid", view.Items[0].ID)
	// Tied posts keep their newest-first relative order.
	assert.Equal(t, "new", view.Items[1].ID)
	assert.Equal(t, "old", view.Items[2].ID)
}

func TestBuildFeed_MostCommentedSort(t *testing.T) {
	f := newFeedFixture(10)
	f.addPost("quiet", 2*time.Hour)
	f.addPost("busy", time.Hour)
	for i := 0; i < 3; i++ {
		_ = f.comments.Create(&models.Comment{
			PostID:   "busy",
			AuthorID: "u1",
			Author:   "someone",
			Text:     "hello",
		})
	}

	view, err := f.service.BuildFeed(context.Background(), "", services.FeedQuery{
		SortBy: services.SortMostCommented,
		Page:   1,
	})

	assert.NoError(t, err)
	assert.Equal(t, "busy", view.Items[0].ID)
	assert.Equal(t, 3, view.Items[0].CommentCount)
	assert.Equal(t, 0, view.Items[1].CommentCount)
}

func TestBuildFeed_RecencyFilter(t *testing.T) {
	f := newFeedFixture(10)
	f.addPost("fresh", 24*time.Hour)
	f.addPost("stale", 8*24*time.Hour)

	view, err := f.service.BuildFeed(context.Background(), "", services.FeedQuery{
		RecentOnly: true,
		Page:       1,
	})

	assert.NoError(t, err)
	assert.Len(t, view.Items, 1)
	assert.Equal(t, "fresh", view.Items[0].ID)
}

func TestBuildFeed_SearchMatchesTitleOrBody(t *testing.T) {
	f := newFeedFixture(10)
	created := time.Now().Add(-time.Hour)
	_ = f.posts.Create(&models.Post{ID: "a", Title: "Morning Routine", Body: "coffee first", CreatedAt: created})
	_ = f.posts.Create(&models.Post{ID: "b", Title: "Evening", Body: "a strong COFFEE helps", CreatedAt: created})
	_ = f.posts.Create(&models.Post{ID: "c", Title: "Tea time", Body: "no caffeine", CreatedAt: created})

	view, err := f.service.BuildFeed(context.Background(), "", services.FeedQuery{
		Search: "coffee",
		Page:   1,
	})

	assert.NoError(t, err)
	assert.Len(t, view.Items, 2)
}

func TestBuildFeed_LikedFilterUsesViewerRelations(t *testing.T) {
	f := newFeedFixture(10)
	f.addPost("p1", time.Hour)
	f.addPost("p2", 2*time.Hour)
	f.like("viewer", "p2")
	f.like("someone-else", "p1")

	view, err := f.service.BuildFeed(context.Background(), "viewer", services.FeedQuery{
		Filter: services.FilterLiked,
		Page:   1,
	})
	assert.NoError(t, err)
	assert.Len(t, view.Items, 1)
	assert.Equal(t, "p2", view.Items[0].ID)
	assert.True(t, view.Items[0].LikedByViewer)

	// An anonymous viewer's liked filter degrades to an empty feed.
	view, err = f.service.BuildFeed(context.Background(), "", services.FeedQuery{
		Filter: services.FilterLiked,
		Page:   1,
	})
	assert.NoError(t, err)
	assert.Empty(t, view.Items)
}

func TestBuildFeed_UnresolvedAuthorFallsBackToUnknown(t *testing.T) {
	f := newFeedFixture(10)
	_ = f.accounts.Create(&models.Account{ID: "author-known", Email: "k@example.com", Username: "karen"})
	created := time.Now().Add(-time.Hour)
	_ = f.posts.Create(&models.Post{ID: "a", Title: "t", Body: "b", AuthorID: "author-known", CreatedAt: created})
	_ = f.posts.Create(&models.Post{ID: "b", Title: "t", Body: "b", AuthorID: "author-gone", CreatedAt: created.Add(-time.Minute)})

	view, err := f.service.BuildFeed(context.Background(), "", services.FeedQuery{Page: 1})
	assert.NoError(t, err)
	assert.Equal(t, "karen", view.Items[0].AuthorUsername)
	assert.Equal(t, "Unknown", view.Items[1].AuthorUsername)
}

func TestBuildFeed_CancelledQueryIsDiscarded(t *testing.T) {
	f := newFeedFixture(10)
	f.addPost("p1", time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	view, err := f.service.BuildFeed(ctx, "", services.FeedQuery{Page: 1})
	assert.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, view)
}

func TestSuggestTags(t *testing.T) {
	f := newFeedFixture(10)
	f.addPost("p1", time.Hour, "#habits", "#health", "#focus")
	f.addPost("p2", 2*time.Hour, "#goals", "#habits")

	// Empty query: alphabetical, capped, nothing selected.
	suggestions, err := f.service.SuggestTags("", nil)
	assert.NoError(t, err)
	assert.Equal(t, []string{"#focus", "#goals", "#habits", "#health"}, suggestions)

	// Substring query is case-insensitive.
	suggestions, err = f.service.SuggestTags("HAB", nil)
	assert.NoError(t, err)
	assert.Equal(t, []string{"#habits"}, suggestions)

	// Selected tags are excluded.
	suggestions, err = f.service.SuggestTags("", []string{"#habits", "#health"})
	assert.NoError(t, err)
	assert.Equal(t, []string{"#focus", "#goals"}, suggestions)
}

func TestSuggestTags_CapsAtTen(t *testing.T) {
	f := newFeedFixture(10)
	tags := make([]string, 0, 15)
	for i := 0; i < 15; i++ {
		tags = append(tags, fmt.Sprintf("#tag%02d", i))
	}
	f.addPost("p1", time.Hour, tags...)

	suggestions, err := f.service.SuggestTags("", nil)
	assert.NoError(t, err)
	assert.Len(t, suggestions, 10)
	assert.Equal(t, "#tag00", suggestions[0])
}

func TestNormalizeTags(t *testing.T) {
	normalized, err := services.NormalizeTags([]string{" #habits ", "#Focus2", ""})
	assert.NoError(t, err)
	assert.Equal(t, []string{"#habits", "#Focus2"}, normalized)
}

func TestNormalizeTags_AggregateError(t *testing.T) {
	_, err := services.NormalizeTags([]string{"#ok", "nohash", "#has space", "#bad!"})
	assert.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	// One aggregate error names every bad token.
	assert.Contains(t, err.Error(), "nohash")
	assert.Contains(t, err.Error(), "#has space")
	assert.Contains(t, err.Error(), "#bad!")
}

func TestCreatePost(t *testing.T) {
	f := newFeedFixture(10)

	// Anonymous writes are rejected before any mutation.
	_, err := f.service.CreatePost("", "Title", "Body", nil)
	assert.ErrorIs(t, err, apperrors.ErrNotAuthenticated)

	post, err := f.service.CreatePost("author-1", "Title", "Body", []string{"#go"})
	assert.NoError(t, err)
	assert.NotEmpty(t, post.ID)
	assert.Equal(t, []string{"#go"}, post.Tags)

	// Invalid tags reject the whole write.
	_, err = f.service.CreatePost("author-1", "Title", "Body", []string{"bad tag"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	all, _ := f.posts.GetAll()
	assert.Len(t, all, 1)
}

func TestUpdatePost_OwnershipEnforced(t *testing.T) {
	f := newFeedFixture(10)
	post, err := f.service.CreatePost("author-1", "Title", "Body", nil)
	assert.NoError(t, err)

	_, err = f.service.UpdatePost(post.ID, "intruder", "New", "Body", nil)
	assert.ErrorIs(t, err, apperrors.ErrNotOwner)

	updated, err := f.service.UpdatePost(post.ID, "author-1", "New", "Body", nil)
	assert.NoError(t, err)
	assert.Equal(t, "New", updated.Title)
}

func TestDeletePost_CascadesCommentsAndLikes(t *testing.T) {
	f := newFeedFixture(10)
	post, err := f.service.CreatePost("author-1", "Title", "Body", nil)
	assert.NoError(t, err)
	_ = f.comments.Create(&models.Comment{ID: "c1", PostID: post.ID, AuthorID: "u1", Text: "hi"})
	f.like("u1", post.ID)
	_ = f.likes.Create(&models.LikeRelation{UserID: "u2", TargetType: models.TargetComment, TargetID: "c1"})

	err = f.service.DeletePost(post.ID, "intruder")
	assert.ErrorIs(t, err, apperrors.ErrNotOwner)

	err = f.service.DeletePost(post.ID, "author-1")
	assert.NoError(t, err)

	_, err = f.posts.GetByID(post.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	remaining, _ := f.comments.GetByPostID(post.ID)
	assert.Empty(t, remaining)
	postLikes, _ := f.likes.GetByTarget(models.TargetPost, post.ID)
	assert.Empty(t, postLikes)
	commentLikes, _ := f.likes.GetByTarget(models.TargetComment, "c1")
	assert.Empty(t, commentLikes)
}
