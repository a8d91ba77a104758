package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"
	"time"

	"forum/internal/apperrors"
	"forum/internal/models"
	"forum/internal/repositories"
)

// Feed membership filters.
const (
	FilterAll   = "all"
	FilterLiked = "liked"
)

// Feed sort orders.
const (
	SortNewest        = "newest"
	SortMostLiked     = "liked"
	SortMostCommented = "commented"
)

const recencyWindow = 7 * 24 * time.Hour

const maxTagSuggestions = 10

var tagTokenPattern = regexp.MustCompile(`^#[a-zA-Z0-9]+$`)

// FeedQuery is one feed request: filters, sort order and page.
type FeedQuery struct {
	Filter     string   // FilterAll or FilterLiked
	RecentOnly bool     // restrict to the last 7 days
	Tags       []string // post must carry every one of these
	Search     string   // case-insensitive substring over title or body
	SortBy     string   // SortNewest, SortMostLiked or SortMostCommented
	Page       int      // 1-indexed, clamped
}

// FeedItem is one post joined with its author's display name and live
// engagement counts.
type FeedItem struct {
	models.Post
	AuthorUsername string `json:"author_username"`
	LikeCount      int    `json:"like_count"`
	CommentCount   int    `json:"comment_count"`
	LikedByViewer  bool   `json:"liked_by_viewer"`
}

// FeedView is a derived, paginated projection. It is rebuilt per query
// and never persisted.
type FeedView struct {
	Items      []FeedItem `json:"items"`
	Page       int        `json:"page"`
	TotalPages int        `json:"total_pages"`
	TotalItems int        `json:"total_items"`
}

// FeedService composes posts, author names and engagement counts into
// filterable, sortable, paginated feed views, and owns post writes.
type FeedService struct {
	postRepo    repositories.PostRepository
	accountRepo repositories.AccountRepository
	commentRepo repositories.CommentRepository
	likeRepo    repositories.LikeRepository
	mqClient    EventPublisher
	pageSize    int
}

// NewFeedService creates a new FeedService. pageSize values below 1
// fall back to 10.
func NewFeedService(postRepo repositories.PostRepository, accountRepo repositories.AccountRepository, commentRepo repositories.CommentRepository, likeRepo repositories.LikeRepository, mqClient EventPublisher, pageSize int) *FeedService {
	if pageSize < 1 {
		pageSize = 10
	}
	return &FeedService{
		postRepo:    postRepo,
		accountRepo: accountRepo,
		commentRepo: commentRepo,
		likeRepo:    likeRepo,
		mqClient:    mqClient,
		pageSize:    pageSize,
	}
}

// BuildFeed runs the feed pipeline in fixed order: membership filter,
// recency filter, conjunctive tag filter, free-text filter, stable
// sort, pagination. A caller superseding this query cancels ctx and the
// stale build is discarded instead of merged.
func (s *FeedService) BuildFeed(ctx context.Context, viewerID string, query FeedQuery) (*FeedView, error) {
	posts, err := s.postRepo.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load posts: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Batch-join inputs: one scan per collection rather than one
	// round-trip per post.
	likeCounts, likedByViewer, err := s.likeInputs(viewerID)
	if err != nil {
		return nil, err
	}
	commentCounts, err := s.commentCounts()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filtered := make([]models.Post, 0, len(posts))
	cutoff := time.Now().Add(-recencyWindow)
	search := strings.ToLower(strings.TrimSpace(query.Search))
	for _, p := range posts {
		if query.Filter == FilterLiked && !likedByViewer[p.ID] {
			continue
		}
		if query.RecentOnly && p.CreatedAt.Before(cutoff) {
			continue
		}
		if !containsAllTags(p.Tags, query.Tags) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Title), search) &&
			!strings.Contains(strings.ToLower(p.Body), search) {
			continue
		}
		filtered = append(filtered, p)
	}

	// Fetch order is newest-first; a stable sort keeps that order as
	// the tie-break for the count-based orders.
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})
	switch query.SortBy {
	case SortMostLiked:
		sort.SliceStable(filtered, func(i, j int) bool {
			return likeCounts[filtered[i].ID] > likeCounts[filtered[j].ID]
		})
	case SortMostCommented:
		sort.SliceStable(filtered, func(i, j int) bool {
			return commentCounts[filtered[i].ID] > commentCounts[filtered[j].ID]
		})
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	totalItems := len(filtered)
	totalPages := (totalItems + s.pageSize - 1) / s.pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	page := query.Page
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	start := (page - 1) * s.pageSize
	end := start + s.pageSize
	if start > totalItems {
		start = totalItems
	}
	if end > totalItems {
		end = totalItems
	}
	pagePosts := filtered[start:end]

	usernames := s.resolveAuthors(pagePosts)
	items := make([]FeedItem, 0, len(pagePosts))
	for _, p := range pagePosts {
		items = append(items, FeedItem{
			Post:           p,
			AuthorUsername: usernames[p.AuthorID],
			LikeCount:      likeCounts[p.ID],
			CommentCount:   commentCounts[p.ID],
			LikedByViewer:  likedByViewer[p.ID],
		})
	}

	return &FeedView{
		Items:      items,
		Page:       page,
		TotalPages: totalPages,
		TotalItems: totalItems,
	}, nil
}

// likeInputs folds the post like relations into a per-post count map
// and the viewer's liked set. An anonymous viewer gets an empty set.
func (s *FeedService) likeInputs(viewerID string) (map[string]int, map[string]bool, error) {
	relations, err := s.likeRepo.GetByType(models.TargetPost)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load like relations: %w", err)
	}
	counts := make(map[string]int)
	liked := make(map[string]bool)
	for _, rel := range relations {
		counts[rel.TargetID]++
		if viewerID != "" && rel.UserID == viewerID {
			liked[rel.TargetID] = true
		}
	}
	return counts, liked, nil
}

// commentCounts folds the comment set into a per-post count map.
func (s *FeedService) commentCounts() (map[string]int, error) {
	comments, err := s.commentRepo.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load comments: %w", err)
	}
	counts := make(map[string]int)
	for _, c := range comments {
		counts[c.PostID]++
	}
	return counts, nil
}

// resolveAuthors looks up the username for each distinct author on the
// page. Unresolvable authors degrade to "Unknown" rather than failing
// the feed.
func (s *FeedService) resolveAuthors(posts []models.Post) map[string]string {
	usernames := make(map[string]string)
	for _, p := range posts {
		if _, done := usernames[p.AuthorID]; done {
			continue
		}
		usernames[p.AuthorID] = "Unknown"
		if p.AuthorID == "" {
			continue
		}
		account, err := s.accountRepo.GetByID(p.AuthorID)
		if err != nil {
			if !errors.Is(err, apperrors.ErrNotFound) {
				log.Printf("Failed to resolve author %s: %v", p.AuthorID, err)
			}
			continue
		}
		if account.Username != "" {
			usernames[p.AuthorID] = account.Username
		}
	}
	return usernames
}

func containsAllTags(postTags, selected []string) bool {
	for _, want := range selected {
		found := false
		for _, have := range postTags {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// SuggestTags returns up to 10 tags from the loaded posts' vocabulary
// that are not already selected and contain query as a case-insensitive
// substring. An empty query returns the first 10 alphabetically.
func (s *FeedService) SuggestTags(query string, selected []string) ([]string, error) {
	posts, err := s.postRepo.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load posts: %w", err)
	}

	seen := make(map[string]bool)
	var vocabulary []string
	for _, p := range posts {
		for _, t := range p.Tags {
			if !seen[t] {
				seen[t] = true
				vocabulary = append(vocabulary, t)
			}
		}
	}
	sort.Slice(vocabulary, func(i, j int) bool {
		return strings.ToLower(vocabulary[i]) < strings.ToLower(vocabulary[j])
	})

	selectedSet := make(map[string]bool, len(selected))
	for _, t := range selected {
		selectedSet[t] = true
	}

	q := strings.ToLower(strings.TrimSpace(query))
	suggestions := make([]string, 0, maxTagSuggestions)
	for _, t := range vocabulary {
		if selectedSet[t] {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(t), q) {
			continue
		}
		suggestions = append(suggestions, t)
		if len(suggestions) == maxTagSuggestions {
			break
		}
	}
	return suggestions, nil
}

// NormalizeTags trims tag tokens, drops empties and validates the rest:
// every token must start with '#' followed by alphanumerics only. Any
// violation rejects the whole set with one aggregate error.
func NormalizeTags(tags []string) ([]string, error) {
	normalized := make([]string, 0, len(tags))
	var invalid []string
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if !tagTokenPattern.MatchString(t) {
			invalid = append(invalid, t)
			continue
		}
		normalized = append(normalized, t)
	}
	if len(invalid) > 0 {
		return nil, fmt.Errorf("invalid tags %s (want #alphanumeric): %w", strings.Join(invalid, ", "), apperrors.ErrValidation)
	}
	return normalized, nil
}

// GetPost retrieves one post.
func (s *FeedService) GetPost(id string) (*models.Post, error) {
	return s.postRepo.GetByID(id)
}

// CreatePost validates and stores a new post by authorID.
func (s *FeedService) CreatePost(authorID, title, body string, tags []string) (*models.Post, error) {
	if authorID == "" {
		return nil, fmt.Errorf("posting requires a signed-in account: %w", apperrors.ErrNotAuthenticated)
	}
	title = strings.TrimSpace(title)
	body = strings.TrimSpace(body)
	if title == "" || body == "" {
		return nil, fmt.Errorf("title and body are required: %w", apperrors.ErrValidation)
	}
	normalized, err := NormalizeTags(tags)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:    title,
		Body:     body,
		Tags:     normalized,
		AuthorID: authorID,
	}
	if err := s.postRepo.Create(post); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	if s.mqClient != nil {
		eventBody, marshalErr := json.Marshal(map[string]interface{}{
			"postID":   post.ID,
			"authorID": post.AuthorID,
			"title":    post.Title,
		})
		if marshalErr != nil {
			log.Printf("Failed to marshal post event: %v", marshalErr)
		} else if pubErr := s.mqClient.Publish("forum", EventPostCreated, eventBody); pubErr != nil {
			log.Printf("Warning: failed to publish post created event for post %s: %v", post.ID, pubErr)
		}
	}

	return post, nil
}

// UpdatePost replaces a post's content. Only the author may update.
func (s *FeedService) UpdatePost(postID, actingUserID, title, body string, tags []string) (*models.Post, error) {
	post, err := s.postRepo.GetByID(postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != actingUserID {
		return nil, fmt.Errorf("post %s belongs to another author: %w", postID, apperrors.ErrNotOwner)
	}
	title = strings.TrimSpace(title)
	body = strings.TrimSpace(body)
	if title == "" || body == "" {
		return nil, fmt.Errorf("title and body are required: %w", apperrors.ErrValidation)
	}
	normalized, err := NormalizeTags(tags)
	if err != nil {
		return nil, err
	}

	post.Title = title
	post.Body = body
	post.Tags = normalized
	if err := s.postRepo.Update(post); err != nil {
		return nil, fmt.Errorf("failed to update post %s: %w", postID, err)
	}
	return post, nil
}

// DeletePost removes a post with its comments and like relations. Only
// the author may delete.
func (s *FeedService) DeletePost(postID, actingUserID string) error {
	post, err := s.postRepo.GetByID(postID)
	if err != nil {
		return err
	}
	if post.AuthorID != actingUserID {
		return fmt.Errorf("post %s belongs to another author: %w", postID, apperrors.ErrNotOwner)
	}

	comments, err := s.commentRepo.GetByPostID(postID)
	if err != nil {
		return fmt.Errorf("failed to load comments of post %s: %w", postID, err)
	}
	for _, c := range comments {
		if err := s.likeRepo.DeleteByTarget(models.TargetComment, c.ID); err != nil {
			return err
		}
		if err := s.commentRepo.Delete(c.ID); err != nil {
			return err
		}
	}
	if err := s.likeRepo.DeleteByTarget(models.TargetPost, postID); err != nil {
		return err
	}
	return s.postRepo.Delete(postID)
}
