package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"forum/internal/apperrors"
	"forum/internal/models"
	"forum/internal/repositories"
)

// CommentService handles the comment thread of a post: fetching,
// adding, and owner-gated edit/delete.
type CommentService struct {
	commentRepo repositories.CommentRepository
	postRepo    repositories.PostRepository
	accountRepo repositories.AccountRepository
	likeRepo    repositories.LikeRepository
	mqClient    EventPublisher
}

// NewCommentService creates a new CommentService.
func NewCommentService(commentRepo repositories.CommentRepository, postRepo repositories.PostRepository, accountRepo repositories.AccountRepository, likeRepo repositories.LikeRepository, mqClient EventPublisher) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		accountRepo: accountRepo,
		likeRepo:    likeRepo,
		mqClient:    mqClient,
	}
}

// CommentsForPost returns a post's comments, oldest first.
func (s *CommentService) CommentsForPost(postID string) ([]models.Comment, error) {
	return s.commentRepo.GetByPostID(postID)
}

// AddComment stores a new comment by authorID on postID, snapshotting
// the author's current display name.
func (s *CommentService) AddComment(postID, authorID, text string) (*models.Comment, error) {
	if authorID == "" {
		return nil, fmt.Errorf("commenting requires a signed-in account: %w", apperrors.ErrNotAuthenticated)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("comment text is required: %w", apperrors.ErrValidation)
	}
	if _, err := s.postRepo.GetByID(postID); err != nil {
		return nil, err
	}

	displayName := "Anonymous"
	account, err := s.accountRepo.GetByID(authorID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("failed to load account %s: %w", authorID, err)
		}
	} else if account.Username != "" {
		displayName = account.Username
	}

	comment := &models.Comment{
		PostID:   postID,
		AuthorID: authorID,
		Author:   displayName,
		Text:     text,
	}
	if err := s.commentRepo.Create(comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	if s.mqClient != nil {
		body, marshalErr := json.Marshal(map[string]interface{}{
			"commentID": comment.ID,
			"postID":    comment.PostID,
			"authorID":  comment.AuthorID,
		})
		if marshalErr != nil {
			log.Printf("Failed to marshal comment event: %v", marshalErr)
		} else if pubErr := s.mqClient.Publish("forum", EventCommentAdded, body); pubErr != nil {
			log.Printf("Warning: failed to publish comment event for %s: %v", comment.ID, pubErr)
		}
	}

	return comment, nil
}

// EditComment replaces a comment's text. Only the recorded author may
// edit; the write records a distinct UpdatedAt so presentation can mark
// the comment edited.
func (s *CommentService) EditComment(commentID, actingUserID, newText string) error {
	newText = strings.TrimSpace(newText)
	if newText == "" {
		return fmt.Errorf("comment text is required: %w", apperrors.ErrValidation)
	}

	comment, err := s.commentRepo.GetByID(commentID)
	if err != nil {
		return err
	}
	if comment.AuthorID != actingUserID {
		return fmt.Errorf("comment %s belongs to another author: %w", commentID, apperrors.ErrNotOwner)
	}

	comment.Text = newText
	if err := s.commentRepo.Update(comment); err != nil {
		return fmt.Errorf("failed to update comment %s: %w", commentID, err)
	}
	return nil
}

// DeleteComment removes a comment and its like relations. Only the
// recorded author may delete.
func (s *CommentService) DeleteComment(commentID, actingUserID string) error {
	comment, err := s.commentRepo.GetByID(commentID)
	if err != nil {
		return err
	}
	if comment.AuthorID != actingUserID {
		return fmt.Errorf("comment %s belongs to another author: %w", commentID, apperrors.ErrNotOwner)
	}

	if err := s.likeRepo.DeleteByTarget(models.TargetComment, commentID); err != nil {
		return err
	}
	if err := s.commentRepo.Delete(commentID); err != nil {
		return fmt.Errorf("failed to delete comment %s: %w", commentID, err)
	}
	return nil
}
