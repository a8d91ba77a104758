package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"forum/internal/apperrors"
	"forum/internal/models"
	"forum/internal/repositories"
)

// LikeResult reports the outcome of a toggle: the user's new liked
// state and the target's recomputed like count.
type LikeResult struct {
	Liked bool `json:"liked"`
	Count int  `json:"count"`
}

// EngagementService handles like/unlike across posts and comments.
// The relation set is the source of truth; counts are recomputed from
// it on every call so concurrent toggles by other users never drift a
// stored counter.
type EngagementService struct {
	likeRepo repositories.LikeRepository
	mqClient EventPublisher
}

// NewEngagementService creates a new EngagementService.
func NewEngagementService(likeRepo repositories.LikeRepository, mqClient EventPublisher) *EngagementService {
	return &EngagementService{
		likeRepo: likeRepo,
		mqClient: mqClient,
	}
}

// ToggleLike inverts userID's like of the target. A relation keyed on
// the (userID, targetType, targetID) tuple is deleted if present and
// inserted if absent, so a duplicate click strictly undoes the first
// rather than double-inserting.
func (s *EngagementService) ToggleLike(userID, targetType, targetID string) (*LikeResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("liking requires a signed-in account: %w", apperrors.ErrNotAuthenticated)
	}
	if !models.ValidTargetType(targetType) {
		return nil, fmt.Errorf("unknown target type %q: %w", targetType, apperrors.ErrValidation)
	}
	if targetID == "" {
		return nil, fmt.Errorf("target id is required: %w", apperrors.ErrValidation)
	}

	liked := false
	existing, err := s.likeRepo.GetByTuple(userID, targetType, targetID)
	switch {
	case err == nil:
		if err := s.likeRepo.Delete(existing.ID); err != nil {
			return nil, fmt.Errorf("failed to remove like: %w", err)
		}
	case errors.Is(err, apperrors.ErrNotFound):
		relation := &models.LikeRelation{
			UserID:     userID,
			TargetType: targetType,
			TargetID:   targetID,
		}
		if err := s.likeRepo.Create(relation); err != nil {
			return nil, fmt.Errorf("failed to record like: %w", err)
		}
		liked = true
	default:
		return nil, fmt.Errorf("failed to look up like: %w", err)
	}

	count, err := s.LikeCount(targetType, targetID)
	if err != nil {
		return nil, err
	}

	if s.mqClient != nil {
		body, marshalErr := json.Marshal(map[string]interface{}{
			"userID":     userID,
			"targetType": targetType,
			"targetID":   targetID,
			"liked":      liked,
			"count":      count,
		})
		if marshalErr != nil {
			log.Printf("Failed to marshal like event: %v", marshalErr)
		} else if pubErr := s.mqClient.Publish("forum", EventLikeToggled, body); pubErr != nil {
			log.Printf("Warning: failed to publish like event: %v", pubErr)
		}
	}

	return &LikeResult{Liked: liked, Count: count}, nil
}

// LikeCount returns the target's like count, folded from its relation set.
func (s *EngagementService) LikeCount(targetType, targetID string) (int, error) {
	relations, err := s.likeRepo.GetByTarget(targetType, targetID)
	if err != nil {
		return 0, fmt.Errorf("failed to count likes: %w", err)
	}
	return len(relations), nil
}

// HasLiked reports whether userID currently likes the target.
func (s *EngagementService) HasLiked(userID, targetType, targetID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	_, err := s.likeRepo.GetByTuple(userID, targetType, targetID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, apperrors.ErrNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("failed to look up like: %w", err)
}

// LikedPostIDs returns the IDs of every post userID has liked. The feed
// aggregator uses this for its liked-by-viewer filter.
func (s *EngagementService) LikedPostIDs(userID string) ([]string, error) {
	if userID == "" {
		return nil, nil
	}
	relations, err := s.likeRepo.GetByUserAndType(userID, models.TargetPost)
	if err != nil {
		return nil, fmt.Errorf("failed to get liked posts for %s: %w", userID, err)
	}
	ids := make([]string, 0, len(relations))
	for _, rel := range relations {
		ids = append(ids, rel.TargetID)
	}
	return ids, nil
}
