package models

import "time"

// Target types a LikeRelation can point at.
const (
	TargetPost    = "post"
	TargetComment = "comment"
)

// LikeRelation records that a user likes a post or a comment.
// At most one relation may exist per (UserID, TargetType, TargetID)
// tuple; like counts are always derived by counting these rows.
type LikeRelation struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID     string    `json:"user_id" gorm:"index:idx_like_tuple;type:varchar(36)"`
	TargetType string    `json:"target_type" gorm:"index:idx_like_tuple;type:varchar(10)"`
	TargetID   string    `json:"target_id" gorm:"index:idx_like_tuple;type:varchar(36)"`
	CreatedAt  time.Time `json:"created_at"`
}

// ValidTargetType reports whether t names a likeable target.
func ValidTargetType(t string) bool {
	return t == TargetPost || t == TargetComment
}
