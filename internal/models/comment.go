package models

import "time"

// Comment represents a comment on a post. Author is a display-name
// snapshot taken when the comment is created.
type Comment struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	PostID    string    `json:"post_id" gorm:"index;type:varchar(36)" validate:"required"`
	AuthorID  string    `json:"author_id" gorm:"index;type:varchar(36)"`
	Author    string    `json:"author" gorm:"type:varchar(100)"`
	Text      string    `json:"text" gorm:"type:text" validate:"required"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Edited reports whether the comment was changed after creation.
// Presentation uses this instead of a stored flag.
func (c *Comment) Edited() bool {
	return c.UpdatedAt.After(c.CreatedAt)
}
