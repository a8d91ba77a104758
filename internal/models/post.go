package models

import "time"

// Post represents a forum post. Tags are normalized "#token" strings.
type Post struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Title     string    `json:"title" gorm:"type:varchar(200)" validate:"required,min=1,max=200"`
	Body      string    `json:"body" gorm:"type:text" validate:"required"`
	Tags      []string  `json:"tags" gorm:"serializer:json"`
	AuthorID  string    `json:"author_id" gorm:"index;type:varchar(36)"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
