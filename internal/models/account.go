package models

import "time"

// Account represents a registered user of the forum.
// Username stays empty until onboarding is complete for accounts created
// through a social provider; the email/password signup path always sets it.
type Account struct {
	ID            string    `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Email         string    `json:"email" gorm:"uniqueIndex;type:varchar(255)" validate:"required,email"`
	Username      string    `json:"username" gorm:"index;type:varchar(100)"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
