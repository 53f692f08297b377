package models

import "time"

// User is a registered account. Role holds the bare role name ("USER",
// "ADMIN"); authority tags are derived from it.
type User struct {
	ID              int64
	Email           string
	PasswordHash    string
	Nickname        string
	ProfileImageURL string
	Role            string
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)
