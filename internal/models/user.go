package models

import "time"

// User is a student account. TemplateID is set while the user follows a
// shared template verbatim; it is cleared once a private plan exists.
type User struct {
	ID           int64      `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	CurrentTerm  Term       `db:"current_term" json:"current_term"`
	TemplateID   *int64     `db:"template_id" json:"template_id,omitempty"`
	Active       bool       `db:"active" json:"active"`
	LastLoginAt  *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// UserInfo is the public projection of a user.
type UserInfo struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	FullName    string `json:"full_name"`
	CurrentTerm Term   `json:"current_term"`
}
