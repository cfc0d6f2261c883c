package models

import "time"

// AdminUser represents an admin user for the back office.
// APIToken holds the digest of the currently issued bearer token, if any.
type AdminUser struct {
	ID            int        `db:"id" json:"id"`
	Name          string     `db:"name" json:"name"`
	Email         string     `db:"email" json:"email"`
	PasswordHash  string     `db:"password_hash" json:"-"`
	APIToken      *string    `db:"api_token" json:"-"`
	RememberToken *string    `db:"remember_token" json:"-"`
	Role          string     `db:"role" json:"role"`
	IsActive      bool       `db:"is_active" json:"is_active"`
	LastLoginAt   *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// AdminIdentity is the slice of an AdminUser attached to authenticated requests.
type AdminIdentity struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Identity returns the request-scoped view of the admin.
func (u *AdminUser) Identity() *AdminIdentity {
	return &AdminIdentity{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}
