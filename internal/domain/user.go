package domain

import "time"

// Role is the closed set of actor roles. Every authorization decision branches on it.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleSupport Role = "support"
	RoleUser    Role = "user"
)

// ParseRole returns the Role named by s, or false when s is not a recognized role.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleSupport, RoleUser:
		return Role(s), true
	}
	return "", false
}

// Valid reports whether r is one of the recognized roles.
func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

// User is an account that can authenticate against the API.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Summary returns the public projection attached to tickets and comments.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}

// UserSummary is the creator/author projection: id, name and email only.
type UserSummary struct {
	ID    string
	Name  string
	Email string
}
