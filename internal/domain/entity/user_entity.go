package entity

import (
	"time"
)

// User is the aggregate root for the account domain.
// Passwords are stored as bcrypt hashes in Password field.
type User struct {
	ID        string
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	IsStaff   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Identity is the acting user of a request as resolved from the session.
// A nil *Identity means an anonymous visitor.
type Identity struct {
	UserID   string
	Username string
	IsStaff  bool
}

// IdentityOf builds the session identity for u.
func IdentityOf(u *User) *Identity {
	if u == nil {
		return nil
	}
	return &Identity{UserID: u.ID, Username: u.Username, IsStaff: u.IsStaff}
}
