package repository

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate key")
)

// ConflictError reports a uniqueness violation on a named constraint.
type ConflictError struct {
	Constraint string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("duplicate key violates %q", e.Constraint)
}

func (e *ConflictError) Is(target error) bool { return target == ErrDuplicate }

// Unique constraint names declared in db/migrations.
const (
	ConstraintPostSlug      = "posts_slug_lower_key"
	ConstraintUserEmail     = "users_email_key"
	ConstraintUserUsername  = "users_username_key"
	ConstraintProfileUserID = "profiles_user_id_key"
)

// IsConflictOn reports whether err is a uniqueness violation on constraint.
func IsConflictOn(err error, constraint string) bool {
	var ce *ConflictError
	return errors.As(err, &ce) && ce.Constraint == constraint
}
