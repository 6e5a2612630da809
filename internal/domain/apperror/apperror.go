// Package apperror is the error taxonomy shared by the application and HTTP layers.
package apperror

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation   Kind = "validation"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindUnauthorized Kind = "unauthorized"
)

const (
	CodeDuplicateSlug     = "DUPLICATE_SLUG"
	CodeDuplicateEmail    = "DUPLICATE_EMAIL"
	CodeDuplicateUsername = "DUPLICATE_USERNAME"
	CodeInvalidField      = "INVALID_FIELD"
	CodeForbidden         = "FORBIDDEN"
	CodeNotFound          = "NOT_FOUND"
	CodeUnauthorized      = "UNAUTHORIZED"
)

// Error is a per-request failure. Field is set for validation errors,
// Redirect for forbidden ones.
type Error struct {
	Kind     Kind
	Code     string
	Field    string
	Message  string
	Redirect string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Validation builds a field-level validation error.
func Validation(code, field, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Field: field, Message: message}
}

// DuplicateSlug reports that slug is already used by another post.
func DuplicateSlug(slug string) *Error {
	return Validation(CodeDuplicateSlug, "slug",
		fmt.Sprintf("slug %q is already in use; choose another or leave it blank", slug))
}

// Forbidden reports an authorization failure; redirect is the safe view to send the caller to.
func Forbidden(message, redirect string) *Error {
	return &Error{Kind: KindForbidden, Code: CodeForbidden, Message: message, Redirect: redirect}
}

func NotFound(resource, key string) *Error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Message: fmt.Sprintf("%s %q not found", resource, key)}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Code: CodeUnauthorized, Message: message}
}

// KindOf returns the kind of err, or "" for unclassified errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// Is reports whether err carries the given code.
func Is(err error, code string) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Code == code
}
