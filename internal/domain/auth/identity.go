// Package auth carries the caller identity established by bearer-token
// verification. Tokens are issued elsewhere.
package auth

import (
	"context"

	"github.com/go-faster/errors"
)

var (
	// ErrUnauthenticated is returned when an operation needs a signed-in caller.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden is returned when the caller is neither owner nor admin.
	ErrForbidden = errors.New("not allowed to access this resource")
	// ErrUserNotFound is returned by user lookups.
	ErrUserNotFound = errors.New("user not found")
)

// Role is the coarse permission level of a user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Identity is the verified caller of a request.
type Identity struct {
	UserID string
	Role   Role
}

// IsAdmin reports whether the caller has the admin role.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}

// Owns reports whether the caller is the given user.
func (i *Identity) Owns(userID string) bool {
	return i != nil && userID != "" && i.UserID == userID
}

type identityKey struct{}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the caller identity, or nil for anonymous requests.
func FromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}

// User is the contact record of a registered customer.
type User struct {
	ID       string
	FullName string
	Email    string
	Phone    string
	Role     Role
}

// UserRepository resolves registered users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	Upsert(ctx context.Context, u *User) error
}
