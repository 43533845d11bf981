package storage

import (
	"context"
	"time"
)

// User is a stored account. The user id doubles as the tenant id of every
// service record the account owns.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	FullName     string
	CompanyName  string
	Phone        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session is an issued sign-in token, identified by the token's jti claim.
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	RevokedAt time.Time
	CreatedAt time.Time
}

// Active reports whether the session can still authenticate requests.
func (s Session) Active(now time.Time) bool {
	return s.RevokedAt.IsZero() && now.Before(s.ExpiresAt)
}

// UserStore persists accounts and sessions. Emails are compared lower-cased.
type UserStore interface {
	CreateUser(ctx context.Context, u User) error
	UserByEmail(ctx context.Context, email string) (User, error)
	UserByID(ctx context.Context, id string) (User, error)
	CreateSession(ctx context.Context, s Session) error
	SessionByID(ctx context.Context, id string) (Session, error)
	RevokeSession(ctx context.Context, id string, at time.Time) error
}
