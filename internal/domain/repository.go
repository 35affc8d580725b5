package domain

import (
	"context"
)

// UserRepository defines persistence operations for users and their friend
// state. Update replaces the stored record wholesale; callers serialize
// concurrent read-modify-write cycles themselves.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*User, error)
	Update(ctx context.Context, u *User) error
}

// MessageRepository defines persistence operations for messages. Create
// assigns the message id and creation timestamp.
type MessageRepository interface {
	Create(ctx context.Context, m *Message) error
	ListBetween(ctx context.Context, a, b string) ([]*Message, error)
}

// CallRepository persists call records. The call relay keeps the
// authoritative state in memory; these writes are best-effort history.
type CallRepository interface {
	Create(ctx context.Context, c *Call) error
	Update(ctx context.Context, c *Call) error
	ListForUser(ctx context.Context, userID string) ([]*Call, error)
}
