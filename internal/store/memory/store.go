// Package memory provides in-memory repository implementations. They back
// the default single-process deployment and the test suite.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"chatserver/internal/domain"
)

// UserRepo is an in-memory domain.UserRepository.
type UserRepo struct {
	mu    sync.RWMutex
	users map[string]*domain.User
}

func NewUserRepo() *UserRepo {
	return &UserRepo{users: make(map[string]*domain.User)}
}

var _ domain.UserRepository = (*UserRepo)(nil)

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	r.users[u.ID] = cloneUser(u)
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return cloneUser(u), nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

func (r *UserRepo) GetByIDs(ctx context.Context, ids []string) ([]*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func (r *UserRepo) Update(ctx context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[u.ID]; !ok {
		return domain.ErrNotFound
	}
	u.UpdatedAt = time.Now().UTC()
	r.users[u.ID] = cloneUser(u)
	return nil
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	c.Friends = append([]string(nil), u.Friends...)
	c.FriendRequests = append([]string(nil), u.FriendRequests...)
	c.SentRequests = append([]string(nil), u.SentRequests...)
	return &c
}

// MessageRepo is an in-memory domain.MessageRepository.
type MessageRepo struct {
	mu       sync.RWMutex
	messages []*domain.Message

	// FailNext forces the next Create to fail, for pipeline abort tests.
	FailNext bool
}

func NewMessageRepo() *MessageRepo {
	return &MessageRepo{}
}

var _ domain.MessageRepository = (*MessageRepo)(nil)

func (r *MessageRepo) Create(ctx context.Context, m *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailNext {
		r.FailNext = false
		return domain.ErrPersistence
	}
	m.ID = uuid.NewString()
	m.CreatedAt = time.Now().UTC()
	if m.Attachments == nil {
		m.Attachments = []domain.Attachment{}
	}
	c := *m
	r.messages = append(r.messages, &c)
	return nil
}

func (r *MessageRepo) ListBetween(ctx context.Context, a, b string) ([]*domain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Message
	for _, m := range r.messages {
		if (m.Sender == a && m.Receiver == b) || (m.Sender == b && m.Receiver == a) {
			c := *m
			out = append(out, &c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// All returns every stored message. Test helper.
func (r *MessageRepo) All() []*domain.Message {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// CallRepo is an in-memory domain.CallRepository.
type CallRepo struct {
	mu    sync.RWMutex
	calls map[string]*domain.Call
}

func NewCallRepo() *CallRepo {
	return &CallRepo{calls: make(map[string]*domain.Call)}
}

var _ domain.CallRepository = (*CallRepo)(nil)

func (r *CallRepo) Create(ctx context.Context, c *domain.Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cc := *c
	r.calls[c.ID] = &cc
	return nil
}

func (r *CallRepo) Update(ctx context.Context, c *domain.Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.calls[c.ID]; !ok {
		return domain.ErrNotFound
	}
	cc := *c
	r.calls[c.ID] = &cc
	return nil
}

func (r *CallRepo) ListForUser(ctx context.Context, userID string) ([]*domain.Call, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Call
	for _, c := range r.calls {
		if c.From == userID || c.To == userID {
			cc := *c
			out = append(out, &cc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
