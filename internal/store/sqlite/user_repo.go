package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"chatserver/internal/domain"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

var _ domain.UserRepository = (*UserRepo)(nil)

const (
	linkFriend   = "friend"
	linkIncoming = "incoming"
	linkOutgoing = "outgoing"
)

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	query := `
		INSERT INTO users (id, name, email, hashed_password, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := r.db.ExecContext(ctx, query, u.ID, u.Name, u.Email, u.HashedPassword, u.CreatedAt, u.UpdatedAt); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT id, name, email, hashed_password, created_at, updated_at FROM users WHERE id = ?`
	return r.scanUser(ctx, query, id)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT id, name, email, hashed_password, created_at, updated_at FROM users WHERE email = ?`
	return r.scanUser(ctx, query, email)
}

func (r *UserRepo) GetByIDs(ctx context.Context, ids []string) ([]*domain.User, error) {
	users := make([]*domain.User, 0, len(ids))
	for _, id := range ids {
		u, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if u != nil {
			users = append(users, u)
		}
	}
	return users, nil
}

// Update replaces the stored record wholesale, link rows included, inside one
// transaction.
func (r *UserRepo) Update(ctx context.Context, u *domain.User) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	u.UpdatedAt = time.Now().UTC()
	query := `UPDATE users SET name = ?, email = ?, hashed_password = ?, updated_at = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, query, u.Name, u.Email, u.HashedPassword, u.UpdatedAt, u.ID); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM friend_links WHERE user_id = ?`, u.ID); err != nil {
		return fmt.Errorf("clear friend links: %w", err)
	}
	if err := insertLinks(ctx, tx, u.ID, linkFriend, u.Friends); err != nil {
		return err
	}
	if err := insertLinks(ctx, tx, u.ID, linkIncoming, u.FriendRequests); err != nil {
		return err
	}
	if err := insertLinks(ctx, tx, u.ID, linkOutgoing, u.SentRequests); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func insertLinks(ctx context.Context, tx *sql.Tx, userID, state string, ids []string) error {
	for _, other := range ids {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO friend_links (user_id, other_id, state) VALUES (?, ?, ?)`,
			userID, other, state,
		); err != nil {
			return fmt.Errorf("insert %s link: %w", state, err)
		}
	}
	return nil
}

func (r *UserRepo) scanUser(ctx context.Context, query string, arg any) (*domain.User, error) {
	u := &domain.User{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.HashedPassword,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if err := r.loadLinks(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (r *UserRepo) loadLinks(ctx context.Context, u *domain.User) error {
	u.Friends = []string{}
	u.FriendRequests = []string{}
	u.SentRequests = []string{}

	rows, err := r.db.QueryContext(ctx,
		`SELECT other_id, state FROM friend_links WHERE user_id = ? ORDER BY rowid`, u.ID)
	if err != nil {
		return fmt.Errorf("load friend links: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var other, state string
		if err := rows.Scan(&other, &state); err != nil {
			return fmt.Errorf("scan friend link: %w", err)
		}
		switch state {
		case linkFriend:
			u.Friends = append(u.Friends, other)
		case linkIncoming:
			u.FriendRequests = append(u.FriendRequests, other)
		case linkOutgoing:
			u.SentRequests = append(u.SentRequests, other)
		}
	}
	return rows.Err()
}
