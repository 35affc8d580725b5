package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"chatserver/internal/domain"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

var _ domain.MessageRepository = (*MessageRepo)(nil)

func (r *MessageRepo) Create(ctx context.Context, m *domain.Message) error {
	m.ID = uuid.NewString()
	m.CreatedAt = time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO messages (id, sender_id, receiver_id, text, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := tx.ExecContext(ctx, query, m.ID, m.Sender, m.Receiver, m.Text, m.CreatedAt); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	for i, a := range m.Attachments {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO message_attachments (message_id, position, filename, original_name, mime_type, size, url, kind)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, m.ID, i, a.Filename, a.OriginalName, a.MimeType, a.Size, a.URL, string(a.Kind)); err != nil {
			return fmt.Errorf("insert attachment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListBetween returns the conversation between a and b in chronological order.
func (r *MessageRepo) ListBetween(ctx context.Context, a, b string) ([]*domain.Message, error) {
	query := `
		SELECT id, sender_id, receiver_id, text, created_at
		FROM messages
		WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, a, b, b, a)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var msgs []*domain.Message
	for rows.Next() {
		m := &domain.Message{Attachments: []domain.Attachment{}}
		if err := rows.Scan(&m.ID, &m.Sender, &m.Receiver, &m.Text, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, m := range msgs {
		if err := r.loadAttachments(ctx, m); err != nil {
			return nil, err
		}
	}
	return msgs, nil
}

func (r *MessageRepo) loadAttachments(ctx context.Context, m *domain.Message) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT filename, original_name, mime_type, size, url, kind
		FROM message_attachments
		WHERE message_id = ?
		ORDER BY position
	`, m.ID)
	if err != nil {
		return fmt.Errorf("load attachments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a domain.Attachment
		var kind string
		if err := rows.Scan(&a.Filename, &a.OriginalName, &a.MimeType, &a.Size, &a.URL, &kind); err != nil {
			return fmt.Errorf("scan attachment: %w", err)
		}
		a.Kind = domain.AttachmentKind(kind)
		m.Attachments = append(m.Attachments, a)
	}
	return rows.Err()
}
