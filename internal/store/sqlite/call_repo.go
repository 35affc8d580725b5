package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"chatserver/internal/domain"
)

type CallRepo struct {
	db *sql.DB
}

func NewCallRepo(db *sql.DB) *CallRepo {
	return &CallRepo{db: db}
}

var _ domain.CallRepository = (*CallRepo)(nil)

func (r *CallRepo) Create(ctx context.Context, c *domain.Call) error {
	meta, err := marshalMetadata(c.Metadata)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO calls (id, from_id, to_id, status, metadata, created_at, accepted_at, ended_at, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := r.db.ExecContext(ctx, query,
		c.ID, c.From, c.To, string(c.Status), meta, c.CreatedAt, c.AcceptedAt, c.EndedAt, c.Reason,
	); err != nil {
		return fmt.Errorf("insert call: %w", err)
	}
	return nil
}

func (r *CallRepo) Update(ctx context.Context, c *domain.Call) error {
	query := `UPDATE calls SET status = ?, accepted_at = ?, ended_at = ?, reason = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query,
		string(c.Status), c.AcceptedAt, c.EndedAt, c.Reason, c.ID,
	); err != nil {
		return fmt.Errorf("update call: %w", err)
	}
	return nil
}

func (r *CallRepo) ListForUser(ctx context.Context, userID string) ([]*domain.Call, error) {
	query := `
		SELECT id, from_id, to_id, status, metadata, created_at, accepted_at, ended_at, reason
		FROM calls
		WHERE from_id = ? OR to_id = ?
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("list calls: %w", err)
	}
	defer rows.Close()

	var calls []*domain.Call
	for rows.Next() {
		c := &domain.Call{}
		var status string
		var meta sql.NullString
		if err := rows.Scan(&c.ID, &c.From, &c.To, &status, &meta, &c.CreatedAt, &c.AcceptedAt, &c.EndedAt, &c.Reason); err != nil {
			return nil, fmt.Errorf("scan call: %w", err)
		}
		c.Status = domain.CallStatus(status)
		if meta.Valid && meta.String != "" {
			if err := json.Unmarshal([]byte(meta.String), &c.Metadata); err != nil {
				return nil, fmt.Errorf("decode call metadata: %w", err)
			}
		}
		calls = append(calls, c)
	}
	return calls, rows.Err()
}

func marshalMetadata(m map[string]any) (sql.NullString, error) {
	if m == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode call metadata: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}
