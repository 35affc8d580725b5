package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"chatserver/internal/domain"
)

type MessageRepo struct {
	col *mongo.Collection
}

func NewMessageRepo(db *mongo.Database) *MessageRepo {
	return &MessageRepo{col: db.Collection("messages")}
}

var _ domain.MessageRepository = (*MessageRepo)(nil)

func (r *MessageRepo) Create(ctx context.Context, m *domain.Message) error {
	m.ID = uuid.NewString()
	m.CreatedAt = time.Now().UTC()
	if m.Attachments == nil {
		m.Attachments = []domain.Attachment{}
	}

	if _, err := r.col.InsertOne(ctx, m); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListBetween returns the conversation between a and b in chronological order.
func (r *MessageRepo) ListBetween(ctx context.Context, a, b string) ([]*domain.Message, error) {
	filter := bson.M{
		"$or": bson.A{
			bson.M{"sender": a, "receiver": b},
			bson.M{"sender": b, "receiver": a},
		},
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})

	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}
	defer cur.Close(ctx)

	var msgs []*domain.Message
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	return msgs, nil
}
