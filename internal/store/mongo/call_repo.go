package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"chatserver/internal/domain"
)

type CallRepo struct {
	col *mongo.Collection
}

func NewCallRepo(db *mongo.Database) *CallRepo {
	return &CallRepo{col: db.Collection("calls")}
}

var _ domain.CallRepository = (*CallRepo)(nil)

func (r *CallRepo) Create(ctx context.Context, c *domain.Call) error {
	if _, err := r.col.InsertOne(ctx, c); err != nil {
		return fmt.Errorf("insert call: %w", err)
	}
	return nil
}

func (r *CallRepo) Update(ctx context.Context, c *domain.Call) error {
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": c.ID}, c)
	if err != nil {
		return fmt.Errorf("replace call: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *CallRepo) ListForUser(ctx context.Context, userID string) ([]*domain.Call, error) {
	filter := bson.M{
		"$or": bson.A{
			bson.M{"from": userID},
			bson.M{"to": userID},
		},
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find calls: %w", err)
	}
	defer cur.Close(ctx)

	var calls []*domain.Call
	if err := cur.All(ctx, &calls); err != nil {
		return nil, fmt.Errorf("decode calls: %w", err)
	}
	return calls, nil
}
