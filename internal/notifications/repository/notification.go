package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"medbook/pkg/config"
	"medbook/pkg/model"
)

const CollectionName = "notifications"

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	FindByReceiver(ctx context.Context, receiverID string, limit int, offset int64) ([]*model.NotificationView, error)
	CountByReceiver(ctx context.Context, receiverID string) (int64, error)
	CountUnread(ctx context.Context, receiverID string) (int64, error)
	MarkRead(ctx context.Context, id string, receiverID string) error
	MarkAllRead(ctx context.Context, receiverID string) (int64, error)
}

type mongoNotificationRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoNotificationRepository(cfg *config.Config) NotificationRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoNotificationRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoNotificationRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoNotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	n.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	result, err := r.collection.InsertOne(ctx, n)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		n.ID = oid.Hex()
	}
	return nil
}

// FindByReceiver joins each notification with its appointment's slot so list
// views show the slot without denormalizing it into the notification.
func (r *mongoNotificationRepository) FindByReceiver(ctx context.Context, receiverID string, limit int, offset int64) ([]*model.NotificationView, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"receiver_id": receiverID}}},
		{{Key: "$sort", Value: bson.M{"created_at": -1}}},
		{{Key: "$skip", Value: offset}},
		{{Key: "$limit", Value: int64(limit)}},
		{{Key: "$lookup", Value: bson.M{
			"from": "appointments",
			"let":  bson.M{"apptID": bson.M{"$toObjectId": "$appointment_id"}},
			"pipeline": mongo.Pipeline{
				{{Key: "$match", Value: bson.M{"$expr": bson.M{"$eq": bson.A{"$_id", "$$apptID"}}}}},
				{{Key: "$project", Value: bson.M{"slot_date": 1, "slot_time": 1}}},
			},
			"as": "appointment",
		}}},
		{{Key: "$addFields", Value: bson.M{
			"slot_date": bson.M{"$arrayElemAt": bson.A{"$appointment.slot_date", 0}},
			"slot_time": bson.M{"$arrayElemAt": bson.A{"$appointment.slot_time", 0}},
		}}},
		{{Key: "$project", Value: bson.M{"appointment": 0}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer cursor.Close(ctx)

	var views []*model.NotificationView
	if err := cursor.All(ctx, &views); err != nil {
		return nil, fmt.Errorf("failed to decode notifications: %w", err)
	}

	return views, nil
}

func (r *mongoNotificationRepository) CountByReceiver(ctx context.Context, receiverID string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"receiver_id": receiverID})
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}

func (r *mongoNotificationRepository) CountUnread(ctx context.Context, receiverID string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"receiver_id": receiverID, "is_read": false})
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead scopes the update to the receiver so one user cannot mark
// another's notification.
func (r *mongoNotificationRepository) MarkRead(ctx context.Context, id string, receiverID string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid notification ID format: %s", id)
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": oid, "receiver_id": receiverID},
		bson.M{"$set": bson.M{"is_read": true}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *mongoNotificationRepository) MarkAllRead(ctx context.Context, receiverID string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.UpdateMany(ctx,
		bson.M{"receiver_id": receiverID, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return result.ModifiedCount, nil
}
