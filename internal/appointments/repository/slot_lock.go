package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	appointmentserrors "medbook/internal/appointments/errors"
	"medbook/pkg/config"
	"medbook/pkg/model"
)

// SlotLockRepository provides advisory locks over (doctor, date, time)
// slots. A TTL index on expires_at reaps locks orphaned by a crash.
type SlotLockRepository interface {
	Acquire(ctx context.Context, docID string, date model.SlotDate, slotTime string) (string, error)
	Release(ctx context.Context, lockID string) error
}

type mongoSlotLockRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewSlotLockRepository(cfg *config.Config) SlotLockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSlotLockRepository{
		cfg:        cfg,
		collection: db.Collection("slot_locks"),
	}
}

// Acquire inserts the lock document. The composite _id makes the second
// concurrent inserter fail with a duplicate key error.
func (r *mongoSlotLockRepository) Acquire(ctx context.Context, docID string, date model.SlotDate, slotTime string) (string, error) {
	now := time.Now()
	lock := model.SlotLock{
		ID:        model.SlotLockID(docID, date, slotTime),
		ExpiresAt: now.Add(r.cfg.SlotLockTTL),
		CreatedAt: now,
	}

	if _, err := r.collection.InsertOne(ctx, lock); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", appointmentserrors.ErrSlotLocked
		}
		return "", err
	}

	return lock.ID, nil
}

func (r *mongoSlotLockRepository) Release(ctx context.Context, lockID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": lockID})
	return err
}
