package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	doctorserrors "medbook/internal/doctors/errors"
	"medbook/pkg/config"
	"medbook/pkg/model"
)

const CollectionName = "doctors"

type DoctorRepository interface {
	Create(ctx context.Context, doctor *model.Doctor) error
	FindByID(ctx context.Context, id string) (*model.Doctor, error)
	FindByEmail(ctx context.Context, email string) (*model.Doctor, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.Doctor, error)
	Count(ctx context.Context) (int64, error)
	UpdateProfile(ctx context.Context, id string, updates bson.M) error
	SetAvailability(ctx context.Context, id string, available bool) error
	SetPassword(ctx context.Context, id string, passwordHash string) error
	BookSlot(ctx context.Context, id string, date model.SlotDate, slotTime string) error
	ReleaseSlot(ctx context.Context, id string, date model.SlotDate, slotTime string) error
	SetRating(ctx context.Context, id string, totalRating int64, average float64) error
	AddReviewRef(ctx context.Context, id string, reviewID string) error
	RemoveReviewRef(ctx context.Context, id string, reviewID string) error
	Delete(ctx context.Context, id string) error
}

type mongoDoctorRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoDoctorRepository(cfg *config.Config) DoctorRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoDoctorRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

// withTimeout wraps the context with a timeout unless already inside a
// transaction. SessionContext cannot be wrapped without breaking transaction
// semantics.
func (r *mongoDoctorRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %s", doctorserrors.ErrInvalidID, id)
	}
	return oid, nil
}

func (r *mongoDoctorRepository) Create(ctx context.Context, doctor *model.Doctor) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	doctor.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	if doctor.SlotsBooked == nil {
		doctor.SlotsBooked = map[string][]string{}
	}
	if doctor.ReviewIDs == nil {
		doctor.ReviewIDs = []string{}
	}

	result, err := r.collection.InsertOne(ctx, doctor)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return doctorserrors.ErrEmailTaken
		}
		return fmt.Errorf("failed to create doctor: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		doctor.ID = oid.Hex()
	}
	return nil
}

func (r *mongoDoctorRepository) FindByID(ctx context.Context, id string) (*model.Doctor, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var doctor model.Doctor
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doctor)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, doctorserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find doctor: %w", err)
	}

	doctor.ID = id
	return &doctor, nil
}

func (r *mongoDoctorRepository) FindByEmail(ctx context.Context, email string) (*model.Doctor, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var doctor model.Doctor
	err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&doctor)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, doctorserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find doctor by email: %w", err)
	}

	return &doctor, nil
}

func (r *mongoDoctorRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Doctor, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	defer cursor.Close(ctx)

	var doctors []*model.Doctor
	if err := cursor.All(ctx, &doctors); err != nil {
		return nil, fmt.Errorf("failed to decode doctors: %w", err)
	}

	return doctors, nil
}

func (r *mongoDoctorRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count doctors: %w", err)
	}
	return count, nil
}

func (r *mongoDoctorRepository) UpdateProfile(ctx context.Context, id string, updates bson.M) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return err
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": updates})
	if err != nil {
		return fmt.Errorf("failed to update doctor: %w", err)
	}
	if result.MatchedCount == 0 {
		return doctorserrors.ErrNotFound
	}
	return nil
}

func (r *mongoDoctorRepository) SetAvailability(ctx context.Context, id string, available bool) error {
	return r.UpdateProfile(ctx, id, bson.M{"available": available})
}

func (r *mongoDoctorRepository) SetPassword(ctx context.Context, id string, passwordHash string) error {
	return r.UpdateProfile(ctx, id, bson.M{"password": passwordHash})
}

// BookSlot appends the slot time atomically. The filter admits only an
// available doctor whose ledger does not already hold the slot, so exactly
// one of N concurrent bookers can match.
func (r *mongoDoctorRepository) BookSlot(ctx context.Context, id string, date model.SlotDate, slotTime string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return err
	}

	field := "slots_booked." + date.String()
	filter := bson.M{
		"_id":       oid,
		"available": true,
		field:       bson.M{"$ne": slotTime},
	}
	update := bson.M{"$push": bson.M{field: slotTime}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to book slot: %w", err)
	}
	if result.MatchedCount == 0 {
		return r.classifyBookFailure(ctx, oid)
	}
	return nil
}

// classifyBookFailure re-reads the doctor to tell apart the reasons the
// conditional update can miss: no such doctor, unavailable, or the slot is
// already held.
func (r *mongoDoctorRepository) classifyBookFailure(ctx context.Context, oid primitive.ObjectID) error {
	var doctor model.Doctor
	err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doctor)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return doctorserrors.ErrNotFound
		}
		return fmt.Errorf("failed to classify booking failure: %w", err)
	}
	if !doctor.Available {
		return doctorserrors.ErrUnavailable
	}
	return doctorserrors.ErrSlotTaken
}

func (r *mongoDoctorRepository) ReleaseSlot(ctx context.Context, id string, date model.SlotDate, slotTime string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return err
	}

	field := "slots_booked." + date.String()
	_, err = r.collection.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$pull": bson.M{field: slotTime}},
	)
	if err != nil {
		return fmt.Errorf("failed to release slot: %w", err)
	}
	return nil
}

func (r *mongoDoctorRepository) SetRating(ctx context.Context, id string, totalRating int64, average float64) error {
	return r.UpdateProfile(ctx, id, bson.M{
		"total_rating":   totalRating,
		"average_rating": average,
	})
}

func (r *mongoDoctorRepository) AddReviewRef(ctx context.Context, id string, reviewID string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return err
	}

	_, err = r.collection.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$addToSet": bson.M{"review_ids": reviewID}},
	)
	if err != nil {
		return fmt.Errorf("failed to attach review ref: %w", err)
	}
	return nil
}

func (r *mongoDoctorRepository) RemoveReviewRef(ctx context.Context, id string, reviewID string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return err
	}

	_, err = r.collection.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$pull": bson.M{"review_ids": reviewID}},
	)
	if err != nil {
		return fmt.Errorf("failed to detach review ref: %w", err)
	}
	return nil
}

func (r *mongoDoctorRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return err
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete doctor: %w", err)
	}
	if result.DeletedCount == 0 {
		return doctorserrors.ErrNotFound
	}
	return nil
}
