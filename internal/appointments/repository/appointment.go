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

	appointmentserrors "medbook/internal/appointments/errors"
	"medbook/pkg/config"
	mongotx "medbook/pkg/db/mongo"
	"medbook/pkg/model"
)

const CollectionName = "appointments"

// PatientStat is one row of a doctor's per-patient aggregate.
type PatientStat struct {
	UserID    string `bson:"_id" json:"user_id"`
	Total     int64  `bson:"total" json:"total"`
	Completed int64  `bson:"completed" json:"completed"`
	Cancelled int64  `bson:"cancelled" json:"cancelled"`
}

// DashboardStats is the doctor dashboard rollup. Earnings sum the booking-time
// amounts of completed appointments only.
type DashboardStats struct {
	Earnings  int64                `bson:"earnings" json:"earnings"`
	Total     int64                `bson:"total" json:"total"`
	Completed int64                `bson:"completed" json:"completed"`
	Cancelled int64                `bson:"cancelled" json:"cancelled"`
	Patients  int64                `bson:"patients" json:"patients"`
	Latest    []*model.Appointment `bson:"-" json:"latest"`
}

type AppointmentRepository interface {
	Create(ctx context.Context, appt *model.Appointment) error
	FindByID(ctx context.Context, id string) (*model.Appointment, error)
	FindByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Appointment, error)
	FindByDoctor(ctx context.Context, docID string, limit int, offset int64) ([]*model.Appointment, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.Appointment, error)
	Count(ctx context.Context, filter bson.M) (int64, error)
	CountActiveByUser(ctx context.Context, userID string) (int64, error)
	CountRecentUserCancellations(ctx context.Context, userID string, since time.Time) (int64, error)
	MarkAccepted(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id string) error
	MarkCancelled(ctx context.Context, id string, by string, at time.Time) error
	SetRemedy(ctx context.Context, id string, imageURL string) error
	MarkReviewed(ctx context.Context, id string) error
	PatientStatsByDoctor(ctx context.Context, docID string) ([]PatientStat, error)
	PatientStatsAll(ctx context.Context) ([]PatientStat, error)
	DashboardByDoctor(ctx context.Context, docID string) (*DashboardStats, error)
	DeleteByDoctor(ctx context.Context, docID string) (int64, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoAppointmentRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoAppointmentRepository(cfg *config.Config) AppointmentRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoAppointmentRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoAppointmentRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %s", appointmentserrors.ErrInvalidID, id)
	}
	return oid, nil
}

func (r *mongoAppointmentRepository) Create(ctx context.Context, appt *model.Appointment) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	appt.BookedAt = time.Now().UTC().Truncate(time.Millisecond)
	appt.Pending = true

	result, err := r.collection.InsertOne(ctx, appt)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		appt.ID = oid.Hex()
	}
	return nil
}

func (r *mongoAppointmentRepository) FindByID(ctx context.Context, id string) (*model.Appointment, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var appt model.Appointment
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&appt)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, appointmentserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find appointment: %w", err)
	}

	appt.ID = id
	return &appt, nil
}

func (r *mongoAppointmentRepository) find(ctx context.Context, filter bson.M, limit int, offset int64) ([]*model.Appointment, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "booked_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	defer cursor.Close(ctx)

	var appts []*model.Appointment
	if err := cursor.All(ctx, &appts); err != nil {
		return nil, fmt.Errorf("failed to decode appointments: %w", err)
	}

	return appts, nil
}

func (r *mongoAppointmentRepository) FindByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Appointment, error) {
	return r.find(ctx, bson.M{"user_id": userID}, limit, offset)
}

func (r *mongoAppointmentRepository) FindByDoctor(ctx context.Context, docID string, limit int, offset int64) ([]*model.Appointment, error) {
	return r.find(ctx, bson.M{"doc_id": docID}, limit, offset)
}

func (r *mongoAppointmentRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Appointment, error) {
	return r.find(ctx, bson.M{}, limit, offset)
}

func (r *mongoAppointmentRepository) Count(ctx context.Context, filter bson.M) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count appointments: %w", err)
	}
	return count, nil
}

// CountActiveByUser counts appointments still holding a slot, pending or
// confirmed.
func (r *mongoAppointmentRepository) CountActiveByUser(ctx context.Context, userID string) (int64, error) {
	return r.Count(ctx, bson.M{
		"user_id":   userID,
		"cancelled": false,
		"completed": false,
	})
}

func (r *mongoAppointmentRepository) CountRecentUserCancellations(ctx context.Context, userID string, since time.Time) (int64, error) {
	return r.Count(ctx, bson.M{
		"user_id":      userID,
		"cancelled":    true,
		"cancelled_by": model.CancelledByUser,
		"cancelled_at": bson.M{"$gte": since},
	})
}

// guardedUpdate applies an update only when the filter admits the document,
// making lifecycle transitions atomic. A zero match is re-read and handed to
// classify so the caller can tell which guard condition rejected it.
func (r *mongoAppointmentRepository) guardedUpdate(ctx context.Context, id string, guard bson.M, update bson.M, classify func(*model.Appointment) error) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return err
	}

	guard["_id"] = oid
	result, err := r.collection.UpdateOne(ctx, guard, update)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	if result.MatchedCount == 0 {
		var appt model.Appointment
		findErr := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&appt)
		if errors.Is(findErr, mongo.ErrNoDocuments) {
			return appointmentserrors.ErrNotFound
		}
		if findErr != nil {
			return fmt.Errorf("failed to re-read appointment: %w", findErr)
		}
		return classify(&appt)
	}
	return nil
}

func (r *mongoAppointmentRepository) MarkAccepted(ctx context.Context, id string) error {
	return r.guardedUpdate(ctx, id,
		bson.M{"pending": true, "cancelled": false, "completed": false},
		bson.M{"$set": bson.M{"pending": false}},
		func(appt *model.Appointment) error {
			if appt.Cancelled || appt.Completed {
				return appointmentserrors.ErrAlreadyTerminal
			}
			return appointmentserrors.ErrNotPending
		},
	)
}

// MarkCompleted admits only a confirmed appointment. Pending must be false:
// completion without a prior accept is a state-machine violation.
func (r *mongoAppointmentRepository) MarkCompleted(ctx context.Context, id string) error {
	return r.guardedUpdate(ctx, id,
		bson.M{"pending": false, "cancelled": false, "completed": false},
		bson.M{"$set": bson.M{"completed": true}},
		func(appt *model.Appointment) error {
			if appt.Pending {
				return appointmentserrors.ErrNotConfirmed
			}
			return appointmentserrors.ErrAlreadyTerminal
		},
	)
}

func (r *mongoAppointmentRepository) MarkCancelled(ctx context.Context, id string, by string, at time.Time) error {
	return r.guardedUpdate(ctx, id,
		bson.M{"cancelled": false, "completed": false},
		bson.M{"$set": bson.M{
			"cancelled":    true,
			"pending":      false,
			"cancelled_by": by,
			"cancelled_at": at,
		}},
		func(*model.Appointment) error {
			return appointmentserrors.ErrAlreadyTerminal
		},
	)
}

func (r *mongoAppointmentRepository) SetRemedy(ctx context.Context, id string, imageURL string) error {
	return r.guardedUpdate(ctx, id,
		bson.M{"completed": true, "remedy_sent": false},
		bson.M{"$set": bson.M{"remedy_sent": true, "remedy_image": imageURL}},
		func(appt *model.Appointment) error {
			if !appt.Completed {
				return appointmentserrors.ErrNotCompleted
			}
			return appointmentserrors.ErrRemedyAlreadySent
		},
	)
}

func (r *mongoAppointmentRepository) MarkReviewed(ctx context.Context, id string) error {
	return r.guardedUpdate(ctx, id,
		bson.M{"completed": true, "reviewed": false},
		bson.M{"$set": bson.M{"reviewed": true}},
		func(appt *model.Appointment) error {
			if !appt.Completed {
				return appointmentserrors.ErrNotCompleted
			}
			return appointmentserrors.ErrAlreadyTerminal
		},
	)
}

// PatientStatsByDoctor groups a doctor's appointments by patient for the
// dashboard.
func (r *mongoAppointmentRepository) PatientStatsByDoctor(ctx context.Context, docID string) ([]PatientStat, error) {
	return r.patientStats(ctx, bson.M{"doc_id": docID})
}

// PatientStatsAll is the platform-wide variant for the admin patient list.
func (r *mongoAppointmentRepository) PatientStatsAll(ctx context.Context) ([]PatientStat, error) {
	return r.patientStats(ctx, bson.M{})
}

func (r *mongoAppointmentRepository) patientStats(ctx context.Context, match bson.M) ([]PatientStat, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$user_id",
			"total": bson.M{"$sum": 1},
			"completed": bson.M{"$sum": bson.M{
				"$cond": bson.A{"$completed", 1, 0},
			}},
			"cancelled": bson.M{"$sum": bson.M{
				"$cond": bson.A{"$cancelled", 1, 0},
			}},
		}}},
		{{Key: "$sort", Value: bson.M{"total": -1}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate patient stats: %w", err)
	}
	defer cursor.Close(ctx)

	var stats []PatientStat
	if err := cursor.All(ctx, &stats); err != nil {
		return nil, fmt.Errorf("failed to decode patient stats: %w", err)
	}

	return stats, nil
}

// DashboardByDoctor rolls up a doctor's earnings and volume. Earnings count
// completed appointments at the fee frozen in the booking amount.
func (r *mongoAppointmentRepository) DashboardByDoctor(ctx context.Context, docID string) (*DashboardStats, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"doc_id": docID}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": 1},
			"earnings": bson.M{"$sum": bson.M{
				"$cond": bson.A{"$completed", "$amount", 0},
			}},
			"completed": bson.M{"$sum": bson.M{
				"$cond": bson.A{"$completed", 1, 0},
			}},
			"cancelled": bson.M{"$sum": bson.M{
				"$cond": bson.A{"$cancelled", 1, 0},
			}},
			"patient_ids": bson.M{"$addToSet": "$user_id"},
		}}},
		{{Key: "$project", Value: bson.M{
			"total":     1,
			"earnings":  1,
			"completed": 1,
			"cancelled": 1,
			"patients":  bson.M{"$size": "$patient_ids"},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate dashboard stats: %w", err)
	}
	defer cursor.Close(ctx)

	stats := &DashboardStats{}
	var rows []DashboardStats
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode dashboard stats: %w", err)
	}
	if len(rows) > 0 {
		*stats = rows[0]
	}

	latest, err := r.FindByDoctor(ctx, docID, 5, 0)
	if err != nil {
		return nil, err
	}
	stats.Latest = latest

	return stats, nil
}

func (r *mongoAppointmentRepository) DeleteByDoctor(ctx context.Context, docID string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteMany(ctx, bson.M{"doc_id": docID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete appointments for doctor %s: %w", docID, err)
	}
	return result.DeletedCount, nil
}

func (r *mongoAppointmentRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
