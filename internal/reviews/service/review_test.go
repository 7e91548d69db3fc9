package service

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	appointmentserrors "medbook/internal/appointments/errors"
	reviewserrors "medbook/internal/reviews/errors"
	"medbook/pkg/auth"
	"medbook/pkg/config"
	mongotx "medbook/pkg/db/mongo"
	apperrors "medbook/pkg/errors"
	"medbook/pkg/logger"
	"medbook/pkg/model"
	"medbook/pkg/validator"
)

// Mock stores for testing

type mockReviewRepository struct {
	createFunc          func(ctx context.Context, review *model.Review) error
	findByIDFunc        func(ctx context.Context, id string) (*model.Review, error)
	updateFunc          func(ctx context.Context, id string, text string, rating int) error
	deleteFunc          func(ctx context.Context, id string) error
	aggregateRatingFunc func(ctx context.Context, docID string) (*model.RatingAggregate, error)
}

func (m *mockReviewRepository) Create(ctx context.Context, review *model.Review) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, review)
	}
	review.ID = "rev-1"
	return nil
}

func (m *mockReviewRepository) FindByID(ctx context.Context, id string) (*model.Review, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, reviewserrors.ErrNotFound
}

func (m *mockReviewRepository) FindByDoctor(ctx context.Context, docID string, limit int, offset int64) ([]*model.Review, error) {
	return nil, nil
}

func (m *mockReviewRepository) CountByDoctor(ctx context.Context, docID string) (int64, error) {
	return 0, nil
}

func (m *mockReviewRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Review, error) {
	return nil, nil
}

func (m *mockReviewRepository) Count(ctx context.Context) (int64, error) {
	return 0, nil
}

func (m *mockReviewRepository) Update(ctx context.Context, id string, text string, rating int) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, text, rating)
	}
	return nil
}

func (m *mockReviewRepository) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func (m *mockReviewRepository) DeleteByDoctor(ctx context.Context, docID string) (int64, error) {
	return 0, nil
}

func (m *mockReviewRepository) AggregateRating(ctx context.Context, docID string) (*model.RatingAggregate, error) {
	if m.aggregateRatingFunc != nil {
		return m.aggregateRatingFunc(ctx, docID)
	}
	return &model.RatingAggregate{DocID: docID}, nil
}

func (m *mockReviewRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(mongo.NewSessionContext(ctx, nil))
}

type mockAppointments struct {
	findByIDFunc     func(ctx context.Context, id string) (*model.Appointment, error)
	markReviewedFunc func(ctx context.Context, id string) error
}

func (m *mockAppointments) FindByID(ctx context.Context, id string) (*model.Appointment, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, appointmentserrors.ErrNotFound
}

func (m *mockAppointments) MarkReviewed(ctx context.Context, id string) error {
	if m.markReviewedFunc != nil {
		return m.markReviewedFunc(ctx, id)
	}
	return nil
}

type mockRater struct {
	setRatingFunc func(ctx context.Context, id string, totalRating int64, average float64) error
}

func (m *mockRater) SetRating(ctx context.Context, id string, totalRating int64, average float64) error {
	if m.setRatingFunc != nil {
		return m.setRatingFunc(ctx, id, totalRating, average)
	}
	return nil
}

func (m *mockRater) AddReviewRef(ctx context.Context, id string, reviewID string) error {
	return nil
}

func (m *mockRater) RemoveReviewRef(ctx context.Context, id string, reviewID string) error {
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		ReviewWindow: 30 * 24 * time.Hour,
		Log: logger.New(logger.Config{
			Level:   "error",
			Format:  logger.JSON,
			Service: "test",
		}),
	}
}

func newTestService(repo *mockReviewRepository, appts *mockAppointments, rater *mockRater) *reviewService {
	return &reviewService{
		repo:         repo,
		appointments: appts,
		doctors:      rater,
		validator:    validator.New(),
		cfg:          testConfig(),
	}
}

func reviewableAppointment() *model.Appointment {
	date := model.NewSlotDate(time.Now().Add(-48 * time.Hour))
	return &model.Appointment{
		ID:        "appt-1",
		UserID:    "user-1",
		DocID:     "doc-1",
		SlotDate:  date,
		SlotTime:  "10:30 AM",
		Completed: true,
	}
}

func validReview() *model.Review {
	return &model.Review{
		DocID:         "doc-1",
		AppointmentID: "appt-1",
		ReviewText:    "Very thorough.",
		Rating:        5,
	}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	if appErr := apperrors.AsAppError(err); appErr.Code != code {
		t.Fatalf("expected code %s, got %s (%v)", code, appErr.Code, err)
	}
}

func apptsWith(appt *model.Appointment) *mockAppointments {
	return &mockAppointments{
		findByIDFunc: func(ctx context.Context, id string) (*model.Appointment, error) {
			copied := *appt
			return &copied, nil
		},
	}
}

func TestCreate_Success(t *testing.T) {
	var ratedTotal int64
	var ratedAverage float64
	repo := &mockReviewRepository{
		aggregateRatingFunc: func(ctx context.Context, docID string) (*model.RatingAggregate, error) {
			return &model.RatingAggregate{DocID: docID, TotalRating: 3, Average: 4.5}, nil
		},
	}
	rater := &mockRater{
		setRatingFunc: func(ctx context.Context, id string, totalRating int64, average float64) error {
			ratedTotal = totalRating
			ratedAverage = average
			return nil
		},
	}
	svc := newTestService(repo, apptsWith(reviewableAppointment()), rater)

	review := validReview()
	if err := svc.Create(context.Background(), "user-1", review); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if review.UserID != "user-1" {
		t.Errorf("author must come from the principal, got %q", review.UserID)
	}
	if ratedTotal != 3 || ratedAverage != 4.5 {
		t.Errorf("expected recomputed aggregate written back, got %d/%.1f", ratedTotal, ratedAverage)
	}
}

func TestCreate_EligibilityDenials(t *testing.T) {
	cases := []struct {
		name   string
		userID string
		mutate func(appt *model.Appointment)
		code   string
	}{
		{
			name:   "not the author",
			userID: "user-2",
			mutate: func(appt *model.Appointment) {},
			code:   apperrors.CodeForbidden,
		},
		{
			name:   "not completed",
			userID: "user-1",
			mutate: func(appt *model.Appointment) { appt.Completed = false; appt.Pending = true },
			code:   apperrors.CodeConflict,
		},
		{
			name:   "already reviewed",
			userID: "user-1",
			mutate: func(appt *model.Appointment) { appt.Reviewed = true },
			code:   apperrors.CodeConflict,
		},
		{
			name:   "doctor mismatch",
			userID: "user-1",
			mutate: func(appt *model.Appointment) { appt.DocID = "doc-9" },
			code:   apperrors.CodeInvalidInput,
		},
		{
			name:   "window closed",
			userID: "user-1",
			mutate: func(appt *model.Appointment) {
				appt.SlotDate = model.NewSlotDate(time.Now().Add(-31 * 24 * time.Hour))
			},
			code: apperrors.CodeConflict,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			appt := reviewableAppointment()
			tc.mutate(appt)
			svc := newTestService(&mockReviewRepository{}, apptsWith(appt), &mockRater{})

			err := svc.Create(context.Background(), tc.userID, validReview())
			assertCode(t, err, tc.code)
		})
	}
}

func TestCreate_DuplicateInsertConflicts(t *testing.T) {
	repo := &mockReviewRepository{
		createFunc: func(ctx context.Context, review *model.Review) error {
			return reviewserrors.ErrDuplicate
		},
	}
	svc := newTestService(repo, apptsWith(reviewableAppointment()), &mockRater{})

	err := svc.Create(context.Background(), "user-1", validReview())
	assertCode(t, err, apperrors.CodeConflict)
}

func TestCreate_MissingAppointment(t *testing.T) {
	svc := newTestService(&mockReviewRepository{}, &mockAppointments{}, &mockRater{})

	err := svc.Create(context.Background(), "user-1", validReview())
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestUpdate_AuthorOnly(t *testing.T) {
	repo := &mockReviewRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Review, error) {
			return &model.Review{ID: id, UserID: "user-1", DocID: "doc-1"}, nil
		},
	}
	svc := newTestService(repo, &mockAppointments{}, &mockRater{})

	err := svc.Update(context.Background(), auth.Principal{ID: "user-2", Role: auth.RolePatient}, "rev-1", "Edited.", 4)
	assertCode(t, err, apperrors.CodeForbidden)

	if err := svc.Update(context.Background(), auth.Principal{ID: "user-1", Role: auth.RolePatient}, "rev-1", "Edited.", 4); err != nil {
		t.Fatalf("author update failed: %v", err)
	}
	if err := svc.Update(context.Background(), auth.Principal{ID: "admin", Role: auth.RoleAdmin}, "rev-1", "Moderated.", 4); err != nil {
		t.Fatalf("admin update failed: %v", err)
	}
}

func TestDelete_RecomputesRating(t *testing.T) {
	recomputed := false
	repo := &mockReviewRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Review, error) {
			return &model.Review{ID: id, UserID: "user-1", DocID: "doc-1"}, nil
		},
		aggregateRatingFunc: func(ctx context.Context, docID string) (*model.RatingAggregate, error) {
			return &model.RatingAggregate{DocID: docID}, nil
		},
	}
	rater := &mockRater{
		setRatingFunc: func(ctx context.Context, id string, totalRating int64, average float64) error {
			recomputed = true
			if totalRating != 0 || average != 0 {
				t.Errorf("empty collection must reset the aggregate, got %d/%.1f", totalRating, average)
			}
			return nil
		},
	}
	svc := newTestService(repo, &mockAppointments{}, rater)

	if err := svc.Delete(context.Background(), auth.Principal{ID: "user-1", Role: auth.RolePatient}, "rev-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !recomputed {
		t.Error("rating must be recomputed after delete")
	}
}
