package service

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	appointmentserrors "medbook/internal/appointments/errors"
	reviewserrors "medbook/internal/reviews/errors"
	"medbook/internal/reviews/repository"
	"medbook/pkg/auth"
	"medbook/pkg/config"
	apperrors "medbook/pkg/errors"
	"medbook/pkg/model"
	"medbook/pkg/sanitizer"
	"medbook/pkg/validator"
)

// AppointmentVerifier is the slice of the appointment store review
// eligibility needs.
type AppointmentVerifier interface {
	FindByID(ctx context.Context, id string) (*model.Appointment, error)
	MarkReviewed(ctx context.Context, id string) error
}

// DoctorRater caches the recomputed aggregate on the doctor record.
type DoctorRater interface {
	SetRating(ctx context.Context, id string, totalRating int64, average float64) error
	AddReviewRef(ctx context.Context, id string, reviewID string) error
	RemoveReviewRef(ctx context.Context, id string, reviewID string) error
}

type ReviewService interface {
	Create(ctx context.Context, userID string, review *model.Review) error
	ListForDoctor(ctx context.Context, docID string, limit int, offset int64) ([]*model.Review, int64, error)
	ListAll(ctx context.Context, limit int, offset int64) ([]*model.Review, int64, error)
	Update(ctx context.Context, actor auth.Principal, id string, text string, rating int) error
	Delete(ctx context.Context, actor auth.Principal, id string) error
}

type reviewService struct {
	repo         repository.ReviewRepository
	appointments AppointmentVerifier
	doctors      DoctorRater
	validator    *validator.Validator
	cfg          *config.Config
}

func NewReviewService(
	repo repository.ReviewRepository,
	appointments AppointmentVerifier,
	doctors DoctorRater,
	v *validator.Validator,
	cfg *config.Config,
) ReviewService {
	return &reviewService{
		repo:         repo,
		appointments: appointments,
		doctors:      doctors,
		validator:    v,
		cfg:          cfg,
	}
}

// Create posts a review for a completed appointment: the author must be the
// appointment's patient, the appointment must be within the review window,
// and reviewable exactly once. The review insert and the reviewed flag flip
// commit together.
func (s *reviewService) Create(ctx context.Context, userID string, review *model.Review) error {
	review.UserID = userID
	review.ReviewText = sanitizer.TrimAndNormalize(review.ReviewText)

	if err := s.validator.Struct(review); err != nil {
		return err
	}

	appt, err := s.appointments.FindByID(ctx, review.AppointmentID)
	if err != nil {
		if errors.Is(err, appointmentserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Appointment", review.AppointmentID)
		}
		if errors.Is(err, appointmentserrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid appointment ID: " + review.AppointmentID)
		}
		return apperrors.Internal("Failed to load appointment", err)
	}

	if appt.UserID != userID {
		return apperrors.Forbidden("You can only review your own appointments")
	}
	if appt.DocID != review.DocID {
		return apperrors.InvalidInput("Review doctor does not match the appointment")
	}
	if !appt.Completed {
		return apperrors.Conflict("Only completed appointments can be reviewed")
	}
	if appt.Reviewed {
		return apperrors.Conflict("This appointment already has a review")
	}
	if time.Since(appt.SlotDate.Time()) > s.cfg.ReviewWindow {
		return apperrors.Conflict("The review window for this appointment has closed")
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.repo.Create(sessCtx, review); err != nil {
			if errors.Is(err, reviewserrors.ErrDuplicate) {
				return apperrors.Conflict("This appointment already has a review")
			}
			return apperrors.Internal("Failed to create review", err)
		}
		if err := s.appointments.MarkReviewed(sessCtx, review.AppointmentID); err != nil {
			if errors.Is(err, appointmentserrors.ErrAlreadyTerminal) {
				return apperrors.Conflict("This appointment already has a review")
			}
			return apperrors.Internal("Failed to flag appointment as reviewed", err)
		}
		if err := s.doctors.AddReviewRef(sessCtx, review.DocID, review.ID); err != nil {
			return apperrors.Internal("Failed to attach review to doctor", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.recomputeRating(ctx, review.DocID); err != nil {
		s.cfg.Log.Warn("Failed to recompute doctor rating", "doc_id", review.DocID, "error", err)
	}

	s.cfg.Log.Info("Review created", "id", review.ID, "doc_id", review.DocID, "rating", review.Rating)
	return nil
}

func (s *reviewService) ListForDoctor(ctx context.Context, docID string, limit int, offset int64) ([]*model.Review, int64, error) {
	reviews, err := s.repo.FindByDoctor(ctx, docID, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to list reviews", err)
	}

	count, err := s.repo.CountByDoctor(ctx, docID)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to count reviews", err)
	}

	return reviews, count, nil
}

func (s *reviewService) ListAll(ctx context.Context, limit int, offset int64) ([]*model.Review, int64, error) {
	reviews, err := s.repo.FindAll(ctx, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to list reviews", err)
	}

	count, err := s.repo.Count(ctx)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to count reviews", err)
	}

	return reviews, count, nil
}

func (s *reviewService) Update(ctx context.Context, actor auth.Principal, id string, text string, rating int) error {
	review, err := s.loadAuthorized(ctx, actor, id)
	if err != nil {
		return err
	}

	text = sanitizer.TrimAndNormalize(text)
	if text == "" || len(text) > 200 {
		return apperrors.Validation("Review text must be 1 to 200 characters", nil)
	}
	if rating < 0 || rating > 5 {
		return apperrors.Validation("Rating must be between 0 and 5", nil)
	}

	if err := s.repo.Update(ctx, id, text, rating); err != nil {
		return mapRepoError(err, id)
	}

	if err := s.recomputeRating(ctx, review.DocID); err != nil {
		s.cfg.Log.Warn("Failed to recompute doctor rating", "doc_id", review.DocID, "error", err)
	}
	return nil
}

func (s *reviewService) Delete(ctx context.Context, actor auth.Principal, id string) error {
	review, err := s.loadAuthorized(ctx, actor, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return mapRepoError(err, id)
	}

	if err := s.doctors.RemoveReviewRef(ctx, review.DocID, id); err != nil {
		s.cfg.Log.Warn("Failed to detach review from doctor", "doc_id", review.DocID, "review_id", id, "error", err)
	}
	if err := s.recomputeRating(ctx, review.DocID); err != nil {
		s.cfg.Log.Warn("Failed to recompute doctor rating", "doc_id", review.DocID, "error", err)
	}

	s.cfg.Log.Info("Review deleted", "id", id, "by_role", actor.Role)
	return nil
}

// loadAuthorized admits the review's author and admins.
func (s *reviewService) loadAuthorized(ctx context.Context, actor auth.Principal, id string) (*model.Review, error) {
	review, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, id)
	}
	if actor.Role != auth.RoleAdmin && review.UserID != actor.ID {
		return nil, apperrors.Forbidden("You can only modify your own reviews")
	}
	return review, nil
}

// recomputeRating writes the full aggregate back, never an incremental
// delta.
func (s *reviewService) recomputeRating(ctx context.Context, docID string) error {
	agg, err := s.repo.AggregateRating(ctx, docID)
	if err != nil {
		return err
	}
	return s.doctors.SetRating(ctx, docID, agg.TotalRating, agg.Average)
}

func mapRepoError(err error, id string) error {
	switch {
	case errors.Is(err, reviewserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Review", id)
	case errors.Is(err, reviewserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid review ID: " + id)
	default:
		return apperrors.Internal("Review operation failed", err)
	}
}
