package service

import (
	"context"
	"errors"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	appointmentserrors "medbook/internal/appointments/errors"
	"medbook/internal/appointments/repository"
	doctorserrors "medbook/internal/doctors/errors"
	"medbook/internal/realtime"
	userserrors "medbook/internal/users/errors"
	"medbook/pkg/auth"
	"medbook/pkg/config"
	apperrors "medbook/pkg/errors"
	"medbook/pkg/imagestore"
	"medbook/pkg/kafka"
	"medbook/pkg/mail"
	"medbook/pkg/model"
	"medbook/pkg/sanitizer"
	"medbook/pkg/validator"
)

type AppointmentService interface {
	Book(ctx context.Context, req *model.BookingRequest) (*model.Appointment, error)
	Accept(ctx context.Context, doctorID, apptID string) error
	Complete(ctx context.Context, doctorID, apptID string) error
	Cancel(ctx context.Context, actor auth.Principal, apptID string) error
	SendRemedy(ctx context.Context, doctorID, apptID string, image io.Reader, imageName string) error
	GetByID(ctx context.Context, actor auth.Principal, id string) (*model.Appointment, error)
	ListForUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Appointment, int64, error)
	ListForDoctor(ctx context.Context, docID string, limit int, offset int64) ([]*model.Appointment, int64, error)
	ListAll(ctx context.Context, limit int, offset int64) ([]*model.Appointment, int64, error)
	PatientStats(ctx context.Context, docID string) ([]repository.PatientStat, error)
	AdminPatientStats(ctx context.Context) ([]repository.PatientStat, error)
	Dashboard(ctx context.Context, docID string) (*repository.DashboardStats, error)
	AdminDashboard(ctx context.Context) (*AdminDashboard, error)
	RemoveDoctor(ctx context.Context, docID string) error
}

type appointmentService struct {
	repo      repository.AppointmentRepository
	locks     repository.SlotLockRepository
	doctors   DoctorDirectory
	users     UserDirectory
	notifier  NotificationSink
	reviews   ReviewPurger
	gateway   realtime.Gateway
	mailer    *mail.Dispatcher
	events    kafka.Publisher
	images    imagestore.Store
	validator *validator.Validator
	cfg       *config.Config
}

func NewAppointmentService(
	repo repository.AppointmentRepository,
	locks repository.SlotLockRepository,
	doctors DoctorDirectory,
	users UserDirectory,
	notifier NotificationSink,
	reviews ReviewPurger,
	gateway realtime.Gateway,
	mailer *mail.Dispatcher,
	events kafka.Publisher,
	images imagestore.Store,
	v *validator.Validator,
	cfg *config.Config,
) AppointmentService {
	return &appointmentService{
		repo:      repo,
		locks:     locks,
		doctors:   doctors,
		users:     users,
		notifier:  notifier,
		reviews:   reviews,
		gateway:   gateway,
		mailer:    mailer,
		events:    events,
		images:    images,
		validator: v,
		cfg:       cfg,
	}
}

// Book reserves a slot and creates the pending appointment. Two guards keep
// concurrent bookers out of the same slot: an advisory lock narrows the race
// window, and the conditional slot push inside the transaction is the final
// arbiter.
func (s *appointmentService) Book(ctx context.Context, req *model.BookingRequest) (*model.Appointment, error) {
	req.SlotTime = sanitizer.NormalizeSlotTime(req.SlotTime)
	req.Patient.Name = sanitizer.NormalizeName(req.Patient.Name)
	req.Patient.Phone = sanitizer.NormalizePhone(req.Patient.Phone)

	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	date, err := model.ParseSlotDate(req.SlotDate)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	user, err := s.users.FindByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("User", req.UserID)
		}
		return nil, apperrors.Internal("Failed to load user", err)
	}
	if user.IsBlocked {
		return nil, apperrors.Forbidden("This account has been blocked")
	}

	doctor, err := s.doctors.FindByID(ctx, req.DocID)
	if err != nil {
		if errors.Is(err, doctorserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Doctor", req.DocID)
		}
		if errors.Is(err, doctorserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid doctor ID: " + req.DocID)
		}
		return nil, apperrors.Internal("Failed to load doctor", err)
	}
	if !doctor.Available {
		return nil, apperrors.Conflict("Doctor is not accepting appointments")
	}

	if err := s.checkBookingCaps(ctx, req.UserID); err != nil {
		return nil, err
	}

	if doctor.SlotTaken(date, req.SlotTime) {
		return nil, apperrors.Conflict("This slot is already booked")
	}

	lockID, err := s.locks.Acquire(ctx, req.DocID, date, req.SlotTime)
	if err != nil {
		if errors.Is(err, appointmentserrors.ErrSlotLocked) {
			return nil, apperrors.Conflict("This slot is being booked by someone else")
		}
		return nil, apperrors.Internal("Failed to acquire slot lock", err)
	}
	defer func() {
		if releaseErr := s.locks.Release(ctx, lockID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release slot lock", "lock_id", lockID, "error", releaseErr)
		}
	}()

	appt := &model.Appointment{
		UserID:   req.UserID,
		DocID:    req.DocID,
		SlotDate: date,
		SlotTime: req.SlotTime,
		Amount:   doctor.Fees,
		Patient:  req.Patient,
		Snapshot: model.BookingSnapshot{
			DoctorName:      doctor.Name,
			DoctorSpecialty: doctor.Specialty,
			DoctorFees:      doctor.Fees,
			PatientName:     user.Name,
			PatientEmail:    user.Email,
		},
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.doctors.BookSlot(sessCtx, req.DocID, date, req.SlotTime); err != nil {
			switch {
			case errors.Is(err, doctorserrors.ErrSlotTaken):
				return apperrors.Conflict("This slot is already booked")
			case errors.Is(err, doctorserrors.ErrUnavailable):
				return apperrors.Conflict("Doctor is not accepting appointments")
			case errors.Is(err, doctorserrors.ErrNotFound):
				return apperrors.NotFoundWithID("Doctor", req.DocID)
			default:
				return apperrors.Internal("Failed to reserve slot", err)
			}
		}
		if err := s.repo.Create(sessCtx, appt); err != nil {
			return apperrors.Internal("Failed to create appointment", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Booking failed", "user_id", req.UserID, "doc_id", req.DocID, "error", err)
		return nil, err
	}

	if err := s.notifier.Notify(ctx, &model.Notification{
		SenderID:      req.UserID,
		ReceiverID:    req.DocID,
		AppointmentID: appt.ID,
		Type:          model.NotifyAppointmentRequest,
		Message:       user.Name + " requested an appointment",
	}); err != nil {
		return nil, apperrors.Internal("Appointment booked but notification failed", err)
	}

	s.gateway.EmitNewAppointment(req.DocID, appt)
	s.enqueueMail(user.Email, mail.AppointmentBooked(user.Name, doctor.Name, date.String(), req.SlotTime))
	s.publishEvent(ctx, kafka.EventBooked, appt, auth.RolePatient)

	s.cfg.Log.Info("Appointment booked",
		"id", appt.ID,
		"user_id", req.UserID,
		"doc_id", req.DocID,
		"slot_date", date,
		"slot_time", req.SlotTime,
	)
	return appt, nil
}

// checkBookingCaps enforces the per-user quotas: active appointments and
// recent self-cancellations.
func (s *appointmentService) checkBookingCaps(ctx context.Context, userID string) error {
	active, err := s.repo.CountActiveByUser(ctx, userID)
	if err != nil {
		return apperrors.Internal("Failed to count active appointments", err)
	}
	if active >= int64(s.cfg.MaxActiveAppointments) {
		return apperrors.RateLimited("You have too many active appointments")
	}

	since := time.Now().Add(-s.cfg.CancellationWindow)
	cancelled, err := s.repo.CountRecentUserCancellations(ctx, userID, since)
	if err != nil {
		return apperrors.Internal("Failed to count recent cancellations", err)
	}
	if cancelled >= int64(s.cfg.MaxRecentCancellations) {
		return apperrors.RateLimited("Too many recent cancellations, try again later")
	}

	return nil
}

func (s *appointmentService) enqueueMail(to string, msg mail.Message) {
	if s.mailer == nil || to == "" {
		return
	}
	msg.To = to
	s.mailer.Enqueue(msg)
}

func (s *appointmentService) publishEvent(ctx context.Context, eventType string, appt *model.Appointment, actorRole string) {
	if err := s.events.Publish(ctx, kafka.NewAppointmentEvent(eventType, appt, actorRole)); err != nil {
		s.cfg.Log.Warn("Failed to publish appointment event", "type", eventType, "appointment_id", appt.ID, "error", err)
	}
}
