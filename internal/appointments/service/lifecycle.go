package service

import (
	"context"
	"errors"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	appointmentserrors "medbook/internal/appointments/errors"
	"medbook/pkg/auth"
	apperrors "medbook/pkg/errors"
	"medbook/pkg/kafka"
	"medbook/pkg/mail"
	"medbook/pkg/model"
)

// Accept confirms a pending appointment. Only the appointment's own doctor
// may accept it.
func (s *appointmentService) Accept(ctx context.Context, doctorID, apptID string) error {
	appt, err := s.loadOwned(ctx, apptID, doctorID)
	if err != nil {
		return err
	}

	if err := s.repo.MarkAccepted(ctx, apptID); err != nil {
		return mapLifecycleError(err, apptID)
	}
	appt.Pending = false

	s.notifyBestEffort(ctx, &model.Notification{
		SenderID:      doctorID,
		ReceiverID:    appt.UserID,
		AppointmentID: apptID,
		Type:          model.NotifyAppointmentAccepted,
		Message:       "Dr. " + appt.Snapshot.DoctorName + " confirmed your appointment",
	})
	s.gateway.EmitStatusUpdate(appt.UserID, apptID, model.StateConfirmed)
	s.enqueueMail(appt.Snapshot.PatientEmail, mail.AppointmentAccepted(
		appt.Snapshot.PatientName, appt.Snapshot.DoctorName, appt.SlotDate.String(), appt.SlotTime))
	s.publishEvent(ctx, kafka.EventAccepted, appt, auth.RoleDoctor)

	s.cfg.Log.Info("Appointment accepted", "id", apptID, "doc_id", doctorID)
	return nil
}

// Complete marks the appointment done. The booked slot is left in the ledger
// since its time has passed.
func (s *appointmentService) Complete(ctx context.Context, doctorID, apptID string) error {
	appt, err := s.loadOwned(ctx, apptID, doctorID)
	if err != nil {
		return err
	}

	if err := s.repo.MarkCompleted(ctx, apptID); err != nil {
		return mapLifecycleError(err, apptID)
	}
	appt.Completed = true
	appt.Pending = false

	s.notifyBestEffort(ctx, &model.Notification{
		SenderID:      doctorID,
		ReceiverID:    appt.UserID,
		AppointmentID: apptID,
		Type:          model.NotifyAppointmentCompleted,
		Message:       "Your appointment with Dr. " + appt.Snapshot.DoctorName + " is completed",
	})
	s.gateway.EmitStatusUpdate(appt.UserID, apptID, model.StateCompleted)
	s.publishEvent(ctx, kafka.EventCompleted, appt, auth.RoleDoctor)

	s.cfg.Log.Info("Appointment completed", "id", apptID, "doc_id", doctorID)
	return nil
}

// Cancel releases the slot and records who cancelled. Patients may cancel
// their own appointments, doctors their own schedule, and admins any.
func (s *appointmentService) Cancel(ctx context.Context, actor auth.Principal, apptID string) error {
	appt, err := s.load(ctx, apptID)
	if err != nil {
		return err
	}

	var cancelledBy string
	switch actor.Role {
	case auth.RolePatient:
		if appt.UserID != actor.ID {
			return apperrors.Forbidden("You can only cancel your own appointments")
		}
		cancelledBy = model.CancelledByUser
	case auth.RoleDoctor:
		if appt.DocID != actor.ID {
			return apperrors.Forbidden("You can only cancel your own appointments")
		}
		cancelledBy = model.CancelledByDoctor
	case auth.RoleAdmin:
		cancelledBy = model.CancelledByAdmin
	default:
		return apperrors.Forbidden("Unknown role")
	}

	now := time.Now().UTC()
	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.repo.MarkCancelled(sessCtx, apptID, cancelledBy, now); err != nil {
			return mapLifecycleError(err, apptID)
		}
		if err := s.doctors.ReleaseSlot(sessCtx, appt.DocID, appt.SlotDate, appt.SlotTime); err != nil {
			return apperrors.Internal("Failed to release slot", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	appt.Cancelled = true
	appt.Pending = false

	s.fanOutCancellation(ctx, appt, actor, cancelledBy)

	s.cfg.Log.Info("Appointment cancelled", "id", apptID, "by", cancelledBy)
	return nil
}

func (s *appointmentService) fanOutCancellation(ctx context.Context, appt *model.Appointment, actor auth.Principal, cancelledBy string) {
	notifType := model.NotifyAppointmentCancelledByUser
	receiver := appt.DocID
	if cancelledBy != model.CancelledByUser {
		notifType = model.NotifyAppointmentCancelledByDoctor
		receiver = appt.UserID
	}

	s.notifyBestEffort(ctx, &model.Notification{
		SenderID:      actor.ID,
		ReceiverID:    receiver,
		AppointmentID: appt.ID,
		Type:          notifType,
		Message:       "Appointment on " + appt.SlotDate.String() + " at " + appt.SlotTime + " was cancelled",
	})

	s.gateway.EmitStatusUpdate(appt.UserID, appt.ID, model.StateCancelled)
	s.gateway.EmitStatusUpdate(appt.DocID, appt.ID, model.StateCancelled)
	s.enqueueMail(appt.Snapshot.PatientEmail, mail.AppointmentCancelled(
		appt.Snapshot.PatientName, appt.Snapshot.DoctorName, appt.SlotDate.String(), appt.SlotTime, cancelledBy))
	s.publishEvent(ctx, kafka.EventCancelled, appt, actor.Role)
}

// SendRemedy uploads a prescription image for a completed appointment,
// exactly once.
func (s *appointmentService) SendRemedy(ctx context.Context, doctorID, apptID string, image io.Reader, imageName string) error {
	appt, err := s.loadOwned(ctx, apptID, doctorID)
	if err != nil {
		return err
	}
	if !appt.Completed {
		return apperrors.Conflict("Remedy can only be sent for a completed appointment")
	}
	if appt.RemedySent {
		return apperrors.Conflict("Remedy was already sent for this appointment")
	}
	if image == nil {
		return apperrors.InvalidInput("Remedy image is required")
	}

	url, err := s.images.Save(imageName, image)
	if err != nil {
		return err
	}

	if err := s.repo.SetRemedy(ctx, apptID, url); err != nil {
		if removeErr := s.images.Remove(url); removeErr != nil {
			s.cfg.Log.Warn("Failed to remove orphaned remedy image", "url", url, "error", removeErr)
		}
		return mapLifecycleError(err, apptID)
	}
	appt.RemedySent = true
	appt.RemedyImage = url

	s.notifyBestEffort(ctx, &model.Notification{
		SenderID:      doctorID,
		ReceiverID:    appt.UserID,
		AppointmentID: apptID,
		Type:          model.NotifyRemedySent,
		Message:       "Dr. " + appt.Snapshot.DoctorName + " sent you a prescription",
	})
	s.gateway.EmitStatusUpdate(appt.UserID, apptID, model.StateCompleted)
	s.enqueueMail(appt.Snapshot.PatientEmail, mail.RemedySent(appt.Snapshot.PatientName, appt.Snapshot.DoctorName))
	s.publishEvent(ctx, kafka.EventRemedy, appt, auth.RoleDoctor)

	s.cfg.Log.Info("Remedy sent", "appointment_id", apptID, "doc_id", doctorID)
	return nil
}

// RemoveDoctor deletes a doctor and cascades: active appointments are
// cancelled with their slots conceptually freed (the ledger goes with the
// doctor), then appointments and reviews are purged.
func (s *appointmentService) RemoveDoctor(ctx context.Context, docID string) error {
	appts, err := s.repo.FindByDoctor(ctx, docID, 0, 0)
	if err != nil {
		return apperrors.Internal("Failed to load doctor's appointments", err)
	}

	now := time.Now().UTC()
	for _, appt := range appts {
		if appt.Terminal() {
			continue
		}
		if err := s.repo.MarkCancelled(ctx, appt.ID, model.CancelledByAdmin, now); err != nil {
			s.cfg.Log.Warn("Failed to cancel appointment during doctor removal", "appointment_id", appt.ID, "error", err)
			continue
		}
		s.notifyBestEffort(ctx, &model.Notification{
			SenderID:      docID,
			ReceiverID:    appt.UserID,
			AppointmentID: appt.ID,
			Type:          model.NotifyAppointmentCancelledByDoctor,
			Message:       "Your appointment was cancelled because the doctor left the platform",
		})
		s.gateway.EmitStatusUpdate(appt.UserID, appt.ID, model.StateCancelled)
		s.enqueueMail(appt.Snapshot.PatientEmail, mail.AppointmentCancelled(
			appt.Snapshot.PatientName, appt.Snapshot.DoctorName, appt.SlotDate.String(), appt.SlotTime, model.CancelledByAdmin))
	}

	deleted, err := s.repo.DeleteByDoctor(ctx, docID)
	if err != nil {
		return apperrors.Internal("Failed to purge doctor's appointments", err)
	}

	purgedReviews, err := s.reviews.DeleteByDoctor(ctx, docID)
	if err != nil {
		return apperrors.Internal("Failed to purge doctor's reviews", err)
	}

	if err := s.doctors.Delete(ctx, docID); err != nil {
		return apperrors.Internal("Failed to delete doctor", err)
	}

	s.cfg.Log.Info("Doctor removed",
		"doc_id", docID,
		"appointments_purged", deleted,
		"reviews_purged", purgedReviews,
	)
	return nil
}

func (s *appointmentService) notifyBestEffort(ctx context.Context, n *model.Notification) {
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.cfg.Log.Warn("Failed to record notification", "type", n.Type, "receiver_id", n.ReceiverID, "error", err)
	}
}

func (s *appointmentService) load(ctx context.Context, id string) (*model.Appointment, error) {
	appt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLifecycleError(err, id)
	}
	return appt, nil
}

func (s *appointmentService) loadOwned(ctx context.Context, id, doctorID string) (*model.Appointment, error) {
	appt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.DocID != doctorID {
		return nil, apperrors.Forbidden("This appointment belongs to another doctor")
	}
	return appt, nil
}

func mapLifecycleError(err error, id string) error {
	switch {
	case errors.Is(err, appointmentserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Appointment", id)
	case errors.Is(err, appointmentserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid appointment ID: " + id)
	case errors.Is(err, appointmentserrors.ErrNotPending):
		return apperrors.Conflict("Appointment is not awaiting confirmation")
	case errors.Is(err, appointmentserrors.ErrNotConfirmed):
		return apperrors.Conflict("Appointment must be accepted before completion")
	case errors.Is(err, appointmentserrors.ErrNotCompleted):
		return apperrors.Conflict("Appointment is not completed")
	case errors.Is(err, appointmentserrors.ErrAlreadyTerminal):
		return apperrors.Conflict("Appointment is already completed or cancelled")
	case errors.Is(err, appointmentserrors.ErrRemedyAlreadySent):
		return apperrors.Conflict("Remedy was already sent for this appointment")
	default:
		if apperrors.IsAppError(err) {
			return err
		}
		return apperrors.Internal("Appointment operation failed", err)
	}
}
