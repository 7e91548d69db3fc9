package service

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"medbook/internal/appointments/repository"
	"medbook/pkg/auth"
	apperrors "medbook/pkg/errors"
	"medbook/pkg/model"
)

// GetByID returns the appointment if the actor is a party to it or an admin.
func (s *appointmentService) GetByID(ctx context.Context, actor auth.Principal, id string) (*model.Appointment, error) {
	appt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	switch actor.Role {
	case auth.RoleAdmin:
	case auth.RoleDoctor:
		if appt.DocID != actor.ID {
			return nil, apperrors.Forbidden("This appointment belongs to another doctor")
		}
	case auth.RolePatient:
		if appt.UserID != actor.ID {
			return nil, apperrors.Forbidden("This appointment belongs to another patient")
		}
	default:
		return nil, apperrors.Forbidden("Unknown role")
	}

	return appt, nil
}

func (s *appointmentService) ListForUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Appointment, int64, error) {
	appts, err := s.repo.FindByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to list appointments", err)
	}

	count, err := s.repo.Count(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to count appointments", err)
	}

	return appts, count, nil
}

func (s *appointmentService) ListForDoctor(ctx context.Context, docID string, limit int, offset int64) ([]*model.Appointment, int64, error) {
	appts, err := s.repo.FindByDoctor(ctx, docID, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to list appointments", err)
	}

	count, err := s.repo.Count(ctx, bson.M{"doc_id": docID})
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to count appointments", err)
	}

	return appts, count, nil
}

func (s *appointmentService) ListAll(ctx context.Context, limit int, offset int64) ([]*model.Appointment, int64, error) {
	appts, err := s.repo.FindAll(ctx, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to list appointments", err)
	}

	count, err := s.repo.Count(ctx, bson.M{})
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to count appointments", err)
	}

	return appts, count, nil
}

func (s *appointmentService) PatientStats(ctx context.Context, docID string) ([]repository.PatientStat, error) {
	stats, err := s.repo.PatientStatsByDoctor(ctx, docID)
	if err != nil {
		return nil, apperrors.Internal("Failed to aggregate patient stats", err)
	}
	return stats, nil
}

func (s *appointmentService) AdminPatientStats(ctx context.Context) ([]repository.PatientStat, error) {
	stats, err := s.repo.PatientStatsAll(ctx)
	if err != nil {
		return nil, apperrors.Internal("Failed to aggregate patient stats", err)
	}
	return stats, nil
}

func (s *appointmentService) Dashboard(ctx context.Context, docID string) (*repository.DashboardStats, error) {
	stats, err := s.repo.DashboardByDoctor(ctx, docID)
	if err != nil {
		return nil, apperrors.Internal("Failed to aggregate dashboard stats", err)
	}
	return stats, nil
}

// AdminDashboard is the platform-wide rollup for the admin panel.
type AdminDashboard struct {
	Doctors      int64                `json:"doctors"`
	Patients     int64                `json:"patients"`
	Appointments int64                `json:"appointments"`
	Latest       []*model.Appointment `json:"latest"`
}

func (s *appointmentService) AdminDashboard(ctx context.Context) (*AdminDashboard, error) {
	doctors, err := s.doctors.Count(ctx)
	if err != nil {
		return nil, apperrors.Internal("Failed to count doctors", err)
	}

	patients, err := s.users.Count(ctx)
	if err != nil {
		return nil, apperrors.Internal("Failed to count patients", err)
	}

	appointments, err := s.repo.Count(ctx, bson.M{})
	if err != nil {
		return nil, apperrors.Internal("Failed to count appointments", err)
	}

	latest, err := s.repo.FindAll(ctx, 5, 0)
	if err != nil {
		return nil, apperrors.Internal("Failed to list latest appointments", err)
	}

	return &AdminDashboard{
		Doctors:      doctors,
		Patients:     patients,
		Appointments: appointments,
		Latest:       latest,
	}, nil
}
