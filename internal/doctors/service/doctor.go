package service

import (
	"context"
	"errors"
	"io"

	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/crypto/bcrypt"

	doctorserrors "medbook/internal/doctors/errors"
	"medbook/internal/doctors/repository"
	"medbook/pkg/config"
	apperrors "medbook/pkg/errors"
	"medbook/pkg/imagestore"
	"medbook/pkg/model"
	"medbook/pkg/sanitizer"
	"medbook/pkg/validator"
)

type DoctorService interface {
	Add(ctx context.Context, doctor *model.Doctor, password string, image io.Reader, imageName string) error
	GetByID(ctx context.Context, id string) (*model.Doctor, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Doctor, int64, error)
	ToggleAvailability(ctx context.Context, id string) (bool, error)
	UpdateProfile(ctx context.Context, id string, updates *model.DoctorProfileUpdate) error
	Authenticate(ctx context.Context, email, password string) (*model.Doctor, error)
	ChangePassword(ctx context.Context, id, current, next string) error
}

type doctorService struct {
	repo      repository.DoctorRepository
	images    imagestore.Store
	validator *validator.Validator
	cfg       *config.Config
}

func NewDoctorService(repo repository.DoctorRepository, images imagestore.Store, v *validator.Validator, cfg *config.Config) DoctorService {
	return &doctorService{
		repo:      repo,
		images:    images,
		validator: v,
		cfg:       cfg,
	}
}

func (s *doctorService) Add(ctx context.Context, doctor *model.Doctor, password string, image io.Reader, imageName string) error {
	doctor.Name = sanitizer.NormalizeName(doctor.Name)
	doctor.Email = sanitizer.NormalizeEmail(doctor.Email)
	doctor.Specialty = sanitizer.TrimAndNormalize(doctor.Specialty)

	if err := s.validator.Struct(doctor); err != nil {
		return err
	}
	if len(password) < 8 {
		return apperrors.Validation("Password must be at least 8 characters", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return apperrors.Internal("Failed to hash password", err)
	}
	doctor.Password = string(hash)
	doctor.Available = true

	if image != nil {
		url, err := s.images.Save(imageName, image)
		if err != nil {
			return err
		}
		doctor.Image = url
	}

	if err := s.repo.Create(ctx, doctor); err != nil {
		if errors.Is(err, doctorserrors.ErrEmailTaken) {
			return apperrors.Conflict("A doctor with this email already exists")
		}
		return apperrors.Internal("Failed to create doctor", err)
	}

	s.cfg.Log.Info("Doctor added", "id", doctor.ID, "specialty", doctor.Specialty)
	return nil
}

func (s *doctorService) GetByID(ctx context.Context, id string) (*model.Doctor, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Doctor ID cannot be empty")
	}

	doctor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, id)
	}
	return doctor, nil
}

func (s *doctorService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Doctor, int64, error) {
	doctors, err := s.repo.FindAll(ctx, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to list doctors", err)
	}

	count, err := s.repo.Count(ctx)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to count doctors", err)
	}

	return doctors, count, nil
}

func (s *doctorService) ToggleAvailability(ctx context.Context, id string) (bool, error) {
	doctor, err := s.GetByID(ctx, id)
	if err != nil {
		return false, err
	}

	next := !doctor.Available
	if err := s.repo.SetAvailability(ctx, id, next); err != nil {
		return false, mapRepoError(err, id)
	}

	s.cfg.Log.Info("Doctor availability toggled", "id", id, "available", next)
	return next, nil
}

func (s *doctorService) UpdateProfile(ctx context.Context, id string, updates *model.DoctorProfileUpdate) error {
	if id == "" {
		return apperrors.InvalidInput("Doctor ID cannot be empty")
	}
	if err := s.validator.Struct(updates); err != nil {
		return err
	}

	set := bson.M{}
	if updates.Fees != nil {
		set["fees"] = *updates.Fees
	}
	if updates.Address != nil {
		set["address"] = sanitizer.TrimAndNormalize(*updates.Address)
	}
	if updates.About != nil {
		set["about"] = sanitizer.TrimAndNormalize(*updates.About)
	}
	if updates.Available != nil {
		set["available"] = *updates.Available
	}
	if len(set) == 0 {
		return apperrors.InvalidInput("No profile fields to update")
	}

	if err := s.repo.UpdateProfile(ctx, id, set); err != nil {
		return mapRepoError(err, id)
	}
	return nil
}

func (s *doctorService) Authenticate(ctx context.Context, email, password string) (*model.Doctor, error) {
	email = sanitizer.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperrors.InvalidInput("Email and password are required")
	}

	doctor, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, doctorserrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("Invalid credentials")
		}
		return nil, apperrors.Internal("Failed to look up doctor", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(doctor.Password), []byte(password)) != nil {
		return nil, apperrors.Unauthorized("Invalid credentials")
	}

	return doctor, nil
}

func (s *doctorService) ChangePassword(ctx context.Context, id, current, next string) error {
	if len(next) < 8 {
		return apperrors.Validation("Password must be at least 8 characters", nil)
	}

	doctor, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if bcrypt.CompareHashAndPassword([]byte(doctor.Password), []byte(current)) != nil {
		return apperrors.Unauthorized("Current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return apperrors.Internal("Failed to hash password", err)
	}

	if err := s.repo.SetPassword(ctx, id, string(hash)); err != nil {
		return mapRepoError(err, id)
	}

	s.cfg.Log.Info("Doctor password changed", "id", id)
	return nil
}

func mapRepoError(err error, id string) error {
	switch {
	case errors.Is(err, doctorserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Doctor", id)
	case errors.Is(err, doctorserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid doctor ID: " + id)
	default:
		return apperrors.Internal("Doctor operation failed", err)
	}
}
